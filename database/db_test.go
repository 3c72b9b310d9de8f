package database

import (
	"os"
	"testing"

	"gradebook/database/model"

	"github.com/stretchr/testify/assert"
)

func initTestDB(t *testing.T) {
	t.Helper()
	dbPath := "test.db"
	os.Remove(dbPath)
	assert.NoError(t, InitDB(dbPath))
	t.Cleanup(func() {
		sqlDB, _ := GetDB().DB()
		sqlDB.Close()
		os.Remove(dbPath)
	})
}

func TestInitDBSeedsAdmin(t *testing.T) {
	initTestDB(t)

	var user model.User
	err := GetDB().Where("username = ?", "admin").First(&user).Error
	assert.NoError(t, err)
	assert.NotEmpty(t, user.PasswordHash)
	assert.NotEqual(t, "admin123", user.PasswordHash)
}

func TestUniqueConstraintsAreStorageLevel(t *testing.T) {
	initTestDB(t)

	err := GetDB().Create(&model.Student{Name: "Alice", RollNumber: "R-1"}).Error
	assert.NoError(t, err)

	// Bypasses any application-level check on purpose: the index itself
	// must reject the duplicate.
	err = GetDB().Create(&model.Student{Name: "Bob", RollNumber: "R-1"}).Error
	assert.True(t, IsDuplicate(err))

	err = GetDB().Create(&model.User{Username: "admin", PasswordHash: "x"}).Error
	assert.True(t, IsDuplicate(err))
}

func TestIsNotFound(t *testing.T) {
	initTestDB(t)

	var student model.Student
	err := GetDB().First(&student, 12345).Error
	assert.True(t, IsNotFound(err))
}
