// Package database owns the SQLite storage handle and its lifecycle. The
// handle is opened once at process start via InitDB and closed at shutdown
// via CloseDB; every store operation goes through GetDB.
package database

import (
	"errors"
	"io/fs"
	"log"
	"os"
	"path"

	"gradebook/config"
	"gradebook/database/model"
	"gradebook/util/common"
	"gradebook/util/crypto"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var db *gorm.DB

const (
	defaultUsername = "admin"
	defaultPassword = "admin123"
)

func initModels() error {
	models := []any{
		&model.User{},
		&model.Student{},
		&model.Grade{},
		&model.AuditLog{},
	}
	for _, m := range models {
		if err := db.AutoMigrate(m); err != nil {
			log.Printf("Error auto migrating model: %v", err)
			return err
		}
	}
	return nil
}

// initUser seeds the default admin account when the users table is empty.
func initUser() error {
	empty, err := isTableEmpty("users")
	if err != nil {
		log.Printf("Error checking if users table is empty: %v", err)
		return err
	}
	if !empty {
		return nil
	}
	hash, err := crypto.HashPasswordAsBcrypt(defaultPassword)
	if err != nil {
		return err
	}
	user := &model.User{
		Username:     defaultUsername,
		PasswordHash: hash,
	}
	return db.Create(user).Error
}

func isTableEmpty(tableName string) (bool, error) {
	var count int64
	err := db.Table(tableName).Count(&count).Error
	return count == 0, err
}

func InitDB(dbPath string) error {
	dir := path.Dir(dbPath)
	err := os.MkdirAll(dir, fs.ModePerm)
	if err != nil {
		return err
	}

	var gormLogger logger.Interface
	if config.IsDebug() {
		gormLogger = logger.Default
	} else {
		gormLogger = logger.Discard
	}

	c := &gorm.Config{
		Logger:         gormLogger,
		TranslateError: true,
	}

	// Busy timeout lets a second writer wait for the commit instead of
	// failing, so uniqueness races surface as constraint violations.
	// foreign_keys must be in the DSN to cover every pooled connection.
	dsn := dbPath + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=10000&_foreign_keys=on"
	db, err = gorm.Open(sqlite.Open(dsn), c)
	if err != nil {
		return common.NewErrorf("open database %s: %v", dbPath, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return err
	}

	if _, err = sqlDB.Exec("PRAGMA temp_store = MEMORY;"); err != nil {
		return err
	}

	if err := initModels(); err != nil {
		return err
	}
	return initUser()
}

func CloseDB() error {
	if db != nil {
		if err := Checkpoint(); err != nil {
			log.Printf("error executing checkpoint: %v", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}
	return nil
}

func GetDB() *gorm.DB {
	return db
}

func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// IsDuplicate reports whether err is a storage-level unique constraint
// violation. Uniqueness of usernames and roll numbers is enforced here, not
// by application-level checks, so concurrent writers cannot both succeed.
func IsDuplicate(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

// Checkpoint flushes the WAL into the main database file.
func Checkpoint() error {
	return db.Exec("PRAGMA wal_checkpoint;").Error
}
