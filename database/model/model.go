// Package model defines the persisted records of the gradebook panel.
package model

import (
	"math"
	"time"
)

// User is a staff account. Only the bcrypt hash of the password is stored.
type User struct {
	Id           int    `json:"id" gorm:"primaryKey;autoIncrement"`
	Username     string `json:"username" gorm:"uniqueIndex;not null"`
	PasswordHash string `json:"-" gorm:"column:password_hash;not null"`
}

// Student is one roster entry. RollNumber is the external-facing identifier
// and must stay unique across the roster.
type Student struct {
	Id         int     `json:"id" gorm:"primaryKey;autoIncrement"`
	Name       string  `json:"name" gorm:"not null"`
	RollNumber string  `json:"rollNumber" gorm:"uniqueIndex;not null"`
	Grades     []Grade `json:"grades" gorm:"foreignKey:StudentId;references:Id;constraint:OnDelete:CASCADE"`
}

// Average returns the mean of the student's grade scores rounded to two
// decimals, or nil when the student has no grades. Callers must keep the
// nil case distinguishable from an average of zero.
func (s *Student) Average() *float64 {
	if len(s.Grades) == 0 {
		return nil
	}
	sum := 0.0
	for _, g := range s.Grades {
		sum += g.Score
	}
	avg := math.Round(sum/float64(len(s.Grades))*100) / 100
	return &avg
}

// Grade is a single scored entry for a student. The same subject may appear
// more than once; each entry counts independently in the average.
type Grade struct {
	Id        int     `json:"id" gorm:"primaryKey;autoIncrement"`
	StudentId int     `json:"studentId" gorm:"index;not null"`
	Subject   string  `json:"subject" gorm:"not null"`
	Score     float64 `json:"score" gorm:"not null"`
}

// AuditLog records who performed which mutation. Rows are append-only.
type AuditLog struct {
	Id         int       `json:"id" gorm:"primaryKey;autoIncrement"`
	UserId     int       `json:"userId"`
	Username   string    `json:"username"`
	Action     string    `json:"action"`
	Resource   string    `json:"resource"`
	ResourceId int       `json:"resourceId"`
	IP         string    `json:"ip"`
	Details    string    `json:"details"`
	CreatedAt  time.Time `json:"createdAt"`
}
