package service

import (
	"encoding/csv"
	"io"
	"sort"
	"strconv"
	"strings"

	"gradebook/database"
	"gradebook/database/model"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
	"gorm.io/gorm"
)

// Sort keys accepted by ListStudents.
const (
	SortByName    = "name"
	SortByAverage = "avg"
)

// StatEntry is one element of the class stats feed. Average defaults to 0
// for students without grades; this intentionally differs from the listing
// view, which renders those students as N/A.
type StatEntry struct {
	Name    string  `json:"name"`
	Average float64 `json:"average"`
}

// RosterService is the roster store: students, their grades and the derived
// per-student average. All writes run inside a transaction and uniqueness of
// roll numbers is backed by a storage-level unique index.
type RosterService struct{}

var nameCollator = collate.New(language.Und, collate.IgnoreCase)

// ListStudents returns students with their grades preloaded, optionally
// filtered by a case-insensitive substring match on name or roll number,
// ordered by the given sort key.
func (s *RosterService) ListStudents(filter string, sortKey string) ([]model.Student, error) {
	query := database.GetDB().Model(&model.Student{}).Preload("Grades", gradeOrder)

	if filter = strings.TrimSpace(filter); filter != "" {
		like := "%" + strings.ToLower(filter) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(roll_number) LIKE ?", like, like)
	}

	var students []model.Student
	if err := query.Find(&students).Error; err != nil {
		return nil, err
	}

	switch sortKey {
	case SortByAverage:
		// Students without grades sort after everyone else.
		sort.SliceStable(students, func(i, j int) bool {
			ai, aj := students[i].Average(), students[j].Average()
			if ai == nil {
				return false
			}
			if aj == nil {
				return true
			}
			return *ai > *aj
		})
	default:
		sort.SliceStable(students, func(i, j int) bool {
			return nameCollator.CompareString(students[i].Name, students[j].Name) < 0
		})
	}
	return students, nil
}

func gradeOrder(db *gorm.DB) *gorm.DB {
	return db.Order("id ASC")
}

// GetStudent loads one student with grades.
func (s *RosterService) GetStudent(id int) (*model.Student, error) {
	var student model.Student
	err := database.GetDB().Preload("Grades", gradeOrder).First(&student, id).Error
	if err != nil {
		if database.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &student, nil
}

// AddStudent creates a roster entry. Name and roll number are trimmed and
// must be non-empty; the roll number must not collide with any existing one.
func (s *RosterService) AddStudent(name string, rollNumber string) (*model.Student, error) {
	name = strings.TrimSpace(name)
	rollNumber = strings.TrimSpace(rollNumber)
	if name == "" || rollNumber == "" {
		return nil, ErrInvalidInput
	}

	student := &model.Student{
		Name:       name,
		RollNumber: rollNumber,
	}
	err := database.GetDB().Transaction(func(tx *gorm.DB) error {
		return tx.Create(student).Error
	})
	if err != nil {
		if database.IsDuplicate(err) {
			return nil, ErrDuplicateRollNumber
		}
		return nil, err
	}
	return student, nil
}

// UpdateStudent edits name and roll number. Keeping the student's current
// roll number is not a collision; taking a different student's is.
func (s *RosterService) UpdateStudent(id int, name string, rollNumber string) error {
	name = strings.TrimSpace(name)
	rollNumber = strings.TrimSpace(rollNumber)
	if name == "" || rollNumber == "" {
		return ErrInvalidInput
	}

	err := database.GetDB().Transaction(func(tx *gorm.DB) error {
		var student model.Student
		if err := tx.First(&student, id).Error; err != nil {
			return err
		}
		student.Name = name
		student.RollNumber = rollNumber
		return tx.Save(&student).Error
	})
	if err != nil {
		if database.IsNotFound(err) {
			return ErrNotFound
		}
		if database.IsDuplicate(err) {
			return ErrDuplicateRollNumber
		}
		return err
	}
	return nil
}

// DeleteStudent removes a student and all of their grades.
func (s *RosterService) DeleteStudent(id int) error {
	err := database.GetDB().Transaction(func(tx *gorm.DB) error {
		var student model.Student
		if err := tx.First(&student, id).Error; err != nil {
			return err
		}
		if err := tx.Where("student_id = ?", id).Delete(&model.Grade{}).Error; err != nil {
			return err
		}
		return tx.Delete(&student).Error
	})
	if database.IsNotFound(err) {
		return ErrNotFound
	}
	return err
}

// AddGrade records a score for a student. The raw score text is parsed here
// so the caller can hand the form value through unchanged.
func (s *RosterService) AddGrade(studentId int, subject string, scoreText string) (*model.Grade, error) {
	subject = strings.TrimSpace(subject)
	scoreText = strings.TrimSpace(scoreText)
	if subject == "" || scoreText == "" {
		return nil, ErrInvalidInput
	}

	score, err := strconv.ParseFloat(scoreText, 64)
	if err != nil {
		return nil, ErrInvalidScore
	}
	// The comparison is written so NaN also fails it.
	if !(score >= 0 && score <= 100) {
		return nil, ErrInvalidScore
	}

	grade := &model.Grade{
		StudentId: studentId,
		Subject:   subject,
		Score:     score,
	}
	err = database.GetDB().Transaction(func(tx *gorm.DB) error {
		var student model.Student
		if err := tx.First(&student, studentId).Error; err != nil {
			return err
		}
		return tx.Create(grade).Error
	})
	if err != nil {
		if database.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return grade, nil
}

// DeleteGrade removes a single grade and returns the owning student's id so
// the caller can redirect back to the student's page.
func (s *RosterService) DeleteGrade(gradeId int) (int, error) {
	var studentId int
	err := database.GetDB().Transaction(func(tx *gorm.DB) error {
		var grade model.Grade
		if err := tx.First(&grade, gradeId).Error; err != nil {
			return err
		}
		studentId = grade.StudentId
		return tx.Delete(&grade).Error
	})
	if err != nil {
		if database.IsNotFound(err) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	return studentId, nil
}

// ExportCSV writes the roster as CSV: header, one row per grade, and one
// empty-subject row for each student without grades. Ordered by name.
func (s *RosterService) ExportCSV(w io.Writer) error {
	students, err := s.ListStudents("", SortByName)
	if err != nil {
		return err
	}

	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"Name", "Roll", "Subject", "Score"}); err != nil {
		return err
	}
	for _, student := range students {
		if len(student.Grades) == 0 {
			if err := writer.Write([]string{student.Name, student.RollNumber, "", ""}); err != nil {
				return err
			}
			continue
		}
		for _, grade := range student.Grades {
			row := []string{
				student.Name,
				student.RollNumber,
				grade.Subject,
				strconv.FormatFloat(grade.Score, 'f', -1, 64),
			}
			if err := writer.Write(row); err != nil {
				return err
			}
		}
	}
	writer.Flush()
	return writer.Error()
}

// ClassStats returns a {name, average} pair for every student, with average
// 0 when the student has no grades (chart convention).
func (s *RosterService) ClassStats() ([]StatEntry, error) {
	students, err := s.ListStudents("", SortByName)
	if err != nil {
		return nil, err
	}

	stats := make([]StatEntry, 0, len(students))
	for _, student := range students {
		entry := StatEntry{Name: student.Name}
		if avg := student.Average(); avg != nil {
			entry.Average = *avg
		}
		stats = append(stats, entry)
	}
	return stats, nil
}
