package controller

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"gradebook/database/model"
	"gradebook/logger"
	"gradebook/web/service"
	"gradebook/web/session"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
)

// StudentForm carries the add/edit student fields.
type StudentForm struct {
	Name       string `json:"name" form:"name"`
	RollNumber string `json:"rollNumber" form:"roll_number"`
}

// GradeForm carries the add-grade fields. Score stays text until the store
// validates it.
type GradeForm struct {
	Subject string `json:"subject" form:"subject"`
	Score   string `json:"score" form:"score"`
}

// studentRow pairs a student with its precomputed average for templates.
type studentRow struct {
	Student model.Student
	Average *float64
}

// RosterController handles every protected roster operation.
type RosterController struct {
	BaseController

	rosterService service.RosterService
	auditService  service.AuditService
}

func NewRosterController(g *gin.RouterGroup) *RosterController {
	a := &RosterController{}
	a.initRouter(g)
	return a
}

func (a *RosterController) initRouter(g *gin.RouterGroup) {
	g.Use(a.checkLogin)

	g.GET("/", a.index)
	g.GET("/student/add", a.addStudentPage)
	g.POST("/student/add", a.addStudent)
	g.GET("/student/:id", a.studentDetail)
	g.GET("/student/:id/edit", a.editStudentPage)
	g.POST("/student/:id/edit", a.editStudent)
	g.POST("/student/:id/delete", a.deleteStudent)
	g.POST("/student/:id/grade/add", a.addGrade)
	g.POST("/grade/:id/delete", a.deleteGrade)
	g.GET("/export/csv", a.exportCSV)
	g.GET("/class-stats", a.classStats)
}

// flashError maps recoverable store errors to a flash message; anything else
// is logged and reported generically.
func (a *RosterController) flashError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, service.ErrInvalidScore),
		errors.Is(err, service.ErrDuplicateRollNumber),
		errors.Is(err, service.ErrNotFound):
		session.AddFlash(c, "danger", capitalizeError(err))
	default:
		logger.Error("roster operation failed:", err)
		session.AddFlash(c, "danger", "Something went wrong, please try again.")
	}
}

func capitalizeError(err error) string {
	msg := err.Error()
	if msg == "" {
		return msg
	}
	return strings.ToUpper(msg[:1]) + msg[1:] + "."
}

func pathId(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func (a *RosterController) index(c *gin.Context) {
	filter := c.Query("q")
	sortKey := c.DefaultQuery("sort", service.SortByName)

	students, err := a.rosterService.ListStudents(filter, sortKey)
	if err != nil {
		logger.Error("list students failed:", err)
		c.String(http.StatusInternalServerError, "storage failure")
		return
	}

	rows := make([]studentRow, 0, len(students))
	for _, s := range students {
		rows = append(rows, studentRow{Student: s, Average: s.Average()})
	}
	html(c, "index.html", "Students", gin.H{
		"rows":   rows,
		"filter": filter,
		"sort":   sortKey,
	})
}

func (a *RosterController) addStudentPage(c *gin.Context) {
	html(c, "add_student.html", "Add Student", nil)
}

func (a *RosterController) addStudent(c *gin.Context) {
	var form StudentForm
	if err := c.ShouldBind(&form); err != nil {
		session.AddFlash(c, "danger", "Invalid form data.")
		c.Redirect(http.StatusSeeOther, "/student/add")
		return
	}

	student, err := a.rosterService.AddStudent(form.Name, form.RollNumber)
	if err != nil {
		a.flashError(c, err)
		c.Redirect(http.StatusSeeOther, "/student/add")
		return
	}

	a.auditService.LogAction(session.GetLoginUser(c), "CREATE", "student", student.Id, getRemoteIp(c), map[string]any{
		"name": student.Name,
		"roll": student.RollNumber,
	})
	session.AddFlash(c, "success", "Student added.")
	c.Redirect(http.StatusSeeOther, "/")
}

func (a *RosterController) studentDetail(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		c.AbortWithStatus(http.StatusNotFound)
		return
	}
	student, err := a.rosterService.GetStudent(id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.AbortWithStatus(http.StatusNotFound)
		} else {
			logger.Error("get student failed:", err)
			c.String(http.StatusInternalServerError, "storage failure")
		}
		return
	}
	html(c, "student_detail.html", student.Name, gin.H{
		"student": student,
		"average": student.Average(),
	})
}

func (a *RosterController) editStudentPage(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		c.AbortWithStatus(http.StatusNotFound)
		return
	}
	student, err := a.rosterService.GetStudent(id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.AbortWithStatus(http.StatusNotFound)
		} else {
			logger.Error("get student failed:", err)
			c.String(http.StatusInternalServerError, "storage failure")
		}
		return
	}
	html(c, "edit_student.html", "Edit Student", gin.H{"student": student})
}

func (a *RosterController) editStudent(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		c.AbortWithStatus(http.StatusNotFound)
		return
	}
	var form StudentForm
	if err := c.ShouldBind(&form); err != nil {
		session.AddFlash(c, "danger", "Invalid form data.")
		c.Redirect(http.StatusSeeOther, fmt.Sprintf("/student/%d/edit", id))
		return
	}

	if err := a.rosterService.UpdateStudent(id, form.Name, form.RollNumber); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.AbortWithStatus(http.StatusNotFound)
			return
		}
		a.flashError(c, err)
		c.Redirect(http.StatusSeeOther, fmt.Sprintf("/student/%d/edit", id))
		return
	}

	a.auditService.LogAction(session.GetLoginUser(c), "UPDATE", "student", id, getRemoteIp(c), map[string]any{
		"name": form.Name,
		"roll": form.RollNumber,
	})
	session.AddFlash(c, "success", "Updated successfully.")
	c.Redirect(http.StatusSeeOther, fmt.Sprintf("/student/%d", id))
}

func (a *RosterController) deleteStudent(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		c.AbortWithStatus(http.StatusNotFound)
		return
	}
	if err := a.rosterService.DeleteStudent(id); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.AbortWithStatus(http.StatusNotFound)
			return
		}
		a.flashError(c, err)
		c.Redirect(http.StatusSeeOther, "/")
		return
	}

	a.auditService.LogAction(session.GetLoginUser(c), "DELETE", "student", id, getRemoteIp(c), nil)
	session.AddFlash(c, "success", "Student deleted.")
	c.Redirect(http.StatusSeeOther, "/")
}

func (a *RosterController) addGrade(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		c.AbortWithStatus(http.StatusNotFound)
		return
	}
	var form GradeForm
	if err := c.ShouldBind(&form); err != nil {
		session.AddFlash(c, "danger", "Invalid form data.")
		c.Redirect(http.StatusSeeOther, fmt.Sprintf("/student/%d", id))
		return
	}

	grade, err := a.rosterService.AddGrade(id, form.Subject, form.Score)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.AbortWithStatus(http.StatusNotFound)
			return
		}
		a.flashError(c, err)
		c.Redirect(http.StatusSeeOther, fmt.Sprintf("/student/%d", id))
		return
	}

	a.auditService.LogAction(session.GetLoginUser(c), "CREATE", "grade", grade.Id, getRemoteIp(c), map[string]any{
		"student": id,
		"subject": grade.Subject,
		"score":   grade.Score,
	})
	session.AddFlash(c, "success", "Grade added.")
	c.Redirect(http.StatusSeeOther, fmt.Sprintf("/student/%d", id))
}

func (a *RosterController) deleteGrade(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		c.AbortWithStatus(http.StatusNotFound)
		return
	}
	studentId, err := a.rosterService.DeleteGrade(id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.AbortWithStatus(http.StatusNotFound)
			return
		}
		a.flashError(c, err)
		c.Redirect(http.StatusSeeOther, "/")
		return
	}

	a.auditService.LogAction(session.GetLoginUser(c), "DELETE", "grade", id, getRemoteIp(c), map[string]any{
		"student": studentId,
	})
	session.AddFlash(c, "success", "Grade deleted.")
	c.Redirect(http.StatusSeeOther, fmt.Sprintf("/student/%d", studentId))
}

func (a *RosterController) exportCSV(c *gin.Context) {
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", `attachment; filename="students.csv"`)
	if err := a.rosterService.ExportCSV(c.Writer); err != nil {
		logger.Error("csv export failed:", err)
	}
}

func (a *RosterController) classStats(c *gin.Context) {
	stats, err := a.rosterService.ClassStats()
	if err != nil {
		logger.Error("class stats failed:", err)
		c.String(http.StatusInternalServerError, "storage failure")
		return
	}
	data, err := json.Marshal(stats)
	if err != nil {
		c.String(http.StatusInternalServerError, "encoding failure")
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", data)
}
