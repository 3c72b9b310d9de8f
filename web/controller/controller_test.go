package controller

import (
	"encoding/csv"
	"html/template"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strconv"
	"strings"
	"testing"

	"gradebook/database"
	"gradebook/web/service"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
)

const testTemplates = `
{{define "login.html"}}login{{end}}
{{define "register.html"}}register{{end}}
{{define "index.html"}}students:{{len .rows}}{{end}}
{{define "add_student.html"}}add{{end}}
{{define "edit_student.html"}}edit{{end}}
{{define "student_detail.html"}}detail:{{.student.Name}}{{end}}
`

func setupRouter(t *testing.T) *gin.Engine {
	t.Helper()
	os.Remove("test.db")
	if err := database.InitDB("test.db"); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		db, _ := database.GetDB().DB()
		db.Close()
		os.Remove("test.db")
	})

	gin.SetMode(gin.TestMode)
	engine := gin.New()
	store := cookie.NewStore([]byte("test-secret"))
	engine.Use(sessions.Sessions("gradebook", store))

	funcMap := template.FuncMap{
		"avg": func(p *float64) string {
			if p == nil {
				return "N/A"
			}
			return strconv.FormatFloat(*p, 'f', 2, 64)
		},
		"score": func(v float64) string {
			return strconv.FormatFloat(v, 'f', -1, 64)
		},
	}
	engine.SetHTMLTemplate(template.Must(template.New("").Funcs(funcMap).Parse(testTemplates)))

	g := engine.Group("/")
	NewIndexController(g)
	NewRosterController(g)
	return engine
}

func doRequest(engine *gin.Engine, method, target string, form url.Values, cookies []*http.Cookie) *httptest.ResponseRecorder {
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

// lastCookies keeps only the final Set-Cookie per name. The session is saved
// more than once while handling login, and like a browser we must honor the
// last write, not the first.
func lastCookies(resp *http.Response) []*http.Cookie {
	byName := make(map[string]*http.Cookie)
	order := make([]string, 0)
	for _, c := range resp.Cookies() {
		if _, seen := byName[c.Name]; !seen {
			order = append(order, c.Name)
		}
		byName[c.Name] = c
	}
	cookies := make([]*http.Cookie, 0, len(order))
	for _, name := range order {
		cookies = append(cookies, byName[name])
	}
	return cookies
}

func loginAs(t *testing.T, engine *gin.Engine, username, password string) []*http.Cookie {
	t.Helper()
	w := doRequest(engine, http.MethodPost, "/login", url.Values{
		"username": {username},
		"password": {password},
	}, nil)
	assert.Equal(t, http.StatusSeeOther, w.Code)
	cookies := lastCookies(w.Result())
	assert.NotEmpty(t, cookies)
	return cookies
}

func TestProtectedOperationsRejectAnonymous(t *testing.T) {
	engine := setupRouter(t)

	w := doRequest(engine, http.MethodGet, "/", nil, nil)
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Contains(t, w.Header().Get("Location"), "/login?next=")

	// An AJAX mutation gets a 401 and must not write anything.
	req := httptest.NewRequest(http.MethodPost, "/student/add",
		strings.NewReader(url.Values{"name": {"Ghost"}, "roll_number": {"R-0"}}.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rosterService := service.RosterService{}
	students, err := rosterService.ListStudents("", service.SortByName)
	assert.NoError(t, err)
	assert.Empty(t, students)
}

func TestLoginLogoutFlow(t *testing.T) {
	engine := setupRouter(t)

	cookies := loginAs(t, engine, "admin", "admin123")

	w := doRequest(engine, http.MethodGet, "/", nil, cookies)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "students:")

	w = doRequest(engine, http.MethodGet, "/logout", nil, cookies)
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))

	// The cleared cookie from the logout response no longer authenticates.
	w = doRequest(engine, http.MethodGet, "/", nil, lastCookies(w.Result()))
	assert.Equal(t, http.StatusSeeOther, w.Code)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	engine := setupRouter(t)

	w := doRequest(engine, http.MethodPost, "/login", url.Values{
		"username": {"admin"},
		"password": {"wrong"},
	}, nil)
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))
}

func TestLoginHonorsSafeNextOnly(t *testing.T) {
	engine := setupRouter(t)

	w := doRequest(engine, http.MethodPost, "/login", url.Values{
		"username": {"admin"},
		"password": {"admin123"},
		"next":     {"https://evil.example/"},
	}, nil)
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))
}

func TestStudentCRUDFlow(t *testing.T) {
	engine := setupRouter(t)
	cookies := loginAs(t, engine, "admin", "admin123")

	w := doRequest(engine, http.MethodPost, "/student/add", url.Values{
		"name":        {"Alice"},
		"roll_number": {"R-1"},
	}, cookies)
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))

	rosterService := service.RosterService{}
	students, _ := rosterService.ListStudents("", service.SortByName)
	assert.Len(t, students, 1)
	id := students[0].Id

	w = doRequest(engine, http.MethodGet, "/student/"+strconv.Itoa(id), nil, cookies)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "detail:Alice")

	// A duplicate roll bounces back to the add form.
	w = doRequest(engine, http.MethodPost, "/student/add", url.Values{
		"name":        {"Bob"},
		"roll_number": {"R-1"},
	}, cookies)
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/student/add", w.Header().Get("Location"))

	w = doRequest(engine, http.MethodPost, "/student/"+strconv.Itoa(id)+"/grade/add", url.Values{
		"subject": {"math"},
		"score":   {"90"},
	}, cookies)
	assert.Equal(t, http.StatusSeeOther, w.Code)

	w = doRequest(engine, http.MethodPost, "/student/"+strconv.Itoa(id)+"/delete", nil, cookies)
	assert.Equal(t, http.StatusSeeOther, w.Code)
	students, _ = rosterService.ListStudents("", service.SortByName)
	assert.Empty(t, students)

	w = doRequest(engine, http.MethodGet, "/student/"+strconv.Itoa(id), nil, cookies)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestExportCSVEndpoint(t *testing.T) {
	engine := setupRouter(t)
	cookies := loginAs(t, engine, "admin", "admin123")

	rosterService := service.RosterService{}
	alice, _ := rosterService.AddStudent("Alice", "R-1")
	rosterService.AddStudent("Bob", "R-2")
	rosterService.AddGrade(alice.Id, "math", "90")
	rosterService.AddGrade(alice.Id, "art", "80")

	w := doRequest(engine, http.MethodGet, "/export/csv", nil, cookies)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, w.Header().Get("Content-Disposition"), "students.csv")

	records, err := csv.NewReader(w.Body).ReadAll()
	assert.NoError(t, err)
	assert.Len(t, records, 4)
}

func TestClassStatsEndpoint(t *testing.T) {
	engine := setupRouter(t)
	cookies := loginAs(t, engine, "admin", "admin123")

	rosterService := service.RosterService{}
	alice, _ := rosterService.AddStudent("Alice", "R-1")
	rosterService.AddStudent("Bob", "R-2")
	rosterService.AddGrade(alice.Id, "math", "90")

	w := doRequest(engine, http.MethodGet, "/class-stats", nil, cookies)
	assert.Equal(t, http.StatusOK, w.Code)

	var stats []service.StatEntry
	err := json.Unmarshal(w.Body.Bytes(), &stats)
	assert.NoError(t, err)
	assert.Len(t, stats, 2)
	assert.Equal(t, 90.0, stats[0].Average)
	assert.Zero(t, stats[1].Average)
}

func TestRegisterEndpoint(t *testing.T) {
	engine := setupRouter(t)

	w := doRequest(engine, http.MethodPost, "/register", url.Values{
		"username": {"teacher1"},
		"password": {"s3cret"},
	}, nil)
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))

	cookies := loginAs(t, engine, "teacher1", "s3cret")
	w = doRequest(engine, http.MethodGet, "/", nil, cookies)
	assert.Equal(t, http.StatusOK, w.Code)

	// Duplicate username bounces back to the register form.
	w = doRequest(engine, http.MethodPost, "/register", url.Values{
		"username": {"teacher1"},
		"password": {"another"},
	}, nil)
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/register", w.Header().Get("Location"))
}
