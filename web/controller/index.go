package controller

import (
	"errors"
	"net/http"

	"gradebook/config"
	"gradebook/logger"
	"gradebook/web/service"
	"gradebook/web/session"

	"github.com/gin-gonic/gin"
)

// LoginForm carries the login request fields.
type LoginForm struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

// RegisterForm carries the registration request fields.
type RegisterForm struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

// IndexController handles login, registration and logout.
type IndexController struct {
	BaseController

	userService  service.UserService
	auditService service.AuditService
}

func NewIndexController(g *gin.RouterGroup) *IndexController {
	a := &IndexController{}
	a.initRouter(g)
	return a
}

func (a *IndexController) initRouter(g *gin.RouterGroup) {
	g.GET("/login", a.loginPage)
	g.POST("/login", a.login)
	g.GET("/register", a.registerPage)
	g.POST("/register", a.register)
	g.GET("/logout", a.checkLogin, a.logout)
}

func (a *IndexController) loginPage(c *gin.Context) {
	if session.IsLogin(c) {
		c.Redirect(http.StatusSeeOther, "/")
		return
	}
	html(c, "login.html", "Login", gin.H{
		"next": safeNext(c.Query("next")),
	})
}

func (a *IndexController) login(c *gin.Context) {
	var form LoginForm
	if err := c.ShouldBind(&form); err != nil {
		session.AddFlash(c, "danger", "Invalid form data.")
		c.Redirect(http.StatusSeeOther, "/login")
		return
	}

	user, err := a.userService.Authenticate(form.Username, form.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			logger.Warningf("failed login for %q from %s", form.Username, getRemoteIp(c))
			session.AddFlash(c, "danger", "Invalid username or password.")
		} else {
			logger.Error("login failed:", err)
			session.AddFlash(c, "danger", "Something went wrong, please try again.")
		}
		c.Redirect(http.StatusSeeOther, "/login")
		return
	}

	if err := session.SetMaxAge(c, config.GetSessionMaxAge()*60); err != nil {
		logger.Warning("unable to set session max age:", err)
	}
	if err := session.SetLoginUser(c, user); err != nil {
		logger.Warning("unable to save session:", err)
	}

	logger.Infof("%s logged in from %s", user.Username, getRemoteIp(c))
	a.auditService.LogAction(user, "LOGIN", "session", 0, getRemoteIp(c), nil)
	session.AddFlash(c, "success", "Logged in!")
	c.Redirect(http.StatusSeeOther, safeNext(c.PostForm("next")))
}

func (a *IndexController) registerPage(c *gin.Context) {
	html(c, "register.html", "Register", nil)
}

func (a *IndexController) register(c *gin.Context) {
	var form RegisterForm
	if err := c.ShouldBind(&form); err != nil {
		session.AddFlash(c, "danger", "Invalid form data.")
		c.Redirect(http.StatusSeeOther, "/register")
		return
	}

	user, err := a.userService.Register(form.Username, form.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrDuplicateUsername):
			session.AddFlash(c, "danger", "Username already exists.")
		case errors.Is(err, service.ErrInvalidInput):
			session.AddFlash(c, "danger", "Username must be at least 3 and password at least 4 characters.")
		default:
			logger.Error("registration failed:", err)
			session.AddFlash(c, "danger", "Something went wrong, please try again.")
		}
		c.Redirect(http.StatusSeeOther, "/register")
		return
	}

	a.auditService.LogAction(user, "CREATE", "user", user.Id, getRemoteIp(c), nil)
	session.AddFlash(c, "success", "Account created. Please log in.")
	c.Redirect(http.StatusSeeOther, "/login")
}

func (a *IndexController) logout(c *gin.Context) {
	user := session.GetLoginUser(c)
	if user != nil {
		logger.Infof("%s logged out", user.Username)
		a.auditService.LogAction(user, "LOGOUT", "session", 0, getRemoteIp(c), nil)
	}
	if err := session.ClearSession(c); err != nil {
		logger.Warning("unable to clear session:", err)
	}
	c.Redirect(http.StatusSeeOther, "/login")
}
