// Package controller provides the HTTP handlers of the gradebook panel:
// authentication, roster and grade management, CSV export and class stats.
package controller

import (
	"net/http"
	"net/url"

	"gradebook/web/session"

	"github.com/gin-gonic/gin"
)

// BaseController provides the session gate shared by all protected routes.
type BaseController struct{}

// checkLogin rejects anonymous access to protected operations. Browser
// requests are redirected to the login page with the original URI as the
// return intent; AJAX requests get a 401 envelope.
func (a *BaseController) checkLogin(c *gin.Context) {
	if session.IsLogin(c) {
		c.Next()
		return
	}
	if isAjax(c) {
		pureJsonMsg(c, http.StatusUnauthorized, false, "login required")
	} else {
		c.Redirect(http.StatusSeeOther, "/login?next="+url.QueryEscape(c.Request.RequestURI))
	}
	c.Abort()
}
