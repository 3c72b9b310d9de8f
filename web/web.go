// Package web provides the HTTP server of the gradebook panel: routing,
// embedded templates and assets, session middleware and scheduled jobs.
package web

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"io"
	"io/fs"
	"net"
	"net/http"
	"strconv"

	"gradebook/config"
	"gradebook/logger"
	"gradebook/util/common"
	"gradebook/util/random"
	"gradebook/web/controller"
	"gradebook/web/job"

	"github.com/gin-contrib/gzip"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
)

//go:embed html/*
var htmlFS embed.FS

//go:embed assets
var assetsFS embed.FS

// Server is the gradebook web server with its controllers and cron jobs.
type Server struct {
	httpServer *http.Server
	listener   net.Listener

	index  *controller.IndexController
	roster *controller.RosterController

	cron *cron.Cron

	ctx    context.Context
	cancel context.CancelFunc
}

// NewServer creates a new web server instance with a cancellable context.
func NewServer() *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{ctx: ctx, cancel: cancel}
}

func (s *Server) getHtmlTemplate(funcMap template.FuncMap) (*template.Template, error) {
	return template.New("").Funcs(funcMap).ParseFS(htmlFS, "html/*.html")
}

func (s *Server) initRouter() (*gin.Engine, error) {
	if config.IsDebug() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.DefaultWriter = io.Discard
		gin.DefaultErrorWriter = io.Discard
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.Default()
	engine.Use(gzip.Gzip(gzip.DefaultCompression))

	secret := config.GetSessionSecret()
	if secret == "" {
		// Sessions won't survive a restart without a configured secret.
		secret = random.Seq(32)
		logger.Warning("GRADEBOOK_SESSION_SECRET not set, using an ephemeral secret")
	}
	store := cookie.NewStore([]byte(secret))
	engine.Use(sessions.Sessions(config.GetName(), store))

	funcMap := template.FuncMap{
		"score": func(v float64) string {
			return strconv.FormatFloat(v, 'f', -1, 64)
		},
		// avg renders a possibly-undefined average; nil is N/A, never 0.
		"avg": func(p *float64) string {
			if p == nil {
				return "N/A"
			}
			return strconv.FormatFloat(*p, 'f', 2, 64)
		},
	}
	engine.SetFuncMap(funcMap)
	tpl, err := s.getHtmlTemplate(funcMap)
	if err != nil {
		return nil, err
	}
	engine.SetHTMLTemplate(tpl)
	staticFS, err := fs.Sub(assetsFS, "assets")
	if err != nil {
		return nil, err
	}
	engine.StaticFS("/assets", http.FS(staticFS))

	g := engine.Group("/")
	s.index = controller.NewIndexController(g)
	s.roster = controller.NewRosterController(g)

	engine.NoRoute(func(c *gin.Context) {
		c.AbortWithStatus(http.StatusNotFound)
	})

	return engine, nil
}

func (s *Server) startTask() {
	// Flush the WAL hourly; CloseDB does a final checkpoint at shutdown.
	if _, err := s.cron.AddJob("@every 1h", job.NewCheckpointJob()); err != nil {
		logger.Warning("schedule checkpoint job failed:", err)
	}
}

// Start binds the listener and serves until Stop is called.
func (s *Server) Start() (err error) {
	defer func() {
		if err != nil {
			s.Stop()
		}
	}()

	engine, err := s.initRouter()
	if err != nil {
		return err
	}

	s.cron = cron.New()
	s.cron.Start()
	s.startTask()

	addr := net.JoinHostPort(config.GetListen(), strconv.Itoa(config.GetPort()))
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.listener = listener

	s.httpServer = &http.Server{
		Handler: engine,
	}

	go func() {
		defer common.Recover("web server")
		if serveErr := s.httpServer.Serve(listener); serveErr != nil && serveErr != http.ErrServerClosed {
			logger.Error("web server error:", serveErr)
		}
	}()

	logger.Infof("web server running on %s", addr)
	return nil
}

// Stop shuts the server down and stops the cron runner.
func (s *Server) Stop() error {
	s.cancel()

	var errShutdown error
	if s.httpServer != nil {
		errShutdown = s.httpServer.Shutdown(context.Background())
	}
	var errListener error
	if s.listener != nil {
		// Shutdown already closed the listener; only a fresh error matters.
		if closeErr := s.listener.Close(); closeErr != nil && !errors.Is(closeErr, net.ErrClosed) {
			errListener = closeErr
		}
	}
	if s.cron != nil {
		s.cron.Stop()
	}
	return errors.Join(errShutdown, errListener)
}

// GetCtx returns the server's root context.
func (s *Server) GetCtx() context.Context {
	return s.ctx
}
