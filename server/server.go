// Package server exposes the forecast workflow over http with gin. Every browser gets its own
// session identified by a cookie.
package server

import (
	"embed"
	"errors"
	"html/template"
	"net/http"
	"time"

	"github.com/aouyang1/forecastlab"
	"github.com/aouyang1/forecastlab/session"
	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

const (
	SessionCookie = "forecastlab_session"

	// DefaultMaxUploadBytes bounds the size of an uploaded csv
	DefaultMaxUploadBytes = 10 << 20

	sessionKey = "session"
)

var (
	ErrNoModelChosen  = errors.New("choose a model first")
	ErrUploadTooLarge = errors.New("uploaded file is too large")
)

//go:embed templates/*.html
var templatesFS embed.FS

// Options configures the server
type Options struct {
	Store          *session.Store
	Logger         logrus.FieldLogger
	MaxUploadBytes int64
	SecureCookie   bool
}

// Server serves the forecast pages, the session api, health and metrics
type Server struct {
	store  *session.Store
	log    logrus.FieldLogger
	opt    Options
	router *gin.Engine
}

func New(opt Options) (*Server, error) {
	if opt.Store == nil {
		opt.Store = session.NewStore(session.DefaultTTL, nil)
	}
	if opt.Logger == nil {
		opt.Logger = logrus.StandardLogger()
	}
	if opt.MaxUploadBytes <= 0 {
		opt.MaxUploadBytes = DefaultMaxUploadBytes
	}

	tmpl, err := template.ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	s := &Server{
		store: opt.Store,
		log:   opt.Logger,
		opt:   opt,
	}

	router := gin.New()
	router.Use(gin.Recovery(), s.requestLogger())
	router.SetHTMLTemplate(tmpl)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	app := router.Group("/", s.sessionMiddleware())
	app.GET("/", s.index)
	app.POST("/upload", s.upload)
	app.POST("/sample", s.sample)
	app.POST("/select", s.selectModel)
	app.POST("/submit", s.submit)
	app.GET("/chart", s.chart)
	app.GET("/api/session", s.snapshot)

	s.router = router
	return s, nil
}

// Handler returns the http handler of the server
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		latency := time.Since(start)
		status := c.Writer.Status()
		RecordHTTPRequest(c.Request.Method, path, latency, status)

		entry := s.log.WithFields(logrus.Fields{
			"method":    c.Request.Method,
			"path":      c.Request.URL.Path,
			"status":    status,
			"latency":   latency.String(),
			"client_ip": c.ClientIP(),
		})
		if len(c.Errors) > 0 {
			entry.WithField("errors", c.Errors.String()).Warn("request failed")
			return
		}
		entry.Debug("handled request")
	}
}

func (s *Server) sessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, _ := c.Cookie(SessionCookie)
		sess, created := s.store.GetOrCreate(id)
		if created {
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(SessionCookie, sess.ID(), 0, "/", "", s.opt.SecureCookie, true)
		}
		activeSessions.Set(float64(s.store.Len()))
		c.Set(sessionKey, sess)
		c.Next()
	}
}

func sessionFrom(c *gin.Context) *session.Session {
	return c.MustGet(sessionKey).(*session.Session)
}

type kindOption struct {
	Key      string
	Label    string
	Selected bool
}

type banner struct {
	Level   string
	Message string
}

type pageData struct {
	Session      session.Snapshot
	Kinds        []kindOption
	ShowConfig   bool
	Banner       *banner
	ChartVersion int64
}

// render writes the page for the session, showing err in the banner when given
func (s *Server) render(c *gin.Context, status int, err error) {
	snap := sessionFrom(c).Snapshot()

	kinds := forecastlab.Kinds()
	options := make([]kindOption, len(kinds))
	for i, k := range kinds {
		options[i] = kindOption{
			Key:      k.String(),
			Label:    k.Label(),
			Selected: k == snap.Kind,
		}
	}

	data := pageData{
		Session:      snap,
		Kinds:        options,
		ShowConfig:   snap.Kind.NeedsConfig(),
		ChartVersion: time.Now().UnixNano(),
	}
	switch {
	case snap.Warning != "":
		data.Banner = &banner{Level: "warning", Message: snap.Warning}
	case err != nil:
		data.Banner = &banner{Level: "error", Message: err.Error()}
	case snap.Error != "":
		data.Banner = &banner{Level: "error", Message: snap.Error}
	}

	if err != nil {
		_ = c.Error(err)
	}
	c.HTML(status, "index.html", data)
}

func (s *Server) index(c *gin.Context) {
	s.render(c, http.StatusOK, nil)
}

func (s *Server) upload(c *gin.Context) {
	if c.Request.ContentLength > s.opt.MaxUploadBytes {
		RecordUpload("upload", resultError)
		s.render(c, http.StatusRequestEntityTooLarge, ErrUploadTooLarge)
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.opt.MaxUploadBytes)

	header, err := c.FormFile("file")
	if err != nil {
		RecordUpload("upload", resultError)
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			s.render(c, http.StatusRequestEntityTooLarge, err)
			return
		}
		s.render(c, http.StatusBadRequest, err)
		return
	}

	f, err := header.Open()
	if err != nil {
		RecordUpload("upload", resultError)
		s.render(c, http.StatusBadRequest, err)
		return
	}
	defer f.Close()

	if err := sessionFrom(c).LoadUpload(header.Filename, f); err != nil {
		RecordUpload("upload", resultError)
		s.render(c, http.StatusBadRequest, err)
		return
	}
	RecordUpload("upload", resultSuccess)
	s.render(c, http.StatusOK, nil)
}

func (s *Server) sample(c *gin.Context) {
	if err := sessionFrom(c).LoadSample(); err != nil {
		RecordUpload("sample", resultError)
		s.render(c, http.StatusInternalServerError, err)
		return
	}
	RecordUpload("sample", resultSuccess)
	s.render(c, http.StatusOK, nil)
}

func (s *Server) selectModel(c *gin.Context) {
	raw := c.PostForm("model")
	if raw == "" {
		s.render(c, http.StatusBadRequest, ErrNoModelChosen)
		return
	}
	kind, err := forecastlab.ParseModelKind(raw)
	if err != nil {
		s.render(c, http.StatusBadRequest, err)
		return
	}
	sess := sessionFrom(c)
	if conf, ok := c.GetPostForm("conf"); ok {
		err = sess.Select(kind, conf)
	} else {
		err = sess.SelectKind(kind)
	}
	if err != nil {
		s.render(c, statusFor(err), err)
		return
	}
	s.render(c, http.StatusOK, nil)
}

func (s *Server) submit(c *gin.Context) {
	sess := sessionFrom(c)

	var (
		report *forecastlab.Report
		err    error
		kind   forecastlab.ModelKind
	)
	if raw := c.PostForm("model"); raw != "" {
		kind, err = forecastlab.ParseModelKind(raw)
		if err != nil {
			s.render(c, http.StatusBadRequest, err)
			return
		}
		if conf, ok := c.GetPostForm("conf"); ok {
			report, err = sess.SelectAndSubmit(kind, conf)
		} else {
			report, err = sess.SelectKindAndSubmit(kind)
		}
	} else {
		kind = sess.Snapshot().Kind
		report, err = sess.Submit()
	}

	switch {
	case errors.Is(err, forecastlab.ErrConfigIncomplete):
		RecordRun(kind.String(), resultIncomplete, 0, 0)
		s.render(c, http.StatusOK, nil)
	case err != nil:
		if kind.Valid() {
			RecordRun(kind.String(), resultError, 0, 0)
		}
		s.render(c, statusFor(err), err)
	default:
		RecordRun(kind.String(), resultSuccess, report.Elapsed, report.MAE)
		s.render(c, http.StatusOK, nil)
	}
}

func (s *Server) chart(c *gin.Context) {
	report := sessionFrom(c).Report()
	if report == nil {
		c.String(http.StatusNotFound, "no forecast has been rendered")
		return
	}
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Status(http.StatusOK)
	if err := report.Render(c.Writer); err != nil {
		_ = c.Error(err)
	}
}

func (s *Server) snapshot(c *gin.Context) {
	body, err := json.Marshal(sessionFrom(c).Snapshot())
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "unable to encode session"})
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", body)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrNoData), errors.Is(err, session.ErrNoModelSelected):
		return http.StatusConflict
	case errors.Is(err, forecastlab.ErrUnknownModelKind):
		return http.StatusBadRequest
	default:
		return http.StatusUnprocessableEntity
	}
}
