package web

import (
	"database/sql"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"workpilot/internal/config"
	"workpilot/internal/domain"
	"workpilot/internal/report"
	"workpilot/internal/storage/sqlite"
)

var errBadRequest = errors.New("bad request")

type Server struct {
	db     *sql.DB
	gen    *report.Generator
	cfg    config.Config
	router *gin.Engine

	now func() time.Time
}

func NewServer(db *sql.DB, gen *report.Generator, cfg config.Config) *Server {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	router := gin.New()
	router.Use(gin.Recovery(), requestMetrics())
	if gin.Mode() == gin.DebugMode {
		router.Use(gin.Logger())
	}
	router.Use(cors.New(cors.Config{
		AllowMethods:    []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:    []string{"Content-Type", "Accept"},
		AllowOriginFunc: cfg.AllowOrigin,
		MaxAge:          12 * time.Hour,
	}))

	s := &Server{db: db, gen: gen, cfg: cfg, router: router, now: time.Now}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.router
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.NoRoute(func(c *gin.Context) { fail(c, http.StatusNotFound, "not found") })

	api := r.Group("/api")
	{
		api.GET("/health", s.handleHealth)
		api.GET("/week-range", s.handleWeekRange)
		api.POST("/parse", s.handleParse)
		api.POST("/generate/weekly-report", s.handleGenerateWeeklyReport)
		api.POST("/generate/okr", s.handleGenerateOKR)
		api.POST("/validate/weekly-report", s.handleValidateWeeklyReport)
		api.POST("/validate/okr", s.handleValidateOKR)

		api.POST("/daily-reports", s.handleSaveDailyReport)
		api.GET("/daily-reports/dates", s.handleDailyReportDates)
		api.GET("/daily-reports/range", s.handleDailyReportsByRange)
		api.GET("/daily-reports/:date", s.handleGetDailyReport)
		api.DELETE("/daily-reports/:date", s.handleDeleteDailyReport)

		api.POST("/weekly-reports", s.handleSaveWeeklyReport)
		api.GET("/weekly-reports", s.handleSearchWeeklyReports)
		api.GET("/weekly-reports/search", s.handleSearchWeeklyReports)
		api.GET("/weekly-reports/query", s.handleGetWeeklyReport)
		api.GET("/weekly-reports/latest", s.handleLatestWeeklyReport)
		api.DELETE("/weekly-reports", s.handleDeleteWeeklyReport)

		api.POST("/okr-reports", s.handleSaveOKRReport)
		api.GET("/okr-reports", s.handleListOKRReports)
		api.GET("/okr-reports/latest", s.handleLatestOKRReport)
		api.GET("/okr-reports/:date", s.handleGetOKRReport)
		api.DELETE("/okr-reports/:date", s.handleDeleteOKRReport)

		api.GET("/todo-items", s.handleListTodoItems)
		api.POST("/todo-items", s.handleCreateTodoItem)
		api.PUT("/todo-items/:id", s.handleUpdateTodoItem)
		api.DELETE("/todo-items/:id", s.handleDeleteTodoItem)

		api.GET("/projects", s.handleListProjects)
		api.POST("/projects", s.handleCreateProject)
		api.GET("/projects/summary", s.handleProjectsSummary)
		api.GET("/projects/similar", s.handleSimilarProjects)
		api.POST("/projects/merge", s.handleMergeProjects)
		api.POST("/projects/cleanup/null", s.handleCleanupNullProjects)
		api.DELETE("/projects/all", s.handleDeleteAllProjects)
		api.GET("/projects/:id", s.handleGetProject)
		api.PUT("/projects/:id", s.handleUpdateProject)
		api.DELETE("/projects/:id", s.handleDeleteProject)
		api.POST("/projects/:id/star", s.handleGenerateStar)

		api.GET("/work-items", s.handleListWorkItems)
		api.POST("/work-items", s.handleCreateWorkItem)
		api.GET("/work-items/range", s.handleWorkItemsByRange)
		api.PUT("/work-items/:id", s.handleUpdateWorkItem)
		api.DELETE("/work-items/:id", s.handleDeleteWorkItem)

		api.POST("/extract-work-items", s.handleExtractWorkItems)
		api.POST("/extract-work-items/range", s.handleExtractRange)

		api.GET("/skills", s.handleListSkills)
		api.GET("/skills/stats", s.handleSkillsStats)
		api.POST("/skills/recategorize", s.handleRecategorizeSkills)
		api.GET("/skills/:name/work-items", s.handleWorkItemsBySkill)
	}
}

// Handler exposes the router, e.g. for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) today() time.Time {
	return s.now().In(s.cfg.Location)
}

func ok(c *gin.Context, fields gin.H) {
	body := gin.H{"success": true}
	for k, v := range fields {
		body[k] = v
	}
	c.JSON(http.StatusOK, body)
}

func okData(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data})
}

func fail(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"success": false, "error": msg})
}

// respondErr maps store and generator errors onto the envelope.
func respondErr(c *gin.Context, op string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, errBadRequest), errors.Is(err, report.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, sqlite.ErrNotFound):
		status = http.StatusNotFound
	}
	if status == http.StatusInternalServerError {
		log.Printf("web %s failed path=%s err=%v", op, c.Request.URL.Path, err)
	}
	fail(c, status, err.Error())
}

func badRequest(c *gin.Context, msg string) {
	fail(c, http.StatusBadRequest, msg)
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "invalid id: "+c.Param("id"))
		return 0, false
	}
	return id, true
}

func normalizeDate(c *gin.Context, field, value string) (string, bool) {
	d, err := domain.NormalizeDate(strings.TrimSpace(value))
	if err != nil {
		badRequest(c, field+": "+err.Error())
		return "", false
	}
	return d, true
}

// queryRange reads start_date/end_date and checks start <= end.
func queryRange(c *gin.Context) (string, string, bool) {
	start, okStart := normalizeDate(c, "start_date", c.Query("start_date"))
	if !okStart {
		return "", "", false
	}
	end, okEnd := normalizeDate(c, "end_date", c.Query("end_date"))
	if !okEnd {
		return "", "", false
	}
	if start > end {
		badRequest(c, "start_date must not be after end_date")
		return "", "", false
	}
	return start, end, true
}

func (s *Server) checkContent(c *gin.Context, field, content string) bool {
	if strings.TrimSpace(content) == "" {
		badRequest(c, field+" is required")
		return false
	}
	if n := utf8.RuneCountInString(content); n > s.cfg.MaxInputChars && s.cfg.MaxInputChars > 0 {
		badRequest(c, "input exceeds maximum length ("+strconv.Itoa(s.cfg.MaxInputChars)+" characters)")
		return false
	}
	return true
}
