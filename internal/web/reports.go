package web

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"workpilot/internal/domain"
	"workpilot/internal/parser"
	"workpilot/internal/report"
	"workpilot/internal/storage/sqlite"
)

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":          "healthy",
		"llm_configured":  s.cfg.LLMConfigured(),
		"max_input_chars": s.cfg.MaxInputChars,
	})
}

func (s *Server) handleWeekRange(c *gin.Context) {
	monday, friday := domain.WorkWeekAt(s.today())
	c.JSON(http.StatusOK, gin.H{
		"monday": monday.Format(domain.DateLayout),
		"friday": friday.Format(domain.DateLayout),
	})
}

type contentRequest struct {
	Content     string `json:"content"`
	NextQuarter string `json:"next_quarter"`
	UseMock     bool   `json:"use_mock"`
}

func (s *Server) handleParse(c *gin.Context) {
	var req contentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "content is required")
		return
	}
	if !s.checkContent(c, "content", req.Content) {
		return
	}
	okData(c, parser.DefaultKeywords.ParseAndCategorize(req.Content, s.today()))
}

func (s *Server) handleGenerateWeeklyReport(c *gin.Context) {
	var req contentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "content is required")
		return
	}
	res, err := s.gen.GenerateWeeklyReport(c.Request.Context(), req.Content, req.UseMock || !s.cfg.LLMConfigured())
	if err != nil {
		respondErr(c, "generate weekly report", err)
		return
	}
	ok(c, gin.H{"report": res.Report, "parsed_data": res.ParsedData, "validation": res.Validation})
}

func (s *Server) handleGenerateOKR(c *gin.Context) {
	var req contentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "content is required")
		return
	}
	res, err := s.gen.GenerateOKR(c.Request.Context(), req.Content, req.NextQuarter, req.UseMock || !s.cfg.LLMConfigured())
	if err != nil {
		respondErr(c, "generate okr", err)
		return
	}
	ok(c, gin.H{"okr": res.OKR, "next_quarter": res.NextQuarter, "validation": res.Validation})
}

func (s *Server) handleValidateWeeklyReport(c *gin.Context) {
	var req struct {
		Report *string `json:"report"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Report == nil {
		badRequest(c, "report is required")
		return
	}
	ok(c, gin.H{"validation": report.ValidateWeeklyReport(*req.Report)})
}

func (s *Server) handleValidateOKR(c *gin.Context) {
	var req struct {
		OKR *string `json:"okr"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.OKR == nil {
		badRequest(c, "okr is required")
		return
	}
	ok(c, gin.H{"validation": report.ValidateOKR(*req.OKR)})
}

// Daily reports.

func (s *Server) handleSaveDailyReport(c *gin.Context) {
	var req domain.DailyReport
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "entry_date and content are required")
		return
	}
	date, valid := normalizeDate(c, "entry_date", req.EntryDate)
	if !valid {
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		badRequest(c, "content is required")
		return
	}
	if err := sqlite.SaveDailyReport(s.db, date, req.Content); err != nil {
		respondErr(c, "save daily report", err)
		return
	}
	ok(c, gin.H{"message": "daily report saved"})
}

func (s *Server) handleGetDailyReport(c *gin.Context) {
	date, valid := normalizeDate(c, "entry_date", c.Param("date"))
	if !valid {
		return
	}
	r, err := sqlite.GetDailyReport(s.db, date)
	if err != nil {
		respondErr(c, "get daily report", err)
		return
	}
	okData(c, r)
}

func (s *Server) handleDailyReportsByRange(c *gin.Context) {
	start, end, valid := queryRange(c)
	if !valid {
		return
	}
	reports, err := sqlite.GetDailyReportsByRange(s.db, start, end)
	if err != nil {
		respondErr(c, "daily reports by range", err)
		return
	}
	okData(c, reports)
}

func (s *Server) handleDailyReportDates(c *gin.Context) {
	dates, err := sqlite.GetDailyReportDates(s.db)
	if err != nil {
		respondErr(c, "daily report dates", err)
		return
	}
	okData(c, dates)
}

func (s *Server) handleDeleteDailyReport(c *gin.Context) {
	date, valid := normalizeDate(c, "entry_date", c.Param("date"))
	if !valid {
		return
	}
	if err := sqlite.DeleteDailyReport(s.db, date); err != nil {
		respondErr(c, "delete daily report", err)
		return
	}
	ok(c, gin.H{"message": "daily report deleted"})
}

// Weekly reports.

func (s *Server) handleSaveWeeklyReport(c *gin.Context) {
	var req domain.WeeklyReport
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "start_date, end_date and content are required")
		return
	}
	start, valid := normalizeDate(c, "start_date", req.StartDate)
	if !valid {
		return
	}
	end, valid := normalizeDate(c, "end_date", req.EndDate)
	if !valid {
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		badRequest(c, "content is required")
		return
	}
	if err := sqlite.SaveWeeklyReport(s.db, start, end, req.Content); err != nil {
		respondErr(c, "save weekly report", err)
		return
	}
	ok(c, gin.H{"message": "weekly report saved"})
}

func (s *Server) handleGetWeeklyReport(c *gin.Context) {
	start, end, valid := queryRange(c)
	if !valid {
		return
	}
	r, err := sqlite.GetWeeklyReport(s.db, start, end)
	if err != nil {
		respondErr(c, "get weekly report", err)
		return
	}
	okData(c, r)
}

func (s *Server) handleLatestWeeklyReport(c *gin.Context) {
	r, err := sqlite.GetLatestWeeklyReport(s.db)
	if err != nil {
		respondErr(c, "latest weekly report", err)
		return
	}
	okData(c, r)
}

// handleSearchWeeklyReports lists reports overlapping the optional start_date/end_date bounds.
func (s *Server) handleSearchWeeklyReports(c *gin.Context) {
	var start, end string
	if v := c.Query("start_date"); v != "" {
		d, valid := normalizeDate(c, "start_date", v)
		if !valid {
			return
		}
		start = d
	}
	if v := c.Query("end_date"); v != "" {
		d, valid := normalizeDate(c, "end_date", v)
		if !valid {
			return
		}
		end = d
	}
	reports, err := sqlite.SearchWeeklyReports(s.db, start, end)
	if err != nil {
		respondErr(c, "search weekly reports", err)
		return
	}
	okData(c, reports)
}

func (s *Server) handleDeleteWeeklyReport(c *gin.Context) {
	start, end, valid := queryRange(c)
	if !valid {
		return
	}
	if err := sqlite.DeleteWeeklyReport(s.db, start, end); err != nil {
		respondErr(c, "delete weekly report", err)
		return
	}
	ok(c, gin.H{"message": "weekly report deleted"})
}

// OKR reports.

func (s *Server) handleSaveOKRReport(c *gin.Context) {
	var req domain.OKRReport
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "creation_date and content are required")
		return
	}
	date, valid := normalizeDate(c, "creation_date", req.CreationDate)
	if !valid {
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		badRequest(c, "content is required")
		return
	}
	if err := sqlite.SaveOKRReport(s.db, date, req.Content); err != nil {
		respondErr(c, "save okr report", err)
		return
	}
	ok(c, gin.H{"message": "OKR saved"})
}

func (s *Server) handleListOKRReports(c *gin.Context) {
	reports, err := sqlite.GetAllOKRReports(s.db)
	if err != nil {
		respondErr(c, "list okr reports", err)
		return
	}
	okData(c, reports)
}

func (s *Server) handleLatestOKRReport(c *gin.Context) {
	r, err := sqlite.GetLatestOKRReport(s.db)
	if err != nil {
		respondErr(c, "latest okr report", err)
		return
	}
	okData(c, r)
}

func (s *Server) handleGetOKRReport(c *gin.Context) {
	date, valid := normalizeDate(c, "creation_date", c.Param("date"))
	if !valid {
		return
	}
	r, err := sqlite.GetOKRReport(s.db, date)
	if err != nil {
		respondErr(c, "get okr report", err)
		return
	}
	okData(c, r)
}

func (s *Server) handleDeleteOKRReport(c *gin.Context) {
	date, valid := normalizeDate(c, "creation_date", c.Param("date"))
	if !valid {
		return
	}
	if err := sqlite.DeleteOKRReport(s.db, date); err != nil {
		respondErr(c, "delete okr report", err)
		return
	}
	ok(c, gin.H{"message": "OKR deleted"})
}

// Todo items.

func (s *Server) handleListTodoItems(c *gin.Context) {
	items, err := sqlite.GetTodoItems(s.db)
	if err != nil {
		respondErr(c, "list todo items", err)
		return
	}
	okData(c, items)
}

func (s *Server) handleCreateTodoItem(c *gin.Context) {
	var req struct {
		Content string `json:"content"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Content) == "" {
		badRequest(c, "content is required")
		return
	}
	item, err := sqlite.CreateTodoItem(s.db, strings.TrimSpace(req.Content))
	if err != nil {
		respondErr(c, "create todo item", err)
		return
	}
	okData(c, item)
}

func (s *Server) handleUpdateTodoItem(c *gin.Context) {
	id, valid := pathID(c)
	if !valid {
		return
	}
	var req struct {
		Content   *string `json:"content"`
		Completed *bool   `json:"completed"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid body: "+err.Error())
		return
	}
	item, err := sqlite.UpdateTodoItem(s.db, id, req.Content, req.Completed)
	if err != nil {
		respondErr(c, "update todo item", err)
		return
	}
	okData(c, item)
}

func (s *Server) handleDeleteTodoItem(c *gin.Context) {
	id, valid := pathID(c)
	if !valid {
		return
	}
	if err := sqlite.DeleteTodoItem(s.db, id); err != nil {
		respondErr(c, "delete todo item", err)
		return
	}
	ok(c, gin.H{"message": "todo item deleted"})
}
