package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"workpilot/internal/domain"
)

type (
	WorkItem         = domain.WorkItem
	DailyReport      = domain.DailyReport
	WeeklyReport     = domain.WeeklyReport
	OKRReport        = domain.OKRReport
	TodoItem         = domain.TodoItem
	Project          = domain.Project
	ProjectSummary   = domain.ProjectSummary
	ProjectDetail    = domain.ProjectDetail
	Skill            = domain.Skill
	SkillsStats      = domain.SkillsStats
	SimilarityGroup  = domain.SimilarityGroup
	MergeResult      = domain.MergeResult
	CleanupResult    = domain.CleanupResult
	DeleteAllResult  = domain.DeleteAllResult
	ExtractionResult = domain.ExtractionResult

	NewWorkItem      = domain.NewWorkItem
	WorkItemUpdate   = domain.WorkItemUpdate
	ProjectUpdate    = domain.ProjectUpdate
	WeekRange        = domain.WeekRange
	ParsedLog        = domain.ParsedLog
	WeeklyResult     = domain.WeeklyResult
	OKRResult        = domain.OKRResult
	WeeklyValidation = domain.WeeklyValidation
	OKRValidation    = domain.OKRValidation
)

type Health struct {
	Status        string `json:"status"`
	LLMConfigured bool   `json:"llm_configured"`
	MaxInputChars int    `json:"max_input_chars"`
}

func (c *Client) Health(ctx context.Context) (Health, error) {
	var out Health
	err := c.do(ctx, http.MethodGet, "/api/health", nil, nil, &out)
	return out, err
}

func (c *Client) WeekRange(ctx context.Context) (WeekRange, error) {
	var out WeekRange
	err := c.do(ctx, http.MethodGet, "/api/week-range", nil, nil, &out)
	return out, err
}

func (c *Client) Parse(ctx context.Context, content string) (ParsedLog, error) {
	return getData[ParsedLog](ctx, c, http.MethodPost, "/api/parse", nil, map[string]string{"content": content})
}

func (c *Client) GenerateWeeklyReport(ctx context.Context, content string, useMock bool) (WeeklyResult, error) {
	var out WeeklyResult
	err := c.do(ctx, http.MethodPost, "/api/generate/weekly-report", nil, map[string]any{"content": content, "use_mock": useMock}, &out)
	return out, err
}

func (c *Client) GenerateOKR(ctx context.Context, content, nextQuarter string, useMock bool) (OKRResult, error) {
	var out OKRResult
	body := map[string]any{"content": content, "use_mock": useMock}
	if nextQuarter != "" {
		body["next_quarter"] = nextQuarter
	}
	err := c.do(ctx, http.MethodPost, "/api/generate/okr", nil, body, &out)
	return out, err
}

func (c *Client) ValidateWeeklyReport(ctx context.Context, text string) (WeeklyValidation, error) {
	var out struct {
		Validation WeeklyValidation `json:"validation"`
	}
	err := c.do(ctx, http.MethodPost, "/api/validate/weekly-report", nil, map[string]string{"report": text}, &out)
	return out.Validation, err
}

func (c *Client) ValidateOKR(ctx context.Context, text string) (OKRValidation, error) {
	var out struct {
		Validation OKRValidation `json:"validation"`
	}
	err := c.do(ctx, http.MethodPost, "/api/validate/okr", nil, map[string]string{"okr": text}, &out)
	return out.Validation, err
}

// Daily reports.

func (c *Client) SaveDailyReport(ctx context.Context, entryDate, content string) error {
	return c.do(ctx, http.MethodPost, "/api/daily-reports", nil, map[string]string{"entry_date": entryDate, "content": content}, nil)
}

func (c *Client) DailyReport(ctx context.Context, entryDate string) (DailyReport, error) {
	return getData[DailyReport](ctx, c, http.MethodGet, "/api/daily-reports/"+url.PathEscape(entryDate), nil, nil)
}

func (c *Client) DeleteDailyReport(ctx context.Context, entryDate string) error {
	return c.do(ctx, http.MethodDelete, "/api/daily-reports/"+url.PathEscape(entryDate), nil, nil, nil)
}

// Weekly reports.

func (c *Client) SaveWeeklyReport(ctx context.Context, startDate, endDate, content string) error {
	body := map[string]string{"start_date": startDate, "end_date": endDate, "content": content}
	return c.do(ctx, http.MethodPost, "/api/weekly-reports", nil, body, nil)
}

func (c *Client) WeeklyReport(ctx context.Context, startDate, endDate string) (WeeklyReport, error) {
	return getData[WeeklyReport](ctx, c, http.MethodGet, "/api/weekly-reports/query", dateRange(startDate, endDate), nil)
}

func (c *Client) LatestWeeklyReport(ctx context.Context) (WeeklyReport, error) {
	return getData[WeeklyReport](ctx, c, http.MethodGet, "/api/weekly-reports/latest", nil, nil)
}

// WeeklyReports lists reports overlapping [start, end]; empty bounds are open.
func (c *Client) WeeklyReports(ctx context.Context, start, end string) ([]WeeklyReport, error) {
	q := url.Values{}
	if start != "" {
		q.Set("start_date", start)
	}
	if end != "" {
		q.Set("end_date", end)
	}
	return getData[[]WeeklyReport](ctx, c, http.MethodGet, "/api/weekly-reports/search", q, nil)
}

func (c *Client) DeleteWeeklyReport(ctx context.Context, startDate, endDate string) error {
	return c.do(ctx, http.MethodDelete, "/api/weekly-reports", dateRange(startDate, endDate), nil, nil)
}

// OKR reports.

func (c *Client) SaveOKRReport(ctx context.Context, creationDate, content string) error {
	body := map[string]string{"creation_date": creationDate, "content": content}
	return c.do(ctx, http.MethodPost, "/api/okr-reports", nil, body, nil)
}

func (c *Client) OKRReport(ctx context.Context, creationDate string) (OKRReport, error) {
	return getData[OKRReport](ctx, c, http.MethodGet, "/api/okr-reports/"+url.PathEscape(creationDate), nil, nil)
}

func (c *Client) LatestOKRReport(ctx context.Context) (OKRReport, error) {
	return getData[OKRReport](ctx, c, http.MethodGet, "/api/okr-reports/latest", nil, nil)
}

func (c *Client) OKRReports(ctx context.Context) ([]OKRReport, error) {
	return getData[[]OKRReport](ctx, c, http.MethodGet, "/api/okr-reports", nil, nil)
}

func (c *Client) DeleteOKRReport(ctx context.Context, creationDate string) error {
	return c.do(ctx, http.MethodDelete, "/api/okr-reports/"+url.PathEscape(creationDate), nil, nil, nil)
}

// Todo items.

func (c *Client) TodoItems(ctx context.Context) ([]TodoItem, error) {
	return getData[[]TodoItem](ctx, c, http.MethodGet, "/api/todo-items", nil, nil)
}

func (c *Client) CreateTodoItem(ctx context.Context, content string) (TodoItem, error) {
	if strings.TrimSpace(content) == "" {
		return TodoItem{}, Validationf("todo content is required")
	}
	return getData[TodoItem](ctx, c, http.MethodPost, "/api/todo-items", nil, map[string]string{"content": content})
}

func (c *Client) UpdateTodoItem(ctx context.Context, id int64, content *string, completed *bool) (TodoItem, error) {
	body := map[string]any{}
	if content != nil {
		body["content"] = *content
	}
	if completed != nil {
		body["completed"] = *completed
	}
	return getData[TodoItem](ctx, c, http.MethodPut, fmt.Sprintf("/api/todo-items/%d", id), nil, body)
}

func (c *Client) DeleteTodoItem(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/todo-items/%d", id), nil, nil, nil)
}

// Projects.

func (c *Client) Projects(ctx context.Context, status string) ([]Project, error) {
	var q url.Values
	if status != "" {
		q = url.Values{"status": {status}}
	}
	return getData[[]Project](ctx, c, http.MethodGet, "/api/projects", q, nil)
}

func (c *Client) ProjectsSummary(ctx context.Context) ([]ProjectSummary, error) {
	return getData[[]ProjectSummary](ctx, c, http.MethodGet, "/api/projects/summary", nil, nil)
}

func (c *Client) Project(ctx context.Context, id int64) (ProjectDetail, error) {
	return getData[ProjectDetail](ctx, c, http.MethodGet, fmt.Sprintf("/api/projects/%d", id), nil, nil)
}

func (c *Client) CreateProject(ctx context.Context, name, description string) (Project, error) {
	if !domain.IsValidProjectName(name) {
		return Project{}, Validationf("project name %q is not usable", name)
	}
	body := map[string]string{"name": name, "description": description}
	return getData[Project](ctx, c, http.MethodPost, "/api/projects", nil, body)
}

func (c *Client) UpdateProject(ctx context.Context, id int64, u ProjectUpdate) (Project, error) {
	return getData[Project](ctx, c, http.MethodPut, fmt.Sprintf("/api/projects/%d", id), nil, u)
}

// GenerateProjectStar asks the server to write the project's STAR summary and returns it.
func (c *Client) GenerateProjectStar(ctx context.Context, id int64) (string, error) {
	var out struct {
		Summary string `json:"summary"`
	}
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/projects/%d/star", id), nil, nil, &out)
	return out.Summary, err
}

// Work items.

func (c *Client) WorkItemsByRange(ctx context.Context, start, end string) ([]WorkItem, error) {
	return getData[[]WorkItem](ctx, c, http.MethodGet, "/api/work-items/range", dateRange(start, end), nil)
}

func (c *Client) CreateWorkItem(ctx context.Context, item NewWorkItem) (WorkItem, error) {
	return getData[WorkItem](ctx, c, http.MethodPost, "/api/work-items", nil, item)
}

func (c *Client) UpdateWorkItem(ctx context.Context, id int64, u WorkItemUpdate) (WorkItem, error) {
	return getData[WorkItem](ctx, c, http.MethodPut, fmt.Sprintf("/api/work-items/%d", id), nil, u)
}

func (c *Client) DeleteWorkItem(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/work-items/%d", id), nil, nil, nil)
}

// ExtractRange runs extraction for every daily report between start and end.
func (c *Client) ExtractRange(ctx context.Context, start, end string, autoSave bool) (ExtractionResult, error) {
	var out ExtractionResult
	body := map[string]any{"start_date": start, "end_date": end, "auto_save": autoSave}
	err := c.do(ctx, http.MethodPost, "/api/extract-work-items/range", nil, body, &out)
	return out, err
}

// Skills.

func (c *Client) Skills(ctx context.Context) ([]Skill, error) {
	return getData[[]Skill](ctx, c, http.MethodGet, "/api/skills", nil, nil)
}

func (c *Client) SkillsStats(ctx context.Context) (SkillsStats, error) {
	return getData[SkillsStats](ctx, c, http.MethodGet, "/api/skills/stats", nil, nil)
}

func (c *Client) RecategorizeSkills(ctx context.Context) (domain.RecategorizeResult, error) {
	var out domain.RecategorizeResult
	err := c.do(ctx, http.MethodPost, "/api/skills/recategorize", nil, nil, &out)
	return out, err
}
