package report

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"workpilot/internal/config"
	"workpilot/internal/domain"
	"workpilot/internal/integrations/llm"
	"workpilot/internal/parser"
	"workpilot/internal/storage/sqlite"
)

// ErrInvalidInput marks caller mistakes: missing or oversized content, bad dates.
var ErrInvalidInput = errors.New("invalid input")

const extractionConcurrency = 4

type Generator struct {
	db            *sql.DB
	llm           llm.Client
	keywords      parser.Keywords
	maxInputChars int
	loc           *time.Location

	now func() time.Time
}

func NewGenerator(db *sql.DB, client llm.Client, cfg config.Config) *Generator {
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}
	return &Generator{
		db:            db,
		llm:           client,
		keywords:      parser.DefaultKeywords,
		maxInputChars: cfg.MaxInputChars,
		loc:           loc,
		now:           time.Now,
	}
}

func (g *Generator) today() time.Time {
	return g.now().In(g.loc)
}

func (g *Generator) client(useMock bool) llm.Client {
	if useMock {
		return llm.Mock{}
	}
	return g.llm
}

func (g *Generator) checkInput(field, content string) error {
	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("%w: %s is required", ErrInvalidInput, field)
	}
	if g.maxInputChars > 0 && utf8.RuneCountInString(content) > g.maxInputChars {
		return fmt.Errorf("%w: input exceeds maximum length (%d characters)", ErrInvalidInput, g.maxInputChars)
	}
	return nil
}

// GenerateWeeklyReport drafts the report for the current work week from raw daily logs.
func (g *Generator) GenerateWeeklyReport(ctx context.Context, content string, useMock bool) (domain.WeeklyResult, error) {
	if err := g.checkInput("content", content); err != nil {
		return domain.WeeklyResult{}, err
	}
	parsed := g.keywords.ParseAndCategorize(content, g.today())

	client := g.client(useMock)
	text, _, err := client.Complete(ctx, llm.WeeklyReportSystemPrompt(),
		llm.WeeklyReportUserPrompt(parsed.WeekRange.Monday, parsed.WeekRange.Friday, content))
	if err != nil {
		log.Printf("report weekly generation failed provider=%s err=%v", client.Provider(), err)
		return domain.WeeklyResult{}, fmt.Errorf("generate weekly report: %w", err)
	}
	text = CleanWeeklyReportFormat(llm.CleanText(text))
	validation := ValidateWeeklyReport(text)
	log.Printf("report weekly generated provider=%s chars=%d blocks=%d valid=%t", client.Provider(), utf8.RuneCountInString(text), len(parsed.Blocks), validation.Valid)

	return domain.WeeklyResult{Report: text, ParsedData: parsed, Validation: validation}, nil
}

// GenerateOKR drafts next quarter's OKR. An empty nextQuarter means the calendar quarter after today.
func (g *Generator) GenerateOKR(ctx context.Context, content, nextQuarter string, useMock bool) (domain.OKRResult, error) {
	if err := g.checkInput("content", content); err != nil {
		return domain.OKRResult{}, err
	}
	nextQuarter = strings.TrimSpace(nextQuarter)
	if nextQuarter == "" {
		nextQuarter = domain.NextQuarterLabel(g.today())
	}

	client := g.client(useMock)
	text, _, err := client.Complete(ctx, llm.OKRSystemPrompt(), llm.OKRUserPrompt(content, nextQuarter))
	if err != nil {
		log.Printf("report okr generation failed provider=%s err=%v", client.Provider(), err)
		return domain.OKRResult{}, fmt.Errorf("generate OKR: %w", err)
	}
	text = llm.CleanText(text)
	validation := ValidateOKR(text)
	log.Printf("report okr generated provider=%s quarter=%s objectives=%d valid=%t", client.Provider(), nextQuarter, validation.ObjectiveCount, validation.Valid)

	return domain.OKRResult{OKR: text, NextQuarter: nextQuarter, Validation: validation}, nil
}

func (g *Generator) normalizeLogDate(logDate string) (string, error) {
	if strings.TrimSpace(logDate) == "" {
		return g.today().Format(domain.DateLayout), nil
	}
	d, err := domain.NormalizeDate(strings.TrimSpace(logDate))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return d, nil
}

func (g *Generator) extract(ctx context.Context, logContent, logDate string) (domain.ExtractionResult, error) {
	text, _, err := g.llm.Complete(ctx, llm.ExtractionSystemPrompt(), llm.ExtractionUserPrompt(logDate, logContent))
	if err != nil {
		return domain.ExtractionResult{}, fmt.Errorf("extract work items for %s: %w", logDate, err)
	}
	res, err := llm.ParseExtraction(text)
	if err != nil {
		return domain.ExtractionResult{}, fmt.Errorf("extract work items for %s: %w", logDate, err)
	}
	return res, nil
}

// ExtractWorkItems turns one day's log into structured work items. With autoSave the
// items are stored, their projects found or created by name, and their skills counted.
func (g *Generator) ExtractWorkItems(ctx context.Context, logContent, logDate string, autoSave bool) (domain.ExtractionResult, error) {
	if err := g.checkInput("log_content", logContent); err != nil {
		return domain.ExtractionResult{}, err
	}
	date, err := g.normalizeLogDate(logDate)
	if err != nil {
		return domain.ExtractionResult{}, err
	}

	res, err := g.extract(ctx, logContent, date)
	if err != nil {
		log.Printf("report extraction failed date=%s err=%v", date, err)
		return domain.ExtractionResult{}, err
	}
	log.Printf("report extraction date=%s items=%d quality=%s auto_save=%t", date, len(res.WorkItems), res.ExtractionQuality, autoSave)

	if autoSave {
		saved, err := g.saveExtracted(date, res.WorkItems)
		if err != nil {
			return res, err
		}
		res.SavedItems = saved
	}
	return res, nil
}

type datedItem struct {
	date string
	item domain.ExtractedWorkItem
}

func (g *Generator) saveExtracted(date string, items []domain.ExtractedWorkItem) ([]domain.WorkItem, error) {
	dated := make([]datedItem, len(items))
	for i, item := range items {
		dated[i] = datedItem{date: date, item: item}
	}
	return g.saveDated(dated)
}

func (g *Generator) saveDated(items []datedItem) ([]domain.WorkItem, error) {
	saved := []domain.WorkItem{}
	for _, d := range items {
		var projectID *int64
		if domain.IsValidProjectName(d.item.Project) {
			p, err := sqlite.FindOrCreateProject(g.db, d.item.Project)
			if err != nil {
				return saved, fmt.Errorf("save extracted item: %w", err)
			}
			projectID = &p.ID
		}
		w, err := sqlite.CreateWorkItem(g.db, domain.NewWorkItem{
			RawLogDate:       d.date,
			ProjectID:        projectID,
			Action:           d.item.Action,
			Problem:          d.item.Problem,
			ResultMetric:     d.item.ResultMetric,
			Skills:           d.item.Skills,
			ExtractionStatus: domain.ExtractionExtracted,
		})
		if err != nil {
			return saved, fmt.Errorf("save extracted item: %w", err)
		}
		for _, skill := range d.item.Skills {
			if _, _, err := sqlite.UpsertSkill(g.db, skill, ""); err != nil {
				return saved, err
			}
		}
		saved = append(saved, w)
	}
	return saved, nil
}

// ExtractRange runs extraction for every stored daily report between start and end.
// Days are extracted in parallel and merged in date order; the overall quality is
// the worst of the days.
func (g *Generator) ExtractRange(ctx context.Context, start, end string, autoSave bool) (domain.ExtractionResult, error) {
	startDate, err := domain.NormalizeDate(start)
	if err != nil {
		return domain.ExtractionResult{}, fmt.Errorf("%w: start_date: %v", ErrInvalidInput, err)
	}
	endDate, err := domain.NormalizeDate(end)
	if err != nil {
		return domain.ExtractionResult{}, fmt.Errorf("%w: end_date: %v", ErrInvalidInput, err)
	}
	if startDate > endDate {
		return domain.ExtractionResult{}, fmt.Errorf("%w: start_date is after end_date", ErrInvalidInput)
	}

	reports, err := sqlite.GetDailyReportsByRange(g.db, startDate, endDate)
	if err != nil {
		return domain.ExtractionResult{}, err
	}
	var days []domain.DailyReport
	for _, r := range reports {
		if strings.TrimSpace(r.Content) != "" {
			days = append(days, r)
		}
	}
	if len(days) == 0 {
		return domain.ExtractionResult{
			WorkItems:         []domain.ExtractedWorkItem{},
			ExtractionQuality: domain.QualityInsufficient,
			Notes:             "no daily reports in range",
		}, nil
	}

	results := make([]domain.ExtractionResult, len(days))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(extractionConcurrency)
	for i, day := range days {
		i, day := i, day
		eg.Go(func() error {
			res, err := g.extract(egCtx, day.Content, day.EntryDate)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		log.Printf("report range extraction failed start=%s end=%s err=%v", startDate, endDate, err)
		return domain.ExtractionResult{}, err
	}

	merged := domain.ExtractionResult{WorkItems: []domain.ExtractedWorkItem{}, ExtractionQuality: domain.QualityGood}
	var dated []datedItem
	var notes []string
	for i, res := range results {
		date := days[i].EntryDate
		merged.WorkItems = append(merged.WorkItems, res.WorkItems...)
		merged.ExtractionQuality = domain.WorstQuality(merged.ExtractionQuality, res.ExtractionQuality)
		if res.Notes != "" {
			notes = append(notes, date+": "+res.Notes)
		}
		for _, item := range res.WorkItems {
			dated = append(dated, datedItem{date: date, item: item})
		}
	}
	merged.Notes = strings.Join(notes, "\n")
	log.Printf("report range extraction start=%s end=%s days=%d items=%d quality=%s", startDate, endDate, len(days), len(merged.WorkItems), merged.ExtractionQuality)

	if autoSave {
		saved, err := g.saveDated(dated)
		if err != nil {
			return merged, err
		}
		merged.SavedItems = saved
	}
	return merged, nil
}

// GenerateSTARSummary writes a STAR resume bullet for the project and stores it.
func (g *Generator) GenerateSTARSummary(ctx context.Context, projectID int64) (string, error) {
	detail, err := sqlite.GetProjectDetail(g.db, projectID)
	if err != nil {
		return "", err
	}
	if len(detail.WorkItems) == 0 {
		return "", fmt.Errorf("%w: project %q has no work items", ErrInvalidInput, detail.Name)
	}

	text, _, err := g.llm.Complete(ctx, llm.STARSystemPrompt(), llm.STARUserPrompt(detail.Project, detail.WorkItems))
	if err != nil {
		return "", fmt.Errorf("generate STAR summary: %w", err)
	}
	summary := llm.CleanText(text)
	if _, err := sqlite.SetStarSummary(g.db, projectID, summary); err != nil {
		return "", err
	}
	log.Printf("report star summary project=%d items=%d chars=%d", projectID, len(detail.WorkItems), utf8.RuneCountInString(summary))
	return summary, nil
}
