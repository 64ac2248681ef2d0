package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"workpilot/internal/domain"
)

type Format string

const (
	CSV      Format = "csv"
	Markdown Format = "md"
	Text     Format = "txt"
)

const recordSeparator = "\n\n---\n\n"

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case CSV, Markdown, Text:
		return f, nil
	case "markdown":
		return Markdown, nil
	case "text":
		return Text, nil
	}
	return "", fmt.Errorf("unknown export format %q (want csv, md or txt)", s)
}

var weekdayNames = [...]string{"星期日", "星期一", "星期二", "星期三", "星期四", "星期五", "星期六"}

// longDate renders 2025-01-02 as "2025年1月2日"; unparseable input is returned as is.
func longDate(s string, withWeekday bool) string {
	t, err := domain.ParseDate(s)
	if err != nil {
		return s
	}
	out := fmt.Sprintf("%d年%d月%d日", t.Year(), int(t.Month()), t.Day())
	if withWeekday {
		out += " " + weekdayNames[t.Weekday()]
	}
	return out
}

func writeCSV(w io.Writer, header []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	if err := cw.WriteAll(rows); err != nil {
		return err
	}
	return cw.Error()
}

func writeJoined(w io.Writer, blocks []string) error {
	_, err := io.WriteString(w, strings.Join(blocks, recordSeparator))
	return err
}

func DailyReports(w io.Writer, reports []domain.DailyReport, f Format) error {
	if f == CSV {
		rows := make([][]string, 0, len(reports))
		for _, r := range reports {
			rows = append(rows, []string{r.EntryDate, longDate(r.EntryDate, true), r.Content})
		}
		return writeCSV(w, []string{"日期", "格式化日期", "内容"}, rows)
	}

	blocks := make([]string, 0, len(reports))
	for _, r := range reports {
		date := longDate(r.EntryDate, true)
		if f == Markdown {
			blocks = append(blocks, fmt.Sprintf("# 日报 - %s\n\n%s\n", date, r.Content))
		} else {
			blocks = append(blocks, fmt.Sprintf("【日报】%s\n%s\n\n%s\n", date, strings.Repeat("=", 40), r.Content))
		}
	}
	return writeJoined(w, blocks)
}

func WeeklyReports(w io.Writer, reports []domain.WeeklyReport, f Format) error {
	if f == CSV {
		rows := make([][]string, 0, len(reports))
		for _, r := range reports {
			rows = append(rows, []string{r.StartDate, r.EndDate, weekRangeLabel(r), r.Content})
		}
		return writeCSV(w, []string{"开始日期", "结束日期", "日期范围", "内容"}, rows)
	}

	blocks := make([]string, 0, len(reports))
	for _, r := range reports {
		if f == Markdown {
			blocks = append(blocks, fmt.Sprintf("# 周报\n\n**日期范围**: %s\n\n---\n\n%s\n", weekRangeLabel(r), r.Content))
		} else {
			blocks = append(blocks, fmt.Sprintf("【周报】%s\n%s\n\n%s\n", weekRangeLabel(r), strings.Repeat("=", 50), r.Content))
		}
	}
	return writeJoined(w, blocks)
}

func weekRangeLabel(r domain.WeeklyReport) string {
	return longDate(r.StartDate, false) + " - " + longDate(r.EndDate, false)
}

func OKRReports(w io.Writer, reports []domain.OKRReport, f Format) error {
	if f == CSV {
		rows := make([][]string, 0, len(reports))
		for _, r := range reports {
			rows = append(rows, []string{r.CreationDate, r.Content})
		}
		return writeCSV(w, []string{"创建日期", "内容"}, rows)
	}

	blocks := make([]string, 0, len(reports))
	for _, r := range reports {
		if f == Markdown {
			blocks = append(blocks, fmt.Sprintf("# OKR - %s\n\n%s\n", r.CreationDate, r.Content))
		} else {
			blocks = append(blocks, fmt.Sprintf("【OKR】%s\n%s\n\n%s\n", r.CreationDate, strings.Repeat("=", 40), r.Content))
		}
	}
	return writeJoined(w, blocks)
}

// Filename is "<kind>_<YYYYMMDD>.<ext>".
func Filename(kind string, date time.Time, f Format) string {
	return fmt.Sprintf("%s_%s.%s", sanitizeFilename(kind), date.Format("20060102"), f)
}

func sanitizeFilename(s string) string {
	replacer := strings.NewReplacer("/", "_", "\\", "_", ":", "_", "*", "_", "?", "_", "\"", "_", "<", "_", ">", "_", "|", "_", " ", "_")
	return replacer.Replace(s)
}

// WriteFile renders into outputDir/filename behind a UTF-8 BOM.
func WriteFile(outputDir, filename string, render func(io.Writer) error) (string, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", err
	}
	path := filepath.Join(outputDir, filename)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create export file: %w", err)
	}
	defer f.Close()

	if _, err := io.WriteString(f, "\ufeff"); err != nil {
		return "", err
	}
	if err := render(f); err != nil {
		return "", err
	}
	return path, f.Close()
}
