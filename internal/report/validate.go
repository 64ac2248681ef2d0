package report

import (
	"regexp"
	"strings"
	"unicode"

	"workpilot/internal/domain"
)

// WeeklySections are the titles a weekly report must contain, in this order.
var WeeklySections = []string{
	"周报（",
	"本周一句话总结：",
	"1、手上项目、服务化能力建设、预研的主要进展",
	"手上项目",
	"服务化能力建设",
	"预研",
	"2、是否有风险，哪些风险点？",
	"3、其他的事务性工作",
	"4、下周大概的计划",
}

// ValidateWeeklyReport checks each title is present and that the titles found appear in order.
func ValidateWeeklyReport(report string) domain.WeeklyValidation {
	v := domain.WeeklyValidation{MissingSections: []string{}, OrderValid: true}
	prev := -1
	for _, section := range WeeklySections {
		pos := strings.Index(report, section)
		if pos == -1 {
			v.MissingSections = append(v.MissingSections, section)
			continue
		}
		if pos < prev {
			v.OrderValid = false
		}
		prev = pos
	}
	v.Valid = len(v.MissingSections) == 0 && v.OrderValid
	return v
}

var (
	objectivePattern = regexp.MustCompile(`目标\s*O\d+`)
	dateNodePattern  = regexp.MustCompile(`\d{4}-\d{2}-\d{2}前`)
	krHeaderPattern  = regexp.MustCompile(`KR\d+[：:]`)
	krBoundary       = regexp.MustCompile(`KR\d+|目标\s*O\d+`)
)

// QuantitativePatterns are reported back by source text when they match.
var QuantitativePatterns = []string{
	`≥|>=|≤|<=`,
	`\d+%`,
	`准确率`,
	`覆盖率`,
	`覆盖`,
	`数量`,
	`上线`,
	`验收`,
	`性能`,
	`可用性`,
}

var quantitativeRegexps = func() []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(QuantitativePatterns))
	for i, p := range QuantitativePatterns {
		out[i] = regexp.MustCompile(p)
	}
	return out
}()

func ValidateOKR(okr string) domain.OKRValidation {
	objectives := len(objectivePattern.FindAllString(okr, -1))
	dates := len(dateNodePattern.FindAllString(okr, -1))

	quant := []string{}
	for i, re := range quantitativeRegexps {
		if re.MatchString(okr) {
			quant = append(quant, QuantitativePatterns[i])
		}
	}

	milestones := false
	for _, kr := range keyResultSegments(okr) {
		if len(dateNodePattern.FindAllString(kr, -1)) >= 2 {
			milestones = true
			break
		}
	}

	return domain.OKRValidation{
		Valid:                   objectives >= 2 && dates > 0 && len(quant) > 0,
		ObjectiveCount:          objectives,
		ObjectivesValid:         objectives >= 2 && objectives <= 3,
		DateNodesCount:          dates,
		HasDateNodes:            dates > 0,
		QuantitativeExpressions: quant,
		HasQuantitative:         len(quant) > 0,
		HasMilestones:           milestones,
	}
}

// keyResultSegments cuts okr into "KRn：..." pieces, each ending at the next KR or objective.
func keyResultSegments(okr string) []string {
	var segments []string
	bounds := krBoundary.FindAllStringIndex(okr, -1)
	for _, h := range krHeaderPattern.FindAllStringIndex(okr, -1) {
		end := len(okr)
		for _, b := range bounds {
			if b[0] > h[1] {
				end = b[0]
				break
			}
		}
		if end > h[1] {
			segments = append(segments, okr[h[0]:end])
		}
	}
	return segments
}

var listNumbering = regexp.MustCompile(`^\d+\.\s+`)

// CleanWeeklyReportFormat drops "1. " style numbering at the start of lines. Section
// titles use "1、" and are left alone.
func CleanWeeklyReportFormat(report string) string {
	lines := strings.Split(report, "\n")
	for i, line := range lines {
		stripped := strings.TrimLeftFunc(line, unicode.IsSpace)
		if listNumbering.MatchString(stripped) {
			lines[i] = listNumbering.ReplaceAllString(stripped, "")
		}
	}
	return strings.Join(lines, "\n")
}
