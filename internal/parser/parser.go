package parser

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"workpilot/internal/domain"
)

const defaultBlockHours = 8.0

const (
	CategoryProject      = "project"
	CategoryService      = "service"
	CategoryResearch     = "research"
	CategoryOtherAffairs = "other_affairs"
)

// Keywords drive Categorize. Other-affairs lists are checked before research and service.
type Keywords struct {
	Temporary []string `yaml:"temporary"`
	Ops       []string `yaml:"ops"`
	Admin     []string `yaml:"admin"`
	Research  []string `yaml:"research"`
	Service   []string `yaml:"service"`
}

var DefaultKeywords = Keywords{
	Temporary: []string{"临时工作"},
	Ops:       []string{"运维", "权限", "工单", "服务器", "迁移", "配置", "公网访问"},
	Admin:     []string{"会议", "沟通", "统计", "填报", "分享", "支持", "论文分享", "技术分享"},
	Research:  []string{"PoC", "调研"},
	Service:   []string{"服务化", "接口化"},
}

var (
	compactDateLine = regexp.MustCompile(`(?i)^(\d{8})\s*(\d+(?:\.\d+)?\s*h)?$`)
	hyphenDateLine  = regexp.MustCompile(`(?i)^(\d{4}-\d{2}-\d{2})\s*(\d+(?:\.\d+)?\s*h)?$`)
)

// ParseDateBlocks splits a daily log into blocks headed by "YYYYMMDD [Nh]" or
// "YYYY-MM-DD [Nh]" lines. Text before the first header lands in an undated block.
func ParseDateBlocks(text string) []domain.LogBlock {
	var blocks []domain.LogBlock
	var current *domain.LogBlock

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)

		if date, hours, ok := matchDateLine(line); ok {
			if current != nil {
				blocks = append(blocks, *current)
			}
			current = &domain.LogBlock{Date: &date, Hours: hours, Content: []string{}}
			continue
		}
		if line == "" {
			continue
		}
		if current != nil {
			current.Content = append(current.Content, line)
			continue
		}
		if len(blocks) == 0 || blocks[len(blocks)-1].Date != nil {
			blocks = append(blocks, domain.LogBlock{Hours: defaultBlockHours, Content: []string{}})
		}
		last := &blocks[len(blocks)-1]
		last.Content = append(last.Content, line)
	}
	if current != nil {
		blocks = append(blocks, *current)
	}
	return blocks
}

func matchDateLine(line string) (string, float64, bool) {
	if m := compactDateLine.FindStringSubmatch(line); m != nil {
		date := m[1]
		if t, err := time.Parse("20060102", m[1]); err == nil {
			date = t.Format(domain.DateLayout)
		}
		return date, parseHours(m[2]), true
	}
	if m := hyphenDateLine.FindStringSubmatch(line); m != nil {
		return m[1], parseHours(m[2]), true
	}
	return "", 0, false
}

func parseHours(s string) float64 {
	s = strings.TrimSpace(strings.TrimSuffix(strings.ToLower(s), "h"))
	if s == "" {
		return defaultBlockHours
	}
	hours, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return defaultBlockHours
	}
	return hours
}

// Categorize assigns one log line to a weekly-report section.
func (k Keywords) Categorize(entry string) string {
	lower := strings.ToLower(entry)
	matches := func(list []string) bool {
		for _, kw := range list {
			if strings.Contains(lower, strings.ToLower(kw)) {
				return true
			}
		}
		return false
	}
	switch {
	case matches(k.Temporary), matches(k.Ops), matches(k.Admin):
		return CategoryOtherAffairs
	case matches(k.Research):
		return CategoryResearch
	case matches(k.Service):
		return CategoryService
	default:
		return CategoryProject
	}
}

func (k Keywords) CategorizeBlocks(blocks []domain.LogBlock) domain.LogCategories {
	cats := domain.LogCategories{
		Project:      []string{},
		Service:      []string{},
		Research:     []string{},
		OtherAffairs: []string{},
	}
	for _, b := range blocks {
		for _, entry := range b.Content {
			switch k.Categorize(entry) {
			case CategoryOtherAffairs:
				cats.OtherAffairs = append(cats.OtherAffairs, entry)
			case CategoryResearch:
				cats.Research = append(cats.Research, entry)
			case CategoryService:
				cats.Service = append(cats.Service, entry)
			default:
				cats.Project = append(cats.Project, entry)
			}
		}
	}
	return cats
}

// Deduplicate drops entries equal to, contained in, or containing an earlier kept entry,
// comparing trimmed lower-case text.
func Deduplicate(entries []string) []string {
	out := []string{}
	var seen []string
	for _, entry := range entries {
		normalized := strings.ToLower(strings.TrimSpace(entry))
		dup := false
		for _, existing := range seen {
			if strings.Contains(existing, normalized) || strings.Contains(normalized, existing) {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		seen = append(seen, normalized)
		out = append(out, entry)
	}
	return out
}

// ParseAndCategorize runs the full pipeline and stamps the work week containing now.
func (k Keywords) ParseAndCategorize(text string, now time.Time) domain.ParsedLog {
	blocks := ParseDateBlocks(text)
	cats := k.CategorizeBlocks(blocks)
	cats.Project = Deduplicate(cats.Project)
	cats.Service = Deduplicate(cats.Service)
	cats.Research = Deduplicate(cats.Research)
	cats.OtherAffairs = Deduplicate(cats.OtherAffairs)

	monday, friday := domain.WorkWeekAt(now)
	if blocks == nil {
		blocks = []domain.LogBlock{}
	}
	return domain.ParsedLog{
		Blocks:     blocks,
		Categories: cats,
		WeekRange: domain.WeekRange{
			Monday: monday.Format(domain.DateLayout),
			Friday: friday.Format(domain.DateLayout),
		},
	}
}
