package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"workpilot/internal/domain"
)

type extractedItemRaw struct {
	Project      json.RawMessage `json:"project"`
	Action       json.RawMessage `json:"action"`
	Problem      json.RawMessage `json:"problem"`
	ResultMetric json.RawMessage `json:"result_metric"`
	Skills       json.RawMessage `json:"skills"`
}

type extractionRaw struct {
	WorkItems         []extractedItemRaw `json:"work_items"`
	ExtractionQuality string             `json:"extraction_quality"`
	Notes             json.RawMessage    `json:"notes"`
}

func stripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

// ParseExtraction decodes an extraction reply. Code fences and prose around the JSON
// object are tolerated, as are skills given as a comma separated string.
func ParseExtraction(responseText string) (domain.ExtractionResult, error) {
	text := stripCodeFence(responseText)
	if start, end := strings.Index(text, "{"), strings.LastIndex(text, "}"); start > 0 && end > start {
		text = text[start : end+1]
	}

	var raw extractionRaw
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return domain.ExtractionResult{}, fmt.Errorf("parsing LLM extraction response: %w (response: %s)", err, text)
	}

	res := domain.ExtractionResult{
		WorkItems: []domain.ExtractedWorkItem{},
		Notes:     stringField(raw.Notes),
	}
	for _, item := range raw.WorkItems {
		w := domain.ExtractedWorkItem{
			Project:      stringField(item.Project),
			Action:       stringField(item.Action),
			Problem:      stringField(item.Problem),
			ResultMetric: stringField(item.ResultMetric),
			Skills:       skillsField(item.Skills),
		}
		if !domain.IsValidProjectName(w.Project) {
			w.Project = ""
		}
		if w.Action == "" && w.Problem == "" && w.ResultMetric == "" {
			continue
		}
		res.WorkItems = append(res.WorkItems, w)
	}

	switch q := strings.ToLower(strings.TrimSpace(raw.ExtractionQuality)); q {
	case domain.QualityGood, domain.QualityPartial, domain.QualityInsufficient:
		res.ExtractionQuality = q
	default:
		if len(res.WorkItems) == 0 {
			res.ExtractionQuality = domain.QualityInsufficient
		} else {
			res.ExtractionQuality = domain.QualityPartial
		}
	}
	return res, nil
}

// stringField accepts a JSON string, number or null. "null" and "none" read as empty.
func stringField(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		s = strings.TrimSpace(s)
		switch strings.ToLower(s) {
		case "null", "none":
			return ""
		}
		return s
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return fmt.Sprintf("%g", n)
	}
	return ""
}

func skillsField(raw json.RawMessage) []string {
	if len(raw) == 0 || string(raw) == "null" {
		return []string{}
	}

	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return cleanSkills(strings.FieldsFunc(asString, func(r rune) bool {
			return r == ',' || r == '，' || r == '、' || r == ';'
		}))
	}

	var asAnySlice []any
	if err := json.Unmarshal(raw, &asAnySlice); err == nil {
		var out []string
		for _, v := range asAnySlice {
			if s, ok := v.(string); ok {
				out = append(out, s)
			}
		}
		return cleanSkills(out)
	}
	return []string{}
}

func cleanSkills(in []string) []string {
	out := make([]string, 0, len(in))
	seen := map[string]bool{}
	for _, s := range in {
		s = strings.TrimSpace(s)
		key := strings.ToLower(s)
		if !domain.IsValidSkillName(s) || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	return out
}

// CleanText strips code fences and surrounding whitespace from a plain-text reply.
func CleanText(responseText string) string {
	return stripCodeFence(responseText)
}
