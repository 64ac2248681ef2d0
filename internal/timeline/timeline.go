package timeline

import (
	"fmt"
	"sort"
	"strings"

	"workpilot/internal/domain"
)

type Granularity string

const (
	Year    Granularity = "year"
	Quarter Granularity = "quarter"
	Month   Granularity = "month"
)

func ParseGranularity(s string) (Granularity, error) {
	switch g := Granularity(strings.ToLower(strings.TrimSpace(s))); g {
	case Year, Quarter, Month:
		return g, nil
	}
	return "", fmt.Errorf("unknown granularity %q (want year, quarter or month)", s)
}

type Bucket struct {
	Key   string            `json:"key"`
	Label string            `json:"label"`
	Items []domain.WorkItem `json:"items"`
}

// Aggregate groups items by the period of their raw_log_date, newest period first.
// Items keep their input order inside a bucket. Items without a parseable date are
// left out. Unknown granularities group by month.
func Aggregate(items []domain.WorkItem, g Granularity) []Bucket {
	index := map[string]int{}
	buckets := []Bucket{}
	for _, item := range items {
		if strings.TrimSpace(item.RawLogDate) == "" {
			continue
		}
		t, err := domain.ParseDate(strings.TrimSpace(item.RawLogDate))
		if err != nil {
			continue
		}

		var key, label string
		switch g {
		case Year:
			key = fmt.Sprintf("%04d", t.Year())
			label = key
		case Quarter:
			q := (int(t.Month()) + 2) / 3
			key = fmt.Sprintf("%04d-Q%d", t.Year(), q)
			label = fmt.Sprintf("%d Q%d", t.Year(), q)
		default:
			key = fmt.Sprintf("%04d-%02d", t.Year(), int(t.Month()))
			label = t.Format("Jan 2006")
		}

		i, ok := index[key]
		if !ok {
			i = len(buckets)
			index[key] = i
			buckets = append(buckets, Bucket{Key: key, Label: label})
		}
		buckets[i].Items = append(buckets[i].Items, item)
	}

	sort.Slice(buckets, func(i, j int) bool { return buckets[i].Key > buckets[j].Key })
	return buckets
}
