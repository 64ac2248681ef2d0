package sqlite

import (
	"database/sql"
	"sort"

	"github.com/pmezard/go-difflib/difflib"

	"workpilot/internal/domain"
)

// NameSimilarity is the SequenceMatcher ratio of two names compared rune by rune.
func NameSimilarity(a, b string) float64 {
	return difflib.NewMatcher(runes(a), runes(b)).Ratio()
}

func runes(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}

// SimilarProjectGroups groups projects whose names are at least threshold similar.
// Grouping is greedy over the GetProjects order, most recently updated first: each
// ungrouped project collects every later ungrouped project that is similar to it. The shortest name in a group is the recommended target.
func SimilarProjectGroups(db *sql.DB, threshold float64) ([]domain.SimilarityGroup, error) {
	projects, err := GetProjects(db, "")
	if err != nil {
		return nil, err
	}

	var valid []domain.Project
	for _, p := range projects {
		if domain.IsValidProjectName(p.Name) {
			valid = append(valid, p)
		}
	}

	groups := []domain.SimilarityGroup{}
	grouped := map[int64]bool{}
	for i, p1 := range valid {
		if grouped[p1.ID] {
			continue
		}
		members := []domain.Project{p1}
		for _, p2 := range valid[i+1:] {
			if grouped[p2.ID] {
				continue
			}
			if NameSimilarity(p1.Name, p2.Name) >= threshold {
				members = append(members, p2)
				grouped[p2.ID] = true
			}
		}
		if len(members) < 2 {
			continue
		}
		grouped[p1.ID] = true

		sort.SliceStable(members, func(a, b int) bool {
			return len([]rune(members[a].Name)) < len([]rune(members[b].Name))
		})
		ids := make([]int64, len(members))
		for k, m := range members {
			ids[k] = m.ID
		}
		groups = append(groups, domain.SimilarityGroup{
			RecommendedTarget: members[0],
			Projects:          members,
			ProjectIDs:        ids,
		})
	}
	return groups, nil
}
