package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"workpilot/internal/domain"
)

const validSkillCondition = `name IS NOT NULL AND TRIM(name) != '' AND LOWER(name) NOT IN ('null', 'none', '待补充')`

func scanSkill(row scanner) (domain.Skill, error) {
	var s domain.Skill
	var category, first, last sql.NullString
	if err := row.Scan(&s.ID, &s.Name, &category, &s.Count, &first, &last); err != nil {
		return s, err
	}
	s.Category = category.String
	s.FirstUsedDate = first.String
	s.LastUsedDate = last.String
	return s, nil
}

// UpsertSkill records one use of a skill. Placeholder names are skipped and reported
// with ok=false. An empty category is inferred from the name.
func UpsertSkill(db *sql.DB, name, category string) (skill domain.Skill, ok bool, err error) {
	name = strings.TrimSpace(name)
	if !domain.IsValidSkillName(name) {
		return domain.Skill{}, false, nil
	}
	if category == "" {
		category = domain.InferSkillCategory(name)
	}
	now, day := timestamp(), today()
	_, err = db.Exec(
		`INSERT INTO skills (name, category, count, first_used_date, last_used_date, created_at, updated_at)
		 VALUES (?, ?, 1, ?, ?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET count = count + 1, last_used_date = excluded.last_used_date, updated_at = excluded.updated_at`,
		name, nullString(category), day, day, now, now,
	)
	if err != nil {
		return domain.Skill{}, false, fmt.Errorf("upsert skill %q: %w", name, err)
	}
	skill, err = scanSkill(db.QueryRow(
		`SELECT id, name, category, count, first_used_date, last_used_date FROM skills WHERE name = ?`, name,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return skill, false, ErrNotFound
	}
	return skill, err == nil, err
}

func GetSkills(db *sql.DB) ([]domain.Skill, error) {
	rows, err := db.Query(
		`SELECT id, name, category, count, first_used_date, last_used_date FROM skills
		 WHERE ` + validSkillCondition + ` ORDER BY count DESC, name`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	skills := []domain.Skill{}
	for rows.Next() {
		s, err := scanSkill(rows)
		if err != nil {
			return nil, err
		}
		skills = append(skills, s)
	}
	return skills, rows.Err()
}

func GetSkillsStats(db *sql.DB) (domain.SkillsStats, error) {
	stats := domain.SkillsStats{TopSkills: []domain.SkillCount{}, ByCategory: map[string]int{}}

	rows, err := db.Query(`SELECT name, count FROM skills WHERE ` + validSkillCondition + ` ORDER BY count DESC, name LIMIT 10`)
	if err != nil {
		return stats, err
	}
	for rows.Next() {
		var sc domain.SkillCount
		if err := rows.Scan(&sc.Name, &sc.Count); err != nil {
			rows.Close()
			return stats, err
		}
		stats.TopSkills = append(stats.TopSkills, sc)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return stats, err
	}

	rows, err = db.Query(
		`SELECT category, SUM(count) FROM skills WHERE category IS NOT NULL AND category != '' AND ` +
			validSkillCondition + ` GROUP BY category`,
	)
	if err != nil {
		return stats, err
	}
	for rows.Next() {
		var category string
		var total int
		if err := rows.Scan(&category, &total); err != nil {
			rows.Close()
			return stats, err
		}
		stats.ByCategory[category] = total
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return stats, err
	}

	err = db.QueryRow(`SELECT COUNT(*) FROM skills WHERE ` + validSkillCondition).Scan(&stats.TotalUnique)
	return stats, err
}

// RecategorizeSkills re-runs category inference and only overwrites when a category is found.
func RecategorizeSkills(db *sql.DB) (domain.RecategorizeResult, error) {
	var res domain.RecategorizeResult
	skills, err := func() ([]domain.Skill, error) {
		rows, err := db.Query(`SELECT id, name, category, count, first_used_date, last_used_date FROM skills`)
		if err != nil {
			return nil, err
		}
		defer rows.Close()
		var out []domain.Skill
		for rows.Next() {
			s, err := scanSkill(rows)
			if err != nil {
				return nil, err
			}
			out = append(out, s)
		}
		return out, rows.Err()
	}()
	if err != nil {
		return res, err
	}

	tx, err := db.Begin()
	if err != nil {
		return res, err
	}
	defer tx.Rollback()

	now := timestamp()
	for _, s := range skills {
		category := domain.InferSkillCategory(s.Name)
		if category == "" || category == s.Category {
			continue
		}
		if _, err := tx.Exec(`UPDATE skills SET category = ?, updated_at = ? WHERE id = ?`, category, now, s.ID); err != nil {
			return res, err
		}
		res.UpdatedCount++
	}
	if err := tx.Commit(); err != nil {
		return res, err
	}
	res.TotalSkills = len(skills)
	res.Message = fmt.Sprintf("recategorized %d of %d skills", res.UpdatedCount, res.TotalSkills)
	return res, nil
}
