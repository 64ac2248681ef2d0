package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"workpilot/internal/domain"
)

const projectColumns = `p.id, p.name, p.description, p.status, p.start_date, p.end_date, p.star_summary, p.created_at, p.updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanProject(row scanner, extra ...any) (domain.Project, error) {
	var p domain.Project
	var name, desc, start, end, star sql.NullString
	dest := append([]any{&p.ID, &name, &desc, &p.Status, &start, &end, &star, &p.CreatedAt, &p.UpdatedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		return p, err
	}
	p.Name = name.String
	p.Description = desc.String
	p.StartDate = start.String
	p.EndDate = end.String
	p.StarSummary = star.String
	return p, nil
}

func CreateProject(db *sql.DB, name, description, status string) (domain.Project, error) {
	name = strings.TrimSpace(name)
	if status == "" {
		status = domain.ProjectStatusActive
	}
	now := timestamp()
	res, err := db.Exec(
		`INSERT INTO projects (name, description, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		name, nullString(description), status, now, now,
	)
	if err != nil {
		return domain.Project{}, fmt.Errorf("create project %q: %w", name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.Project{}, err
	}
	return GetProject(db, id)
}

func GetProject(db *sql.DB, id int64) (domain.Project, error) {
	p, err := scanProject(db.QueryRow(`SELECT `+projectColumns+` FROM projects p WHERE p.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return p, ErrNotFound
	}
	return p, err
}

func GetProjectByName(db *sql.DB, name string) (domain.Project, error) {
	p, err := scanProject(db.QueryRow(`SELECT `+projectColumns+` FROM projects p WHERE p.name = ?`, strings.TrimSpace(name)))
	if errors.Is(err, sql.ErrNoRows) {
		return p, ErrNotFound
	}
	return p, err
}

func FindOrCreateProject(db *sql.DB, name string) (domain.Project, error) {
	p, err := GetProjectByName(db, name)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return p, err
	}
	return CreateProject(db, name, "", domain.ProjectStatusActive)
}

// GetProjects lists projects, optionally filtered by status, most recently updated first.
func GetProjects(db *sql.DB, status string) ([]domain.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects p`
	var args []any
	if status != "" {
		query += ` WHERE p.status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY p.updated_at DESC, p.id DESC`

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	projects := []domain.Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

func UpdateProject(db *sql.DB, id int64, u domain.ProjectUpdate) (domain.Project, error) {
	var sets []string
	var args []any
	add := func(col string, v *string) {
		if v != nil {
			sets = append(sets, col+" = ?")
			args = append(args, nullString(*v))
		}
	}
	add("name", u.Name)
	add("description", u.Description)
	add("start_date", u.StartDate)
	add("end_date", u.EndDate)
	add("star_summary", u.StarSummary)
	if u.Status != nil && *u.Status != "" {
		sets = append(sets, "status = ?")
		args = append(args, *u.Status)
	}
	if len(sets) == 0 {
		return GetProject(db, id)
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, timestamp(), id)

	err := affectedOrNotFound(db.Exec(`UPDATE projects SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...))
	if err != nil {
		return domain.Project{}, err
	}
	return GetProject(db, id)
}

// DeleteProject removes the project and every work item attached to it.
func DeleteProject(db *sql.DB, id int64) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM work_items WHERE project_id = ?`, id); err != nil {
		return err
	}
	if err := affectedOrNotFound(tx.Exec(`DELETE FROM projects WHERE id = ?`, id)); err != nil {
		return err
	}
	return tx.Commit()
}

// DeleteAllProjects wipes projects, work items and skills.
func DeleteAllProjects(db *sql.DB) (domain.DeleteAllResult, error) {
	var res domain.DeleteAllResult
	tx, err := db.Begin()
	if err != nil {
		return res, err
	}
	defer tx.Rollback()

	if err := tx.QueryRow(`SELECT COUNT(*) FROM projects`).Scan(&res.DeletedProjects); err != nil {
		return res, err
	}
	if err := tx.QueryRow(`SELECT COUNT(*) FROM work_items`).Scan(&res.DeletedWorkItems); err != nil {
		return res, err
	}
	for _, stmt := range []string{`DELETE FROM work_items`, `DELETE FROM projects`, `DELETE FROM skills`} {
		if _, err := tx.Exec(stmt); err != nil {
			return res, err
		}
	}
	if err := tx.Commit(); err != nil {
		return res, err
	}
	res.Message = fmt.Sprintf("deleted %d projects and %d work items", res.DeletedProjects, res.DeletedWorkItems)
	return res, nil
}

func GetProjectsSummary(db *sql.DB) ([]domain.ProjectSummary, error) {
	rows, err := db.Query(
		`SELECT ` + projectColumns + `, COUNT(w.id), COALESCE(MIN(w.raw_log_date), ''), COALESCE(MAX(w.raw_log_date), '')
		 FROM projects p LEFT JOIN work_items w ON w.project_id = p.id
		 GROUP BY p.id ORDER BY p.updated_at DESC, p.id DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.ProjectSummary{}
	for rows.Next() {
		var s domain.ProjectSummary
		p, err := scanProject(rows, &s.WorkItemCount, &s.FirstWorkDate, &s.LastWorkDate)
		if err != nil {
			return nil, err
		}
		s.Project = p
		out = append(out, s)
	}
	return out, rows.Err()
}

func GetProjectDetail(db *sql.DB, id int64) (domain.ProjectDetail, error) {
	p, err := GetProject(db, id)
	if err != nil {
		return domain.ProjectDetail{}, err
	}
	items, err := GetWorkItemsByProject(db, id)
	if err != nil {
		return domain.ProjectDetail{}, err
	}
	return domain.ProjectDetail{Project: p, WorkItems: items}, nil
}

// CleanupUnassigned moves work items of placeholder-named projects, and items with no
// project at all, into the fallback project, then deletes the placeholder projects.
func CleanupUnassigned(db *sql.DB) (domain.CleanupResult, error) {
	var res domain.CleanupResult
	tx, err := db.Begin()
	if err != nil {
		return res, err
	}
	defer tx.Rollback()

	var fallbackID int64
	err = tx.QueryRow(`SELECT id FROM projects WHERE name = ?`, domain.FallbackProjectName).Scan(&fallbackID)
	if errors.Is(err, sql.ErrNoRows) {
		now := timestamp()
		r, err := tx.Exec(
			`INSERT INTO projects (name, description, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
			domain.FallbackProjectName, "work not tied to a specific project", domain.ProjectStatusActive, now, now,
		)
		if err != nil {
			return res, err
		}
		if fallbackID, err = r.LastInsertId(); err != nil {
			return res, err
		}
	} else if err != nil {
		return res, err
	}

	rows, err := tx.Query(
		`SELECT id FROM projects
		 WHERE name IS NULL OR name = 'null' OR name = 'undefined' OR TRIM(name) = ''`,
	)
	if err != nil {
		return res, err
	}
	var invalid []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return res, err
		}
		invalid = append(invalid, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return res, err
	}

	r, err := tx.Exec(`UPDATE work_items SET project_id = ?, updated_at = ? WHERE project_id IS NULL`, fallbackID, timestamp())
	if err != nil {
		return res, err
	}
	orphans, _ := r.RowsAffected()
	res.MergedCount = int(orphans)

	if len(invalid) > 0 {
		placeholders, args := inClause(invalid)
		r, err := tx.Exec(
			`UPDATE work_items SET project_id = ?, updated_at = ? WHERE project_id IN (`+placeholders+`)`,
			append([]any{fallbackID, timestamp()}, args...)...,
		)
		if err != nil {
			return res, err
		}
		moved, _ := r.RowsAffected()
		res.MergedCount += int(moved)

		r, err = tx.Exec(`DELETE FROM projects WHERE id IN (`+placeholders+`)`, args...)
		if err != nil {
			return res, err
		}
		deleted, _ := r.RowsAffected()
		res.DeletedProjects = int(deleted)
	}

	if err := tx.Commit(); err != nil {
		return res, err
	}
	if res.MergedCount == 0 && res.DeletedProjects == 0 {
		res.Message = "no unassigned work items to clean up"
	} else {
		res.Message = fmt.Sprintf("moved %d work items into %q and removed %d invalid projects",
			res.MergedCount, domain.FallbackProjectName, res.DeletedProjects)
	}
	return res, nil
}

// MergeProjects moves all work items of sources into target and deletes the sources.
// The target id is ignored if it appears among sources. Sources that no longer exist
// are reported in the message rather than failing the whole merge.
func MergeProjects(db *sql.DB, targetID int64, sourceIDs []int64) (domain.MergeResult, error) {
	var res domain.MergeResult
	tx, err := db.Begin()
	if err != nil {
		return res, err
	}
	defer tx.Rollback()

	var targetName sql.NullString
	err = tx.QueryRow(`SELECT name FROM projects WHERE id = ?`, targetID).Scan(&targetName)
	if errors.Is(err, sql.ErrNoRows) {
		return res, fmt.Errorf("target project %d: %w", targetID, ErrNotFound)
	}
	if err != nil {
		return res, err
	}

	var sources []int64
	seen := map[int64]bool{}
	for _, id := range sourceIDs {
		if id != targetID && !seen[id] {
			seen[id] = true
			sources = append(sources, id)
		}
	}
	if len(sources) == 0 {
		res.Message = "nothing to merge"
		return res, nil
	}

	now := timestamp()
	placeholders, args := inClause(sources)
	r, err := tx.Exec(
		`UPDATE work_items SET project_id = ?, updated_at = ? WHERE project_id IN (`+placeholders+`)`,
		append([]any{targetID, now}, args...)...,
	)
	if err != nil {
		return res, err
	}
	merged, _ := r.RowsAffected()
	res.MergedCount = int(merged)

	r, err = tx.Exec(`DELETE FROM projects WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return res, err
	}
	deleted, _ := r.RowsAffected()
	res.DeletedProjects = int(deleted)

	if _, err := tx.Exec(`UPDATE projects SET updated_at = ? WHERE id = ?`, now, targetID); err != nil {
		return res, err
	}
	if err := tx.Commit(); err != nil {
		return res, err
	}

	res.Message = fmt.Sprintf("merged %d work items into project %q", res.MergedCount, targetName.String)
	if missing := len(sources) - res.DeletedProjects; missing > 0 {
		res.Message += fmt.Sprintf("; %d of %d source projects no longer existed", missing, len(sources))
	}
	return res, nil
}

func SetStarSummary(db *sql.DB, id int64, summary string) (domain.Project, error) {
	return UpdateProject(db, id, domain.ProjectUpdate{StarSummary: &summary})
}

func inClause(ids []int64) (string, []any) {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return strings.TrimSuffix(strings.Repeat("?,", len(ids)), ","), args
}
