package sqlite

import (
	"database/sql"
	"errors"
	"strings"

	"workpilot/internal/domain"
)

const workItemSelect = `SELECT w.id, w.raw_log_date, w.project_id, p.name, w.action, w.problem, w.result_metric,
	w.skills_tags, w.extraction_status, w.created_at, w.updated_at
	FROM work_items w LEFT JOIN projects p ON p.id = w.project_id`

func scanWorkItem(row scanner) (domain.WorkItem, error) {
	var w domain.WorkItem
	var projectID sql.NullInt64
	var projectName, action, problem, result, tags sql.NullString
	err := row.Scan(&w.ID, &w.RawLogDate, &projectID, &projectName, &action, &problem, &result,
		&tags, &w.ExtractionStatus, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return w, err
	}
	if projectID.Valid {
		id := projectID.Int64
		w.ProjectID = &id
	}
	w.ProjectName = projectName.String
	w.Action = action.String
	w.Problem = problem.String
	w.ResultMetric = result.String
	w.SkillsTags = tags.String
	return w, nil
}

func queryWorkItems(db *sql.DB, query string, args ...any) ([]domain.WorkItem, error) {
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []domain.WorkItem{}
	for rows.Next() {
		w, err := scanWorkItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, w)
	}
	return items, rows.Err()
}

func CreateWorkItem(db *sql.DB, item domain.NewWorkItem) (domain.WorkItem, error) {
	status := item.ExtractionStatus
	if status == "" {
		status = domain.ExtractionPending
	}
	now := timestamp()
	res, err := db.Exec(
		`INSERT INTO work_items (raw_log_date, project_id, action, problem, result_metric, skills_tags, extraction_status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.RawLogDate, nullInt64(item.ProjectID), nullString(item.Action), nullString(item.Problem),
		nullString(item.ResultMetric), domain.EncodeSkillTags(item.Skills), status, now, now,
	)
	if err != nil {
		return domain.WorkItem{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.WorkItem{}, err
	}
	return GetWorkItem(db, id)
}

func GetWorkItem(db *sql.DB, id int64) (domain.WorkItem, error) {
	w, err := scanWorkItem(db.QueryRow(workItemSelect+` WHERE w.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return w, ErrNotFound
	}
	return w, err
}

// GetAllWorkItems returns every item, newest log date first.
func GetAllWorkItems(db *sql.DB) ([]domain.WorkItem, error) {
	return queryWorkItems(db, workItemSelect+` ORDER BY w.raw_log_date DESC, w.id`)
}

func GetWorkItemsByProject(db *sql.DB, projectID int64) ([]domain.WorkItem, error) {
	return queryWorkItems(db, workItemSelect+` WHERE w.project_id = ? ORDER BY w.raw_log_date DESC, w.id`, projectID)
}

func GetWorkItemsByDateRange(db *sql.DB, start, end string) ([]domain.WorkItem, error) {
	return queryWorkItems(db,
		workItemSelect+` WHERE w.raw_log_date >= ? AND w.raw_log_date <= ? ORDER BY w.raw_log_date, w.id`,
		start, end,
	)
}

// GetWorkItemsBySkill narrows with LIKE on the encoded tag and then matches parsed tags exactly,
// so "Go" does not pick up items tagged only "Google".
func GetWorkItemsBySkill(db *sql.DB, skill string) ([]domain.WorkItem, error) {
	candidates, err := queryWorkItems(db,
		workItemSelect+` WHERE w.skills_tags LIKE ? ORDER BY w.raw_log_date DESC, w.id`,
		`%"`+skill+`"%`,
	)
	if err != nil {
		return nil, err
	}
	out := []domain.WorkItem{}
	for _, w := range candidates {
		for _, tag := range w.Skills() {
			if strings.EqualFold(tag, skill) {
				out = append(out, w)
				break
			}
		}
	}
	return out, nil
}

func UpdateWorkItem(db *sql.DB, id int64, u domain.WorkItemUpdate) (domain.WorkItem, error) {
	var sets []string
	var args []any
	if u.RawLogDate != nil {
		sets = append(sets, "raw_log_date = ?")
		args = append(args, *u.RawLogDate)
	}
	if u.ProjectID != nil {
		sets = append(sets, "project_id = ?")
		args = append(args, *u.ProjectID)
	}
	for col, v := range map[string]*string{"action": u.Action, "problem": u.Problem, "result_metric": u.ResultMetric} {
		if v != nil {
			sets = append(sets, col+" = ?")
			args = append(args, nullString(*v))
		}
	}
	if u.Skills != nil {
		sets = append(sets, "skills_tags = ?")
		args = append(args, domain.EncodeSkillTags(*u.Skills))
	}
	if u.ExtractionStatus != nil {
		sets = append(sets, "extraction_status = ?")
		args = append(args, *u.ExtractionStatus)
	}
	if len(sets) == 0 {
		return GetWorkItem(db, id)
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, timestamp(), id)

	if err := affectedOrNotFound(db.Exec(`UPDATE work_items SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)); err != nil {
		return domain.WorkItem{}, err
	}
	return GetWorkItem(db, id)
}

func DeleteWorkItem(db *sql.DB, id int64) error {
	return affectedOrNotFound(db.Exec(`DELETE FROM work_items WHERE id = ?`, id))
}
