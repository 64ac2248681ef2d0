package sqlite

import (
	"database/sql"
	"errors"

	"workpilot/internal/domain"
)

// SaveDailyReport inserts or replaces the log for entryDate, keeping created_at.
func SaveDailyReport(db *sql.DB, entryDate, content string) error {
	now := timestamp()
	_, err := db.Exec(
		`INSERT INTO daily_reports (entry_date, content, created_at, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(entry_date) DO UPDATE SET content = excluded.content, updated_at = excluded.updated_at`,
		entryDate, content, now, now,
	)
	return err
}

func GetDailyReport(db *sql.DB, entryDate string) (domain.DailyReport, error) {
	var r domain.DailyReport
	err := db.QueryRow(
		`SELECT entry_date, content, created_at, updated_at FROM daily_reports WHERE entry_date = ?`,
		entryDate,
	).Scan(&r.EntryDate, &r.Content, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return r, ErrNotFound
	}
	return r, err
}

// GetDailyReportsByRange returns reports with start <= entry_date <= end, ascending.
func GetDailyReportsByRange(db *sql.DB, start, end string) ([]domain.DailyReport, error) {
	rows, err := db.Query(
		`SELECT entry_date, content, created_at, updated_at FROM daily_reports
		 WHERE entry_date >= ? AND entry_date <= ? ORDER BY entry_date`,
		start, end,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reports := []domain.DailyReport{}
	for rows.Next() {
		var r domain.DailyReport
		if err := rows.Scan(&r.EntryDate, &r.Content, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		reports = append(reports, r)
	}
	return reports, rows.Err()
}

func GetDailyReportDates(db *sql.DB) ([]string, error) {
	rows, err := db.Query(`SELECT entry_date FROM daily_reports ORDER BY entry_date DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	dates := []string{}
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		dates = append(dates, d)
	}
	return dates, rows.Err()
}

func DailyReportExists(db *sql.DB, entryDate string) (bool, error) {
	var count int
	err := db.QueryRow(
		`SELECT COUNT(*) FROM daily_reports WHERE entry_date = ? AND TRIM(content) != ''`,
		entryDate,
	).Scan(&count)
	return count > 0, err
}

func DeleteDailyReport(db *sql.DB, entryDate string) error {
	return affectedOrNotFound(db.Exec(`DELETE FROM daily_reports WHERE entry_date = ?`, entryDate))
}

func SaveWeeklyReport(db *sql.DB, startDate, endDate, content string) error {
	now := timestamp()
	_, err := db.Exec(
		`INSERT INTO weekly_reports (start_date, end_date, content, created_at, updated_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(start_date, end_date) DO UPDATE SET content = excluded.content, updated_at = excluded.updated_at`,
		startDate, endDate, content, now, now,
	)
	return err
}

func GetWeeklyReport(db *sql.DB, startDate, endDate string) (domain.WeeklyReport, error) {
	var r domain.WeeklyReport
	err := db.QueryRow(
		`SELECT start_date, end_date, content, created_at, updated_at FROM weekly_reports
		 WHERE start_date = ? AND end_date = ?`,
		startDate, endDate,
	).Scan(&r.StartDate, &r.EndDate, &r.Content, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return r, ErrNotFound
	}
	return r, err
}

func GetLatestWeeklyReport(db *sql.DB) (domain.WeeklyReport, error) {
	var r domain.WeeklyReport
	err := db.QueryRow(
		`SELECT start_date, end_date, content, created_at, updated_at FROM weekly_reports
		 ORDER BY start_date DESC, end_date DESC LIMIT 1`,
	).Scan(&r.StartDate, &r.EndDate, &r.Content, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return r, ErrNotFound
	}
	return r, err
}

// SearchWeeklyReports filters by overlap with [start, end]. Empty bounds are open.
func SearchWeeklyReports(db *sql.DB, start, end string) ([]domain.WeeklyReport, error) {
	query := `SELECT start_date, end_date, content, created_at, updated_at FROM weekly_reports WHERE 1=1`
	var args []any
	if start != "" {
		query += ` AND end_date >= ?`
		args = append(args, start)
	}
	if end != "" {
		query += ` AND start_date <= ?`
		args = append(args, end)
	}
	query += ` ORDER BY start_date DESC`

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reports := []domain.WeeklyReport{}
	for rows.Next() {
		var r domain.WeeklyReport
		if err := rows.Scan(&r.StartDate, &r.EndDate, &r.Content, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		reports = append(reports, r)
	}
	return reports, rows.Err()
}

func DeleteWeeklyReport(db *sql.DB, startDate, endDate string) error {
	return affectedOrNotFound(db.Exec(
		`DELETE FROM weekly_reports WHERE start_date = ? AND end_date = ?`, startDate, endDate,
	))
}

func SaveOKRReport(db *sql.DB, creationDate, content string) error {
	now := timestamp()
	_, err := db.Exec(
		`INSERT INTO okr_reports (creation_date, content, created_at, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(creation_date) DO UPDATE SET content = excluded.content, updated_at = excluded.updated_at`,
		creationDate, content, now, now,
	)
	return err
}

func GetOKRReport(db *sql.DB, creationDate string) (domain.OKRReport, error) {
	var r domain.OKRReport
	err := db.QueryRow(
		`SELECT creation_date, content, created_at, updated_at FROM okr_reports WHERE creation_date = ?`,
		creationDate,
	).Scan(&r.CreationDate, &r.Content, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return r, ErrNotFound
	}
	return r, err
}

func GetLatestOKRReport(db *sql.DB) (domain.OKRReport, error) {
	var r domain.OKRReport
	err := db.QueryRow(
		`SELECT creation_date, content, created_at, updated_at FROM okr_reports ORDER BY creation_date DESC LIMIT 1`,
	).Scan(&r.CreationDate, &r.Content, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return r, ErrNotFound
	}
	return r, err
}

func GetAllOKRReports(db *sql.DB) ([]domain.OKRReport, error) {
	rows, err := db.Query(`SELECT creation_date, content, created_at, updated_at FROM okr_reports ORDER BY creation_date DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reports := []domain.OKRReport{}
	for rows.Next() {
		var r domain.OKRReport
		if err := rows.Scan(&r.CreationDate, &r.Content, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		reports = append(reports, r)
	}
	return reports, rows.Err()
}

func DeleteOKRReport(db *sql.DB, creationDate string) error {
	return affectedOrNotFound(db.Exec(`DELETE FROM okr_reports WHERE creation_date = ?`, creationDate))
}
