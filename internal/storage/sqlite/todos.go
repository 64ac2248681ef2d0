package sqlite

import (
	"database/sql"
	"errors"

	"workpilot/internal/domain"
)

func GetTodoItems(db *sql.DB) ([]domain.TodoItem, error) {
	rows, err := db.Query(
		`SELECT id, content, completed, sort_order, created_at, updated_at FROM todo_items
		 ORDER BY completed, sort_order, id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []domain.TodoItem{}
	for rows.Next() {
		var it domain.TodoItem
		if err := rows.Scan(&it.ID, &it.Content, &it.Completed, &it.SortOrder, &it.CreatedAt, &it.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func GetTodoItem(db *sql.DB, id int64) (domain.TodoItem, error) {
	var it domain.TodoItem
	err := db.QueryRow(
		`SELECT id, content, completed, sort_order, created_at, updated_at FROM todo_items WHERE id = ?`, id,
	).Scan(&it.ID, &it.Content, &it.Completed, &it.SortOrder, &it.CreatedAt, &it.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return it, ErrNotFound
	}
	return it, err
}

// CreateTodoItem appends the item after the current last sort_order.
func CreateTodoItem(db *sql.DB, content string) (domain.TodoItem, error) {
	now := timestamp()
	res, err := db.Exec(
		`INSERT INTO todo_items (content, completed, sort_order, created_at, updated_at)
		 VALUES (?, 0, (SELECT COALESCE(MAX(sort_order), 0) + 1 FROM todo_items), ?, ?)`,
		content, now, now,
	)
	if err != nil {
		return domain.TodoItem{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.TodoItem{}, err
	}
	return GetTodoItem(db, id)
}

// UpdateTodoItem changes only the non-nil fields.
func UpdateTodoItem(db *sql.DB, id int64, content *string, completed *bool) (domain.TodoItem, error) {
	current, err := GetTodoItem(db, id)
	if err != nil {
		return current, err
	}
	if content != nil {
		current.Content = *content
	}
	if completed != nil {
		current.Completed = 0
		if *completed {
			current.Completed = 1
		}
	}
	_, err = db.Exec(
		`UPDATE todo_items SET content = ?, completed = ?, updated_at = ? WHERE id = ?`,
		current.Content, current.Completed, timestamp(), id,
	)
	if err != nil {
		return current, err
	}
	return GetTodoItem(db, id)
}

func DeleteTodoItem(db *sql.DB, id int64) error {
	return affectedOrNotFound(db.Exec(`DELETE FROM todo_items WHERE id = ?`, id))
}
