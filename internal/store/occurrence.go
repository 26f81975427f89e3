package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rmorriss/hearth/internal/model"
)

type OccurrenceStore struct {
	db *sql.DB
}

func NewOccurrenceStore(db *sql.DB) *OccurrenceStore {
	return &OccurrenceStore{db: db}
}

func scanOccurrence(scanner interface{ Scan(...any) error }) (*model.ChoreOccurrence, error) {
	var o model.ChoreOccurrence
	var due string
	var completedAt, ignoredAt sql.NullTime

	err := scanner.Scan(&o.ID, &o.DefinitionID, &due, &o.Status, &completedAt, &ignoredAt)
	if err != nil {
		return nil, err
	}

	o.DueDate, err = parseDate(due)
	if err != nil {
		return nil, fmt.Errorf("parse due date %q: %w", due, err)
	}
	if completedAt.Valid {
		o.CompletedAt = &completedAt.Time
	}
	if ignoredAt.Valid {
		o.IgnoredAt = &ignoredAt.Time
	}
	return &o, nil
}

const occurrenceCols = `id, definition_id, due_date, status, completed_at, ignored_at`

func (s *OccurrenceStore) GetByID(id int64) (*model.ChoreOccurrence, error) {
	row := s.db.QueryRow(`SELECT `+occurrenceCols+` FROM chore_occurrences WHERE id = ?`, id)
	o, err := scanOccurrence(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get occurrence: %w", err)
	}
	return o, nil
}

// PendingExists reports whether a pending occurrence already exists for the
// given (definition, due date) pair.
func (s *OccurrenceStore) PendingExists(definitionID string, dueDate time.Time) (bool, error) {
	var n int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM chore_occurrences WHERE definition_id = ? AND due_date = ? AND status = 'pending'`,
		definitionID, formatDate(dueDate),
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check pending occurrence: %w", err)
	}
	return n > 0, nil
}

// ListByDefinition returns all occurrences of one definition, oldest first.
func (s *OccurrenceStore) ListByDefinition(definitionID string) ([]model.ChoreOccurrence, error) {
	rows, err := s.db.Query(
		`SELECT `+occurrenceCols+` FROM chore_occurrences WHERE definition_id = ? ORDER BY due_date ASC, id ASC`,
		definitionID,
	)
	if err != nil {
		return nil, fmt.Errorf("list occurrences: %w", err)
	}
	defer rows.Close()

	var occurrences []model.ChoreOccurrence
	for rows.Next() {
		o, err := scanOccurrence(rows)
		if err != nil {
			return nil, fmt.Errorf("scan occurrence: %w", err)
		}
		occurrences = append(occurrences, *o)
	}
	return occurrences, rows.Err()
}

// ListFilter bounds a ListViews query. Nil dates mean unbounded; bounds are
// inclusive. Limit <= 0 means no limit and is applied after sorting.
type ListFilter struct {
	Start            *time.Time
	End              *time.Time
	IncludeCompleted bool
	Limit            int
}

// ListViews returns occurrences joined with their definitions, sorted by
// (due date, title). The inner join silently drops occurrences whose
// definition has vanished; the foreign key makes that unreachable in normal
// operation, but external synchronization has produced such rows before.
func (s *OccurrenceStore) ListViews(f ListFilter) ([]model.ChoreOccurrenceView, error) {
	query := `SELECT o.id, o.definition_id, o.due_date, o.status, o.completed_at, o.ignored_at,
		d.title, d.assigned_to, d.points
		FROM chore_occurrences o
		JOIN chore_definitions d ON d.id = o.definition_id
		WHERE 1=1`
	var args []any

	if !f.IncludeCompleted {
		query += ` AND o.status = 'pending'`
	}
	if f.Start != nil {
		query += ` AND o.due_date >= ?`
		args = append(args, formatDate(*f.Start))
	}
	if f.End != nil {
		query += ` AND o.due_date <= ?`
		args = append(args, formatDate(*f.End))
	}

	query += ` ORDER BY o.due_date ASC, d.title COLLATE NOCASE ASC`

	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list occurrence views: %w", err)
	}
	defer rows.Close()

	var views []model.ChoreOccurrenceView
	for rows.Next() {
		var v model.ChoreOccurrenceView
		var due string
		var completedAt, ignoredAt sql.NullTime
		var assignedTo sql.NullString

		err := rows.Scan(
			&v.OccurrenceID, &v.DefinitionID, &due, &v.Status, &completedAt, &ignoredAt,
			&v.Title, &assignedTo, &v.Points,
		)
		if err != nil {
			return nil, fmt.Errorf("scan occurrence view: %w", err)
		}

		v.DueDate, err = parseDate(due)
		if err != nil {
			return nil, fmt.Errorf("parse due date %q: %w", due, err)
		}
		if completedAt.Valid {
			v.CompletedAt = &completedAt.Time
		}
		if ignoredAt.Valid {
			v.IgnoredAt = &ignoredAt.Time
		}
		if assignedTo.Valid {
			v.AssignedTo = &assignedTo.String
		}
		views = append(views, v)
	}
	return views, rows.Err()
}

// ListOverduePendingIDs returns the ids of all pending occurrences due
// strictly before the given date, oldest first.
func (s *OccurrenceStore) ListOverduePendingIDs(today time.Time) ([]int64, error) {
	rows, err := s.db.Query(
		`SELECT id FROM chore_occurrences WHERE status = 'pending' AND due_date < ? ORDER BY due_date ASC, id ASC`,
		formatDate(today),
	)
	if err != nil {
		return nil, fmt.Errorf("list overdue occurrences: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan occurrence id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
