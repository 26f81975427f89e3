package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rmorriss/hearth/internal/model"
)

// dateLayout is the on-disk form of all due dates: a bare calendar date.
const dateLayout = "2006-01-02"

func formatDate(t time.Time) string {
	return t.UTC().Format(dateLayout)
}

func parseDate(s string) (time.Time, error) {
	return time.Parse(dateLayout, s)
}

type DefinitionStore struct {
	db *sql.DB
}

func NewDefinitionStore(db *sql.DB) *DefinitionStore {
	return &DefinitionStore{db: db}
}

func scanDefinition(scanner interface{ Scan(...any) error }) (*model.ChoreDefinition, error) {
	var d model.ChoreDefinition
	var assignedTo sql.NullString
	var providerTaskID sql.NullString

	err := scanner.Scan(
		&d.ID, &d.Title, &assignedTo, &d.Recurrence, &d.Points,
		&providerTaskID, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if assignedTo.Valid {
		d.AssignedTo = &assignedTo.String
	}
	if providerTaskID.Valid {
		d.ProviderTaskID = &providerTaskID.String
	}
	return &d, nil
}

const definitionCols = `id, title, assigned_to, recurrence, points, provider_task_id, created_at, updated_at`

func (s *DefinitionStore) GetByID(id string) (*model.ChoreDefinition, error) {
	row := s.db.QueryRow(`SELECT `+definitionCols+` FROM chore_definitions WHERE id = ?`, id)
	d, err := scanDefinition(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get definition: %w", err)
	}
	return d, nil
}

func (s *DefinitionStore) List() ([]model.ChoreDefinition, error) {
	rows, err := s.db.Query(`SELECT ` + definitionCols + ` FROM chore_definitions ORDER BY title COLLATE NOCASE ASC`)
	if err != nil {
		return nil, fmt.Errorf("list definitions: %w", err)
	}
	defer rows.Close()

	var defs []model.ChoreDefinition
	for rows.Next() {
		d, err := scanDefinition(rows)
		if err != nil {
			return nil, fmt.Errorf("scan definition: %w", err)
		}
		defs = append(defs, *d)
	}
	return defs, rows.Err()
}

// Update changes the mutable fields of a definition: title, assignee,
// recurrence, and point value. Existing occurrences are untouched.
func (s *DefinitionStore) Update(id, title string, assignedTo *string, recurrence string, points int) (*model.ChoreDefinition, error) {
	var aTo sql.NullString
	if assignedTo != nil {
		aTo = sql.NullString{String: *assignedTo, Valid: true}
	}

	_, err := s.db.Exec(
		`UPDATE chore_definitions SET title = ?, assigned_to = ?, recurrence = ?, points = ?, updated_at = datetime('now') WHERE id = ?`,
		title, aTo, recurrence, points, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update definition: %w", err)
	}
	return s.GetByID(id)
}

// SetProviderTaskID records the external task mirror's identifier for a
// definition. Best-effort callers ignore the error.
func (s *DefinitionStore) SetProviderTaskID(id, providerTaskID string) error {
	_, err := s.db.Exec(
		`UPDATE chore_definitions SET provider_task_id = ?, updated_at = datetime('now') WHERE id = ?`,
		providerTaskID, id,
	)
	if err != nil {
		return fmt.Errorf("set provider task id: %w", err)
	}
	return nil
}

func (s *DefinitionStore) Delete(id string) error {
	_, err := s.db.Exec(`DELETE FROM chore_definitions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete definition: %w", err)
	}
	return nil
}
