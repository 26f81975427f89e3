// Package chore implements the occurrence lifecycle: materializing due-date
// instances from definitions, resolving them, and regenerating the next
// occurrence from the recurrence rule.
package chore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/rmorriss/hearth/internal/mirror"
	"github.com/rmorriss/hearth/internal/model"
	"github.com/rmorriss/hearth/internal/points"
	"github.com/rmorriss/hearth/internal/recurrence"
	"github.com/rmorriss/hearth/internal/store"
)

// ErrValidation marks malformed input to a creation operation. Callers check
// it with errors.Is; the wrapped message carries the specifics.
var ErrValidation = errors.New("validation failed")

const dateLayout = "2006-01-02"

type Service struct {
	db          *sql.DB
	definitions *store.DefinitionStore
	occurrences *store.OccurrenceStore
	points      *points.Service
	mirror      *mirror.Mirror
	logger      *slog.Logger
}

// NewService creates the lifecycle manager. mirror may be nil when no
// external task provider is configured.
func NewService(db *sql.DB, pts *points.Service, m *mirror.Mirror, logger *slog.Logger) *Service {
	return &Service{
		db:          db,
		definitions: store.NewDefinitionStore(db),
		occurrences: store.NewOccurrenceStore(db),
		points:      pts,
		mirror:      m,
		logger:      logger,
	}
}

// Definitions exposes the definition registry for read paths.
func (s *Service) Definitions() *store.DefinitionStore { return s.definitions }

// Occurrences exposes the occurrence store for read paths.
func (s *Service) Occurrences() *store.OccurrenceStore { return s.occurrences }

// CreateParams describes a new chore: the definition plus its first due date.
type CreateParams struct {
	Title      string
	AssignedTo *string
	DueDate    time.Time
	Points     int
	Recurrence string // rule string, "" for a one-shot chore
}

// CreateChore inserts a definition and exactly one pending occurrence in a
// single transaction, then mirrors the task to the external provider on a
// best-effort basis.
func (s *Service) CreateChore(ctx context.Context, p CreateParams) (*model.ChoreDefinition, *model.ChoreOccurrence, error) {
	if p.Title == "" {
		return nil, nil, fmt.Errorf("%w: title is required", ErrValidation)
	}
	if p.DueDate.IsZero() {
		return nil, nil, fmt.Errorf("%w: due date is required", ErrValidation)
	}
	if p.Points < 0 {
		return nil, nil, fmt.Errorf("%w: points must not be negative", ErrValidation)
	}

	ruleText := ""
	if p.Recurrence != "" {
		rule, err := recurrence.Parse(p.Recurrence)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: recurrence: %v", ErrValidation, err)
		}
		// Store the canonical serialization, not the caller's spelling.
		ruleText = rule.String()
	}

	id := uuid.NewString()
	due := recurrence.DateOnly(p.DueDate)

	tx, err := s.db.Begin()
	if err != nil {
		return nil, nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var assignedTo sql.NullString
	if p.AssignedTo != nil {
		assignedTo = sql.NullString{String: *p.AssignedTo, Valid: true}
	}

	if _, err := tx.Exec(
		`INSERT INTO chore_definitions (id, title, assigned_to, recurrence, points) VALUES (?, ?, ?, ?, ?)`,
		id, p.Title, assignedTo, ruleText, p.Points,
	); err != nil {
		return nil, nil, fmt.Errorf("insert definition: %w", err)
	}

	result, err := tx.Exec(
		`INSERT INTO chore_occurrences (definition_id, due_date, status) VALUES (?, ?, 'pending')`,
		id, due.Format(dateLayout),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("insert first occurrence: %w", err)
	}
	occID, err := result.LastInsertId()
	if err != nil {
		return nil, nil, fmt.Errorf("last insert id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("commit create: %w", err)
	}

	s.logger.Info("chore created", "definition_id", id, "title", p.Title, "due_date", due.Format(dateLayout))

	// Mirror outside the transaction: provider failure must not roll back
	// local state.
	if taskID := s.mirror.TaskCreated(ctx, p.Title, due); taskID != "" {
		if err := s.definitions.SetProviderTaskID(id, taskID); err != nil {
			s.logger.Warn("record provider task id", "definition_id", id, "error", err)
		}
	}

	def, err := s.definitions.GetByID(id)
	if err != nil {
		return nil, nil, err
	}
	occ, err := s.occurrences.GetByID(occID)
	if err != nil {
		return nil, nil, err
	}
	return def, occ, nil
}

// ListOccurrences returns occurrences joined with their definitions, filtered
// and sorted for display.
func (s *Service) ListOccurrences(f store.ListFilter) ([]model.ChoreOccurrenceView, error) {
	return s.occurrences.ListViews(f)
}

// Resolve transitions a pending occurrence to completed or ignored, awards
// points on completion, and materializes the next occurrence when the
// definition recurs. Resolving a missing or already-resolved occurrence is a
// no-op, not an error: user actions are retried freely. The returned bool
// reports whether a transition actually happened.
func (s *Service) Resolve(ctx context.Context, occurrenceID int64, outcome model.OccurrenceStatus) (bool, error) {
	if outcome != model.StatusCompleted && outcome != model.StatusIgnored {
		return false, fmt.Errorf("%w: outcome must be completed or ignored", ErrValidation)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var definitionID, dueText string
	err = tx.QueryRow(
		`SELECT definition_id, due_date FROM chore_occurrences WHERE id = ? AND status = 'pending'`,
		occurrenceID,
	).Scan(&definitionID, &dueText)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load occurrence: %w", err)
	}

	dueDate, err := time.Parse(dateLayout, dueText)
	if err != nil {
		return false, fmt.Errorf("parse due date %q: %w", dueText, err)
	}

	timestampCol := "completed_at"
	if outcome == model.StatusIgnored {
		timestampCol = "ignored_at"
	}
	result, err := tx.Exec(
		`UPDATE chore_occurrences SET status = ?, `+timestampCol+` = datetime('now') WHERE id = ? AND status = 'pending'`,
		string(outcome), occurrenceID,
	)
	if err != nil {
		return false, fmt.Errorf("update occurrence: %w", err)
	}
	if n, err := result.RowsAffected(); err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	} else if n == 0 {
		// Lost the race to a concurrent resolve.
		return false, nil
	}

	var title, ruleText string
	var assignedTo, providerTaskID sql.NullString
	var pointValue int
	err = tx.QueryRow(
		`SELECT title, assigned_to, recurrence, points, provider_task_id FROM chore_definitions WHERE id = ?`,
		definitionID,
	).Scan(&title, &assignedTo, &ruleText, &pointValue, &providerTaskID)
	if err == sql.ErrNoRows {
		// Orphaned occurrence: apply the transition, skip payment and
		// regeneration.
		s.logger.Warn("resolved orphaned occurrence", "occurrence_id", occurrenceID, "definition_id", definitionID)
		if err := tx.Commit(); err != nil {
			return false, fmt.Errorf("commit resolve: %w", err)
		}
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("load definition: %w", err)
	}

	if outcome == model.StatusCompleted && assignedTo.Valid && pointValue > 0 {
		key := points.OccurrenceKey{DefinitionID: definitionID, DueDate: dueDate}
		granted, err := s.points.GrantTx(tx, assignedTo.String, key, pointValue)
		if err != nil {
			return false, fmt.Errorf("grant points: %w", err)
		}
		if granted {
			s.logger.Info("points granted", "user", assignedTo.String, "definition_id", definitionID, "due_date", dueText, "points", pointValue)
		}
	}

	if ruleText != "" {
		if err := s.regenerate(tx, definitionID, ruleText, dueDate); err != nil {
			return false, err
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit resolve: %w", err)
	}

	s.logger.Info("occurrence resolved", "occurrence_id", occurrenceID, "definition_id", definitionID, "outcome", string(outcome))

	if providerTaskID.Valid {
		s.mirror.TaskResolved(ctx, providerTaskID.String, string(outcome))
	}
	return true, nil
}

// regenerate inserts the next pending occurrence for a recurring definition
// unless one already exists for that date. Runs inside the resolve
// transaction so the transition and the regeneration commit together.
func (s *Service) regenerate(tx *sql.Tx, definitionID, ruleText string, after time.Time) error {
	rule, err := recurrence.Parse(ruleText)
	if err != nil {
		// Creation validates rules, so this only happens after manual edits.
		// Treat as one-shot rather than failing the resolve.
		s.logger.Warn("invalid recurrence rule", "definition_id", definitionID, "rule", ruleText, "error", err)
		return nil
	}

	next := recurrence.NextDue(rule, after)

	var n int
	err = tx.QueryRow(
		`SELECT COUNT(*) FROM chore_occurrences WHERE definition_id = ? AND due_date = ? AND status = 'pending'`,
		definitionID, next.Format(dateLayout),
	).Scan(&n)
	if err != nil {
		return fmt.Errorf("check next occurrence: %w", err)
	}
	if n > 0 {
		return nil
	}

	if _, err := tx.Exec(
		`INSERT INTO chore_occurrences (definition_id, due_date, status) VALUES (?, ?, 'pending')`,
		definitionID, next.Format(dateLayout),
	); err != nil {
		return fmt.Errorf("insert next occurrence: %w", err)
	}
	return nil
}

// SweepExpireOverdue resolves every pending occurrence due before today as
// ignored, applying the same regeneration logic as Resolve. Expiring a
// recurring occurrence can regenerate one that is itself still overdue, so
// the sweep re-queries until no pending row is dated before today. The loop
// terminates because regeneration strictly advances due dates. Safe to run
// redundantly: a clean board yields zero transitions.
func (s *Service) SweepExpireOverdue(ctx context.Context, today time.Time) (int, error) {
	cutoff := recurrence.DateOnly(today)

	count := 0
	for {
		ids, err := s.occurrences.ListOverduePendingIDs(cutoff)
		if err != nil {
			return count, err
		}
		if len(ids) == 0 {
			break
		}
		for _, id := range ids {
			resolved, err := s.Resolve(ctx, id, model.StatusIgnored)
			if err != nil {
				return count, fmt.Errorf("expire occurrence %d: %w", id, err)
			}
			if resolved {
				count++
			}
		}
	}

	if count > 0 {
		s.logger.Info("expired overdue occurrences", "count", count)
	}
	return count, nil
}
