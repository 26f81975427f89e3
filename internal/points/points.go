// Package points is the accounting side of the dashboard: an append-only
// ledger of earned and redeemed points, with an idempotency gate that pays a
// given occurrence at most once per user.
package points

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rmorriss/hearth/internal/model"
)

var (
	// ErrInsufficientBalance is returned when a redemption would overdraw.
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrRewardNotFound is returned when redeeming a missing or inactive reward.
	ErrRewardNotFound = errors.New("reward not found")
)

const dateLayout = "2006-01-02"

// OccurrenceKey identifies one occurrence for payment purposes. It is the
// (definition, due date) composite rather than the occurrence's surrogate id:
// external synchronization may regenerate a logically identical occurrence
// under a new row id, and the payment guarantee must survive that.
type OccurrenceKey struct {
	DefinitionID string
	DueDate      time.Time
}

type Service struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewService(db *sql.DB, logger *slog.Logger) *Service {
	return &Service{db: db, logger: logger}
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

// grantEarn inserts an earn entry guarded by the ledger's unique earn index.
// The check and the insert are one statement, so a duplicate arriving
// concurrently with the first simply inserts zero rows.
func grantEarn(ex execer, user string, key OccurrenceKey, pts int) (bool, error) {
	result, err := ex.Exec(
		`INSERT OR IGNORE INTO points_ledger (user_name, definition_id, due_date, points, kind) VALUES (?, ?, ?, ?, 'earn')`,
		user, key.DefinitionID, key.DueDate.UTC().Format(dateLayout), pts,
	)
	if err != nil {
		return false, fmt.Errorf("insert earn entry: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// Grant credits points to a user for one occurrence. It returns true if the
// entry was created and false if the occurrence was already paid.
func (s *Service) Grant(user string, key OccurrenceKey, pts int) (bool, error) {
	return grantEarn(s.db, user, key, pts)
}

// GrantTx is Grant inside a caller-owned transaction, used by the occurrence
// lifecycle so a completion and its payment commit together.
func (s *Service) GrantTx(tx *sql.Tx, user string, key OccurrenceKey, pts int) (bool, error) {
	return grantEarn(tx, user, key, pts)
}

// Balance returns the signed sum of a user's ledger entries.
func (s *Service) Balance(user string) (int, error) {
	var balance sql.NullInt64
	err := s.db.QueryRow(
		`SELECT COALESCE(SUM(points), 0) FROM points_ledger WHERE user_name = ?`,
		user,
	).Scan(&balance)
	if err != nil {
		return 0, fmt.Errorf("sum ledger: %w", err)
	}
	return int(balance.Int64), nil
}

// BalanceDetail breaks a user's balance into earned and spent totals.
func (s *Service) BalanceDetail(user string) (*model.PointBalance, error) {
	var earned, spent int
	err := s.db.QueryRow(
		`SELECT
			COALESCE(SUM(CASE WHEN kind = 'earn' THEN points ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN kind = 'redeem' THEN -points ELSE 0 END), 0)
		FROM points_ledger WHERE user_name = ?`,
		user,
	).Scan(&earned, &spent)
	if err != nil {
		return nil, fmt.Errorf("sum ledger: %w", err)
	}

	return &model.PointBalance{
		User:    user,
		Earned:  earned,
		Spent:   spent,
		Balance: earned - spent,
	}, nil
}

// LeaderboardWeek returns earn totals per user for [start, end] inclusive,
// highest first, ties broken by name.
func (s *Service) LeaderboardWeek(start, end time.Time) ([]model.LeaderboardRow, error) {
	rows, err := s.db.Query(
		`SELECT user_name, COALESCE(SUM(points), 0) AS pts
		FROM points_ledger
		WHERE kind = 'earn' AND occurred_at >= ? AND occurred_at < ?
		GROUP BY user_name
		ORDER BY pts DESC, user_name ASC`,
		start.UTC().Format(dateLayout), end.AddDate(0, 0, 1).UTC().Format(dateLayout),
	)
	if err != nil {
		return nil, fmt.Errorf("leaderboard query: %w", err)
	}
	defer rows.Close()

	var board []model.LeaderboardRow
	for rows.Next() {
		var r model.LeaderboardRow
		if err := rows.Scan(&r.User, &r.Points); err != nil {
			return nil, fmt.Errorf("scan leaderboard row: %w", err)
		}
		board = append(board, r)
	}
	return board, rows.Err()
}

// ListLedger returns a user's ledger entries, newest first.
func (s *Service) ListLedger(user string) ([]model.LedgerEntry, error) {
	rows, err := s.db.Query(
		`SELECT id, user_name, definition_id, due_date, points, kind, occurred_at
		FROM points_ledger WHERE user_name = ? ORDER BY occurred_at DESC, id DESC`,
		user,
	)
	if err != nil {
		return nil, fmt.Errorf("list ledger: %w", err)
	}
	defer rows.Close()

	var entries []model.LedgerEntry
	for rows.Next() {
		var e model.LedgerEntry
		var definitionID, dueText sql.NullString
		if err := rows.Scan(&e.ID, &e.User, &definitionID, &dueText, &e.Points, &e.Kind, &e.OccurredAt); err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		if definitionID.Valid {
			e.DefinitionID = &definitionID.String
		}
		if dueText.Valid {
			due, err := time.Parse(dateLayout, dueText.String)
			if err != nil {
				return nil, fmt.Errorf("parse due date %q: %w", dueText.String, err)
			}
			e.DueDate = &due
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Redeem spends points on a reward. The balance check and the ledger insert
// run in one transaction; two concurrent redemptions cannot both read a stale
// sufficient balance and overdraw.
func (s *Service) Redeem(user string, rewardID int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var cost int
	err = tx.QueryRow(`SELECT cost_points FROM rewards WHERE id = ? AND active = 1`, rewardID).Scan(&cost)
	if err == sql.ErrNoRows {
		return ErrRewardNotFound
	}
	if err != nil {
		return fmt.Errorf("get reward cost: %w", err)
	}

	var balance sql.NullInt64
	err = tx.QueryRow(`SELECT COALESCE(SUM(points), 0) FROM points_ledger WHERE user_name = ?`, user).Scan(&balance)
	if err != nil {
		return fmt.Errorf("sum ledger: %w", err)
	}
	if int(balance.Int64) < cost {
		return fmt.Errorf("%w: have %d, need %d", ErrInsufficientBalance, balance.Int64, cost)
	}

	if _, err := tx.Exec(
		`INSERT INTO points_ledger (user_name, points, kind) VALUES (?, ?, 'redeem')`,
		user, -cost,
	); err != nil {
		return fmt.Errorf("insert redeem entry: %w", err)
	}

	if _, err := tx.Exec(
		`INSERT INTO redemptions (user_name, reward_id, points) VALUES (?, ?, ?)`,
		user, rewardID, cost,
	); err != nil {
		return fmt.Errorf("insert redemption: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit redeem: %w", err)
	}

	s.logger.Info("reward redeemed", "user", user, "reward_id", rewardID, "points", cost)
	return nil
}
