package model

import "time"

// LedgerKind distinguishes earned points from redeemed points.
type LedgerKind string

const (
	KindEarn   LedgerKind = "earn"
	KindRedeem LedgerKind = "redeem"
)

// LedgerEntry is one append-only row in the points ledger. Earn entries carry
// the (definition, due date) occurrence reference; redeem entries do not.
type LedgerEntry struct {
	ID           int64      `json:"id"`
	User         string     `json:"user"`
	DefinitionID *string    `json:"definition_id"`
	DueDate      *time.Time `json:"due_date"`
	Points       int        `json:"points"`
	Kind         LedgerKind `json:"kind"`
	OccurredAt   time.Time  `json:"occurred_at"`
}

type Reward struct {
	ID         int64     `json:"id"`
	Title      string    `json:"title"`
	CostPoints int       `json:"cost_points"`
	Active     bool      `json:"active"`
	CreatedAt  time.Time `json:"created_at"`
}

type Redemption struct {
	ID         int64     `json:"id"`
	User       string    `json:"user"`
	RewardID   int64     `json:"reward_id"`
	Points     int       `json:"points"`
	OccurredAt time.Time `json:"occurred_at"`
}

// PointBalance is the signed ledger sum for one household member.
type PointBalance struct {
	User    string `json:"user"`
	Earned  int    `json:"earned"`
	Spent   int    `json:"spent"`
	Balance int    `json:"balance"`
}

type LeaderboardRow struct {
	User   string `json:"user"`
	Points int    `json:"points"`
}
