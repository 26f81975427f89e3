package points

import (
	"database/sql"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/rmorriss/hearth/internal/database"
	"github.com/rmorriss/hearth/internal/store"
)

func setupPoints(t *testing.T) (*Service, *store.RewardStore, *sql.DB) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewService(db, slog.Default()), store.NewRewardStore(db), db
}

func key(defID, due string) OccurrenceKey {
	d, err := time.Parse("2006-01-02", due)
	if err != nil {
		panic(err)
	}
	return OccurrenceKey{DefinitionID: defID, DueDate: d}
}

func TestGrantIdempotent(t *testing.T) {
	svc, _, _ := setupPoints(t)

	k := key("def-1", "2025-08-08")
	granted, err := svc.Grant("aria", k, 5)
	if err != nil {
		t.Fatalf("grant: %v", err)
	}
	if !granted {
		t.Fatal("first grant should insert")
	}

	granted, err = svc.Grant("aria", k, 5)
	if err != nil {
		t.Fatalf("duplicate grant: %v", err)
	}
	if granted {
		t.Error("duplicate grant should be ignored")
	}

	balance, err := svc.Balance("aria")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != 5 {
		t.Errorf("balance = %d, want 5", balance)
	}
}

func TestGrantDistinctKeys(t *testing.T) {
	svc, _, _ := setupPoints(t)

	// Same definition on different dates, and different users on the same
	// occurrence, are all distinct payments.
	grants := []struct {
		user string
		k    OccurrenceKey
	}{
		{"aria", key("def-1", "2025-08-08")},
		{"aria", key("def-1", "2025-08-09")},
		{"finn", key("def-1", "2025-08-08")},
	}
	for _, g := range grants {
		granted, err := svc.Grant(g.user, g.k, 5)
		if err != nil {
			t.Fatalf("grant %v: %v", g, err)
		}
		if !granted {
			t.Errorf("grant %v should insert", g)
		}
	}

	if b, _ := svc.Balance("aria"); b != 10 {
		t.Errorf("aria balance = %d, want 10", b)
	}
	if b, _ := svc.Balance("finn"); b != 5 {
		t.Errorf("finn balance = %d, want 5", b)
	}
}

func TestGrantConcurrentDuplicates(t *testing.T) {
	svc, _, _ := setupPoints(t)

	k := key("def-1", "2025-08-08")
	var wg sync.WaitGroup
	granted := make(chan bool, 10)

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := svc.Grant("aria", k, 5)
			if err != nil {
				t.Errorf("grant: %v", err)
				return
			}
			granted <- ok
		}()
	}
	wg.Wait()
	close(granted)

	wins := 0
	for ok := range granted {
		if ok {
			wins++
		}
	}
	if wins != 1 {
		t.Errorf("concurrent grants succeeded %d times, want 1", wins)
	}

	balance, err := svc.Balance("aria")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != 5 {
		t.Errorf("balance = %d, want 5", balance)
	}
}

func TestBalanceDetail(t *testing.T) {
	svc, rewards, _ := setupPoints(t)

	if _, err := svc.Grant("aria", key("def-1", "2025-08-08"), 50); err != nil {
		t.Fatalf("grant: %v", err)
	}
	r, err := rewards.Create("Ice cream", 20, true)
	if err != nil {
		t.Fatalf("create reward: %v", err)
	}
	if err := svc.Redeem("aria", r.ID); err != nil {
		t.Fatalf("redeem: %v", err)
	}

	detail, err := svc.BalanceDetail("aria")
	if err != nil {
		t.Fatalf("balance detail: %v", err)
	}
	if detail.Earned != 50 {
		t.Errorf("earned = %d, want 50", detail.Earned)
	}
	if detail.Spent != 20 {
		t.Errorf("spent = %d, want 20", detail.Spent)
	}
	if detail.Balance != 30 {
		t.Errorf("balance = %d, want 30", detail.Balance)
	}
}

func TestRedeemInsufficientBalance(t *testing.T) {
	svc, rewards, db := setupPoints(t)

	if _, err := svc.Grant("aria", key("def-1", "2025-08-08"), 10); err != nil {
		t.Fatalf("grant: %v", err)
	}
	r, err := rewards.Create("Movie night", 50, true)
	if err != nil {
		t.Fatalf("create reward: %v", err)
	}

	err = svc.Redeem("aria", r.ID)
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("err = %v, want ErrInsufficientBalance", err)
	}

	// The failed redemption left no trace.
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM redemptions`).Scan(&n); err != nil {
		t.Fatalf("count redemptions: %v", err)
	}
	if n != 0 {
		t.Errorf("redemptions = %d, want 0", n)
	}
	if b, _ := svc.Balance("aria"); b != 10 {
		t.Errorf("balance = %d, want 10", b)
	}
}

func TestRedeemMissingOrInactiveReward(t *testing.T) {
	svc, rewards, _ := setupPoints(t)

	if err := svc.Redeem("aria", 9999); !errors.Is(err, ErrRewardNotFound) {
		t.Errorf("missing reward err = %v, want ErrRewardNotFound", err)
	}

	r, err := rewards.Create("Retired", 10, false)
	if err != nil {
		t.Fatalf("create reward: %v", err)
	}
	if err := svc.Redeem("aria", r.ID); !errors.Is(err, ErrRewardNotFound) {
		t.Errorf("inactive reward err = %v, want ErrRewardNotFound", err)
	}
}

func TestRedeemExactBalance(t *testing.T) {
	svc, rewards, _ := setupPoints(t)

	if _, err := svc.Grant("aria", key("def-1", "2025-08-08"), 20); err != nil {
		t.Fatalf("grant: %v", err)
	}
	r, err := rewards.Create("Ice cream", 20, true)
	if err != nil {
		t.Fatalf("create reward: %v", err)
	}

	if err := svc.Redeem("aria", r.ID); err != nil {
		t.Fatalf("redeem at exact balance: %v", err)
	}
	if b, _ := svc.Balance("aria"); b != 0 {
		t.Errorf("balance = %d, want 0", b)
	}
}

func TestConcurrentRedeemsNeverOverdraw(t *testing.T) {
	svc, rewards, _ := setupPoints(t)

	// Balance covers one redemption, not two.
	if _, err := svc.Grant("aria", key("def-1", "2025-08-08"), 30); err != nil {
		t.Fatalf("grant: %v", err)
	}
	r, err := rewards.Create("Movie night", 20, true)
	if err != nil {
		t.Fatalf("create reward: %v", err)
	}

	var wg sync.WaitGroup
	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- svc.Redeem("aria", r.ID)
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
		} else if !errors.Is(err, ErrInsufficientBalance) {
			t.Errorf("unexpected redeem error: %v", err)
		}
	}
	if succeeded != 1 {
		t.Errorf("redemptions succeeded = %d, want 1", succeeded)
	}

	balance, err := svc.Balance("aria")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != 10 {
		t.Errorf("balance = %d, want 10", balance)
	}
}

func TestLeaderboardWeek(t *testing.T) {
	svc, _, _ := setupPoints(t)

	// Earn entries timestamp at insert time; everything lands inside a window
	// around today.
	if _, err := svc.Grant("aria", key("def-1", "2025-08-08"), 15); err != nil {
		t.Fatalf("grant: %v", err)
	}
	if _, err := svc.Grant("finn", key("def-1", "2025-08-09"), 10); err != nil {
		t.Fatalf("grant: %v", err)
	}
	if _, err := svc.Grant("finn", key("def-2", "2025-08-09"), 5); err != nil {
		t.Fatalf("grant: %v", err)
	}

	start := time.Now().UTC().AddDate(0, 0, -1)
	end := time.Now().UTC().AddDate(0, 0, 1)
	board, err := svc.LeaderboardWeek(start, end)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(board) != 2 {
		t.Fatalf("rows = %d, want 2", len(board))
	}
	// Both at 15: tie broken by name.
	if board[0].User != "aria" || board[0].Points != 15 {
		t.Errorf("board[0] = %+v, want aria/15", board[0])
	}
	if board[1].User != "finn" || board[1].Points != 15 {
		t.Errorf("board[1] = %+v, want finn/15", board[1])
	}

	// A window in the past excludes everything.
	past := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	board, err = svc.LeaderboardWeek(past, past.AddDate(0, 0, 6))
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(board) != 0 {
		t.Errorf("past window rows = %d, want 0", len(board))
	}
}

func TestLeaderboardExcludesRedemptions(t *testing.T) {
	svc, rewards, _ := setupPoints(t)

	if _, err := svc.Grant("aria", key("def-1", "2025-08-08"), 30); err != nil {
		t.Fatalf("grant: %v", err)
	}
	r, err := rewards.Create("Ice cream", 20, true)
	if err != nil {
		t.Fatalf("create reward: %v", err)
	}
	if err := svc.Redeem("aria", r.ID); err != nil {
		t.Fatalf("redeem: %v", err)
	}

	start := time.Now().UTC().AddDate(0, 0, -1)
	end := time.Now().UTC().AddDate(0, 0, 1)
	board, err := svc.LeaderboardWeek(start, end)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(board) != 1 || board[0].Points != 30 {
		t.Fatalf("board = %+v, want aria at 30 earned", board)
	}
}
