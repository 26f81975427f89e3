// Package meals presents a read-only meal plan pulled from an external
// calendar. Entries are fetched on demand, never stored locally.
package meals

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/rmorriss/hearth/internal/model"
	"github.com/rmorriss/hearth/internal/recurrence"
)

const dateLayout = "2006-01-02"

// CalendarProvider fetches raw meal titles keyed by "2006-01-02" date string
// for a window of days around center.
type CalendarProvider interface {
	FetchWindow(ctx context.Context, center time.Time, halfWindowDays int) (map[string][]string, error)
}

type Service struct {
	provider       CalendarProvider
	halfWindowDays int
	logger         *slog.Logger
}

// NewService creates the meal board service. provider may be nil, in which
// case FetchMeals always returns an empty board.
func NewService(provider CalendarProvider, halfWindowDays int, logger *slog.Logger) *Service {
	return &Service{
		provider:       provider,
		halfWindowDays: halfWindowDays,
		logger:         logger,
	}
}

// FetchMeals returns the meal entries within the window around center,
// deduplicated and sorted for display. A provider failure degrades to an
// empty board: the meal panel going blank must not take the dashboard down.
func (s *Service) FetchMeals(ctx context.Context, center time.Time) []model.MealEntry {
	if s.provider == nil {
		return nil
	}

	raw, err := s.provider.FetchWindow(ctx, center, s.halfWindowDays)
	if err != nil {
		s.logger.Warn("fetch meal calendar failed", "error", err)
		return nil
	}

	centerDay := recurrence.DateOnly(center)
	start := centerDay.AddDate(0, 0, -s.halfWindowDays)
	end := centerDay.AddDate(0, 0, s.halfWindowDays)

	// Later entries for the same (date, title) win, so a corrected calendar
	// event replaces the original rather than appearing twice.
	type mealKey struct {
		date  string
		title string
	}
	seen := make(map[mealKey]model.MealEntry)
	var order []mealKey

	for dateText, titles := range raw {
		date, err := time.Parse(dateLayout, dateText)
		if err != nil {
			s.logger.Warn("skipping malformed meal date", "date", dateText)
			continue
		}
		if date.Before(start) || date.After(end) {
			continue
		}
		for _, title := range titles {
			title = strings.TrimSpace(title)
			if title == "" {
				continue
			}
			k := mealKey{date: dateText, title: title}
			if _, ok := seen[k]; !ok {
				order = append(order, k)
			}
			seen[k] = model.MealEntry{Date: date, Title: title}
		}
	}

	entries := make([]model.MealEntry, 0, len(order))
	for _, k := range order {
		entries = append(entries, seen[k])
	}

	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].Date.Equal(entries[j].Date) {
			return entries[i].Date.Before(entries[j].Date)
		}
		return strings.ToLower(entries[i].Title) < strings.ToLower(entries[j].Title)
	})
	return entries
}
