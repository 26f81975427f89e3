package model

import "time"

// MealEntry is one planned meal on the board, pulled from the shared calendar.
type MealEntry struct {
	Date  time.Time `json:"date"`
	Title string    `json:"title"`
}
