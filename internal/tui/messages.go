package tui

import "foodprices/internal/models"

// SummaryMsg carries a freshly computed summary for the current selection.
type SummaryMsg struct {
	Summary *models.Summary
	Seq     int
}

// ErrorMsg reports a failed query.
type ErrorMsg struct {
	Err error
	Seq int
}
