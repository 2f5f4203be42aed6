package timeentry

import (
	"errors"
	"time"
)

// Dates travel as plain YYYY-MM-DD strings end to end; the DATE column
// has no time component and formatting it once in SQL avoids timezone
// drift on the way out.
type TimeEntry struct {
	ID              string    `json:"id"`
	SubjectID       string    `json:"subject_id"`
	SubjectName     string    `json:"subject_name"`
	Date            string    `json:"date"`
	DurationMinutes int       `json:"duration_minutes"`
	Notes           *string   `json:"notes"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

var ErrNotFound = errors.New("time entry not found")

// ConflictError reports a blocked insert for a day that already has an
// entry, carrying the entry so the handler can embed it in the response.
type ConflictError struct {
	Latest TimeEntry
}

func (e *ConflictError) Error() string {
	return "latest entry exists on this date"
}

type CreateTimeEntryRequest struct {
	SubjectID              *string `json:"subject_id" binding:"omitempty,uuid"`
	SubjectName            *string `json:"subject_name" binding:"omitempty,min=1,max=60"`
	Date                   *string `json:"date" binding:"omitempty,datetime=2006-01-02"`
	DurationMinutes        int     `json:"duration_minutes" binding:"required,min=1,max=1440"`
	Notes                  *string `json:"notes" binding:"omitempty,max=500"`
	OverwriteLatestOverlap bool    `json:"overwrite_latest_overlap"`
}

type UpdateTimeEntryRequest struct {
	SubjectID       *string `json:"subject_id" binding:"omitempty,uuid"`
	Date            *string `json:"date" binding:"omitempty,datetime=2006-01-02"`
	DurationMinutes *int    `json:"duration_minutes" binding:"omitempty,min=1,max=1440"`
	Notes           *string `json:"notes" binding:"omitempty,max=500"`
}

// with pointers if optional, it will be nil
type ListFilter struct {
	Start     *string
	End       *string
	SubjectID *string
	Limit     int
	Offset    int
}
