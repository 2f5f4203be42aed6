package subject

import (
	"errors"
	"time"
)

type Subject struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Color     *string   `json:"color"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

var (
	ErrNotFound  = errors.New("subject not found")
	ErrNameTaken = errors.New("subject name already exists")
)

type CreateSubjectRequest struct {
	Name  string  `json:"name" binding:"required,min=1,max=60"`
	Color *string `json:"color" binding:"omitempty,max=7"`
}

type RenameSubjectRequest struct {
	NewName string `json:"new_name" binding:"required,min=1,max=60"`
}

type JoinSubjectsRequest struct {
	SourceSubjectID string `json:"source_subject_id" binding:"required,uuid"`
	TargetSubjectID string `json:"target_subject_id" binding:"required,uuid"`
	// nil means true; callers must opt out of deleting the source
	DeleteSource *bool `json:"delete_source"`
}

type JoinResult struct {
	MovedCount      int    `json:"moved_count"`
	TargetSubjectID string `json:"target_subject_id"`
}
