package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GradingResult is the pass/fail outcome of one criterion for one submission.
type GradingResult struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	SubmissionID uuid.UUID `gorm:"type:uuid;not null;index" json:"submission_id"`
	TaskName     string    `gorm:"type:text;not null" json:"task_name"`
	IsPassed     bool      `gorm:"not null" json:"is_passed"`
	Position     int       `gorm:"not null" json:"position"`
	CreatedAt    time.Time `json:"created_at"`
}

// BeforeCreate assigns a random identifier when none was provided.
func (r *GradingResult) BeforeCreate(_ *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
