package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SubmissionStatus is the terminal state of a submission.
type SubmissionStatus string

const (
	// SubmissionStatusFailed marks a provisional row or a submission whose grading did not succeed.
	SubmissionStatusFailed SubmissionStatus = "FAILED"
	// SubmissionStatusCompleted marks a submission the grading worker reported as successful.
	SubmissionStatusCompleted SubmissionStatus = "COMPLETED"
)

// Submission represents a learner's project handed in for an assignment.
type Submission struct {
	ID               uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	UserID           uuid.UUID        `gorm:"type:uuid;not null;index" json:"user_id"`
	AssignmentID     uuid.UUID        `gorm:"type:uuid;not null;index" json:"assignment_id"`
	FileURL          string           `gorm:"type:text;not null" json:"file_url"`
	SourceArchiveURL string           `gorm:"type:text" json:"source_archive_url,omitempty"`
	Status           SubmissionStatus `gorm:"size:16;not null" json:"status"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
	Assignment       Assignment       `gorm:"foreignKey:AssignmentID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	Results          []GradingResult  `gorm:"foreignKey:SubmissionID" json:"results,omitempty"`
}

// NewProvisionalSubmission builds the row written before the outcome of a submission is known.
// It starts out failed so an aborted workflow leaves a traceable record behind.
func NewProvisionalSubmission(assignmentID, userID uuid.UUID, fileURL string) Submission {
	return Submission{
		ID:           uuid.New(),
		UserID:       userID,
		AssignmentID: assignmentID,
		FileURL:      fileURL,
		Status:       SubmissionStatusFailed,
	}
}

// BeforeCreate assigns a random identifier when none was provided.
func (s *Submission) BeforeCreate(_ *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// MarkCompleted records a successful grading run for the given artifact.
func (s *Submission) MarkCompleted(artifactURL string) {
	s.FileURL = artifactURL
	s.Status = SubmissionStatusCompleted
}

// MarkFailed records an unsuccessful grading run for the given artifact.
func (s *Submission) MarkFailed(artifactURL string) {
	s.FileURL = artifactURL
	s.Status = SubmissionStatusFailed
}
