package dto

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/RoundTable02/gdgoc-onewave-be/internal/models"
)

// SubmissionURLRequest submits an already hosted site for grading.
type SubmissionURLRequest struct {
	UserID string `json:"userId" validate:"required,uuid"`
	URL    string `json:"url" validate:"required,http_url"`
}

// SubmissionUploadRequest carries the form fields sent next to an uploaded archive.
type SubmissionUploadRequest struct {
	UserID string `form:"userId" validate:"required,uuid"`
}

// GradingResultResponse is the verdict for one criterion.
type GradingResultResponse struct {
	TaskName string `json:"taskName"`
	IsPassed bool   `json:"isPassed"`
}

// GradingSummary aggregates the per-criterion verdicts.
type GradingSummary struct {
	PassedCount int    `json:"passedCount"`
	TotalCount  int    `json:"totalCount"`
	PassRate    string `json:"passRate"`
}

// SubmissionResponse is returned to API clients after grading or when viewing a submission.
type SubmissionResponse struct {
	ID               uuid.UUID               `json:"id"`
	AssignmentID     uuid.UUID               `json:"assignmentId"`
	UserID           uuid.UUID               `json:"userId"`
	FileURL          string                  `json:"fileUrl"`
	SourceArchiveURL string                  `json:"sourceArchiveUrl,omitempty"`
	Status           models.SubmissionStatus `json:"status"`
	GradingResults   []GradingResultResponse `json:"gradingResults"`
	Summary          GradingSummary          `json:"summary"`
	CreatedAt        time.Time               `json:"createdAt"`
}

// NewGradingSummary computes the pass rate as a whole percentage, rounding half away from zero.
func NewGradingSummary(passed, total int) GradingSummary {
	rate := "0%"
	if total > 0 {
		rate = fmt.Sprintf("%d%%", int(math.Round(100*float64(passed)/float64(total))))
	}

	return GradingSummary{
		PassedCount: passed,
		TotalCount:  total,
		PassRate:    rate,
	}
}

// NewSubmissionResponse converts a submission and its results into a DTO. Results keep their
// slice order.
func NewSubmissionResponse(submission models.Submission, results []models.GradingResult) SubmissionResponse {
	items := make([]GradingResultResponse, 0, len(results))
	passed := 0
	for _, result := range results {
		if result.IsPassed {
			passed++
		}
		items = append(items, GradingResultResponse{TaskName: result.TaskName, IsPassed: result.IsPassed})
	}

	return SubmissionResponse{
		ID:               submission.ID,
		AssignmentID:     submission.AssignmentID,
		UserID:           submission.UserID,
		FileURL:          submission.FileURL,
		SourceArchiveURL: submission.SourceArchiveURL,
		Status:           submission.Status,
		GradingResults:   items,
		Summary:          NewGradingSummary(passed, len(results)),
		CreatedAt:        submission.CreatedAt,
	}
}

// NewSubmissionResponseSlice converts stored submissions, using their preloaded results.
func NewSubmissionResponseSlice(submissions []models.Submission) []SubmissionResponse {
	responses := make([]SubmissionResponse, 0, len(submissions))
	for _, submission := range submissions {
		responses = append(responses, NewSubmissionResponse(submission, submission.Results))
	}

	return responses
}
