package dto

import (
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/RoundTable02/gdgoc-onewave-be/internal/models"
)

const (
	contentPreviewLength = 200
	// DefaultPageSize is used when a list request omits or exceeds the page size bounds.
	DefaultPageSize = 20
	// MaxPageSize caps a single list page.
	MaxPageSize = 100
)

// AssignmentCreateRequest describes the payload for creating a new assignment.
type AssignmentCreateRequest struct {
	UserID   string   `json:"userId" validate:"required,uuid"`
	Title    string   `json:"title" validate:"required,max=255"`
	Content  string   `json:"content" validate:"required"`
	SubTasks []string `json:"subTasks" validate:"required,min=1,dive,required"`
}

// AssignmentListQuery captures paging parameters for the assignment list.
type AssignmentListQuery struct {
	Page int `query:"page" validate:"gte=0"`
	Size int `query:"size" validate:"gte=0"`
}

// AssignmentResponse is the full assignment detail returned to API clients.
type AssignmentResponse struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	SubTasks  []string  `json:"subTasks"`
	AIScript  string    `json:"aiScript"`
	CreatedAt time.Time `json:"createdAt"`
}

// AssignmentSummaryResponse is the list representation with a truncated content preview.
type AssignmentSummaryResponse struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// AssignmentListResponse is a single page of assignments.
type AssignmentListResponse struct {
	Content       []AssignmentSummaryResponse `json:"content"`
	Page          int                         `json:"page"`
	Size          int                         `json:"size"`
	TotalElements int64                       `json:"totalElements"`
	TotalPages    int                         `json:"totalPages"`
}

// NewAssignmentResponse converts a model into a DTO.
func NewAssignmentResponse(model models.Assignment) AssignmentResponse {
	return AssignmentResponse{
		ID:        model.ID,
		Title:     model.Title,
		Content:   model.Content,
		SubTasks:  model.SubTaskList(),
		AIScript:  model.AIScript,
		CreatedAt: model.CreatedAt,
	}
}

// NewAssignmentListResponse converts a page of models into a DTO.
func NewAssignmentListResponse(assignments []models.Assignment, page, size int, total int64) AssignmentListResponse {
	content := make([]AssignmentSummaryResponse, 0, len(assignments))
	for _, assignment := range assignments {
		content = append(content, AssignmentSummaryResponse{
			ID:        assignment.ID,
			Title:     assignment.Title,
			Content:   TruncateContent(assignment.Content, contentPreviewLength),
			CreatedAt: assignment.CreatedAt,
		})
	}

	totalPages := 0
	if size > 0 {
		totalPages = int((total + int64(size) - 1) / int64(size))
	}

	return AssignmentListResponse{
		Content:       content,
		Page:          page,
		Size:          size,
		TotalElements: total,
		TotalPages:    totalPages,
	}
}

// TruncateContent shortens content to maxLength runes followed by "..." when it is longer.
func TruncateContent(content string, maxLength int) string {
	if utf8.RuneCountInString(content) <= maxLength {
		return content
	}
	runes := []rune(content)
	return string(runes[:maxLength]) + "..."
}
