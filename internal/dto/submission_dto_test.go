package dto_test

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/RoundTable02/gdgoc-onewave-be/internal/dto"
	"github.com/RoundTable02/gdgoc-onewave-be/internal/models"
)

func TestNewGradingSummaryPassRate(t *testing.T) {
	cases := []struct {
		passed, total int
		rate          string
	}{
		{0, 0, "0%"},
		{0, 3, "0%"},
		{1, 3, "33%"},
		{2, 3, "67%"},
		{1, 2, "50%"},
		{1, 8, "13%"},
		{3, 3, "100%"},
	}

	for _, tc := range cases {
		summary := dto.NewGradingSummary(tc.passed, tc.total)
		require.Equal(t, tc.passed, summary.PassedCount)
		require.Equal(t, tc.total, summary.TotalCount)
		require.Equal(t, tc.rate, summary.PassRate, "%d/%d", tc.passed, tc.total)
	}
}

func TestNewSubmissionResponseKeepsResultOrder(t *testing.T) {
	submission := models.NewProvisionalSubmission(uuid.New(), uuid.New(), "")
	submission.MarkCompleted("https://cdn.example.com/sites/submissions/x/index.html")

	response := dto.NewSubmissionResponse(submission, []models.GradingResult{
		{TaskName: "B", IsPassed: true, Position: 0},
		{TaskName: "A", IsPassed: false, Position: 1},
	})

	require.Equal(t, models.SubmissionStatusCompleted, response.Status)
	require.Equal(t, "https://cdn.example.com/sites/submissions/x/index.html", response.FileURL)
	require.Equal(t, []dto.GradingResultResponse{{TaskName: "B", IsPassed: true}, {TaskName: "A", IsPassed: false}}, response.GradingResults)
	require.Equal(t, dto.GradingSummary{PassedCount: 1, TotalCount: 2, PassRate: "50%"}, response.Summary)
}

func TestTruncateContent(t *testing.T) {
	require.Equal(t, "short", dto.TruncateContent("short", 200))

	long := strings.Repeat("가", 250)
	truncated := dto.TruncateContent(long, 200)
	require.Equal(t, strings.Repeat("가", 200)+"...", truncated)
}

func TestNewAssignmentListResponsePages(t *testing.T) {
	assignments := []models.Assignment{{ID: uuid.New(), Title: "Landing page", Content: "Build it"}}
	response := dto.NewAssignmentListResponse(assignments, 1, 20, 41)

	require.Equal(t, 3, response.TotalPages)
	require.Equal(t, int64(41), response.TotalElements)
	require.Len(t, response.Content, 1)
	require.Equal(t, "Build it", response.Content[0].Content)
}
