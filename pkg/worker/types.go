package worker

import (
	"context"
	"net/http"
)

// GradingRequest is the payload posted to the grading worker.
type GradingRequest struct {
	SubmissionID     string   `json:"submissionId"`
	TargetURL        string   `json:"targetUrl"`
	PlaywrightScript string   `json:"playwrightScript"`
	SubTasks         []string `json:"subTasks"`
}

// TaskResult is the verdict for a single grading criterion.
type TaskResult struct {
	TaskName string `json:"taskName"`
	IsPassed bool   `json:"isPassed"`
}

// GradingResponse is the worker verdict, or a synthesized failure when the worker could not
// produce one.
type GradingResponse struct {
	SubmissionID string       `json:"submissionId"`
	Success      bool         `json:"success"`
	Results      []TaskResult `json:"results"`
	ErrorMessage string       `json:"errorMessage,omitempty"`
}

// PassedCount returns the number of passed criteria.
func (r GradingResponse) PassedCount() int {
	passed := 0
	for _, result := range r.Results {
		if result.IsPassed {
			passed++
		}
	}
	return passed
}

// Grader grades a published artifact. Implementations never return an error; failures are
// reported through a synthesized response.
type Grader interface {
	Grade(ctx context.Context, req GradingRequest) GradingResponse
}

// HTTPDoer is satisfied by *http.Client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}
