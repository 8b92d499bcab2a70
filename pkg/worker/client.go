package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	// DefaultTimeout bounds a single grading call.
	DefaultTimeout = 60 * time.Second
	// PlaceholderCriterion names the synthesized failure when a request carries no criteria.
	PlaceholderCriterion = "Grading Evaluation"

	msgEmptyResponse = "Empty response from grading worker"
	msgInvalidJSON   = "Invalid JSON response"
	msgNoResults     = "Worker reported no results"
	msgMisaligned    = "Worker results did not match criteria"
)

var (
	gradeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "connectable",
		Subsystem: "grading",
		Name:      "request_duration_seconds",
		Help:      "Duration of grading worker calls",
	}, []string{"outcome"})

	gradeFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "connectable",
		Subsystem: "grading",
		Name:      "fallbacks_total",
		Help:      "Number of synthesized grading failures",
	}, []string{"reason"})
)

// Config defines configuration options for the grading worker client.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient HTTPDoer
	Logger     zerolog.Logger
}

// Client talks to the remote grading worker over HTTP.
type Client struct {
	endpoint string
	timeout  time.Duration
	http     HTTPDoer
	tracer   trace.Tracer
	logger   zerolog.Logger
}

// NewClient builds a grading client using the provided configuration.
func NewClient(cfg Config) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("grading worker url is required")
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	logger := cfg.Logger
	if logger.GetLevel() == zerolog.Disabled {
		logger = zerolog.Nop()
	}

	return &Client{
		endpoint: baseURL + "/grade",
		timeout:  cfg.Timeout,
		http:     httpClient,
		tracer:   otel.Tracer("github.com/RoundTable02/gdgoc-onewave-be/pkg/worker"),
		logger:   logger.With().Str("component", "grading_client").Logger(),
	}, nil
}

type fallbackReason string

const (
	reasonNetwork   fallbackReason = "network"
	reasonEmpty     fallbackReason = "empty"
	reasonInvalid   fallbackReason = "invalid"
	reasonNoResults fallbackReason = "no_results"

	reasonMisaligned fallbackReason = "misaligned"
)

type gradeFailure struct {
	reason  fallbackReason
	message string
}

// Grade posts req to the worker once and returns its verdict. Every failure mode is turned
// into a synthesized response that fails each requested criterion.
func (c *Client) Grade(parent context.Context, req GradingRequest) GradingResponse {
	ctx, span := c.tracer.Start(parent, "worker.grade", trace.WithAttributes(
		attribute.String("submission.id", req.SubmissionID),
		attribute.Int("grading.criteria", len(req.SubTasks)),
	))
	defer span.End()

	start := time.Now()
	resp, failure := c.call(ctx, req)
	if failure != nil {
		gradeDuration.WithLabelValues("fallback").Observe(time.Since(start).Seconds())
		gradeFallbacks.WithLabelValues(string(failure.reason)).Inc()
		span.SetStatus(codes.Error, failure.message)
		c.logger.Warn().
			Str("submission_id", req.SubmissionID).
			Str("reason", string(failure.reason)).
			Str("error", failure.message).
			Msg("grading worker failed, using fallback result")
		return Fallback(req, failure.message)
	}

	gradeDuration.WithLabelValues("success").Observe(time.Since(start).Seconds())
	if resp.SubmissionID == "" {
		resp.SubmissionID = req.SubmissionID
	}

	received := len(resp.Results)
	resp, missing := alignResults(req, resp)
	if missing > 0 || received != len(resp.Results) {
		if missing > 0 {
			gradeFallbacks.WithLabelValues(string(reasonMisaligned)).Inc()
		}
		c.logger.Warn().
			Str("submission_id", req.SubmissionID).
			Int("criteria", len(req.SubTasks)).
			Int("received", received).
			Int("missing", missing).
			Msg("grading worker results did not line up with criteria")
	}

	span.SetAttributes(
		attribute.Bool("grading.success", resp.Success),
		attribute.Int("grading.results", len(resp.Results)),
		attribute.Int("grading.passed", resp.PassedCount()),
	)

	return resp
}

// alignResults orders the worker verdicts by the requested criteria. Criteria the worker did
// not report fail and mark the response unsuccessful; names nobody asked for are dropped.
// It returns the number of criteria that had no verdict.
func alignResults(req GradingRequest, resp GradingResponse) (GradingResponse, int) {
	if len(req.SubTasks) == 0 {
		return resp, 0
	}

	pending := make(map[string][]bool, len(resp.Results))
	for _, result := range resp.Results {
		pending[result.TaskName] = append(pending[result.TaskName], result.IsPassed)
	}

	missing := 0
	aligned := make([]TaskResult, 0, len(req.SubTasks))
	for _, task := range req.SubTasks {
		verdicts := pending[task]
		if len(verdicts) == 0 {
			missing++
			aligned = append(aligned, TaskResult{TaskName: task, IsPassed: false})
			continue
		}
		aligned = append(aligned, TaskResult{TaskName: task, IsPassed: verdicts[0]})
		pending[task] = verdicts[1:]
	}

	resp.Results = aligned
	if missing > 0 {
		resp.Success = false
		if strings.TrimSpace(resp.ErrorMessage) == "" {
			resp.ErrorMessage = msgMisaligned
		} else {
			resp.ErrorMessage = msgMisaligned + ": " + strings.TrimSpace(resp.ErrorMessage)
		}
	}
	return resp, missing
}

func (c *Client) call(parent context.Context, req GradingRequest) (GradingResponse, *gradeFailure) {
	ctx, cancel := context.WithTimeout(parent, c.timeout)
	defer cancel()

	if req.SubTasks == nil {
		req.SubTasks = []string{}
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return GradingResponse{}, networkFailure(err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return GradingResponse{}, networkFailure(err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return GradingResponse{}, networkFailure(err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return GradingResponse{}, networkFailure(err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return GradingResponse{}, networkFailure(fmt.Errorf("worker responded with status %d", httpResp.StatusCode))
	}

	return decodeResponse(body)
}

func decodeResponse(body []byte) (GradingResponse, *gradeFailure) {
	if len(bytes.TrimSpace(body)) == 0 {
		return GradingResponse{}, &gradeFailure{reason: reasonEmpty, message: msgEmptyResponse}
	}

	var document interface{}
	if err := json.Unmarshal(body, &document); err != nil {
		return GradingResponse{}, &gradeFailure{reason: reasonInvalid, message: msgInvalidJSON}
	}
	if err := responseSchema.Validate(document); err != nil {
		return GradingResponse{}, &gradeFailure{reason: reasonInvalid, message: msgInvalidJSON}
	}

	var resp GradingResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return GradingResponse{}, &gradeFailure{reason: reasonInvalid, message: msgInvalidJSON}
	}

	if len(resp.Results) == 0 {
		message := msgNoResults
		if detail := strings.TrimSpace(resp.ErrorMessage); detail != "" {
			message = message + ": " + detail
		}
		return GradingResponse{}, &gradeFailure{reason: reasonNoResults, message: message}
	}

	return resp, nil
}

func networkFailure(err error) *gradeFailure {
	return &gradeFailure{reason: reasonNetwork, message: "Network error: " + err.Error()}
}

// Fallback synthesizes a failed verdict for every criterion of req, in request order.
func Fallback(req GradingRequest, message string) GradingResponse {
	results := make([]TaskResult, 0, len(req.SubTasks))
	for _, task := range req.SubTasks {
		results = append(results, TaskResult{TaskName: task, IsPassed: false})
	}
	if len(results) == 0 {
		results = append(results, TaskResult{TaskName: PlaceholderCriterion, IsPassed: false})
	}

	return GradingResponse{
		SubmissionID: req.SubmissionID,
		Success:      false,
		Results:      results,
		ErrorMessage: message,
	}
}
