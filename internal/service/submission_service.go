package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/RoundTable02/gdgoc-onewave-be/internal/dto"
	"github.com/RoundTable02/gdgoc-onewave-be/internal/models"
	"github.com/RoundTable02/gdgoc-onewave-be/internal/observability"
	"github.com/RoundTable02/gdgoc-onewave-be/internal/repository"
	"github.com/RoundTable02/gdgoc-onewave-be/pkg/worker"
)

var (
	// ErrFileTypeInvalid indicates the uploaded file is not a zip archive.
	ErrFileTypeInvalid = errors.New("only .zip files are allowed")
	// ErrSubmissionSourceInvalid indicates the request carried neither or both of an archive and a URL.
	ErrSubmissionSourceInvalid = errors.New("submission requires exactly one of an archive or a url")
	// ErrSubmissionNotFound indicates the requested submission does not exist.
	ErrSubmissionNotFound = errors.New("submission not found")
	// ErrSubmissionFailed is the caller-facing signal for archive and publish failures.
	ErrSubmissionFailed = errors.New("submission could not be processed")
	// ErrPersistence indicates the backing store rejected a read or write.
	ErrPersistence = errors.New("failed to persist data")
)

const submissionPrefix = "submissions"

// SitePublisher hosts an uploaded archive and returns the URL of its entry page.
type SitePublisher interface {
	Publish(ctx context.Context, archive []byte, prefix string) (string, error)
}

// AssignmentLookup resolves the assignment a submission is graded against.
type AssignmentLookup interface {
	Lookup(ctx context.Context, id uuid.UUID) (models.Assignment, error)
}

// ArchiveBackup keeps a copy of the raw uploaded archive.
type ArchiveBackup interface {
	Upload(ctx context.Context, name string, reader io.Reader) (string, error)
}

// SubmissionInput is either a hosted site URL or an uploaded archive.
type SubmissionInput struct {
	URL         string
	ArchiveName string
	Archive     []byte
}

func (in SubmissionInput) hasArchive() bool {
	return in.ArchiveName != "" || len(in.Archive) > 0
}

func (in SubmissionInput) kind() string {
	if in.hasArchive() {
		return "archive"
	}
	return "url"
}

// SubmissionService runs the submit, publish and grade workflow.
type SubmissionService interface {
	Submit(ctx context.Context, assignmentID, userID uuid.UUID, input SubmissionInput) (dto.SubmissionResponse, error)
	Get(ctx context.Context, id uuid.UUID) (dto.SubmissionResponse, error)
	ListByAssignment(ctx context.Context, assignmentID uuid.UUID) ([]dto.SubmissionResponse, error)
}

// SubmissionDependencies groups the collaborators of the submission workflow. Backup and Events
// are optional.
type SubmissionDependencies struct {
	Submissions repository.SubmissionRepository
	Results     repository.GradingResultRepository
	Assignments AssignmentLookup
	Publisher   SitePublisher
	Grader      worker.Grader
	Backup      ArchiveBackup
	Events      EventPublisher
}

type submissionService struct {
	submissions repository.SubmissionRepository
	results     repository.GradingResultRepository
	assignments AssignmentLookup
	publisher   SitePublisher
	grader      worker.Grader
	backup      ArchiveBackup
	events      EventPublisher
	validator   *validator.Validate
	logger      zerolog.Logger
	now         func() time.Time
}

// NewSubmissionService constructs the workflow service.
func NewSubmissionService(deps SubmissionDependencies, validate *validator.Validate, logger zerolog.Logger) SubmissionService {
	return &submissionService{
		submissions: deps.Submissions,
		results:     deps.Results,
		assignments: deps.Assignments,
		publisher:   deps.Publisher,
		grader:      deps.Grader,
		backup:      deps.Backup,
		events:      deps.Events,
		validator:   validate,
		logger:      logger.With().Str("component", "submission_service").Logger(),
		now:         time.Now,
	}
}

func (s *submissionService) Submit(ctx context.Context, assignmentID, userID uuid.UUID, input SubmissionInput) (dto.SubmissionResponse, error) {
	if err := s.validateInput(input); err != nil {
		return dto.SubmissionResponse{}, err
	}

	assignment, err := s.assignments.Lookup(ctx, assignmentID)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	intakeURL := ""
	if !input.hasArchive() {
		intakeURL = strings.TrimSpace(input.URL)
	}

	submission := models.NewProvisionalSubmission(assignment.ID, userID, intakeURL)
	if err := s.submissions.Create(ctx, &submission); err != nil {
		return dto.SubmissionResponse{}, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	logger := s.logger.With().
		Str("submission_id", submission.ID.String()).
		Str("assignment_id", assignment.ID.String()).
		Str("kind", input.kind()).
		Logger()

	artifactURL := intakeURL
	if input.hasArchive() {
		artifactURL, err = s.publisher.Publish(ctx, input.Archive, path.Join(submissionPrefix, submission.ID.String()))
		if err != nil {
			logger.Error().Err(err).Str("archive", input.ArchiveName).Int("archive_bytes", len(input.Archive)).Msg("failed to publish submission archive")
			observability.Submissions().WithLabelValues(input.kind(), string(models.SubmissionStatusFailed)).Inc()
			return dto.SubmissionResponse{}, ErrSubmissionFailed
		}
		submission.SourceArchiveURL = s.backupArchive(ctx, logger, submission.ID, input.Archive)
	}

	verdict := s.grader.Grade(ctx, worker.GradingRequest{
		SubmissionID:     submission.ID.String(),
		TargetURL:        artifactURL,
		PlaywrightScript: assignment.AIScript,
		SubTasks:         assignment.SubTaskList(),
	})

	if verdict.Success {
		submission.MarkCompleted(artifactURL)
	} else {
		submission.MarkFailed(artifactURL)
		if verdict.ErrorMessage != "" {
			logger.Warn().Str("grading_error", verdict.ErrorMessage).Msg("grading did not succeed")
		}
	}

	if err := s.submissions.Update(ctx, &submission); err != nil {
		return dto.SubmissionResponse{}, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	results := make([]models.GradingResult, 0, len(verdict.Results))
	for i, item := range verdict.Results {
		results = append(results, models.GradingResult{
			SubmissionID: submission.ID,
			TaskName:     item.TaskName,
			IsPassed:     item.IsPassed,
			Position:     i,
		})
	}
	if err := s.results.CreateBatch(ctx, results); err != nil {
		return dto.SubmissionResponse{}, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	response := dto.NewSubmissionResponse(submission, results)
	observability.Submissions().WithLabelValues(input.kind(), string(submission.Status)).Inc()
	logger.Info().
		Str("status", string(submission.Status)).
		Str("pass_rate", response.Summary.PassRate).
		Msg("submission graded")

	if s.events != nil {
		s.events.SubmissionGraded(ctx, SubmissionGradedEvent{
			SubmissionID: submission.ID,
			AssignmentID: submission.AssignmentID,
			UserID:       submission.UserID,
			Status:       submission.Status,
			PassedCount:  response.Summary.PassedCount,
			TotalCount:   response.Summary.TotalCount,
			PassRate:     response.Summary.PassRate,
			GradedAt:     s.now().UTC(),
		})
	}

	return response, nil
}

func (s *submissionService) validateInput(input SubmissionInput) error {
	hasURL := strings.TrimSpace(input.URL) != ""
	if input.hasArchive() == hasURL {
		return ErrSubmissionSourceInvalid
	}

	if hasURL {
		return s.validator.Var(strings.TrimSpace(input.URL), "required,http_url")
	}

	if !strings.EqualFold(filepath.Ext(input.ArchiveName), ".zip") {
		return ErrFileTypeInvalid
	}
	if !isZipContent(input.Archive) {
		return ErrFileTypeInvalid
	}

	return nil
}

func isZipContent(data []byte) bool {
	for mime := mimetype.Detect(data); mime != nil; mime = mime.Parent() {
		if mime.Is("application/zip") || mime.Is("application/x-zip-compressed") {
			return true
		}
	}
	return false
}

// backupArchive uploads the raw archive when a backup target is configured. Failures only lose
// the backup copy.
func (s *submissionService) backupArchive(ctx context.Context, logger zerolog.Logger, id uuid.UUID, archive []byte) string {
	if s.backup == nil {
		return ""
	}

	url, err := s.backup.Upload(ctx, id.String()+".zip", bytes.NewReader(archive))
	if err != nil {
		logger.Warn().Err(err).Msg("failed to back up source archive")
		return ""
	}

	return url
}

func (s *submissionService) Get(ctx context.Context, id uuid.UUID) (dto.SubmissionResponse, error) {
	submission, err := s.submissions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionResponse{}, ErrSubmissionNotFound
		}
		return dto.SubmissionResponse{}, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	return dto.NewSubmissionResponse(submission, submission.Results), nil
}

func (s *submissionService) ListByAssignment(ctx context.Context, assignmentID uuid.UUID) ([]dto.SubmissionResponse, error) {
	if _, err := s.assignments.Lookup(ctx, assignmentID); err != nil {
		return nil, err
	}

	submissions, err := s.submissions.ListByAssignment(ctx, assignmentID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	return dto.NewSubmissionResponseSlice(submissions), nil
}
