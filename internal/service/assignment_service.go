package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/RoundTable02/gdgoc-onewave-be/internal/dto"
	"github.com/RoundTable02/gdgoc-onewave-be/internal/models"
	"github.com/RoundTable02/gdgoc-onewave-be/internal/repository"
	"github.com/RoundTable02/gdgoc-onewave-be/pkg/ai"
)

var (
	// ErrAssignmentNotFound indicates the requested assignment does not exist.
	ErrAssignmentNotFound = errors.New("assignment not found")
	// ErrScriptGenerationFailed indicates the grading script for a new assignment could not be produced.
	ErrScriptGenerationFailed = ai.ErrScriptGenerationFailed
)

// AssignmentService exposes assignment domain use cases.
type AssignmentService interface {
	Create(ctx context.Context, payload dto.AssignmentCreateRequest) (dto.AssignmentResponse, error)
	List(ctx context.Context, query dto.AssignmentListQuery) (dto.AssignmentListResponse, error)
	Get(ctx context.Context, id uuid.UUID) (dto.AssignmentResponse, error)
	Lookup(ctx context.Context, id uuid.UUID) (models.Assignment, error)
}

type assignmentService struct {
	repo      repository.AssignmentRepository
	validator *validator.Validate
	generator ai.ScriptGenerator
	cache     *redis.Client
	cacheTTL  time.Duration
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
}

// NewAssignmentService builds a new assignment service. cache may be nil.
func NewAssignmentService(repo repository.AssignmentRepository, validate *validator.Validate, generator ai.ScriptGenerator, cache *redis.Client, ttl time.Duration, logger zerolog.Logger) AssignmentService {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}

	return &assignmentService{
		repo:      repo,
		validator: validate,
		generator: generator,
		cache:     cache,
		cacheTTL:  ttl,
		sanitizer: bluemonday.UGCPolicy(),
		logger:    logger.With().Str("component", "assignment_service").Logger(),
	}
}

func (s *assignmentService) Create(ctx context.Context, payload dto.AssignmentCreateRequest) (dto.AssignmentResponse, error) {
	payload.Title = strings.TrimSpace(payload.Title)
	subTasks := make([]string, 0, len(payload.SubTasks))
	for _, task := range payload.SubTasks {
		subTasks = append(subTasks, strings.TrimSpace(task))
	}
	payload.SubTasks = subTasks

	if err := s.validator.Struct(payload); err != nil {
		return dto.AssignmentResponse{}, err
	}

	userID, err := uuid.Parse(payload.UserID)
	if err != nil {
		return dto.AssignmentResponse{}, err
	}

	content := s.sanitizer.Sanitize(payload.Content)
	if s.generator == nil {
		return dto.AssignmentResponse{}, fmt.Errorf("%w: no script generator configured", ErrScriptGenerationFailed)
	}

	script, err := s.generator.GenerateScript(ctx, payload.SubTasks, content)
	if err != nil {
		s.logger.Error().Err(err).Str("title", payload.Title).Msg("failed to generate grading script")
		if errors.Is(err, ErrScriptGenerationFailed) {
			return dto.AssignmentResponse{}, err
		}
		return dto.AssignmentResponse{}, fmt.Errorf("%w: %v", ErrScriptGenerationFailed, err)
	}

	assignment := models.Assignment{
		UserID:   userID,
		Title:    payload.Title,
		Content:  content,
		AIScript: script,
	}
	assignment.SetSubTasks(payload.SubTasks)

	if err := s.repo.Create(ctx, &assignment); err != nil {
		return dto.AssignmentResponse{}, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	s.logger.Info().
		Str("assignment_id", assignment.ID.String()).
		Int("sub_tasks", len(payload.SubTasks)).
		Msg("assignment created")

	return dto.NewAssignmentResponse(assignment), nil
}

func (s *assignmentService) List(ctx context.Context, query dto.AssignmentListQuery) (dto.AssignmentListResponse, error) {
	if err := s.validator.Struct(query); err != nil {
		return dto.AssignmentListResponse{}, err
	}

	size := query.Size
	if size <= 0 || size > dto.MaxPageSize {
		size = dto.DefaultPageSize
	}

	assignments, total, err := s.repo.List(ctx, repository.AssignmentPage{Page: query.Page, PageSize: size})
	if err != nil {
		return dto.AssignmentListResponse{}, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	return dto.NewAssignmentListResponse(assignments, query.Page, size, total), nil
}

func (s *assignmentService) Get(ctx context.Context, id uuid.UUID) (dto.AssignmentResponse, error) {
	assignment, err := s.Lookup(ctx, id)
	if err != nil {
		return dto.AssignmentResponse{}, err
	}

	return dto.NewAssignmentResponse(assignment), nil
}

// Lookup returns the stored assignment, reading through the cache when one is configured.
func (s *assignmentService) Lookup(ctx context.Context, id uuid.UUID) (models.Assignment, error) {
	cacheKey := fmt.Sprintf("assignment:%s", id)

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil {
			var assignment models.Assignment
			if unmarshalErr := json.Unmarshal([]byte(cached), &assignment); unmarshalErr == nil {
				s.logger.Debug().Str("assignment_id", id.String()).Msg("assignment cache hit")
				return assignment, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Msg("failed to read assignment cache")
		}
	}

	assignment, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Assignment{}, ErrAssignmentNotFound
		}
		return models.Assignment{}, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	if s.cache != nil {
		payload, err := json.Marshal(assignment)
		if err == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store assignment cache")
			}
		}
	}

	return assignment, nil
}
