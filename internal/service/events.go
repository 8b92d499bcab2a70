package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/RoundTable02/gdgoc-onewave-be/internal/models"
)

// SubmissionGradedEvent is broadcast once a submission reaches its final state.
type SubmissionGradedEvent struct {
	SubmissionID uuid.UUID               `json:"submissionId"`
	AssignmentID uuid.UUID               `json:"assignmentId"`
	UserID       uuid.UUID               `json:"userId"`
	Status       models.SubmissionStatus `json:"status"`
	PassedCount  int                     `json:"passedCount"`
	TotalCount   int                     `json:"totalCount"`
	PassRate     string                  `json:"passRate"`
	GradedAt     time.Time               `json:"gradedAt"`
}

// EventPublisher fans out submission lifecycle events.
type EventPublisher interface {
	SubmissionGraded(ctx context.Context, event SubmissionGradedEvent)
}

type brokerEventPublisher struct {
	redis        *redis.Client
	redisChannel string
	nats         *nats.Conn
	natsSubject  string
	logger       zerolog.Logger
}

// NewEventPublisher publishes events to Redis pub/sub and NATS. Either connection may be nil.
func NewEventPublisher(redisClient *redis.Client, natsConn *nats.Conn, channelBase string, logger zerolog.Logger) EventPublisher {
	channel := ""
	subject := ""
	if channelBase != "" {
		channel = channelBase + ":submissions:graded"
		subject = strings.ReplaceAll(channelBase, ":", ".") + ".submissions.graded"
	}

	return &brokerEventPublisher{
		redis:        redisClient,
		redisChannel: channel,
		nats:         natsConn,
		natsSubject:  subject,
		logger:       logger.With().Str("component", "event_publisher").Logger(),
	}
}

// SubmissionGraded never fails the caller; delivery problems are logged.
func (p *brokerEventPublisher) SubmissionGraded(ctx context.Context, event SubmissionGradedEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.Error().Err(err).Msg("failed to encode submission graded event")
		return
	}

	if p.redis != nil && p.redisChannel != "" {
		if err := p.redis.Publish(ctx, p.redisChannel, payload).Err(); err != nil {
			p.logger.Warn().Err(err).Str("submission_id", event.SubmissionID.String()).Msg("failed to publish graded event to redis")
		}
	}

	if p.nats != nil && p.natsSubject != "" {
		if err := p.nats.Publish(p.natsSubject, payload); err != nil {
			p.logger.Warn().Err(err).Str("submission_id", event.SubmissionID.String()).Msg("failed to publish graded event to nats")
		}
	}
}
