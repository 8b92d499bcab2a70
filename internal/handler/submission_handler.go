package handler

import (
	"io"
	"mime/multipart"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/RoundTable02/gdgoc-onewave-be/internal/dto"
	"github.com/RoundTable02/gdgoc-onewave-be/internal/service"
	"github.com/RoundTable02/gdgoc-onewave-be/internal/utils"
)

// SubmissionHandler manages submission endpoints.
type SubmissionHandler struct {
	service        service.SubmissionService
	validator      *validator.Validate
	maxUploadBytes int64
	logger         zerolog.Logger
}

// NewSubmissionHandler builds a submission handler. Archives larger than maxUploadBytes are
// rejected; zero disables the check.
func NewSubmissionHandler(service service.SubmissionService, validator *validator.Validate, maxUploadBytes int64, logger zerolog.Logger) *SubmissionHandler {
	return &SubmissionHandler{
		service:        service,
		validator:      validator,
		maxUploadBytes: maxUploadBytes,
		logger:         logger.With().Str("component", "submission_handler").Logger(),
	}
}

// Register attaches the routes to the /api router group. submitMiddleware runs in front of the
// submit route only.
func (h *SubmissionHandler) Register(router fiber.Router, submitMiddleware ...fiber.Handler) {
	router.Post("/assignments/:id/submissions", append(submitMiddleware, h.submit)...)
	router.Get("/assignments/:id/submissions", h.listByAssignment)
	router.Get("/submissions/:id", h.get)
}

func (h *SubmissionHandler) submit(c *fiber.Ctx) error {
	assignmentID, err := parseUUIDParam(c, "id")
	if err != nil {
		return respondError(c, h.logger, err)
	}

	var (
		userID uuid.UUID
		input  service.SubmissionInput
	)
	if strings.HasPrefix(strings.ToLower(c.Get(fiber.HeaderContentType)), fiber.MIMEMultipartForm) {
		userID, input, err = h.archiveInput(c)
	} else {
		userID, input, err = h.urlInput(c)
	}
	if err != nil {
		return respondError(c, h.logger, err)
	}

	submission, err := h.service.Submit(c.UserContext(), assignmentID, userID, input)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "submission graded", submission)
}

func (h *SubmissionHandler) urlInput(c *fiber.Ctx) (uuid.UUID, service.SubmissionInput, error) {
	var payload dto.SubmissionURLRequest
	if err := c.BodyParser(&payload); err != nil {
		return uuid.Nil, service.SubmissionInput{}, errMalformedBody
	}
	payload.UserID = strings.TrimSpace(payload.UserID)
	payload.URL = strings.TrimSpace(payload.URL)

	if err := h.validator.Struct(payload); err != nil {
		return uuid.Nil, service.SubmissionInput{}, err
	}

	userID, err := uuid.Parse(payload.UserID)
	if err != nil {
		return uuid.Nil, service.SubmissionInput{}, errInvalidIdentifier
	}

	return userID, service.SubmissionInput{URL: payload.URL}, nil
}

func (h *SubmissionHandler) archiveInput(c *fiber.Ctx) (uuid.UUID, service.SubmissionInput, error) {
	payload := dto.SubmissionUploadRequest{UserID: strings.TrimSpace(c.FormValue("userId"))}
	if err := h.validator.Struct(payload); err != nil {
		return uuid.Nil, service.SubmissionInput{}, err
	}

	userID, err := uuid.Parse(payload.UserID)
	if err != nil {
		return uuid.Nil, service.SubmissionInput{}, errInvalidIdentifier
	}

	file, err := c.FormFile("file")
	if err != nil {
		return uuid.Nil, service.SubmissionInput{}, errFileRequired
	}
	if h.maxUploadBytes > 0 && file.Size > h.maxUploadBytes {
		return uuid.Nil, service.SubmissionInput{}, ErrArchiveTooLarge
	}

	archive, err := h.readArchive(file)
	if err != nil {
		return uuid.Nil, service.SubmissionInput{}, err
	}

	return userID, service.SubmissionInput{ArchiveName: file.Filename, Archive: archive}, nil
}

func (h *SubmissionHandler) readArchive(file *multipart.FileHeader) ([]byte, error) {
	src, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	var reader io.Reader = src
	if h.maxUploadBytes > 0 {
		reader = io.LimitReader(src, h.maxUploadBytes+1)
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	if h.maxUploadBytes > 0 && int64(len(data)) > h.maxUploadBytes {
		return nil, ErrArchiveTooLarge
	}

	return data, nil
}

func (h *SubmissionHandler) get(c *fiber.Ctx) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return respondError(c, h.logger, err)
	}

	submission, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "submission retrieved", submission)
}

func (h *SubmissionHandler) listByAssignment(c *fiber.Ctx) error {
	assignmentID, err := parseUUIDParam(c, "id")
	if err != nil {
		return respondError(c, h.logger, err)
	}

	submissions, err := h.service.ListByAssignment(c.UserContext(), assignmentID)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "submissions retrieved", submissions)
}
