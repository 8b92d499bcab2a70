package handler_test

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/RoundTable02/gdgoc-onewave-be/internal/config"
	"github.com/RoundTable02/gdgoc-onewave-be/internal/database"
	"github.com/RoundTable02/gdgoc-onewave-be/internal/handler"
	"github.com/RoundTable02/gdgoc-onewave-be/internal/middleware"
	"github.com/RoundTable02/gdgoc-onewave-be/internal/repository"
	"github.com/RoundTable02/gdgoc-onewave-be/internal/router"
	"github.com/RoundTable02/gdgoc-onewave-be/internal/service"
	"github.com/RoundTable02/gdgoc-onewave-be/internal/site"
	"github.com/RoundTable02/gdgoc-onewave-be/pkg/worker"
)

type stubGenerator struct {
	err error
}

func (g *stubGenerator) GenerateScript(_ context.Context, subTasks []string, _ string) (string, error) {
	if g.err != nil {
		return "", g.err
	}
	return fmt.Sprintf("test('%s', async ({ page }) => {});", subTasks[0]), nil
}

// firstPassesGrader passes the first criterion and fails the rest.
type firstPassesGrader struct{}

func (firstPassesGrader) Grade(_ context.Context, req worker.GradingRequest) worker.GradingResponse {
	results := make([]worker.TaskResult, 0, len(req.SubTasks))
	for i, task := range req.SubTasks {
		results = append(results, worker.TaskResult{TaskName: task, IsPassed: i == 0})
	}
	return worker.GradingResponse{SubmissionID: req.SubmissionID, Success: true, Results: results}
}

type memoryStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (m *memoryStore) Put(_ context.Context, key string, body io.ReadSeeker, _ int64, _ string) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return nil
}

func (m *memoryStore) PublicURL(key string) string {
	return "https://storage.example.com/sites/" + key
}

type testEnv struct {
	app       *fiber.App
	db        *gorm.DB
	store     *memoryStore
	generator *stubGenerator
}

type envOptions struct {
	maxUploadBytes int64
	probes         map[string]handler.HealthProbe
}

func setupEnv(t *testing.T, opts envOptions) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	if opts.maxUploadBytes == 0 {
		opts.maxUploadBytes = 1 << 20
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	logger := zerolog.New(io.Discard)
	store := &memoryStore{objects: map[string][]byte{}}
	generator := &stubGenerator{}

	assignmentService := service.NewAssignmentService(repository.NewAssignmentRepository(db), validate, generator, nil, 0, logger)
	submissionService := service.NewSubmissionService(service.SubmissionDependencies{
		Submissions: repository.NewSubmissionRepository(db),
		Results:     repository.NewGradingResultRepository(db),
		Assignments: assignmentService,
		Publisher:   site.NewPublisher(store, t.TempDir(), logger),
		Grader:      firstPassesGrader{},
	}, validate, logger)

	app := fiber.New(fiber.Config{ErrorHandler: handler.ErrorHandler(logger)})
	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, config.Config{AppName: "Test", AppEnv: "test"}, router.Dependencies{
		AssignmentHandler: handler.NewAssignmentHandler(assignmentService, logger),
		SubmissionHandler: handler.NewSubmissionHandler(submissionService, validate, opts.maxUploadBytes, logger),
		HealthProbes:      opts.probes,
	})

	return &testEnv{app: app, db: db, store: store, generator: generator}
}

type envelope[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body interface{}) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", fiber.MIMEApplicationJSON)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func doMultipart(t *testing.T, app *fiber.App, path string, fields map[string]string, fileName string, content []byte) *http.Response {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for key, value := range fields {
		require.NoError(t, writer.WriteField(key, value))
	}
	if fileName != "" {
		part, err := writer.CreateFormFile("file", fileName)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decodeResponse(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.NoError(t, json.Unmarshal(data, target), string(data))
}

func buildZip(t *testing.T, files map[string]string) []byte {
	t.Helper()

	buf := &bytes.Buffer{}
	writer := zip.NewWriter(buf)
	for name, content := range files {
		w, err := writer.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return buf.Bytes()
}

func newRequest(method, path string, body io.Reader, contentType string) *http.Request {
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return req
}
