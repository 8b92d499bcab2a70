package service_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/RoundTable02/gdgoc-onewave-be/internal/dto"
	"github.com/RoundTable02/gdgoc-onewave-be/internal/models"
	"github.com/RoundTable02/gdgoc-onewave-be/internal/repository"
	"github.com/RoundTable02/gdgoc-onewave-be/internal/service"
	"github.com/RoundTable02/gdgoc-onewave-be/pkg/ai"
)

type fakeScriptGenerator struct {
	calls    int
	subTasks []string
	content  string
	err      error
}

func (g *fakeScriptGenerator) GenerateScript(_ context.Context, subTasks []string, content string) (string, error) {
	g.calls++
	g.subTasks = subTasks
	g.content = content
	if g.err != nil {
		return "", g.err
	}
	return "// Task: " + subTasks[0] + "\ntest('" + subTasks[0] + "', async ({ page }) => {});", nil
}

func setupAssignmentService(t *testing.T, generator ai.ScriptGenerator, cache *redis.Client) (service.AssignmentService, *gorm.DB) {
	t.Helper()

	db := openTestDB(t)
	validate := validator.New(validator.WithRequiredStructEnabled())
	logger := zerolog.New(io.Discard)

	svc := service.NewAssignmentService(repository.NewAssignmentRepository(db), validate, generator, cache, time.Minute, logger)
	return svc, db
}

func validCreateRequest() dto.AssignmentCreateRequest {
	return dto.AssignmentCreateRequest{
		UserID:   uuid.NewString(),
		Title:    "Frontend React Assignment",
		Content:  "# Description\nBuild a login page<script>alert(1)</script>",
		SubTasks: []string{" GNB UI ", "Login validation"},
	}
}

func TestAssignmentService_Create_GeneratesScriptAndSanitizes(t *testing.T) {
	generator := &fakeScriptGenerator{}
	svc, db := setupAssignmentService(t, generator, nil)

	resp, err := svc.Create(context.Background(), validCreateRequest())
	require.NoError(t, err)

	require.Equal(t, []string{"GNB UI", "Login validation"}, resp.SubTasks)
	require.Equal(t, []string{"GNB UI", "Login validation"}, generator.subTasks)
	require.NotContains(t, resp.Content, "<script>")
	require.Equal(t, resp.Content, generator.content)
	require.True(t, strings.HasPrefix(resp.AIScript, "// Task: GNB UI"))

	var stored models.Assignment
	require.NoError(t, db.First(&stored, "id = ?", resp.ID).Error)
	require.Equal(t, resp.AIScript, stored.AIScript)
	require.Equal(t, []string{"GNB UI", "Login validation"}, stored.SubTaskList())
}

func TestAssignmentService_Create_ValidationErrors(t *testing.T) {
	generator := &fakeScriptGenerator{}
	svc, _ := setupAssignmentService(t, generator, nil)

	cases := map[string]func(*dto.AssignmentCreateRequest){
		"missing title":   func(r *dto.AssignmentCreateRequest) { r.Title = "  " },
		"long title":      func(r *dto.AssignmentCreateRequest) { r.Title = strings.Repeat("t", 256) },
		"missing content": func(r *dto.AssignmentCreateRequest) { r.Content = "" },
		"no sub tasks":    func(r *dto.AssignmentCreateRequest) { r.SubTasks = nil },
		"blank sub task":  func(r *dto.AssignmentCreateRequest) { r.SubTasks = []string{"ok", "   "} },
		"invalid user id": func(r *dto.AssignmentCreateRequest) { r.UserID = "user-1" },
	}

	for name, mutate := range cases {
		payload := validCreateRequest()
		mutate(&payload)

		_, err := svc.Create(context.Background(), payload)
		var validationErrs validator.ValidationErrors
		require.ErrorAs(t, err, &validationErrs, name)
	}
	require.Zero(t, generator.calls)
}

func TestAssignmentService_Create_GenerationFailureWritesNothing(t *testing.T) {
	generator := &fakeScriptGenerator{err: errors.New("upstream returned no candidates")}
	svc, db := setupAssignmentService(t, generator, nil)

	_, err := svc.Create(context.Background(), validCreateRequest())
	require.ErrorIs(t, err, service.ErrScriptGenerationFailed)

	var count int64
	require.NoError(t, db.Model(&models.Assignment{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestAssignmentService_List_NewestFirstWithPreview(t *testing.T) {
	svc, db := setupAssignmentService(t, &fakeScriptGenerator{}, nil)

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		assignment := models.Assignment{
			UserID:    uuid.New(),
			Title:     fmt.Sprintf("Assignment %d", i),
			Content:   strings.Repeat("x", 250),
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}
		assignment.SetSubTasks([]string{"a"})
		require.NoError(t, db.Create(&assignment).Error)
	}

	page, err := svc.List(context.Background(), dto.AssignmentListQuery{Page: 0, Size: 2})
	require.NoError(t, err)
	require.Equal(t, int64(3), page.TotalElements)
	require.Equal(t, 2, page.TotalPages)
	require.Len(t, page.Content, 2)
	require.Equal(t, "Assignment 2", page.Content[0].Title)
	require.Equal(t, "Assignment 1", page.Content[1].Title)
	require.Equal(t, strings.Repeat("x", 200)+"...", page.Content[0].Content)

	second, err := svc.List(context.Background(), dto.AssignmentListQuery{Page: 1, Size: 2})
	require.NoError(t, err)
	require.Len(t, second.Content, 1)
	require.Equal(t, "Assignment 0", second.Content[0].Title)

	defaults, err := svc.List(context.Background(), dto.AssignmentListQuery{})
	require.NoError(t, err)
	require.Equal(t, dto.DefaultPageSize, defaults.Size)
}

func TestAssignmentService_Lookup_UsesCache(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	svc, db := setupAssignmentService(t, &fakeScriptGenerator{}, client)

	assignment := models.Assignment{UserID: uuid.New(), Title: "Cached", Content: "content", AIScript: "script"}
	assignment.SetSubTasks([]string{"first", "second"})
	require.NoError(t, db.Create(&assignment).Error)

	loaded, err := svc.Lookup(context.Background(), assignment.ID)
	require.NoError(t, err)
	require.True(t, mr.Exists("assignment:"+assignment.ID.String()))

	require.NoError(t, db.Delete(&models.Assignment{}, "id = ?", assignment.ID).Error)

	cached, err := svc.Lookup(context.Background(), assignment.ID)
	require.NoError(t, err)
	require.Equal(t, loaded.ID, cached.ID)
	require.Equal(t, "script", cached.AIScript)
	require.Equal(t, []string{"first", "second"}, cached.SubTaskList())

	mr.FlushAll()
	_, err = svc.Lookup(context.Background(), assignment.ID)
	require.ErrorIs(t, err, service.ErrAssignmentNotFound)
}

func TestAssignmentService_Get_NotFound(t *testing.T) {
	svc, _ := setupAssignmentService(t, &fakeScriptGenerator{}, nil)

	_, err := svc.Get(context.Background(), uuid.New())
	require.ErrorIs(t, err, service.ErrAssignmentNotFound)
}
