package handler_test

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/RoundTable02/gdgoc-onewave-be/internal/dto"
	"github.com/RoundTable02/gdgoc-onewave-be/internal/handler"
)

func createAssignment(t *testing.T, env *testEnv, subTasks []string) dto.AssignmentResponse {
	t.Helper()

	resp := doJSON(t, env.app, http.MethodPost, "/api/assignments", map[string]interface{}{
		"userId":   uuid.NewString(),
		"title":    "Landing page",
		"content":  "Build a landing page with a navigation bar.",
		"subTasks": subTasks,
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var body envelope[dto.AssignmentResponse]
	decodeResponse(t, resp, &body)
	require.True(t, body.Success)
	return body.Data
}

func TestAssignmentHandlerCreateGetAndList(t *testing.T) {
	env := setupEnv(t, envOptions{})

	created := createAssignment(t, env, []string{"Navigation bar", "Hero section"})
	require.NotEqual(t, uuid.Nil, created.ID)
	require.Equal(t, []string{"Navigation bar", "Hero section"}, created.SubTasks)
	require.Contains(t, created.AIScript, "Navigation bar")

	getResp := doJSON(t, env.app, http.MethodGet, "/api/assignments/"+created.ID.String(), nil)
	require.Equal(t, fiber.StatusOK, getResp.StatusCode)
	require.Equal(t, "Test", getResp.Header.Get("X-Application"))

	var detail envelope[dto.AssignmentResponse]
	decodeResponse(t, getResp, &detail)
	require.Equal(t, created.ID, detail.Data.ID)
	require.Equal(t, created.AIScript, detail.Data.AIScript)

	listResp := doJSON(t, env.app, http.MethodGet, "/api/assignments?page=0&size=5", nil)
	require.Equal(t, fiber.StatusOK, listResp.StatusCode)

	var list envelope[dto.AssignmentListResponse]
	decodeResponse(t, listResp, &list)
	require.Equal(t, int64(1), list.Data.TotalElements)
	require.Equal(t, 5, list.Data.Size)
	require.Len(t, list.Data.Content, 1)
	require.Equal(t, "Landing page", list.Data.Content[0].Title)
}

func TestAssignmentHandlerRejectsInvalidPayload(t *testing.T) {
	env := setupEnv(t, envOptions{})

	resp := doJSON(t, env.app, http.MethodPost, "/api/assignments", map[string]interface{}{
		"userId":   uuid.NewString(),
		"title":    "",
		"content":  "content",
		"subTasks": []string{},
	})
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	var body envelope[interface{}]
	decodeResponse(t, resp, &body)
	require.False(t, body.Success)
	require.Equal(t, handler.CodeInvalidRequest, body.Code)

	req := strings.NewReader("{not json")
	malformed, err := env.app.Test(newRequest(http.MethodPost, "/api/assignments", req, fiber.MIMEApplicationJSON), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, malformed.StatusCode)

	badPage := doJSON(t, env.app, http.MethodGet, "/api/assignments?page=-1", nil)
	require.Equal(t, fiber.StatusBadRequest, badPage.StatusCode)
}

func TestAssignmentHandlerScriptGenerationFailure(t *testing.T) {
	env := setupEnv(t, envOptions{})
	env.generator.err = errors.New("quota exhausted")

	resp := doJSON(t, env.app, http.MethodPost, "/api/assignments", map[string]interface{}{
		"userId":   uuid.NewString(),
		"title":    "Landing page",
		"content":  "content",
		"subTasks": []string{"Navigation bar"},
	})
	require.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)

	var body envelope[interface{}]
	decodeResponse(t, resp, &body)
	require.Equal(t, handler.CodeScriptGeneration, body.Code)
	require.NotContains(t, body.Message, "quota")
}

func TestAssignmentHandlerNotFoundAndBadIdentifier(t *testing.T) {
	env := setupEnv(t, envOptions{})

	missing := doJSON(t, env.app, http.MethodGet, "/api/assignments/"+uuid.NewString(), nil)
	require.Equal(t, fiber.StatusNotFound, missing.StatusCode)

	var body envelope[interface{}]
	decodeResponse(t, missing, &body)
	require.Equal(t, handler.CodeAssignmentNotFound, body.Code)

	invalid := doJSON(t, env.app, http.MethodGet, "/api/assignments/not-a-uuid", nil)
	require.Equal(t, fiber.StatusBadRequest, invalid.StatusCode)

	decodeResponse(t, invalid, &body)
	require.Equal(t, handler.CodeInvalidRequest, body.Code)
}
