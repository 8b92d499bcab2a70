package ai

import (
	"context"
	"errors"
)

// ErrScriptGenerationFailed indicates the model did not produce a usable grading script.
var ErrScriptGenerationFailed = errors.New("failed to generate grading script")

// ScriptGenerator produces the browser-automation script used to grade an assignment.
type ScriptGenerator interface {
	GenerateScript(ctx context.Context, subTasks []string, content string) (string, error)
}
