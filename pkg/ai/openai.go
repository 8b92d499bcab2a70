package ai

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	aiDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "connectable",
		Subsystem: "ai",
		Name:      "script_generation_duration_seconds",
		Help:      "Duration of grading script generation requests",
	}, []string{"model"})

	aiFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "connectable",
		Subsystem: "ai",
		Name:      "script_generation_failures_total",
		Help:      "Number of grading script generation failures",
	}, []string{"model"})

	leadingFence  = regexp.MustCompile("^```(?:typescript|ts)?\\s*\\n?")
	trailingFence = regexp.MustCompile("\\n?```\\s*$")
)

// OpenAIConfig defines configuration options for the OpenAI script generator.
type OpenAIConfig struct {
	APIKey      string
	Model       string
	BaseURL     string
	MaxTokens   int
	Temperature float32
	Logger      zerolog.Logger
}

// OpenAIScriptGenerator implements ScriptGenerator against the OpenAI chat completion API.
type OpenAIScriptGenerator struct {
	client *openai.Client
	cfg    OpenAIConfig
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewOpenAIScriptGenerator builds a new generator using the provided configuration.
func NewOpenAIScriptGenerator(cfg OpenAIConfig) (*OpenAIScriptGenerator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}

	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}

	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 2048
	}

	tracer := otel.Tracer("github.com/RoundTable02/gdgoc-onewave-be/pkg/ai/openai")
	logger := cfg.Logger
	if logger.GetLevel() == zerolog.Disabled {
		logger = zerolog.Nop()
	}

	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}
	client := openai.NewClientWithConfig(config)

	return &OpenAIScriptGenerator{
		client: client,
		cfg:    cfg,
		tracer: tracer,
		logger: logger.With().Str("component", "script_generator").Logger(),
	}, nil
}

// GenerateScript asks the model for a Playwright script with one test per sub-task.
func (g *OpenAIScriptGenerator) GenerateScript(parent context.Context, subTasks []string, content string) (string, error) {
	ctx, span := g.tracer.Start(parent, "openai.generate_script", trace.WithAttributes(
		attribute.String("model", g.cfg.Model),
		attribute.Int("sub_tasks", len(subTasks)),
	))
	defer span.End()

	start := time.Now()
	request := openai.ChatCompletionRequest{
		Model:       g.cfg.Model,
		MaxTokens:   g.cfg.MaxTokens,
		Temperature: g.cfg.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: buildScriptPrompt(subTasks, content),
			},
		},
	}

	resp, err := g.client.CreateChatCompletion(ctx, request)
	aiDuration.WithLabelValues(g.cfg.Model).Observe(time.Since(start).Seconds())
	if err != nil {
		return "", g.fail(span, fmt.Errorf("openai chat completion: %w", err))
	}

	if len(resp.Choices) == 0 {
		return "", g.fail(span, errors.New("no choices returned from openai"))
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", g.fail(span, errors.New("empty script returned from openai"))
	}

	script := StripMarkdownCodeBlocks(text)
	span.SetAttributes(attribute.Int("script_bytes", len(script)))
	g.logger.Debug().Int("tokens", resp.Usage.TotalTokens).Msg("grading script generated")

	return script, nil
}

func (g *OpenAIScriptGenerator) fail(span trace.Span, err error) error {
	aiFailures.WithLabelValues(g.cfg.Model).Inc()
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	g.logger.Error().Err(err).Msg("script generation failed")
	return fmt.Errorf("%w: %v", ErrScriptGenerationFailed, err)
}

// StripMarkdownCodeBlocks removes a leading ```typescript / ```ts / ``` fence and a trailing ```
// fence from text.
func StripMarkdownCodeBlocks(text string) string {
	cleaned := leadingFence.ReplaceAllString(text, "")
	cleaned = trailingFence.ReplaceAllString(cleaned, "")
	return strings.TrimSpace(cleaned)
}

func buildScriptPrompt(subTasks []string, content string) string {
	builder := strings.Builder{}
	builder.WriteString("You are an expert Playwright test script generator.\n\n")
	builder.WriteString("## Assignment Description\n")
	builder.WriteString(content)
	builder.WriteString("\n\n## Grading Criteria (Sub-tasks)\n")
	for i, task := range subTasks {
		builder.WriteString(strconv.Itoa(i + 1))
		builder.WriteString(". ")
		builder.WriteString(task)
		builder.WriteString("\n")
	}

	builder.WriteString("\n## CRITICAL: Worker Environment Constraints\n")
	builder.WriteString("The generated script will run in a worker environment with these constraints:\n")
	builder.WriteString("- The page is ALREADY LOADED at the target URL before each test runs\n")
	builder.WriteString("- The worker provides test, expect, and page automatically\n")
	builder.WriteString("- ONLY individual test() functions are executed (no describe blocks, no beforeEach hooks)\n")
	builder.WriteString("- Each test runs independently with a fresh page context\n")

	builder.WriteString("\n## Requirements\n")
	builder.WriteString("- Generate a TypeScript + Playwright test script\n")
	builder.WriteString("- Create a separate test() function for each sub-task\n")
	builder.WriteString("- MANDATORY: Each test MUST have a comment in the format: // Task: [exact sub-task text]\n")
	builder.WriteString("  - This comment must appear immediately before the corresponding test() function\n")
	builder.WriteString("  - Use the EXACT sub-task text from the \"Grading Criteria\" section\n")
	builder.WriteString("  - Example:\n")
	builder.WriteString("    // Task: Sub-task 1: Verify login form elements\n")
	builder.WriteString("    test('Sub-task 1: Verify login form elements', async ({ page }) => { ... });\n")
	builder.WriteString("- DO NOT include any import statements (test, expect, page are auto-provided)\n")
	builder.WriteString("- DO NOT use test.describe() blocks (they are ignored)\n")
	builder.WriteString("- DO NOT use test.beforeEach() or any hooks (each test runs independently)\n")
	builder.WriteString("- DO NOT call page.goto() (the page is already at the target URL)\n")
	builder.WriteString("- Use appropriate selectors (prefer data-testid, id, or specific CSS selectors)\n")
	builder.WriteString("- Use Playwright assertions (expect(page).toHaveTitle, expect(locator).toBeVisible, etc.)\n")
	builder.WriteString("- Each test should be atomic and verify the corresponding sub-task requirement\n")

	builder.WriteString("\n## CRITICAL OUTPUT FORMAT REQUIREMENTS\n")
	builder.WriteString("- Do NOT use markdown code blocks (no ```typescript or ``` markers)\n")
	builder.WriteString("- Do NOT add any explanations, comments, or descriptions outside the script\n")
	builder.WriteString("- Start DIRECTLY with the first // Task: comment\n")
	builder.WriteString("- Output ONLY the raw TypeScript code that can be saved directly to a .ts file\n\n")
	builder.WriteString("Generate the complete Playwright test script now:")
	return builder.String()
}
