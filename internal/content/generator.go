// Package content generates outbound message content. The AI client is an
// opaque dependency that may fail or time out; every generation path falls
// back to a static default template so a degraded content dependency never
// starves a module of progress.
package content

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"outreach_backend/platform/config"
	"outreach_backend/platform/logger"
)

// Context carries the template inputs for one message.
type Context struct {
	Template string // content key, e.g. "nurture_intro"
	LeadName string
	Step     int
	Extra    map[string]string
}

// Message is generated subject and body content.
type Message struct {
	Subject string
	Body    string
}

// Generator produces message content for a template context.
type Generator interface {
	Generate(ctx context.Context, tc Context) (Message, error)
}

// AIGenerator renders content via an OpenAI-compatible chat API, falling
// back to the static template on any error.
type AIGenerator struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	log     *logger.Logger
}

// New returns the configured generator: AI-backed when an API key is
// present, static templates otherwise.
func New(cfg config.AIConfig, log *logger.Logger) Generator {
	if !cfg.IsAIEnabled() {
		log.Info("content generation using static templates")
		return StaticGenerator{}
	}

	clientCfg := openai.DefaultConfig(cfg.GetOpenAIAPIKey())
	if cfg.GetOpenAIBaseURL() != "" {
		clientCfg.BaseURL = cfg.GetOpenAIBaseURL()
	}

	return &AIGenerator{
		client:  openai.NewClientWithConfig(clientCfg),
		model:   cfg.GetOpenAIModel(),
		timeout: 20 * time.Second,
		log:     log,
	}
}

// Generate asks the model for subject and body. On any failure it returns
// the static fallback instead of an error, so callers always get sendable
// content.
func (g *AIGenerator) Generate(ctx context.Context, tc Context) (Message, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildPrompt(tc)},
		},
		Temperature: 0.7,
		MaxTokens:   400,
	})
	if err != nil || len(resp.Choices) == 0 {
		if err != nil {
			g.log.Warn("content generation failed, using fallback", "template", tc.Template, "error", err)
		}
		return StaticGenerator{}.Generate(ctx, tc)
	}

	subject, body := splitSubject(resp.Choices[0].Message.Content)
	if body == "" {
		return StaticGenerator{}.Generate(ctx, tc)
	}
	if subject == "" {
		fallback, _ := StaticGenerator{}.Generate(ctx, tc)
		subject = fallback.Subject
	}
	return Message{Subject: subject, Body: body}, nil
}

const systemPrompt = "You write short, friendly outreach emails for a clinic marketing platform. " +
	"Reply with a subject line on the first line prefixed 'Subject: ', then a blank line, then the body."

func buildPrompt(tc Context) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Write message %q (step %d) for %s.", tc.Template, tc.Step, tc.LeadName)
	for key, value := range tc.Extra {
		fmt.Fprintf(&sb, " %s: %s.", key, value)
	}
	return sb.String()
}

// splitSubject parses the "Subject: ..." convention out of a completion.
func splitSubject(raw string) (subject, body string) {
	raw = strings.TrimSpace(raw)
	lines := strings.SplitN(raw, "\n", 2)
	if strings.HasPrefix(lines[0], "Subject:") {
		subject = strings.TrimSpace(strings.TrimPrefix(lines[0], "Subject:"))
		if len(lines) > 1 {
			body = strings.TrimSpace(lines[1])
		}
		return subject, body
	}
	return "", raw
}
