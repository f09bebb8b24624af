// Package anthropic implements the reply generator on top of the
// Anthropic Messages API. Replies stream token-by-token; structured
// profile data arrives through an update_profile tool call, with inline
// JSON in the reply text as a fallback.
package anthropic

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/carevine/onboarding-backend/internal/domain"
	"github.com/carevine/onboarding-backend/internal/extract"
)

// updateProfileTool is the tool name the model calls to hand back
// structured profile fields.
const updateProfileTool = "update_profile"

// Config holds the Messages API settings.
type Config struct {
	APIKey         string
	Model          string
	MaxTokens      int
	RequestTimeout time.Duration
}

// Generator produces conversational replies and structured extraction
// payloads from the Anthropic Messages API.
type Generator struct {
	client anthropic.Client
	cfg    Config
	tool   anthropic.ToolParam
	log    *slog.Logger
}

// New creates a Generator. The update_profile tool input schema is
// generated from the field schema once at construction.
func New(cfg Config, log *slog.Logger) *Generator {
	schema := extract.PayloadJSONSchema()

	return &Generator{
		client: anthropic.NewClient(option.WithAPIKey(cfg.APIKey)),
		cfg:    cfg,
		tool: anthropic.ToolParam{
			Name:        updateProfileTool,
			Description: anthropic.String("Record caregiver profile fields learned from the conversation. Call with only the fields the user actually provided this turn."),
			InputSchema: anthropic.ToolInputSchemaParam{
				Properties: schema["properties"],
			},
		},
		log: log.With("adapter", "anthropic"),
	}
}

// Generate streams one reply for the request, forwarding text fragments
// through emit as they arrive. The returned result carries the full
// reply text plus the structured payload, if the model produced one.
// An emit error aborts the stream and is returned as-is.
func (g *Generator) Generate(ctx context.Context, req domain.GenerateRequest, emit func(string) error) (*domain.GenerateResult, error) {
	if g.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.cfg.RequestTimeout)
		defer cancel()
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(g.cfg.Model),
		MaxTokens: int64(g.cfg.MaxTokens),
		Messages:  buildMessages(req),
		Tools: []anthropic.ToolUnionParam{
			{OfTool: &g.tool},
		},
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}

	start := time.Now()
	g.log.Debug("llm.generate.start",
		slog.String("model", g.cfg.Model),
		slog.Int("history_len", len(req.History)),
	)

	stream := g.client.Messages.NewStreaming(ctx, params)
	defer stream.Close()

	var message anthropic.Message
	var reply strings.Builder

	for stream.Next() {
		event := stream.Current()
		if err := message.Accumulate(event); err != nil {
			return nil, fmt.Errorf("accumulate stream event: %w", err)
		}

		switch eventVariant := event.AsAny().(type) {
		case anthropic.ContentBlockDeltaEvent:
			switch deltaVariant := eventVariant.Delta.AsAny().(type) {
			case anthropic.TextDelta:
				if deltaVariant.Text == "" {
					continue
				}
				reply.WriteString(deltaVariant.Text)
				if err := emit(deltaVariant.Text); err != nil {
					return nil, err
				}
			}
		}
	}
	if err := stream.Err(); err != nil {
		g.log.Error("llm.generate.fail",
			slog.String("model", g.cfg.Model),
			slog.Int64("elapsed_ms", time.Since(start).Milliseconds()),
			slog.Any("error", err),
		)
		return nil, fmt.Errorf("messages stream: %w", err)
	}

	replyText := reply.String()
	extracted := toolPayload(message)
	if extracted == nil {
		// Some turns carry the payload inline in the reply instead of a
		// tool call.
		extracted = inlineJSON(replyText)
	}

	if replyText == "" && extracted == nil {
		return nil, fmt.Errorf("empty response from model %s", g.cfg.Model)
	}

	g.log.Info("llm.generate.done",
		slog.String("model", g.cfg.Model),
		slog.Int("reply_len", len(replyText)),
		slog.Bool("tool_call", extracted != nil),
		slog.Int64("elapsed_ms", time.Since(start).Milliseconds()),
	)

	return &domain.GenerateResult{
		ReplyText:     replyText,
		RawOutput:     rawOutput(message),
		ExtractedJSON: extracted,
	}, nil
}

// buildMessages converts the bounded history plus the current user
// message into Messages API params.
func buildMessages(req domain.GenerateRequest) []anthropic.MessageParam {
	msgs := make([]anthropic.MessageParam, 0, len(req.History)+1)
	for _, m := range req.History {
		switch m.Role {
		case domain.ChatRoleAssistant:
			msgs = append(msgs, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			msgs = append(msgs, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}
	return append(msgs, anthropic.NewUserMessage(anthropic.NewTextBlock(req.UserMessage)))
}

// toolPayload returns the update_profile tool input from the accumulated
// message, or nil when the model made no tool call.
func toolPayload(message anthropic.Message) []byte {
	for _, block := range message.Content {
		toolUse, ok := block.AsAny().(anthropic.ToolUseBlock)
		if !ok || toolUse.Name != updateProfileTool {
			continue
		}
		raw := toolUse.JSON.Input.Raw()
		if raw == "" || raw == "null" {
			continue
		}
		return []byte(raw)
	}
	return nil
}

// inlineJSON finds the first complete JSON object embedded in reply
// text. Returns nil when there is none; syntactic repair is the
// extractor's job, not ours.
func inlineJSON(s string) []byte {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end <= start {
		return nil
	}
	return []byte(s[start : end+1])
}

// rawOutput renders the accumulated message content for the audit log:
// text blocks verbatim, tool calls as name(input).
func rawOutput(message anthropic.Message) string {
	var b strings.Builder
	for _, block := range message.Content {
		switch variant := block.AsAny().(type) {
		case anthropic.TextBlock:
			b.WriteString(variant.Text)
		case anthropic.ToolUseBlock:
			if b.Len() > 0 {
				b.WriteString("\n")
			}
			fmt.Fprintf(&b, "%s(%s)", variant.Name, variant.JSON.Input.Raw())
		}
	}
	return b.String()
}
