package rag

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/matiasleandrokruk/ragline/internal/infra/llm"
)

// UnknownAnswer is returned by extractive mode when nothing was retrieved.
const UnknownAnswer = "I don't know."

// maxExtractiveRunes bounds the raw-text fallback of extractive answers.
const maxExtractiveRunes = 800

// ChatCompleter is the slice of the gateway the composer needs.
type ChatCompleter interface {
	ChatCompletion(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error)
}

// Composer turns ranked documents into an answer according to the answer mode.
type Composer struct {
	chat   ChatCompleter
	logger *slog.Logger
}

// NewComposer creates a Composer. chat may be nil when only "none" and
// "extractive" answers are needed.
func NewComposer(chat ChatCompleter, logger *slog.Logger) *Composer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Composer{chat: chat, logger: logger}
}

// Compose returns nil for "none", a templated snippet for "extractive" and
// the chat model's reply for "llm" (exactly one chat call).
func (c *Composer) Compose(ctx context.Context, question string, docs []RetrievedDocument, cfg QueryConfig) (*string, error) {
	switch cfg.AnswerMode {
	case AnswerModeNone:
		return nil, nil
	case AnswerModeExtractive:
		a := ExtractiveAnswer(docs)
		return &a, nil
	case AnswerModeLLM:
		return c.llmAnswer(ctx, question, docs, cfg)
	default:
		return nil, invalid("answerMode", "unknown mode %q", cfg.AnswerMode)
	}
}

// ExtractiveAnswer answers from the top document without a model. A top
// document that is a JSON object with string "topic" (and "description")
// becomes a recommendation; anything else is returned raw, truncated.
func ExtractiveAnswer(docs []RetrievedDocument) string {
	if len(docs) == 0 {
		return UnknownAnswer
	}
	text := docs[0].Text

	var obj map[string]any
	if err := json.Unmarshal([]byte(text), &obj); err == nil {
		topic, _ := obj["topic"].(string)
		desc, _ := obj["description"].(string)
		switch {
		case topic != "" && desc != "":
			return "Recommendation: " + topic + "\n\nReason: " + desc
		case topic != "":
			return "Recommendation: " + topic
		}
	}

	if r := []rune(text); len(r) > maxExtractiveRunes {
		return string(r[:maxExtractiveRunes]) + "..."
	}
	return text
}

// BuildContext renders documents as numbered "# Document N" sections in rank order.
func BuildContext(docs []RetrievedDocument) string {
	sections := make([]string, 0, len(docs))
	for i, d := range docs {
		var b strings.Builder
		fmt.Fprintf(&b, "# Document %d\n%s", i+1, d.Text)
		if len(d.Metadata) > 0 {
			if md, err := CanonicalJSON(d.Metadata); err == nil {
				b.WriteString("\nmetadata: ")
				b.Write(md)
			}
		}
		sections = append(sections, b.String())
	}
	return strings.Join(sections, "\n\n")
}

// UserPrompt is the user turn sent to the chat model.
func UserPrompt(question, contextBlock string) string {
	return "Context:\n" + contextBlock + "\n\nQuestion:\n" + question + "\n\nAnswer:"
}

func (c *Composer) llmAnswer(ctx context.Context, question string, docs []RetrievedDocument, cfg QueryConfig) (*string, error) {
	if c.chat == nil {
		return nil, &llm.GatewayError{Op: "chat", Err: errors.New("no chat provider configured")}
	}
	resp, err := c.chat.ChatCompletion(ctx, llm.ChatRequest{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: cfg.SystemPrompt},
			{Role: llm.RoleUser, Content: UserPrompt(question, BuildContext(docs))},
		},
		Temperature: llm.Temperature(cfg.Temperature),
	})
	if err != nil {
		return nil, err
	}
	c.logger.DebugContext(ctx, "llm answer", "documents", len(docs), "tokens", resp.Tokens, "stop", resp.StopReason)
	return &resp.Content, nil
}
