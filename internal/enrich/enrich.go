// Package enrich calls an OpenAI-compatible endpoint to produce an
// optional clinical note for a completed assessment. Every failure mode
// collapses into ErrUnavailable; callers treat that as "no note produced".
package enrich

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/pulsepoint/pulsepoint/internal/instrument"
	"github.com/pulsepoint/pulsepoint/internal/model"
)

// ErrUnavailable means no enrichment was produced. It is never surfaced
// to the UI; the assessment save succeeds without a note.
var ErrUnavailable = errors.New("enrichment unavailable")

// Variant selects the clinical-note style.
type Variant string

const (
	// VariantBrief produces a one-to-two sentence note.
	VariantBrief Variant = "brief"
	// VariantStandard is the default note style.
	VariantStandard Variant = "standard"
	// VariantDetailed produces a fuller note with follow-up guidance.
	VariantDetailed Variant = "detailed"
)

var validVariants = map[Variant]bool{
	VariantBrief:    true,
	VariantStandard: true,
	VariantDetailed: true,
}

// IsValidVariant checks if a note variant name is valid.
func IsValidVariant(v string) bool {
	return validVariants[Variant(v)]
}

// interpretation is the JSON contract with the provider.
type interpretation struct {
	SpecialConsiderations string `json:"special_considerations"`
}

// Client wraps an OpenAI-compatible API client.
type Client struct {
	api     *openai.Client
	model   string
	variant Variant
}

// New creates a new enrichment client.
func New(baseURL, apiKey, modelName string, variant Variant) *Client {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &Client{
		api:     openai.NewClientWithConfig(config),
		model:   modelName,
		variant: variant,
	}
}

// Ping verifies the endpoint is reachable.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.api.ListModels(ctx); err != nil {
		return fmt.Errorf("enrichment endpoint: %w", err)
	}
	return nil
}

// Interpret requests a clinical note for a scored assessment. Single
// attempt, no retry; the caller bounds the wait through ctx.
func (c *Client) Interpret(ctx context.Context, t model.AssessmentType, answers model.AnswerSet, score int) (string, error) {
	inst, err := instrument.Lookup(t)
	if err != nil {
		slog.Warn("enrichment skipped", "type", t, "error", err)
		return "", ErrUnavailable
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildInterpretPrompt(inst, answers, score, c.variant)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.2,
	})
	if err != nil {
		slog.Warn("enrichment call failed", "type", t, "error", err)
		return "", ErrUnavailable
	}
	if len(resp.Choices) == 0 {
		slog.Warn("enrichment returned no choices", "type", t)
		return "", ErrUnavailable
	}

	raw := resp.Choices[0].Message.Content
	var out interpretation
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		slog.Warn("enrichment response malformed", "type", t, "error", err)
		return "", ErrUnavailable
	}
	if strings.TrimSpace(out.SpecialConsiderations) == "" {
		return "", ErrUnavailable
	}
	return out.SpecialConsiderations, nil
}

const systemPrompt = "You are a licensed clinical psychologist specializing in trauma assessment. " +
	"You write concise, evidence-based notes for the administering clinician. " +
	"You never address the client directly and you never diagnose."

func buildInterpretPrompt(inst instrument.Instrument, answers model.AnswerSet, score int, variant Variant) string {
	var sb strings.Builder
	sb.WriteString("A client completed the " + inst.Name + " (" + string(inst.Type) + ").\n\n")
	sb.WriteString(fmt.Sprintf("TOTAL SCORE: %d", score))
	if inst.MaxScore > 0 {
		sb.WriteString(fmt.Sprintf(" of %d", inst.MaxScore))
	}
	sb.WriteString("\n\nITEM RESPONSES:\n")
	for _, k := range sortedKeys(answers) {
		sb.WriteString(fmt.Sprintf("- %s: %v\n", k, answers[k]))
	}

	sb.WriteString("\nINSTRUCTIONS:\n")
	switch variant {
	case VariantBrief:
		sb.WriteString("- Write one or two sentences of special considerations for the clinician.\n")
	case VariantDetailed:
		sb.WriteString("- Write a short paragraph of special considerations, including symptom patterns worth probing and a suggested reassessment window.\n")
	default:
		sb.WriteString("- Write two to four sentences of special considerations: notable response patterns and what the clinician should watch for.\n")
	}
	sb.WriteString("- Do not restate the score or repeat the item text.\n")
	sb.WriteString("\nRespond ONLY with a JSON object:\n")
	sb.WriteString(`{"special_considerations": "<note for the clinician>"}`)
	sb.WriteString("\n")

	return sb.String()
}

// sortedKeys keeps prompts deterministic across runs.
func sortedKeys(answers model.AnswerSet) []string {
	keys := make([]string, 0, len(answers))
	for k := range answers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
