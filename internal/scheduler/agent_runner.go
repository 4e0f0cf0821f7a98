package scheduler

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/netguy204/ve/internal/config"
	"github.com/netguy204/ve/internal/types"
)

// AgentRunner executes one work-unit phase and reports its outcome. The
// scheduler never blocks the event loop on RunPhase directly; dispatch
// always hands it to a bounded worker pool.
type AgentRunner interface {
	RunPhase(ctx context.Context, wu types.WorkUnit) (types.AgentResult, error)
}

// AnthropicRunner drives a work unit's phase with a single Claude call
// (env-var API key override, anthropic.NewClient(option.WithAPIKey)). Each
// phase is turned into a single prompt describing the chunk, its worktree,
// and the phase to perform; the model's free-form reply becomes the
// result's content, with a crude heuristic distinguishing a suspension (a
// reply containing a literal "QUESTION:" marker) from completion. Model
// choice and prompt wording come from a config.AgentProfile (an
// operator-editable .ve/agent-profile.toml) rather than being hardcoded.
type AnthropicRunner struct {
	client    anthropic.Client
	model     anthropic.Model
	templates map[string]string
}

// NewAnthropicRunner builds a runner using profile's model and prompt
// templates. apiKey is overridden by $ANTHROPIC_API_KEY if set.
func NewAnthropicRunner(apiKey string, profile config.AgentProfile) (*AnthropicRunner, error) {
	if envKey := os.Getenv("ANTHROPIC_API_KEY"); envKey != "" {
		apiKey = envKey
	}
	if apiKey == "" {
		return nil, fmt.Errorf("agent runner: set ANTHROPIC_API_KEY or provide an api key")
	}
	model := profile.Model
	if model == "" {
		model = config.DefaultAgentProfile().Model
	}
	return &AnthropicRunner{
		client:    anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:     anthropic.Model(model),
		templates: profile.PromptTemplates,
	}, nil
}

func (r *AnthropicRunner) RunPhase(ctx context.Context, wu types.WorkUnit) (types.AgentResult, error) {
	tmpl := r.templates[string(wu.Phase)]
	if tmpl == "" {
		tmpl = config.DefaultAgentProfile().PromptTemplates["GOAL"]
	}
	prompt := fmt.Sprintf(tmpl, wu.Chunk, wu.Worktree, wu.Phase)

	msg, err := r.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     r.model,
		MaxTokens: 4096,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return types.AgentResult{Error: err.Error()}, err
	}

	text := msg.Content[0].Text
	if question, ok := extractQuestion(text); ok {
		return types.AgentResult{Suspended: true, SessionID: wu.SessionID, Question: map[string]any{"text": question}}, nil
	}
	return types.AgentResult{Completed: true, SessionID: wu.SessionID}, nil
}

func extractQuestion(text string) (string, bool) {
	const marker = "QUESTION:"
	for i := 0; i+len(marker) <= len(text); i++ {
		if text[i:i+len(marker)] == marker {
			return text[i+len(marker):], true
		}
	}
	return "", false
}

// NoopRunner completes every phase instantly with no network access, for
// tests and dry runs.
type NoopRunner struct {
	Delay time.Duration
}

func (r NoopRunner) RunPhase(ctx context.Context, wu types.WorkUnit) (types.AgentResult, error) {
	if r.Delay > 0 {
		select {
		case <-time.After(r.Delay):
		case <-ctx.Done():
			return types.AgentResult{}, ctx.Err()
		}
	}
	return types.AgentResult{Completed: true, SessionID: wu.SessionID}, nil
}
