package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// AgentProfile configures the scheduler's agent runner: which model to call
// and the per-phase prompt template. A flat TOML blob, the same format the
// teacher's export profiles use for small, human-edited config files.
type AgentProfile struct {
	Model           string            `toml:"model"`
	PromptTemplates map[string]string `toml:"prompt_templates"`
}

const defaultPromptTemplate = "You are operating on chunk %q in worktree %q. Perform the %s phase and report QUESTION: <text> if you need operator input, or DONE when finished."

// DefaultAgentProfile is used when no .ve/agent-profile.toml is present.
func DefaultAgentProfile() AgentProfile {
	return AgentProfile{
		Model: "claude-sonnet-4-5",
		PromptTemplates: map[string]string{
			"GOAL":      defaultPromptTemplate,
			"PLAN":      defaultPromptTemplate,
			"IMPLEMENT": defaultPromptTemplate,
			"COMPLETE":  defaultPromptTemplate,
		},
	}
}

// LoadAgentProfile reads .ve/agent-profile.toml under projectDir, falling
// back to DefaultAgentProfile if absent. An explicit field in the file
// overrides only that field; unset prompt_templates entries keep their
// default.
func LoadAgentProfile(projectDir string) (AgentProfile, error) {
	profile := DefaultAgentProfile()
	path := filepath.Join(projectDir, ".ve", "agent-profile.toml")
	if _, err := os.Stat(path); err != nil {
		return profile, nil
	}

	var override AgentProfile
	if _, err := toml.DecodeFile(path, &override); err != nil {
		return profile, err
	}
	if override.Model != "" {
		profile.Model = override.Model
	}
	for phase, tmpl := range override.PromptTemplates {
		profile.PromptTemplates[phase] = tmpl
	}
	return profile, nil
}
