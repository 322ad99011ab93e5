package provider

import (
	"errors"
	"fmt"
	"strings"

	"github.com/clawdesk/clawdesk/internal/config"
)

// Kind names a remote backend. It is also the value persisted under the
// llm_provider setting.
type Kind string

const (
	KindOpenAI    Kind = "openai"
	KindAnthropic Kind = "anthropic"
)

// Default models used when no model is chosen explicitly.
const (
	DefaultOpenAIModel    = "gpt-4o-mini"
	DefaultAnthropicModel = "claude-sonnet-4-5"
)

// ErrUnknownProvider is returned for a provider name that maps to no backend.
var ErrUnknownProvider = errors.New("unknown provider")

// providerAliases maps common aliases to canonical provider kinds.
var providerAliases = map[string]Kind{
	"openai":    KindOpenAI,
	"gpt":       KindOpenAI,
	"chatgpt":   KindOpenAI,
	"anthropic": KindAnthropic,
	"claude":    KindAnthropic,
}

// ParseKind resolves aliases and normalizes the provider name.
func ParseKind(name string) (Kind, error) {
	lower := strings.ToLower(strings.TrimSpace(name))
	if k, ok := providerAliases[lower]; ok {
		return k, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownProvider, name)
}

// DefaultModelFor returns the model used for kind when none is configured.
func DefaultModelFor(kind Kind, cfg config.ProvidersConfig) string {
	switch kind {
	case KindOpenAI:
		if cfg.OpenAI.DefaultModel != "" {
			return cfg.OpenAI.DefaultModel
		}
		return DefaultOpenAIModel
	case KindAnthropic:
		if cfg.Anthropic.DefaultModel != "" {
			return cfg.Anthropic.DefaultModel
		}
		return DefaultAnthropicModel
	}
	return ""
}

// Resolve creates the LLMProvider for kind using the endpoint settings in cfg.
// An empty model falls back to the configured default for that kind.
func Resolve(cfg config.ProvidersConfig, kind Kind, apiKey, model string) (LLMProvider, error) {
	if model == "" {
		model = DefaultModelFor(kind, cfg)
	}
	switch kind {
	case KindOpenAI:
		return NewOpenAIProvider(apiKey, cfg.OpenAI.APIBase, model), nil
	case KindAnthropic:
		return NewAnthropicProvider(apiKey, cfg.Anthropic.APIBase, model), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, kind)
}
