package ai

import (
	"cmp"
	"errors"
	"fmt"
	"sort"
	"strings"
)

type Format string

const (
	FormatChatCompletions Format = "chat_completions"
	FormatMessages        Format = "messages"
)

var (
	ErrUnknownProvider = errors.New("unknown AI provider")
	ErrMissingAPIKey   = errors.New("AI API key is not configured")
)

// Provider is a resolved collaborator variant. Call sites never branch on
// Kind; everything that differs between vendors lives in these fields.
type Provider struct {
	Kind     string
	Endpoint string
	Model    string
	Headers  map[string]string
	Format   Format
	JSONMode bool
}

type Settings struct {
	Kind     string
	APIKey   string
	Endpoint string
	Model    string
}

type variant struct {
	endpoint string
	model    string
	keyEnv   string
	format   Format
	jsonMode bool
	auth     func(apiKey string) map[string]string
}

func bearer(apiKey string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + apiKey}
}

var variants = map[string]variant{
	"deepseek": {
		endpoint: "https://api.deepseek.com/v1/chat/completions",
		model:    "deepseek-chat",
		keyEnv:   "DEEPSEEK_API_KEY",
		format:   FormatChatCompletions,
		jsonMode: true,
		auth:     bearer,
	},
	"openai": {
		endpoint: "https://api.openai.com/v1/chat/completions",
		model:    "gpt-4o-mini",
		keyEnv:   "OPENAI_API_KEY",
		format:   FormatChatCompletions,
		jsonMode: true,
		auth:     bearer,
	},
	"openrouter": {
		endpoint: "https://openrouter.ai/api/v1/chat/completions",
		model:    "deepseek/deepseek-chat",
		keyEnv:   "OPENROUTER_API_KEY",
		format:   FormatChatCompletions,
		jsonMode: true,
		auth:     bearer,
	},
	"ollama": {
		endpoint: "http://localhost:11434/v1/chat/completions",
		model:    "qwen2.5:7b",
		format:   FormatChatCompletions,
		jsonMode: true,
	},
	"anthropic": {
		endpoint: "https://api.anthropic.com/v1/messages",
		model:    "claude-3-5-haiku-latest",
		keyEnv:   "ANTHROPIC_API_KEY",
		format:   FormatMessages,
		auth: func(apiKey string) map[string]string {
			return map[string]string{
				"x-api-key":         apiKey,
				"anthropic-version": "2023-06-01",
			}
		},
	},
}

func ResolveProvider(s Settings) (Provider, error) {
	kind := strings.ToLower(strings.TrimSpace(s.Kind))
	v, ok := variants[kind]
	if !ok {
		return Provider{}, fmt.Errorf("%w: %q (supported: %s)", ErrUnknownProvider, s.Kind, strings.Join(Kinds(), ", "))
	}

	headers := map[string]string{}
	if v.auth != nil {
		if s.APIKey == "" {
			return Provider{}, fmt.Errorf("%w for provider %s", ErrMissingAPIKey, kind)
		}
		headers = v.auth(s.APIKey)
	}

	return Provider{
		Kind:     kind,
		Endpoint: cmp.Or(s.Endpoint, v.endpoint),
		Model:    cmp.Or(s.Model, v.model),
		Headers:  headers,
		Format:   v.format,
		JSONMode: v.jsonMode,
	}, nil
}

// APIKeyEnv names the vendor-specific environment variable consulted when no
// generic key is configured. Providers without authentication return "".
func APIKeyEnv(kind string) string {
	return variants[strings.ToLower(strings.TrimSpace(kind))].keyEnv
}

func RequiresAPIKey(kind string) bool {
	v, ok := variants[strings.ToLower(strings.TrimSpace(kind))]
	return ok && v.auth != nil
}

func Kinds() []string {
	kinds := make([]string, 0, len(variants))
	for kind := range variants {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	return kinds
}
