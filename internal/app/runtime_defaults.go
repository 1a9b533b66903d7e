package app

import (
	"fmt"
	"strings"
	"time"
)

// ApplyRuntimeDefaults normalises values that commonly arrive malformed from
// environment variables. It returns the keys it changed so callers can log them.
func ApplyRuntimeDefaults(cfg *Config) (map[string]bool, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	changed := make(map[string]bool)

	trimURL := func(key string, value *string) {
		trimmed := strings.TrimRight(strings.TrimSpace(*value), "/")
		if trimmed != *value {
			*value = trimmed
			changed[key] = true
		}
	}
	trimURL("lark.base_url", &cfg.Lark.BaseURL)
	trimURL("openai.base_url", &cfg.OpenAI.BaseURL)
	trimURL("feeds.awsl_api_url", &cfg.Feeds.AwslAPIURL)
	trimURL("stock.base_url", &cfg.Stock.BaseURL)

	if key := stripBearer(cfg.OpenAI.APIKey); key != cfg.OpenAI.APIKey {
		cfg.OpenAI.APIKey = key
		changed["openai.api_key"] = true
	}

	if symbols := normaliseSymbols(cfg.Stock.Symbols); !equalStrings(symbols, cfg.Stock.Symbols) {
		cfg.Stock.Symbols = symbols
		changed["stock.symbols"] = true
	}

	if cfg.Server.RateLimit.Requests > 0 && cfg.Server.RateLimit.Window <= 0 {
		cfg.Server.RateLimit.Window = time.Minute
		changed["server.rate_limit.window"] = true
	}
	if cfg.HTTP.Timeout <= 0 {
		cfg.HTTP.Timeout = 10 * time.Second
		changed["http.timeout"] = true
	}

	return changed, nil
}

// stripBearer removes a leading "Bearer " scheme. Older deployments stored the
// whole Authorization header value in OPENAI_API_KEY; the SDK adds its own.
func stripBearer(key string) string {
	trimmed := strings.TrimSpace(key)
	const scheme = "bearer "
	if len(trimmed) >= len(scheme) && strings.EqualFold(trimmed[:len(scheme)], scheme) {
		trimmed = strings.TrimSpace(trimmed[len(scheme):])
	}
	return trimmed
}

func normaliseSymbols(values []string) []string {
	if len(values) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(values))
	var out []string
	for _, value := range values {
		value = strings.ToUpper(strings.TrimSpace(value))
		if value == "" {
			continue
		}
		if _, exists := seen[value]; exists {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
