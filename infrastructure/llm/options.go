package llm

import (
	"fmt"
	"net/url"
	"time"
)

// Request limits shared by all providers.
const (
	DefaultMaxTokens = 1024

	MinTemperature = 0.0
	MaxTemperature = 2.0

	MinTimeout = 1 * time.Second
	MaxTimeout = 10 * time.Minute
)

// RequestOptions is the provider independent view of the options map.
type RequestOptions struct {
	MaxTokens   int
	Model       string
	Temperature *float64
	TopP        *float64
	System      string
	// Extra keeps options no shared field covers, e.g. "top_k".
	Extra map[string]any
}

// ParseRequestOptions reads the options map, falling back to defaults for
// missing or invalid entries.
func ParseRequestOptions(opts map[string]any, defaultModel string) RequestOptions {
	options := RequestOptions{
		MaxTokens: DefaultMaxTokens,
		Model:     defaultModel,
		Extra:     make(map[string]any),
	}

	for k, v := range opts {
		switch k {
		case "max_tokens":
			if n, ok := toInt(v); ok && n > 0 {
				options.MaxTokens = n
			}
		case "model":
			if s, ok := v.(string); ok && s != "" {
				options.Model = s
			}
		case "system":
			if s, ok := v.(string); ok {
				options.System = s
			}
		case "temperature":
			if f, ok := toFloat(v); ok && f >= MinTemperature && f <= MaxTemperature {
				options.Temperature = &f
			}
		case "top_p":
			if f, ok := toFloat(v); ok && f >= 0 && f <= 1 {
				options.TopP = &f
			}
		default:
			options.Extra[k] = v
		}
	}

	return options
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		if int64(int(n)) != n {
			return 0, false
		}
		return int(n), true
	case float64:
		if n != n || n != float64(int(n)) {
			return 0, false
		}
		return int(n), true
	default:
		return 0, false
	}
}

func toFloat(v any) (float64, bool) {
	switch f := v.(type) {
	case float64:
		return f, f == f
	case float32:
		return float64(f), f == f
	case int:
		return float64(f), true
	default:
		return 0, false
	}
}

// ValidateBaseURL checks that baseURL is an absolute http(s) URL. An empty
// string is valid and selects the provider default.
func ValidateBaseURL(baseURL string) (string, error) {
	if baseURL == "" {
		return "", nil
	}

	parsed, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid URL format: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Errorf("URL scheme must be http or https, got %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("URL must include a host")
	}
	return parsed.String(), nil
}

// ClampTimeout keeps a positive timeout inside [MinTimeout, MaxTimeout].
// Non-positive values return zero, meaning "no client-level timeout".
func ClampTimeout(timeout time.Duration) time.Duration {
	switch {
	case timeout <= 0:
		return 0
	case timeout < MinTimeout:
		return MinTimeout
	case timeout > MaxTimeout:
		return MaxTimeout
	default:
		return timeout
	}
}

func clamp(val, lo, hi float64) float64 {
	return min(max(val, lo), hi)
}
