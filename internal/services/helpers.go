package services

import (
	"context"
	"regexp"
	"strings"
)

func ensuredContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

// RE2's \s is ASCII only; \p{Zs} adds no-break and ideographic spaces.
var mentionPrefix = regexp.MustCompile(`^@[^\s\p{Zs}]+[\s\p{Zs}]`)

// ExtractPrompt strips one leading @mention token and surrounding whitespace.
func ExtractPrompt(text string) string {
	return strings.TrimSpace(mentionPrefix.ReplaceAllString(text, ""))
}
