package ai

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ExtractJSON strips a surrounding markdown code fence (```json ... ```)
// from a model reply.
func ExtractJSON(text string) string {
	s := strings.TrimSpace(text)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		if i := strings.IndexByte(s, '\n'); i >= 0 && !strings.ContainsAny(s[:i], "{[") {
			s = s[i+1:]
		} else {
			s = strings.TrimPrefix(s, "json")
		}
		if i := strings.LastIndex(s, "```"); i >= 0 {
			s = s[:i]
		}
	}
	return strings.TrimSpace(s)
}

// DecodeJSON strips fences and unmarshals the reply into v.
func DecodeJSON(text string, v any) error {
	body := ExtractJSON(text)
	if body == "" {
		return fmt.Errorf("decode model reply: empty body")
	}
	if err := json.Unmarshal([]byte(body), v); err != nil {
		return fmt.Errorf("decode model reply: %w", err)
	}
	return nil
}
