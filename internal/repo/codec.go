package repo

import (
	"encoding/json"
	"fmt"
	"strings"
)

// EncodeList stores free-text list fields (challenges, focus areas) as a
// JSON array so elements may contain commas.
func EncodeList(list []string) string {
	if len(list) == 0 {
		return "[]"
	}
	b, err := json.Marshal(list)
	if err != nil {
		// []string always marshals
		return "[]"
	}
	return string(b)
}

// DecodeList reverses EncodeList. Empty input decodes to an empty slice.
func DecodeList(s string) ([]string, error) {
	out := []string{}
	s = strings.TrimSpace(s)
	if s == "" {
		return out, nil
	}
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return []string{}, fmt.Errorf("decode list: %w", err)
	}
	if out == nil {
		out = []string{}
	}
	return out, nil
}

// JoinTags stores request types as comma-separated text. Tags never
// contain commas; validation rejects them.
func JoinTags(tags []string) string {
	return strings.Join(tags, ",")
}

func SplitTags(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
