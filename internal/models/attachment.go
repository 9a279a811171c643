package models

import (
	"encoding/json"
	"strings"
)

// ParseImageURLs decodes a message attachment field. The field historically
// held a single URL; newer writers store a JSON array. A value that looks
// like JSON but fails to parse is treated as a single legacy URL rather
// than an error.
func ParseImageURLs(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return []string{}
	}
	if strings.HasPrefix(raw, "[") {
		var urls []string
		if err := json.Unmarshal([]byte(raw), &urls); err == nil {
			if urls == nil {
				return []string{}
			}
			return urls
		}
		// Malformed JSON: fall through and keep the raw value.
	}
	return []string{raw}
}

// EncodeImageURLs produces the stored form of an attachment list.
// Empty lists encode as the empty string so legacy readers see no attachment.
func EncodeImageURLs(urls []string) string {
	if len(urls) == 0 {
		return ""
	}
	data, err := json.Marshal(urls)
	if err != nil {
		return ""
	}
	return string(data)
}
