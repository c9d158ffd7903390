package llm

import (
	"encoding/json"
	"strings"
)

// envelope is the superset of response shapes returned by the
// supported LLM endpoints. Which field carries the generated text
// varies by provider.
type envelope struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Content  *string `json:"content"`
	Response *string `json:"response"`
}

// contentExtractors are tried in priority order; the first one that
// matches wins.
var contentExtractors = []func(env envelope) (string, bool){
	func(env envelope) (string, bool) {
		if len(env.Choices) > 0 {
			return env.Choices[0].Message.Content, true
		}
		return "", false
	},
	func(env envelope) (string, bool) {
		if env.Content != nil {
			return *env.Content, true
		}
		return "", false
	},
	func(env envelope) (string, bool) {
		if env.Response != nil {
			return *env.Response, true
		}
		return "", false
	},
}

// ExtractContent isolates the generated text from a raw response
// envelope and strips any markdown code fence around it. It does not
// parse the text as JSON.
func ExtractContent(raw []byte) (string, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return "", &InvalidResponseError{Message: "Unexpected response format from AI API. Please check your API configuration."}
	}

	for _, extract := range contentExtractors {
		if s, ok := extract(env); ok {
			return StripFence(s), nil
		}
	}

	return "", &InvalidResponseError{Message: "Unexpected response format from AI API. Please check your API configuration."}
}

// StripFence removes a leading/trailing triple-backtick code fence,
// with or without a "json" language tag.
func StripFence(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```json") {
		s = s[len("```json"):]
	}
	if strings.HasPrefix(s, "```") {
		s = s[len("```"):]
	}
	if strings.HasSuffix(s, "```") {
		s = s[:len(s)-len("```")]
	}
	return strings.TrimSpace(s)
}
