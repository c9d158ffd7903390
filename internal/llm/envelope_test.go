package llm

import (
	"errors"
	"testing"
)

func TestExtractContent_ChoicesShape(t *testing.T) {
	raw := []byte(`{"choices": [{"message": {"content": "{\"title\": \"Soup\"}"}}]}`)
	got, err := ExtractContent(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != `{"title": "Soup"}` {
		t.Fatalf("unexpected content: %q", got)
	}
}

func TestExtractContent_ContentShape(t *testing.T) {
	raw := []byte("{\"content\": \"```json\\n{\\\"title\\\": \\\"Soup\\\"}\\n```\"}")
	got, err := ExtractContent(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != `{"title": "Soup"}` {
		t.Fatalf("fence should be stripped: %q", got)
	}
}

func TestExtractContent_ResponseShape(t *testing.T) {
	raw := []byte(`{"response": "{\"title\": \"Soup\"}"}`)
	got, err := ExtractContent(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != `{"title": "Soup"}` {
		t.Fatalf("unexpected content: %q", got)
	}
}

func TestExtractContent_ChoicesWinOverContent(t *testing.T) {
	raw := []byte(`{"choices": [{"message": {"content": "from choices"}}], "content": "from content"}`)
	got, err := ExtractContent(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "from choices" {
		t.Fatalf("choices must take priority: %q", got)
	}
}

func TestExtractContent_UnknownShape(t *testing.T) {
	_, err := ExtractContent([]byte(`{"result": "nope"}`))
	var invalid *InvalidResponseError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidResponseError, got %v", err)
	}
	if invalid.Message != "Unexpected response format from AI API. Please check your API configuration." {
		t.Fatalf("unexpected message: %q", invalid.Message)
	}
}

func TestExtractContent_NotJSON(t *testing.T) {
	_, err := ExtractContent([]byte("<html>oops</html>"))
	var invalid *InvalidResponseError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidResponseError, got %v", err)
	}
}

func TestStripFence(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"```\n{\"a\": 1}\n```", `{"a": 1}`},
		{`{"a": 1}`, `{"a": 1}`},
		{"  {\"a\": 1}  ", `{"a": 1}`},
	}
	for _, tc := range cases {
		if got := StripFence(tc.in); got != tc.want {
			t.Fatalf("StripFence(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
