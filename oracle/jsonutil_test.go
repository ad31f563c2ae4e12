package oracle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "bare object",
			content: `{"domains": []}`,
			want:    `{"domains": []}`,
		},
		{
			name:    "fenced block",
			content: "Here you go:\n```json\n{\"a\": 1}\n```\nDone.",
			want:    `{"a": 1}`,
		},
		{
			name:    "fenced without language",
			content: "```\n{\"a\": 1}\n```",
			want:    `{"a": 1}`,
		},
		{
			name:    "surrounding text",
			content: `Result: {"a": {"b": 2}} hope it helps`,
			want:    `{"a": {"b": 2}}`,
		},
		{
			name:    "comments and trailing commas",
			content: "{\n  \"url\": \"http://example.com\", // link\n  \"list\": [1, 2,],\n}",
			want:    "{\n  \"url\": \"http://example.com\",\n  \"list\": [1, 2]}",
		},
		{
			name:    "second fenced block ignored",
			content: "```json\n{\"domains\": [\"Clinical\"]}\n```\n\nExample usage:\n```\n{\"note\": 1}\n```",
			want:    `{"domains": ["Clinical"]}`,
		},
		{
			name:    "nested object in fence",
			content: "```json\n{\"a\": {\"b\": 2}}\n```",
			want:    `{"a": {"b": 2}}`,
		},
		{
			name:    "first valid fence wins",
			content: "```\n{not json}\n```\nfixed:\n```json\n{\"a\": 1}\n```",
			want:    `{"a": 1}`,
		},
		{
			name:    "valid response kept as is",
			content: "  {\"text\": \"a, ]\"}\n",
			want:    `{"text": "a, ]"}`,
		},
		{
			name:    "nothing",
			content: "I cannot help with that",
			want:    "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractJSON(tt.content))
		})
	}
}

func TestDecode(t *testing.T) {
	var v struct {
		Domains []string `json:"domains"`
	}
	require.NoError(t, Decode("```json\n{\"domains\": [\"clinical\",],}\n```", &v))
	assert.Equal(t, []string{"clinical"}, v.Domains)

	v.Domains = nil
	require.NoError(t, Decode("```json\n{\"domains\": [\"Clinical\"]}\n```\n\nExample usage:\n```\n{\"note\": 1}\n```", &v))
	assert.Equal(t, []string{"Clinical"}, v.Domains)

	err := Decode(`{"domains": "clinical"}`, &v)
	var pe *ParseError
	assert.ErrorAs(t, err, &pe)
}
