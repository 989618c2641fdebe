package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "removes invalid characters",
			input:    `file<>:"/\|?*name`,
			expected: "filename",
		},
		{
			name:     "replaces newlines and tabs with spaces",
			input:    "file\nname\twith\rspaces",
			expected: "file name with spaces",
		},
		{
			name:     "collapses multiple spaces",
			input:    "file   name  with    spaces",
			expected: "file name with spaces",
		},
		{
			name:     "removes hashtags",
			input:    "#hashtag #title",
			expected: "hashtag title",
		},
		{
			name:     "replaces square brackets",
			input:    "title [subtitle]",
			expected: "title (subtitle)",
		},
		{
			name:     "trims whitespace",
			input:    "  filename  ",
			expected: "filename",
		},
		{
			name:     "returns Untitled for empty",
			input:    "",
			expected: "Untitled",
		},
		{
			name:     "returns Untitled for only special chars",
			input:    "<>:?*",
			expected: "Untitled",
		},
		{
			name:     "truncates long names",
			input:    strings.Repeat("a", 250),
			expected: strings.Repeat("a", 200),
		},
		{
			name:     "handles unicode",
			input:    "Notatki z wykładu o wannie",
			expected: "Notatki z wykładu o wannie",
		},
		{
			name:     "complex case",
			input:    `Meeting: "Q3 Plan" [draft] #work`,
			expected: "Meeting Q3 Plan (draft) work",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := SanitizeFilename(tt.input)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestSplitExt(t *testing.T) {
	stem, ext := SplitExt("diagram.png")
	assert.Equal(t, "diagram", stem)
	assert.Equal(t, ".png", ext)

	stem, ext = SplitExt("README")
	assert.Equal(t, "README", stem)
	assert.Equal(t, "", ext)
}

func TestNumberedName(t *testing.T) {
	assert.Equal(t, "diagram 1.png", NumberedName("diagram.png", 1))
	assert.Equal(t, "notes 2", NumberedName("notes", 2))
}
