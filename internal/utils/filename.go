package utils

import (
	"fmt"
	"path"
	"regexp"
	"strings"
)

var (
	// Characters invalid in filenames on most filesystems
	invalidFilenameChars = regexp.MustCompile(`[<>:"/\\|?*]`)
	// Whitespace characters to normalize
	whitespaceChars = regexp.MustCompile(`[\r\n\t]`)
	// Multiple spaces to collapse
	multipleSpaces = regexp.MustCompile(`\s+`)
)

// SanitizeFilename turns a page, section or attachment title into a name
// that is safe on common filesystems and does not break wiki-style links
// (slashes, colons, quotes, hashtags, brackets, etc.)
func SanitizeFilename(filename string) string {
	// Remove invalid filename characters
	filename = invalidFilenameChars.ReplaceAllString(filename, "")

	// Replace newlines/tabs with spaces
	filename = whitespaceChars.ReplaceAllString(filename, " ")

	// Collapse multiple spaces
	filename = multipleSpaces.ReplaceAllString(filename, " ")

	// Trim whitespace
	filename = strings.TrimSpace(filename)

	// Hashtags and brackets have link semantics in the vault
	filename = strings.ReplaceAll(filename, "#", "")
	filename = strings.ReplaceAll(filename, "[", "(")
	filename = strings.ReplaceAll(filename, "]", ")")

	// Limit length (most filesystems support 255, but leave room for extension)
	if len(filename) > 200 {
		filename = strings.TrimSpace(filename[:200])
	}

	// Ensure it's not empty
	if filename == "" {
		filename = "Untitled"
	}

	return filename
}

// SplitExt splits a filename into its stem and extension. The extension
// includes the leading dot and is empty when the name has none.
func SplitExt(filename string) (stem, ext string) {
	ext = path.Ext(filename)
	return strings.TrimSuffix(filename, ext), ext
}

// NumberedName returns the filename with a numeric suffix inserted before
// the extension, used to disambiguate attachment name collisions.
func NumberedName(filename string, n int) string {
	stem, ext := SplitExt(filename)
	return fmt.Sprintf("%s %d%s", stem, n, ext)
}
