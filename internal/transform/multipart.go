package transform

import (
	"fmt"
	"io"
	"mime/multipart"
	"strings"
)

// payloadParts is the outcome of splitting one page's raw payload: the rich
// HTML part and, when present, the ink annotation side-channel.
type payloadParts struct {
	HTML string
	Ink  string
}

// splitPayload separates a multipart page payload into its HTML and ink
// parts. The boundary is read off the first body line. A body that is not
// multipart is treated as plain HTML.
func splitPayload(raw string) (*payloadParts, error) {
	trimmed := strings.TrimLeft(raw, "\r\n")
	if !strings.HasPrefix(trimmed, "--") {
		return &payloadParts{HTML: raw}, nil
	}

	firstLine := trimmed
	if idx := strings.IndexAny(firstLine, "\r\n"); idx >= 0 {
		firstLine = firstLine[:idx]
	}
	boundary := strings.TrimPrefix(firstLine, "--")
	if boundary == "" || strings.HasSuffix(boundary, "--") {
		return &payloadParts{HTML: raw}, nil
	}

	parts := &payloadParts{}
	reader := multipart.NewReader(strings.NewReader(trimmed), boundary)
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to split multipart payload: %w", err)
		}

		body, err := io.ReadAll(part)
		part.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read payload part: %w", err)
		}

		contentType := strings.ToLower(part.Header.Get("Content-Type"))
		switch {
		case strings.Contains(contentType, "text/html"):
			parts.HTML = string(body)
		case strings.Contains(contentType, "inkml"):
			parts.Ink = string(body)
		}
	}

	if parts.HTML == "" {
		return nil, fmt.Errorf("multipart payload contains no html part")
	}
	return parts, nil
}
