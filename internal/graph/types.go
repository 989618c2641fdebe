package graph

import (
	"encoding/json"
	"fmt"
	"time"
)

// Notebook is a top-level notebook returned by the remote API.
type Notebook struct {
	ID                   string `json:"id"`
	DisplayName          string `json:"displayName"`
	SectionsURL          string `json:"sectionsUrl"`
	SectionGroupsURL     string `json:"sectionGroupsUrl"`
	LastModifiedDateTime string `json:"lastModifiedDateTime"`
}

// SectionGroup is a nested grouping of sections inside a notebook.
type SectionGroup struct {
	ID               string `json:"id"`
	DisplayName      string `json:"displayName"`
	SectionsURL      string `json:"sectionsUrl"`
	SectionGroupsURL string `json:"sectionGroupsUrl"`
}

// Section holds an ordered list of pages.
type Section struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	PagesURL    string `json:"pagesUrl"`
}

// Page is the metadata of one notebook page. Level and Order together
// describe the page's position in the section's outline: Order is strict
// document order, Level is zero-based nesting depth.
type Page struct {
	ID                   string    `json:"id"`
	Title                string    `json:"title"`
	Level                int       `json:"level"`
	Order                int       `json:"order"`
	ContentURL           string    `json:"contentUrl"`
	CreatedDateTime      time.Time `json:"createdDateTime"`
	LastModifiedDateTime time.Time `json:"lastModifiedDateTime"`
}

// DecodeList decodes a slice of raw JSON values, as accumulated by a
// paginated fetch, into concrete DTOs.
func DecodeList[T any](values []json.RawMessage) ([]T, error) {
	out := make([]T, 0, len(values))
	for i, raw := range values {
		var item T
		if err := json.Unmarshal(raw, &item); err != nil {
			return nil, fmt.Errorf("failed to decode item %d: %w", i, err)
		}
		out = append(out, item)
	}
	return out, nil
}
