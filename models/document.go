package models

import (
	"encoding/json"
	"math"
	"time"
)

const (
	// UntitledContract is shown for records that carry neither a title nor a name.
	UntitledContract = "Untitled Contract"

	// PlaceholderThumbnail is served for records without a stored preview image.
	PlaceholderThumbnail = "/static/placeholder-contract.png"
)

// Document is one processed upload. Records are appended to the history and
// never mutated in place; JSON names follow the persisted ocrHistory layout.
type Document struct {
	// ID is timestamp based and never changes once assigned.
	ID string `json:"id" elastic:"type:keyword"`

	// Name defaults to the first page's file name.
	Name string `json:"name" elastic:"type:text,analyzer:standard"`

	// Title is optional; older records only carry Name.
	Title string `json:"title,omitempty" elastic:"type:text,analyzer:standard"`

	// Text is the newline-joined OCR output of every page, in upload order.
	Text string `json:"text" elastic:"type:text,analyzer:standard"`

	Summary string `json:"summary" elastic:"type:text,analyzer:standard"`

	// KeyPoints always holds exactly five entries, most relevant first.
	KeyPoints []string `json:"keyPoints"`

	Thumbnail string `json:"thumbnail,omitempty" elastic:"type:keyword"`

	// Alerts is the number of alerts raised across DetailedSections.
	Alerts int `json:"alerts"`

	// Triggers lists the alert phrases found in Text.
	Triggers []string `json:"triggers,omitempty" elastic:"type:keyword"`

	DetailedSections []DetailedSection `json:"detailedSections,omitempty"`

	CreatedAt time.Time `json:"createdAt" elastic:"type:date"`
}

// UnmarshalJSON accepts the alert shapes older clients stored: a count, or
// the list of findings itself, counted by its length. Anything else counts as 0.
func (d *Document) UnmarshalJSON(data []byte) error {
	type plain Document
	aux := struct {
		*plain
		Alerts json.RawMessage `json:"alerts"`
	}{plain: (*plain)(d)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	d.Alerts = alertCount(aux.Alerts)
	return nil
}

func alertCount(raw json.RawMessage) int {
	if len(raw) == 0 {
		return 0
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		if n < 0 || math.IsNaN(n) || n > math.MaxInt32 {
			return 0
		}
		return int(n)
	}
	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err == nil {
		return len(list)
	}
	return 0
}

// DisplayTitle applies the legacy fallbacks used by list views.
func (d Document) DisplayTitle() string {
	switch {
	case d.Title != "":
		return d.Title
	case d.Name != "":
		return d.Name
	default:
		return UntitledContract
	}
}

// DisplayThumbnail returns the stored preview or the built-in placeholder.
func (d Document) DisplayThumbnail() string {
	if d.Thumbnail == "" {
		return PlaceholderThumbnail
	}
	return d.Thumbnail
}

// DocumentSummary is the projection used by the dashboard and history views.
type DocumentSummary struct {
	Position  int       `json:"position"`
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Summary   string    `json:"summary"`
	Thumbnail string    `json:"thumbnail"`
	Alerts    int       `json:"alerts"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
}

// Summarize builds the list projection of d at the given history position.
func (d Document) Summarize(position int) DocumentSummary {
	return DocumentSummary{
		Position:  position,
		ID:        d.ID,
		Title:     d.DisplayTitle(),
		Summary:   d.Summary,
		Thumbnail: d.DisplayThumbnail(),
		Alerts:    d.Alerts,
		CreatedAt: d.CreatedAt,
	}
}
