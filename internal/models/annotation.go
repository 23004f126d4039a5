// Package models defines the domain types for Lesari.
package models

import "time"

// Anchor format versions. Version 2 (text-content anchors) is canonical;
// version 1 (raw document offsets) is read-only legacy, upgraded
// opportunistically when a legacy record is successfully located.
const (
	AnchorV1 = 1
	AnchorV2 = 2
)

// HighlightColor is one of the four highlight colors the reader offers.
type HighlightColor string

const (
	ColorYellow HighlightColor = "yellow"
	ColorGreen  HighlightColor = "green"
	ColorBlue   HighlightColor = "blue"
	ColorPink   HighlightColor = "pink"
)

// Colors lists every valid highlight color in stable order.
func Colors() []HighlightColor {
	return []HighlightColor{ColorYellow, ColorGreen, ColorBlue, ColorPink}
}

// ValidColor reports whether c is one of the four highlight colors.
func ValidColor(c HighlightColor) bool {
	switch c {
	case ColorYellow, ColorGreen, ColorBlue, ColorPink:
		return true
	}
	return false
}

// TextAnchor is a portable, content-addressable description of a span of
// document text. A v2 anchor carries the verbatim text plus surrounding
// context; it never references document nodes or whole-document offsets,
// so it survives re-rendering.
type TextAnchor struct {
	Version int    `json:"version"`
	Exact   string `json:"exact"`
	Prefix  string `json:"prefix,omitempty"`
	Suffix  string `json:"suffix,omitempty"`

	// AnchorID is the id of the nearest preceding heading-class element.
	// Empty means "search the whole document".
	AnchorID string `json:"anchorId,omitempty"`

	// OffsetFromAnchor is the character distance from the end of the
	// anchor element to the start of Exact, at creation time. Kept for
	// diagnostics and export ordering; not needed for restoration.
	OffsetFromAnchor int `json:"offsetFromAnchor"`

	// Legacy v1 fields: raw character offsets into the rendered section.
	// Preserved across the v1→v2 upgrade for provenance.
	StartOffset int `json:"startOffset,omitempty"`
	EndOffset   int `json:"endOffset,omitempty"`
}

// Annotation is a stored highlight: a located span of section text plus
// user metadata. It belongs to exactly one (book, chapter, section).
type Annotation struct {
	ID          string         `json:"id"`
	BookSlug    string         `json:"bookSlug"`
	ChapterSlug string         `json:"chapterSlug"`
	SectionSlug string         `json:"sectionSlug"`
	// SelectedText duplicates Range.Exact so listing and export never
	// depend on the anchor format (v1 anchors have no exact of their own).
	SelectedText string         `json:"selectedText"`
	Range        TextAnchor     `json:"range"`
	Color        HighlightColor `json:"color"`
	Note         string         `json:"note,omitempty"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
}

// Position returns the annotation's in-section ordering indicator:
// offset from anchor for v2 records, the raw start offset for v1.
func (a *Annotation) Position() int {
	if a.Range.Version == AnchorV1 {
		return a.Range.StartOffset
	}
	return a.Range.OffsetFromAnchor
}

// Stats aggregates annotation counts, optionally scoped to one book.
// ByColor always carries all four colors, possibly zero.
type Stats struct {
	Total     int                    `json:"total"`
	ByColor   map[HighlightColor]int `json:"byColor"`
	ByChapter map[string]int         `json:"byChapter"`
	WithNotes int                    `json:"withNotes"`
}

// PersistedState is the shape written to the key-value store. Fields are
// validated independently on load; a corrupt field falls back to its
// default without discarding siblings.
type PersistedState struct {
	SchemaVersion int            `json:"schemaVersion"`
	Annotations   []Annotation   `json:"annotations"`
	DefaultColor  HighlightColor `json:"defaultColor"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

// DefaultPersistedState returns the state used when nothing has been
// persisted yet or the persisted bytes are unusable.
func DefaultPersistedState() PersistedState {
	return PersistedState{
		SchemaVersion: AnchorV2,
		Annotations:   []Annotation{},
		DefaultColor:  ColorYellow,
		UpdatedAt:     time.Time{},
	}
}
