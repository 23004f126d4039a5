package api

import "github.com/arnaldur/lesari/internal/models"

// CreateAnnotationRequest is the request body for creating an annotation.
type CreateAnnotationRequest struct {
	BookSlug     string                `json:"bookSlug" validate:"required"`
	ChapterSlug  string                `json:"chapterSlug" validate:"required"`
	SectionSlug  string                `json:"sectionSlug" validate:"required"`
	SelectedText string                `json:"selectedText" validate:"required"`
	Range        models.TextAnchor     `json:"range" validate:"required"`
	Color        models.HighlightColor `json:"color"`
	Note         string                `json:"note"`
}

// UpdateAnnotationRequest carries the mergeable annotation fields.
// Absent fields are left untouched.
type UpdateAnnotationRequest struct {
	Color *models.HighlightColor `json:"color"`
	Note  *string                `json:"note"`
}

// AnnotationListResponse wraps scoped annotation listings.
type AnnotationListResponse struct {
	Annotations []models.Annotation `json:"annotations" validate:"required"`
	Total       int                 `json:"total" validate:"required"`
}

// ClearResponse reports how many annotations a clear operation removed.
type ClearResponse struct {
	Removed int `json:"removed" validate:"required"`
}

// SerializeAnchorRequest asks the codec to describe a selection in the
// posted section HTML. Start and End are byte offsets into the rendered
// text content.
type SerializeAnchorRequest struct {
	HTML  string `json:"html" validate:"required"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// ResolveAnchorRequest asks the codec to locate an anchor in the posted
// section HTML.
type ResolveAnchorRequest struct {
	HTML   string            `json:"html" validate:"required"`
	Anchor models.TextAnchor `json:"anchor" validate:"required"`
}

// ResolveAnchorResponse reports where an anchor landed. Found false is a
// normal outcome for content that changed too much, not an error.
type ResolveAnchorResponse struct {
	Found bool   `json:"found"`
	Start int    `json:"start,omitempty"`
	End   int    `json:"end,omitempty"`
	Text  string `json:"text,omitempty"`
}
