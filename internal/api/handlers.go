package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/arnaldur/lesari/internal/anchor"
	"github.com/arnaldur/lesari/internal/annotations"
	"github.com/arnaldur/lesari/internal/apperr"
	"github.com/arnaldur/lesari/internal/models"
)

// Handler holds API route handlers.
type Handler struct {
	store *annotations.Store
}

// NewHandler creates a new Handler.
func NewHandler(store *annotations.Store) *Handler {
	return &Handler{store: store}
}

// CreateAnnotation handles POST /api/annotations.
func (h *Handler) CreateAnnotation(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req CreateAnnotationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.BookSlug == "" || req.ChapterSlug == "" || req.SectionSlug == "" || req.SelectedText == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("bookSlug, chapterSlug, sectionSlug and selectedText are required"))
		return
	}
	if req.Range.Version == models.AnchorV2 && req.Range.Exact == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("a v2 range must carry exact text"))
		return
	}
	a, err := h.store.Add(r.Context(), req.BookSlug, req.ChapterSlug, req.SectionSlug,
		req.SelectedText, req.Range, req.Color, req.Note)
	if err != nil {
		slog.Error("create annotation failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

// ListAnnotations handles GET /api/annotations. Scope narrows with the
// query parameters: book, then optionally chapter, then section.
func (h *Handler) ListAnnotations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	book, chapter, section := q.Get("book"), q.Get("chapter"), q.Get("section")
	if book == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'book' is required"))
		return
	}

	var items []models.Annotation
	switch {
	case section != "" && chapter != "":
		items = h.store.ForSection(r.Context(), book, chapter, section)
	case chapter != "":
		items = h.store.ForChapter(r.Context(), book, chapter)
	case section != "":
		writeJSON(w, http.StatusBadRequest, errorBody("'section' requires 'chapter'"))
		return
	default:
		items = h.store.ForBook(r.Context(), book)
	}
	writeJSON(w, http.StatusOK, AnnotationListResponse{Annotations: items, Total: len(items)})
}

// GetAnnotation handles GET /api/annotations/{id}.
func (h *Handler) GetAnnotation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	a, ok := h.store.ByID(r.Context(), id)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// UpdateAnnotation handles PATCH /api/annotations/{id}.
func (h *Handler) UpdateAnnotation(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	id := chi.URLParam(r, "id")
	var req UpdateAnnotationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Color == nil && req.Note == nil {
		writeJSON(w, http.StatusBadRequest, errorBody("nothing to update"))
		return
	}
	if req.Color != nil && !models.ValidColor(*req.Color) {
		writeJSON(w, http.StatusBadRequest, errorBody("unknown color"))
		return
	}
	a, ok := h.store.Update(r.Context(), id, req.Color, req.Note)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// UpgradeRange handles PUT /api/annotations/{id}/range: the v1→v2
// anchor upgrade path. Only a complete v2 anchor is accepted.
func (h *Handler) UpgradeRange(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	id := chi.URLParam(r, "id")
	var rng models.TextAnchor
	if err := json.NewDecoder(r.Body).Decode(&rng); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if rng.Version != models.AnchorV2 || rng.Exact == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("range must be a v2 anchor with exact text"))
		return
	}
	if !h.store.UpgradeRange(r.Context(), id, rng) {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteAnnotation handles DELETE /api/annotations/{id}. Deleting an
// unknown id still answers 204: removal is idempotent.
func (h *Handler) DeleteAnnotation(w http.ResponseWriter, r *http.Request) {
	h.store.Remove(r.Context(), chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

// ClearAnnotations handles DELETE /api/annotations. With book, chapter
// and section parameters it clears one section; with no parameters it
// clears everything.
func (h *Handler) ClearAnnotations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	book, chapter, section := q.Get("book"), q.Get("chapter"), q.Get("section")

	var removed int
	switch {
	case book != "" && chapter != "" && section != "":
		removed = h.store.ClearSection(r.Context(), book, chapter, section)
	case book == "" && chapter == "" && section == "":
		removed = h.store.ClearAll(r.Context())
	default:
		writeJSON(w, http.StatusBadRequest, errorBody("clear takes either no scope or book+chapter+section"))
		return
	}
	writeJSON(w, http.StatusOK, ClearResponse{Removed: removed})
}

// Stats handles GET /api/stats.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.store.Stats(r.Context(), r.URL.Query().Get("book")))
}

// Export handles GET /api/export/{book}.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	book := chi.URLParam(r, "book")
	md := h.store.Export(r.Context(), book)
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(md))
}

// SerializeAnchor handles POST /api/anchors/serialize: builds a portable
// anchor for a selection inside the posted section HTML.
func (h *Handler) SerializeAnchor(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	var req SerializeAnchorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.HTML == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("html is required"))
		return
	}
	doc, err := anchor.ParseString(req.HTML)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("unparseable html"))
		return
	}
	rng, err := doc.RangeFromOffsets(req.Start, req.End)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("offsets out of range"))
		return
	}
	a, err := anchor.Serialize(doc, *rng)
	if err != nil {
		if errors.Is(err, apperr.ErrEmptySelection) {
			writeJSON(w, http.StatusBadRequest, errorBody("selection is empty"))
			return
		}
		slog.Error("serialize anchor failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// ResolveAnchor handles POST /api/anchors/resolve: locates an anchor in
// the posted section HTML. A miss is a 200 with found=false, matching
// the codec's contract that not-found is a normal outcome.
func (h *Handler) ResolveAnchor(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	var req ResolveAnchorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.HTML == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("html is required"))
		return
	}
	doc, err := anchor.ParseString(req.HTML)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("unparseable html"))
		return
	}
	rng, ok := anchor.Deserialize(doc, req.Anchor)
	if !ok {
		writeJSON(w, http.StatusOK, ResolveAnchorResponse{Found: false})
		return
	}
	start, end, err := doc.RangeOffsets(*rng)
	if err != nil {
		slog.Error("resolve anchor failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, ResolveAnchorResponse{
		Found: true,
		Start: start,
		End:   end,
		Text:  doc.Text()[start:end],
	})
}
