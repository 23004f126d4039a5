// Package annotations owns the annotation collection: CRUD, index-backed
// lookups, aggregate statistics, markdown export, and validated
// persistence with cross-instance convergence.
package annotations

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/arnaldur/lesari/internal/models"
	"github.com/arnaldur/lesari/internal/storage"
)

// StateKey is the key-value store key the annotation state lives under.
const StateKey = "annotations"

// EventCallback is invoked after each committed mutation.
// kind is one of "created", "updated", "deleted", "synced".
type EventCallback func(kind string, id string)

// Store owns the annotation collection. The canonical state is the
// ordered list; the four lookup maps are a cache over it, rebuilt
// together in one pass on the first read after any mutation. One mutex
// guards both, so the indices can never disagree with the list.
type Store struct {
	mu       sync.Mutex
	provider storage.Provider
	logger   *slog.Logger
	onEvent  EventCallback
	now      func() time.Time

	list          []models.Annotation
	schemaVersion int
	defaultColor  models.HighlightColor

	dirty     bool
	byID      map[string]int
	bySection map[string][]int
	byChapter map[string][]int
	byBook    map[string][]int

	// Checksum of the payload this process last wrote, used to tell our
	// own writes apart from out-of-band changes (the notification
	// channel reports both).
	lastSaved string
}

// Option configures a Store.
type Option func(*Store)

// WithEventCallback registers a mutation callback (e.g. the SSE broker).
func WithEventCallback(cb EventCallback) Option {
	return func(s *Store) { s.onEvent = cb }
}

// WithClock overrides the timestamp source, for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore creates a Store over the given provider. Call Load before
// serving reads to pick up persisted state.
func NewStore(provider storage.Provider, logger *slog.Logger, opts ...Option) *Store {
	s := &Store{
		provider:      provider,
		logger:        logger,
		now:           time.Now,
		list:          []models.Annotation{},
		schemaVersion: models.AnchorV2,
		defaultColor:  models.ColorYellow,
		dirty:         true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func newAnnotationID() (string, error) {
	id, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("annotations: generate id: %w", err)
	}
	return "ann-" + id, nil
}

// Add creates an annotation, assigning a fresh id and both timestamps.
// An unknown color falls back to the store's default.
func (s *Store) Add(_ context.Context, book, chapter, section, text string, rng models.TextAnchor, color models.HighlightColor, note string) (models.Annotation, error) {
	id, err := newAnnotationID()
	if err != nil {
		return models.Annotation{}, err
	}

	s.mu.Lock()
	if !models.ValidColor(color) {
		color = s.defaultColor
	}
	now := s.now().UTC()
	a := models.Annotation{
		ID:           id,
		BookSlug:     book,
		ChapterSlug:  chapter,
		SectionSlug:  section,
		SelectedText: text,
		Range:        rng,
		Color:        color,
		Note:         note,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.list = append(s.list, a)
	s.dirty = true
	s.saveLocked()
	s.mu.Unlock()

	s.notify("created", id)
	return a, nil
}

// Update merges the given fields into an existing annotation and bumps
// UpdatedAt. An unknown id is a no-op, reported through ok.
func (s *Store) Update(_ context.Context, id string, color *models.HighlightColor, note *string) (models.Annotation, bool) {
	s.mu.Lock()
	s.rebuildLocked()
	i, ok := s.byID[id]
	if !ok {
		s.mu.Unlock()
		return models.Annotation{}, false
	}
	a := &s.list[i]
	if color != nil && models.ValidColor(*color) {
		a.Color = *color
	}
	if note != nil {
		a.Note = *note
	}
	a.UpdatedAt = s.now().UTC()
	out := *a
	s.dirty = true
	s.saveLocked()
	s.mu.Unlock()

	s.notify("updated", id)
	return out, true
}

// UpgradeRange replaces an annotation's anchor, bumping UpdatedAt. Used
// exclusively by the codec's v1→v2 upgrade path after a successful
// legacy restoration.
func (s *Store) UpgradeRange(_ context.Context, id string, rng models.TextAnchor) bool {
	s.mu.Lock()
	s.rebuildLocked()
	i, ok := s.byID[id]
	if !ok {
		s.mu.Unlock()
		return false
	}
	s.list[i].Range = rng
	s.list[i].UpdatedAt = s.now().UTC()
	s.dirty = true
	s.saveLocked()
	s.mu.Unlock()

	s.notify("updated", id)
	return true
}

// Remove deletes an annotation. Removing an unknown id is a no-op.
func (s *Store) Remove(_ context.Context, id string) bool {
	s.mu.Lock()
	s.rebuildLocked()
	i, ok := s.byID[id]
	if !ok {
		s.mu.Unlock()
		return false
	}
	s.list = append(s.list[:i], s.list[i+1:]...)
	s.dirty = true
	s.saveLocked()
	s.mu.Unlock()

	s.notify("deleted", id)
	return true
}

// ClearSection deletes every annotation in one (book, chapter, section)
// and returns how many were removed.
func (s *Store) ClearSection(_ context.Context, book, chapter, section string) int {
	s.mu.Lock()
	var kept []models.Annotation
	var removed []string
	for _, a := range s.list {
		if a.BookSlug == book && a.ChapterSlug == chapter && a.SectionSlug == section {
			removed = append(removed, a.ID)
			continue
		}
		kept = append(kept, a)
	}
	if len(removed) == 0 {
		s.mu.Unlock()
		return 0
	}
	if kept == nil {
		kept = []models.Annotation{}
	}
	s.list = kept
	s.dirty = true
	s.saveLocked()
	s.mu.Unlock()

	for _, id := range removed {
		s.notify("deleted", id)
	}
	return len(removed)
}

// ClearAll deletes every annotation and returns how many were removed.
func (s *Store) ClearAll(_ context.Context) int {
	s.mu.Lock()
	n := len(s.list)
	if n == 0 {
		s.mu.Unlock()
		return 0
	}
	s.list = []models.Annotation{}
	s.dirty = true
	s.saveLocked()
	s.mu.Unlock()

	s.notify("deleted", "")
	return n
}

// ByID returns one annotation by id.
func (s *Store) ByID(_ context.Context, id string) (models.Annotation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rebuildLocked()
	i, ok := s.byID[id]
	if !ok {
		return models.Annotation{}, false
	}
	return s.list[i], true
}

// ForSection returns every annotation in one (book, chapter, section).
func (s *Store) ForSection(_ context.Context, book, chapter, section string) []models.Annotation {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rebuildLocked()
	return s.collectLocked(s.bySection[sectionKey(book, chapter, section)])
}

// ForChapter returns every annotation in one (book, chapter).
func (s *Store) ForChapter(_ context.Context, book, chapter string) []models.Annotation {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rebuildLocked()
	return s.collectLocked(s.byChapter[chapterKey(book, chapter)])
}

// ForBook returns every annotation in one book.
func (s *Store) ForBook(_ context.Context, book string) []models.Annotation {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rebuildLocked()
	return s.collectLocked(s.byBook[book])
}

// All returns a copy of the whole collection in insertion order.
func (s *Store) All(_ context.Context) []models.Annotation {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Annotation, len(s.list))
	copy(out, s.list)
	return out
}

// DefaultColor returns the reader's preferred highlight color.
func (s *Store) DefaultColor(_ context.Context) models.HighlightColor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.defaultColor
}

// SetDefaultColor updates the reader's preferred highlight color.
func (s *Store) SetDefaultColor(_ context.Context, c models.HighlightColor) bool {
	if !models.ValidColor(c) {
		return false
	}
	s.mu.Lock()
	s.defaultColor = c
	s.saveLocked()
	s.mu.Unlock()
	return true
}

// Stats aggregates counts, scoped to one book when book is non-empty.
// All four colors are always present in ByColor, possibly zero.
func (s *Store) Stats(_ context.Context, book string) models.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := models.Stats{
		ByColor:   make(map[models.HighlightColor]int, 4),
		ByChapter: make(map[string]int),
	}
	for _, c := range models.Colors() {
		st.ByColor[c] = 0
	}
	for _, a := range s.list {
		if book != "" && a.BookSlug != book {
			continue
		}
		st.Total++
		st.ByColor[a.Color]++
		st.ByChapter[a.ChapterSlug]++
		if a.Note != "" {
			st.WithNotes++
		}
	}
	return st
}

func sectionKey(book, chapter, section string) string {
	return book + "/" + chapter + "/" + section
}

func chapterKey(book, chapter string) string {
	return book + "/" + chapter
}

// rebuildLocked rebuilds all four maps from the list in one pass. They
// are views over the same state, so they always go stale and fresh
// together; a partial rebuild is impossible by construction.
func (s *Store) rebuildLocked() {
	if !s.dirty {
		return
	}
	s.byID = make(map[string]int, len(s.list))
	s.bySection = make(map[string][]int)
	s.byChapter = make(map[string][]int)
	s.byBook = make(map[string][]int)
	for i, a := range s.list {
		s.byID[a.ID] = i
		sk := sectionKey(a.BookSlug, a.ChapterSlug, a.SectionSlug)
		ck := chapterKey(a.BookSlug, a.ChapterSlug)
		s.bySection[sk] = append(s.bySection[sk], i)
		s.byChapter[ck] = append(s.byChapter[ck], i)
		s.byBook[a.BookSlug] = append(s.byBook[a.BookSlug], i)
	}
	s.dirty = false
}

func (s *Store) collectLocked(idx []int) []models.Annotation {
	out := make([]models.Annotation, 0, len(idx))
	for _, i := range idx {
		out = append(out, s.list[i])
	}
	return out
}

func (s *Store) notify(kind, id string) {
	if s.onEvent != nil {
		s.onEvent(kind, id)
	}
}
