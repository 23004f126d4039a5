package anchor

import (
	"strings"

	"github.com/arnaldur/lesari/internal/apperr"
	"github.com/arnaldur/lesari/internal/models"
)

// ContextWindow is how many bytes of surrounding document text are
// captured on each side of a selection for later disambiguation.
const ContextWindow = 30

// Serialize converts a concrete selection range into a portable v2
// TextAnchor. The range must lie within d and must cover at least one
// byte of text; a collapsed selection returns apperr.ErrEmptySelection.
func Serialize(d *Document, r Range) (models.TextAnchor, error) {
	start, end, err := d.RangeOffsets(r)
	if err != nil {
		return models.TextAnchor{}, err
	}
	if end == start {
		return models.TextAnchor{}, apperr.ErrEmptySelection
	}

	text := d.Text()
	a := models.TextAnchor{
		Version: models.AnchorV2,
		Exact:   text[start:end],
		Prefix:  text[clamp(start-ContextWindow, 0, start):start],
		Suffix:  text[end:clamp(end+ContextWindow, end, len(text))],
	}

	if h, ok := d.nearestHeading(r.StartNode); ok {
		a.AnchorID = h.id
		// Selections beginning inside the anchor element itself sit
		// before its end; their distance is zero, not negative.
		a.OffsetFromAnchor = max(0, start-h.end)
	}
	return a, nil
}

// Deserialize locates a TextAnchor in the current document and returns
// the concrete range, or (nil, false) when the text cannot be found.
// Not finding the text is a normal outcome against changed content, not
// an error; callers skip rendering that highlight and keep the record.
//
// v1 anchors must arrive with Exact pre-mapped from the annotation's
// SelectedText, since the legacy format carried no text of its own.
func Deserialize(d *Document, a models.TextAnchor) (*Range, bool) {
	if a.Exact == "" {
		return nil, false
	}
	text := d.Text()

	// Scoped candidate collection: when the anchor element resolves,
	// only occurrences at or after it are considered; context scoring
	// then disambiguates repeats. A missing anchor id (or one that no
	// longer resolves) widens the scan to the whole document.
	searchFrom := 0
	if a.AnchorID != "" {
		if h, ok := d.heading(a.AnchorID); ok {
			searchFrom = h.start
		}
	}

	best := -1
	bestScore := -1.0
	for pos := indexFrom(text, a.Exact, searchFrom); pos >= 0; pos = indexFrom(text, a.Exact, pos+1) {
		score := contextScore(text, pos, a)
		if score > bestScore {
			best = pos
			bestScore = score
		}
	}

	// Exact-text-only fallback: the scoped scan found nothing, so take
	// the first occurrence anywhere, with no context weighting. Keeps a
	// highlight visible (if possibly mispositioned) rather than losing
	// the user's note when content around it changed.
	if best < 0 {
		best = strings.Index(text, a.Exact)
		if best < 0 {
			return nil, false
		}
	}

	r, err := d.RangeFromOffsets(best, best+len(a.Exact))
	if err != nil {
		return nil, false
	}
	return r, true
}

// UpgradeToV2 produces a v2 anchor for a legacy record that was
// successfully located, capturing fresh context from the range that
// matched while preserving the original numeric offsets for provenance.
// This is the sole upgrade path; a record that can no longer be located
// stays v1 and is retried on every load.
func UpgradeToV2(d *Document, legacy models.TextAnchor, found Range) (models.TextAnchor, error) {
	a, err := Serialize(d, found)
	if err != nil {
		return models.TextAnchor{}, err
	}
	a.StartOffset = legacy.StartOffset
	a.EndOffset = legacy.EndOffset
	return a, nil
}

// contextScore compares the document text around an occurrence with the
// anchor's expected prefix+exact+suffix using positional agreement: the
// fraction of identical bytes when both strings are aligned
// left-to-right, over the shorter of the two. Cheap and position
// sensitive; good enough because candidates already match Exact.
func contextScore(text string, pos int, a models.TextAnchor) float64 {
	wStart := clamp(pos-len(a.Prefix), 0, len(text))
	wEnd := clamp(pos+len(a.Exact)+len(a.Suffix), 0, len(text))
	window := text[wStart:wEnd]
	expected := a.Prefix + a.Exact + a.Suffix

	n := min(len(window), len(expected))
	if n == 0 {
		return 0
	}
	matches := 0
	for i := 0; i < n; i++ {
		if window[i] == expected[i] {
			matches++
		}
	}
	return float64(matches) / float64(n)
}

// indexFrom is strings.Index starting the scan at from.
func indexFrom(s, substr string, from int) int {
	if from < 0 || from > len(s) {
		return -1
	}
	i := strings.Index(s[from:], substr)
	if i < 0 {
		return -1
	}
	return from + i
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
