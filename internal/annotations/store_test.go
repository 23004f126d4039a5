package annotations

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/arnaldur/lesari/internal/models"
	"github.com/arnaldur/lesari/internal/testutil"
)

func newTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	s := NewStore(testutil.NewMemProvider(), testutil.Logger(), opts...)
	s.Load()
	return s
}

func v2Range(exact string) models.TextAnchor {
	return models.TextAnchor{Version: models.AnchorV2, Exact: exact}
}

func mustAdd(t *testing.T, s *Store, book, chapter, section, text string, color models.HighlightColor, note string) models.Annotation {
	t.Helper()
	a, err := s.Add(context.Background(), book, chapter, section, text, v2Range(text), color, note)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	return a
}

func TestAddAssignsIDAndTimestamps(t *testing.T) {
	s := newTestStore(t)
	a := mustAdd(t, s, "efnafraedi", "kafli-1", "grein-1", "sýrur", models.ColorGreen, "")

	if !strings.HasPrefix(a.ID, "ann-") {
		t.Errorf("id = %q, want ann- prefix", a.ID)
	}
	if a.CreatedAt.IsZero() || !a.CreatedAt.Equal(a.UpdatedAt) {
		t.Errorf("timestamps = %v / %v", a.CreatedAt, a.UpdatedAt)
	}
	got, ok := s.ByID(context.Background(), a.ID)
	if !ok || got.SelectedText != "sýrur" {
		t.Fatalf("ByID = %+v, %v", got, ok)
	}
}

func TestAddUnknownColorFallsBack(t *testing.T) {
	s := newTestStore(t)
	a := mustAdd(t, s, "b", "k", "g", "texti", models.HighlightColor("rautt"), "")
	if a.Color != models.ColorYellow {
		t.Errorf("color = %q, want default yellow", a.Color)
	}
}

func TestUpdateMergesFields(t *testing.T) {
	s := newTestStore(t, WithClock(tickingClock()))
	a := mustAdd(t, s, "b", "k", "g", "texti", models.ColorYellow, "gömul athugasemd")

	color := models.ColorBlue
	got, ok := s.Update(context.Background(), a.ID, &color, nil)
	if !ok {
		t.Fatal("Update: not found")
	}
	if got.Color != models.ColorBlue || got.Note != "gömul athugasemd" {
		t.Errorf("after color-only update: %+v", got)
	}
	if !got.UpdatedAt.After(a.UpdatedAt) {
		t.Error("UpdatedAt not bumped")
	}

	note := ""
	got, ok = s.Update(context.Background(), a.ID, nil, &note)
	if !ok || got.Note != "" {
		t.Errorf("note not cleared: %+v", got)
	}
	if got.Color != models.ColorBlue {
		t.Errorf("note-only update touched color: %q", got.Color)
	}
}

func TestUpdateUnknownID(t *testing.T) {
	s := newTestStore(t)
	if _, ok := s.Update(context.Background(), "ann-finnst-ekki", nil, nil); ok {
		t.Error("update of unknown id reported ok")
	}
}

func TestUpgradeRange(t *testing.T) {
	s := newTestStore(t)
	a, err := s.Add(context.Background(), "b", "k", "g", "texti",
		models.TextAnchor{Version: models.AnchorV1, Exact: "texti", StartOffset: 3, EndOffset: 8},
		models.ColorYellow, "")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	up := models.TextAnchor{Version: models.AnchorV2, Exact: "texti", Prefix: "á undan ", StartOffset: 3, EndOffset: 8}
	if !s.UpgradeRange(context.Background(), a.ID, up) {
		t.Fatal("UpgradeRange: not found")
	}
	got, _ := s.ByID(context.Background(), a.ID)
	if got.Range.Version != models.AnchorV2 || got.Range.Prefix != "á undan " {
		t.Errorf("range after upgrade: %+v", got.Range)
	}
	if got.Range.StartOffset != 3 || got.Range.EndOffset != 8 {
		t.Errorf("legacy offsets lost: %+v", got.Range)
	}
}

func TestRemoveIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	a := mustAdd(t, s, "b", "k", "g", "texti", models.ColorYellow, "")

	if !s.Remove(context.Background(), a.ID) {
		t.Fatal("first remove failed")
	}
	if s.Remove(context.Background(), a.ID) {
		t.Error("second remove reported success")
	}
	if _, ok := s.ByID(context.Background(), a.ID); ok {
		t.Error("annotation still readable after remove")
	}
}

func TestClearSection(t *testing.T) {
	s := newTestStore(t)
	mustAdd(t, s, "b", "k1", "g1", "a", models.ColorYellow, "")
	mustAdd(t, s, "b", "k1", "g1", "b", models.ColorGreen, "")
	keep := mustAdd(t, s, "b", "k1", "g2", "c", models.ColorBlue, "")

	if n := s.ClearSection(context.Background(), "b", "k1", "g1"); n != 2 {
		t.Errorf("cleared %d, want 2", n)
	}
	if n := s.ClearSection(context.Background(), "b", "k1", "g1"); n != 0 {
		t.Errorf("second clear removed %d", n)
	}
	if got := s.ForBook(context.Background(), "b"); len(got) != 1 || got[0].ID != keep.ID {
		t.Errorf("surviving annotations: %+v", got)
	}
}

func TestClearAll(t *testing.T) {
	s := newTestStore(t)
	mustAdd(t, s, "b1", "k", "g", "a", models.ColorYellow, "")
	mustAdd(t, s, "b2", "k", "g", "b", models.ColorGreen, "")

	if n := s.ClearAll(context.Background()); n != 2 {
		t.Errorf("cleared %d, want 2", n)
	}
	if n := s.ClearAll(context.Background()); n != 0 {
		t.Errorf("clear of empty store removed %d", n)
	}
	if got := s.All(context.Background()); len(got) != 0 {
		t.Errorf("store not empty: %+v", got)
	}
}

// checkViews asserts that every annotation in the store is reachable
// exactly once through each of the four lookup views and that no view
// returns a phantom entry.
func checkViews(t *testing.T, s *Store) {
	t.Helper()
	ctx := context.Background()
	all := s.All(ctx)

	seenBooks := map[string]bool{}
	seenChapters := map[[2]string]bool{}
	seenSections := map[[3]string]bool{}
	for _, a := range all {
		if got, ok := s.ByID(ctx, a.ID); !ok || got.ID != a.ID {
			t.Errorf("ByID(%s) = %+v, %v", a.ID, got, ok)
		}
		seenBooks[a.BookSlug] = true
		seenChapters[[2]string{a.BookSlug, a.ChapterSlug}] = true
		seenSections[[3]string{a.BookSlug, a.ChapterSlug, a.SectionSlug}] = true
	}

	count := func(anns []models.Annotation, id string) int {
		n := 0
		for _, a := range anns {
			if a.ID == id {
				n++
			}
		}
		return n
	}
	for _, a := range all {
		if n := count(s.ForBook(ctx, a.BookSlug), a.ID); n != 1 {
			t.Errorf("ForBook saw %s %d times", a.ID, n)
		}
		if n := count(s.ForChapter(ctx, a.BookSlug, a.ChapterSlug), a.ID); n != 1 {
			t.Errorf("ForChapter saw %s %d times", a.ID, n)
		}
		if n := count(s.ForSection(ctx, a.BookSlug, a.ChapterSlug, a.SectionSlug), a.ID); n != 1 {
			t.Errorf("ForSection saw %s %d times", a.ID, n)
		}
	}

	total := 0
	for book := range seenBooks {
		total += len(s.ForBook(ctx, book))
	}
	if total != len(all) {
		t.Errorf("book views hold %d entries, list holds %d", total, len(all))
	}
	total = 0
	for ck := range seenChapters {
		total += len(s.ForChapter(ctx, ck[0], ck[1]))
	}
	if total != len(all) {
		t.Errorf("chapter views hold %d entries, list holds %d", total, len(all))
	}
	total = 0
	for sk := range seenSections {
		total += len(s.ForSection(ctx, sk[0], sk[1], sk[2]))
	}
	if total != len(all) {
		t.Errorf("section views hold %d entries, list holds %d", total, len(all))
	}
}

func TestViewsStayConsistentAcrossMutations(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a1 := mustAdd(t, s, "b1", "k1", "g1", "eitt", models.ColorYellow, "")
	mustAdd(t, s, "b1", "k1", "g2", "tvö", models.ColorGreen, "ath")
	a3 := mustAdd(t, s, "b1", "k2", "g1", "þrjú", models.ColorBlue, "")
	mustAdd(t, s, "b2", "k1", "g1", "fjögur", models.ColorPink, "")
	checkViews(t, s)

	s.Remove(ctx, a1.ID)
	checkViews(t, s)

	note := "ný athugasemd"
	s.Update(ctx, a3.ID, nil, &note)
	checkViews(t, s)

	mustAdd(t, s, "b1", "k2", "g1", "fimm", models.ColorYellow, "")
	s.ClearSection(ctx, "b1", "k1", "g2")
	checkViews(t, s)

	s.Remove(ctx, a3.ID)
	mustAdd(t, s, "b2", "k3", "g9", "sex", models.ColorGreen, "x")
	checkViews(t, s)

	if got := s.ForSection(ctx, "b1", "k1", "g2"); len(got) != 0 {
		t.Errorf("cleared section still lists %+v", got)
	}
}

func TestStatsCountsAllColors(t *testing.T) {
	s := newTestStore(t)
	mustAdd(t, s, "b", "k1", "g1", "a", models.ColorYellow, "ath")
	mustAdd(t, s, "b", "k1", "g2", "b", models.ColorYellow, "")
	mustAdd(t, s, "b", "k2", "g1", "c", models.ColorGreen, "önnur")
	mustAdd(t, s, "annad", "k1", "g1", "d", models.ColorPink, "")

	st := s.Stats(context.Background(), "b")
	if st.Total != 3 {
		t.Errorf("total = %d, want 3", st.Total)
	}
	if st.WithNotes != 2 {
		t.Errorf("withNotes = %d, want 2", st.WithNotes)
	}
	for _, c := range models.Colors() {
		if _, ok := st.ByColor[c]; !ok {
			t.Errorf("color %q missing from stats", c)
		}
	}
	if st.ByColor[models.ColorYellow] != 2 || st.ByColor[models.ColorGreen] != 1 ||
		st.ByColor[models.ColorBlue] != 0 || st.ByColor[models.ColorPink] != 0 {
		t.Errorf("byColor = %+v", st.ByColor)
	}
	if st.ByChapter["k1"] != 2 || st.ByChapter["k2"] != 1 {
		t.Errorf("byChapter = %+v", st.ByChapter)
	}

	all := s.Stats(context.Background(), "")
	if all.Total != 4 {
		t.Errorf("unscoped total = %d, want 4", all.Total)
	}
}

func TestSetDefaultColor(t *testing.T) {
	s := newTestStore(t)
	if s.SetDefaultColor(context.Background(), models.HighlightColor("fjólublátt")) {
		t.Error("unknown color accepted")
	}
	if !s.SetDefaultColor(context.Background(), models.ColorPink) {
		t.Fatal("valid color rejected")
	}
	if got := s.DefaultColor(context.Background()); got != models.ColorPink {
		t.Errorf("default = %q", got)
	}
	a := mustAdd(t, s, "b", "k", "g", "texti", models.HighlightColor("óþekkt"), "")
	if a.Color != models.ColorPink {
		t.Errorf("fallback used %q, want the new default", a.Color)
	}
}

func TestEventCallback(t *testing.T) {
	type event struct{ kind, id string }
	var events []event
	s := NewStore(testutil.NewMemProvider(), testutil.Logger(),
		WithEventCallback(func(kind, id string) { events = append(events, event{kind, id}) }))
	s.Load()
	ctx := context.Background()

	a := mustAdd(t, s, "b", "k", "g", "texti", models.ColorYellow, "")
	note := "ath"
	s.Update(ctx, a.ID, nil, &note)
	s.Remove(ctx, a.ID)

	want := []event{{"created", a.ID}, {"updated", a.ID}, {"deleted", a.ID}}
	if len(events) != len(want) {
		t.Fatalf("events = %+v", events)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Errorf("event %d = %+v, want %+v", i, events[i], want[i])
		}
	}
}

// tickingClock returns a clock that advances one second per call.
func tickingClock() func() time.Time {
	base := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	n := 0
	return func() time.Time {
		n++
		return base.Add(time.Duration(n) * time.Second)
	}
}
