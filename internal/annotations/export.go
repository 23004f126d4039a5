package annotations

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/arnaldur/lesari/internal/models"
)

// NoAnnotationsPlaceholder is returned when a book has no annotations.
const NoAnnotationsPlaceholder = "Engar athugasemdir fundust fyrir þessa bók."

var icelandicMonths = [...]string{
	"janúar", "febrúar", "mars", "apríl", "maí", "júní",
	"júlí", "ágúst", "september", "október", "nóvember", "desember",
}

func icelandicDate(t time.Time) string {
	return fmt.Sprintf("%d. %s %d", t.Day(), icelandicMonths[t.Month()-1], t.Year())
}

func colorIndicator(c models.HighlightColor) string {
	switch c {
	case models.ColorYellow:
		return "🟡"
	case models.ColorGreen:
		return "🟢"
	case models.ColorBlue:
		return "🔵"
	case models.ColorPink:
		return "💗"
	}
	return "⚪"
}

// Export renders every annotation of one book as a markdown document:
// title, export date, total count, a rule, then one "##" group per
// chapter with a "###" entry per annotation. Annotations are sorted by
// chapter, then section, then in-section position, so the output is
// byte-identical for the same state and diffable across exports.
func (s *Store) Export(ctx context.Context, book string) string {
	anns := s.ForBook(ctx, book)
	if len(anns) == 0 {
		return NoAnnotationsPlaceholder
	}

	sort.SliceStable(anns, func(i, j int) bool {
		if anns[i].ChapterSlug != anns[j].ChapterSlug {
			return anns[i].ChapterSlug < anns[j].ChapterSlug
		}
		if anns[i].SectionSlug != anns[j].SectionSlug {
			return anns[i].SectionSlug < anns[j].SectionSlug
		}
		return anns[i].Position() < anns[j].Position()
	})

	var b strings.Builder
	fmt.Fprintf(&b, "# Yfirstrikanir og athugasemdir: %s\n\n", book)
	fmt.Fprintf(&b, "Flutt út: %s\n\n", icelandicDate(s.now()))
	fmt.Fprintf(&b, "Fjöldi athugasemda: %d\n\n", len(anns))
	b.WriteString("---\n")

	// Chapter headings appear in first-seen order of the sorted list.
	currentChapter := ""
	for _, a := range anns {
		if a.ChapterSlug != currentChapter {
			currentChapter = a.ChapterSlug
			fmt.Fprintf(&b, "\n## %s\n", a.ChapterSlug)
		}
		fmt.Fprintf(&b, "\n### %s %s\n\n", colorIndicator(a.Color), a.SectionSlug)
		for _, line := range strings.Split(a.SelectedText, "\n") {
			fmt.Fprintf(&b, "> %s\n", line)
		}
		if a.Note != "" {
			fmt.Fprintf(&b, "\nAthugasemd: %s\n", a.Note)
		}
		fmt.Fprintf(&b, "\n*%s*\n", icelandicDate(a.CreatedAt))
	}
	return b.String()
}
