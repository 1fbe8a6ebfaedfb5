package progress

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"text/tabwriter"
	"time"

	"sheetlab/internal/lesson"
)

// Report writes one row per user and lesson attempt, users sorted by id
// and lessons in catalog order. Lessons missing from the catalog follow
// in id order.
func Report(w io.Writer, sessions map[string]Session, lessons []lesson.Lesson) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "USER\tLESSON\tSTATUS\tTIME\tWRONG\tLAST")

	tasks := 0
	for _, l := range lessons {
		if l.HasTask() {
			tasks++
		}
	}
	for _, user := range slices.Sorted(maps.Keys(sessions)) {
		s := sessions[user]
		solved := 0
		for _, id := range lessonOrder(s, lessons) {
			p := s.Progress[id]
			if p.Status == StatusSuccess {
				solved++
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n",
				user, id, p.Status, elapsed(p), len(p.IncorrectFormulas), last(p.IncorrectFormulas))
		}
		fmt.Fprintf(tw, "%s\t%d/%d solved\t\t\t\t%s\n", user, solved, tasks, s.LastActive.Format(time.DateTime))
	}
	return tw.Flush()
}

func lessonOrder(s Session, lessons []lesson.Lesson) []string {
	var ids []string
	for _, l := range lessons {
		if _, ok := s.Progress[l.ID]; ok {
			ids = append(ids, l.ID)
		}
	}
	var rest []string
	for id := range s.Progress {
		if lesson.Index(lessons, id) < 0 {
			rest = append(rest, id)
		}
	}
	slices.Sort(rest)
	return append(ids, rest...)
}

func elapsed(p *LessonProgress) string {
	if p.Status != StatusSuccess || p.EndTime.IsZero() {
		return "-"
	}
	return p.EndTime.Sub(p.StartTime).Round(time.Second).String()
}

func last(formulas []string) string {
	if len(formulas) == 0 {
		return ""
	}
	return strings.ReplaceAll(formulas[len(formulas)-1], "\t", " ")
}
