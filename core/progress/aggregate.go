package progress

import (
	"fmt"
	"math"

	"github.com/trezcool/manabi/core/course"
)

type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// Percentage returns round(completed / total * 100), 0 when there is nothing to complete.
// It only reaches 100 once every item is completed.
func Percentage(completed, total int) int {
	if total <= 0 {
		return 0
	}
	if completed >= total {
		return 100
	}
	pct := int(math.Round(float64(completed) / float64(total) * 100))
	if pct > 99 {
		return 99
	}
	return pct
}

// StatusFor derives the status from the item counts, never from the rounded percentage.
func StatusFor(completed, total int) Status {
	switch {
	case total > 0 && completed >= total:
		return StatusCompleted
	case completed > 0:
		return StatusInProgress
	default:
		return StatusNotStarted
	}
}

// Completion holds the ids of the items a student has completed, per kind.
type Completion struct {
	Videos  map[int64]bool
	Texts   map[int64]bool
	Quizzes map[int64]bool
}

func NewCompletion(videos, texts, quizzes []int64) Completion {
	return Completion{
		Videos:  idSet(videos),
		Texts:   idSet(texts),
		Quizzes: idSet(quizzes),
	}
}

func idSet(ids []int64) map[int64]bool {
	set := make(map[int64]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

// Has reports whether the item is completed: a completed video or text row, or any quiz attempt.
func (c Completion) Has(it course.Item) bool {
	switch it.Kind {
	case course.KindVideo:
		return c.Videos[it.ID]
	case course.KindText:
		return c.Texts[it.ID]
	case course.KindQuiz:
		return c.Quizzes[it.ID]
	default:
		panic(fmt.Sprintf("progress: unexpected item kind %v", it.Kind))
	}
}

type (
	SectionResult struct {
		SectionID         int64
		CompletedItems    int
		TotalItems        int
		CompletedChapters int
		TotalChapters     int
		HasQuiz           bool
		QuizAttempted     bool
		Percentage        int
		Status            Status
	}

	// Result is the aggregated progress of a student in a course.
	Result struct {
		CompletedItems int
		TotalItems     int
		Percentage     int
		Status         Status
		Sections       []SectionResult
		// Finished is set when the enrollment is completed: every item then counts as complete.
		Finished bool
		// NewlyCompleted is set by Reconcile when the stored course status transitions into completed.
		NewlyCompleted bool
	}
)

func (sr SectionResult) Completed() bool { return sr.Status == StatusCompleted }

// CompletedSections counts the sections whose own status is completed.
func (r Result) CompletedSections() int {
	var n int
	for _, sr := range r.Sections {
		if sr.Completed() {
			n++
		}
	}
	return n
}

func (r Result) Section(id int64) (SectionResult, bool) {
	for _, sr := range r.Sections {
		if sr.SectionID == id {
			return sr, true
		}
	}
	return SectionResult{}, false
}

// Aggregate rolls item completion up to section and course level.
// Sections are listed in order, including those without items; items of unlisted sections are appended.
// A finished course counts every item as complete and forces every section and the course to completed.
func Aggregate(sectionIDs []int64, items []course.Item, done Completion, finished bool) Result {
	res := Result{
		Sections: make([]SectionResult, 0, len(sectionIDs)),
		Finished: finished,
	}
	index := make(map[int64]int, len(sectionIDs))
	for _, id := range sectionIDs {
		index[id] = len(res.Sections)
		res.Sections = append(res.Sections, SectionResult{SectionID: id})
	}

	for _, it := range items {
		i, ok := index[it.SectionID]
		if !ok {
			i = len(res.Sections)
			index[it.SectionID] = i
			res.Sections = append(res.Sections, SectionResult{SectionID: it.SectionID})
		}
		sr := &res.Sections[i]

		completed := finished || done.Has(it)
		sr.TotalItems++
		res.TotalItems++
		if completed {
			sr.CompletedItems++
			res.CompletedItems++
		}

		switch it.Kind {
		case course.KindVideo, course.KindText:
			sr.TotalChapters++
			if completed {
				sr.CompletedChapters++
			}
		case course.KindQuiz:
			sr.HasQuiz = true
			sr.QuizAttempted = completed
		}
	}

	for i := range res.Sections {
		sr := &res.Sections[i]
		sr.Percentage = Percentage(sr.CompletedItems, sr.TotalItems)
		sr.Status = StatusFor(sr.CompletedItems, sr.TotalItems)
		if finished {
			sr.Percentage, sr.Status = 100, StatusCompleted
		}
	}

	res.Percentage = Percentage(res.CompletedItems, res.TotalItems)
	res.Status = StatusFor(res.CompletedItems, res.TotalItems)
	if finished {
		res.Percentage, res.Status = 100, StatusCompleted
	}
	return res
}
