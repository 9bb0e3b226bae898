package course

import "fmt"

// ItemKind is the kind of a completable course item.
type ItemKind int

const (
	KindVideo ItemKind = iota + 1
	KindText
	KindQuiz
)

// content types stored on chapters
const (
	ContentVideo = "video"
	ContentText  = "text"
)

func (k ItemKind) String() string {
	switch k {
	case KindVideo:
		return ContentVideo
	case KindText:
		return ContentText
	case KindQuiz:
		return "quiz"
	default:
		return fmt.Sprintf("ItemKind(%d)", int(k))
	}
}

// IsChapter reports whether items of this kind are chapters (as opposed to quizzes).
func (k ItemKind) IsChapter() bool {
	return k == KindVideo || k == KindText
}

// ParseContentType maps a chapter content type to its ItemKind.
func ParseContentType(contentType string) (ItemKind, error) {
	switch contentType {
	case ContentVideo:
		return KindVideo, nil
	case ContentText:
		return KindText, nil
	default:
		return 0, fmt.Errorf("invalid content type %q", contentType)
	}
}

// Item is a completable unit of a course: a chapter (video or text) or a section quiz.
type Item struct {
	ID        int64
	Kind      ItemKind
	SectionID int64
}
