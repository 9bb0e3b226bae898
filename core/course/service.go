package course

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/manabi/core"
)

var (
	// errors
	ErrNotFound        = errors.New("course not found")
	ErrSectionNotFound = errors.New("section not found")
	ErrChapterNotFound = errors.New("chapter not found")
	ErrQuizNotFound    = errors.New("quiz not found")

	errNotAuthor      = "unauthorized: teacher or admin access required"
	errNotCourseOwner = "permission denied: you do not manage this course"

	nowFunc = func() time.Time { return time.Now().UTC() } // mockable
)

type (
	Repository interface {
		GetCourse(ctx context.Context, exec core.DBExecutor, id int64) (Course, error)
		GetSection(ctx context.Context, exec core.DBExecutor, id int64) (Section, error)
		GetChapter(ctx context.Context, exec core.DBExecutor, id int64) (Chapter, error)
		GetQuiz(ctx context.Context, exec core.DBExecutor, id int64) (Quiz, error)

		// ListSections returns the course sections ordered by order_index.
		ListSections(ctx context.Context, exec core.DBExecutor, courseID int64) ([]Section, error)
		// ListChapters returns the course chapters ordered by (section order_index, chapter order_index).
		ListChapters(ctx context.Context, exec core.DBExecutor, courseID int64) ([]Chapter, error)
		ListQuizzes(ctx context.Context, exec core.DBExecutor, courseID int64) ([]Quiz, error)
		ListQuestions(ctx context.Context, exec core.DBExecutor, quizID int64) ([]Question, error)

		CreateCourse(ctx context.Context, exec core.DBExecutor, c Course) (Course, error)
		CreateSection(ctx context.Context, exec core.DBExecutor, s Section) (Section, error)
		CreateChapter(ctx context.Context, exec core.DBExecutor, ch Chapter) (Chapter, error)
		// UpsertQuiz creates the section quiz or updates the existing one.
		UpsertQuiz(ctx context.Context, exec core.DBExecutor, q Quiz) (Quiz, error)
		ReplaceQuestions(ctx context.Context, exec core.DBExecutor, quizID int64, questions []Question) error
	}

	Service struct {
		db   core.DB
		repo Repository
	}
)

func NewService(db core.DB, repo Repository) *Service {
	return &Service{db: db, repo: repo}
}

// Get returns the course, or a core.NotFoundError.
func (svc *Service) Get(ctx context.Context, exec core.DBExecutor, id int64) (Course, error) {
	c, err := svc.repo.GetCourse(ctx, exec, id)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return Course{}, core.NewNotFoundError(ErrNotFound.Error())
		}
		return Course{}, errors.Wrapf(err, "getting course %d", id)
	}
	return c, nil
}

func (svc *Service) GetChapter(ctx context.Context, exec core.DBExecutor, id int64) (Chapter, error) {
	return svc.repo.GetChapter(ctx, exec, id)
}

func (svc *Service) GetQuiz(ctx context.Context, exec core.DBExecutor, id int64) (Quiz, error) {
	return svc.repo.GetQuiz(ctx, exec, id)
}

func (svc *Service) ListQuestions(ctx context.Context, exec core.DBExecutor, quizID int64) ([]Question, error) {
	return svc.repo.ListQuestions(ctx, exec, quizID)
}

func (svc *Service) ListChapters(ctx context.Context, exec core.DBExecutor, courseID int64) ([]Chapter, error) {
	return svc.repo.ListChapters(ctx, exec, courseID)
}

// Sections returns the ids of the course sections, in order.
func (svc *Service) Sections(ctx context.Context, exec core.DBExecutor, courseID int64) ([]int64, error) {
	sections, err := svc.repo.ListSections(ctx, exec, courseID)
	if err != nil {
		return nil, errors.Wrapf(err, "listing sections of course %d", courseID)
	}
	ids := make([]int64, 0, len(sections))
	for _, s := range sections {
		ids = append(ids, s.ID)
	}
	return ids, nil
}

// Items enumerates the completable items of the course: every chapter in (section, chapter) order,
// each section quiz following the chapters of its section. A course without sections has no items.
func (svc *Service) Items(ctx context.Context, exec core.DBExecutor, courseID int64) ([]Item, error) {
	sections, err := svc.repo.ListSections(ctx, exec, courseID)
	if err != nil {
		return nil, errors.Wrapf(err, "listing sections of course %d", courseID)
	}
	chapters, err := svc.repo.ListChapters(ctx, exec, courseID)
	if err != nil {
		return nil, errors.Wrapf(err, "listing chapters of course %d", courseID)
	}
	quizzes, err := svc.repo.ListQuizzes(ctx, exec, courseID)
	if err != nil {
		return nil, errors.Wrapf(err, "listing quizzes of course %d", courseID)
	}
	return Enumerate(sections, chapters, quizzes), nil
}

// Enumerate orders the items of already loaded sections, chapters and quizzes.
// Sections must be ordered; chapters are grouped per section keeping their relative order.
func Enumerate(sections []Section, chapters []Chapter, quizzes []Quiz) []Item {
	bySection := make(map[int64][]Chapter, len(sections))
	for _, ch := range chapters {
		bySection[ch.SectionID] = append(bySection[ch.SectionID], ch)
	}
	quizBySection := make(map[int64]Quiz, len(quizzes))
	for _, q := range quizzes {
		quizBySection[q.SectionID] = q
	}

	items := make([]Item, 0, len(chapters)+len(quizzes))
	for _, s := range sections {
		for _, ch := range bySection[s.ID] {
			items = append(items, Item{ID: ch.ID, Kind: ch.Kind(), SectionID: s.ID})
		}
		if q, ok := quizBySection[s.ID]; ok {
			items = append(items, Item{ID: q.ID, Kind: KindQuiz, SectionID: s.ID})
		}
	}
	return items
}

// Structure returns the course outline. Unpublished courses are only visible to those who manage them.
func (svc *Service) Structure(ctx context.Context, ident core.Identity, courseID int64) (Structure, error) {
	c, err := svc.Get(ctx, svc.db, courseID)
	if err != nil {
		return Structure{}, err
	}
	if !c.IsPublished && !ident.CanManageCourse(c.TeacherID) {
		return Structure{}, core.NewNotFoundError(ErrNotFound.Error())
	}

	sections, err := svc.repo.ListSections(ctx, svc.db, courseID)
	if err != nil {
		return Structure{}, errors.Wrapf(err, "listing sections of course %d", courseID)
	}
	chapters, err := svc.repo.ListChapters(ctx, svc.db, courseID)
	if err != nil {
		return Structure{}, errors.Wrapf(err, "listing chapters of course %d", courseID)
	}
	quizzes, err := svc.repo.ListQuizzes(ctx, svc.db, courseID)
	if err != nil {
		return Structure{}, errors.Wrapf(err, "listing quizzes of course %d", courseID)
	}

	details := make([]SectionDetail, 0, len(sections))
	index := make(map[int64]int, len(sections))
	for i, s := range sections {
		details = append(details, SectionDetail{Section: s, Chapters: []Chapter{}})
		index[s.ID] = i
	}
	for _, ch := range chapters {
		if i, ok := index[ch.SectionID]; ok {
			details[i].Chapters = append(details[i].Chapters, ch)
		}
	}
	for _, q := range quizzes {
		i, ok := index[q.SectionID]
		if !ok {
			continue
		}
		questions, err := svc.repo.ListQuestions(ctx, svc.db, q.ID)
		if err != nil {
			return Structure{}, errors.Wrapf(err, "listing questions of quiz %d", q.ID)
		}
		details[i].Quiz = &QuizDetail{Quiz: q, Questions: questions}
	}
	return Structure{Course: c, Sections: details}, nil
}

// Authoring

func (svc *Service) CreateCourse(ctx context.Context, ident core.Identity, nc NewCourse) (Course, error) {
	if !(ident.IsTeacher() || ident.IsAdmin()) {
		return Course{}, core.NewAuthError(errNotAuthor)
	}
	if err := nc.Validate(); err != nil {
		return Course{}, err
	}

	now := nowFunc()
	c := Course{
		TeacherID:   ident.UserID,
		Title:       nc.Title,
		Description: nc.Description,
		PriceCents:  nc.PriceCents,
		IsPublished: nc.IsPublished,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	c, err := svc.repo.CreateCourse(ctx, svc.db, c)
	return c, errors.Wrap(err, "creating course")
}

// managedCourse returns the course if the identity may author it.
func (svc *Service) managedCourse(ctx context.Context, exec core.DBExecutor, ident core.Identity, courseID int64) (Course, error) {
	if !(ident.IsTeacher() || ident.IsAdmin()) {
		return Course{}, core.NewAuthError(errNotAuthor)
	}
	c, err := svc.Get(ctx, exec, courseID)
	if err != nil {
		return Course{}, err
	}
	if !ident.CanManageCourse(c.TeacherID) {
		return Course{}, core.NewPermissionError(errNotCourseOwner)
	}
	return c, nil
}

func (svc *Service) managedSection(ctx context.Context, exec core.DBExecutor, ident core.Identity, sectionID int64) (Section, error) {
	s, err := svc.repo.GetSection(ctx, exec, sectionID)
	if err != nil {
		if errors.Cause(err) == ErrSectionNotFound {
			return Section{}, core.NewNotFoundError(ErrSectionNotFound.Error())
		}
		return Section{}, errors.Wrapf(err, "getting section %d", sectionID)
	}
	if _, err = svc.managedCourse(ctx, exec, ident, s.CourseID); err != nil {
		return Section{}, err
	}
	return s, nil
}

func (svc *Service) AddSection(ctx context.Context, ident core.Identity, courseID int64, ns NewSection) (Section, error) {
	if _, err := svc.managedCourse(ctx, svc.db, ident, courseID); err != nil {
		return Section{}, err
	}
	if err := ns.Validate(); err != nil {
		return Section{}, err
	}

	s, err := svc.repo.CreateSection(ctx, svc.db, Section{
		CourseID:   courseID,
		Title:      ns.Title,
		OrderIndex: ns.OrderIndex,
	})
	return s, errors.Wrapf(err, "creating section in course %d", courseID)
}

func (svc *Service) AddChapter(ctx context.Context, ident core.Identity, sectionID int64, nc NewChapter) (Chapter, error) {
	s, err := svc.managedSection(ctx, svc.db, ident, sectionID)
	if err != nil {
		return Chapter{}, err
	}
	if err := nc.Validate(); err != nil {
		return Chapter{}, err
	}

	ch, err := svc.repo.CreateChapter(ctx, svc.db, Chapter{
		SectionID:       sectionID,
		CourseID:        s.CourseID,
		Title:           nc.Title,
		ContentType:     nc.ContentType,
		VideoURL:        nc.VideoURL,
		Body:            nc.Body,
		DurationSeconds: nc.DurationSeconds,
		OrderIndex:      nc.OrderIndex,
	})
	return ch, errors.Wrapf(err, "creating chapter in section %d", sectionID)
}

// SetQuiz creates or replaces the quiz of a section, questions included.
func (svc *Service) SetQuiz(ctx context.Context, ident core.Identity, sectionID int64, nq NewQuiz) (QuizDetail, error) {
	if err := nq.Validate(); err != nil {
		return QuizDetail{}, err
	}

	var detail QuizDetail
	err := core.RunInTx(ctx, svc.db, func(tx core.DBExecutor) error {
		s, err := svc.managedSection(ctx, tx, ident, sectionID)
		if err != nil {
			return err
		}

		q, err := svc.repo.UpsertQuiz(ctx, tx, Quiz{
			SectionID:    sectionID,
			CourseID:     s.CourseID,
			Title:        nq.Title,
			PassingScore: nq.PassingScore,
		})
		if err != nil {
			return errors.Wrapf(err, "saving quiz of section %d", sectionID)
		}

		questions := make([]Question, 0, len(nq.Questions))
		for i, nqq := range nq.Questions {
			questions = append(questions, Question{
				QuizID:        q.ID,
				Question:      nqq.Question,
				Options:       nqq.Options,
				CorrectOption: nqq.CorrectOption,
				OrderIndex:    i,
			})
		}
		if err = svc.repo.ReplaceQuestions(ctx, tx, q.ID, questions); err != nil {
			return errors.Wrapf(err, "saving questions of quiz %d", q.ID)
		}

		questions, err = svc.repo.ListQuestions(ctx, tx, q.ID)
		if err != nil {
			return errors.Wrapf(err, "listing questions of quiz %d", q.ID)
		}
		detail = QuizDetail{Quiz: q, Questions: questions}
		return nil
	})
	return detail, err
}
