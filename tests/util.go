package testutil

import (
	"context"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/trezcool/manabi/core"
	"github.com/trezcool/manabi/core/course"
	"github.com/trezcool/manabi/core/enrollment"
	"github.com/trezcool/manabi/core/payment"
	"github.com/trezcool/manabi/core/progress"
	"github.com/trezcool/manabi/core/quiz"
	"github.com/trezcool/manabi/core/user"
	emailsvc "github.com/trezcool/manabi/services/email"
	logsvc "github.com/trezcool/manabi/services/logger"
	"github.com/trezcool/manabi/storage/database"
	"github.com/trezcool/manabi/storage/database/sqlxrepos"
)

// NewTestConfig returns a TEST config backed by a sqlite file in a temp dir.
func NewTestConfig(t *testing.T) *core.Config {
	t.Helper()
	conf := core.NewConfig()
	conf.Env = "TEST"
	conf.TestMode = true
	conf.Debug = false
	conf.SecretKey = "test-secret"
	conf.Server.DisableRequestLogs = true
	conf.Database.Engine = database.EngineSQLite
	conf.Database.Path = filepath.Join(t.TempDir(), "manabi_test.db")
	conf.PayMongo.WebhookSecret = "whsk_test"
	return conf
}

func NewLogger(conf *core.Config) core.Logger {
	return logsvc.NewRollbarLogger(log.New(io.Discard, "TEST : ", log.LstdFlags), conf)
}

// PrepareDB opens and migrates the test database; it is closed on cleanup.
func PrepareDB(t *testing.T, conf *core.Config) *sqlx.DB {
	t.Helper()
	db, err := database.Open(conf)
	if err != nil {
		t.Fatalf("database.Open() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err = database.Migrate(context.Background(), db.DB, conf.Database.Engine); err != nil {
		t.Fatalf("database.Migrate() failed: %v", err)
	}
	return db
}

// FakeGateway records checkout requests instead of calling PayMongo.
type FakeGateway struct {
	mu       sync.Mutex
	Requests []payment.CheckoutRequest
	Err      error
}

func (g *FakeGateway) CreateCheckoutSession(_ context.Context, req payment.CheckoutRequest) (payment.CheckoutSession, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.Err != nil {
		return payment.CheckoutSession{}, g.Err
	}
	g.Requests = append(g.Requests, req)
	n := len(g.Requests)
	return payment.CheckoutSession{
		ID:          fmt.Sprintf("cs_test_%d", n),
		CheckoutURL: fmt.Sprintf("https://checkout.test/cs_test_%d", n),
	}, nil
}

// Env is a migrated database with every service wired on top of it.
type Env struct {
	Conf    *core.Config
	Logger  core.Logger
	DB      *sqlx.DB
	Gateway *FakeGateway

	UserRepo       user.Repository
	CourseRepo     course.Repository
	EnrollmentRepo enrollment.Repository
	ProgressRepo   progress.Repository
	QuizRepo       quiz.Repository
	PaymentRepo    payment.Repository

	Users       *user.Service
	Courses     *course.Service
	Enrollments *enrollment.Service
	Progress    *progress.Service
	Quizzes     *quiz.Service
	Payments    *payment.Service
}

func NewEnv(t *testing.T) *Env {
	t.Helper()
	conf := NewTestConfig(t)
	logger := NewLogger(conf)
	db := PrepareDB(t, conf)

	core.ParseEmailTemplates(conf, logger)
	emailsvc.ResetSentMessages()
	mailer := emailsvc.NewConsoleServiceMock(conf, logger)

	env := &Env{
		Conf:           conf,
		Logger:         logger,
		DB:             db,
		Gateway:        new(FakeGateway),
		UserRepo:       sqlxrepos.NewUserRepository(),
		CourseRepo:     sqlxrepos.NewCourseRepository(),
		EnrollmentRepo: sqlxrepos.NewEnrollmentRepository(),
		QuizRepo:       sqlxrepos.NewQuizRepository(),
		PaymentRepo:    sqlxrepos.NewPaymentRepository(),
	}
	env.ProgressRepo = sqlxrepos.NewProgressRepository(env.CourseRepo)

	env.Users = user.NewService(db, env.UserRepo)
	env.Courses = course.NewService(db, env.CourseRepo)
	env.Enrollments = enrollment.NewService(db, env.EnrollmentRepo, env.Courses, payment.NewLedger(env.PaymentRepo))
	env.Progress = progress.NewService(db, env.ProgressRepo, env.Courses, env.Enrollments, env.Users, mailer, logger)
	env.Quizzes = quiz.NewService(db, env.QuizRepo, env.Courses, env.Enrollments, env.Progress)
	env.Payments = payment.NewService(db, env.PaymentRepo, env.Courses, env.Enrollments, env.Gateway, conf)
	return env
}

func CreateUser(t *testing.T, env *Env, name, email string, role core.Role, isActive ...bool) user.User {
	t.Helper()
	usr, err := env.Users.Create(context.Background(), user.NewUser{
		Name:     name,
		Email:    email,
		Role:     role,
		Password: "password123",
	})
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	if len(isActive) > 0 && !isActive[0] {
		usr.IsActive = false
		if usr, err = env.UserRepo.UpdateUser(context.Background(), env.DB, usr); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	return usr
}

func CreateCourse(t *testing.T, env *Env, teacherID int64, title string, priceCents int64, published bool) course.Course {
	t.Helper()
	now := time.Now().UTC()
	c, err := env.CourseRepo.CreateCourse(context.Background(), env.DB, course.Course{
		TeacherID:   teacherID,
		Title:       title,
		Description: title + " description",
		PriceCents:  priceCents,
		IsPublished: published,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		t.Fatalf("CreateCourse() failed: %v", err)
	}
	return c
}

func CreateSection(t *testing.T, env *Env, courseID int64, title string, order int) course.Section {
	t.Helper()
	s, err := env.CourseRepo.CreateSection(context.Background(), env.DB, course.Section{
		CourseID:   courseID,
		Title:      title,
		OrderIndex: order,
	})
	if err != nil {
		t.Fatalf("CreateSection() failed: %v", err)
	}
	return s
}

func CreateChapter(t *testing.T, env *Env, sectionID int64, contentType string, order int) course.Chapter {
	t.Helper()
	ch := course.Chapter{
		SectionID:   sectionID,
		Title:       fmt.Sprintf("%s chapter %d", contentType, order),
		ContentType: contentType,
		OrderIndex:  order,
	}
	if contentType == course.ContentVideo {
		ch.VideoURL = "https://videos.test/" + ch.Title
		ch.DurationSeconds = 600
	} else {
		ch.Body = "lorem ipsum"
	}
	ch, err := env.CourseRepo.CreateChapter(context.Background(), env.DB, ch)
	if err != nil {
		t.Fatalf("CreateChapter() failed: %v", err)
	}
	return ch
}

// CreateQuiz creates a section quiz whose questions all have option 0 as the correct answer.
func CreateQuiz(t *testing.T, env *Env, sectionID int64, passingScore, questions int) course.Quiz {
	t.Helper()
	ctx := context.Background()
	q, err := env.CourseRepo.UpsertQuiz(ctx, env.DB, course.Quiz{
		SectionID:    sectionID,
		Title:        "Quiz",
		PassingScore: passingScore,
	})
	if err != nil {
		t.Fatalf("CreateQuiz() failed: %v", err)
	}
	qs := make([]course.Question, 0, questions)
	for i := 0; i < questions; i++ {
		qs = append(qs, course.Question{
			Question:      fmt.Sprintf("Question %d?", i+1),
			Options:       []string{"right", "wrong"},
			CorrectOption: 0,
			OrderIndex:    i,
		})
	}
	if err = env.CourseRepo.ReplaceQuestions(ctx, env.DB, q.ID, qs); err != nil {
		t.Fatalf("CreateQuiz() failed: %v", err)
	}
	return q
}

func Enroll(t *testing.T, env *Env, studentID, courseID int64) enrollment.Enrollment {
	t.Helper()
	e, err := env.EnrollmentRepo.CreateEnrollment(context.Background(), env.DB, enrollment.Enrollment{
		StudentID:  studentID,
		CourseID:   courseID,
		EnrolledAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("Enroll() failed: %v", err)
	}
	return e
}
