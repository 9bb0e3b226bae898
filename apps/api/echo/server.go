package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/trezcool/manabi/core"
	"github.com/trezcool/manabi/core/course"
	"github.com/trezcool/manabi/core/enrollment"
	"github.com/trezcool/manabi/core/payment"
	"github.com/trezcool/manabi/core/progress"
	"github.com/trezcool/manabi/core/quiz"
	"github.com/trezcool/manabi/core/user"
)

type (
	Deps struct {
		Conf          *core.Config
		Logger        core.Logger
		UserSvc       *user.Service
		CourseSvc     *course.Service
		ProgressSvc   *progress.Service
		QuizSvc       *quiz.Service
		EnrollmentSvc *enrollment.Service
		PaymentSvc    *payment.Service
	}

	Server struct {
		deps         Deps
		app          *echo.Echo
		serverErrors chan error
		shutdown     chan os.Signal
	}
)

func NewServer(deps Deps) *Server {
	s := &Server{
		deps:         deps,
		app:          echo.New(),
		serverErrors: make(chan error, 1),
		shutdown:     make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *Server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	s.app.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: uuid.NewString}))
	if !conf.Server.DisableRequestLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.SignalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", home)

	v1 := s.app.Group("/v1")
	auth := middleware.JWTWithConfig(appJWTConfig(conf.SecretKey))

	registerUserAPI(v1, s.deps.UserSvc, conf)
	registerProgressAPI(v1, auth, s.deps.ProgressSvc)
	registerCourseAPI(v1, auth, s.deps.CourseSvc, s.deps.EnrollmentSvc)
	registerQuizAPI(v1, auth, s.deps.QuizSvc)
	registerPaymentAPI(v1, auth, s.deps.PaymentSvc, conf)
}

// Start listens in the background; listener errors are sent on Errors.
func (s *Server) Start() {
	go func() {
		if err := s.app.Start(s.deps.Conf.Server.Address); err != nil && err != http.ErrServerClosed {
			s.serverErrors <- err
		}
	}()
}

func (s *Server) Errors() <-chan error { return s.serverErrors }

func (s *Server) ShutdownSignal() <-chan os.Signal { return s.shutdown }

// SignalShutdown asks the application to shut down gracefully.
func (s *Server) SignalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default:
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to Manabi API!")
}
