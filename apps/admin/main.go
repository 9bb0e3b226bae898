package main

import (
	"log"
	"os"

	"github.com/trezcool/manabi/core"
	"github.com/trezcool/manabi/core/course"
	"github.com/trezcool/manabi/core/enrollment"
	"github.com/trezcool/manabi/core/payment"
	"github.com/trezcool/manabi/core/progress"
	"github.com/trezcool/manabi/core/user"
	emailsvc "github.com/trezcool/manabi/services/email"
	logsvc "github.com/trezcool/manabi/services/logger"
	"github.com/trezcool/manabi/storage/database"
	"github.com/trezcool/manabi/storage/database/sqlxrepos"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile), conf)

	// set up DB
	if err := database.CreateIfNotExist(conf); err != nil {
		logger.Fatal("creating database", err)
	}
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal("opening database", err)
	}
	defer db.Close()

	core.ParseEmailTemplates(conf, logger)
	var mailer core.EmailService
	if conf.Debug || conf.SendgridAPIKey == "" {
		mailer = emailsvc.NewConsoleService(conf, logger)
	} else {
		mailer = emailsvc.NewSendgridService(conf, logger)
	}

	// set up services
	courseRepo := sqlxrepos.NewCourseRepository()
	usrSvc := user.NewService(db, sqlxrepos.NewUserRepository())
	courseSvc := course.NewService(db, courseRepo)
	enrollmentSvc := enrollment.NewService(
		db, sqlxrepos.NewEnrollmentRepository(), courseSvc, payment.NewLedger(sqlxrepos.NewPaymentRepository()),
	)
	progressSvc := progress.NewService(
		db, sqlxrepos.NewProgressRepository(courseRepo), courseSvc, enrollmentSvc, usrSvc, mailer, logger,
	)

	// start CLI
	cli := commandLine{
		conf:          conf,
		db:            db,
		usrSvc:        usrSvc,
		enrollmentSvc: enrollmentSvc,
		progressSvc:   progressSvc,
	}
	if err := cli.run(os.Args[1:]); err != nil {
		db.Close()
		os.Exit(1)
	}
}
