package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	dig_container "github.com/trezcool/manabi/apps/api/di/dig"
	echoapi "github.com/trezcool/manabi/apps/api/echo"
	"github.com/trezcool/manabi/core"
)

func main() {
	c := dig_container.New()

	err := c.Invoke(func(
		conf *core.Config,
		logger core.Logger,
		dbLogger dig_container.DBLoggerParam,
		db *sqlx.DB,
		server *echoapi.Server,
	) {
		defer func() {
			if err := db.Close(); err != nil {
				dbLogger.Logger.Error("closing database", err)
			}
		}()

		if err := run(conf, logger, db, server); err != nil {
			logger.Fatal(err.Error(), err)
		}
	})
	if err != nil {
		log.Fatal(err)
	}
}

func run(conf *core.Config, logger core.Logger, db *sqlx.DB, server *echoapi.Server) error {
	logger.Info(fmt.Sprintf("manabi api starting : env=%s build=%s db=%s", conf.Env, conf.Build, conf.Database.Engine))
	defer logger.Info("manabi api stopped")

	core.ParseEmailTemplates(conf, logger)

	// /debug/vars on the debug address
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)
	expvar.Publish("db", expvar.Func(func() interface{} { return db.Stats() }))
	go func() {
		if err := http.ListenAndServe(conf.Server.DebugAddress, http.DefaultServeMux); err != nil {
			logger.Warn("debug listener stopped", err)
		}
	}()

	server.Start()

	select {
	case err := <-server.Errors():
		return errors.Wrap(err, "api server")

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("received %v, draining requests", sig))

		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Warn("graceful shutdown timed out, closing connections", err)
			if err := server.Close(); err != nil {
				return errors.Wrap(err, "closing api server")
			}
		}
	}
	return nil
}
