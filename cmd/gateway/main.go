package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	api "github.com/mind-engage/examportal/internal/api/http"
	auth "github.com/mind-engage/examportal/internal/auth/middleware"
	"github.com/mind-engage/examportal/internal/config"
	"github.com/mind-engage/examportal/internal/db"
	"github.com/mind-engage/examportal/internal/exam"
	"github.com/mind-engage/examportal/internal/storage"
	syncx "github.com/mind-engage/examportal/internal/sync"
	"github.com/mind-engage/examportal/internal/users"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// --- DB ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	driver, err := db.ParseDriver(cfg.DBDriver)
	if err != nil {
		log.Fatalf("db driver: %v", err)
	}
	dbh, err := db.Open(ctx, driver, cfg.DBDSN)
	if err != nil {
		log.Fatalf("db open failed: %v", err)
	}
	defer dbh.Close()

	loc, err := cfg.Location()
	if err != nil {
		log.Fatalf("TEST_TIMEZONE: %v", err)
	}

	userStore := users.NewStore(dbh)
	if cfg.BootstrapTeacherEmail != "" {
		if err := userStore.EnsureTeacher(ctx, cfg.BootstrapTeacherEmail, cfg.BootstrapTeacherName, cfg.BootstrapTeacherPassHash); err != nil {
			log.Fatalf("bootstrap teacher: %v", err)
		}
	}

	events := syncx.NewEventRepo(dbh, cfg.SiteID)
	svc := exam.NewService(exam.NewSQLStore(dbh), userStore.Roster(),
		exam.WithLocation(loc),
		exam.WithWindowEnforcement(cfg.EnforceTestWindow),
		exam.WithGrace(cfg.SubmitGrace),
		exam.WithEvents(events),
	)

	var archive storage.Archive
	if cfg.ImportArchiveDir != "" {
		fs, err := storage.NewFSArchive(cfg.ImportArchiveDir)
		if err != nil {
			log.Fatalf("import archive: %v", err)
		}
		archive = fs
	}

	// --- Router ---
	handler := api.NewRouter(api.Deps{
		DB:          dbh,
		Auth:        auth.NewAuthService(cfg.AuthSecret, cfg.TokenTTL),
		Users:       userStore,
		Exams:       svc,
		Events:      events,
		Archive:     archive,
		CORSOrigins: cfg.CORSOrigins(),
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		log.Printf("listening on %s (mode=%s, db=%s, window=%v)", cfg.HTTPAddr, cfg.Mode, driver, cfg.EnforceTestWindow)
		errc <- srv.ListenAndServe()
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	case sig := <-sigc:
		log.Printf("%v: shutting down", sig)
		sctx, scancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer scancel()
		if err := srv.Shutdown(sctx); err != nil {
			log.Printf("graceful shutdown failed: %v", err)
			_ = srv.Close()
		}
	}
}
