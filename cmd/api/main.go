package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/paulexconde/surveyflow/internal/config"
	"github.com/paulexconde/surveyflow/internal/database"
	"github.com/paulexconde/surveyflow/internal/handlers"
	"github.com/paulexconde/surveyflow/internal/logging"
	"github.com/paulexconde/surveyflow/internal/models"
	"github.com/paulexconde/surveyflow/internal/pkg/store"
	"github.com/paulexconde/surveyflow/internal/pkg/workerpool"
	"github.com/paulexconde/surveyflow/internal/router"
	"github.com/paulexconde/surveyflow/internal/services"
	"go.uber.org/zap"
)

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	root := os.Getenv("SURVEYFLOW_ROOT")
	if root == "" {
		root = "."
	}

	conf, err := config.Load(root)
	if err != nil {
		panic("failed to load configuration: " + err.Error())
	}

	// Initialize Logger
	log, level, err := logging.Init(logging.Options{
		Directory:  conf.Logging.Directory,
		Level:      conf.Logging.Level,
		MaxSize:    conf.Logging.MaxSize,
		MaxBackups: conf.Logging.MaxBackups,
		MaxAge:     conf.Logging.MaxAge,
		Compress:   conf.Logging.Compress,
	})
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer log.Sync()

	conf.Watch(log, func(fresh *config.Config) {
		if err := logging.SetLevel(level, fresh.Logging.Level); err != nil {
			log.Warn("Ignoring invalid log level", zap.Error(err))
			return
		}
		log.Info("Log level updated", zap.String("level", level.String()))
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize Database
	db, err := database.Open(ctx, conf.Database, log)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	poolCtx, cancelPool := context.WithCancel(context.Background())
	defer cancelPool()
	pool := workerpool.NewWorkerPool(poolCtx, log, conf.Workers.Count, conf.Workers.QueueSize)

	surveys := store.NewDataStore[models.Survey](db, "surveys")
	questions := store.NewDataStore[models.Question](db, "questions")
	options := store.NewDataStore[models.QuestionOption](db, "question_options")
	conditions := store.NewDataStore[models.QuestionCondition](db, "question_conditions")
	responses := store.NewDataStore[models.SurveyResponse](db, "survey_responses")
	summaries := store.NewDataStore[models.ResponseSummary](db, "survey_responses")
	answers := store.NewDataStore[models.QuestionAnswer](db, "question_answers")

	surveyService := services.NewSurveyService(log, surveys, questions, options, conditions)

	handler := handlers.NewHandler(handlers.Config{
		Logger:     log,
		Surveys:    surveyService,
		Questions:  services.NewQuestionService(log, questions, options),
		Conditions: services.NewConditionService(log, questions, options, conditions),
		Responses: services.NewResponseService(log, services.ResponseServiceConfig{
			Surveys:    surveyService,
			Questions:  questions,
			Options:    options,
			Conditions: conditions,
			Responses:  responses,
			Summaries:  summaries,
			Answers:    answers,
			Validator:  services.NewAnswerValidator(),
			Jobs:       pool,
			Retries:    conf.Workers.Retries,
			RetryDelay: conf.Workers.RetryDelay,
		}),
		NPS: services.NewNPSService(log, questions, answers),
	})

	httpServer := &http.Server{
		Addr: ":" + conf.Server.Port,
		Handler: router.New(router.Config{
			Logger:   log,
			Server:   conf.Server,
			Auth:     conf.Auth,
			Handler:  handler,
			Database: db,
		}),
		ReadHeaderTimeout: conf.Server.ReadHeaderTimeout,
	}

	errChan := make(chan error, 1)
	go func() {
		log.Info("Server listening", zap.String("addr", httpServer.Addr))
		errChan <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server stopped unexpectedly", zap.Error(err))
		}
	case <-ctx.Done():
		log.Info("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown failed", zap.Error(err))
	}
	pool.Shutdown(shutdownCtx)

	log.Info("Server stopped")
}
