package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/hiroyukim/warikan/docs"
	"github.com/hiroyukim/warikan/internal/approval"
	"github.com/hiroyukim/warikan/internal/circle"
	"github.com/hiroyukim/warikan/internal/config"
	"github.com/hiroyukim/warikan/internal/database"
	"github.com/hiroyukim/warikan/internal/event"
	"github.com/hiroyukim/warikan/internal/line"
	"github.com/hiroyukim/warikan/internal/notification"
	"github.com/hiroyukim/warikan/internal/reminder"
	"github.com/hiroyukim/warikan/internal/storage/memory"
	"github.com/hiroyukim/warikan/internal/user"
	"github.com/hiroyukim/warikan/pkg/logging"
	mw "github.com/hiroyukim/warikan/pkg/middleware"
)

// reminderHour is the local hour of the daily payment reminder sweep
const reminderHour = 12

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, using environment variables")
	}

	logging.Setup()

	cfg := config.Load()

	var (
		userStore     user.Store
		circleStore   circle.Store
		eventStore    event.Store
		approvalStore approval.Store
	)

	if cfg.DatabaseURL == "memory" {
		slog.Info("using in-memory store")
		mem := memory.NewStore()
		userStore, circleStore, eventStore, approvalStore = mem, mem, mem, mem
	} else {
		db, err := database.NewPostgresConnection(cfg.DatabaseURL)
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		if err := database.Migrate(db); err != nil {
			slog.Error("failed to run migrations", "error", err)
			os.Exit(1)
		}

		slog.Info("connected to database")
		userStore = user.NewRepository(db)
		circleStore = circle.NewRepository(db)
		eventStore = event.NewRepository(db)
		approvalStore = approval.NewRepository(db)
	}

	// With a channel token we verify real LINE identities and push
	// notifications; without one we fall back to debug headers and
	// log-only delivery.
	var (
		dispatcher notification.Dispatcher
		authMW     func(http.Handler) http.Handler
	)
	if cfg.LineChannelToken != "" {
		lineClient := line.NewClient(cfg.LineChannelToken)
		dispatcher = notification.NewPushDispatcher(lineClient)
		authMW = mw.Auth(lineClient)
	} else {
		slog.Warn("LINE_CHANNEL_ACCESS_TOKEN not set, using debug identity headers and log-only notifications")
		dispatcher = notification.LogDispatcher{}
		authMW = mw.DevUser
	}

	userHandler := user.NewHandler(user.NewService(userStore))
	circleHandler := circle.NewHandler(circle.NewService(circleStore))
	eventHandler := event.NewHandler(event.NewService(eventStore, dispatcher))
	approvalHandler := approval.NewHandler(approval.NewService(approvalStore, dispatcher))

	sched := reminder.NewScheduler(eventStore, dispatcher, reminderHour)
	go sched.Run(context.Background())

	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(authMW)

		r.Mount("/users", userHandler.Routes())
		r.Mount("/circles", circleHandler.Routes())
		r.Mount("/events", eventHandler.Routes())
		r.Mount("/approvals", approvalHandler.Routes())
	})

	slog.Info("server starting", "port", cfg.Port)
	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}
