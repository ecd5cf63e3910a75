package routes

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/re4388/event-sourcing0/internal/account"
	"github.com/re4388/event-sourcing0/internal/config"
	"github.com/re4388/event-sourcing0/internal/eventstore"
	"github.com/re4388/event-sourcing0/internal/middleware"
	"github.com/re4388/event-sourcing0/internal/notification"
	"github.com/re4388/event-sourcing0/internal/readmodel"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	// Enforce DB/Redis presence outside of dev, even though main also checks.
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.Env)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.Env)
		}
	}

	// Middlewares
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))
	if d.Cache != nil {
		app.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}

	// Health
	RegisterHealthRoutes(app, d)

	// Event log: Postgres is the durable source of truth; dev mode folds
	// back to the in-memory store.
	var events eventstore.Store
	if d.DB != nil {
		pg := eventstore.NewPostgres(d.DB)
		if err := pg.EnsureSchema(context.Background()); err != nil {
			return err
		}
		events = pg
	} else {
		events = eventstore.NewInMemory()
	}

	// Read model: Redis when available, otherwise the same Postgres
	// instance, otherwise memory. All three are interchangeable since the
	// event log can rebuild any of them.
	var reads readmodel.Store
	switch {
	case d.Cache != nil:
		reads = readmodel.NewRedis(d.Cache)
	case d.DB != nil:
		pg := readmodel.NewPostgres(d.DB)
		if err := pg.EnsureSchema(context.Background()); err != nil {
			return err
		}
		reads = pg
	default:
		reads = readmodel.NewMemory()
	}

	notifier := notification.NewLoggerNotifier(d.Logger)
	svc := account.NewService(events, reads, notifier, d.Logger)
	handler := account.NewHandler(svc)

	// API routes
	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals("X-Request-ID").(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	RegisterAccountRoutes(api, handler)

	return nil
}
