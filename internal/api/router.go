package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/medoc-health/opd-token-allocation/internal/allocation"
)

type RouterConfig struct {
	Engine  *allocation.Engine
	Slots   allocation.SlotRepository
	Tokens  allocation.TokenRepository
	PgPool  *pgxpool.Pool // nil for in-memory store
	Redis   *redis.Client // nil for in-process locking
	Env     string
	Version string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware)

	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	h := NewHandlers(cfg.Engine, cfg.Slots, cfg.Tokens)

	r.Route("/api/tokens", func(r chi.Router) {
		r.Post("/allocate", h.allocateToken)
		r.Get("/{tokenID}", h.getToken)
		r.Patch("/{tokenID}/checkin", h.checkInToken)
		r.Patch("/{tokenID}/complete", h.completeToken)
		r.Patch("/{tokenID}/cancel", h.cancelToken)
		r.Patch("/{tokenID}/no-show", h.noShowToken)
		r.Get("/doctor/{doctorID}", h.tokensByDoctor)
	})

	r.Route("/api/slots", func(r chi.Router) {
		r.Post("/", h.createSlot)
		r.Post("/bulk", h.bulkCreateSlots)
		r.Get("/{slotID}", h.getSlot)
		r.Get("/doctor/{doctorID}", h.slotsByDoctor)
		r.Get("/date/{date}", h.slotsByDate)
		r.Patch("/{slotID}/delay", h.delaySlot)
		r.Patch("/{slotID}/activate", h.activateSlot)
		r.Patch("/{slotID}/deactivate", h.deactivateSlot)
	})

	r.Route("/api/dashboard", func(r chi.Router) {
		r.Get("/", h.dashboardOverview)
		r.Get("/doctor/{doctorID}", h.dashboardDoctor)
		r.Get("/realtime", h.dashboardRealtime)
	})

	return r
}
