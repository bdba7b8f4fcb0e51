package sync

import (
	"errors"

	"tag-sync/core/logger"
	"tag-sync/core/reconcile"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for sync runs.
type Handler struct {
	service *Service
	logger  *zap.Logger
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes registers the sync routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/sync")
	group.Get("/plan", h.HandlePlan)
	group.Post("/upload", h.HandleRun(reconcile.Upload))
	group.Post("/download", h.HandleRun(reconcile.Download))
	group.Get("/missing", h.HandleMissing)
	group.Get("/records", h.HandleRecords)
}

// HandlePlan returns the actions a sync would take without running it.
//
//	GET /sync/plan?direction=upload|download&purge=true
func (h *Handler) HandlePlan(c *fiber.Ctx) error {
	direction, err := reconcile.ParseDirection(c.Query("direction"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	plan, err := h.service.Plan(c.Context(), reconcile.Options{
		Direction: direction,
		DoPurge:   c.QueryBool("purge"),
	})
	if err != nil {
		logger.WithRayID(h.logger, c).Error("Sync planning failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(plan)
}

// HandleRun plans and applies a sync in direction. dry_run=true only plans.
//
//	POST /sync/upload?dry_run=false&purge=false
func (h *Handler) HandleRun(direction reconcile.Direction) fiber.Handler {
	return func(c *fiber.Ctx) error {
		l := logger.WithRayID(h.logger, c)

		opts := reconcile.Options{
			Direction: direction,
			DryRun:    c.QueryBool("dry_run"),
			DoPurge:   c.QueryBool("purge"),
			Confirmed: true,
		}
		result, err := h.service.Sync(c.Context(), opts)
		if errors.Is(err, ErrBusy) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
		}
		if err != nil {
			l.Error("Sync run failed", zap.String("direction", string(direction)), zap.Error(err))
			status := fiber.StatusInternalServerError
			if result == nil {
				return c.Status(status).JSON(fiber.Map{"error": err.Error()})
			}
			return c.Status(status).JSON(fiber.Map{"error": err.Error(), "result": result})
		}

		l.Info("Sync run finished",
			zap.String("direction", string(direction)),
			zap.Bool("dry_run", opts.DryRun),
			zap.Int("executed", result.Executed))
		return c.JSON(result)
	}
}

// HandleRecords reports the sync state of every record, or of one record when
// key is given.
//
//	GET /sync/records?key=bipd:objects\marine
func (h *Handler) HandleRecords(c *fiber.Ctx) error {
	key := c.Query("key")
	if key == "" {
		results, err := h.service.Records(c.Context())
		if err != nil {
			logger.WithRayID(h.logger, c).Error("Listing records failed", zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(fiber.Map{"container": h.service.Container(), "records": results})
	}

	result, ok, err := h.service.Record(c.Context(), key)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "unknown record " + key})
	}
	return c.JSON(result)
}

// HandleMissing returns the references left unresolved by the last download.
//
//	GET /sync/missing
func (h *Handler) HandleMissing(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"container": h.service.Container(),
		"missing":   h.service.Missing(),
	})
}
