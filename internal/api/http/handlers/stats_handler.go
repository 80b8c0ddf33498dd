package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

// StatsHandler exposes aggregate statistics endpoints.
type StatsHandler struct {
	stats   *service.StatsService
	metrics *observability.Metrics
}

// NewStatsHandler constructs handler.
func NewStatsHandler(stats *service.StatsService, metrics *observability.Metrics) *StatsHandler {
	return &StatsHandler{stats: stats, metrics: metrics}
}

// Overview handles GET /stats.
func (h *StatsHandler) Overview(c *fiber.Ctx) error {
	snap, err := h.stats.AggregateStats(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromStats(snap)})
}

// AgentWorkload handles GET /stats/agents.
func (h *StatsHandler) AgentWorkload(c *fiber.Ctx) error {
	loads, err := h.stats.AgentWorkload(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromAgentLoads(loads)})
}

// Categories handles GET /stats/categories.
func (h *StatsHandler) Categories(c *fiber.Ctx) error {
	categories, err := h.stats.CategoryStats(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": categories})
}

// ChatTurns handles GET /stats/chat-turns.
func (h *StatsHandler) ChatTurns(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": h.metrics.ChatTurns()})
}
