package handlers

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/intelligence"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/service"
	"github.com/spec-kit/helpdesk-service/pkg/util"
)

// IntelligenceHandler exposes risk scoring and ranking endpoints.
type IntelligenceHandler struct {
	tickets       repository.TicketRepository
	stats         *service.StatsService
	ranker        *intelligence.Ranker
	topRiskyLimit int
}

// NewIntelligenceHandler constructs handler.
func NewIntelligenceHandler(tickets repository.TicketRepository, stats *service.StatsService, ranker *intelligence.Ranker, topRiskyLimit int) *IntelligenceHandler {
	if topRiskyLimit <= 0 {
		topRiskyLimit = 5
	}
	return &IntelligenceHandler{tickets: tickets, stats: stats, ranker: ranker, topRiskyLimit: topRiskyLimit}
}

// TicketRisk handles GET /tickets/:id/risk.
func (h *IntelligenceHandler) TicketRisk(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
	}
	ticketID, err := parseTicketID(c)
	if err != nil {
		return err
	}

	ticket, err := h.tickets.GetByID(c.Context(), ticketID)
	if err != nil {
		return err
	}
	if ticket.RequesterID != user.ID && !user.Role.IsAgent() {
		return util.NewForbidden("access denied")
	}

	snap, err := h.stats.AggregateStats(c.Context())
	if err != nil {
		return err
	}

	assessment := intelligence.Score(ticket, snap, time.Now())
	return c.JSON(fiber.Map{"data": dto.RiskResponse{
		TicketID:   ticket.ID,
		RiskScore:  assessment.Score,
		BreachRisk: intelligence.PredictSLABreach(assessment.Score),
		Reasoning:  assessment.Reasoning,
		Confidence: assessment.Confidence,
	}})
}

// TopRisky handles GET /intelligence/top-risky.
func (h *IntelligenceHandler) TopRisky(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", h.topRiskyLimit)
	ranked, err := h.ranker.TopRisky(c.Context(), limit)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromRankedTickets(ranked)})
}

// Recommendations handles GET /tickets/:id/recommendations.
func (h *IntelligenceHandler) Recommendations(c *fiber.Ctx) error {
	ticketID, err := parseTicketID(c)
	if err != nil {
		return err
	}

	ticket, err := h.tickets.GetByID(c.Context(), ticketID)
	if err != nil {
		return err
	}

	snap, err := h.stats.AggregateStats(c.Context())
	if err != nil {
		return err
	}

	assessment := intelligence.Score(ticket, snap, time.Now())
	return c.JSON(fiber.Map{"data": fiber.Map{
		"ticket_id":       ticket.ID,
		"risk_score":      assessment.Score,
		"recommendations": intelligence.Recommendations(ticket, assessment.Score),
	}})
}
