package dto

import (
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/intelligence"
)

// RiskResponse is the risk assessment for one ticket.
type RiskResponse struct {
	TicketID   int64                   `json:"ticket_id"`
	RiskScore  int                     `json:"risk_score"`
	BreachRisk intelligence.BreachRisk `json:"breach_risk"`
	Reasoning  []string                `json:"reasoning"`
	Confidence float64                 `json:"confidence"`
}

// RankedTicketResponse is one entry in the top-risky listing.
type RankedTicketResponse struct {
	TicketID  int64    `json:"ticket_id"`
	Title     string   `json:"title"`
	RiskScore int      `json:"risk_score"`
	Reasons   []string `json:"reasons"`
}

// FromRankedTickets maps ranker output.
func FromRankedTickets(ranked []intelligence.RankedTicket) []RankedTicketResponse {
	result := make([]RankedTicketResponse, 0, len(ranked))
	for _, entry := range ranked {
		result = append(result, RankedTicketResponse{
			TicketID:  entry.ID,
			Title:     entry.Title,
			RiskScore: entry.RiskScore,
			Reasons:   entry.Reasons,
		})
	}
	return result
}

// StatsResponse is the aggregate snapshot shape.
type StatsResponse struct {
	Total              int64    `json:"total"`
	Resolved           int64    `json:"resolved"`
	Reopened           int64    `json:"reopened"`
	ResolutionRate     float64  `json:"resolution_rate"`
	ReopenRate         float64  `json:"reopen_rate"`
	AvgResolutionHours *float64 `json:"avg_resolution_hours,omitempty"`
	AvgFeedback        *float64 `json:"avg_feedback,omitempty"`
}

// FromStats maps the snapshot.
func FromStats(snap domain.StatsSnapshot) StatsResponse {
	return StatsResponse{
		Total:              snap.Total,
		Resolved:           snap.Resolved,
		Reopened:           snap.Reopened,
		ResolutionRate:     snap.ResolutionRate,
		ReopenRate:         snap.ReopenRate,
		AvgResolutionHours: snap.AvgResolutionHours,
		AvgFeedback:        snap.AvgFeedback,
	}
}

// AgentLoadResponse is one agent's workload.
type AgentLoadResponse struct {
	AgentID       int64  `json:"agent_id"`
	Name          string `json:"name"`
	ActiveTickets int64  `json:"active_tickets"`
	Overloaded    bool   `json:"overloaded"`
}

// FromAgentLoads maps workload rows.
func FromAgentLoads(loads []domain.AgentLoad) []AgentLoadResponse {
	result := make([]AgentLoadResponse, 0, len(loads))
	for _, load := range loads {
		result = append(result, AgentLoadResponse{
			AgentID:       load.AgentID,
			Name:          load.Name,
			ActiveTickets: int64(load.ActiveTickets),
			Overloaded:    load.Overloaded,
		})
	}
	return result
}
