package intelligence

import (
	"math"
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// Assessment is the output of the risk scoring engine.
type Assessment struct {
	Score      int      `json:"score"`
	Reasoning  []string `json:"reasoning"`
	Confidence float64  `json:"confidence"`
}

// BreachRisk bands the likelihood of an SLA breach.
type BreachRisk string

const (
	BreachRiskHigh   BreachRisk = "High"
	BreachRiskMedium BreachRisk = "Medium"
	BreachRiskLow    BreachRisk = "Low"
)

// Score evaluates a deterministic weighted-rule additive model over the
// ticket and a statistics snapshot. Rules fire independently, in fixed
// order, each appending its reason; the total is clamped to [0,100].
// Pure function: callers supply the clock.
func Score(ticket *domain.Ticket, stats domain.StatsSnapshot, now time.Time) Assessment {
	score := 0
	var reasons []string

	add := func(weight int, reason string) {
		score += weight
		reasons = append(reasons, reason)
	}

	switch ticket.Priority {
	case domain.TicketPriorityHigh:
		add(30, "priority raises risk")
	case domain.TicketPriorityMedium:
		add(15, "priority raises risk slightly")
	}

	if ticket.DueDate != nil {
		hoursLeft := ticket.DueDate.Sub(now).Hours()
		switch {
		case hoursLeft < 0:
			add(50, "overdue")
		case hoursLeft < 6:
			add(25, "near SLA breach")
		case hoursLeft < 24:
			add(15, "approaching SLA breach")
		}
	}

	switch ticket.Status {
	case domain.TicketStatusReopened:
		add(20, "prior resolution failed")
	case domain.TicketStatusNew:
		add(10, "untriaged")
	}

	if ticket.AgentID == nil {
		add(20, "unassigned")
	}

	if stats.ReopenRate > 0.15 {
		add(5, "elevated historical reopen rate")
	}
	if stats.AvgFeedback != nil && *stats.AvgFeedback < 3.5 {
		add(5, "elevated caution from low satisfaction")
	}

	if score > 100 {
		score = 100
	}

	return Assessment{
		Score:      score,
		Reasoning:  reasons,
		Confidence: confidence(stats.Total),
	}
}

// confidence grows monotonically with historical ticket volume,
// independent of the score itself.
func confidence(total int64) float64 {
	c := 0.4 + math.Log10(float64(total)+1)/5
	if c < 0.4 {
		c = 0.4
	}
	if c > 0.95 {
		c = 0.95
	}
	return c
}

// PredictSLABreach bands a risk score.
func PredictSLABreach(score int) BreachRisk {
	if score >= 70 {
		return BreachRiskHigh
	}
	if score >= 40 {
		return BreachRiskMedium
	}
	return BreachRiskLow
}

// Recommendations derives follow-up suggestions for a scored ticket.
func Recommendations(ticket *domain.Ticket, score int) []string {
	var recs []string

	if ticket.AgentID == nil {
		recs = append(recs, "Assign ticket to an agent immediately")
	}
	if ticket.Priority == domain.TicketPriorityHigh && score > 60 {
		recs = append(recs, "Consider escalating this ticket")
	}
	if ticket.Status == domain.TicketStatusReopened {
		recs = append(recs, "Review previous resolution and assign senior agent")
	}
	if len(recs) == 0 {
		recs = append(recs, "No immediate action required")
	}
	return recs
}
