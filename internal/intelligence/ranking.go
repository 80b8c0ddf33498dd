package intelligence

import (
	"context"
	"sort"
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// TicketSource supplies non-resolved tickets for ranking.
type TicketSource interface {
	ListUnresolved(ctx context.Context, limit int) ([]domain.Ticket, error)
}

// StatsSource supplies a fresh statistics snapshot per ranking request.
type StatsSource interface {
	AggregateStats(ctx context.Context) (domain.StatsSnapshot, error)
}

// RankedTicket is one entry of the top-risky listing.
type RankedTicket struct {
	ID         int64                 `json:"id"`
	Title      string                `json:"title"`
	Status     domain.TicketStatus   `json:"status"`
	Priority   domain.TicketPriority `json:"priority"`
	DueDate    *time.Time            `json:"due_date"`
	RiskScore  int                   `json:"risk_score"`
	Confidence float64               `json:"confidence"`
	Reasons    []string              `json:"reasons"`
}

// Ranker scores a bounded set of open tickets per request. Scores are
// not cached across requests.
type Ranker struct {
	tickets TicketSource
	stats   StatsSource
	cap     int
}

// NewRanker builds a ranker with the given fetch cap.
func NewRanker(tickets TicketSource, stats StatsSource, fetchCap int) *Ranker {
	if fetchCap <= 0 {
		fetchCap = 200
	}
	return &Ranker{tickets: tickets, stats: stats, cap: fetchCap}
}

// TopRisky fetches up to the cap of non-resolved tickets, scores each
// against a fresh snapshot, and returns the top n sorted by descending
// score. Ties keep fetch order (stable sort); each entry carries at most
// the top three reasons.
func (r *Ranker) TopRisky(ctx context.Context, n int) ([]RankedTicket, error) {
	if n <= 0 {
		n = 10
	}

	tickets, err := r.tickets.ListUnresolved(ctx, r.cap)
	if err != nil {
		return nil, err
	}
	stats, err := r.stats.AggregateStats(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	scored := make([]RankedTicket, 0, len(tickets))
	for i := range tickets {
		t := &tickets[i]
		assessment := Score(t, stats, now)

		title := t.Title
		if title == "" {
			title = "(no title)"
		}
		reasons := assessment.Reasoning
		if len(reasons) > 3 {
			reasons = reasons[:3]
		}
		scored = append(scored, RankedTicket{
			ID:         t.ID,
			Title:      title,
			Status:     t.Status,
			Priority:   t.Priority,
			DueDate:    t.DueDate,
			RiskScore:  assessment.Score,
			Confidence: assessment.Confidence,
			Reasons:    reasons,
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].RiskScore > scored[j].RiskScore
	})

	if len(scored) > n {
		scored = scored[:n]
	}
	return scored, nil
}
