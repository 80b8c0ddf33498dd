package intelligence

import (
	"math"
	"testing"
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

func TestScoreHighRiskClampedAt100(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	due := now.Add(-time.Hour)
	ticket := &domain.Ticket{
		Priority: domain.TicketPriorityHigh,
		Status:   domain.TicketStatusNew,
		DueDate:  &due,
		AgentID:  nil,
	}

	got := Score(ticket, domain.StatsSnapshot{}, now)
	// 30 (priority) + 50 (overdue) + 10 (new) + 20 (unassigned) = 110
	if got.Score != 100 {
		t.Fatalf("expected clamped score 100, got %d", got.Score)
	}

	wantReasons := []string{"priority raises risk", "overdue", "untriaged", "unassigned"}
	if len(got.Reasoning) != len(wantReasons) {
		t.Fatalf("expected %d reasons, got %v", len(wantReasons), got.Reasoning)
	}
	for i, want := range wantReasons {
		if got.Reasoning[i] != want {
			t.Errorf("reason[%d]: expected %q, got %q", i, want, got.Reasoning[i])
		}
	}
}

func TestScoreCalmTicketIsZero(t *testing.T) {
	agentID := int64(7)
	ticket := &domain.Ticket{
		Priority: domain.TicketPriorityLow,
		Status:   domain.TicketStatusResolved,
		DueDate:  nil,
		AgentID:  &agentID,
	}

	got := Score(ticket, domain.StatsSnapshot{}, time.Now())
	if got.Score != 0 {
		t.Fatalf("expected score 0, got %d (%v)", got.Score, got.Reasoning)
	}
	if band := PredictSLABreach(got.Score); band != BreachRiskLow {
		t.Fatalf("expected Low breach risk, got %s", band)
	}
}

func TestScoreDueDateBands(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	agentID := int64(1)
	base := domain.Ticket{
		Priority: domain.TicketPriorityLow,
		Status:   domain.TicketStatusInProgress,
		AgentID:  &agentID,
	}

	cases := []struct {
		name  string
		due   time.Duration
		want  int
		spell string
	}{
		{"overdue", -2 * time.Hour, 50, "overdue"},
		{"under 6h", 3 * time.Hour, 25, "near SLA breach"},
		{"under 24h", 12 * time.Hour, 15, "approaching SLA breach"},
		{"plenty of time", 48 * time.Hour, 0, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ticket := base
			due := now.Add(tc.due)
			ticket.DueDate = &due

			got := Score(&ticket, domain.StatsSnapshot{}, now)
			if got.Score != tc.want {
				t.Fatalf("expected score %d, got %d", tc.want, got.Score)
			}
			if tc.spell != "" {
				if len(got.Reasoning) != 1 || got.Reasoning[0] != tc.spell {
					t.Fatalf("expected reason %q, got %v", tc.spell, got.Reasoning)
				}
			}
		})
	}
}

func TestScoreHistoricalAdjustments(t *testing.T) {
	agentID := int64(1)
	lowFeedback := 3.0
	ticket := &domain.Ticket{
		Priority: domain.TicketPriorityLow,
		Status:   domain.TicketStatusInProgress,
		AgentID:  &agentID,
	}
	stats := domain.StatsSnapshot{
		ReopenRate:  0.2,
		AvgFeedback: &lowFeedback,
	}

	got := Score(ticket, stats, time.Now())
	if got.Score != 10 {
		t.Fatalf("expected 5+5=10 from historical rules, got %d (%v)", got.Score, got.Reasoning)
	}
}

func TestConfidenceGrowsWithVolume(t *testing.T) {
	cases := []struct {
		total int64
		want  float64
	}{
		{0, 0.4},
		{9, 0.6},
		{99, 0.8},
		{10_000_000, 0.95}, // clamped
	}
	for _, tc := range cases {
		got := confidence(tc.total)
		if math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("confidence(%d): expected %v, got %v", tc.total, tc.want, got)
		}
	}
}

func TestPredictSLABreachBands(t *testing.T) {
	if got := PredictSLABreach(70); got != BreachRiskHigh {
		t.Errorf("70: expected High, got %s", got)
	}
	if got := PredictSLABreach(69); got != BreachRiskMedium {
		t.Errorf("69: expected Medium, got %s", got)
	}
	if got := PredictSLABreach(40); got != BreachRiskMedium {
		t.Errorf("40: expected Medium, got %s", got)
	}
	if got := PredictSLABreach(39); got != BreachRiskLow {
		t.Errorf("39: expected Low, got %s", got)
	}
}

func TestRecommendations(t *testing.T) {
	t.Run("unassigned reopened high", func(t *testing.T) {
		ticket := &domain.Ticket{
			Priority: domain.TicketPriorityHigh,
			Status:   domain.TicketStatusReopened,
		}
		recs := Recommendations(ticket, 80)
		if len(recs) != 3 {
			t.Fatalf("expected 3 recommendations, got %v", recs)
		}
	})

	t.Run("calm ticket", func(t *testing.T) {
		agentID := int64(2)
		ticket := &domain.Ticket{
			Priority: domain.TicketPriorityLow,
			Status:   domain.TicketStatusInProgress,
			AgentID:  &agentID,
		}
		recs := Recommendations(ticket, 5)
		if len(recs) != 1 || recs[0] != "No immediate action required" {
			t.Fatalf("expected default recommendation, got %v", recs)
		}
	})
}
