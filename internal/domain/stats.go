package domain

// StatsSnapshot is an aggregate view over ticket and feedback history.
// It may be stale by the time a consumer uses it; no transactional
// consistency is required.
type StatsSnapshot struct {
	Total              int64    `json:"total"`
	Resolved           int64    `json:"resolved"`
	Reopened           int64    `json:"reopened"`
	ResolutionRate     float64  `json:"resolution_rate"`
	ReopenRate         float64  `json:"reopen_rate"`
	AvgResolutionHours *float64 `json:"avg_resolution_hours"`
	AvgFeedback        *float64 `json:"avg_feedback"`
}

// AgentLoad describes one agent's active ticket load.
type AgentLoad struct {
	AgentID       int64  `json:"agent_id"`
	Name          string `json:"name"`
	ActiveTickets int    `json:"active_tickets"`
	Overloaded    bool   `json:"overloaded"`
}

// CategoryStat aggregates resolution behavior per ticket category.
type CategoryStat struct {
	Total              int      `json:"total"`
	Resolved           int      `json:"resolved"`
	AvgResolutionHours *float64 `json:"avg_resolution_hours"`
}
