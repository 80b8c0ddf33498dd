package chat

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// Intent is the normalized category of what a message asks for.
type Intent string

const (
	IntentConfirmAction  Intent = "confirm_action"
	IntentCancelAction   Intent = "cancel_action"
	IntentAddComment     Intent = "add_comment"
	IntentCloseTicket    Intent = "close_ticket"
	IntentReopenTicket   Intent = "reopen_ticket"
	IntentAssignToMe     Intent = "assign_to_me"
	IntentCreateTicket   Intent = "create_ticket"
	IntentSetStatus      Intent = "set_status"
	IntentSubmitFeedback Intent = "submit_feedback"
	IntentTicketStatus   Intent = "ticket_status"
	IntentTicketRisk     Intent = "ticket_risk"
	IntentMyTickets      Intent = "my_tickets"
	IntentOverdueList    Intent = "overdue_list"
	IntentTopRisky       Intent = "top_risky"
	IntentAgentPriority  Intent = "agent_priority"
	IntentGreeting       Intent = "greeting"
	IntentUnknown        Intent = "unknown"
)

// Entities holds whatever could be extracted from the message.
// Unresolvable entities stay nil; the dialogue manager asks for them.
type Entities struct {
	TicketID    *int64
	Rating      *int
	Status      *domain.TicketStatus
	CommentBody string
}

// Classification is the classifier output for one message.
type Classification struct {
	Intent   Intent
	Entities Entities
}

// Rules are evaluated top to bottom; the first match wins. Confirm and
// cancel come first so a pending action always binds correctly, then
// action intents, then informational intents, then greeting.
var intentRules = []struct {
	pattern *regexp.Regexp
	intent  Intent
}{
	{regexp.MustCompile(`^(yes|confirm)$`), IntentConfirmAction},
	{regexp.MustCompile(`^(no|cancel)$`), IntentCancelAction},

	{regexp.MustCompile(`^add comment|comment:|add note`), IntentAddComment},
	{regexp.MustCompile(`^close|^resolve`), IntentCloseTicket},
	{regexp.MustCompile(`reopen`), IntentReopenTicket},
	{regexp.MustCompile(`assign.*\bme\b`), IntentAssignToMe},
	{regexp.MustCompile(`create.*ticket|new ticket`), IntentCreateTicket},
	{regexp.MustCompile(`set.*status|change.*status|mark.*\bas\b|move.*\bto\b`), IntentSetStatus},
	{regexp.MustCompile(`feedback|\brate\b|rating|\bstars?\b`), IntentSubmitFeedback},

	{regexp.MustCompile(`status.*ticket|ticket.*status|status\?`), IntentTicketStatus},
	{regexp.MustCompile(`top.*risk|riskiest|most risky`), IntentTopRisky},
	{regexp.MustCompile(`\brisk\b|risky|at risk|delay|delayed|late|why.*ticket|ticket.*delay`), IntentTicketRisk},
	{regexp.MustCompile(`overdue`), IntentOverdueList},
	{regexp.MustCompile(`my tickets|list.*tickets|show.*tickets`), IntentMyTickets},
	{regexp.MustCompile(`work on|prioritize|urgent tickets|what should i`), IntentAgentPriority},

	{regexp.MustCompile(`\b(hello|hi|hey)\b`), IntentGreeting},
}

var (
	ticketIDPattern      = regexp.MustCompile(`\b\d+\b`)
	ratingPattern        = regexp.MustCompile(`\b[1-5]\b`)
	commentPrefixPattern = regexp.MustCompile(`^(add comment|add note|comment)\b`)
)

// statusVocab resolves a target status by substring match; first entry
// in this order wins.
var statusVocab = []struct {
	keyword string
	status  domain.TicketStatus
}{
	{"in progress", domain.TicketStatusInProgress},
	{"pending", domain.TicketStatusPending},
	{"resolved", domain.TicketStatusResolved},
	{"closed", domain.TicketStatusResolved},
	{"reopened", domain.TicketStatusReopened},
	{"new", domain.TicketStatusNew},
	{"open", domain.TicketStatusNew},
}

// Classify maps a free-text message to an intent and extracted entities.
// Deterministic, stateless, never fails.
func Classify(message string) Classification {
	text := strings.ToLower(strings.TrimSpace(message))

	intent := IntentUnknown
	for _, rule := range intentRules {
		if rule.pattern.MatchString(text) {
			intent = rule.intent
			break
		}
	}

	return Classification{
		Intent: intent,
		Entities: Entities{
			TicketID:    extractTicketID(text),
			Rating:      extractRating(text),
			Status:      extractStatus(text),
			CommentBody: extractCommentBody(text),
		},
	}
}

// extractTicketID takes the first standalone integer in the message.
// Any bare number counts; disambiguation is not attempted.
func extractTicketID(text string) *int64 {
	match := ticketIDPattern.FindString(text)
	if match == "" {
		return nil
	}
	id, err := strconv.ParseInt(match, 10, 64)
	if err != nil {
		return nil
	}
	return &id
}

// extractRating takes the first standalone digit 1-5.
func extractRating(text string) *int {
	match := ratingPattern.FindString(text)
	if match == "" {
		return nil
	}
	rating, err := strconv.Atoi(match)
	if err != nil {
		return nil
	}
	return &rating
}

func extractStatus(text string) *domain.TicketStatus {
	for _, entry := range statusVocab {
		if strings.Contains(text, entry.keyword) {
			status := entry.status
			return &status
		}
	}
	return nil
}

// extractCommentBody prefers the text after the first colon; otherwise it
// strips the leading comment keyword and the first number token.
func extractCommentBody(text string) string {
	if idx := strings.Index(text, ":"); idx >= 0 {
		return strings.TrimSpace(text[idx+1:])
	}

	rest := commentPrefixPattern.ReplaceAllString(text, "")
	if rest == text {
		return ""
	}
	if loc := ticketIDPattern.FindStringIndex(rest); loc != nil {
		rest = rest[:loc[0]] + rest[loc[1]:]
	}
	rest = strings.TrimPrefix(strings.TrimSpace(rest), "to ticket")
	rest = strings.TrimPrefix(strings.TrimSpace(rest), "on ticket")
	rest = strings.TrimPrefix(strings.TrimSpace(rest), "ticket")
	return strings.Join(strings.Fields(rest), " ")
}
