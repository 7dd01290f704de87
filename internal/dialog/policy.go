package dialog

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/crispdesk/supportbot/internal/domain"
)

// orderTokenPattern is deliberately unanchored: any uppercase-alphanumeric
// run of six or more characters counts as an order-number-shaped token.
var orderTokenPattern = regexp.MustCompile(`[A-Z0-9]{6,}`)

const (
	escalationResponse = "I understand you'd like to speak with a human agent. Let me connect you with our support team. Please hold on while I transfer your conversation."
	empathyResponse    = "I understand your frustration, and I sincerely apologize for any inconvenience. Let me do my best to help resolve this issue quickly. What specific problem can I assist you with?"
)

var escalationKeywords = []string{"human", "agent", "speak to someone", "manager", "supervisor"}

var frustrationKeywords = []string{"frustrated", "angry", "terrible", "awful"}

// Outcome is a special-case response that short-circuits catalog lookup.
type Outcome struct {
	Response     string
	Intent       string
	Escalation   bool
	Empathy      bool
	OrderNumber  string
	QuickReplies []string
}

// Evaluate applies the special-case rules in precedence order: escalation
// request, frustrated user, then an order number arriving while the dialogue
// waits for one. A nil result falls through to catalog selection.
func Evaluate(message string, s domain.Sentiment, ctx domain.SessionContext) *Outcome {
	lower := strings.ToLower(message)

	for _, keyword := range escalationKeywords {
		if strings.Contains(lower, keyword) {
			return &Outcome{
				Response:     escalationResponse,
				Intent:       domain.IntentEscalation,
				Escalation:   true,
				QuickReplies: []string{"Continue with bot", "Wait for agent"},
			}
		}
	}

	if s == domain.SentimentNegative {
		for _, keyword := range frustrationKeywords {
			if strings.Contains(lower, keyword) {
				return &Outcome{
					Response: empathyResponse,
					Intent:   domain.IntentEmpathy,
					Empathy:  true,
				}
			}
		}
	}

	if ctx.Waiting == domain.WaitOrderNumber {
		// Matched against the raw message: order numbers are uppercase.
		if token := orderTokenPattern.FindString(message); token != "" {
			return &Outcome{
				Response:    fmt.Sprintf("Thank you! I found your order %s. Your order is currently being processed and will be shipped within 2-3 business days. You'll receive tracking information via email once it's dispatched.", token),
				Intent:      domain.IntentOrderStatusProvided,
				OrderNumber: token,
			}
		}
	}

	return nil
}
