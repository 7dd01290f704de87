// Package catalog holds the authorial response content: per-intent response
// variants, training patterns, suggestions and quick replies. The catalog is
// loaded once at startup and treated as immutable for the process lifetime.
package catalog

import (
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"os"

	"github.com/crispdesk/supportbot/internal/domain"
)

// Entry is one intent's catalog record.
type Entry struct {
	Tag               string   `json:"tag"`
	Patterns          []string `json:"patterns"`
	Responses         []string `json:"responses"`
	PositiveResponses []string `json:"positive_responses,omitempty"`
	NegativeResponses []string `json:"negative_responses,omitempty"`
}

// Catalog is the full response catalog keyed by intent tag.
type Catalog struct {
	Entries []Entry `json:"intents"`

	byTag map[string]*Entry
}

// Load reads and indexes the catalog file.
func Load(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	var c Catalog
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if len(c.Entries) == 0 {
		return nil, fmt.Errorf("catalog %s contains no intents", path)
	}

	c.byTag = make(map[string]*Entry, len(c.Entries))
	for i := range c.Entries {
		e := &c.Entries[i]
		if e.Tag == "" {
			return nil, fmt.Errorf("catalog entry %d has no tag", i)
		}
		if len(e.Responses) == 0 {
			return nil, fmt.Errorf("catalog entry %q has no responses", e.Tag)
		}
		c.byTag[e.Tag] = e
	}

	return &c, nil
}

// Entry returns the catalog entry for a tag, or nil.
func (c *Catalog) Entry(tag string) *Entry {
	return c.byTag[tag]
}

// Tags returns all intent tags in catalog order.
func (c *Catalog) Tags() []string {
	tags := make([]string, 0, len(c.Entries))
	for i := range c.Entries {
		tags = append(tags, c.Entries[i].Tag)
	}
	return tags
}

// ResponseFor picks a response for the intent, preferring a sentiment-biased
// variant list when one exists. Selection within the chosen list is uniform
// random. Unknown intents fall back to a sentiment-based generic reply.
func (c *Catalog) ResponseFor(intent string, s domain.Sentiment) string {
	if e := c.byTag[intent]; e != nil {
		switch {
		case s == domain.SentimentNegative && len(e.NegativeResponses) > 0:
			return pick(e.NegativeResponses)
		case s == domain.SentimentPositive && len(e.PositiveResponses) > 0:
			return pick(e.PositiveResponses)
		default:
			return pick(e.Responses)
		}
	}

	switch s {
	case domain.SentimentNegative:
		return "I understand this might be frustrating. Let me help you find the right information. Could you please provide more details about what you're looking for?"
	case domain.SentimentPositive:
		return "I'm glad to help! Could you please provide more details about what you need assistance with?"
	default:
		return "I'm not sure how to respond to that. Could you please rephrase or ask something else? Here are some things I can help with: order status, returns, product information, or general support."
	}
}

var suggestionsByIntent = map[string][]string{
	"greeting":      {"Check order status", "Return policy", "Track package"},
	"order_status":  {"Track package", "Cancel order", "Change address"},
	"return_policy": {"Start return", "Exchange item", "Refund status"},
	"goodbye":       {"Rate this conversation", "Contact support", "Visit help center"},
}

var quickRepliesByIntent = map[string][]string{
	"greeting":      {"Check my order", "Return an item", "General question"},
	"order_status":  {"Yes, that helps", "I need more info", "Track different order"},
	"return_policy": {"Start return process", "Ask about exchange", "More questions"},
	"thanks":        {"You're welcome!", "Anything else?", "Rate this chat"},
}

// DefaultSuggestions is the static list served by the suggestions endpoint.
var DefaultSuggestions = []string{
	"Check order status",
	"Return policy",
	"Track my package",
	"Contact support",
	"Product information",
}

// Suggestions returns contextual suggestions for an intent.
func Suggestions(intent string) []string {
	if s, ok := suggestionsByIntent[intent]; ok {
		return s
	}
	return []string{"How can I help?", "Contact support"}
}

// QuickReplies returns quick reply options for an intent.
func QuickReplies(intent string) []string {
	if q, ok := quickRepliesByIntent[intent]; ok {
		return q
	}
	return []string{}
}

func pick(list []string) string {
	return list[rand.IntN(len(list))]
}
