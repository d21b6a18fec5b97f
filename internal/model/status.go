package model

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// ItemStatus is a stage in the fulfillment pipeline for a purchased item.
type ItemStatus string

const (
	// Purchase phase.
	StatusOrdered   ItemStatus = "ordered"
	StatusShipped   ItemStatus = "shipped"
	StatusDelivered ItemStatus = "delivered"

	// Prep phase.
	StatusReceived  ItemStatus = "received"
	StatusProcessed ItemStatus = "processed"

	// Outbound and selling phase.
	StatusOutbound ItemStatus = "outbound"
	StatusListed   ItemStatus = "listed"
	StatusReserved ItemStatus = "reserved"

	// Completion.
	StatusSold     ItemStatus = "sold"
	StatusComplete ItemStatus = "complete"

	// Problem states.
	StatusReturned  ItemStatus = "returned"
	StatusStranded  ItemStatus = "stranded"
	StatusLost      ItemStatus = "lost"
	StatusCancelled ItemStatus = "cancelled"
)

// ParseItemStatus parses a status string.
func ParseItemStatus(s string) (ItemStatus, error) {
	st := ItemStatus(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := transitions[st]; !ok {
		return "", eris.Errorf("model: unrecognized item status %q", s)
	}
	return st, nil
}

// transitions is the closed transition table. Terminal states map to an
// empty set.
var transitions = map[ItemStatus][]ItemStatus{
	StatusOrdered:   {StatusShipped, StatusDelivered, StatusCancelled, StatusLost},
	StatusShipped:   {StatusDelivered, StatusLost},
	StatusDelivered: {StatusReceived, StatusLost},
	StatusReceived:  {StatusProcessed, StatusCancelled},
	StatusProcessed: {StatusOutbound},
	StatusOutbound:  {StatusListed, StatusStranded, StatusLost},
	StatusListed:    {StatusReserved, StatusSold, StatusStranded},
	StatusReserved:  {StatusSold, StatusListed},
	StatusSold:      {StatusComplete, StatusReturned},
	StatusReturned:  {StatusListed, StatusComplete},
	StatusStranded:  {StatusListed, StatusCancelled},
	StatusComplete:  {},
	StatusLost:      {},
	StatusCancelled: {},
}

// AllItemStatuses returns every status in pipeline order.
func AllItemStatuses() []ItemStatus {
	return []ItemStatus{
		StatusOrdered, StatusShipped, StatusDelivered,
		StatusReceived, StatusProcessed,
		StatusOutbound, StatusListed, StatusReserved,
		StatusSold, StatusComplete,
		StatusReturned, StatusStranded, StatusLost, StatusCancelled,
	}
}

// CanTransition reports whether moving from one status to another is valid.
func CanTransition(from, to ItemStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// NextStatuses returns the valid successor statuses.
func NextStatuses(from ItemStatus) []ItemStatus {
	return transitions[from]
}

// Terminal reports whether the status has no outgoing transitions.
func (s ItemStatus) Terminal() bool {
	return len(transitions[s]) == 0
}

// Active reports whether the item is still in the pipeline.
func (s ItemStatus) Active() bool {
	return !s.Terminal()
}

// Sellable reports whether the item is currently offered for sale.
func (s ItemStatus) Sellable() bool {
	return s == StatusListed || s == StatusReserved
}

// InTransit reports whether the item is currently being shipped.
func (s ItemStatus) InTransit() bool {
	return s == StatusShipped || s == StatusOutbound
}

// StatusEvent is one entry in an item's append-only status history.
type StatusEvent struct {
	ID     string     `json:"id"`
	ItemID string     `json:"item_id"`
	Status ItemStatus `json:"status"`
	Source string     `json:"source"` // manual, tracking, webhook
	Notes  string     `json:"notes,omitempty"`
	At     time.Time  `json:"at"`
}
