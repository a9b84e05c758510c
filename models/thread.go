package models

import "time"

// Thread represents a conversation: all messages sharing a thread ID,
// sorted ascending by send date.
type Thread struct {
	ID           string    `json:"id"`
	Subject      string    `json:"subject"`
	Participants []string  `json:"participants"`
	LastDate     time.Time `json:"last_date"`
	Messages     []Message `json:"messages"`
}

// ExpansionState is the set of message IDs currently shown expanded.
// It is derived each time a thread is loaded and never persisted.
type ExpansionState map[string]bool

// Expand marks a message expanded.
func (s ExpansionState) Expand(messageID string) {
	s[messageID] = true
}

// IsExpanded reports whether a message is expanded.
func (s ExpansionState) IsExpanded(messageID string) bool {
	return s[messageID]
}

// IDs returns the expanded message IDs.
func (s ExpansionState) IDs() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	return ids
}
