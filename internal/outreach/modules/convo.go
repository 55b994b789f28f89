package modules

import (
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
)

// conversationCacheSize bounds in-memory conversation state. Eviction of a
// cold entry is harmless: attempt counts restart at zero and the tag-based
// idempotency on the lead still prevents duplicate sequence sends.
const conversationCacheSize = 1024

// Conversation is the in-memory follow-up state the demo and closer modules
// keep per lead. It is advisory working state, not a system of record.
type Conversation struct {
	LeadID      uuid.UUID
	Attempts    int
	LastSubject string
	LastSentAt  time.Time
}

// ConversationCache holds bounded per-lead conversation state for the two
// conversational modules.
type ConversationCache struct {
	cache *lru.Cache[uuid.UUID, *Conversation]
}

// NewConversationCache creates the shared bounded cache.
func NewConversationCache() (*ConversationCache, error) {
	cache, err := lru.New[uuid.UUID, *Conversation](conversationCacheSize)
	if err != nil {
		return nil, err
	}
	return &ConversationCache{cache: cache}, nil
}

// Get returns the conversation for a lead, creating it on first touch.
func (c *ConversationCache) Get(leadID uuid.UUID) *Conversation {
	if convo, ok := c.cache.Get(leadID); ok {
		return convo
	}
	convo := &Conversation{LeadID: leadID}
	c.cache.Add(leadID, convo)
	return convo
}

// Record notes a sent follow-up on the lead's conversation.
func (c *ConversationCache) Record(leadID uuid.UUID, subject string, at time.Time) {
	convo := c.Get(leadID)
	convo.Attempts++
	convo.LastSubject = subject
	convo.LastSentAt = at
}

// Evict drops the conversation once the lead reaches a terminal status, so
// closed deals never pin cache slots.
func (c *ConversationCache) Evict(leadID uuid.UUID) {
	c.cache.Remove(leadID)
}

// Len reports how many conversations are cached.
func (c *ConversationCache) Len() int {
	return c.cache.Len()
}
