package redis

import "fmt"

// KeyBuilder provides environment-aware Redis key building functionality
type KeyBuilder struct {
	prefix string
}

// NewKeyBuilder creates a new key builder with environment-based prefix
func NewKeyBuilder(environment string) *KeyBuilder {
	prefix := "prod"
	if environment == "development" || environment == "staging" {
		prefix = "staging"
	}

	return &KeyBuilder{prefix: prefix}
}

// BuildKey constructs a Redis key with the environment prefix
func (kb *KeyBuilder) BuildKey(key string) string {
	return fmt.Sprintf("%s:%s", kb.prefix, key)
}

// GetPrefix returns the current environment prefix
func (kb *KeyBuilder) GetPrefix() string {
	return kb.prefix
}

// KeyPollResults is the cached result aggregate for a poll
func (kb *KeyBuilder) KeyPollResults(pollID int64) string {
	return kb.BuildKey(fmt.Sprintf("poll:%d:results", pollID))
}

// KeyClientVoted marks that an identity hash has voted on a poll
func (kb *KeyBuilder) KeyClientVoted(pollID int64, clientHash string) string {
	return kb.BuildKey(fmt.Sprintf("poll:%d:voted:%s", pollID, clientHash))
}

// KeyClientPaid caches a positive paid-payment lookup for an identity hash
func (kb *KeyBuilder) KeyClientPaid(pollID int64, clientHash string) string {
	return kb.BuildKey(fmt.Sprintf("poll:%d:paid:%s", pollID, clientHash))
}
