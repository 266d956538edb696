package ports

import (
	"time"

	"github.com/layer-3/questauth/core"
)

// Tokenizer converts between domain objects and signed tokens
type Tokenizer interface {
	// Challenge token operations. ChallengeToToken stamps IssuedAt and
	// ExpiresAt on the challenge before signing it.
	ChallengeToToken(challenge *core.Challenge, ttl time.Duration) (string, error)
	TokenToChallenge(token string) (*core.Challenge, error)

	// Session token operations
	SessionToToken(session *core.Session, ttl time.Duration) (string, error)
	TokenToSession(token string) (*core.Session, error)
}
