package port

import "time"

// Signer issues and verifies self-contained tokens. Verify never errors; a bad token is simply false.
type Signer interface {
	Sign(claims map[string]any, ttl time.Duration) (string, error)
	Verify(token string) (map[string]any, bool)
}
