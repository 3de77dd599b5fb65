// Package temporal derives the short deterministic key binding a token to
// one session and start time. The key travels inside the encrypted payload
// and is recomputed during validation, so it acts as a second factor beyond
// the outer signature.
package temporal

import (
	"encoding/base64"
	"time"

	"github.com/Mid-D-Man/AirCode-sub002/internal/qrcrypto"
)

// saltTag is the fixed derivation tag. Changing it invalidates every token
// issued under the previous value.
const saltTag = "AirCode-TemporalKey-v2"

// keyLength is the number of base64 characters kept from the digest.
const keyLength = 16

// Derive produces the temporal key for a session identity. Start time is
// truncated to minute precision so the key is stable across the token's
// lifetime even when encode and decode cross a second boundary.
func Derive(sessionID string, startTime time.Time) string {
	minute := startTime.UTC().Truncate(time.Minute)
	material := sessionID + "|" + minute.Format(time.RFC3339) + "|" + saltTag
	digest := qrcrypto.Hash([]byte(material))
	return base64.StdEncoding.EncodeToString(digest)[:keyLength]
}
