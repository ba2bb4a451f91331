// Package hashchain computes and verifies the per-complaint audit chain.
// Every log record's hash covers the previous record's hash plus a canonical
// JSON serialization of its own content, so reordering or editing any
// committed record breaks every later link.
package hashchain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// RootHash is the prev-hash sentinel of a chain's first record.
const RootHash = "0000000000000000000000000000000000000000000000000000000000000000"

// RecordContent is the hashed portion of a log record. Field order is
// load-bearing: the digest covers the JSON serialization, and struct fields
// marshal in declaration order.
type RecordContent struct {
	ComplaintID string  `json:"complaint_id"`
	ActorVitID  string  `json:"actor_vit_id"`
	Action      string  `json:"action"`
	StatusAfter *string `json:"status_after"`
	Notes       string  `json:"notes"`
	CreatedOn   string  `json:"created_on"`
}

type hashedPayload struct {
	PrevHash string `json:"prevHash"`
	RecordContent
}

// Timestamp canonicalizes a record time for hashing. Second precision keeps
// the digest stable across database round trips.
func Timestamp(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format(time.RFC3339)
}

// Next returns the record hash for rec chained onto prevHash.
func Next(prevHash string, rec RecordContent) string {
	payload, err := json.Marshal(hashedPayload{PrevHash: prevHash, RecordContent: rec})
	if err != nil {
		// RecordContent holds only strings; Marshal cannot fail on it.
		panic(fmt.Sprintf("hashchain: marshal: %v", err))
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// Link is one committed record as read back from storage.
type Link struct {
	Content    RecordContent
	PrevHash   string
	RecordHash string
}

// IntegrityError reports the first broken link in a chain.
type IntegrityError struct {
	Index int    // zero-based position of the broken record
	Want  string // expected hash at that position
	Got   string // hash actually stored
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("hashchain: broken link at record %d: want %s, got %s", e.Index, e.Want, e.Got)
}

// Verify walks records in creation order and recomputes every hash.
// It returns nil for a valid chain (including an empty one) and an
// *IntegrityError naming the first record that fails.
func Verify(records []Link) error {
	prev := RootHash
	for i, r := range records {
		if r.PrevHash != prev {
			return &IntegrityError{Index: i, Want: prev, Got: r.PrevHash}
		}
		want := Next(prev, r.Content)
		if r.RecordHash != want {
			return &IntegrityError{Index: i, Want: want, Got: r.RecordHash}
		}
		prev = r.RecordHash
	}
	return nil
}
