package models

import "time"

// AudienceOverlap is a stored pairwise estimate of the audience share two
// platforms have in common for one creator, in [0,1]. Platform names are
// stored in lexical order so each pair appears once. A missing pair means 0
// overlap.
type AudienceOverlap struct {
	ID        string    `json:"id" db:"id"`
	CreatorID string    `json:"creator_id" db:"creator_id"`
	PlatformA string    `json:"platform_a" db:"platform_a"`
	PlatformB string    `json:"platform_b" db:"platform_b"`
	Overlap   float64   `json:"overlap" db:"overlap"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// PairKey returns the canonical lookup key for a platform pair
func PairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "|" + b
}
