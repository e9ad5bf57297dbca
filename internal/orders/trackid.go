package orders

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

const (
	trackIDPrefix      = "order_"
	trackIDHexLen      = 10
	trackIDHexLenWide  = 17
	trackIDMaxAttempts = 5
)

// randomHex returns n lowercase hex characters. Swapped out in tests for
// a seeded source.
type randomHex func(n int) (string, error)

func cryptoRandomHex(n int) (string, error) {
	// hex.EncodeToString doubles the byte count, so over-read and cut.
	buf := make([]byte, (n+1)/2)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("reading random bytes: %w", err)
	}
	return hex.EncodeToString(buf)[:n], nil
}

// newTrackID mints a unique order track id. Collisions retry at the
// short length first, then widen to the long form.
func (s *service) newTrackID(ctx context.Context) (string, error) {
	for attempt := 0; attempt < trackIDMaxAttempts; attempt++ {
		length := trackIDHexLen
		if attempt == trackIDMaxAttempts-1 {
			length = trackIDHexLenWide
		}
		suffix, err := s.randHex(length)
		if err != nil {
			return "", err
		}
		candidate := trackIDPrefix + suffix

		existing, err := s.repo.GetByTrackID(ctx, candidate)
		if err != nil {
			return "", err
		}
		if existing == nil {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("could not mint a unique track id after %d attempts", trackIDMaxAttempts)
}

// newPin mints the 4-hex-char pickup pin the customer presents to the
// vendor.
func (s *service) newPin() (string, error) {
	return s.randHex(4)
}
