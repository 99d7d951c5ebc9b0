package app

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"strconv"
	"time"
)

// regIDPrefix is the fixed prefix of every public registration ID.
const regIDPrefix = "GOV"

// NewRegistrationID returns the public identifier for a new submission:
// the prefix, the submission time in milliseconds since the Unix epoch,
// and a four-digit random suffix. The suffix closes the gap where two
// submissions landing in the same millisecond would otherwise collide;
// the unique index on registration_id backstops the rest.
func NewRegistrationID(now time.Time) string {
	return regIDPrefix + strconv.FormatInt(now.UnixMilli(), 10) + randomDigits()
}

func randomDigits() string {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "0000"
	}
	return fmt.Sprintf("%04d", binary.BigEndian.Uint32(b[:])%10000)
}
