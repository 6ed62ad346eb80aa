// Package rand generates short random identifiers for notifications and
// request correlation. Not security-critical; speed over uniformity.
package rand

import (
	cryptorand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"
)

const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

var (
	mu  sync.Mutex
	rng = newRNG()
)

func newRNG() *rand.Rand {
	seed := make([]byte, 16)
	if _, err := cryptorand.Read(seed); err != nil {
		panic("unreachable")
	}
	return rand.New(rand.NewPCG(
		binary.LittleEndian.Uint64(seed[:8]),
		binary.LittleEndian.Uint64(seed[8:]),
	))
}

// String returns a random alphanumeric string of length n.
func String(n int) string {
	buf := make([]byte, n)

	mu.Lock()
	for i := range buf {
		buf[i] = charset[rng.IntN(len(charset))]
	}
	mu.Unlock()

	return string(buf)
}

// ID returns a time-prefixed random identifier, used as the fallback id
// for notifications arriving without one.
func ID() string {
	return fmt.Sprintf("%d-%s", time.Now().UnixMilli(), String(9))
}
