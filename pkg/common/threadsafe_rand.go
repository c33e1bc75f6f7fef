package common

import (
	"math/rand"
	"sync"
)

// ThreadSafeRand draws the 16-bit nonces mixed into the command ids sent
// to slaves. Command issue is normally single-threaded, but the wait and
// genmove paths both issue follow-up commands, so access is serialized.
type ThreadSafeRand struct {
	r  *rand.Rand
	mu sync.Mutex
}

func MakeThreadSafeRand(seed int64) ThreadSafeRand {
	return ThreadSafeRand{r: rand.New(rand.NewSource(seed))}
}

// Nonce returns a fresh value in [0, 65535) for id generation. The
// range is narrow enough that nonce*gamelen+ordinal stays well inside
// 32 bits.
func (tsr *ThreadSafeRand) Nonce() int {
	tsr.mu.Lock()
	res := tsr.r.Intn(65535)
	tsr.mu.Unlock()
	return res
}
