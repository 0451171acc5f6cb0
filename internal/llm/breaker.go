package llm

import (
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"github.com/MimeLyc/doc-translator/internal/apperr"
	"github.com/MimeLyc/doc-translator/pkg/log"
)

const (
	breakerFailureThreshold = 5
	breakerOpenTimeout      = 30 * time.Second
)

// NewBreaker returns a breaker that opens after consecutive transport
// failures. Provider rejections do not count against the endpoint.
func NewBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     breakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerFailureThreshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || isRejection(err) || apperr.IsKind(err, apperr.KindProviderRejection)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("Circuit breaker %s: %s -> %s", name, from, to)
		},
	})
}

// Breakers hands out one breaker per endpoint.
type Breakers struct {
	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker
}

func NewBreakers() *Breakers {
	return &Breakers{breakers: make(map[string]*gobreaker.CircuitBreaker)}
}

func (b *Breakers) For(endpoint string) *gobreaker.CircuitBreaker {
	b.mu.Lock()
	defer b.mu.Unlock()
	cb, ok := b.breakers[endpoint]
	if !ok {
		cb = NewBreaker(endpoint)
		b.breakers[endpoint] = cb
	}
	return cb
}
