package httputil

import (
	"sync"
	"time"

	"github.com/cenk/backoff"
	circuit "github.com/rubyist/circuitbreaker"
)

// breakers holds one circuit breaker per host.
type breakers struct {
	threshold int64
	mu        sync.RWMutex
	byHost    map[string]*circuit.Breaker
}

func newBreakers(threshold int) *breakers {
	if threshold <= 0 {
		threshold = DefaultBreakerThreshold
	}
	return &breakers{
		threshold: int64(threshold),
		byHost:    make(map[string]*circuit.Breaker),
	}
}

// get returns or creates the breaker for host.
func (b *breakers) get(host string) *circuit.Breaker {
	b.mu.RLock()
	br, ok := b.byHost[host]
	b.mu.RUnlock()
	if ok {
		return br
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if br, ok := b.byHost[host]; ok {
		return br
	}

	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = 30 * time.Second
	expBackoff.MaxInterval = 5 * time.Minute
	expBackoff.Multiplier = 2.0
	expBackoff.Reset()

	br = circuit.NewBreakerWithOptions(&circuit.Options{
		BackOff:    expBackoff,
		ShouldTrip: circuit.ConsecutiveTripFunc(b.threshold),
	})
	b.byHost[host] = br
	return br
}

func (b *breakers) states() map[string]string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	states := make(map[string]string, len(b.byHost))
	for host, br := range b.byHost {
		if br.Tripped() {
			states[host] = "open"
		} else {
			states[host] = "closed"
		}
	}
	return states
}
