package payment

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// ErrGatewayUnavailable is returned while the breaker is open. It is an
// infrastructure error, not a decline: the order stays pending and the
// caller may retry later.
var ErrGatewayUnavailable = errors.New("payment: gateway unavailable")

const (
	breakerFailureThreshold = 5
	breakerCooldown         = 30 * time.Second
)

type breakerState int

const (
	breakerClosed breakerState = iota
	breakerOpen
	breakerHalfOpen
)

// BreakerGateway wraps a Gateway with a circuit breaker: after a run of
// provider errors it fails fast instead of stacking up calls against a dead
// provider. Declines are successful authorizations and never trip it.
type BreakerGateway struct {
	next Gateway

	mu       sync.Mutex
	state    breakerState
	failures int
	openedAt time.Time
}

func WithBreaker(next Gateway) *BreakerGateway {
	return &BreakerGateway{next: next}
}

func (b *BreakerGateway) Authorize(ctx context.Context, amount decimal.Decimal, method, forcedOutcome string) (Outcome, error) {
	if err := b.before(); err != nil {
		return OutcomeDeclined, err
	}

	outcome, err := b.next.Authorize(ctx, amount, method, forcedOutcome)
	b.after(err == nil)
	return outcome, err
}

func (b *BreakerGateway) before() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == breakerOpen {
		if time.Since(b.openedAt) < breakerCooldown {
			return ErrGatewayUnavailable
		}
		// cooldown elapsed, allow a probe call
		b.state = breakerHalfOpen
	}
	return nil
}

func (b *BreakerGateway) after(success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if success {
		b.state = breakerClosed
		b.failures = 0
		return
	}

	b.failures++
	if b.state == breakerHalfOpen || b.failures >= breakerFailureThreshold {
		b.state = breakerOpen
		b.openedAt = time.Now()
	}
}
