package payment

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockGateway_Authorize(t *testing.T) {
	tests := []struct {
		name          string
		method        string
		forcedOutcome string
		want          Outcome
	}{
		{"default test method approves", MethodTest, "", OutcomeApproved},
		{"unknown method approves", "bank_transfer", "", OutcomeApproved},
		{"card_declined declines", MethodCardDeclined, "", OutcomeDeclined},
		{"forced fail declines", MethodTest, ForceFail, OutcomeDeclined},
		{"forced success approves even for card_declined", MethodCardDeclined, ForceSuccess, OutcomeApproved},
	}

	gateway := NewMockGateway()
	amount := decimal.RequireFromString("100.00")

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outcome, err := gateway.Authorize(context.Background(), amount, tt.method, tt.forcedOutcome)
			require.NoError(t, err)
			assert.Equal(t, tt.want, outcome)
		})
	}
}

type failingGateway struct {
	err error
}

func (g *failingGateway) Authorize(ctx context.Context, amount decimal.Decimal, method, forcedOutcome string) (Outcome, error) {
	if g.err != nil {
		return OutcomeDeclined, g.err
	}
	return OutcomeApproved, nil
}

func TestBreakerGateway_OpensAfterConsecutiveFailures(t *testing.T) {
	inner := &failingGateway{err: errors.New("provider down")}
	gateway := WithBreaker(inner)
	amount := decimal.New(100, 0)

	for i := 0; i < breakerFailureThreshold; i++ {
		_, err := gateway.Authorize(context.Background(), amount, MethodTest, "")
		assert.EqualError(t, err, "provider down")
	}

	// breaker now open: fails fast without hitting the provider
	_, err := gateway.Authorize(context.Background(), amount, MethodTest, "")
	assert.ErrorIs(t, err, ErrGatewayUnavailable)
}

func TestBreakerGateway_DeclinesDoNotTrip(t *testing.T) {
	gateway := WithBreaker(NewMockGateway())
	amount := decimal.New(100, 0)

	for i := 0; i < breakerFailureThreshold+1; i++ {
		outcome, err := gateway.Authorize(context.Background(), amount, MethodCardDeclined, "")
		require.NoError(t, err)
		assert.Equal(t, OutcomeDeclined, outcome)
	}
}

func TestBreakerGateway_SuccessResetsFailures(t *testing.T) {
	inner := &failingGateway{err: errors.New("provider down")}
	gateway := WithBreaker(inner)
	amount := decimal.New(100, 0)

	for i := 0; i < breakerFailureThreshold-1; i++ {
		gateway.Authorize(context.Background(), amount, MethodTest, "")
	}

	inner.err = nil
	_, err := gateway.Authorize(context.Background(), amount, MethodTest, "")
	require.NoError(t, err)

	inner.err = errors.New("provider down")
	_, err = gateway.Authorize(context.Background(), amount, MethodTest, "")
	assert.EqualError(t, err, "provider down", "breaker should be closed again after a success")
}
