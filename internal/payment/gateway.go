// Package payment defines the gateway boundary of the order engine. The
// interface is intentionally narrow so a real provider can replace the mock
// without touching the order lifecycle.
package payment

import (
	"context"
	"log/slog"

	"tickethub/utils"

	"github.com/shopspring/decimal"
)

type Outcome string

const (
	OutcomeApproved Outcome = "approved"
	OutcomeDeclined Outcome = "declined"
)

// Payment methods and forced-outcome hooks understood by the mock.
const (
	MethodTest         = "test"
	MethodCardDeclined = "card_declined"

	ForceFail    = "fail"
	ForceSuccess = "success"
)

type Gateway interface {
	// Authorize resolves a payment outcome. A Declined outcome is a normal
	// business result; an error means the provider itself failed.
	Authorize(ctx context.Context, amount decimal.Decimal, method, forcedOutcome string) (Outcome, error)
}

// MockGateway resolves outcomes from the method and forced-outcome hints:
// forcedOutcome wins, then method "card_declined" declines, everything else
// (including the default "test" method) is approved.
type MockGateway struct{}

func NewMockGateway() *MockGateway {
	return &MockGateway{}
}

func (g *MockGateway) Authorize(ctx context.Context, amount decimal.Decimal, method, forcedOutcome string) (Outcome, error) {
	outcome := OutcomeApproved

	switch {
	case forcedOutcome == ForceFail:
		outcome = OutcomeDeclined
	case forcedOutcome == ForceSuccess:
		outcome = OutcomeApproved
	case method == MethodCardDeclined:
		outcome = OutcomeDeclined
	}

	reference, err := utils.GenerateCode(8)
	if err != nil {
		return OutcomeDeclined, err
	}

	slog.Debug("payment authorized",
		"reference", reference,
		"amount", amount.String(),
		"method", method,
		"outcome", string(outcome),
	)
	return outcome, nil
}
