package models

import (
	"testing"
	"time"

	"github.com/pocketbase/pocketbase/tools/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustDateTime(t *testing.T, at time.Time) types.DateTime {
	t.Helper()
	dt, err := types.ParseDateTime(at)
	require.NoError(t, err)
	return dt
}

func TestTicketBatchSaleOpen(t *testing.T) {
	now := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		start time.Time
		end   time.Time
		want  bool
	}{
		{"inside window", now.Add(-time.Hour), now.Add(time.Hour), true},
		{"at start boundary", now, now.Add(time.Hour), true},
		{"at end boundary", now.Add(-time.Hour), now, true},
		{"before window", now.Add(time.Minute), now.Add(time.Hour), false},
		{"after window", now.Add(-2 * time.Hour), now.Add(-time.Hour), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			batch := TicketBatch{
				SaleStart: mustDateTime(t, tt.start),
				SaleEnd:   mustDateTime(t, tt.end),
			}
			assert.Equal(t, tt.want, batch.SaleOpen(now))
		})
	}
}

func TestTicketBatchSaleOpen_UnsetWindow(t *testing.T) {
	batch := TicketBatch{}
	assert.False(t, batch.SaleOpen(time.Now()))
}

func TestOrderStatusTerminal(t *testing.T) {
	assert.False(t, OrderPending.Terminal())
	assert.True(t, OrderPaid.Terminal())
	assert.True(t, OrderCancelled.Terminal())
}

func TestOrderOwnedBy(t *testing.T) {
	order := Order{UserID: "user1"}
	assert.True(t, order.OwnedBy("user1"))
	assert.False(t, order.OwnedBy("user2"))
	assert.False(t, order.OwnedBy(""))
}

func TestValidEventCategory(t *testing.T) {
	for _, category := range EventCategories {
		assert.True(t, ValidEventCategory(category))
	}
	assert.False(t, ValidEventCategory("opera"))
	assert.False(t, ValidEventCategory(""))
}
