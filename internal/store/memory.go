package store

import (
	"context"
	"sync"

	"tickethub/models"
	"tickethub/utils"

	"github.com/pocketbase/pocketbase/tools/types"
)

// Memory is an in-process Store used by tests. Transactions take the single
// mutex for their whole duration and roll back by restoring a snapshot, which
// gives the same serialization guarantees the SQL store gets from its
// conditional updates.
type Memory struct {
	mu    sync.Mutex
	state *memoryState
	inTx  bool
}

type memoryState struct {
	batches map[string]models.TicketBatch
	orders  map[string]models.Order
	tickets map[string][]models.Ticket // keyed by order id
	seq     int64
}

func NewMemory() *Memory {
	return &Memory{
		state: &memoryState{
			batches: map[string]models.TicketBatch{},
			orders:  map[string]models.Order{},
			tickets: map[string][]models.Ticket{},
		},
	}
}

func (s *memoryState) clone() *memoryState {
	c := &memoryState{
		batches: make(map[string]models.TicketBatch, len(s.batches)),
		orders:  make(map[string]models.Order, len(s.orders)),
		tickets: make(map[string][]models.Ticket, len(s.tickets)),
		seq:     s.seq,
	}
	for k, v := range s.batches {
		c.batches[k] = v
	}
	for k, v := range s.orders {
		c.orders[k] = v
	}
	for k, v := range s.tickets {
		cp := make([]models.Ticket, len(v))
		copy(cp, v)
		c.tickets[k] = cp
	}
	return c
}

func (m *Memory) lock() func() {
	if m.inTx {
		return func() {}
	}
	m.mu.Lock()
	return m.mu.Unlock
}

func (m *Memory) RunInTransaction(ctx context.Context, fn func(tx Store) error) error {
	if m.inTx {
		// nested call joins the enclosing transaction
		return fn(m)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.state.clone()
	tx := &Memory{state: m.state, inTx: true}
	if err := fn(tx); err != nil {
		m.state = snapshot
		return err
	}
	return nil
}

// PutTicketBatch seeds or replaces a batch. Test helper.
func (m *Memory) PutTicketBatch(batch models.TicketBatch) {
	defer m.lock()()

	if batch.ID == "" {
		batch.ID = utils.RandomID(15)
	}
	m.state.batches[batch.ID] = batch
}

func (m *Memory) TicketBatchByID(ctx context.Context, id string) (*models.TicketBatch, error) {
	defer m.lock()()

	batch, ok := m.state.batches[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &batch, nil
}

func (m *Memory) DeductAvailableTickets(ctx context.Context, batchID string, qty int) (bool, error) {
	defer m.lock()()

	batch, ok := m.state.batches[batchID]
	if !ok {
		return false, nil
	}
	if batch.AvailableTickets < qty {
		return false, nil
	}
	batch.AvailableTickets -= qty
	batch.Updated = types.NowDateTime()
	m.state.batches[batchID] = batch
	return true, nil
}

func (m *Memory) RestoreAvailableTickets(ctx context.Context, batchID string, qty int) error {
	defer m.lock()()

	batch, ok := m.state.batches[batchID]
	if !ok {
		return ErrNotFound
	}
	batch.AvailableTickets += qty
	batch.Updated = types.NowDateTime()
	m.state.batches[batchID] = batch
	return nil
}

func (m *Memory) OrderByID(ctx context.Context, id string) (*models.Order, error) {
	defer m.lock()()

	order, ok := m.state.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &order, nil
}

func (m *Memory) InsertOrder(ctx context.Context, order *models.Order) error {
	defer m.lock()()

	if order.ID == "" {
		order.ID = utils.RandomID(15)
	}
	now := types.NowDateTime()
	order.Created = now
	order.Updated = now

	stored := *order
	stored.Tickets = nil
	m.state.orders[order.ID] = stored
	return nil
}

func (m *Memory) UpdateOrderStatus(ctx context.Context, orderID string, from, to models.OrderStatus) (bool, error) {
	defer m.lock()()

	order, ok := m.state.orders[orderID]
	if !ok || order.Status != from {
		return false, nil
	}
	order.Status = to
	order.Updated = types.NowDateTime()
	m.state.orders[orderID] = order
	return true, nil
}

func (m *Memory) NextTicketSequence(ctx context.Context) (int64, error) {
	defer m.lock()()

	m.state.seq++
	return m.state.seq, nil
}

func (m *Memory) InsertTickets(ctx context.Context, tickets []*models.Ticket) error {
	defer m.lock()()

	for _, ticket := range tickets {
		if ticket.ID == "" {
			ticket.ID = utils.RandomID(15)
		}
		ticket.Created = types.NowDateTime()
		m.state.tickets[ticket.OrderID] = append(m.state.tickets[ticket.OrderID], *ticket)
	}
	return nil
}

func (m *Memory) TicketsByOrder(ctx context.Context, orderID string) ([]*models.Ticket, error) {
	defer m.lock()()

	stored := m.state.tickets[orderID]
	tickets := make([]*models.Ticket, len(stored))
	for i := range stored {
		t := stored[i]
		tickets[i] = &t
	}
	return tickets, nil
}
