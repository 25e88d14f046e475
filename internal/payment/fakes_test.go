package payment_test

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"paystack-service/internal/payment"
	"paystack-service/internal/paystack"
)

type memStore struct {
	mu          sync.Mutex
	orders      map[string]*payment.Order
	records     map[int64]payment.Record
	lookups     int
	transitions int
	markPaidErr error
}

func newMemStore(orders ...*payment.Order) *memStore {
	s := &memStore{
		orders:  make(map[string]*payment.Order),
		records: make(map[int64]payment.Record),
	}
	for _, o := range orders {
		s.orders[o.Number] = o
	}
	return s
}

func (s *memStore) FindOrder(_ context.Context, number string) (*payment.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lookups++
	o, ok := s.orders[number]
	if !ok {
		return nil, errors.Wrapf(payment.ErrNotFound, "order %s", number)
	}
	cp := *o
	return &cp, nil
}

func (s *memStore) FindRecord(_ context.Context, orderID int64) (*payment.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[orderID]
	if !ok {
		return nil, errors.Wrapf(payment.ErrNotFound, "payment for order %d", orderID)
	}
	return &rec, nil
}

func (s *memStore) UpsertRecord(_ context.Context, rec payment.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.records[rec.OrderID]; ok && existing.Paid {
		return nil
	}
	s.records[rec.OrderID] = rec
	return nil
}

func (s *memStore) MarkPaid(_ context.Context, order *payment.Order, rec payment.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.markPaidErr != nil {
		return s.markPaidErr
	}
	if existing, ok := s.records[rec.OrderID]; ok && existing.Paid {
		return payment.ErrAlreadyProcessed
	}
	s.records[rec.OrderID] = rec
	s.orders[order.Number].Status = payment.OrderStatusPaid
	s.transitions++
	return nil
}

func (s *memStore) record(orderID int64) (payment.Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[orderID]
	return rec, ok
}

func (s *memStore) stats() (lookups, transitions int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lookups, s.transitions
}

type fakeGateway struct {
	mu           sync.Mutex
	initRequests []paystack.InitializeRequest
	initErr      error
	verification *paystack.Verification
	verifyErr    error
	verifyCalls  int
}

func (g *fakeGateway) Initialize(_ context.Context, req paystack.InitializeRequest) (*paystack.Transaction, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.initRequests = append(g.initRequests, req)
	if g.initErr != nil {
		return nil, g.initErr
	}
	return &paystack.Transaction{
		Reference:        req.Reference,
		AccessCode:       "access-" + req.Reference,
		AuthorizationURL: "https://checkout.paystack.com/" + req.Reference,
	}, nil
}

func (g *fakeGateway) Verify(_ context.Context, _ string) (*paystack.Verification, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.verifyCalls++
	if g.verifyErr != nil {
		return nil, g.verifyErr
	}
	v := *g.verification
	return &v, nil
}
