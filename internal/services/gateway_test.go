package services_test

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"

	"herbstore/internal/models"
	"herbstore/pkg/paystack"

	"github.com/stretchr/testify/mock"
)

// MockGateway is a testify mock of services.Gateway.
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) InitializeTransaction(ctx context.Context, req paystack.InitializeRequest) (*paystack.InitializeResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*paystack.InitializeResponse), args.Error(1)
}

func (m *MockGateway) VerifyTransaction(ctx context.Context, reference string) (*paystack.Transaction, error) {
	args := m.Called(ctx, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*paystack.Transaction), args.Error(1)
}

// MockPublisher is a testify mock of services.EventPublisher.
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishOrderCompleted(event models.OrderCompletedEvent) error {
	args := m.Called(event)
	return args.Error(0)
}

// simGateway behaves like the hosted gateway: initialize opens a pending
// transaction carrying the metadata, settle decides how it ends.
type simGateway struct {
	mu           sync.Mutex
	transactions map[string]*paystack.Transaction
	inits        atomic.Int32
	verifies     atomic.Int32
	// metadataAsString mimics gateways that hand metadata back as a JSON string.
	metadataAsString bool
}

func newSimGateway() *simGateway {
	return &simGateway{transactions: make(map[string]*paystack.Transaction)}
}

func (g *simGateway) InitializeTransaction(_ context.Context, req paystack.InitializeRequest) (*paystack.InitializeResponse, error) {
	g.inits.Add(1)
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.transactions[req.Reference]; ok {
		return nil, &paystack.APIError{StatusCode: 400, Message: "Duplicate Transaction Reference"}
	}
	metadata := req.Metadata
	if g.metadataAsString {
		metadata, _ = json.Marshal(string(req.Metadata))
	}
	g.transactions[req.Reference] = &paystack.Transaction{
		Status:    "pending",
		Reference: req.Reference,
		Amount:    req.Amount,
		Currency:  req.Currency,
		Metadata:  metadata,
	}
	return &paystack.InitializeResponse{
		AuthorizationURL: "https://checkout.paystack.test/pay/" + req.Reference,
		AccessCode:       "ac_" + req.Reference,
		Reference:        req.Reference,
	}, nil
}

func (g *simGateway) VerifyTransaction(_ context.Context, reference string) (*paystack.Transaction, error) {
	g.verifies.Add(1)
	g.mu.Lock()
	defer g.mu.Unlock()

	tx, ok := g.transactions[reference]
	if !ok {
		return nil, &paystack.APIError{StatusCode: 404, Message: "Transaction reference not found"}
	}
	copied := *tx
	return &copied, nil
}

// settle sets the final status and the amount the gateway says it charged.
func (g *simGateway) settle(reference, status string, amount int64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	tx, ok := g.transactions[reference]
	if !ok {
		panic(fmt.Sprintf("settle: unknown reference %s", reference))
	}
	tx.Status = status
	tx.Amount = amount
}
