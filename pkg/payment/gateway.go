package payment

import (
	"context"
	"fmt"
	"strings"
	"time"
)

//go:generate go run github.com/golang/mock/mockgen -source=gateway.go -destination=mocks/mock.go

// Payment is the gateway verdict for a charge. OK=false with a
// message means the gateway declined; a transport fault is returned
// as an error instead.
type Payment struct {
	OK            bool    `json:"ok"`
	TransactionID string  `json:"transactionId"`
	Amount        float64 `json:"amount"`
	Message       string  `json:"message"`
}

type Refund struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

type TransactionStatus struct {
	TransactionID string  `json:"transactionId"`
	Status        string  `json:"status"`
	Amount        float64 `json:"amount"`
	Timestamp     int64   `json:"timestamp"`
}

type Gateway interface {
	ProcessPayment(ctx context.Context, patronID string, amount float64, description string) (Payment, error)
	RefundPayment(ctx context.Context, transactionID string, amount float64) (Refund, error)
	VerifyPaymentStatus(ctx context.Context, transactionID string) (TransactionStatus, error)
}

// SimulatedGateway stands in for an external processor such as
// Stripe. It simulates network latency and decides outcomes from the
// request itself, so there are no real charges.
type SimulatedGateway struct {
	apiKey  string
	latency time.Duration
}

func NewSimulatedGateway(apiKey string, latency time.Duration) *SimulatedGateway {
	return &SimulatedGateway{
		apiKey:  apiKey,
		latency: latency,
	}
}

func (g *SimulatedGateway) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (g *SimulatedGateway) ProcessPayment(ctx context.Context, patronID string, amount float64, description string) (Payment, error) {
	if err := g.sleep(ctx, g.latency); err != nil {
		return Payment{}, err
	}

	if amount <= 0 {
		return Payment{Message: "invalid amount: must be greater than 0"}, nil
	}
	if amount > 1000 {
		return Payment{Message: "payment declined: amount exceeds limit"}, nil
	}
	if len(patronID) != 6 {
		return Payment{Message: "invalid patron ID format"}, nil
	}

	return Payment{
		OK:            true,
		TransactionID: fmt.Sprintf("txn_%s_%d", patronID, time.Now().Unix()),
		Amount:        amount,
		Message:       fmt.Sprintf("payment of $%.2f processed successfully", amount),
	}, nil
}

func (g *SimulatedGateway) RefundPayment(ctx context.Context, transactionID string, amount float64) (Refund, error) {
	if err := g.sleep(ctx, g.latency); err != nil {
		return Refund{}, err
	}

	if !strings.HasPrefix(transactionID, "txn_") {
		return Refund{Message: "invalid transaction ID"}, nil
	}
	if amount <= 0 {
		return Refund{Message: "invalid refund amount"}, nil
	}

	refundID := fmt.Sprintf("refund_%s_%d", transactionID, time.Now().Unix())
	return Refund{
		OK:      true,
		Message: fmt.Sprintf("refund of $%.2f processed successfully. Refund ID: %s", amount, refundID),
	}, nil
}

func (g *SimulatedGateway) VerifyPaymentStatus(ctx context.Context, transactionID string) (TransactionStatus, error) {
	if err := g.sleep(ctx, g.latency*3/5); err != nil {
		return TransactionStatus{}, err
	}

	if !strings.HasPrefix(transactionID, "txn_") {
		return TransactionStatus{Status: "not_found"}, nil
	}

	return TransactionStatus{
		TransactionID: transactionID,
		Status:        "completed",
		Amount:        10.50,
		Timestamp:     time.Now().Unix(),
	}, nil
}
