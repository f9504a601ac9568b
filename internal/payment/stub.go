package payment

import "context"

// StubGateway is a Gateway for tests and local runs.
type StubGateway struct {
	TransactionID string
	Err           error

	Calls []Intent
}

func (g *StubGateway) CreateCharge(ctx context.Context, intent Intent) (string, error) {
	g.Calls = append(g.Calls, intent)
	if g.Err != nil {
		return "", g.Err
	}
	if g.TransactionID != "" {
		return g.TransactionID, nil
	}
	return "txn-stub", nil
}
