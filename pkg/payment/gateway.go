package payment

// Gateway is the interface to the payment provider used at checkout.
type Gateway interface {
	// CreatePaymentLink creates a checkout link for a subdomain-slot purchase.
	CreatePaymentLink(buyerID, purchaseID string, priceCents int64) (string, error)
}

// MockGateway is a stand-in provider for development and tests.
type MockGateway struct{}

func NewMockGateway() *MockGateway {
	return &MockGateway{}
}

func (g *MockGateway) CreatePaymentLink(buyerID, purchaseID string, priceCents int64) (string, error) {
	return "https://pay.example.com/checkout?purchase_id=" + purchaseID, nil
}
