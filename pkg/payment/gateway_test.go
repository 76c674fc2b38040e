package payment

import (
	"strings"
	"testing"
)

func TestMockGatewayPaymentLink(t *testing.T) {
	var g Gateway = NewMockGateway()

	link, err := g.CreatePaymentLink("buyer-1", "purchase-1", 500)
	if err != nil {
		t.Fatalf("CreatePaymentLink: %v", err)
	}
	if !strings.HasPrefix(link, "https://") {
		t.Errorf("link %q is not https", link)
	}
	if !strings.Contains(link, "purchase-1") {
		t.Errorf("link %q does not carry the purchase id", link)
	}
}
