package deduction

import (
	"strconv"
	"strings"

	"github.com/stockpool/backend/internal/domain/shared"
)

// Platform identifies the marketplace an order originated from
type Platform string

const (
	PlatformAmazon   Platform = "amazon"
	PlatformFlipkart Platform = "flipkart"
)

// IsValid returns true for a known platform
func (p Platform) IsValid() bool {
	return p == PlatformAmazon || p == PlatformFlipkart
}

// OrderItem is one line of an incoming e-commerce order. It is created by
// the upstream order-ingestion collaborator and is immutable once handed
// to the engine.
type OrderItem struct {
	SKU            string
	Quantity       int
	Platform       Platform
	OrderID        string
	BatchReference string
}

// NewOrderItem builds an order item from raw ingested values. The quantity
// arrives as a string (orders are extracted from marketplace exports) and
// must parse to a positive integer.
func NewOrderItem(sku, quantity string, platform Platform) (OrderItem, error) {
	if sku == "" {
		return OrderItem{}, shared.NewDomainError("INVALID_SKU", "Order item SKU cannot be empty")
	}
	if !platform.IsValid() {
		return OrderItem{}, shared.NewDomainError("INVALID_PLATFORM", "Platform must be amazon or flipkart")
	}

	qty, err := ParseQuantity(quantity)
	if err != nil {
		return OrderItem{}, err
	}

	return OrderItem{
		SKU:      strings.ToUpper(strings.TrimSpace(sku)),
		Quantity: qty,
		Platform: platform,
	}, nil
}

// ParseQuantity parses an order quantity from its string form,
// requiring a positive integer.
func ParseQuantity(raw string) (int, error) {
	qty, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, shared.NewDomainError("INVALID_QUANTITY", "Order quantity must be an integer")
	}
	if qty <= 0 {
		return 0, shared.NewDomainError("INVALID_QUANTITY", "Order quantity must be positive")
	}
	return qty, nil
}
