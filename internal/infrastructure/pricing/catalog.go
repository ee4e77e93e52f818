package pricing

import (
	"context"

	domain "github.com/lumashop/orderflow/internal/domain/pricing"
)

// Catalog is a static in-memory product catalog.
type Catalog struct {
	products map[string]domain.Product
}

// NewCatalog seeds the demo assortment unless products are supplied.
func NewCatalog(products map[string]domain.Product) *Catalog {
	if products == nil {
		products = map[string]domain.Product{
			"widget-basic": {
				SKU:      "widget-basic",
				Name:     "Basic Widget",
				Price:    25.0,
				WeightKg: 0.4,
				Category: "widgets",
			},
			"widget-pro": {
				SKU:       "widget-pro",
				Name:      "Pro Widget",
				Price:     60.0,
				WeightKg:  0.8,
				Category:  "widgets",
				IsFragile: true,
			},
			"bolt-pack": {
				SKU:      "bolt-pack",
				Name:     "Bolt Pack (100x)",
				Price:    15.0,
				WeightKg: 0.3,
				Category: "hardware",
			},
			"solvent-can": {
				SKU:         "solvent-can",
				Name:        "Industrial Solvent 1L",
				Price:       18.5,
				WeightKg:    1.2,
				Category:    "chemicals",
				IsHazardous: true,
			},
			"gift-card": {
				SKU:         "gift-card",
				Name:        "Gift Card",
				Price:       50.0,
				WeightKg:    0.01,
				Category:    "giftcards",
				IsTaxExempt: true,
			},
		}
	}
	return &Catalog{products: products}
}

func (c *Catalog) Get(ctx context.Context, sku string) (*domain.Product, error) {
	_ = ctx
	p, ok := c.products[sku]
	if !ok {
		return nil, domain.ErrUnknownProduct
	}
	return &p, nil
}
