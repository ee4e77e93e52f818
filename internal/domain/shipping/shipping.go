package shipping

import (
	"context"
	"fmt"
	"time"
)

const (
	MethodStandard = "standard"
	MethodExpress  = "express"
)

// Address is a postal destination. All fields are required for label issuance.
type Address struct {
	Name       string `json:"name"`
	Line1      string `json:"line1"`
	City       string `json:"city"`
	Region     string `json:"region"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// Validate reports the first missing field, if any.
func (a Address) Validate() error {
	fields := []struct {
		name  string
		value string
	}{
		{"name", a.Name},
		{"line1", a.Line1},
		{"city", a.City},
		{"region", a.Region},
		{"postal_code", a.PostalCode},
		{"country", a.Country},
	}
	for _, f := range fields {
		if f.value == "" {
			return &MissingFieldError{Field: f.name}
		}
	}
	return nil
}

// Label is issued at most once per fulfillment event (outbound or return).
type Label struct {
	OrderID        string  `json:"order_id"`
	TrackingNumber string  `json:"tracking_number"`
	Carrier        string  `json:"carrier"`
	Method         string  `json:"method"`
	Address        Address `json:"address"`
	Cost           float64 `json:"cost"`
	IssuedAt       time.Time
}

// Attributes summarizes the physical properties of a shipment, used to
// price it and to reject method/content combinations.
type Attributes struct {
	WeightKg  float64
	Fragile   bool
	Hazardous bool
}

// MissingFieldError identifies the address field that blocked label issuance.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("Missing address field: %s", e.Field)
}

// UnsupportedMethodError reports a shipping method the dispatcher cannot serve.
type UnsupportedMethodError struct {
	Method string
}

func (e *UnsupportedMethodError) Error() string {
	return fmt.Sprintf("Unsupported shipping method: %s", e.Method)
}

// HazardousMethodError reports a method that cannot carry hazardous goods.
type HazardousMethodError struct {
	Method string
}

func (e *HazardousMethodError) Error() string {
	return fmt.Sprintf("shipping: hazardous items cannot ship via %s", e.Method)
}

// Dispatcher validates destinations and issues shipping labels.
type Dispatcher interface {
	CreateLabel(ctx context.Context, orderID string, addr Address, method string, attrs Attributes) (*Label, error)
}
