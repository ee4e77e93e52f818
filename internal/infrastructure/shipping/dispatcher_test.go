package shipping

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	domain "github.com/lumashop/orderflow/internal/domain/shipping"
)

func validAddress() domain.Address {
	return domain.Address{
		Name:       "Jamie Rivers",
		Line1:      "12 Canal St",
		City:       "Springfield",
		Region:     "US",
		PostalCode: "12345",
		Country:    "US",
	}
}

func TestDispatcher_CreateLabel(t *testing.T) {
	d := NewDispatcher("lumapost")

	label, err := d.CreateLabel(context.Background(), "ord-1", validAddress(), domain.MethodStandard, domain.Attributes{WeightKg: 1.2})
	require.NoError(t, err)
	require.Equal(t, "ord-1", label.OrderID)
	require.Equal(t, "lumapost", label.Carrier)
	require.Equal(t, domain.MethodStandard, label.Method)
	require.InDelta(t, 5.00, label.Cost, 1e-9)
	require.NotEmpty(t, label.TrackingNumber)

	stored, ok := d.Label("ord-1")
	require.True(t, ok)
	require.Equal(t, label.TrackingNumber, stored.TrackingNumber)
}

func TestDispatcher_MissingAddressField(t *testing.T) {
	d := NewDispatcher("lumapost")

	addr := validAddress()
	addr.PostalCode = ""

	_, err := d.CreateLabel(context.Background(), "ord-1", addr, domain.MethodStandard, domain.Attributes{})
	require.Error(t, err)
	require.Equal(t, "Missing address field: postal_code", err.Error())

	var missing *domain.MissingFieldError
	require.ErrorAs(t, err, &missing)
	require.Equal(t, "postal_code", missing.Field)

	_, ok := d.Label("ord-1")
	require.False(t, ok)
}

func TestDispatcher_UnsupportedMethod(t *testing.T) {
	d := NewDispatcher("lumapost")

	_, err := d.CreateLabel(context.Background(), "ord-1", validAddress(), "drone", domain.Attributes{})
	var unsupported *domain.UnsupportedMethodError
	require.ErrorAs(t, err, &unsupported)
	require.Equal(t, "drone", unsupported.Method)
}

func TestDispatcher_HazardousCannotShipExpress(t *testing.T) {
	d := NewDispatcher("lumapost")
	attrs := domain.Attributes{Hazardous: true}

	_, err := d.CreateLabel(context.Background(), "ord-1", validAddress(), domain.MethodExpress, attrs)
	var hazardous *domain.HazardousMethodError
	require.ErrorAs(t, err, &hazardous)

	// ground shipping remains available
	label, err := d.CreateLabel(context.Background(), "ord-1", validAddress(), domain.MethodStandard, attrs)
	require.NoError(t, err)
	require.InDelta(t, 5.00, label.Cost, 1e-9)
}

func TestDispatcher_FragileHandlingFee(t *testing.T) {
	d := NewDispatcher("lumapost")

	label, err := d.CreateLabel(context.Background(), "ord-1", validAddress(), domain.MethodExpress, domain.Attributes{Fragile: true})
	require.NoError(t, err)
	require.InDelta(t, 14.00, label.Cost, 1e-9)
}
