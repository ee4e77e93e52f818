package shipping

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	domain "github.com/lumashop/orderflow/internal/domain/shipping"
)

const fragileHandlingFee = 2.0

var costByMethod = map[string]float64{
	domain.MethodStandard: 5.00,
	domain.MethodExpress:  12.00,
}

// Dispatcher validates destinations and issues labels, remembering the last
// label per order id.
type Dispatcher struct {
	carrier string

	mu     sync.Mutex
	issued map[string]*domain.Label
}

func NewDispatcher(carrier string) *Dispatcher {
	if carrier == "" {
		carrier = "DHL"
	}
	return &Dispatcher{
		carrier: carrier,
		issued:  make(map[string]*domain.Label),
	}
}

func (d *Dispatcher) CreateLabel(ctx context.Context, orderID string, addr domain.Address, method string, attrs domain.Attributes) (*domain.Label, error) {
	_ = ctx

	if _, ok := costByMethod[method]; !ok {
		return nil, &domain.UnsupportedMethodError{Method: method}
	}
	if err := addr.Validate(); err != nil {
		return nil, err
	}
	// Hazardous goods are ground-only; express shipments fly.
	if attrs.Hazardous && method == domain.MethodExpress {
		return nil, &domain.HazardousMethodError{Method: method}
	}

	cost := costByMethod[method]
	if attrs.Fragile {
		cost += fragileHandlingFee
	}

	label := &domain.Label{
		OrderID:        orderID,
		TrackingNumber: trackingNumber(d.carrier),
		Carrier:        d.carrier,
		Method:         method,
		Address:        addr,
		Cost:           cost,
		IssuedAt:       time.Now().UTC(),
	}

	d.mu.Lock()
	d.issued[orderID] = label
	d.mu.Unlock()

	return label, nil
}

// Label returns the last label issued for the order id, if any.
func (d *Dispatcher) Label(orderID string) (*domain.Label, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	label, ok := d.issued[orderID]
	if !ok {
		return nil, false
	}
	copy := *label
	return &copy, true
}

func trackingNumber(carrier string) string {
	suffix := strings.SplitN(uuid.NewString(), "-", 2)[0]
	return fmt.Sprintf("%s-%s", carrier, strings.ToUpper(suffix))
}
