package models

// CancellationReason is the mandatory, enumerated reason recorded when a
// compliance record is cancelled.
type CancellationReason string

const (
	ReasonCustomerRequest CancellationReason = "customer_request"
	ReasonVehicleSold     CancellationReason = "vehicle_sold"
	ReasonDuplicate       CancellationReason = "duplicate"
	ReasonDataError       CancellationReason = "data_error"
	ReasonExpiredEarly    CancellationReason = "expired_early"
	ReasonOther           CancellationReason = "other"
)

var cancellationReasons = map[CancellationReason]struct{}{
	ReasonCustomerRequest: {},
	ReasonVehicleSold:     {},
	ReasonDuplicate:       {},
	ReasonDataError:       {},
	ReasonExpiredEarly:    {},
	ReasonOther:           {},
}

// Valid reports whether r is a known cancellation reason.
func (r CancellationReason) Valid() bool {
	_, ok := cancellationReasons[r]
	return ok
}
