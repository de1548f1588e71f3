package model

// Status is the provider-independent charge status. confirmed and
// overdue exist because Cielo's normalization table maps into them:
// confirmed is paid-equivalent, overdue is expired-equivalent. Both
// are terminal.
type Status string

const (
	StatusCreated   Status = "created"
	StatusPending   Status = "pending"
	StatusPaid      Status = "paid"
	StatusConfirmed Status = "confirmed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
	StatusExpired   Status = "expired"
	StatusOverdue   Status = "overdue"
	StatusRefunded  Status = "refunded"
)

func (s Status) Terminal() bool {
	switch s {
	case StatusPaid, StatusConfirmed, StatusFailed, StatusCancelled, StatusExpired, StatusOverdue, StatusRefunded:
		return true
	}
	return false
}

// CanTransition reports whether a charge may move from s to target.
// Terminal states are sinks, except that a settled charge may still
// be refunded.
func (s Status) CanTransition(target Status) bool {
	if s == target {
		return false
	}
	switch s {
	case StatusCreated:
		return true
	case StatusPending:
		return target != StatusCreated
	case StatusPaid, StatusConfirmed:
		return target == StatusRefunded
	default:
		return false
	}
}

// OrderStatus projects a charge status onto the order lifecycle used
// by the storefront. A confirmed card authorization keeps the order in
// processing; settled funds complete it.
func (s Status) OrderStatus() string {
	switch s {
	case StatusPending:
		return "on-hold"
	case StatusConfirmed:
		return "processing"
	case StatusPaid:
		return "completed"
	case StatusFailed:
		return "failed"
	case StatusCancelled, StatusExpired, StatusOverdue:
		return "cancelled"
	case StatusRefunded:
		return "refunded"
	default:
		return "pending"
	}
}
