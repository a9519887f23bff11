package order

var forward = []Status{
	StatusPending,
	StatusConfirmed,
	StatusProcessing,
	StatusShipped,
	StatusDelivered,
}

var labels = map[Status]string{
	StatusPending:    "Order placed",
	StatusConfirmed:  "Order confirmed",
	StatusProcessing: "Being prepared",
	StatusShipped:    "On the way",
	StatusDelivered:  "Delivered",
}

// ParseStatus returns the Status named by s.
func ParseStatus(s string) (Status, bool) {
	st := Status(s)
	if st == StatusCancelled {
		return st, true
	}
	_, ok := labels[st]
	return st, ok
}

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// Cancellable reports whether the customer may still cancel.
func (s Status) Cancellable() bool {
	return s == StatusPending || s == StatusConfirmed
}

// CanTransition reports whether from -> to is an edge of the status lattice:
// one step forward, or to cancelled from any non-terminal status.
func CanTransition(from, to Status) bool {
	if from.Terminal() {
		return false
	}
	if to == StatusCancelled {
		return true
	}
	for i := 0; i < len(forward)-1; i++ {
		if forward[i] == from {
			return forward[i+1] == to
		}
	}
	return false
}

// CanTransitionPayment reports whether a payment status change is allowed.
// Paid is terminal; a failed payment can be retried.
func CanTransitionPayment(from, to PaymentStatus) bool {
	switch from {
	case PaymentPending:
		return to == PaymentPaid || to == PaymentFailed
	case PaymentFailed:
		return to == PaymentPaid || to == PaymentPending
	default:
		return false
	}
}

// ParsePaymentStatus returns the PaymentStatus named by s.
func ParsePaymentStatus(s string) (PaymentStatus, bool) {
	ps := PaymentStatus(s)
	switch ps {
	case PaymentPending, PaymentPaid, PaymentFailed:
		return ps, true
	default:
		return "", false
	}
}

// TimelineStep is one entry of an order tracking timeline.
type TimelineStep struct {
	Status    Status `json:"status"`
	Label     string `json:"label"`
	Completed bool   `json:"completed"`
	Current   bool   `json:"current"`
}

// Timeline derives the tracking steps for status. Every step up to and
// including the current one is completed. A cancelled order has no
// completed or current step.
func Timeline(status Status) []TimelineStep {
	idx := -1
	for i, s := range forward {
		if s == status {
			idx = i
		}
	}

	steps := make([]TimelineStep, len(forward))
	for i, s := range forward {
		steps[i] = TimelineStep{
			Status:    s,
			Label:     labels[s],
			Completed: idx >= 0 && i <= idx,
			Current:   i == idx,
		}
	}
	return steps
}
