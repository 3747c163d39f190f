package domain

type CheckoutStatus string

const (
	CheckoutStatusIdle            CheckoutStatus = "IDLE"
	CheckoutStatusValidating      CheckoutStatus = "VALIDATING"
	CheckoutStatusCommittingCOD   CheckoutStatus = "COMMITTING_COD"
	CheckoutStatusAwaitingPayment CheckoutStatus = "AWAITING_PAYMENT"
	CheckoutStatusCommitted       CheckoutStatus = "COMMITTED"
	CheckoutStatusFailed          CheckoutStatus = "FAILED"
	CheckoutStatusCancelled       CheckoutStatus = "CANCELLED"
)

// transitions lists, per status, the statuses a checkout may move into.
// Committed is terminal: no transition out of it exists, which is what makes
// a second commit of the same checkout structurally impossible.
var transitions = map[CheckoutStatus][]CheckoutStatus{
	CheckoutStatusIdle:            {CheckoutStatusValidating},
	CheckoutStatusValidating:      {CheckoutStatusCommittingCOD, CheckoutStatusAwaitingPayment, CheckoutStatusFailed, CheckoutStatusIdle},
	CheckoutStatusCommittingCOD:   {CheckoutStatusCommitted, CheckoutStatusFailed},
	CheckoutStatusAwaitingPayment: {CheckoutStatusCommitted, CheckoutStatusFailed, CheckoutStatusCancelled},
	CheckoutStatusCommitted:       {},
	CheckoutStatusFailed:          {CheckoutStatusIdle},
	CheckoutStatusCancelled:       {CheckoutStatusIdle},
}

func CanTransitionTo(from, to CheckoutStatus) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

func (s CheckoutStatus) IsTerminal() bool {
	return s == CheckoutStatusCommitted || s == CheckoutStatusFailed || s == CheckoutStatusCancelled
}

// String representation (for logging)
func (s CheckoutStatus) String() string {
	return string(s)
}
