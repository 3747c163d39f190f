package domain

import "time"

type PaymentMethod string

const (
	PaymentMethodCOD          PaymentMethod = "COD"
	PaymentMethodBankTransfer PaymentMethod = "BANK_TRANSFER"
)

func (m PaymentMethod) Valid() bool {
	return m == PaymentMethodCOD || m == PaymentMethodBankTransfer
}

type ContactInfo struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
}

// ShippingAddress carries resolved division names, not codes. It is only
// assembled after the codes have been looked up.
type ShippingAddress struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Street   string `json:"street"`
	Ward     string `json:"ward"`
	District string `json:"district"`
	City     string `json:"city"`
}

type OrderLine struct {
	Name     string  `json:"name"`
	Image    string  `json:"image"`
	Quantity int32   `json:"quantity"`
	Price    float64 `json:"price"`
}

// OrderDraft is the immutable, not-yet-committed order. It is built once
// from the snapshot and consumed exactly once by the commit path.
type OrderDraft struct {
	ShippingAddress ShippingAddress `json:"shipping_address"`
	Notes           string          `json:"notes"`
	PaymentMethod   PaymentMethod   `json:"payment_method"`
	TotalAmount     float64         `json:"total_amount"`
	Items           []OrderLine     `json:"items"`
}

// PendingTransaction exists only during the BANK_TRANSFER flow, between the
// moment the user is shown the transfer QR and the poller's outcome.
type PendingTransaction struct {
	Reference      string     `json:"reference"`
	ExpectedAmount float64    `json:"expected_amount"`
	Draft          OrderDraft `json:"draft"`
	CreatedAt      time.Time  `json:"created_at"`
}

type ConfirmedOrder struct {
	OrderNumber string `json:"order_number"`
	OrderDraft
}
