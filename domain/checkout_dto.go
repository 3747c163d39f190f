package domain

// AddressInput is the raw address form state: street text plus division
// codes still to be resolved against the lookup table.
type AddressInput struct {
	Street       string `json:"street"`
	WardCode     string `json:"ward_code"`
	DistrictCode string `json:"district_code"`
	ProvinceCode string `json:"province_code"`
}

type CheckoutRequest struct {
	UserID         string
	IdempotencyKey string
	Contact        ContactInfo
	Address        AddressInput
	PaymentMethod  PaymentMethod
	Notes          string
}

// PaymentInstructions is what the UI renders as a bank-transfer QR code.
type PaymentInstructions struct {
	Reference     string  `json:"reference"`
	Amount        float64 `json:"amount"`
	BankCode      string  `json:"bank_code"`
	AccountNumber string  `json:"account_number"`
	AccountName   string  `json:"account_name"`
}

type CheckoutResponse struct {
	CheckoutID          string               `json:"checkout_id"`
	Status              CheckoutStatus       `json:"status"`
	OrderNumber         string               `json:"order_number,omitempty"`
	Payment             *PaymentInstructions `json:"payment,omitempty"`
	FailureReason       string               `json:"failure_reason,omitempty"`
	NeedsReconciliation bool                 `json:"needs_reconciliation,omitempty"`
}
