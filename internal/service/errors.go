package service

import "errors"

var (
	ErrEmptyCart            = errors.New("cart is empty, nothing to checkout")
	ErrInvalidEmail         = errors.New("email address is malformed")
	ErrInvalidPhone         = errors.New("phone number must be 10 digits with a known carrier prefix")
	ErrIncompleteAddress    = errors.New("street, district and province are required")
	ErrUnknownDivision      = errors.New("district or province code is not known")
	ErrInvalidPaymentMethod = errors.New("payment method must be COD or BANK_TRANSFER")
	ErrNoPendingPayment     = errors.New("checkout has no pending payment to cancel")

	IllegalTransitionError = errors.New("illegal transition of checkout status")
)
