// Package validate holds the contact and address checks used as the gate in
// front of checkout. Everything here is pure and synchronous; surfacing
// errors to the user is the caller's job.
package validate

import (
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// carrierPrefixes are the two-digit mobile prefixes accepted for a shipping
// phone number.
var carrierPrefixes = map[string]struct{}{
	"03": {},
	"05": {},
	"07": {},
	"08": {},
	"09": {},
}

func Email(s string) bool {
	return emailRe.MatchString(s)
}

// Phone strips every non-digit character and accepts only 10-digit numbers
// with an allowed carrier prefix. The normalized number is returned so the
// caller stores digits, not whatever formatting the form carried.
func Phone(s string) (string, bool) {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) != 10 {
		return "", false
	}
	if _, ok := carrierPrefixes[digits[:2]]; !ok {
		return "", false
	}
	return digits, true
}

// ShippingAddress reports whether the address form state is complete enough
// to draft an order. The ward is optional.
func ShippingAddress(street, provinceCode, districtCode string) bool {
	return strings.TrimSpace(street) != "" &&
		strings.TrimSpace(provinceCode) != "" &&
		strings.TrimSpace(districtCode) != ""
}

// Register adds the locale-specific rules to a validator instance so inbound
// DTOs can use them as struct tags.
func Register(v *validator.Validate) error {
	if err := v.RegisterValidation("checkout_email", func(fl validator.FieldLevel) bool {
		return Email(fl.Field().String())
	}); err != nil {
		return err
	}
	return v.RegisterValidation("carrier_phone", func(fl validator.FieldLevel) bool {
		_, ok := Phone(fl.Field().String())
		return ok
	})
}
