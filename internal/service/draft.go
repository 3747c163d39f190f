package service

import (
	"github.com/chanhduy633/checkout-service/domain"
)

// DivisionResolver answers code -> name lookups for the address divisions.
type DivisionResolver interface {
	ProvinceName(code string) (string, bool)
	DistrictName(code string) (string, bool)
	WardName(code string) (string, bool)
}

// BuildOrderDraft shapes validated form state plus the cart snapshot into an
// immutable order draft. It does not re-validate: validation is the gate in
// front of it, building is only data shaping. The draft's total is the
// snapshot's recomputed total; for bank transfers this is the amount the
// poller matches incoming transfers against.
func BuildOrderDraft(
	contact domain.ContactInfo,
	address domain.AddressInput,
	method domain.PaymentMethod,
	notes string,
	snap *domain.CartSnapshot,
	divisions DivisionResolver,
) (*domain.OrderDraft, error) {
	city, ok := divisions.ProvinceName(address.ProvinceCode)
	if !ok {
		return nil, ErrUnknownDivision
	}
	district, ok := divisions.DistrictName(address.DistrictCode)
	if !ok {
		return nil, ErrUnknownDivision
	}
	ward := ""
	if address.WardCode != "" {
		// The ward is optional; an unknown code is dropped rather than fatal.
		ward, _ = divisions.WardName(address.WardCode)
	}

	items := make([]domain.OrderLine, 0, len(snap.Items))
	for _, line := range snap.Items {
		items = append(items, domain.OrderLine{
			Name:     line.Name,
			Image:    line.Image,
			Quantity: line.Quantity,
			Price:    line.Price,
		})
	}

	return &domain.OrderDraft{
		ShippingAddress: domain.ShippingAddress{
			Name:     contact.FullName,
			Email:    contact.Email,
			Phone:    contact.Phone,
			Street:   address.Street,
			Ward:     ward,
			District: district,
			City:     city,
		},
		Notes:         notes,
		PaymentMethod: method,
		TotalAmount:   snap.ComputeTotal(),
		Items:         items,
	}, nil
}
