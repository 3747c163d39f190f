package domain

import "time"

type CartLine struct {
	ProductID int64   `json:"product_id"`
	Name      string  `json:"name"`
	Image     string  `json:"image"`
	Price     float64 `json:"price"`
	Quantity  int32   `json:"quantity"`
}

// CartSnapshot is the cart state frozen at checkout entry, decoupled from
// the live cart so in-flight checkouts are not affected by concurrent edits.
type CartSnapshot struct {
	Items       []CartLine `json:"items"`
	TotalAmount float64    `json:"total_amount"`
	CapturedAt  time.Time  `json:"captured_at"`
}

// ComputeTotal sums the line subtotals. The stored TotalAmount is advisory
// only; every read recomputes from the items.
func (s *CartSnapshot) ComputeTotal() float64 {
	var total float64
	for _, line := range s.Items {
		total += line.Price * float64(line.Quantity)
	}
	return total
}

func (s *CartSnapshot) IsEmpty() bool {
	return len(s.Items) == 0
}

func EmptyCartSnapshot() *CartSnapshot {
	return &CartSnapshot{Items: []CartLine{}}
}
