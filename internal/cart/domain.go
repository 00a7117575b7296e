package cart

import "github.com/shopspring/decimal"

const (
	MinQty = 1
	MaxQty = 99
)

// Line is one offer entry in the cart with its own quantity.
type Line struct {
	ID        string          `json:"id"`
	Title     string          `json:"title"`
	UnitPrice decimal.Decimal `json:"price"`
	Qty       int             `json:"qty"`
}

// State is the full cart. Items keep insertion order; totals are derived,
// never stored.
type State struct {
	Items []Line `json:"items"`
}

// TotalQuantity is the number of places across all lines.
func (s State) TotalQuantity() int {
	sum := 0
	for _, l := range s.Items {
		sum += l.Qty
	}
	return sum
}

// TotalAmount is the sum of qty x unit price across all lines.
func (s State) TotalAmount() decimal.Decimal {
	total := decimal.Zero
	for _, l := range s.Items {
		total = total.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Qty))))
	}
	return total
}

func clampQty(q int) int {
	if q < MinQty {
		return MinQty
	}
	if q > MaxQty {
		return MaxQty
	}
	return q
}

func findIndexByID(items []Line, id string) int {
	for i := range items {
		if items[i].ID == id {
			return i
		}
	}
	return -1
}
