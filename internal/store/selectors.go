package store

import "github.com/shopspring/decimal"

func TotalPrice(s State) decimal.Decimal {
	total := decimal.Zero
	for _, it := range s.Cart {
		total = total.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Qty))))
	}
	return total
}

func ItemCount(s State) int {
	n := 0
	for _, it := range s.Cart {
		n += it.Qty
	}
	return n
}

func InWishlist(s State, productID string) bool {
	for _, it := range s.Wishlist {
		if it.ProductID == productID {
			return true
		}
	}
	return false
}

type Totals struct {
	TotalPrice decimal.Decimal `json:"totalPrice"`
	ItemCount  int             `json:"itemCount"`
}

func TotalsOf(s State) Totals {
	return Totals{TotalPrice: TotalPrice(s), ItemCount: ItemCount(s)}
}
