package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CartItem — строка корзины. В корзине не больше одной строки на товар,
// количество всегда положительное.
type CartItem struct {
	Product  Product `json:"product"`
	Quantity int     `json:"quantity"`
}

// LineTotal возвращает стоимость строки: price × quantity.
func (i CartItem) LineTotal() decimal.Decimal {
	return decimal.NewFromFloat(i.Product.Price).Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// CartSnapshot — неизменяемый снимок корзины, который уходит в persist и sync.
type CartSnapshot struct {
	Items  []CartItem
	IsOpen bool
	// TakenAt фиксирует момент снятия снимка.
	TakenAt time.Time
}

// TotalQuantity суммирует количество по всем строкам.
func (s CartSnapshot) TotalQuantity() int {
	total := 0
	for _, item := range s.Items {
		total += item.Quantity
	}
	return total
}

// TotalPrice суммирует стоимость строк в decimal, без накопления ошибки float.
func (s CartSnapshot) TotalPrice() decimal.Decimal {
	total := decimal.Zero
	for _, item := range s.Items {
		total = total.Add(item.LineTotal())
	}
	return total
}

// CloneCartItems копирует строки корзины.
func CloneCartItems(src []CartItem) []CartItem {
	dst := make([]CartItem, len(src))
	copy(dst, src)
	return dst
}
