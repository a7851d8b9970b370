package orders

import "time"

type DeliveryMethod string

const (
	DeliveryPickup  DeliveryMethod = "PICKUP"
	DeliveryToClass DeliveryMethod = "DELIVER_TO_CLASS"
)

func (m DeliveryMethod) Valid() bool {
	return m == DeliveryPickup || m == DeliveryToClass
}

type Order struct {
	ID             int64          `json:"id"`
	OrderCode      string         `json:"order_code"`
	UserID         int64          `json:"user_id"`
	Status         Status         `json:"status"`
	DeliveryMethod DeliveryMethod `json:"delivery_method"`
	DeliveryTarget string         `json:"delivery_target"`
	Notes          string         `json:"notes"`
	SubtotalRp     int64          `json:"subtotal_rp"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	Items          []Line         `json:"items,omitempty"`
}

// Line menyimpan snapshot harga saat order dibuat; harga produk boleh
// berubah belakangan tanpa mengubah order lama.
type Line struct {
	ID        int64 `json:"id"`
	OrderID   int64 `json:"order_id"`
	ProductID int64 `json:"product_id"`
	Qty       int   `json:"qty"`
	PriceRp   int64 `json:"price_rp"`
}

func (l Line) TotalRp() int64 { return l.PriceRp * int64(l.Qty) }

type ItemInput struct {
	ProductID int64 `json:"product_id"`
	Qty       int   `json:"qty"`
}

type CreateInput struct {
	UserID         int64
	Items          []ItemInput
	DeliveryMethod DeliveryMethod
	DeliveryTarget string
	Notes          string
}

type ListFilter struct {
	Status Status
	From   time.Time
	To     time.Time
	Page   int
	Size   int
}
