package catalog

import "time"

type Product struct {
	ID        int64     `json:"id"`
	SKU       string    `json:"sku"`
	Name      string    `json:"name"`
	Category  string    `json:"category"`
	Unit      string    `json:"unit"`
	PriceRp   int64     `json:"price_rp"`
	Stock     int       `json:"stock"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type ListFilter struct {
	Query    string
	Category string
	Page     int
	Size     int
	Sort     string // name | price_rp | stock
}

type ProductInput struct {
	SKU      string `json:"sku"`
	Name     string `json:"name"`
	Category string `json:"category"`
	Unit     string `json:"unit"`
	PriceRp  int64  `json:"price_rp"`
	Stock    int    `json:"stock"`
}

type ProductPatch struct {
	Name     *string `json:"name"`
	Category *string `json:"category"`
	Unit     *string `json:"unit"`
	PriceRp  *int64  `json:"price_rp"`
	Stock    *int    `json:"stock"`
	IsActive *bool   `json:"is_active"`
}
