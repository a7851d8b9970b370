package orders

import (
	"strings"

	"github.com/ariefcatur/koperasi-orders.git/internal/catalog"
)

// ValidateCreate menolak input rusak sebelum menyentuh store.
func ValidateCreate(in CreateInput) error {
	if len(in.Items) == 0 {
		return Validationf("items are required")
	}
	for _, it := range in.Items {
		if it.ProductID <= 0 {
			return Validationf("invalid product id %d", it.ProductID)
		}
		if it.Qty <= 0 {
			return Validationf("invalid qty for product %d", it.ProductID)
		}
	}
	if !in.DeliveryMethod.Valid() {
		return Validationf("invalid delivery method %q", in.DeliveryMethod)
	}
	if in.DeliveryMethod == DeliveryToClass && strings.TrimSpace(in.DeliveryTarget) == "" {
		return Validationf("delivery target is required for %s", DeliveryToClass)
	}
	return nil
}

// PriceLines memvalidasi setiap item terhadap produk (ada, aktif, stok
// cukup) dan menghitung line + subtotal dengan snapshot harga saat ini.
// Gagal satu item = gagal semua.
func PriceLines(items []ItemInput, products map[int64]catalog.Product) ([]Line, int64, error) {
	lines := make([]Line, 0, len(items))
	var subtotal int64
	for _, it := range items {
		p, ok := products[it.ProductID]
		if !ok {
			return nil, 0, NotFoundf("product %d not found", it.ProductID)
		}
		if !p.IsActive {
			return nil, 0, Validationf("product %s is inactive", p.Name)
		}
		if p.Stock < it.Qty {
			return nil, 0, Conflictf("insufficient stock for %s (available %d, requested %d)",
				p.Name, p.Stock, it.Qty)
		}
		l := Line{ProductID: p.ID, Qty: it.Qty, PriceRp: p.PriceRp}
		lines = append(lines, l)
		subtotal += l.TotalRp()
	}
	return lines, subtotal, nil
}

// ValidateTransition memeriksa edge terhadap tabel transisi dan aturan
// notes pada penolakan; mengembalikan efek stok untuk edge tsb.
func ValidateTransition(from, to Status, notes string) (StockEffect, error) {
	if !to.Valid() {
		return EffectNone, Statef("invalid status %q", to)
	}
	if to == StatusRejected && strings.TrimSpace(notes) == "" {
		return EffectNone, Statef("notes required for rejected orders")
	}
	eff, ok := TransitionEffect(from, to)
	if !ok {
		return EffectNone, Statef("cannot transition order from %s to %s", from, to)
	}
	return eff, nil
}
