package orders

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/koperasi-orders.git/internal/catalog"
)

func TestValidateCreate(t *testing.T) {
	valid := CreateInput{
		UserID:         7,
		Items:          []ItemInput{{ProductID: 1, Qty: 2}},
		DeliveryMethod: DeliveryPickup,
	}
	assert.NoError(t, ValidateCreate(valid))

	cases := []struct {
		name   string
		mutate func(*CreateInput)
	}{
		{"empty items", func(in *CreateInput) { in.Items = nil }},
		{"zero qty", func(in *CreateInput) { in.Items = []ItemInput{{ProductID: 1, Qty: 0}} }},
		{"negative qty", func(in *CreateInput) { in.Items = []ItemInput{{ProductID: 1, Qty: -3}} }},
		{"bad product id", func(in *CreateInput) { in.Items = []ItemInput{{ProductID: 0, Qty: 1}} }},
		{"bad method", func(in *CreateInput) { in.DeliveryMethod = "DRONE" }},
		{"class delivery without target", func(in *CreateInput) {
			in.DeliveryMethod = DeliveryToClass
			in.DeliveryTarget = "   "
		}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			in := valid
			c.mutate(&in)
			err := ValidateCreate(in)
			require.Error(t, err)
			kind, ok := KindOf(err)
			require.True(t, ok)
			assert.Equal(t, KindValidation, kind)
		})
	}

	// target wajib hanya untuk DELIVER_TO_CLASS
	in := valid
	in.DeliveryMethod = DeliveryToClass
	in.DeliveryTarget = "7B"
	assert.NoError(t, ValidateCreate(in))
}

func testProducts() map[int64]catalog.Product {
	return map[int64]catalog.Product{
		1: {ID: 1, Name: "Pensil 2B", PriceRp: 3000, Stock: 50, IsActive: true},
		2: {ID: 2, Name: "Buku Tulis", PriceRp: 5000, Stock: 5, IsActive: true},
		3: {ID: 3, Name: "Penggaris", PriceRp: 4000, Stock: 10, IsActive: false},
	}
}

func TestPriceLinesSubtotal(t *testing.T) {
	items := []ItemInput{{ProductID: 1, Qty: 4}, {ProductID: 2, Qty: 5}}
	lines, subtotal, err := PriceLines(items, testProducts())
	require.NoError(t, err)
	require.Len(t, lines, 2)

	// snapshot harga per line
	assert.Equal(t, int64(3000), lines[0].PriceRp)
	assert.Equal(t, int64(5000), lines[1].PriceRp)
	assert.Equal(t, int64(4*3000+5*5000), subtotal)
}

func TestPriceLinesFailures(t *testing.T) {
	products := testProducts()

	_, _, err := PriceLines([]ItemInput{{ProductID: 99, Qty: 1}}, products)
	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, KindNotFound, kind)

	_, _, err = PriceLines([]ItemInput{{ProductID: 3, Qty: 1}}, products)
	kind, _ = KindOf(err)
	assert.Equal(t, KindValidation, kind)
	assert.Contains(t, err.Error(), "Penggaris")

	// stok kurang: error menyebut produk, available, requested
	_, _, err = PriceLines([]ItemInput{{ProductID: 2, Qty: 6}}, products)
	kind, _ = KindOf(err)
	assert.Equal(t, KindConflict, kind)
	assert.Contains(t, err.Error(), "Buku Tulis")
	assert.Contains(t, err.Error(), "available 5")
	assert.Contains(t, err.Error(), "requested 6")

	// satu line gagal = tidak ada hasil parsial
	lines, subtotal, err := PriceLines([]ItemInput{
		{ProductID: 1, Qty: 1},
		{ProductID: 2, Qty: 6},
	}, products)
	require.Error(t, err)
	assert.Nil(t, lines)
	assert.Zero(t, subtotal)
}

func TestValidateTransition(t *testing.T) {
	eff, err := ValidateTransition(StatusPending, StatusProcessing, "")
	require.NoError(t, err)
	assert.Equal(t, EffectReserve, eff)

	eff, err = ValidateTransition(StatusProcessing, StatusCompleted, "")
	require.NoError(t, err)
	assert.Equal(t, EffectNone, eff)

	// DITOLAK wajib catatan
	_, err = ValidateTransition(StatusPending, StatusRejected, "  ")
	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, KindState, kind)

	eff, err = ValidateTransition(StatusPending, StatusRejected, "stok habis")
	require.NoError(t, err)
	assert.Equal(t, EffectNone, eff)

	_, err = ValidateTransition(StatusPending, "SHIPPED", "")
	kind, _ = KindOf(err)
	assert.Equal(t, KindState, kind)

	_, err = ValidateTransition(StatusCompleted, StatusProcessing, "")
	kind, _ = KindOf(err)
	assert.Equal(t, KindState, kind)
}

func TestKindOfWrapped(t *testing.T) {
	err := fmt.Errorf("create order: %w", Conflictf("insufficient stock"))
	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, KindConflict, kind)

	_, ok = KindOf(fmt.Errorf("plain"))
	assert.False(t, ok)
}
