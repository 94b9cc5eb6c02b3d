package catalog

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MarcGrol/dobmilano/lib/mystore"
)

const seedJSON = `{
	"products": [
		{"id": "10", "title": "Siero viso", "slug": "siero-viso", "brand": "DOB", "price": 35.5, "stock": 3},
		{"id": "11", "title": "Crema mani", "slug": "crema-mani", "price": "12.00"}
	],
	"services": [
		{"id": "1", "title": "Pulizia viso", "slug": "pulizia-viso", "price": 60, "durationMinutes": 50,
		 "packages": [{"variant": "five", "title": "5 sedute", "sessions": 5, "price": 270}]}
	]
}`

func setupCatalog(t *testing.T) (context.Context, *Catalog, *mystore.InMemoryStore[Product]) {
	c := context.TODO()
	productStore, _, err := mystore.NewInMemoryStore[Product](c)
	require.NoError(t, err)
	serviceStore, _, err := mystore.NewInMemoryStore[Service](c)
	require.NoError(t, err)

	sut := New(productStore, serviceStore)
	require.NoError(t, sut.Seed(c, strings.NewReader(seedJSON)))

	return c, sut, productStore
}

func TestSeed(t *testing.T) {
	_, _, productStore := setupCatalog(t)

	assert.Equal(t, Product{ID: "10", Title: "Siero viso", Slug: "siero-viso", Brand: "DOB", PriceCents: 3550, Currency: "EUR", TrackStock: true, Stock: 3}, productStore.Items["10"])
	assert.False(t, productStore.Items["11"].TrackStock)
	assert.Equal(t, int64(1200), productStore.Items["11"].PriceCents)
}

func TestPriceLines(t *testing.T) {
	c, sut, _ := setupCatalog(t)

	lines, missing, err := sut.PriceLines(c, []LineItem{
		{ID: "10", Quantity: 2},
		{ID: "1:service:default", Quantity: 1},
		{ID: "1:package:five", Quantity: 1},
		{ID: "99", Quantity: 1},
		{ID: "1:package:ten", Quantity: 1},
		{ID: "1:service:express", Quantity: 1},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"99", "1:package:ten", "1:service:express"}, missing)
	require.Len(t, lines, 3)
	assert.Equal(t, PricedLine{ID: "10", Kind: LineKindProduct, DocID: "10", Title: "Siero viso", Quantity: 2, UnitPriceCents: 3550, Currency: "EUR"}, lines[0])
	assert.Equal(t, int64(6000), lines[1].UnitPriceCents)
	assert.Equal(t, "Pulizia viso - 5 sedute", lines[2].Title)
	assert.Equal(t, int64(27000), lines[2].UnitPriceCents)
	assert.Equal(t, int64(7100+6000+27000), SubtotalCents(lines))
}

func TestAvailabilityAndCommit(t *testing.T) {
	t.Run("Shortfall sums lines of the same product", func(t *testing.T) {
		c, sut, _ := setupCatalog(t)

		shortfall, err := sut.CheckAvailability(c, []PricedLine{
			{ID: "10", Kind: LineKindProduct, DocID: "10", Quantity: 2},
			{ID: "10", Kind: LineKindProduct, DocID: "10", Quantity: 2},
			{ID: "11", Kind: LineKindProduct, DocID: "11", Quantity: 100},
		})
		require.NoError(t, err)
		assert.Equal(t, &Shortfall{ItemID: "10", Requested: 4, Available: 3}, shortfall)
	})

	t.Run("Enough stock", func(t *testing.T) {
		c, sut, _ := setupCatalog(t)

		shortfall, err := sut.CheckAvailability(c, []PricedLine{
			{ID: "10", Kind: LineKindProduct, DocID: "10", Quantity: 3},
			{ID: "1:service:default", Kind: LineKindService, DocID: "1", Quantity: 9},
		})
		require.NoError(t, err)
		assert.Nil(t, shortfall)
	})

	t.Run("Commit decrements tracked stock only and never below zero", func(t *testing.T) {
		c, sut, productStore := setupCatalog(t)

		err := sut.CommitInventory(c, []PricedLine{
			{ID: "10", Kind: LineKindProduct, DocID: "10", Quantity: 2},
			{ID: "11", Kind: LineKindProduct, DocID: "11", Quantity: 2},
		})
		require.NoError(t, err)
		assert.Equal(t, 1, productStore.Items["10"].Stock)
		assert.Equal(t, 0, productStore.Items["11"].Stock)

		err = sut.CommitInventory(c, []PricedLine{{ID: "10", Kind: LineKindProduct, DocID: "10", Quantity: 5}})
		require.NoError(t, err)
		assert.Equal(t, 0, productStore.Items["10"].Stock)
	})
}
