package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookstore/internal/models"
	"bookstore/internal/store"
	"bookstore/internal/store/stubs"
)

func setupCache(t *testing.T) (*Store, *stubs.MockStore) {
	t.Helper()
	mock := stubs.NewMockStore()
	mock.Seed()
	return New(mock), mock
}

func TestCache_GetBooksServedFromCache(t *testing.T) {
	c, mock := setupCache(t)
	ctx := context.Background()
	query := store.BookQuery{Page: 1, Limit: 10}

	first, _, err := c.GetBooks(ctx, query)
	require.NoError(t, err)

	second, _, err := c.GetBooks(ctx, query)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, mock.CallCount("getBooks"), "second read should not hit the API")

	// A different query is a different cache entry
	_, _, err = c.GetBooks(ctx, store.BookQuery{Page: 2, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 2, mock.CallCount("getBooks"))
}

func TestCache_BookMutationsInvalidateListings(t *testing.T) {
	c, mock := setupCache(t)
	ctx := context.Background()
	query := store.BookQuery{Page: 1, Limit: 10}

	_, meta, err := c.GetBooks(ctx, query)
	require.NoError(t, err)
	assert.Equal(t, 3, meta.Total)

	created, err := c.CreateBook(ctx, models.Book{
		Name:        "New Arrival",
		Author:      "Someone",
		Price:       5,
		ReleaseDate: "2024-01-01",
		Publisher:   "Pub",
		Language:    "English",
		Genres:      []models.Genre{{Genre: "Fiction"}},
		Format:      models.FormatPaperback,
		PageCount:   100,
		Quantity:    1,
	})
	require.NoError(t, err)

	// The create evicted the listing; the next read refetches
	_, meta, err = c.GetBooks(ctx, query)
	require.NoError(t, err)
	assert.Equal(t, 4, meta.Total)
	assert.Equal(t, 2, mock.CallCount("getBooks"))

	// Deletes invalidate too
	require.NoError(t, c.DeleteBook(ctx, created.ID))
	_, meta, err = c.GetBooks(ctx, query)
	require.NoError(t, err)
	assert.Equal(t, 3, meta.Total)
	assert.Equal(t, 3, mock.CallCount("getBooks"))
}

func TestCache_SaleInvalidatesListingsAndHistory(t *testing.T) {
	c, mock := setupCache(t)
	ctx := context.Background()

	books, _, err := c.GetBooks(ctx, store.BookQuery{Page: 1, Limit: 10})
	require.NoError(t, err)
	require.NotEmpty(t, books)

	_, _, err = c.GetSaleHistory(ctx, store.SaleQuery{})
	require.NoError(t, err)

	sale := models.Sale{Book: books[0].ID, Quantity: 1, Buyer: "Alice", SaleDate: time.Now()}
	require.NoError(t, c.CreateSale(ctx, sale))

	// Listings carry the sale tag, since a sale changes on-hand stock
	_, _, err = c.GetBooks(ctx, store.BookQuery{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 2, mock.CallCount("getBooks"))

	buckets, _, err := c.GetSaleHistory(ctx, store.SaleQuery{})
	require.NoError(t, err)
	assert.Equal(t, 2, mock.CallCount("getSaleHistory"))
	require.Len(t, buckets, 1)
	assert.Equal(t, 1, buckets[0].TotalBookSold)
}

func TestCache_BookMutationsKeepHistoryCached(t *testing.T) {
	c, mock := setupCache(t)
	ctx := context.Background()

	_, _, err := c.GetSaleHistory(ctx, store.SaleQuery{})
	require.NoError(t, err)

	_, err = c.CreateBook(ctx, models.Book{
		Name:        "Unrelated",
		Author:      "Someone",
		Price:       5,
		ReleaseDate: "2024-01-01",
		Publisher:   "Pub",
		Language:    "English",
		Genres:      []models.Genre{{Genre: "Fiction"}},
		Format:      models.FormatPaperback,
		PageCount:   100,
		Quantity:    1,
	})
	require.NoError(t, err)

	// Creating a book does not touch sale aggregates
	_, _, err = c.GetSaleHistory(ctx, store.SaleQuery{})
	require.NoError(t, err)
	assert.Equal(t, 1, mock.CallCount("getSaleHistory"))
}

func TestCache_Subscribe(t *testing.T) {
	c, _ := setupCache(t)
	ctx := context.Background()

	var seen []string
	c.Subscribe(func(tag string) {
		seen = append(seen, tag)
	})

	_, err := c.CreateBook(ctx, models.Book{
		Name:        "Observed",
		Author:      "Someone",
		Price:       5,
		ReleaseDate: "2024-01-01",
		Publisher:   "Pub",
		Language:    "English",
		Genres:      []models.Genre{{Genre: "Fiction"}},
		Format:      models.FormatPaperback,
		PageCount:   100,
		Quantity:    1,
	})
	require.NoError(t, err)

	books, _, err := c.GetBooks(ctx, store.BookQuery{SearchTerm: "observed", Page: 1, Limit: 10})
	require.NoError(t, err)
	require.Len(t, books, 1)

	sale := models.Sale{Book: books[0].ID, Quantity: 1, Buyer: "Bob", SaleDate: time.Now()}
	require.NoError(t, c.CreateSale(ctx, sale))

	assert.Equal(t, []string{TagBook, TagSale}, seen)
}

func TestCache_LogoutClearsEverything(t *testing.T) {
	c, mock := setupCache(t)
	ctx := context.Background()

	_, _, err := c.GetBooks(ctx, store.BookQuery{Page: 1, Limit: 10})
	require.NoError(t, err)
	_, _, err = c.GetSaleHistory(ctx, store.SaleQuery{})
	require.NoError(t, err)

	require.NoError(t, c.Logout(ctx))

	_, _, err = c.GetBooks(ctx, store.BookQuery{Page: 1, Limit: 10})
	require.NoError(t, err)
	_, _, err = c.GetSaleHistory(ctx, store.SaleQuery{})
	require.NoError(t, err)

	assert.Equal(t, 2, mock.CallCount("getBooks"))
	assert.Equal(t, 2, mock.CallCount("getSaleHistory"))
}
