package rest

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"bookstore/internal/fakeapi"
	"bookstore/internal/models"
	"bookstore/internal/store"
	"bookstore/internal/store/stubs"
)

// setupClient serves the API contract from the stub store and points a
// fresh client at it.
func setupClient(t *testing.T) (*Client, *stubs.MockStore) {
	t.Helper()

	mock := stubs.NewMockStore()
	mock.Seed()
	server := httptest.NewServer(fakeapi.New(mock, zap.NewNop()))
	t.Cleanup(server.Close)

	return NewClient(server.URL), mock
}

func login(t *testing.T, c *Client) {
	t.Helper()
	_, _, err := c.Login(context.Background(), "admin@example.com", "password")
	require.NoError(t, err)
}

func TestClient_Login(t *testing.T) {
	c, _ := setupClient(t)
	ctx := context.Background()

	user, token, err := c.Login(ctx, "admin@example.com", "password")
	require.NoError(t, err)
	assert.Equal(t, "admin@example.com", user.Email)
	assert.Equal(t, "admin", user.Role)
	assert.NotEmpty(t, token)
}

func TestClient_Login_Failure(t *testing.T) {
	c, _ := setupClient(t)

	_, _, err := c.Login(context.Background(), "not-an-email", "password")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 401, apiErr.Status)
	assert.NotEmpty(t, apiErr.Message)
}

func TestClient_RequiresBearer(t *testing.T) {
	c, _ := setupClient(t)

	// No login yet, so no Authorization header is sent
	_, _, err := c.GetBooks(context.Background(), store.BookQuery{Page: 1, Limit: 10})
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 401, apiErr.Status)
}

func TestClient_LogoutDropsToken(t *testing.T) {
	c, _ := setupClient(t)
	ctx := context.Background()
	login(t, c)

	_, _, err := c.GetBooks(ctx, store.BookQuery{Page: 1, Limit: 10})
	require.NoError(t, err)

	require.NoError(t, c.Logout(ctx))

	_, _, err = c.GetBooks(ctx, store.BookQuery{Page: 1, Limit: 10})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 401, apiErr.Status)
}

func TestClient_GetBooks(t *testing.T) {
	c, _ := setupClient(t)
	ctx := context.Background()
	login(t, c)

	books, meta, err := c.GetBooks(ctx, store.BookQuery{SearchTerm: "gatsby", Page: 1, Limit: 10})
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, "The Great Gatsby", books[0].Name)
	assert.Equal(t, 1, meta.Total)
	assert.Equal(t, 1, meta.TotalPage)
}

func TestClient_CreateBook_StripsID(t *testing.T) {
	c, _ := setupClient(t)
	ctx := context.Background()
	login(t, c)

	// A duplicated row still carries the source id; the client must strip
	// it or the API rejects the create.
	src := models.Book{
		ID:          "aaaaaaaaaaaaaaaaaaaaaaaa",
		Name:        "Dune Messiah",
		Author:      "Frank Herbert",
		Price:       11.00,
		ReleaseDate: "1969-10-15",
		Publisher:   "Putnam",
		Language:    "English",
		Series:      "Dune",
		Genres:      []models.Genre{{Genre: "Science Fiction"}},
		Format:      models.FormatHardcover,
		PageCount:   256,
		Quantity:    4,
	}

	created, err := c.CreateBook(ctx, src)
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.NotEqual(t, src.ID, created.ID)
}

func TestClient_CreateBook_DropsDeletedGenres(t *testing.T) {
	c, _ := setupClient(t)
	ctx := context.Background()
	login(t, c)

	book := models.Book{
		Name:        "Annotated Hobbit",
		Author:      "J.R.R. Tolkien",
		Price:       20.00,
		ReleaseDate: "1988-09-01",
		Publisher:   "Houghton Mifflin",
		Language:    "English",
		Genres: []models.Genre{
			{Genre: "Fantasy"},
			{Genre: "Horror", IsDeleted: true},
		},
		Format:    models.FormatHardcover,
		PageCount: 340,
		Quantity:  2,
	}

	created, err := c.CreateBook(ctx, book)
	require.NoError(t, err)
	require.Len(t, created.Genres, 1)
	assert.Equal(t, "Fantasy", created.Genres[0].Genre)
}

func TestClient_UpdateAndDelete(t *testing.T) {
	c, _ := setupClient(t)
	ctx := context.Background()
	login(t, c)

	books, _, err := c.GetBooks(ctx, store.BookQuery{SearchTerm: "dune", Page: 1, Limit: 10})
	require.NoError(t, err)
	require.Len(t, books, 1)

	books[0].Price = 14.99
	updated, err := c.UpdateBook(ctx, books[0].ID, books[0])
	require.NoError(t, err)
	assert.Equal(t, 14.99, updated.Price)
	assert.Equal(t, books[0].ID, updated.ID)

	require.NoError(t, c.DeleteBook(ctx, books[0].ID))

	_, meta, err := c.GetBooks(ctx, store.BookQuery{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 2, meta.Total)
}

func TestClient_DeleteBooks(t *testing.T) {
	c, _ := setupClient(t)
	ctx := context.Background()
	login(t, c)

	books, _, err := c.GetBooks(ctx, store.BookQuery{Page: 1, Limit: 10})
	require.NoError(t, err)
	require.Len(t, books, 3)

	ids := []string{books[0].ID, books[1].ID}
	require.NoError(t, c.DeleteBooks(ctx, ids))

	_, meta, err := c.GetBooks(ctx, store.BookQuery{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, meta.Total)

	// A batch with an unknown id is rejected as a whole
	err = c.DeleteBooks(ctx, []string{"missing"})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
}

func TestClient_SaleRoundTrip(t *testing.T) {
	c, _ := setupClient(t)
	ctx := context.Background()
	login(t, c)

	books, _, err := c.GetBooks(ctx, store.BookQuery{SearchTerm: "hobbit", Page: 1, Limit: 10})
	require.NoError(t, err)
	require.Len(t, books, 1)

	sale := models.Sale{
		Book:     books[0].ID,
		Quantity: 2,
		Buyer:    "Alice",
		SaleDate: time.Date(2024, 5, 20, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, c.CreateSale(ctx, sale))

	buckets, meta, err := c.GetSaleHistory(ctx, store.SaleQuery{Period: "month"})
	require.NoError(t, err)
	require.Len(t, buckets, 1)
	assert.Equal(t, "2024-05", buckets[0].ID)
	assert.Equal(t, 2, buckets[0].TotalBookSold)
	assert.Equal(t, 1, meta.Total)
}

func TestEncodeBookQuery(t *testing.T) {
	// Zero-valued fields must be omitted entirely
	params := encodeBookQuery(store.BookQuery{SearchTerm: "gatsby", Page: 1, Limit: 10})
	assert.Equal(t, "limit=10&page=1&searchTerm=gatsby", params.Encode())

	params = encodeBookQuery(store.BookQuery{})
	assert.Empty(t, params.Encode())

	params = encodeBookQuery(store.BookQuery{
		Page:         2,
		Limit:        5,
		MinPrice:     1.5,
		MaxPrice:     20,
		MinPageCount: 100,
		MaxPageCount: 500,
		StartDate:    "2020-01-01",
		EndDate:      "2024-12-31",
	})
	assert.Equal(t, "1.5", params.Get("minPrice"))
	assert.Equal(t, "20", params.Get("maxPrice"))
	assert.Equal(t, "100", params.Get("minPageCount"))
	assert.Equal(t, "500", params.Get("maxPageCount"))
	assert.Equal(t, "2020-01-01", params.Get("startDate"))
	assert.Equal(t, "2024-12-31", params.Get("endDate"))
	assert.Empty(t, params.Get("searchTerm"))
}

func TestEncodeSaleQuery_Defaults(t *testing.T) {
	params := encodeSaleQuery(store.SaleQuery{})
	assert.Equal(t, "month", params.Get("period"))
	assert.Equal(t, "_id", params.Get("sortBy"))
	assert.Equal(t, "desc", params.Get("sortOrder"))
	assert.Equal(t, "1", params.Get("page"))
	assert.Equal(t, "10", params.Get("limit"))

	params = encodeSaleQuery(store.SaleQuery{Period: "week", SortBy: "totalPrice", SortOrder: "asc", Page: 3, Limit: 25})
	assert.Equal(t, "week", params.Get("period"))
	assert.Equal(t, "totalPrice", params.Get("sortBy"))
	assert.Equal(t, "asc", params.Get("sortOrder"))
	assert.Equal(t, "3", params.Get("page"))
	assert.Equal(t, "25", params.Get("limit"))
}

func TestDecodeToken(t *testing.T) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"email": "admin@example.com",
		"role":  "admin",
	}).SignedString([]byte("any-secret"))
	require.NoError(t, err)

	user, err := DecodeToken(token)
	require.NoError(t, err)
	assert.Equal(t, "admin@example.com", user.Email)
	assert.Equal(t, "admin", user.Role)
}

func TestDecodeToken_Invalid(t *testing.T) {
	_, err := DecodeToken("not-a-jwt")
	assert.Error(t, err)

	// Well-formed token but no email claim
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "123",
	}).SignedString([]byte("any-secret"))
	require.NoError(t, err)

	_, err = DecodeToken(token)
	assert.Error(t, err)
}
