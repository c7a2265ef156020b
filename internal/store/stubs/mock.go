// Package stubs provides an in-memory implementation of the store.Store
// interface. It reproduces the API's observable behavior (filtering,
// pagination, sale aggregation) for tests and for the dev fake server.
package stubs

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"bookstore/internal/models"
	"bookstore/internal/store"
	"bookstore/internal/validator"
)

const tokenSecret = "stub-secret"

// saleRecord keeps the unit price at sale time so later price edits do not
// rewrite history.
type saleRecord struct {
	models.Sale
	UnitPrice float64
}

// MockStore is an in-memory implementation of store.Store.
type MockStore struct {
	mu    sync.RWMutex
	seq   int
	books map[string]models.Book
	sales []saleRecord

	// calls counts invocations per operation, for tests that assert no
	// network call was made. Guarded by its own mutex so read operations
	// can keep sharing the RLock.
	callsMu sync.Mutex
	calls   map[string]int
}

// NewMockStore creates an empty mock store.
func NewMockStore() *MockStore {
	return &MockStore{
		books: make(map[string]models.Book),
		calls: make(map[string]int),
	}
}

// Seed populates the store with a handful of books for local development.
func (m *MockStore) Seed() {
	books := []models.Book{
		{Name: "The Great Gatsby", Author: "F. Scott Fitzgerald", Price: 9.99, ReleaseDate: "1925-04-10", Publisher: "Scribner", ISBN: "978-0743273565", Language: "English", Genres: []models.Genre{{Genre: "Fiction"}}, Format: models.FormatPaperback, PageCount: 180, Quantity: 5},
		{Name: "Dune", Author: "Frank Herbert", Price: 12.50, ReleaseDate: "1965-08-01", Publisher: "Chilton Books", ISBN: "978-0441172719", Language: "English", Series: "Dune", Genres: []models.Genre{{Genre: "Science Fiction"}}, Format: models.FormatHardcover, PageCount: 412, Quantity: 8},
		{Name: "The Hobbit", Author: "J.R.R. Tolkien", Price: 8.25, ReleaseDate: "1937-09-21", Publisher: "Allen & Unwin", ISBN: "978-0547928227", Language: "English", Series: "Middle-earth", Genres: []models.Genre{{Genre: "Fantasy"}}, Format: models.FormatPaperback, PageCount: 310, Quantity: 12},
	}
	for _, b := range books {
		_, _ = m.CreateBook(context.Background(), b)
	}
}

func (m *MockStore) count(op string) {
	m.callsMu.Lock()
	m.calls[op]++
	m.callsMu.Unlock()
}

// CallCount reports how many times the named operation has been invoked.
func (m *MockStore) CallCount(op string) int {
	m.callsMu.Lock()
	defer m.callsMu.Unlock()
	return m.calls[op]
}

// Login accepts any well-formed credentials and returns a token carrying
// the email and an admin role claim.
func (m *MockStore) Login(ctx context.Context, email, password string) (models.User, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.count("login")

	v := validator.New()
	models.ValidateLogin(v, email, password)
	if !v.Valid() {
		return models.User{}, "", fmt.Errorf("invalid credentials")
	}

	user := models.User{Email: email, Role: "admin"}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"email": user.Email,
		"role":  user.Role,
	}).SignedString([]byte(tokenSecret))
	if err != nil {
		return models.User{}, "", err
	}
	return user, token, nil
}

func (m *MockStore) Logout(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.count("logout")
	return nil
}

// CreateBook validates the payload the way the server does, assigns an id
// and stores the book.
func (m *MockStore) CreateBook(ctx context.Context, book models.Book) (models.Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.count("createBook")

	book = book.Payload(false)
	v := validator.New()
	models.ValidateBook(v, book)
	if !v.Valid() {
		return models.Book{}, fmt.Errorf("invalid book payload: %v", v.Errors)
	}

	m.seq++
	book.ID = fmt.Sprintf("%024x", m.seq)
	m.books[book.ID] = book
	return book, nil
}

func (m *MockStore) GetBooks(ctx context.Context, query store.BookQuery) ([]models.Book, models.Meta, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	m.count("getBooks")

	var matched []models.Book
	for _, b := range m.books {
		if matchesQuery(b, query) {
			matched = append(matched, b)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].Name < matched[j].Name
	})

	page, limit := query.Page, query.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	paged, meta := paginate(len(matched), page, limit)
	return matched[paged.lo:paged.hi], meta, nil
}

func (m *MockStore) UpdateBook(ctx context.Context, id string, book models.Book) (models.Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.count("updateBook")

	if _, ok := m.books[id]; !ok {
		return models.Book{}, fmt.Errorf("book %s not found", id)
	}

	book = book.Payload(false)
	v := validator.New()
	models.ValidateBook(v, book)
	if !v.Valid() {
		return models.Book{}, fmt.Errorf("invalid book payload: %v", v.Errors)
	}

	book.ID = id
	m.books[id] = book
	return book, nil
}

func (m *MockStore) DeleteBook(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.count("deleteBook")

	if _, ok := m.books[id]; !ok {
		return fmt.Errorf("book %s not found", id)
	}
	delete(m.books, id)
	return nil
}

func (m *MockStore) DeleteBooks(ctx context.Context, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.count("deleteBooks")

	for _, id := range ids {
		if _, ok := m.books[id]; !ok {
			return fmt.Errorf("book %s not found", id)
		}
	}
	for _, id := range ids {
		delete(m.books, id)
	}
	return nil
}

// CreateSale checks the sale against the book's on-hand quantity and
// decrements stock, the same way the API does.
func (m *MockStore) CreateSale(ctx context.Context, sale models.Sale) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.count("createSale")

	book, ok := m.books[sale.Book]
	if !ok {
		return fmt.Errorf("book %s not found", sale.Book)
	}

	v := validator.New()
	models.ValidateSale(v, sale, book.Quantity)
	if !v.Valid() {
		return fmt.Errorf("invalid sale payload: %v", v.Errors)
	}

	book.Quantity -= sale.Quantity
	m.books[book.ID] = book
	m.sales = append(m.sales, saleRecord{Sale: sale, UnitPrice: book.Price})
	return nil
}

func (m *MockStore) GetSaleHistory(ctx context.Context, query store.SaleQuery) ([]models.SaleBucket, models.Meta, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	m.count("getSaleHistory")

	query = query.Defaults()

	totals := make(map[string]*models.SaleBucket)
	for _, s := range m.sales {
		key := BucketKey(s.SaleDate, query.Period)
		bucket, ok := totals[key]
		if !ok {
			bucket = &models.SaleBucket{ID: key}
			totals[key] = bucket
		}
		bucket.TotalPrice += s.UnitPrice * float64(s.Quantity)
		bucket.TotalBookSold += s.Quantity
	}

	buckets := make([]models.SaleBucket, 0, len(totals))
	for _, b := range totals {
		buckets = append(buckets, *b)
	}
	sortBuckets(buckets, query.SortBy, query.SortOrder)

	paged, meta := paginate(len(buckets), query.Page, query.Limit)
	return buckets[paged.lo:paged.hi], meta, nil
}

func (m *MockStore) Close() error {
	return nil
}

// matchesQuery applies the listing filters to one book.
func matchesQuery(b models.Book, q store.BookQuery) bool {
	if q.SearchTerm != "" {
		term := strings.ToLower(q.SearchTerm)
		if !strings.Contains(strings.ToLower(b.Name), term) &&
			!strings.Contains(strings.ToLower(b.Author), term) &&
			!strings.Contains(strings.ToLower(b.Publisher), term) {
			return false
		}
	}
	if q.MinPrice > 0 && b.Price < q.MinPrice {
		return false
	}
	if q.MaxPrice > 0 && b.Price > q.MaxPrice {
		return false
	}
	if q.MinPageCount > 0 && b.PageCount < q.MinPageCount {
		return false
	}
	if q.MaxPageCount > 0 && b.PageCount > q.MaxPageCount {
		return false
	}
	if q.StartDate != "" && b.ReleaseDate < q.StartDate {
		return false
	}
	if q.EndDate != "" && b.ReleaseDate > q.EndDate {
		return false
	}
	return true
}

func sortBuckets(buckets []models.SaleBucket, sortBy, sortOrder string) {
	less := func(i, j int) bool {
		switch sortBy {
		case "totalPrice":
			if buckets[i].TotalPrice != buckets[j].TotalPrice {
				return buckets[i].TotalPrice < buckets[j].TotalPrice
			}
		case "totalBookSold":
			if buckets[i].TotalBookSold != buckets[j].TotalBookSold {
				return buckets[i].TotalBookSold < buckets[j].TotalBookSold
			}
		}
		return buckets[i].ID < buckets[j].ID
	}
	if sortOrder == "desc" {
		sort.Slice(buckets, func(i, j int) bool { return less(j, i) })
	} else {
		sort.Slice(buckets, less)
	}
}

type pageSlice struct {
	lo, hi int
}

// paginate computes the [lo, hi) slice bounds for one page plus the meta
// block the API reports. TotalPage is at least 1 even for empty results.
func paginate(total, page, limit int) (pageSlice, models.Meta) {
	totalPage := (total + limit - 1) / limit
	if totalPage < 1 {
		totalPage = 1
	}
	lo := (page - 1) * limit
	if lo > total {
		lo = total
	}
	hi := lo + limit
	if hi > total {
		hi = total
	}
	meta := models.Meta{Total: total, Page: page, Limit: limit, TotalPage: totalPage}
	return pageSlice{lo: lo, hi: hi}, meta
}

// BucketKey maps a sale timestamp onto its period bucket id. Keys are
// zero-padded so lexicographic order matches chronological order.
func BucketKey(t time.Time, period string) string {
	switch period {
	case "dayOfMonth":
		return fmt.Sprintf("%02d", t.Day())
	case "week":
		year, week := t.ISOWeek()
		return fmt.Sprintf("%d-W%02d", year, week)
	case "year":
		return t.Format("2006")
	default: // month
		return t.Format("2006-01")
	}
}
