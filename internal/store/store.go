// Package store defines the interface between the bot and the bookstore
// REST API. The API is the single source of truth: the client performs no
// persistence of its own beyond a per-session response cache.
package store

import (
	"context"

	"bookstore/internal/models"
)

// BookQuery is the set of listing filters understood by GET /books/.
// Zero values mean "not set" and are omitted from the request.
type BookQuery struct {
	SearchTerm   string
	Page         int
	Limit        int
	MinPrice     float64
	MaxPrice     float64
	MinPageCount int
	MaxPageCount int
	StartDate    string
	EndDate      string
}

// SaleQuery configures the sales history report: time bucket granularity,
// sort field/direction and paging.
type SaleQuery struct {
	Period    string // dayOfMonth, week, month, year
	SortBy    string // _id, totalPrice, totalBookSold
	SortOrder string // asc, desc
	Page      int
	Limit     int
}

// Defaults returns the query with unset fields replaced by the server's
// documented defaults.
func (q SaleQuery) Defaults() SaleQuery {
	if q.Period == "" {
		q.Period = "month"
	}
	if q.SortBy == "" {
		q.SortBy = "_id"
	}
	if q.SortOrder == "" {
		q.SortOrder = "desc"
	}
	if q.Page == 0 {
		q.Page = 1
	}
	if q.Limit == 0 {
		q.Limit = 10
	}
	return q
}

// Store defines the operations the bookstore API exposes to the client.
type Store interface {
	// Auth operations
	Login(ctx context.Context, email, password string) (models.User, string, error)
	Logout(ctx context.Context) error

	// Book operations
	CreateBook(ctx context.Context, book models.Book) (models.Book, error)
	GetBooks(ctx context.Context, query BookQuery) ([]models.Book, models.Meta, error)
	UpdateBook(ctx context.Context, id string, book models.Book) (models.Book, error)
	DeleteBook(ctx context.Context, id string) error
	DeleteBooks(ctx context.Context, ids []string) error

	// Sale operations
	CreateSale(ctx context.Context, sale models.Sale) error
	GetSaleHistory(ctx context.Context, query SaleQuery) ([]models.SaleBucket, models.Meta, error)

	// Lifecycle
	Close() error
}
