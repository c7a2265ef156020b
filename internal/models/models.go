package models

import "time"

// BookFormat is the physical/digital format of a book.
type BookFormat string

const (
	FormatHardcover BookFormat = "hardcover"
	FormatPaperback BookFormat = "paperback"
	FormatEbook     BookFormat = "e-book"
	FormatAudiobook BookFormat = "audiobook"
)

// Formats lists every valid book format, in menu order.
var Formats = []BookFormat{FormatHardcover, FormatPaperback, FormatEbook, FormatAudiobook}

// Genre is a single genre entry owned by a book. IsDeleted marks removal
// intent without re-indexing the list while a form is being edited; flagged
// entries are filtered out before a payload is submitted.
type Genre struct {
	Genre     string `json:"genre"`
	IsDeleted bool   `json:"isDeleted"`
}

// Book represents a book record in the store inventory.
// ID is assigned by the server and omitted from create payloads.
type Book struct {
	ID          string     `json:"_id,omitempty"`
	Name        string     `json:"name"`
	Author      string     `json:"author"`
	Price       float64    `json:"price"`
	ReleaseDate string     `json:"releaseDate"`
	Publisher   string     `json:"publisher"`
	ISBN        string     `json:"isbn"`
	Language    string     `json:"language"`
	Series      string     `json:"series,omitempty"`
	Genres      []Genre    `json:"genres"`
	Format      BookFormat `json:"format"`
	PageCount   int        `json:"pageCount"`
	Quantity    int        `json:"quantity"`
}

// ActiveGenres returns the genres that are not flagged as deleted.
func (b Book) ActiveGenres() []Genre {
	var genres []Genre
	for _, g := range b.Genres {
		if !g.IsDeleted {
			genres = append(genres, g)
		}
	}
	return genres
}

// Payload returns a copy of the book ready for submission: soft-deleted
// genre entries are filtered out, and the server-assigned id is stripped
// when withID is false (create and duplicate requests).
func (b Book) Payload(withID bool) Book {
	out := b
	out.Genres = b.ActiveGenres()
	if !withID {
		out.ID = ""
	}
	return out
}

// Sale records one sale of a book. Sales are created only; never edited
// or deleted from the client.
type Sale struct {
	Book     string    `json:"book"`
	Quantity int       `json:"quantity"`
	Buyer    string    `json:"buyer"`
	SaleDate time.Time `json:"saleDate"`
}

// SaleBucket is one server-computed row of the sales history report:
// totals aggregated over a time bucket identified by a period key.
type SaleBucket struct {
	ID            string  `json:"_id"`
	TotalPrice    float64 `json:"totalPrice"`
	TotalBookSold int     `json:"totalBookSold"`
}

// Meta is the paging metadata returned alongside paginated list results.
type Meta struct {
	Total     int `json:"total"`
	Page      int `json:"page"`
	Limit     int `json:"limit"`
	TotalPage int `json:"totalPage"`
}

// User holds the identity claims decoded from a login access token.
type User struct {
	Email string
	Role  string
}
