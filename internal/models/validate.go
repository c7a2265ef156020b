package models

import (
	"time"

	"bookstore/internal/validator"
)

// ValidateBook checks a book payload against the same rules the server
// enforces. It expects the payload as it would be submitted, i.e. genre
// filtering is applied by the caller via Payload or ActiveGenres.
func ValidateBook(v *validator.Validator, b Book) {
	v.Check(b.Name != "", "name", "Book name is required")
	v.Check(b.Author != "", "author", "Author name is required")
	v.Check(b.Price >= 0, "price", "Price must be >= 0")
	v.Check(b.ReleaseDate != "", "releaseDate", "Release date is required")
	if b.ReleaseDate != "" {
		_, err := time.Parse("2006-01-02", b.ReleaseDate)
		v.Check(err == nil, "releaseDate", "Release date must be YYYY-MM-DD")
	}
	v.Check(b.Publisher != "", "publisher", "Publisher is required")
	v.Check(b.Language != "", "language", "Language is required")
	v.Check(len(b.ActiveGenres()) > 0, "genres", "At least one genre is required")

	formats := make([]string, len(Formats))
	for i, f := range Formats {
		formats[i] = string(f)
	}
	v.Check(validator.In(string(b.Format), formats...), "format", "Invalid format")

	v.Check(b.PageCount >= 1, "pageCount", "Minimum 1 page required")
	v.Check(b.Quantity >= 1, "quantity", "Quantity must be at least 1")
}

// ValidateSale checks a sale payload. max is the book's current on-hand
// quantity at sale time.
func ValidateSale(v *validator.Validator, s Sale, max int) {
	v.Check(s.Book != "", "book", "Book ID is required")
	v.Check(s.Quantity >= 1, "quantity", "Quantity must be at least 1")
	v.Check(s.Quantity <= max, "quantity", "Quantity cannot exceed the on-hand stock")
	v.Check(s.Buyer != "", "buyer", "Buyer name is required")
	v.Check(!s.SaleDate.IsZero(), "saleDate", "Sale date is required")
}

// ValidateLogin checks login credentials before they are sent.
func ValidateLogin(v *validator.Validator, email, password string) {
	v.Check(email != "", "email", "Email is required")
	if email != "" {
		v.Check(validator.Matches(email, validator.EmailRX), "email", "Invalid email address")
	}
	v.Check(password != "", "password", "Password is required")
}
