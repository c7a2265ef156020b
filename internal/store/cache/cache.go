// Package cache wraps a store.Store with tag-based response caching:
// query results are cached under resource tags and mutations publish
// invalidation events that evict every entry sharing a tag. This gives
// the views eventual consistency within one session without ad hoc
// cross-component refetch wiring.
package cache

import (
	"context"
	"fmt"
	"sync"

	"bookstore/internal/models"
	"bookstore/internal/store"
)

// Resource tags. Book listings provide both tags because recording a sale
// changes the on-hand quantity shown in the listing.
const (
	TagBook = "book"
	TagSale = "sale"
)

type booksResult struct {
	books []models.Book
	meta  models.Meta
}

type salesResult struct {
	buckets []models.SaleBucket
	meta    models.Meta
}

type entry struct {
	tags  []string
	value any
}

// Store decorates an inner store.Store with a tag-invalidated cache.
type Store struct {
	inner store.Store

	mu      sync.Mutex
	entries map[string]entry
	subs    []func(tag string)
}

// New wraps inner with an empty cache.
func New(inner store.Store) *Store {
	return &Store{
		inner:   inner,
		entries: make(map[string]entry),
	}
}

// Subscribe registers fn to be called whenever a tag is invalidated.
// Subscribers must not call back into the Store from fn.
func (s *Store) Subscribe(fn func(tag string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, fn)
}

// invalidate evicts every cached entry carrying one of the tags and
// notifies subscribers.
func (s *Store) invalidate(tags ...string) {
	s.mu.Lock()
	for key, e := range s.entries {
		if sharesTag(e.tags, tags) {
			delete(s.entries, key)
		}
	}
	subs := make([]func(string), len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()

	for _, tag := range tags {
		for _, fn := range subs {
			fn(tag)
		}
	}
}

func sharesTag(have, want []string) bool {
	for _, h := range have {
		for _, w := range want {
			if h == w {
				return true
			}
		}
	}
	return false
}

func (s *Store) lookup(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return nil, false
	}
	return e.value, true
}

func (s *Store) put(key string, tags []string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = entry{tags: tags, value: value}
}

func (s *Store) Login(ctx context.Context, email, password string) (models.User, string, error) {
	return s.inner.Login(ctx, email, password)
}

// Logout clears the whole cache along with the credential: a later login
// may see a different inventory.
func (s *Store) Logout(ctx context.Context) error {
	s.mu.Lock()
	s.entries = make(map[string]entry)
	s.mu.Unlock()
	return s.inner.Logout(ctx)
}

func (s *Store) CreateBook(ctx context.Context, book models.Book) (models.Book, error) {
	created, err := s.inner.CreateBook(ctx, book)
	if err != nil {
		return models.Book{}, err
	}
	s.invalidate(TagBook)
	return created, nil
}

func (s *Store) GetBooks(ctx context.Context, query store.BookQuery) ([]models.Book, models.Meta, error) {
	key := fmt.Sprintf("books:%+v", query)
	if v, ok := s.lookup(key); ok {
		r := v.(booksResult)
		return r.books, r.meta, nil
	}

	books, meta, err := s.inner.GetBooks(ctx, query)
	if err != nil {
		return nil, models.Meta{}, err
	}
	s.put(key, []string{TagBook, TagSale}, booksResult{books: books, meta: meta})
	return books, meta, nil
}

func (s *Store) UpdateBook(ctx context.Context, id string, book models.Book) (models.Book, error) {
	updated, err := s.inner.UpdateBook(ctx, id, book)
	if err != nil {
		return models.Book{}, err
	}
	s.invalidate(TagBook)
	return updated, nil
}

func (s *Store) DeleteBook(ctx context.Context, id string) error {
	if err := s.inner.DeleteBook(ctx, id); err != nil {
		return err
	}
	s.invalidate(TagBook)
	return nil
}

func (s *Store) DeleteBooks(ctx context.Context, ids []string) error {
	if err := s.inner.DeleteBooks(ctx, ids); err != nil {
		return err
	}
	s.invalidate(TagBook)
	return nil
}

func (s *Store) CreateSale(ctx context.Context, sale models.Sale) error {
	if err := s.inner.CreateSale(ctx, sale); err != nil {
		return err
	}
	s.invalidate(TagSale)
	return nil
}

func (s *Store) GetSaleHistory(ctx context.Context, query store.SaleQuery) ([]models.SaleBucket, models.Meta, error) {
	key := fmt.Sprintf("sales:%+v", query.Defaults())
	if v, ok := s.lookup(key); ok {
		r := v.(salesResult)
		return r.buckets, r.meta, nil
	}

	buckets, meta, err := s.inner.GetSaleHistory(ctx, query)
	if err != nil {
		return nil, models.Meta{}, err
	}
	s.put(key, []string{TagSale}, salesResult{buckets: buckets, meta: meta})
	return buckets, meta, nil
}

func (s *Store) Close() error {
	return s.inner.Close()
}
