// Package rest implements the store.Store interface against the remote
// bookstore REST API.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"bookstore/internal/models"
	"bookstore/internal/store"
)

// Client calls the bookstore API over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client

	mu    sync.RWMutex
	token string
}

// APIError represents a non-2xx response from the bookstore API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("bookstore api: status %d", e.Status)
}

// NewClient constructs a bookstore API client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// envelope is the response convention used by every endpoint:
// {success, message?, data}. List endpoints nest data.result + data.meta.
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type listData struct {
	Result json.RawMessage `json:"result"`
	Meta   models.Meta     `json:"meta"`
}

// Login authenticates and keeps the returned bearer credential for
// subsequent requests. The access token is decoded client-side, without
// signature verification, into the user's identity claims.
func (c *Client) Login(ctx context.Context, email, password string) (models.User, string, error) {
	payload := map[string]string{"email": email, "password": password}

	var data struct {
		AccessToken string `json:"accessToken"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/auth/login", payload, &data); err != nil {
		return models.User{}, "", err
	}

	user, err := DecodeToken(data.AccessToken)
	if err != nil {
		return models.User{}, "", fmt.Errorf("decode access token: %w", err)
	}

	c.mu.Lock()
	c.token = data.AccessToken
	c.mu.Unlock()

	return user, data.AccessToken, nil
}

// Logout drops the stored credential. Purely client-side; the API keeps
// no session state.
func (c *Client) Logout(ctx context.Context) error {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
	return nil
}

func (c *Client) CreateBook(ctx context.Context, book models.Book) (models.Book, error) {
	var created models.Book
	if err := c.doJSON(ctx, http.MethodPost, "/books/create-book", book.Payload(false), &created); err != nil {
		return models.Book{}, err
	}
	return created, nil
}

func (c *Client) GetBooks(ctx context.Context, query store.BookQuery) ([]models.Book, models.Meta, error) {
	path := "/books/"
	if params := encodeBookQuery(query); len(params) > 0 {
		path += "?" + params.Encode()
	}

	var data listData
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &data); err != nil {
		return nil, models.Meta{}, err
	}

	var books []models.Book
	if len(data.Result) > 0 {
		if err := json.Unmarshal(data.Result, &books); err != nil {
			return nil, models.Meta{}, fmt.Errorf("decode book list: %w", err)
		}
	}
	return books, data.Meta, nil
}

func (c *Client) UpdateBook(ctx context.Context, id string, book models.Book) (models.Book, error) {
	var updated models.Book
	path := "/books/" + url.PathEscape(id)
	if err := c.doJSON(ctx, http.MethodPatch, path, book.Payload(false), &updated); err != nil {
		return models.Book{}, err
	}
	return updated, nil
}

func (c *Client) DeleteBook(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/books/"+url.PathEscape(id), nil, nil)
}

func (c *Client) DeleteBooks(ctx context.Context, ids []string) error {
	payload := map[string][]string{"bookIds": ids}
	return c.doJSON(ctx, http.MethodDelete, "/books/delete-multiple-books", payload, nil)
}

func (c *Client) CreateSale(ctx context.Context, sale models.Sale) error {
	return c.doJSON(ctx, http.MethodPost, "/sales/create-sale", sale, nil)
}

func (c *Client) GetSaleHistory(ctx context.Context, query store.SaleQuery) ([]models.SaleBucket, models.Meta, error) {
	path := "/sales/?" + encodeSaleQuery(query).Encode()

	var data listData
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &data); err != nil {
		return nil, models.Meta{}, err
	}

	var buckets []models.SaleBucket
	if len(data.Result) > 0 {
		if err := json.Unmarshal(data.Result, &buckets); err != nil {
			return nil, models.Meta{}, fmt.Errorf("decode sale history: %w", err)
		}
	}
	return buckets, data.Meta, nil
}

// Close implements store.Store. The underlying http.Client needs no
// explicit teardown.
func (c *Client) Close() error {
	return nil
}

// encodeBookQuery maps a BookQuery onto GET /books/ query parameters,
// omitting unset fields.
func encodeBookQuery(q store.BookQuery) url.Values {
	params := url.Values{}
	if q.SearchTerm != "" {
		params.Set("searchTerm", q.SearchTerm)
	}
	if q.Page > 0 {
		params.Set("page", strconv.Itoa(q.Page))
	}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.MinPrice > 0 {
		params.Set("minPrice", strconv.FormatFloat(q.MinPrice, 'f', -1, 64))
	}
	if q.MaxPrice > 0 {
		params.Set("maxPrice", strconv.FormatFloat(q.MaxPrice, 'f', -1, 64))
	}
	if q.MinPageCount > 0 {
		params.Set("minPageCount", strconv.Itoa(q.MinPageCount))
	}
	if q.MaxPageCount > 0 {
		params.Set("maxPageCount", strconv.Itoa(q.MaxPageCount))
	}
	if q.StartDate != "" {
		params.Set("startDate", q.StartDate)
	}
	if q.EndDate != "" {
		params.Set("endDate", q.EndDate)
	}
	return params
}

// encodeSaleQuery maps a SaleQuery onto GET /sales/ query parameters.
// Unset fields get the server's documented defaults.
func encodeSaleQuery(q store.SaleQuery) url.Values {
	q = q.Defaults()
	params := url.Values{}
	params.Set("period", q.Period)
	params.Set("sortBy", q.SortBy)
	params.Set("sortOrder", q.SortOrder)
	params.Set("page", strconv.Itoa(q.Page))
	params.Set("limit", strconv.Itoa(q.Limit))
	return params
}

// doJSON sends a request with an optional JSON body, unwraps the response
// envelope and decodes data into out when out is non-nil.
func (c *Client) doJSON(ctx context.Context, method, path string, payload, out any) error {
	var body *bytes.Buffer
	if payload != nil {
		body = &bytes.Buffer{}
		if err := json.NewEncoder(body).Encode(payload); err != nil {
			return err
		}
	}

	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	}
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.mu.RLock()
	token := c.token
	c.mu.RUnlock()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var env envelope
	if decodeErr := json.NewDecoder(resp.Body).Decode(&env); decodeErr != nil && resp.StatusCode < 400 {
		return fmt.Errorf("decode response: %w", decodeErr)
	}

	if resp.StatusCode >= 400 || !env.Success {
		return &APIError{Status: resp.StatusCode, Message: env.Message}
	}

	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode response data: %w", err)
		}
	}
	return nil
}
