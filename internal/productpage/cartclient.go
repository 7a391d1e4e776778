package productpage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"storefront/internal/adapter"
	"storefront/internal/model"
)

// Storefront cart routes the HTTP client talks to.
const (
	CartAPIPath    = "/api/store/cart"
	AddItemAPIPath = "/api/store/cart/addItem"
)

// HTTPCartClient talks to a storefront's /api/store/cart routes. The session lives in a
// cookie, so the client keeps a cookie jar and a fetch followed by an add share one cart.
type HTTPCartClient struct {
	baseURL string
	client  *http.Client
}

var _ CartClient = (*HTTPCartClient)(nil)

// NewHTTPCartClient creates a client for the storefront at baseURL.
// A nil httpClient gets a 30s timeout and a fresh cookie jar.
func NewHTTPCartClient(baseURL string, httpClient *http.Client) (*HTTPCartClient, error) {
	if httpClient == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("creating cookie jar: %w", err)
		}
		httpClient = &http.Client{Timeout: 30 * time.Second, Jar: jar}
	}
	return &HTTPCartClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  httpClient,
	}, nil
}

// FetchCart reads the cart so the session cookie exists before an add. Only a failed round
// trip is an error; the status and body are ignored.
func (c *HTTPCartClient) FetchCart(ctx context.Context) error {
	req, err := c.cartRequest(ctx)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	// Drain body to allow connection reuse
	io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))
	return nil
}

// Cart reads the cart. Non-2xx responses are errors.
func (c *HTTPCartClient) Cart(ctx context.Context) (*model.Cart, error) {
	req, err := c.cartRequest(ctx)
	if err != nil {
		return nil, err
	}

	var cart model.Cart
	if err := c.do(req, &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

func (c *HTTPCartClient) cartRequest(ctx context.Context) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+CartAPIPath, nil)
	if err != nil {
		return nil, fmt.Errorf("creating cart request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-store")
	return req, nil
}

// AddItem posts item to the add-item route.
func (c *HTTPCartClient) AddItem(ctx context.Context, item model.CartItemRequest) error {
	body, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("marshaling add-item request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+AddItemAPIPath, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating add-item request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	return c.do(req, nil)
}

func (c *HTTPCartClient) do(req *http.Request, v interface{}) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeErrorBody(resp.StatusCode, body)
	}

	if v == nil {
		return nil
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}
	return nil
}

// decodeErrorBody turns a {"error":{"code","message"}} body into an APIError carrying the
// response status. Bodies in any other shape keep the status with a generic message.
func decodeErrorBody(status int, body []byte) error {
	var envelope struct {
		Error model.APIError `json:"error"`
	}
	apiErr := &model.APIError{
		Code:       "HTTP_ERROR",
		Message:    fmt.Sprintf("request failed with status %d", status),
		StatusCode: status,
	}
	if json.Unmarshal(body, &envelope) == nil && envelope.Error.Code != "" {
		apiErr.Code = envelope.Error.Code
		apiErr.Message = envelope.Error.Message
	}
	return apiErr
}

// StoreCartClient adds to the cart directly through the commerce backend. The HTML form
// handler uses it so a page submit costs no extra loopback hop.
type StoreCartClient struct {
	store adapter.Store
	token string
	cart  *model.Cart
}

var _ CartClient = (*StoreCartClient)(nil)

// NewStoreCartClient creates a cart client for the session identified by cartToken
// ("" starts a new one).
func NewStoreCartClient(store adapter.Store, cartToken string) *StoreCartClient {
	return &StoreCartClient{store: store, token: cartToken}
}

// FetchCart reads the cart, adopting the token the store returns.
func (c *StoreCartClient) FetchCart(ctx context.Context) error {
	cart, token, err := c.store.GetCart(ctx, c.token)
	if err != nil {
		return err
	}
	c.token, c.cart = token, cart
	return nil
}

// AddItem adds item to the cart.
func (c *StoreCartClient) AddItem(ctx context.Context, item model.CartItemRequest) error {
	cart, token, err := c.store.AddItem(ctx, c.token, item)
	if token != "" {
		c.token = token
	}
	if err != nil {
		return err
	}
	c.cart = cart
	return nil
}

// Token returns the current cart token.
func (c *StoreCartClient) Token() string { return c.token }

// Cart returns the cart from the last successful call, or nil.
func (c *StoreCartClient) Cart() *model.Cart { return c.cart }
