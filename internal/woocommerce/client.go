package woocommerce

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/mod/semver"

	"storefront/internal/adapter"
	"storefront/internal/model"
	"storefront/internal/transport"
)

// =============================================================================
// CART SESSION STRATEGY
// =============================================================================
//
// The shopper's cart lives in WooCommerce, keyed by the Store API Cart-Token.
// The storefront never stores cart state; it forwards the token the browser
// holds (cookie) and hands back whatever token WooCommerce returns.
//
// Mutations require a Nonce. Before each add-item we make a GET /cart request
// to obtain a fresh nonce (and, for a first-time shopper, a Cart-Token), then
// immediately use it:
//
//   get cart:  GET /cart                        (1 call)
//   add item:  GET /cart → POST /cart/add-item  (2 calls)
//
// This mirrors the page flow, which reads the cart before adding to it so the
// session exists before the mutation.
// =============================================================================

// restAPIPath is the REST v3 base used for catalog reads (consumer key auth).
const restAPIPath = "/wp-json/wc/v3"

// productsPerPage bounds catalog list requests.
const productsPerPage = 20

// variationsPerPage is the REST API maximum page size.
const variationsPerPage = 100

// userAgent identifies this client to upstream servers.
const userAgent = "Storefront/1.0"

// Config holds WooCommerce client configuration.
type Config struct {
	StoreURL    string
	APIKey      string
	APISecret   string
	APIVersion  string // Store API version, semver major ("v1")
	Fingerprint transport.Fingerprint

	// HTTPClient overrides the fingerprinting client. Tests use it with httptest servers.
	HTTPClient *http.Client
	// Breaker defaults to DefaultBreakerConfig when zero.
	Breaker BreakerConfig
}

// Client implements adapter.Store for a WooCommerce store.
// Requires the Store API (WooCommerce 6.9+) and REST API keys with read access.
type Client struct {
	httpClient   *http.Client
	storeURL     string
	apiKey       string
	apiSecret    string
	storeAPIPath string
	breaker      *breakerTransport
}

var _ adapter.Store = (*Client)(nil)

// New creates a WooCommerce client with the given configuration.
func New(cfg Config) (*Client, error) {
	if cfg.StoreURL == "" {
		return nil, fmt.Errorf("store URL is required")
	}
	if cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, fmt.Errorf("API credentials are required")
	}

	version := cfg.APIVersion
	if version == "" {
		version = "v1"
	}
	if !semver.IsValid(version) {
		return nil, fmt.Errorf("invalid Store API version %q", cfg.APIVersion)
	}

	var httpClient http.Client
	if cfg.HTTPClient != nil {
		httpClient = *cfg.HTTPClient
	} else {
		httpClient = http.Client{
			Timeout:   30 * time.Second,
			Transport: transport.New(transport.Options{Timeout: 30 * time.Second, Fingerprint: cfg.Fingerprint}),
		}
	}

	breakerCfg := cfg.Breaker
	if breakerCfg.Timeout == 0 {
		onChange := breakerCfg.OnStateChange
		breakerCfg = DefaultBreakerConfig()
		breakerCfg.OnStateChange = onChange
	}
	breaker := newBreakerTransport(httpClient.Transport, breakerCfg)
	httpClient.Transport = breaker

	return &Client{
		httpClient:   &httpClient,
		breaker:      breaker,
		storeURL:     strings.TrimSuffix(cfg.StoreURL, "/"),
		apiKey:       cfg.APIKey,
		apiSecret:    cfg.APISecret,
		storeAPIPath: "/wp-json/wc/store/" + semver.Major(version),
	}, nil
}

// === Catalog (REST v3) ===

// GetProduct fetches a single published product.
func (c *Client) GetProduct(ctx context.Context, id int) (*model.Product, error) {
	var product model.Product
	if _, err := c.getREST(ctx, "/products/"+strconv.Itoa(id), nil, "product", &product); err != nil {
		return nil, err
	}
	return &product, nil
}

// ListVariations fetches every variation of a variable product, following pagination.
func (c *Client) ListVariations(ctx context.Context, productID int) ([]model.Variation, error) {
	path := "/products/" + strconv.Itoa(productID) + "/variations"
	all := []model.Variation{}

	for page := 1; ; page++ {
		query := url.Values{
			"per_page": {strconv.Itoa(variationsPerPage)},
			"page":     {strconv.Itoa(page)},
		}

		var batch []model.Variation
		resp, err := c.getREST(ctx, path, query, "product", &batch)
		if err != nil {
			return nil, err
		}
		all = append(all, batch...)

		totalPages, _ := strconv.Atoi(resp.Header.Get("X-WP-TotalPages"))
		if page >= totalPages || len(batch) == 0 {
			return all, nil
		}
	}
}

// ListProducts returns one page of published products, newest first.
func (c *Client) ListProducts(ctx context.Context, page int) ([]model.Product, error) {
	if page < 1 {
		page = 1
	}
	query := url.Values{
		"status":   {"publish"},
		"per_page": {strconv.Itoa(productsPerPage)},
		"page":     {strconv.Itoa(page)},
	}

	products := []model.Product{}
	if _, err := c.getREST(ctx, "/products", query, "products", &products); err != nil {
		return nil, err
	}
	return products, nil
}

// getREST performs an authenticated REST v3 GET and decodes the body into v.
// The response is returned (body closed) so callers can read pagination headers.
func (c *Client) getREST(ctx context.Context, path string, query url.Values, resource string, v interface{}) (*http.Response, error) {
	fullURL := c.storeURL + restAPIPath + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating %s request: %w", resource, err)
	}
	req.SetBasicAuth(c.apiKey, c.apiSecret)
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, model.NewUpstreamError("WooCommerce", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s response: %w", resource, err)
	}

	if resp.StatusCode >= 400 {
		return nil, parseErrorResponse(resp.StatusCode, body, resource)
	}

	if err := json.Unmarshal(body, v); err != nil {
		return nil, fmt.Errorf("parsing %s response: %w", resource, err)
	}
	return resp, nil
}

// === Cart (Store API) ===

// GetCart returns the cart for cartToken. An empty token starts a new session; the
// returned token is the one the caller should keep.
func (c *Client) GetCart(ctx context.Context, cartToken string) (*model.Cart, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.storeURL+c.storeAPIPath+"/cart", nil)
	if err != nil {
		return nil, "", fmt.Errorf("creating cart request: %w", err)
	}
	c.setStoreAPIHeaders(req, cartToken, "")

	cart, _, token, err := c.doCartRequest(req, cartToken)
	if err != nil {
		return nil, "", err
	}
	return CartToModel(cart), token, nil
}

// AddItem adds a product or variation to the cart.
// A nonce preflight (GET /cart) runs first; see CART SESSION STRATEGY above.
// When the add itself fails, the preflight's cart token is still returned.
func (c *Client) AddItem(ctx context.Context, cartToken string, item model.CartItemRequest) (*model.Cart, string, error) {
	nonce, err := c.fetchNonce(ctx, cartToken)
	if err != nil {
		return nil, "", err
	}

	body, err := json.Marshal(addRequestFromModel(item))
	if err != nil {
		return nil, "", fmt.Errorf("marshaling add-item request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.storeURL+c.storeAPIPath+"/cart/add-item", bytes.NewReader(body))
	if err != nil {
		return nil, "", fmt.Errorf("creating add-item request: %w", err)
	}
	c.setStoreAPIHeaders(req, nonce.cartToken, nonce.nonce)

	cart, _, token, err := c.doCartRequest(req, nonce.cartToken)
	if err != nil {
		// The preflight may have opened the session; keep it for the next attempt.
		return nil, nonce.cartToken, err
	}
	return CartToModel(cart), token, nil
}

// nonceInfo is the result of a nonce preflight.
type nonceInfo struct {
	nonce     string
	cartToken string
}

// fetchNonce performs a preflight GET /cart request to obtain a fresh nonce.
// The Store API returns the nonce in response headers on every request.
func (c *Client) fetchNonce(ctx context.Context, cartToken string) (*nonceInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.storeURL+c.storeAPIPath+"/cart", nil)
	if err != nil {
		return nil, fmt.Errorf("creating nonce request: %w", err)
	}
	c.setStoreAPIHeaders(req, cartToken, "")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, model.NewUpstreamError("WooCommerce", err)
	}
	defer resp.Body.Close()

	// Drain body to allow connection reuse
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 400 {
		if resp.StatusCode == http.StatusTooManyRequests {
			return nil, model.NewRateLimitError("WooCommerce")
		}
		return nil, model.NewUpstreamError("WooCommerce",
			fmt.Errorf("nonce preflight failed with status %d", resp.StatusCode))
	}

	nonce := resp.Header.Get("Nonce")
	if nonce == "" {
		return nil, model.NewUpstreamError("WooCommerce", fmt.Errorf("no nonce returned from Store API"))
	}

	// Keep the caller's token when it has one; a first visit adopts the store's.
	token := cartToken
	if token == "" {
		token = resp.Header.Get("Cart-Token")
	}

	return &nonceInfo{nonce: nonce, cartToken: token}, nil
}

// doCartRequest executes a Store API cart request and decodes the cart.
// Returns the cart, the response nonce, and the effective cart token.
func (c *Client) doCartRequest(req *http.Request, cartToken string) (*WooCartResponse, string, string, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", "", model.NewUpstreamError("WooCommerce", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", "", fmt.Errorf("reading cart response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, "", "", parseErrorResponse(resp.StatusCode, body, "cart")
	}

	var cart WooCartResponse
	if err := json.Unmarshal(body, &cart); err != nil {
		return nil, "", "", fmt.Errorf("parsing cart response: %w", err)
	}

	// Prefer the token we sent; WooCommerce sometimes echoes a stale session token.
	token := cartToken
	if token == "" {
		token = resp.Header.Get("Cart-Token")
	}

	return &cart, resp.Header.Get("Nonce"), token, nil
}

// setStoreAPIHeaders sets headers for Store API requests.
// The Store API uses Cart-Token for the session and Nonce for mutations, not Basic Auth.
func (c *Client) setStoreAPIHeaders(req *http.Request, cartToken, nonce string) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-store")

	if cartToken != "" {
		req.Header.Set("Cart-Token", cartToken)
	}
	if nonce != "" {
		req.Header.Set("Nonce", nonce)
	}
}

// parseErrorResponse converts a WooCommerce error body to an APIError.
// A 400 from a cart endpoint means the store refused the item.
func parseErrorResponse(statusCode int, body []byte, resource string) error {
	var wcErr WooErrorResponse
	json.Unmarshal(body, &wcErr) // Best effort parse

	switch statusCode {
	case http.StatusNotFound:
		return model.NewNotFoundError(resource)
	case http.StatusUnauthorized, http.StatusForbidden:
		return model.NewUnauthorizedError("WooCommerce authentication failed")
	case http.StatusBadRequest, http.StatusConflict:
		if resource == "cart" {
			return model.NewCartRejectedError(wcErr.Code, wcErr.Message)
		}
		msg := wcErr.Message
		if msg == "" {
			msg = "invalid request"
		}
		return model.NewValidationError("request", msg)
	case http.StatusTooManyRequests:
		return model.NewRateLimitError("WooCommerce")
	default:
		return model.NewUpstreamError("WooCommerce",
			fmt.Errorf("status %d: %s - %s", statusCode, wcErr.Code, wcErr.Message))
	}
}
