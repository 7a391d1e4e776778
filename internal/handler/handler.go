// Package handler provides the storefront's HTTP surface: server-rendered product pages,
// the /api/store/cart relay, and the MCP endpoint.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"storefront/internal/adapter"
	"storefront/internal/catalog"
	"storefront/internal/delivery"
	"storefront/internal/middleware"
	"storefront/internal/model"
	"storefront/internal/productpage"
)

// CartCookie holds the Store API cart token for the browser session.
const CartCookie = "cart_token"

// cartCookieMaxAge matches WooCommerce's default cart session lifetime.
const cartCookieMaxAge = 48 * time.Hour

// MaxRequestBodySize limits JSON request bodies to 1MB to prevent DoS.
const MaxRequestBodySize = 1 << 20 // 1MB

// AvailabilitySource is the delivery quota the pages and tools read.
type AvailabilitySource interface {
	productpage.Availability
	Availability(ctx context.Context) (*delivery.Availability, error)
}

// Options configures a Handler. Store is required.
type Options struct {
	Store         adapter.Store
	Availability  AvailabilitySource  // optional; limits read as 0 without it
	Metrics       *middleware.Metrics // optional
	Gatherer      prometheus.Gatherer // serves /metrics; defaults to prometheus.DefaultGatherer
	AttributeMode catalog.AttributeMode
	Logger        *slog.Logger
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	store         adapter.Store
	availability  AvailabilitySource
	metrics       *middleware.Metrics
	gatherer      prometheus.Gatherer
	attributeMode catalog.AttributeMode
	logger        *slog.Logger
	validate      *validator.Validate
	templates     *template.Template
}

// New creates a Handler.
func New(opts Options) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	gatherer := opts.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return &Handler{
		store:         opts.Store,
		availability:  opts.Availability,
		metrics:       opts.Metrics,
		gatherer:      gatherer,
		attributeMode: opts.AttributeMode,
		logger:        logger,
		validate:      newValidator(),
		templates:     parseTemplates(),
	}
}

// RegisterRoutes registers all HTTP routes with the given ServeMux.
// Uses Go 1.22+ method routing patterns.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Cart relay used by the page's cart client
	mux.HandleFunc("GET /api/store/cart", h.handleGetCart)
	mux.HandleFunc("POST /api/store/cart/addItem", h.handleAddItem)

	// Server-rendered pages
	mux.HandleFunc("GET /{$}", h.handleHome)
	mux.HandleFunc("GET /products", h.handleListProducts)
	mux.HandleFunc("GET /products/{id}", h.handleProductPage)
	mux.HandleFunc("POST /products/{id}", h.handleProductSubmit)
	mux.HandleFunc("GET /cart", h.handleCartPage)

	// MCP transport - JSON-RPC endpoint using official MCP SDK
	mux.Handle("/mcp", h.NewMCPHandler())

	// Operations
	mux.HandleFunc("GET /health", h.handleHealth)
	mux.HandleFunc("GET /healthz", h.handleHealth)
	mux.Handle("GET /metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))
}

// handleHealth returns a simple health check response.
// GET /health, GET /healthz
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}

type healthResponse struct {
	Status string `json:"status"`
}

// handleHome sends the shopper to the catalog.
func (h *Handler) handleHome(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, productpage.ProductsPath, http.StatusFound)
}

// === Response Helpers ===

// writeJSON sends a JSON response with the given status code.
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// writeError sends an error response, extracting status/code from APIError if present.
// Uses errors.As() to unwrap error chains (e.g., fmt.Errorf wrapping).
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	apiErr := h.apiError(r.Context(), err)
	h.writeJSON(w, apiErr.StatusCode, errorResponse{
		Error: errorBody{
			Code:    apiErr.Code,
			Message: apiErr.Message,
		},
	})
}

// apiError unwraps err to an APIError, logging anything unexpected.
func (h *Handler) apiError(ctx context.Context, err error) *model.APIError {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode >= http.StatusInternalServerError {
			h.logger.ErrorContext(ctx, "upstream error",
				slog.String("code", apiErr.Code),
				slog.String("error", apiErr.Error()),
				slog.String("request_id", middleware.RequestIDFromContext(ctx)),
			)
		}
		return apiErr
	}

	h.logger.ErrorContext(ctx, "internal error",
		slog.String("error", err.Error()),
		slog.String("request_id", middleware.RequestIDFromContext(ctx)),
	)
	return model.NewInternalError(err)
}

// errorResponse is the JSON structure for error responses.
type errorResponse struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// decodeJSON reads JSON from request body into v.
// Limits body size to MaxRequestBodySize to prevent memory exhaustion.
// Returns an APIError if decoding fails.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		// Don't expose internal error details to client
		return model.NewValidationError("body", "invalid JSON")
	}
	return nil
}

// === Validation ===

// newValidator reports JSON names ("quantity") instead of Go field names in errors.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateRequest checks struct tags and converts the first failure to a validation error.
func (h *Handler) validateRequest(v interface{}) error {
	err := h.validate.Struct(v)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) || len(validationErrors) == 0 {
		return model.NewValidationError("body", err.Error())
	}

	fieldErr := validationErrors[0]
	field := fieldErr.Namespace()
	if _, rest, found := strings.Cut(field, "."); found {
		field = rest
	}
	return model.NewValidationError(field, describeRule(fieldErr))
}

func describeRule(fieldErr validator.FieldError) string {
	switch fieldErr.Tag() {
	case "required":
		return "is required"
	case "gt":
		return fmt.Sprintf("must be greater than %s", fieldErr.Param())
	case "gte":
		return fmt.Sprintf("must be at least %s", fieldErr.Param())
	default:
		return fmt.Sprintf("failed %q rule", fieldErr.Tag())
	}
}

// === Cart session cookie ===

// cartToken returns the cart token from the request cookie, or "".
func cartToken(r *http.Request) string {
	c, err := r.Cookie(CartCookie)
	if err != nil {
		return ""
	}
	return c.Value
}

// setCartToken stores token in the session cookie when it changed.
func setCartToken(w http.ResponseWriter, r *http.Request, token string) {
	if token == "" || token == cartToken(r) {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CartCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(cartCookieMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https",
		SameSite: http.SameSiteLaxMode,
	})
}

// countCartAdd records an add-to-cart outcome when metrics are configured.
func (h *Handler) countCartAdd(outcome string) {
	if h.metrics != nil {
		h.metrics.CartAdds.WithLabelValues(outcome).Inc()
	}
}
