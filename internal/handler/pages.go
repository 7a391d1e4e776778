package handler

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"storefront/internal/delivery"
	"storefront/internal/middleware"
	"storefront/internal/model"
	"storefront/internal/productpage"
)

//go:embed templates/*.html
var templateFS embed.FS

// Form and query keys shared by the product page form and deep links.
const (
	attrParamPrefix   = "attr."
	quantityParam     = "quantity"
	deliveryDateParam = "delivery_date"
	actionParam       = "action"
)

// Product form actions.
const (
	actionAdd = "add"
	actionBuy = "buy"
)

func parseTemplates() *template.Template {
	return template.Must(template.New("").ParseFS(templateFS, "templates/*.html"))
}

// productListView is the data for the catalog page.
type productListView struct {
	Title    string
	Products []productSummary
	Page     int
	PrevPage int // 0 when on the first page
	NextPage int // 0 when the page came back empty
}

type productSummary struct {
	ID    int
	Name  string
	Price string
	Image string
	Link  string
}

// productView is the data for the product detail page.
type productView struct {
	Title        string
	Action       string
	Breadcrumb   string
	Name         string
	Description  string
	Image        string
	Price        string
	Total        string
	Variable     bool
	Attributes   []attributeView
	Quantity     int
	Quantities   []int
	DeliveryDate string
	MinDate      string
	DailyLimit   int
	GlobalLimit  int
	Complete     bool
	Message      string
	Added        bool
	Error        string
}

type attributeView struct {
	Name    string
	Field   string
	Options []optionView
}

type optionView struct {
	Value    string
	Selected bool
}

type cartView struct {
	Title string
	Cart  *model.Cart
}

type errorView struct {
	Title   string
	Status  int
	Code    string
	Message string
}

// redirectNavigator records the page's navigation target for the response.
type redirectNavigator struct {
	path string
}

func (n *redirectNavigator) Push(path string) { n.path = path }

// handleListProducts renders a page of published products.
// GET /products?page=N
func (h *Handler) handleListProducts(w http.ResponseWriter, r *http.Request) {
	page := 1
	if v := r.URL.Query().Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			h.renderError(w, r, model.NewValidationError("page", "must be a positive integer"))
			return
		}
		page = n
	}

	products, err := h.store.ListProducts(r.Context(), page)
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	view := productListView{Title: "Products", Page: page}
	if page > 1 {
		view.PrevPage = page - 1
	}
	if len(products) > 0 {
		view.NextPage = page + 1
	}
	for i := range products {
		p := &products[i]
		price := p.Price
		if price == "" {
			price = "N/A"
		}
		view.Products = append(view.Products, productSummary{
			ID:    p.ID,
			Name:  p.Name,
			Price: price,
			Image: p.FirstImageSrc(),
			Link:  fmt.Sprintf("%s/%d", productpage.ProductsPath, p.ID),
		})
	}
	h.render(w, http.StatusOK, "products", view)
}

// handleProductPage renders the product detail page. Selections, quantity and delivery
// date can be prefilled from the query: ?attr.Color=Red&quantity=2&delivery_date=2026-05-01.
// GET /products/{id}
func (h *Handler) handleProductPage(w http.ResponseWriter, r *http.Request) {
	page, err := h.loadPage(r.Context(), r.PathValue("id"), productpage.Deps{})
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	applyForm(page, r.URL.Query())
	view := h.productView(r.Context(), page)
	view.Added = r.URL.Query().Get("added") == "1"
	h.render(w, http.StatusOK, "product", view)
}

// handleProductSubmit runs add-to-cart or buy-now from the product form.
// Buy-now always answers with a redirect to the cart page; add-to-cart re-renders the
// product page with the outcome.
// POST /products/{id}
func (h *Handler) handleProductSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)
	if err := r.ParseForm(); err != nil {
		h.renderError(w, r, model.NewValidationError("form", "could not be parsed"))
		return
	}

	action := r.PostForm.Get(actionParam)
	if action != actionAdd && action != actionBuy {
		h.renderError(w, r, model.NewValidationError(actionParam, "must be add or buy"))
		return
	}

	cart := productpage.NewStoreCartClient(h.store, cartToken(r))
	nav := &redirectNavigator{}
	page, err := h.loadPage(ctx, r.PathValue("id"), productpage.Deps{Cart: cart, Navigator: nav})
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	applyForm(page, r.PostForm)

	if action == actionBuy {
		err := page.BuyNow(ctx)
		setCartToken(w, r, cart.Token())
		h.recordAdd(ctx, page, err)
		http.Redirect(w, r, nav.path, http.StatusSeeOther)
		return
	}

	_, err = page.AddToCart(ctx)
	setCartToken(w, r, cart.Token())
	h.recordAdd(ctx, page, err)

	view := h.productView(ctx, page)
	status := http.StatusOK
	if err != nil {
		apiErr := model.AsAPIError(err)
		status = apiErr.StatusCode
		view.Error = apiErr.Message
	}
	h.render(w, status, "product", view)
}

// recordAdd counts and logs the outcome of a page add-to-cart.
func (h *Handler) recordAdd(ctx context.Context, page *productpage.Page, err error) {
	switch {
	case err != nil:
		h.countCartAdd("failed")
		h.apiError(ctx, err)
	case page.AddedSuccess():
		h.countCartAdd("added")
		h.logger.InfoContext(ctx, "item added to cart",
			slog.Int("product_id", page.Product().ID),
			slog.Int("quantity", page.Quantity()),
			slog.String("request_id", middleware.RequestIDFromContext(ctx)),
		)
	default:
		h.countCartAdd("invalid")
	}
}

// handleCartPage renders the session's cart.
// GET /cart
func (h *Handler) handleCartPage(w http.ResponseWriter, r *http.Request) {
	cart, token, err := h.store.GetCart(r.Context(), cartToken(r))
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	setCartToken(w, r, token)
	w.Header().Set("Cache-Control", "no-store")
	h.render(w, http.StatusOK, "cart", cartView{Title: "Cart", Cart: cart})
}

// loadPage fetches the product named by rawID (and its variations when variable) and builds
// a page around it. deps.Availability, AttributeMode and Logger are filled in here.
func (h *Handler) loadPage(ctx context.Context, rawID string, deps productpage.Deps) (*productpage.Page, error) {
	id, err := strconv.Atoi(rawID)
	if err != nil || id < 1 {
		return nil, model.NewValidationError("product id", "must be a positive integer")
	}

	product, err := h.store.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	var variations []model.Variation
	if product.IsVariable() {
		if variations, err = h.store.ListVariations(ctx, id); err != nil {
			return nil, err
		}
	}

	if h.availability != nil {
		deps.Availability = h.availability
	}
	deps.AttributeMode = h.attributeMode
	deps.Logger = h.logger
	return productpage.New(product, variations, deps), nil
}

// applyForm copies attribute selections, quantity and delivery date from values onto the
// page. Unknown attributes are ignored; an unparsable quantity becomes 0 and is rejected
// on add.
func applyForm(page *productpage.Page, values map[string][]string) {
	get := func(key string) string {
		if v := values[key]; len(v) > 0 {
			return v[0]
		}
		return ""
	}

	for _, attr := range page.Product().Attributes {
		if option := get(attrParamPrefix + attr.Name); option != "" {
			page.SelectAttribute(attr.Name, option)
		}
	}
	if v := get(quantityParam); v != "" {
		q, err := strconv.Atoi(v)
		if err != nil {
			q = 0
		}
		page.SetQuantity(q)
	}
	if v := get(deliveryDateParam); v != "" {
		page.SetDeliveryDate(v)
	}
}

func (h *Handler) productView(ctx context.Context, page *productpage.Page) productView {
	product := page.Product()
	view := productView{
		Title:        product.Name,
		Action:       fmt.Sprintf("%s/%d", productpage.ProductsPath, product.ID),
		Breadcrumb:   page.Breadcrumb(),
		Name:         product.Name,
		Description:  page.PlainDescription(),
		Image:        page.ImageSrc(),
		Price:        page.CurrentPrice(),
		Total:        page.DisplayTotal(),
		Variable:     product.IsVariable(),
		Quantity:     page.Quantity(),
		DeliveryDate: page.DeliveryDate(),
		MinDate:      time.Now().Format(delivery.DateLayout),
		DailyLimit:   page.DailyLimit(ctx),
		GlobalLimit:  page.GlobalLimit(ctx),
		Complete:     page.AttributesSelected(),
		Message:      page.Message(),
		Added:        page.AddedSuccess(),
	}
	for q := productpage.MinQuantity; q <= productpage.MaxQuantity; q++ {
		view.Quantities = append(view.Quantities, q)
	}
	if product.IsVariable() {
		for _, attr := range product.Attributes {
			av := attributeView{Name: attr.Name, Field: attrParamPrefix + attr.Name}
			for _, option := range attr.Options {
				av.Options = append(av.Options, optionView{
					Value:    option,
					Selected: page.Selected(attr.Name) == option,
				})
			}
			view.Attributes = append(view.Attributes, av)
		}
	}
	return view
}

// renderError renders the error page with the status carried by err.
func (h *Handler) renderError(w http.ResponseWriter, r *http.Request, err error) {
	apiErr := h.apiError(r.Context(), err)
	h.render(w, apiErr.StatusCode, "error", errorView{
		Title:   http.StatusText(apiErr.StatusCode),
		Status:  apiErr.StatusCode,
		Code:    apiErr.Code,
		Message: apiErr.Message,
	})
}

// render executes the named template into a buffer so a template error still yields a
// clean 500.
func (h *Handler) render(w http.ResponseWriter, status int, name string, data interface{}) {
	var buf bytes.Buffer
	if err := h.templates.ExecuteTemplate(&buf, name, data); err != nil {
		h.logger.Error("failed to render template",
			slog.String("template", name),
			slog.String("error", err.Error()),
		)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}
