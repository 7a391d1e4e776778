// shopclient is a CLI tool for exercising storefront product page flows.
// Product data comes straight from WooCommerce; cart calls go through the storefront's
// /api/store/cart routes, exactly as the product page makes them.
// Each command performs a single operation, making it composable for scripts.
//
// Commands:
//
//	shopclient product -id ID
//	shopclient resolve -id ID -attr Name=Option... [-qty N]
//	shopclient add -id ID [-attr Name=Option...] [-qty N] [-date YYYY-MM-DD] [-token T]
//	shopclient buy -id ID [-attr Name=Option...] [-qty N] [-token T]
//	shopclient cart [-token T]
//
// Store credentials come from STORE_URL, STORE_API_KEY and STORE_API_SECRET.
//
// Examples:
//
//	TOKEN=$(shopclient add -id 60 -attr Color=Red -attr Size=Large -q)
//	shopclient cart -token "$TOKEN"
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"sort"
	"strings"
	"time"

	"storefront/internal/catalog"
	"storefront/internal/handler"
	"storefront/internal/model"
	"storefront/internal/productpage"
	"storefront/internal/woocommerce"
)

const requestTimeout = 30 * time.Second

// Global flags (apply to all commands)
var (
	storefrontURL string
	quiet         bool
	noColor       bool
	globalAttrs   bool
)

// ANSI color codes
var (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
	colorBold   = "\033[1m"
)

func init() {
	if os.Getenv("NO_COLOR") != "" {
		disableColors()
	}
}

func disableColors() {
	colorReset, colorRed, colorGreen, colorYellow = "", "", "", ""
	colorCyan, colorGray, colorBold = "", "", ""
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "product":
		runProduct(args)
	case "resolve":
		runResolve(args)
	case "add":
		runAdd(args, false)
	case "buy":
		runAdd(args, true)
	case "cart":
		runCart(args)
	case "-h", "-help", "--help", "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `shopclient - storefront product page test tool

Usage:
  shopclient <command> [options]

Commands:
  product   Show a product with its attributes and variations
  resolve   Resolve an attribute selection to a variation
  add       Add to cart through the storefront
  buy       Add to cart, then open the cart
  cart      Show the cart

Examples:
  # Inspect a variable product
  shopclient product -id 60

  # Add two large red ones and keep the cart token
  TOKEN=$(shopclient add -id 60 -attr Color=Red -attr Size=Large -qty 2 -q)

  # Show the same cart
  shopclient cart -token "$TOKEN"

Run 'shopclient <command> -h' for command-specific options.
`)
}

// attrFlag collects repeated -attr Name=Option flags.
type attrFlag map[string]string

func (a attrFlag) String() string {
	parts := make([]string, 0, len(a))
	for k, v := range a {
		parts = append(parts, k+"="+v)
	}
	sort.Strings(parts)
	return strings.Join(parts, ",")
}

func (a attrFlag) Set(s string) error {
	name, option, ok := strings.Cut(s, "=")
	if !ok || strings.TrimSpace(name) == "" {
		return fmt.Errorf("expected Name=Option, got %q", s)
	}
	a[strings.TrimSpace(name)] = strings.TrimSpace(option)
	return nil
}

// pageFlags are shared by resolve, add and buy.
type pageFlags struct {
	productID int
	attrs     attrFlag
	quantity  int
	date      string
	token     string
}

func newFlagSet(name, usage string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	fs.StringVar(&storefrontURL, "storefront", envOr("STOREFRONT_URL", "http://localhost:8080"), "Storefront base URL")
	fs.BoolVar(&quiet, "q", false, "Quiet mode - only output the essential value")
	fs.BoolVar(&noColor, "no-color", false, "Disable colored output")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: shopclient %s\n\nOptions:\n", usage)
		fs.PrintDefaults()
	}
	return fs
}

func bindPageFlags(fs *flag.FlagSet, pf *pageFlags) {
	pf.attrs = attrFlag{}
	fs.IntVar(&pf.productID, "id", 0, "Product ID (required)")
	fs.Var(pf.attrs, "attr", "Attribute selection Name=Option (repeatable)")
	fs.IntVar(&pf.quantity, "qty", productpage.MinQuantity, "Quantity")
	fs.StringVar(&pf.date, "date", "", "Delivery date (YYYY-MM-DD)")
	fs.StringVar(&pf.token, "token", "", "Cart token from a previous add")
	fs.BoolVar(&globalAttrs, "global", false, "Send global (pa_) attribute slugs instead of local names")
}

func parse(fs *flag.FlagSet, args []string) {
	fs.Parse(args)
	if noColor {
		disableColors()
	}
}

// =============================================================================
// PRODUCT COMMAND
// =============================================================================

func runProduct(args []string) {
	fs := newFlagSet("product", "product -id ID [options]")
	var productID int
	fs.IntVar(&productID, "id", 0, "Product ID (required)")
	parse(fs, args)

	if productID < 1 {
		fs.Usage()
		os.Exit(1)
	}

	page := loadPage(productID, productpage.Deps{})
	product := page.Product()

	if quiet {
		printJSONValue(product)
		return
	}

	printSuccess("%s", page.Breadcrumb())
	fmt.Printf("  %s%s%s (#%d, %s)\n", colorBold, product.Name, colorReset, product.ID, product.Type)
	fmt.Printf("  Price: %s%s%s\n", colorGreen, page.CurrentPrice(), colorReset)
	if desc := page.PlainDescription(); desc != "" {
		fmt.Printf("  %s%s%s\n", colorGray, desc, colorReset)
	}
	for _, attr := range product.Attributes {
		if product.IsVariable() && !attr.Variation {
			continue
		}
		fmt.Printf("  %s%s:%s %s\n", colorYellow, attr.Name, colorReset, strings.Join(attr.Options, ", "))
	}
	for _, v := range page.Variations() {
		options := make([]string, 0, len(v.Attributes))
		for _, a := range v.Attributes {
			options = append(options, a.Name+"="+a.Option)
		}
		fmt.Printf("    - #%d %s: %s (%s)\n", v.ID, strings.Join(options, " "), v.Price, v.StockStatus)
	}
}

// =============================================================================
// RESOLVE COMMAND
// =============================================================================

func runResolve(args []string) {
	fs := newFlagSet("resolve", "resolve -id ID -attr Name=Option... [options]")
	var pf pageFlags
	bindPageFlags(fs, &pf)
	parse(fs, args)

	if pf.productID < 1 {
		fs.Usage()
		os.Exit(1)
	}

	page := loadPage(pf.productID, productpage.Deps{})
	applyFlags(page, pf)

	v := page.CurrentVariation()
	if quiet {
		if v != nil {
			fmt.Println(v.ID)
		}
		return
	}

	if !page.AttributesSelected() {
		printWarning("Not every attribute is selected")
	}
	if v == nil {
		if page.Product().IsVariable() {
			printError("No variation matches %s", pf.attrs)
			os.Exit(1)
		}
		printInfo("Simple product; no variation to resolve")
	} else {
		printSuccess("Resolved variation #%d", v.ID)
	}
	fmt.Printf("  Price: %s%s%s\n", colorGreen, page.CurrentPrice(), colorReset)
	fmt.Printf("  Total: %s%s%s (x%d)\n", colorGreen, page.DisplayTotal(), colorReset, page.Quantity())
	if img := page.ImageSrc(); img != "" {
		fmt.Printf("  Image: %s\n", img)
	}
	fmt.Printf("  %sVariation:%s\n", colorYellow, colorReset)
	for _, pair := range catalog.NormalizeAttributes(page.Selection(), attrMode()) {
		fmt.Printf("    %s = %s\n", pair.Attribute, pair.Value)
	}
}

// =============================================================================
// ADD / BUY COMMANDS
// =============================================================================

// terminalNavigator prints where the page would take the shopper.
type terminalNavigator struct {
	path string
}

func (n *terminalNavigator) Push(path string) {
	n.path = path
	printInfo("Navigate to %s", path)
}

func runAdd(args []string, buyNow bool) {
	name := "add"
	if buyNow {
		name = "buy"
	}
	fs := newFlagSet(name, name+" -id ID [-attr Name=Option...] [options]")
	var pf pageFlags
	bindPageFlags(fs, &pf)
	parse(fs, args)

	if pf.productID < 1 {
		fs.Usage()
		os.Exit(1)
	}

	jar, cart := newCartClient(pf.token)
	nav := &terminalNavigator{}
	page := loadPage(pf.productID, productpage.Deps{Cart: cart, Navigator: nav})
	applyFlags(page, pf)

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	var err error
	if buyNow {
		err = page.BuyNow(ctx)
	} else {
		_, err = page.AddToCart(ctx)
	}
	if err != nil {
		fatal("Add to cart failed: %s", describeError(err))
	}
	if msg := page.Message(); msg != "" && !page.AddedSuccess() {
		fatal("%s", msg)
	}

	token := sessionToken(jar)
	if quiet {
		fmt.Println(token)
		return
	}

	printSuccess("Added %d x %s to cart (%s)", page.Quantity(), page.Product().Name, page.DisplayTotal())
	if token != "" {
		printInfo("Cart token: %s", token)
	}
	if buyNow && nav.path == productpage.CartPath {
		showCart(ctx, cart)
	}
}

// =============================================================================
// CART COMMAND
// =============================================================================

func runCart(args []string) {
	fs := newFlagSet("cart", "cart [-token T] [options]")
	var token string
	fs.StringVar(&token, "token", "", "Cart token from a previous add")
	parse(fs, args)

	_, cart := newCartClient(token)
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	showCart(ctx, cart)
}

func showCart(ctx context.Context, client *productpage.HTTPCartClient) {
	cart, err := client.Cart(ctx)
	if err != nil {
		fatal("Failed to get cart: %s", describeError(err))
	}

	if quiet {
		printJSONValue(cart)
		return
	}

	printSuccess("Cart: %d item(s)", cart.ItemCount)
	for _, item := range cart.Items {
		options := make([]string, 0, len(item.Variation))
		for _, pair := range item.Variation {
			options = append(options, pair.Attribute+": "+pair.Value)
		}
		fmt.Printf("  - %d x %s", item.Quantity, item.Name)
		if len(options) > 0 {
			fmt.Printf(" %s(%s)%s", colorGray, strings.Join(options, ", "), colorReset)
		}
		fmt.Printf("  %s\n", item.LineTotal)
	}
	fmt.Printf("  Total: %s%s %s%s\n", colorGreen, cart.TotalPrice, cart.Currency, colorReset)
	for _, e := range cart.Errors {
		printWarning("%s", e)
	}
}

// =============================================================================
// HELPERS
// =============================================================================

// loadPage fetches the product (and variations) from WooCommerce and builds a page.
func loadPage(productID int, deps productpage.Deps) *productpage.Page {
	store, err := woocommerce.New(woocommerce.Config{
		StoreURL:   strings.TrimSuffix(os.Getenv("STORE_URL"), "/"),
		APIKey:     os.Getenv("STORE_API_KEY"),
		APISecret:  os.Getenv("STORE_API_SECRET"),
		APIVersion: os.Getenv("STORE_API_VERSION"),
	})
	if err != nil {
		fatal("Store not configured: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	product, err := store.GetProduct(ctx, productID)
	if err != nil {
		fatal("Failed to get product: %s", describeError(err))
	}
	var variations []model.Variation
	if product.IsVariable() {
		if variations, err = store.ListVariations(ctx, productID); err != nil {
			fatal("Failed to get variations: %s", describeError(err))
		}
	}

	deps.AttributeMode = attrMode()
	return productpage.New(product, variations, deps)
}

func applyFlags(page *productpage.Page, pf pageFlags) {
	for name, option := range pf.attrs {
		page.SelectAttribute(name, option)
	}
	page.SetQuantity(pf.quantity)
	if pf.date != "" {
		page.SetDeliveryDate(pf.date)
	}
}

// newCartClient creates a storefront cart client whose cookie jar carries token.
func newCartClient(token string) (*cookiejar.Jar, *productpage.HTTPCartClient) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		fatal("Failed to create cookie jar: %v", err)
	}
	base, err := url.Parse(storefrontURL)
	if err != nil {
		fatal("Invalid storefront URL: %v", err)
	}
	if token != "" {
		jar.SetCookies(base, []*http.Cookie{{Name: handler.CartCookie, Value: token, Path: "/"}})
	}

	client, err := productpage.NewHTTPCartClient(storefrontURL, &http.Client{Timeout: requestTimeout, Jar: jar})
	if err != nil {
		fatal("Failed to create cart client: %v", err)
	}
	return jar, client
}

// sessionToken reads the cart token the storefront stored in the jar.
func sessionToken(jar *cookiejar.Jar) string {
	base, err := url.Parse(storefrontURL)
	if err != nil {
		return ""
	}
	for _, c := range jar.Cookies(base) {
		if c.Name == handler.CartCookie {
			return c.Value
		}
	}
	return ""
}

func attrMode() catalog.AttributeMode {
	if globalAttrs {
		return catalog.GlobalAttributes
	}
	return catalog.LocalAttributes
}

func describeError(err error) string {
	apiErr := model.AsAPIError(err)
	if apiErr.Code == "INTERNAL_ERROR" {
		return err.Error()
	}
	return fmt.Sprintf("%s (%s)", apiErr.Message, apiErr.Code)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// =============================================================================
// OUTPUT HELPERS
// =============================================================================

func printJSONValue(v interface{}) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fatal("Failed to encode output: %v", err)
	}
	fmt.Println(string(data))
}

func printSuccess(format string, args ...interface{}) {
	if !quiet {
		fmt.Printf("%s✓ %s%s\n", colorGreen, fmt.Sprintf(format, args...), colorReset)
	}
}

func printError(format string, args ...interface{}) {
	fmt.Printf("%s✗ %s%s\n", colorRed, fmt.Sprintf(format, args...), colorReset)
}

func printWarning(format string, args ...interface{}) {
	fmt.Printf("%s⚠ %s%s\n", colorYellow, fmt.Sprintf(format, args...), colorReset)
}

func printInfo(format string, args ...interface{}) {
	if !quiet {
		fmt.Printf("%s→ %s%s\n", colorGray, fmt.Sprintf(format, args...), colorReset)
	}
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "%s✗ %s%s\n", colorRed, fmt.Sprintf(format, args...), colorReset)
	os.Exit(1)
}
