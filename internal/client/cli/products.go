package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/dmitrijs2005/storefront/internal/client/models"
	"github.com/dmitrijs2005/storefront/internal/client/nav"
	"github.com/dmitrijs2005/storefront/internal/client/services"
	"github.com/dmitrijs2005/storefront/internal/common"
)

var (
	errNotAllowed = errors.New("login required")
	errUsage      = errors.New("usage")
)

// clearValue, typed while editing, empties an optional field.
const clearValue = "-"

// visit runs the route guard for path. A denied visit tells the user to log
// in; the route is resumed after a successful login.
func (a *App) visit(path string) error {
	d := a.nav.Visit(a.session.State().Status, path)
	if d.Allowed {
		return nil
	}
	fmt.Fprintf(a.out, "Please log in to open %s (type 'login').\n", d.ReturnTo)
	return errNotAllowed
}

// productFailed reports a failed product call. A 401 has already signed the
// user out by the time it gets here.
func (a *App) productFailed(err error, fallback string) error {
	a.printError(err, fallback)
	if common.KindOf(err) == common.KindAuthentication {
		a.takeNotice()
		fmt.Fprintln(a.out, msgSessionEnded)
	}
	return err
}

func (a *App) idArg(args []string, usage string) (int64, error) {
	if len(args) != 1 {
		fmt.Fprintln(a.out, "Usage:", usage)
		return 0, errUsage
	}
	id, err := parseID(args[0])
	if err != nil {
		fmt.Fprintln(a.out, "Error:", err)
		return 0, err
	}
	return id, nil
}

const productsUsage = "products [--category men|women|general] [skip] [limit]"

// Products lists the catalog: products [--category <c>] [skip] [limit].
// The fetched page is counted per category and optionally filtered.
func (a *App) Products(ctx context.Context, args []string) error {
	filter, rest, err := categoryArg(args)
	if err != nil || len(rest) > 2 {
		fmt.Fprintln(a.out, "Usage:", productsUsage)
		return errUsage
	}

	skip, limit := services.DefaultSkip, services.DefaultLimit
	for i, dst := range []*int{&skip, &limit}[:len(rest)] {
		n, err := strconv.Atoi(rest[i])
		if err != nil || n < 0 {
			fmt.Fprintln(a.out, "Usage:", productsUsage)
			return errUsage
		}
		*dst = n
	}

	if err := a.visit(nav.RouteProducts); err != nil {
		return err
	}

	list, err := a.products.List(ctx, skip, limit)
	if err != nil {
		return a.productFailed(err, services.MsgFetchProductsFailed)
	}
	if len(list) == 0 {
		fmt.Fprintln(a.out, "No products found. Type 'add' to create one.")
		return nil
	}

	fmt.Fprintln(a.out, categoryCounts(list))

	shown := filterProducts(list, filter)
	if len(shown) == 0 {
		fmt.Fprintf(a.out, "No products in %s\n", filter.Label())
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tCATEGORY\tPRICE\tSTOCK")
	for _, p := range shown {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", p.ID, p.Name, p.Category.Label(), p.FormatPrice(), p.StockLabel())
	}
	return tw.Flush()
}

// categoryArg extracts "--category <c>" (or -c) from args. An empty category
// or "all" means no filter.
func categoryArg(args []string) (models.Category, []string, error) {
	var (
		filter models.Category
		rest   []string
	)
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--category", "-c":
			if i+1 == len(args) {
				return "", nil, errUsage
			}
			i++
			filter = models.Category(strings.ToLower(args[i]))
		default:
			rest = append(rest, args[i])
		}
	}
	if filter == "all" {
		filter = ""
	}
	if filter != "" && !filter.Valid() {
		return "", nil, errUsage
	}
	return filter, rest, nil
}

func filterProducts(list []models.Product, c models.Category) []models.Product {
	if c == "" {
		return list
	}
	var out []models.Product
	for _, p := range list {
		if p.Category == c {
			out = append(out, p)
		}
	}
	return out
}

// categoryCounts renders "All (n)" followed by the count of every category.
func categoryCounts(list []models.Product) string {
	counts := map[models.Category]int{}
	for _, p := range list {
		counts[p.Category]++
	}
	parts := []string{fmt.Sprintf("All (%d)", len(list))}
	for _, c := range models.Categories() {
		parts = append(parts, fmt.Sprintf("%s (%d)", c.Label(), counts[c]))
	}
	return strings.Join(parts, "  ")
}

// Show prints one product: show <id>.
func (a *App) Show(ctx context.Context, args []string) error {
	id, err := a.idArg(args, "show <id>")
	if err != nil {
		return err
	}
	if err := a.visit(nav.ProductPath(id)); err != nil {
		return err
	}

	p, err := a.products.Get(ctx, id)
	if err != nil {
		return a.productFailed(err, services.MsgFetchProductFailed)
	}
	a.printProduct(p)
	return nil
}

func (a *App) printProduct(p *models.Product) {
	tw := tabwriter.NewWriter(a.out, 0, 0, 1, ' ', 0)
	fmt.Fprintf(tw, "ID:\t%d\n", p.ID)
	fmt.Fprintf(tw, "Name:\t%s\n", p.Name)
	fmt.Fprintf(tw, "Category:\t%s\n", p.Category.Label())
	fmt.Fprintf(tw, "Price:\t%s\n", p.FormatPrice())
	fmt.Fprintf(tw, "Stock:\t%s\n", p.StockLabel())
	if p.ImageURL != "" {
		fmt.Fprintf(tw, "Image:\t%s\n", p.ImageURL)
	}
	if p.Description != "" {
		fmt.Fprintf(tw, "Description:\t%s\n", strings.ReplaceAll(p.Description, "\n", "\n\t"))
	}
	_ = tw.Flush()
}

// Add prompts for a new product and creates it.
func (a *App) Add(ctx context.Context) error {
	if err := a.visit(nav.RouteProductNew); err != nil {
		return err
	}

	in, err := a.readProductInput(models.ProductInput{})
	if err != nil {
		return a.inputFailed(err, services.MsgCreateProductFailed)
	}

	p, err := a.products.Create(ctx, in)
	if err != nil {
		return a.productFailed(err, services.MsgCreateProductFailed)
	}
	a.nav.Navigate(nav.RouteProducts)
	fmt.Fprintf(a.out, "Product #%d created\n", p.ID)
	return nil
}

// Edit loads a product, prompts for changes and saves them: edit <id>.
// Empty answers keep the current values.
func (a *App) Edit(ctx context.Context, args []string) error {
	id, err := a.idArg(args, "edit <id>")
	if err != nil {
		return err
	}
	if err := a.visit(nav.ProductEditPath(id)); err != nil {
		return err
	}

	cur, err := a.products.Get(ctx, id)
	if err != nil {
		return a.productFailed(err, services.MsgFetchProductFailed)
	}

	in, err := a.readProductInput(cur.Input())
	if err != nil {
		return a.inputFailed(err, services.MsgUpdateProductFailed)
	}

	p, err := a.products.Update(ctx, id, in)
	if err != nil {
		return a.productFailed(err, services.MsgUpdateProductFailed)
	}
	a.nav.Navigate(nav.RouteProducts)
	fmt.Fprintf(a.out, "Product #%d updated\n", p.ID)
	return nil
}

// Delete removes a product after confirmation: delete <id>.
func (a *App) Delete(ctx context.Context, args []string) error {
	id, err := a.idArg(args, "delete <id>")
	if err != nil {
		return err
	}
	if err := a.visit(nav.ProductPath(id)); err != nil {
		return err
	}

	ok, err := getYesNo(a.reader, fmt.Sprintf("Delete product #%d?", id), false, a.out)
	if err != nil {
		return a.inputFailed(err, services.MsgDeleteProductFailed)
	}
	if !ok {
		fmt.Fprintln(a.out, "Cancelled")
		return nil
	}

	msg, err := a.products.Delete(ctx, id)
	if err != nil {
		return a.productFailed(err, services.MsgDeleteProductFailed)
	}
	a.nav.Navigate(nav.RouteProducts)
	if msg == "" {
		msg = fmt.Sprintf("Product #%d deleted", id)
	}
	fmt.Fprintln(a.out, msg)
	return nil
}

// inputFailed reports a prompt that could not be answered. Validation errors
// carry their own message.
func (a *App) inputFailed(err error, fallback string) error {
	if common.KindOf(err) == common.KindValidation {
		a.printError(err, fallback)
		return err
	}
	fmt.Fprintln(a.out, "Error:", err)
	return err
}

// readProductInput prompts for every product field, offering cur as defaults.
func (a *App) readProductInput(cur models.ProductInput) (models.ProductInput, error) {
	in := cur
	var err error

	if in.Name, err = GetWithDefault(a.reader, "Name", cur.Name, a.out); err != nil {
		return in, err
	}

	desc, err := GetMultiline(a.reader, descriptionPrompt(cur.Description), a.out)
	if err != nil {
		return in, err
	}
	switch desc {
	case "":
	case clearValue:
		in.Description = ""
	default:
		in.Description = desc
	}

	var priceDef string
	if cur.Price > 0 {
		priceDef = strconv.FormatFloat(cur.Price, 'f', 2, 64)
	}
	priceStr, err := GetWithDefault(a.reader, "Price", priceDef, a.out)
	if err != nil {
		return in, err
	}
	price, err := strconv.ParseFloat(strings.TrimPrefix(priceStr, "$"), 64)
	if err != nil {
		return in, common.NewValidationError("product input", "Price must be a number")
	}
	in.Price = price

	stockDef := cur.InStock == nil || *cur.InStock
	inStock, err := getYesNo(a.reader, "In stock?", stockDef, a.out)
	if err != nil {
		return in, err
	}
	in.InStock = &inStock

	imagePrompt := "Image URL"
	if cur.ImageURL != "" {
		imagePrompt = fmt.Sprintf("Image URL ('%s' to clear)", clearValue)
	}
	if in.ImageURL, err = GetWithDefault(a.reader, imagePrompt, cur.ImageURL, a.out); err != nil {
		return in, err
	}
	if in.ImageURL == clearValue {
		in.ImageURL = ""
	}

	catDef := string(cur.Category)
	if catDef == "" {
		catDef = string(models.CategoryGeneral)
	}
	cat, err := GetWithDefault(a.reader, "Category (men, women, general)", catDef, a.out)
	if err != nil {
		return in, err
	}
	in.Category = models.Category(strings.ToLower(cat))

	return in, nil
}

func descriptionPrompt(cur string) string {
	if cur == "" {
		return "Description (optional)"
	}
	return fmt.Sprintf("Description (leave empty to keep the current one, '%s' to clear it)", clearValue)
}
