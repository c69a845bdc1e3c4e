package api

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/example/ec-storefront/internal/apiclient"
	"github.com/example/ec-storefront/internal/readmodel"
)

// ProductFilter selects and orders a product listing
type ProductFilter struct {
	Page            int
	Size            int
	SortBy          string
	SortDir         string
	Search          string
	CategoryID      int64
	IncludeInactive bool
}

// ListProducts returns one page of products matching f
func (b *Backend) ListProducts(f ProductFilter) readmodel.Page[readmodel.Product] {
	b.mu.Lock()
	defer b.mu.Unlock()

	term := strings.ToLower(strings.TrimSpace(f.Search))
	var out []readmodel.Product
	for _, p := range b.products {
		if !p.IsActive && !f.IncludeInactive {
			continue
		}
		if f.CategoryID != 0 && !b.inCategoryLocked(p.CategoryID, f.CategoryID) {
			continue
		}
		if term != "" && !strings.Contains(strings.ToLower(p.Name+" "+p.Description), term) {
			continue
		}
		out = append(out, *p)
	}

	less := productOrder(f.SortBy)
	desc := strings.EqualFold(f.SortDir, "desc")
	sort.SliceStable(out, func(i, j int) bool {
		if desc {
			return less(out[j], out[i])
		}
		return less(out[i], out[j])
	})
	return paginate(out, f.Page, f.Size)
}

func productOrder(field string) func(a, b readmodel.Product) bool {
	switch field {
	case "name":
		return func(a, b readmodel.Product) bool { return a.Name < b.Name }
	case "price":
		return func(a, b readmodel.Product) bool { return a.Price.LessThan(b.Price) }
	case "stock":
		return func(a, b readmodel.Product) bool { return a.Stock < b.Stock }
	default:
		return func(a, b readmodel.Product) bool { return a.ID < b.ID }
	}
}

// inCategoryLocked reports whether category id sits at or below root
func (b *Backend) inCategoryLocked(id, root int64) bool {
	for seen := 0; id != 0 && seen <= len(b.categories); seen++ {
		if id == root {
			return true
		}
		c, ok := b.categories[id]
		if !ok || c.ParentID == nil {
			return false
		}
		id = *c.ParentID
	}
	return false
}

// Product returns an active product by id
func (b *Backend) Product(id int64) (readmodel.Product, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.products[id]
	if !ok || !p.IsActive {
		return readmodel.Product{}, ErrNotFound
	}
	return *p, nil
}

// ProductBySlug returns an active product by slug
func (b *Backend) ProductBySlug(slug string) (readmodel.Product, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, p := range b.products {
		if p.Slug == slug && p.IsActive {
			return *p, nil
		}
	}
	return readmodel.Product{}, ErrNotFound
}

// CreateProduct adds a product
func (b *Backend) CreateProduct(in apiclient.ProductInput) (readmodel.Product, error) {
	if err := validateProduct(in); err != nil {
		return readmodel.Product{}, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	slug, err := b.productSlugLocked(in, 0)
	if err != nil {
		return readmodel.Product{}, err
	}
	p := &readmodel.Product{ID: b.id()}
	b.applyProductLocked(p, in, slug)
	b.products[p.ID] = p
	return *p, nil
}

// UpdateProduct replaces a product's fields
func (b *Backend) UpdateProduct(id int64, in apiclient.ProductInput) (readmodel.Product, error) {
	if err := validateProduct(in); err != nil {
		return readmodel.Product{}, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.products[id]
	if !ok {
		return readmodel.Product{}, ErrNotFound
	}
	slug, err := b.productSlugLocked(in, id)
	if err != nil {
		return readmodel.Product{}, err
	}
	b.applyProductLocked(p, in, slug)
	return *p, nil
}

// DeleteProduct removes a product and drops it from every cart
func (b *Backend) DeleteProduct(id int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.products[id]; !ok {
		return ErrNotFound
	}
	delete(b.products, id)
	delete(b.images, id)
	for userID, lines := range b.carts {
		kept := lines[:0]
		for _, l := range lines {
			if l.ProductID != id {
				kept = append(kept, l)
			}
		}
		b.carts[userID] = kept
	}
	return nil
}

// SetProductImage stores an uploaded image and points the product at it
func (b *Backend) SetProductImage(id int64, contentType string, data []byte, imageURL string) (readmodel.Product, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.products[id]
	if !ok {
		return readmodel.Product{}, ErrNotFound
	}
	if data != nil {
		b.images[id] = storedImage{contentType: contentType, data: data}
	}
	p.ImageURL = imageURL
	return *p, nil
}

// Image returns a stored product image
func (b *Backend) Image(id int64) (string, []byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	img, ok := b.images[id]
	if !ok {
		return "", nil, ErrNotFound
	}
	return img.contentType, img.data, nil
}

func validateProduct(in apiclient.ProductInput) error {
	switch {
	case strings.TrimSpace(in.Name) == "":
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	case !in.Price.IsPositive():
		return fmt.Errorf("%w: price must be positive", ErrInvalidInput)
	case in.Stock < 0:
		return fmt.Errorf("%w: stock cannot be negative", ErrInvalidInput)
	}
	return nil
}

func (b *Backend) productSlugLocked(in apiclient.ProductInput, selfID int64) (string, error) {
	slug := in.Slug
	if slug == "" {
		slug = generateSlug(in.Name)
	}
	if !slugRegex.MatchString(slug) {
		return "", fmt.Errorf("%w: invalid slug format", ErrInvalidInput)
	}
	for _, p := range b.products {
		if p.Slug == slug && p.ID != selfID {
			return "", ErrSlugTaken
		}
	}
	return slug, nil
}

func (b *Backend) applyProductLocked(p *readmodel.Product, in apiclient.ProductInput, slug string) {
	p.Name = in.Name
	p.Slug = slug
	p.Description = in.Description
	p.Price = in.Price
	p.Stock = in.Stock
	p.IsActive = in.IsActive
	p.CategoryID = in.CategoryID
	p.CategoryName = ""
	if c, ok := b.categories[in.CategoryID]; ok {
		p.CategoryName = c.Name
	}
	if in.ImageURL != "" {
		p.ImageURL = in.ImageURL
	}
}

// Categories returns the category forest ordered by name
func (b *Backend) Categories() []readmodel.Category {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.categoryTreeLocked(nil)
}

func (b *Backend) categoryTreeLocked(parent *int64) []readmodel.Category {
	var out []readmodel.Category
	for _, c := range b.categories {
		if !sameParent(c.ParentID, parent) {
			continue
		}
		node := *c
		count := 0
		for _, p := range b.products {
			if p.CategoryID == c.ID && p.IsActive {
				count++
			}
		}
		node.ProductCount = &count
		id := c.ID
		node.Subcategories = b.categoryTreeLocked(&id)
		out = append(out, node)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func sameParent(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// CategoryBySlug returns a category with its subtree
func (b *Backend) CategoryBySlug(slug string) (readmodel.Category, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, c := range b.categories {
		if c.Slug == slug {
			node := *c
			id := c.ID
			node.Subcategories = b.categoryTreeLocked(&id)
			return node, nil
		}
	}
	return readmodel.Category{}, ErrNotFound
}

// CreateCategory adds a category, optionally under a parent
func (b *Backend) CreateCategory(in apiclient.CategoryInput) (readmodel.Category, error) {
	if strings.TrimSpace(in.Name) == "" {
		return readmodel.Category{}, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	slug := in.Slug
	if slug == "" {
		slug = generateSlug(in.Name)
	}
	if !slugRegex.MatchString(slug) {
		return readmodel.Category{}, fmt.Errorf("%w: invalid slug format", ErrInvalidInput)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, c := range b.categories {
		if c.Slug == slug {
			return readmodel.Category{}, ErrSlugTaken
		}
	}
	active := true
	c := &readmodel.Category{
		ID:          b.id(),
		Name:        in.Name,
		Slug:        slug,
		Description: in.Description,
		ImageURL:    in.ImageURL,
		IsActive:    &active,
	}
	if in.ParentID != nil {
		parent, ok := b.categories[*in.ParentID]
		if !ok {
			return readmodel.Category{}, fmt.Errorf("%w: parent category", ErrNotFound)
		}
		pid := parent.ID
		c.ParentID = &pid
		c.ParentName = parent.Name
	}
	b.categories[c.ID] = c
	return *c, nil
}

// DeleteCategory removes a leaf category that no product references
func (b *Backend) DeleteCategory(id int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.categories[id]; !ok {
		return ErrNotFound
	}
	for _, p := range b.products {
		if p.CategoryID == id {
			return ErrCategoryInUse
		}
	}
	for _, c := range b.categories {
		if c.ParentID != nil && *c.ParentID == id {
			return fmt.Errorf("%w: has subcategories", ErrCategoryInUse)
		}
	}
	delete(b.categories, id)
	return nil
}

func subtotal(price decimal.Decimal, quantity int) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(int64(quantity)))
}
