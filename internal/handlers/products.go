package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/petermazzocco/go-catalog-api/internal/apperr"
	"github.com/petermazzocco/go-catalog-api/internal/blob"
	"github.com/petermazzocco/go-catalog-api/internal/store"
	"github.com/petermazzocco/go-catalog-api/internal/upload"
	"github.com/petermazzocco/go-catalog-api/models"
)

var productFileRules = []upload.Rule{
	{Field: "productImage", MaxCount: 1},
	{Field: "file", MaxCount: 1},
}

type productInput struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description" validate:"required"`
	Category    string `json:"category" validate:"required"`
	Subcategory string `json:"subcategory"`
}

// CreateProduct accepts a multipart form with optional productImage and file
// parts. Files are only written once the text fields are valid.
func (a *API) CreateProduct(w http.ResponseWriter, r *http.Request) error {
	form, err := a.uploads.Parse(w, r, productFileRules, upload.DocumentTypes)
	if err != nil {
		return apperr.Upload("Error uploading files", err.Error())
	}
	defer form.Close()

	in := productInput{
		Name:        form.Value("name"),
		Description: form.Value("description"),
		Category:    form.Value("category"),
		Subcategory: form.Value("subcategory"),
	}
	if err := a.validate.Struct(in); err != nil {
		return err
	}

	features := append([]string{}, form.Values("features")...)
	features = append(features, form.Values("features[]")...)

	ctx := r.Context()
	files, err := form.Store(ctx)
	if err != nil {
		return apperr.Persistence("Error uploading files", err)
	}

	product := &models.Product{
		Name:         in.Name,
		Description:  in.Description,
		Category:     in.Category,
		Subcategory:  in.Subcategory,
		Features:     features,
		ProductImage: files.Path("productImage"),
		File:         files.Path("file"),
	}
	if err := a.products.CreateProduct(ctx, product); err != nil {
		a.uploads.Discard(ctx, files)
		return apperr.Persistence("Error saving product", err)
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Product created successfully",
		"product": a.productWithURLs(r, *product),
	})
	return nil
}

func (a *API) listProducts(w http.ResponseWriter, r *http.Request, filter store.ProductFilter) error {
	products, err := a.products.ListProducts(r.Context(), filter)
	if err != nil {
		return apperr.Persistence("Error fetching products", err)
	}
	if products == nil {
		products = []models.Product{}
	}
	for i := range products {
		products[i].Normalize()
	}
	writeJSON(w, http.StatusOK, products)
	return nil
}

// ListProducts returns every product with paths as stored.
func (a *API) ListProducts(w http.ResponseWriter, r *http.Request) error {
	return a.listProducts(w, r, store.ProductFilter{})
}

func (a *API) ListProductsByCategory(w http.ResponseWriter, r *http.Request) error {
	return a.listProducts(w, r, store.ProductFilter{Category: chi.URLParam(r, "category")})
}

func (a *API) ListProductsBySubcategory(w http.ResponseWriter, r *http.Request) error {
	return a.listProducts(w, r, store.ProductFilter{
		Category:    chi.URLParam(r, "category"),
		Subcategory: chi.URLParam(r, "subcategory"),
	})
}

// loadProduct fetches the product named by the {id} route parameter.
func (a *API) loadProduct(r *http.Request, failure string) (*models.Product, error) {
	id := chi.URLParam(r, "id")
	if !models.ValidID(id) {
		return nil, apperr.InvalidID("Invalid product ID format")
	}
	product, err := a.products.GetProduct(r.Context(), id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return nil, apperr.NotFound("Product not found")
	case err != nil:
		return nil, apperr.Persistence(failure, err)
	}
	product.Normalize()
	return product, nil
}

func (a *API) GetProduct(w http.ResponseWriter, r *http.Request) error {
	product, err := a.loadProduct(r, "Error fetching product")
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, a.productWithURLs(r, *product))
	return nil
}

func (a *API) GetProductFeatures(w http.ResponseWriter, r *http.Request) error {
	product, err := a.loadProduct(r, "Error fetching product features")
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, product.Features)
	return nil
}

// GetProductFile streams the product's attached document.
func (a *API) GetProductFile(w http.ResponseWriter, r *http.Request) error {
	product, err := a.loadProduct(r, "Error fetching product file")
	if apperr.IsKind(err, apperr.KindNotFound) || (err == nil && product.File == "") {
		return apperr.NotFound("Product file not found")
	}
	if err != nil {
		return err
	}

	name, ok := upload.NameFromPath(product.File)
	if !ok {
		return apperr.NotFound("File not found on server")
	}
	err = a.serveBlob(w, r, name)
	switch {
	case errors.Is(err, blob.ErrNotExist):
		return apperr.NotFound("File not found on server")
	case err != nil:
		return apperr.Persistence("Error fetching product file", err)
	}
	return nil
}

// DeleteProduct removes the record first and its blobs afterwards. Blob
// removal is best effort.
func (a *API) DeleteProduct(w http.ResponseWriter, r *http.Request) error {
	id := chi.URLParam(r, "id")
	if !models.ValidID(id) {
		return apperr.InvalidID("Invalid product ID format")
	}

	ctx := r.Context()
	product, err := a.products.DeleteProduct(ctx, id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return apperr.NotFound("Product not found")
	case err != nil:
		return apperr.Persistence("Error removing product", err)
	}

	a.uploads.Remove(ctx, product.ProductImage)
	a.uploads.Remove(ctx, product.File)

	writeJSON(w, http.StatusOK, map[string]string{"message": "Product removed successfully"})
	return nil
}

type featuresRequest struct {
	Features json.RawMessage `json:"features"`
}

// AddProductFeatures appends {"features":[...]} to the stored list. Anything
// other than an array of strings leaves the product untouched.
func (a *API) AddProductFeatures(w http.ResponseWriter, r *http.Request) error {
	if _, err := a.loadProduct(r, "Error adding features to product"); err != nil {
		return err
	}

	notArray := apperr.InvalidInput("Features must be provided as an array")
	var req featuresRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody)).Decode(&req); err != nil {
		return notArray
	}
	var features []string
	if len(req.Features) == 0 || req.Features[0] != '[' {
		return notArray
	}
	if err := json.Unmarshal(req.Features, &features); err != nil {
		return notArray
	}

	product, err := a.products.AppendFeatures(r.Context(), chi.URLParam(r, "id"), features)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return apperr.NotFound("Product not found")
	case err != nil:
		return apperr.Persistence("Error adding features to product", err)
	}
	product.Normalize()

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Features added successfully",
		"product": product,
	})
	return nil
}
