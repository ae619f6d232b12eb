package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petermazzocco/go-catalog-api/internal/store"
	"github.com/petermazzocco/go-catalog-api/models"
)

var productFields = map[string][]string{
	"name":        {"Pressure gauge"},
	"description": {"Bourdon tube gauge"},
	"category":    {"gauges"},
	"subcategory": {"analog"},
	"features":    {"IP65", "0-10 bar"},
}

func TestHandleCreateProduct(t *testing.T) {
	testCases := []struct {
		name               string
		values             map[string][]string
		files              []filePart
		storeErr           error
		expectedStatusCode int
		checkResponse      func(t *testing.T, env *testEnv, body map[string]any)
	}{
		{
			name:   "Success with image and document",
			values: productFields,
			files: []filePart{
				{"productImage", "gauge.png", "image/png", "PNG"},
				{"file", "manual.pdf", "application/pdf", "%PDF"},
			},
			expectedStatusCode: http.StatusCreated,
			checkResponse: func(t *testing.T, env *testEnv, body map[string]any) {
				assert.Equal(t, "Product created successfully", body["message"])
				product := body["product"].(map[string]any)
				assert.Equal(t, "Pressure gauge", product["name"])
				assert.Equal(t, []any{"IP65", "0-10 bar"}, product["features"])
				assert.True(t, strings.HasPrefix(product["productImage"].(string), "http://example.com/uploads/"))
				assert.True(t, strings.HasSuffix(product["file"].(string), "-manual.pdf"))
				assert.Equal(t, 2, env.blobCount(t))

				require.Len(t, env.store.Products, 1)
				for _, p := range env.store.Products {
					assert.True(t, strings.HasPrefix(p.ProductImage, "uploads/"), "stored paths stay relative")
				}
			},
		},
		{
			name: "Features default to empty",
			values: map[string][]string{
				"name": {"Valve"}, "description": {"Ball valve"}, "category": {"valves"},
			},
			expectedStatusCode: http.StatusCreated,
			checkResponse: func(t *testing.T, env *testEnv, body map[string]any) {
				product := body["product"].(map[string]any)
				assert.Equal(t, []any{}, product["features"])
				assert.Equal(t, "", product["productImage"])
				assert.NotContains(t, product, "subcategory")
			},
		},
		{
			name: "Bracket style features",
			values: map[string][]string{
				"name": {"Valve"}, "description": {"Ball valve"}, "category": {"valves"}, "features[]": {"brass"},
			},
			expectedStatusCode: http.StatusCreated,
			checkResponse: func(t *testing.T, env *testEnv, body map[string]any) {
				assert.Equal(t, []any{"brass"}, body["product"].(map[string]any)["features"])
			},
		},
		{
			name:               "Missing name",
			values:             map[string][]string{"description": {"x"}, "category": {"y"}},
			files:              []filePart{{"productImage", "gauge.png", "image/png", "PNG"}},
			expectedStatusCode: http.StatusUnprocessableEntity,
			checkResponse: func(t *testing.T, env *testEnv, body map[string]any) {
				assert.Equal(t, `"name" is required`, body["message"])
				assert.Equal(t, 0, env.blobCount(t), "nothing written on validation failure")
			},
		},
		{
			name:               "Disallowed file type",
			values:             productFields,
			files:              []filePart{{"file", "setup.exe", "application/x-msdownload", "MZ"}},
			expectedStatusCode: http.StatusBadRequest,
			checkResponse: func(t *testing.T, env *testEnv, body map[string]any) {
				assert.Equal(t, "Error uploading files", body["error"])
				assert.Equal(t, "Invalid file type. Only JPEG, PNG, PDF files are allowed.", body["details"])
				assert.Empty(t, env.store.Products)
			},
		},
		{
			name:               "Repository error discards blobs",
			values:             productFields,
			files:              []filePart{{"productImage", "gauge.png", "image/png", "PNG"}},
			storeErr:           errors.New("db connection lost"),
			expectedStatusCode: http.StatusInternalServerError,
			checkResponse: func(t *testing.T, env *testEnv, body map[string]any) {
				assert.Equal(t, "Error saving product", body["error"])
				assert.NotContains(t, body, "details", "cause hidden outside debug mode")
				assert.Equal(t, 0, env.blobCount(t))
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.store.Err = tc.storeErr
			req := multipartRequest(t, "/products", tc.values, tc.files...)

			rec := env.serve(http.MethodPost, "/products", env.api.CreateProduct, req)

			assert.Equal(t, tc.expectedStatusCode, rec.Code)
			tc.checkResponse(t, env, decodeBody(t, rec))
		})
	}
}

func TestHandleGetProduct(t *testing.T) {
	env := newTestEnv(t, func(d *Deps) { d.PathPrefix = "/app1/" })
	p := &models.Product{Name: "Gauge", Description: "d", Category: "gauges", ProductImage: "uploads/a b.png"}
	require.NoError(t, env.store.CreateProduct(context.Background(), p))

	testCases := []struct {
		name               string
		id                 string
		expectedStatusCode int
		expectedKey        string
		expectedValue      string
	}{
		{"Invalid id", "abc", http.StatusBadRequest, "error", "Invalid product ID format"},
		{"Not found", models.NewID(), http.StatusNotFound, "error", "Product not found"},
		{"Success", p.ID, http.StatusOK, "productImage", "https://shop.example.com/app1/uploads/a%20b.png"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/getProductsById/"+tc.id, nil)
			req.Host = "shop.example.com"
			req.Header.Set("X-Forwarded-Proto", "https")

			rec := env.serve(http.MethodGet, "/getProductsById/{id}", env.api.GetProduct, req)

			assert.Equal(t, tc.expectedStatusCode, rec.Code)
			assert.Equal(t, tc.expectedValue, decodeBody(t, rec)[tc.expectedKey])
		})
	}
}

func TestHandleListProducts(t *testing.T) {
	env := newTestEnv(t)
	for _, p := range []*models.Product{
		{Name: "A", Description: "d", Category: "gauges", Subcategory: "analog", ProductImage: "uploads/a.png"},
		{Name: "B", Description: "d", Category: "gauges", Subcategory: "digital"},
		{Name: "C", Description: "d", Category: "valves"},
	} {
		require.NoError(t, env.store.CreateProduct(context.Background(), p))
	}

	t.Run("All products keep relative paths", func(t *testing.T) {
		rec := env.serve(http.MethodGet, "/products", env.api.ListProducts, httptest.NewRequest(http.MethodGet, "/products", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"productImage":"uploads/a.png"`)
	})

	t.Run("By category", func(t *testing.T) {
		rec := env.serve(http.MethodGet, "/products/{category}", env.api.ListProductsByCategory,
			httptest.NewRequest(http.MethodGet, "/products/gauges", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, store.ProductFilter{Category: "gauges"}, env.store.lastFilter)
	})

	t.Run("By subcategory", func(t *testing.T) {
		rec := env.serve(http.MethodGet, "/products/{category}/{subcategory}", env.api.ListProductsBySubcategory,
			httptest.NewRequest(http.MethodGet, "/products/gauges/digital", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, store.ProductFilter{Category: "gauges", Subcategory: "digital"}, env.store.lastFilter)
		assert.Contains(t, rec.Body.String(), `"name":"B"`)
		assert.NotContains(t, rec.Body.String(), `"name":"A"`)
	})

	t.Run("No match is an empty array", func(t *testing.T) {
		rec := env.serve(http.MethodGet, "/products/{category}", env.api.ListProductsByCategory,
			httptest.NewRequest(http.MethodGet, "/products/pumps", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `[]`, rec.Body.String())
	})
}

func TestHandleProductFeatures(t *testing.T) {
	env := newTestEnv(t)
	p := &models.Product{Name: "Gauge", Description: "d", Category: "gauges"}
	require.NoError(t, env.store.CreateProduct(context.Background(), p))

	get := func() *httptest.ResponseRecorder {
		return env.serve(http.MethodGet, "/{id}/features", env.api.GetProductFeatures,
			httptest.NewRequest(http.MethodGet, "/"+p.ID+"/features", nil))
	}
	add := func(id, body string) *httptest.ResponseRecorder {
		return env.serve(http.MethodPost, "/{id}/features", env.api.AddProductFeatures,
			jsonRequest(http.MethodPost, "/"+id+"/features", body))
	}

	rec := get()
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	for _, body := range []string{`{"features":"IP65"}`, `{"features":null}`, `{}`, `{"features":[1,2]}`, `not json`} {
		rec = add(p.ID, body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.Equal(t, "Features must be provided as an array", decodeBody(t, rec)["error"])
	}
	assert.JSONEq(t, `[]`, get().Body.String(), "rejected requests leave features untouched")

	rec = add(p.ID, `{"features":["IP65"]}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "Features added successfully", body["message"])
	assert.Equal(t, []any{"IP65"}, body["product"].(map[string]any)["features"])

	rec = add(p.ID, `{"features":["0-10 bar","IP65"]}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `["IP65","0-10 bar","IP65"]`, get().Body.String())

	assert.Equal(t, http.StatusBadRequest, add("abc", `{"features":["x"]}`).Code)
	assert.Equal(t, http.StatusNotFound, add(models.NewID(), `{"features":["x"]}`).Code)
}

func TestHandleGetProductFile(t *testing.T) {
	env := newTestEnv(t)
	env.putBlob(t, "abc-manual.pdf", "%PDF-1.4 body")

	withFile := &models.Product{Name: "A", Description: "d", Category: "c", File: "uploads/abc-manual.pdf"}
	noFile := &models.Product{Name: "B", Description: "d", Category: "c"}
	missingBlob := &models.Product{Name: "C", Description: "d", Category: "c", File: "uploads/gone.pdf"}
	for _, p := range []*models.Product{withFile, noFile, missingBlob} {
		require.NoError(t, env.store.CreateProduct(context.Background(), p))
	}

	testCases := []struct {
		name               string
		id                 string
		expectedStatusCode int
		expectedBody       string
	}{
		{"Streams the document", withFile.ID, http.StatusOK, "%PDF-1.4 body"},
		{"Product without file", noFile.ID, http.StatusNotFound, `{"error":"Product file not found"}`},
		{"Unknown product", models.NewID(), http.StatusNotFound, `{"error":"Product file not found"}`},
		{"Blob missing on disk", missingBlob.ID, http.StatusNotFound, `{"error":"File not found on server"}`},
		{"Invalid id", "abc", http.StatusBadRequest, `{"error":"Invalid product ID format"}`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec := env.serve(http.MethodGet, "/{id}/file", env.api.GetProductFile,
				httptest.NewRequest(http.MethodGet, "/"+tc.id+"/file", nil))

			assert.Equal(t, tc.expectedStatusCode, rec.Code)
			if tc.expectedStatusCode == http.StatusOK {
				assert.Equal(t, tc.expectedBody, rec.Body.String())
				assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
			} else {
				assert.JSONEq(t, tc.expectedBody, rec.Body.String())
			}
		})
	}
}

func TestHandleDeleteProduct(t *testing.T) {
	env := newTestEnv(t)
	env.putBlob(t, "img-gauge.png", "PNG")
	env.putBlob(t, "doc-manual.pdf", "%PDF")
	p := &models.Product{
		Name: "Gauge", Description: "d", Category: "c",
		ProductImage: "uploads/img-gauge.png", File: "uploads/doc-manual.pdf",
	}
	require.NoError(t, env.store.CreateProduct(context.Background(), p))
	orphan := &models.Product{Name: "Orphan", Description: "d", Category: "c", File: "uploads/never-written.pdf"}
	require.NoError(t, env.store.CreateProduct(context.Background(), orphan))

	del := func(id string) *httptest.ResponseRecorder {
		return env.serve(http.MethodDelete, "/products/{id}", env.api.DeleteProduct,
			httptest.NewRequest(http.MethodDelete, "/products/"+id, nil))
	}

	rec := del(p.ID)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Product removed successfully", decodeBody(t, rec)["message"])
	assert.Equal(t, 0, env.blobCount(t))
	assert.NotContains(t, env.store.Products, p.ID)

	assert.Equal(t, http.StatusOK, del(orphan.ID).Code, "missing blobs are ignored")
	assert.Equal(t, http.StatusNotFound, del(p.ID).Code)
	assert.Equal(t, http.StatusBadRequest, del("abc").Code)
}
