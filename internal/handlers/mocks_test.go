package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/petermazzocco/go-catalog-api/internal/auth"
	"github.com/petermazzocco/go-catalog-api/internal/blob"
	"github.com/petermazzocco/go-catalog-api/internal/store"
	"github.com/petermazzocco/go-catalog-api/internal/upload"
	"github.com/petermazzocco/go-catalog-api/models"
)

// --- Mock Repository ---

type MockStore struct {
	Users     map[string]*models.User
	Products  map[string]*models.Product
	Images    map[string]*models.Image
	Enquiries []*models.QuickEnquiry
	Err       error

	lastFilter store.ProductFilter
}

func NewMockStore() *MockStore {
	return &MockStore{
		Users:    map[string]*models.User{},
		Products: map[string]*models.Product{},
		Images:   map[string]*models.Image{},
	}
}

func (m *MockStore) FindByEmail(_ context.Context, email string) (*models.User, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	u, ok := m.Users[email]
	if !ok {
		return nil, store.ErrNotFound
	}
	return u, nil
}

func (m *MockStore) CreateUser(_ context.Context, u *models.User) error {
	if m.Err != nil {
		return m.Err
	}
	u.ID = models.NewID()
	m.Users[u.Email] = u
	return nil
}

func (m *MockStore) CreateProduct(_ context.Context, p *models.Product) error {
	if m.Err != nil {
		return m.Err
	}
	p.ID = models.NewID()
	p.Normalize()
	copied := *p
	m.Products[p.ID] = &copied
	return nil
}

func (m *MockStore) ListProducts(_ context.Context, filter store.ProductFilter) ([]models.Product, error) {
	m.lastFilter = filter
	if m.Err != nil {
		return nil, m.Err
	}
	var out []models.Product
	for _, p := range m.Products {
		if filter.Category != "" && p.Category != filter.Category {
			continue
		}
		if filter.Subcategory != "" && p.Subcategory != filter.Subcategory {
			continue
		}
		out = append(out, *p)
	}
	return out, nil
}

func (m *MockStore) GetProduct(_ context.Context, id string) (*models.Product, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	p, ok := m.Products[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := *p
	return &copied, nil
}

func (m *MockStore) DeleteProduct(ctx context.Context, id string) (*models.Product, error) {
	p, err := m.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	delete(m.Products, id)
	return p, nil
}

func (m *MockStore) AppendFeatures(_ context.Context, id string, features []string) (*models.Product, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	p, ok := m.Products[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	p.Features = append(p.Features, features...)
	copied := *p
	return &copied, nil
}

func (m *MockStore) CreateImage(_ context.Context, img *models.Image) error {
	if m.Err != nil {
		return m.Err
	}
	img.ID = models.NewID()
	copied := *img
	m.Images[img.ID] = &copied
	return nil
}

func (m *MockStore) ListImages(_ context.Context) ([]models.Image, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	var out []models.Image
	for _, img := range m.Images {
		out = append(out, *img)
	}
	return out, nil
}

func (m *MockStore) DeleteImage(_ context.Context, id string) (*models.Image, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	img, ok := m.Images[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	delete(m.Images, id)
	return img, nil
}

func (m *MockStore) CreateEnquiry(_ context.Context, e *models.QuickEnquiry) error {
	if m.Err != nil {
		return m.Err
	}
	e.ID = models.NewID()
	m.Enquiries = append(m.Enquiries, e)
	return nil
}

type MockNotifier struct {
	Sent []*models.QuickEnquiry
	Err  error
}

func (n *MockNotifier) EnquiryReceived(_ context.Context, e *models.QuickEnquiry) error {
	n.Sent = append(n.Sent, e)
	return n.Err
}

// --- Helpers ---

type testEnv struct {
	api      *API
	store    *MockStore
	notifier *MockNotifier
	blobs    *blob.Disk
	dir      string
}

func newTestEnv(t *testing.T, mutate ...func(*Deps)) *testEnv {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "uploads")
	disk := blob.NewDisk(dir)
	ms := NewMockStore()
	notifier := &MockNotifier{}

	deps := Deps{
		Products:  ms,
		Images:    ms,
		Enquiries: ms,
		Auth:      auth.NewService(ms, "test-secret"),
		Uploads:   upload.New(disk, 1<<20),
		Blobs:     disk,
		Notifier:  notifier,
	}
	for _, fn := range mutate {
		fn(&deps)
	}
	return &testEnv{api: New(deps), store: ms, notifier: notifier, blobs: disk, dir: dir}
}

// serve routes req through a router holding only pattern, so chi URL
// parameters resolve the way they do in production.
func (e *testEnv) serve(method, pattern string, h HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.MethodFunc(method, pattern, e.api.Wrap(h))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) putBlob(t *testing.T, name, body string) {
	t.Helper()
	require.NoError(t, e.blobs.Put(context.Background(), name, bytes.NewBufferString(body), ""))
}

func (e *testEnv) blobCount(t *testing.T) int {
	t.Helper()
	entries, err := os.ReadDir(e.dir)
	if os.IsNotExist(err) {
		return 0
	}
	require.NoError(t, err)
	return len(entries)
}

type filePart struct {
	field, filename, contentType, body string
}

func multipartRequest(t *testing.T, target string, values map[string][]string, files ...filePart) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, vs := range values {
		for _, v := range vs {
			require.NoError(t, mw.WriteField(k, v))
		}
	}
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, f.field, f.filename))
		h.Set("Content-Type", f.contentType)
		w, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = io.WriteString(w, f.body)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body), rec.Body.String())
	return body
}
