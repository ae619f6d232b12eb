package handlers

import (
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/petermazzocco/go-catalog-api/internal/apperr"
	"github.com/petermazzocco/go-catalog-api/internal/blob"
	"github.com/petermazzocco/go-catalog-api/models"
)

func requestScheme(r *http.Request) string {
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		first, _, _ := strings.Cut(proto, ",")
		return strings.ToLower(strings.TrimSpace(first))
	}
	if r.TLS != nil {
		return "https"
	}
	return "http"
}

// publicURL turns a stored relative path into an absolute URL for the host
// the request came in on. Empty paths stay empty.
func (a *API) publicURL(r *http.Request, relPath string) string {
	if relPath == "" {
		return ""
	}
	u := url.URL{
		Scheme: requestScheme(r),
		Host:   r.Host,
		Path:   a.pathPrefix + "/" + strings.TrimPrefix(relPath, "/"),
	}
	return u.String()
}

func (a *API) productWithURLs(r *http.Request, p models.Product) models.Product {
	p.Normalize()
	p.ProductImage = a.publicURL(r, p.ProductImage)
	p.File = a.publicURL(r, p.File)
	return p
}

func (a *API) imageWithURL(r *http.Request, img models.Image) models.Image {
	img.HeaderImage = a.publicURL(r, img.HeaderImage)
	return img
}

// serveBlob streams a stored blob. Seekable bodies go through
// http.ServeContent for range and conditional request support.
func (a *API) serveBlob(w http.ResponseWriter, r *http.Request, name string) error {
	obj, err := a.blobs.Open(r.Context(), name)
	if err != nil {
		return err
	}
	defer obj.Body.Close()

	if obj.ContentType != "" {
		w.Header().Set("Content-Type", obj.ContentType)
	}
	if rs, ok := obj.Body.(io.ReadSeeker); ok {
		http.ServeContent(w, r, name, obj.ModTime, rs)
		return nil
	}

	if obj.Size >= 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(obj.Size, 10))
	}
	if _, err := io.Copy(w, obj.Body); err != nil {
		zap.L().Warn("failed to stream blob", zap.String("name", name), zap.Error(err))
	}
	return nil
}

// ServeUpload serves a blob by name. It expects the mount prefix to be
// stripped from the request path already.
func (a *API) ServeUpload(w http.ResponseWriter, r *http.Request) error {
	name := strings.TrimPrefix(r.URL.Path, "/")
	if !blob.ValidName(name) {
		return apperr.NotFound("File not found")
	}
	err := a.serveBlob(w, r, name)
	if errors.Is(err, blob.ErrNotExist) {
		return apperr.NotFound("File not found")
	}
	return err
}
