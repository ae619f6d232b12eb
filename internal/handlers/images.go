package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/petermazzocco/go-catalog-api/internal/apperr"
	"github.com/petermazzocco/go-catalog-api/internal/store"
	"github.com/petermazzocco/go-catalog-api/internal/upload"
	"github.com/petermazzocco/go-catalog-api/models"
)

var headerImageRules = []upload.Rule{{Field: "headerImage", MaxCount: 1}}

// CreateImage stores a single headerImage upload as a gallery entry.
func (a *API) CreateImage(w http.ResponseWriter, r *http.Request) error {
	form, err := a.uploads.Parse(w, r, headerImageRules, upload.ImageTypes)
	if err != nil {
		return apperr.Upload("Error uploading header image", err.Error())
	}
	defer form.Close()

	if !form.HasFile("headerImage") {
		return apperr.Upload("headerImage is required", "")
	}

	ctx := r.Context()
	files, err := form.Store(ctx)
	if err != nil {
		return apperr.Persistence("Error uploading header image", err)
	}

	image := &models.Image{HeaderImage: files.Path("headerImage")}
	if err := a.images.CreateImage(ctx, image); err != nil {
		a.uploads.Discard(ctx, files)
		return apperr.Persistence("Error saving image", err)
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Image created successfully",
		"image":   a.imageWithURL(r, *image),
	})
	return nil
}

func (a *API) ListImages(w http.ResponseWriter, r *http.Request) error {
	images, err := a.images.ListImages(r.Context())
	if err != nil {
		return apperr.Persistence("Error fetching images", err)
	}
	out := make([]models.Image, 0, len(images))
	for _, img := range images {
		out = append(out, a.imageWithURL(r, img))
	}
	writeJSON(w, http.StatusOK, out)
	return nil
}

func (a *API) DeleteImage(w http.ResponseWriter, r *http.Request) error {
	id := chi.URLParam(r, "id")
	if !models.ValidID(id) {
		return apperr.InvalidID("Invalid ID format").WithKey("message")
	}

	ctx := r.Context()
	image, err := a.images.DeleteImage(ctx, id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return apperr.NotFound("Image not found").WithKey("message")
	case err != nil:
		return apperr.Persistence("Error deleting image", err)
	}

	a.uploads.Remove(ctx, image.HeaderImage)

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Image deleted successfully",
		"image":   image,
	})
	return nil
}
