package handler

import (
	"bytes"
	"io"
	"net/http"
	"strconv"

	"storefront/internal/model"
	"storefront/internal/service"

	"github.com/rs/zerolog"
)

// maxImageBytes caps uploaded product images.
const maxImageBytes = 5 << 20

// ProductHandler handles product-related HTTP requests.
type ProductHandler struct {
	service service.ProductService
	logger  zerolog.Logger
}

// NewProductHandler creates a new product handler.
func NewProductHandler(service service.ProductService, logger zerolog.Logger) *ProductHandler {
	return &ProductHandler{
		service: service,
		logger:  logger.With().Str("handler", "product").Logger(),
	}
}

// GetAll handles GET /api/products/ requests with pagination.
func (h *ProductHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		writeError(w, r, &validationError{fields: map[string]string{"limit": "limit must be an integer"}}, h.logger)
		return
	}

	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		writeError(w, r, &validationError{fields: map[string]string{"offset": "offset must be an integer"}}, h.logger)
		return
	}

	products, err := h.service.GetAll(r.Context(), limit, offset)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, products)
}

// GetByID handles GET /api/products/{id}/ requests.
func (h *ProductHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", model.ErrProductNotFound)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	product, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, product)
}

// Create handles POST /api/products/ requests.
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.ProductRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	product, err := h.service.Create(r.Context(), &req)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, product)
}

// Update handles PUT /api/products/{id}/ requests.
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", model.ErrProductNotFound)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	var req model.ProductRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	product, err := h.service.Update(r.Context(), id, &req)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, product)
}

// Patch handles PATCH /api/products/{id}/ requests.
func (h *ProductHandler) Patch(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", model.ErrProductNotFound)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	var req model.ProductPatchRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	product, err := h.service.Patch(r.Context(), id, &req)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, product)
}

// Delete handles DELETE /api/products/{id}/ requests.
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", model.ErrProductNotFound)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// UploadImage handles PUT /api/products/{id}/image/ multipart uploads.
// The image is read from the "image" form field and its type is sniffed from
// the content rather than trusted from the client.
func (h *ProductHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", model.ErrProductNotFound)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxImageBytes+(1<<10))
	if err := r.ParseMultipartForm(maxImageBytes); err != nil {
		writeError(w, r, model.ErrInvalidImage, h.logger)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, _, err := r.FormFile("image")
	if err != nil {
		writeError(w, r, model.ErrInvalidImage, h.logger)
		return
	}
	defer file.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, io.LimitReader(file, maxImageBytes+1)); err != nil {
		writeError(w, r, model.ErrInvalidImage, h.logger)
		return
	}
	if buf.Len() == 0 || buf.Len() > maxImageBytes {
		writeError(w, r, model.ErrInvalidImage, h.logger)
		return
	}

	body := buf.Bytes()
	product, err := h.service.SetImage(r.Context(), id, body, http.DetectContentType(body))
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, product)
}

// GetImage handles GET /api/products/{id}/image/ by streaming the stored image.
func (h *ProductHandler) GetImage(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", model.ErrProductNotFound)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	obj, err := h.service.OpenImage(r.Context(), id)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	defer obj.Body.Close()

	contentType := obj.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, obj.Body); err != nil {
		h.logger.Warn().Err(err).Int64("product_id", id).Msg("failed to stream product image")
	}
}

// queryInt parses an optional integer query parameter.
func queryInt(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}
