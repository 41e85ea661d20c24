package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"companionforge/internal/domain/companion"
)

// GalleryHandler 展示墙与创建表单目录（只读、无需登录）
type GalleryHandler struct {
	catalog companion.Catalog
}

func NewGalleryHandler() *GalleryHandler {
	return &GalleryHandler{catalog: companion.DefaultCatalog()}
}

// RegisterRoutes 注册路由
func (h *GalleryHandler) RegisterRoutes(r chi.Router) {
	r.Get("/api/v1/gallery", h.List)
	r.Get("/api/v1/gallery/{id}", h.Get)
	r.Get("/api/v1/catalog", h.Catalog)
}

func (h *GalleryHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, companion.Gallery())
}

func (h *GalleryHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid agent id")
		return
	}
	agent, ok := companion.GalleryAgent(id)
	if !ok {
		writeError(w, http.StatusNotFound, "agent not found")
		return
	}
	writeJSON(w, http.StatusOK, agent)
}

func (h *GalleryHandler) Catalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.catalog)
}
