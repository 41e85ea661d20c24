package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"companionforge/internal/app/studio"
	"companionforge/internal/domain/canvas"
	applog "companionforge/internal/platform/log"
)

// maxImportBytes 导入的画布文件上限
const maxImportBytes = 4 << 20

// CanvasHandler 调色板与画布会话 API
type CanvasHandler struct {
	sessions *studio.SessionManager
}

// NewCanvasHandler 创建处理器
func NewCanvasHandler(sessions *studio.SessionManager) *CanvasHandler {
	return &CanvasHandler{sessions: sessions}
}

// RegisterRoutes 注册路由
func (h *CanvasHandler) RegisterRoutes(r chi.Router) {
	r.Get("/api/v1/palette", h.Palette)
	r.Get("/api/v1/palette/{type}/schema", h.TypeSchema)

	r.Route("/api/v1/canvas", func(r chi.Router) {
		r.Post("/import", h.Import)
		r.Post("/sessions", h.CreateSession)
		r.Get("/sessions", h.ListSessions)
		r.Get("/sessions/{id}", h.GetSession)
		r.Delete("/sessions/{id}", h.DeleteSession)
		r.Post("/sessions/{id}/drop", h.Drop)
		r.Post("/sessions/{id}/connect", h.Connect)
		r.Get("/sessions/{id}/nodes/{nodeID}/schema", h.NodeSchema)
		r.Put("/sessions/{id}/nodes/{nodeID}/config", h.UpdateConfig)
		r.Get("/sessions/{id}/export", h.Export)
	})
}

func (h *CanvasHandler) Palette(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, canvas.Palette())
}

func (h *CanvasHandler) TypeSchema(w http.ResponseWriter, r *http.Request) {
	t := canvas.NodeType(chi.URLParam(r, "type"))
	writeJSON(w, http.StatusOK, canvas.DefaultSchemas().Lookup(t))
}

func (h *CanvasHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	info, err := h.sessions.Create()
	if err != nil {
		h.writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, info)
}

func (h *CanvasHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.sessions.List())
}

type sessionView struct {
	studio.SessionInfo
	Workflow canvas.Snapshot `json:"workflow"`
}

func (h *CanvasHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	info, snap, err := h.sessions.View(chi.URLParam(r, "id"))
	if err != nil {
		h.writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionView{SessionInfo: info, Workflow: snap})
}

func (h *CanvasHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Delete(chi.URLParam(r, "id")); err != nil {
		h.writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

// dropRequest 拖放事件。type 为调色板条目的类型标签；x/y 为屏幕坐标。
type dropRequest struct {
	Type      string           `json:"type"`
	X         float64          `json:"x"`
	Y         float64          `json:"y"`
	Viewport  *canvas.Viewport `json:"viewport,omitempty"`
	Container *canvas.Bounds   `json:"container,omitempty"`
}

func (req dropRequest) projector() canvas.Projector {
	if req.Viewport == nil && req.Container == nil {
		return canvas.IdentityProjector
	}
	vp := canvas.ViewportProjector{Container: req.Container}
	if req.Viewport != nil {
		vp.Viewport = *req.Viewport
	}
	return vp
}

type dropResponse struct {
	Ignored bool         `json:"ignored"`
	Node    *canvas.Node `json:"node,omitempty"`
	Edge    *canvas.Edge `json:"edge,omitempty"`
}

func (h *CanvasHandler) Drop(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req dropRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, ok, err := h.sessions.Drop(id, req.Type, canvas.Point{X: req.X, Y: req.Y}, req.projector())
	if err != nil {
		h.writeSessionError(w, err)
		return
	}
	if !ok {
		writeJSON(w, http.StatusOK, dropResponse{Ignored: true})
		return
	}
	writeJSON(w, http.StatusCreated, dropResponse{Node: &res.Node, Edge: res.Edge})
}

type connectRequest struct {
	Source string `json:"source" validate:"required"`
	Target string `json:"target" validate:"required"`
}

func (h *CanvasHandler) Connect(w http.ResponseWriter, r *http.Request) {
	var req connectRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	edge, err := h.sessions.Connect(chi.URLParam(r, "id"), req.Source, req.Target)
	if err != nil {
		h.writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, edge)
}

func (h *CanvasHandler) NodeSchema(w http.ResponseWriter, r *http.Request) {
	schema, err := h.sessions.NodeSchema(chi.URLParam(r, "id"), chi.URLParam(r, "nodeID"))
	if err != nil {
		h.writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, schema)
}

type updateConfigRequest struct {
	Field string `json:"field" validate:"required"`
	Value string `json:"value"`
}

func (h *CanvasHandler) UpdateConfig(w http.ResponseWriter, r *http.Request) {
	var req updateConfigRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	node, err := h.sessions.UpdateConfig(chi.URLParam(r, "id"), chi.URLParam(r, "nodeID"), req.Field, req.Value)
	if err != nil {
		h.writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, node)
}

// Export 以附件形式返回 JSON 或 YAML
func (h *CanvasHandler) Export(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	format := canvas.ParseFormat(r.URL.Query().Get("format"))

	data, err := h.sessions.Export(id, format)
	if err != nil {
		h.writeSessionError(w, err)
		return
	}

	contentType := "application/json"
	if format == canvas.FormatYAML {
		contentType = "application/yaml"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="workflow-%s.%s"`, id, format))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// Import 请求体为导出文件原文，?format=yaml 时按 YAML 解析
func (h *CanvasHandler) Import(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxImportBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}
	if len(data) > maxImportBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "workflow file too large")
		return
	}
	info, err := h.sessions.Import(data, canvas.ParseFormat(r.URL.Query().Get("format")))
	if err != nil {
		h.writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, info)
}

func (h *CanvasHandler) writeSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, studio.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, "canvas session not found")
	case errors.Is(err, studio.ErrTooManySessions):
		writeError(w, http.StatusServiceUnavailable, "too many canvas sessions")
	case errors.Is(err, canvas.ErrNodeNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, canvas.ErrUnknownField),
		errors.Is(err, canvas.ErrInvalidFieldValue),
		errors.Is(err, canvas.ErrInvalidSnapshot):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		applog.Error("[Canvas] Request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "canvas operation failed")
	}
}
