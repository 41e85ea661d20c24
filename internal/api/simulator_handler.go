package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"companionforge/internal/domain/simulator"
	applog "companionforge/internal/platform/log"
)

// SimulatorHandler 预览对话 API
type SimulatorHandler struct {
	svc *simulator.Service
}

func NewSimulatorHandler(svc *simulator.Service) *SimulatorHandler {
	return &SimulatorHandler{svc: svc}
}

// RegisterRoutes 注册路由
func (h *SimulatorHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1/simulator/sessions", func(r chi.Router) {
		r.Post("/", h.Start)
		r.Get("/{id}", h.Get)
		r.Post("/{id}/messages", h.Send)
	})
}

type startChatRequest struct {
	Name         string `json:"name" validate:"max=200"`
	Personality  string `json:"personality" validate:"max=2000"`
	FirstMessage string `json:"first_message" validate:"max=2000"`
}

func (h *SimulatorHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req startChatRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	t, err := h.svc.Start(r.Context(), simulator.Persona{
		Name:         req.Name,
		Personality:  req.Personality,
		FirstMessage: req.FirstMessage,
	})
	if err != nil {
		applog.Error("[Simulator] Start failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to start chat")
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (h *SimulatorHandler) Get(w http.ResponseWriter, r *http.Request) {
	t, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

type sendChatRequest struct {
	Content string `json:"content" validate:"max=4000"`
}

// Send 空白消息返回 ignored=true，不记录
func (h *SimulatorHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req sendChatRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	ex, err := h.svc.Send(r.Context(), chi.URLParam(r, "id"), req.Content)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ex)
}

func (h *SimulatorHandler) writeErr(w http.ResponseWriter, err error) {
	if errors.Is(err, simulator.ErrTranscriptNotFound) {
		writeError(w, http.StatusNotFound, "chat not found")
		return
	}
	applog.Error("[Simulator] Request failed", "error", err)
	writeError(w, http.StatusInternalServerError, "chat operation failed")
}
