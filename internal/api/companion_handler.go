package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"companionforge/internal/app/studio"
	"companionforge/internal/domain/canvas"
	"companionforge/internal/domain/companion"
	"companionforge/internal/domain/creation"
	"companionforge/internal/domain/knowledge"
	applog "companionforge/internal/platform/log"
)

// CompanionHandlerConfig CompanionHandler 依赖
type CompanionHandlerConfig struct {
	Repo        companion.Repository
	Sessions    *studio.SessionManager
	Knowledge   *knowledge.Registry
	Launches    *creation.Tracker
	MaxUploadMB int
}

// CompanionHandler 伴侣 CRUD 及其工作流、知识文件、发布流程
type CompanionHandler struct {
	repo        companion.Repository
	sessions    *studio.SessionManager
	knowledge   *knowledge.Registry
	launches    *creation.Tracker
	maxUploadMB int
}

// NewCompanionHandler 创建处理器
func NewCompanionHandler(cfg CompanionHandlerConfig) *CompanionHandler {
	if cfg.MaxUploadMB <= 0 {
		cfg.MaxUploadMB = 10
	}
	return &CompanionHandler{
		repo:        cfg.Repo,
		sessions:    cfg.Sessions,
		knowledge:   cfg.Knowledge,
		launches:    cfg.Launches,
		maxUploadMB: cfg.MaxUploadMB,
	}
}

// RegisterRoutes 注册路由（需已挂载鉴权中间件）
func (h *CompanionHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1/companions", func(r chi.Router) {
		r.Post("/", h.Create)
		r.Get("/", h.List)
		r.Get("/{id}", h.Get)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
		r.Post("/{id}/toggle", h.Toggle)

		r.Get("/{id}/workflow", h.GetWorkflow)
		r.Post("/{id}/workflow", h.AttachWorkflow)
		r.Delete("/{id}/workflow", h.DetachWorkflow)
		r.Post("/{id}/workflow/open", h.OpenWorkflow)

		r.Post("/{id}/knowledge", h.UploadKnowledge)

		r.Post("/{id}/launch", h.StartLaunch)
		r.Get("/{id}/launch", h.PollLaunch)
		r.Delete("/{id}/launch", h.CloseLaunch)
	})
}

// ActivateOnComplete 发布流程完成时把伴侣置为 active
func ActivateOnComplete(repo companion.Repository) creation.CompleteFunc {
	return func(ctx context.Context, id string) error {
		c, err := repo.GetCompanion(ctx, id)
		if err != nil {
			return err
		}
		if c == nil {
			return companion.ErrNotFound
		}
		c.Status = companion.StatusActive
		if err := repo.UpdateCompanion(ctx, c); err != nil {
			return err
		}
		applog.Info("[Companion] Activated", "companion_id", id, "name", c.DisplayName())
		return nil
	}
}

// load 读取当前用户的伴侣；不存在或不属于当前用户时已写出 404
func (h *CompanionHandler) load(w http.ResponseWriter, r *http.Request) (*companion.Companion, bool) {
	caller := CallerFrom(r.Context())
	c, err := h.repo.GetCompanion(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		applog.Error("[Companion] Get failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get companion")
		return nil, false
	}
	if c == nil || !caller.Owns(c.OwnerID) {
		writeError(w, http.StatusNotFound, "companion not found")
		return nil, false
	}
	return c, true
}

func (h *CompanionHandler) save(w http.ResponseWriter, r *http.Request, c *companion.Companion) bool {
	if err := h.repo.UpdateCompanion(r.Context(), c); err != nil {
		if errors.Is(err, companion.ErrNotFound) {
			writeError(w, http.StatusNotFound, "companion not found")
			return false
		}
		applog.Error("[Companion] Update failed", "companion_id", c.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update companion")
		return false
	}
	return true
}

// --- CRUD ---

func (h *CompanionHandler) Create(w http.ResponseWriter, r *http.Request) {
	caller := CallerFrom(r.Context())

	var draft companion.Draft
	if !decodeJSON(w, r, &draft) {
		return
	}
	c := &companion.Companion{OwnerID: caller.Subject, Status: companion.StatusDraft}
	draft.Apply(c)

	if err := h.repo.CreateCompanion(r.Context(), c); err != nil {
		applog.Error("[Companion] Create failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create companion")
		return
	}
	applog.Info("[Companion] Created", "companion_id", c.ID, "owner", c.OwnerID)
	writeJSON(w, http.StatusCreated, c)
}

func (h *CompanionHandler) List(w http.ResponseWriter, r *http.Request) {
	caller := CallerFrom(r.Context())
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	pageSize, _ := strconv.Atoi(q.Get("page_size"))

	result, err := h.repo.ListCompanions(r.Context(), companion.ListParams{
		OwnerID:  caller.Subject,
		Status:   companion.Status(q.Get("status")),
		Search:   q.Get("search"),
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		applog.Error("[Companion] List failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list companions")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *CompanionHandler) Get(w http.ResponseWriter, r *http.Request) {
	c, ok := h.load(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *CompanionHandler) Update(w http.ResponseWriter, r *http.Request) {
	c, ok := h.load(w, r)
	if !ok {
		return
	}
	var draft companion.Draft
	if !decodeJSON(w, r, &draft) {
		return
	}
	draft.Apply(c)
	if !h.save(w, r, c) {
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *CompanionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	c, ok := h.load(w, r)
	if !ok {
		return
	}
	if err := h.repo.DeleteCompanion(r.Context(), c.ID); err != nil && !errors.Is(err, companion.ErrNotFound) {
		applog.Error("[Companion] Delete failed", "companion_id", c.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete companion")
		return
	}
	h.launches.Discard(c.ID)
	writeJSON(w, http.StatusOK, nil)
}

// toggleRequest 多选字段切换。custom=true 时追加自定义条目而不是切换。
type toggleRequest struct {
	Field  string `json:"field" validate:"required,oneof=specialties adjectives action_capabilities"`
	Value  string `json:"value" validate:"required"`
	Custom bool   `json:"custom"`
}

func (h *CompanionHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	c, ok := h.load(w, r)
	if !ok {
		return
	}
	var req toggleRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	var list *[]string
	switch req.Field {
	case "specialties":
		list = &c.Specialties
	case "adjectives":
		list = &c.Adjectives
	default:
		list = &c.ActionCapabilities
	}
	if req.Custom {
		*list, _ = companion.AddCustom(*list, req.Value)
	} else {
		*list = companion.Toggle(*list, req.Value)
	}

	if !h.save(w, r, c) {
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// --- 工作流 ---

func (h *CompanionHandler) GetWorkflow(w http.ResponseWriter, r *http.Request) {
	c, ok := h.load(w, r)
	if !ok {
		return
	}
	if c.Workflow == nil {
		writeError(w, http.StatusNotFound, "no workflow attached")
		return
	}
	writeJSON(w, http.StatusOK, c.Workflow)
}

// attachWorkflowRequest 二选一：引用画布会话，或直接提交快照
type attachWorkflowRequest struct {
	SessionID string           `json:"session_id" validate:"required_without=Workflow"`
	Workflow  *canvas.Snapshot `json:"workflow" validate:"required_without=SessionID"`
}

func (h *CompanionHandler) AttachWorkflow(w http.ResponseWriter, r *http.Request) {
	c, ok := h.load(w, r)
	if !ok {
		return
	}
	var req attachWorkflowRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	var snap canvas.Snapshot
	if req.SessionID != "" {
		var err error
		snap, err = h.sessions.Snapshot(req.SessionID)
		if errors.Is(err, studio.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "canvas session not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to read canvas session")
			return
		}
	} else {
		// 校验快照一致性
		if _, err := canvas.Restore(*req.Workflow, nil); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		snap = *req.Workflow
	}

	c.Workflow = &snap
	if !h.save(w, r, c) {
		return
	}
	applog.Info("[Companion] Workflow attached", "companion_id", c.ID, "nodes", len(snap.Nodes), "edges", len(snap.Edges))
	writeJSON(w, http.StatusOK, c.Workflow)
}

func (h *CompanionHandler) DetachWorkflow(w http.ResponseWriter, r *http.Request) {
	c, ok := h.load(w, r)
	if !ok {
		return
	}
	c.Workflow = nil
	if !h.save(w, r, c) {
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

// OpenWorkflow 用已挂载的工作流新开一个画布会话继续编辑
func (h *CompanionHandler) OpenWorkflow(w http.ResponseWriter, r *http.Request) {
	c, ok := h.load(w, r)
	if !ok {
		return
	}
	if c.Workflow == nil {
		writeError(w, http.StatusNotFound, "no workflow attached")
		return
	}
	data, err := json.Marshal(c.Workflow)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to encode workflow")
		return
	}
	info, err := h.sessions.Import(data, canvas.FormatJSON)
	if err != nil {
		if errors.Is(err, studio.ErrTooManySessions) {
			writeError(w, http.StatusServiceUnavailable, "too many canvas sessions")
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, info)
}

// --- 知识文件 ---

func (h *CompanionHandler) UploadKnowledge(w http.ResponseWriter, r *http.Request) {
	c, ok := h.load(w, r)
	if !ok {
		return
	}

	limitBytes := int64(h.maxUploadMB) << 20
	r.Body = http.MaxBytesReader(w, r.Body, limitBytes+1<<20)
	if err := r.ParseMultipartForm(limitBytes); err != nil {
		writeError(w, http.StatusBadRequest, "failed to parse multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	if header.Size > limitBytes {
		writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("file size exceeds limit (%dMB)", h.maxUploadMB))
		return
	}

	summary, err := h.knowledge.Ingest(header.Filename, file, limitBytes)
	switch {
	case errors.Is(err, knowledge.ErrUnsupportedType):
		writeError(w, http.StatusUnsupportedMediaType, err.Error())
		return
	case errors.Is(err, knowledge.ErrTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("file size exceeds limit (%dMB)", h.maxUploadMB))
		return
	case errors.Is(err, knowledge.ErrEmpty):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	case err != nil:
		applog.Warn("[Knowledge] Parse failed", "companion_id", c.ID, "filename", header.Filename, "error", err)
		writeError(w, http.StatusUnprocessableEntity, "failed to extract text from file")
		return
	}

	doc := companion.KnowledgeDocument{
		Filename:   summary.Filename,
		Format:     summary.Format,
		Pages:      summary.Pages,
		Characters: summary.Characters,
		Excerpt:    summary.Excerpt,
		UploadedAt: time.Now(),
	}
	c.KnowledgeDocuments = append(c.KnowledgeDocuments, doc)
	if !h.save(w, r, c) {
		return
	}
	applog.Info("[Knowledge] Document attached",
		"companion_id", c.ID,
		"filename", doc.Filename,
		"format", doc.Format,
		"characters", doc.Characters,
	)
	writeJSON(w, http.StatusCreated, doc)
}

// --- 发布流程 ---

func (h *CompanionHandler) StartLaunch(w http.ResponseWriter, r *http.Request) {
	c, ok := h.load(w, r)
	if !ok {
		return
	}
	c.Status = companion.StatusCreating
	if !h.save(w, r, c) {
		return
	}
	writeJSON(w, http.StatusAccepted, h.launches.Start(c.ID))
}

func (h *CompanionHandler) PollLaunch(w http.ResponseWriter, r *http.Request) {
	c, ok := h.load(w, r)
	if !ok {
		return
	}
	p, err := h.launches.Poll(r.Context(), c.ID)
	if errors.Is(err, creation.ErrRunNotFound) {
		writeError(w, http.StatusNotFound, "no launch in progress")
		return
	}
	if err != nil {
		applog.Error("[Creation] Completion failed", "companion_id", c.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to finalize companion")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// CloseLaunch 仅在流程完成后允许关闭
func (h *CompanionHandler) CloseLaunch(w http.ResponseWriter, r *http.Request) {
	c, ok := h.load(w, r)
	if !ok {
		return
	}
	closed, err := h.launches.Close(r.Context(), c.ID)
	if errors.Is(err, creation.ErrRunNotFound) {
		writeError(w, http.StatusNotFound, "no launch in progress")
		return
	}
	if err != nil {
		applog.Error("[Creation] Completion failed", "companion_id", c.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to finalize companion")
		return
	}
	if !closed {
		writeError(w, http.StatusConflict, "launch still in progress")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"closed": true})
}
