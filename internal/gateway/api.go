package gateway

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/clawdesk/clawdesk/internal/agents"
	"github.com/clawdesk/clawdesk/internal/approval"
	"github.com/clawdesk/clawdesk/internal/bus"
	"github.com/clawdesk/clawdesk/internal/conversation"
	"github.com/clawdesk/clawdesk/internal/dispatch"
	"github.com/clawdesk/clawdesk/internal/presets"
	"github.com/clawdesk/clawdesk/internal/provider"
	"github.com/clawdesk/clawdesk/internal/scheduler"
	"github.com/clawdesk/clawdesk/internal/session"
	"github.com/clawdesk/clawdesk/internal/timeline"
)

// Handler returns the API routes.
func (h *Host) Handler() http.Handler {
	mux := http.NewServeMux()

	// API: Status (unauthenticated health check)
	mux.HandleFunc("GET /api/v1/status", h.handleStatus)

	mux.HandleFunc("POST /api/v1/chat", h.handleChat)

	mux.HandleFunc("GET /api/v1/sessions", h.handleListSessions)
	mux.HandleFunc("POST /api/v1/sessions", h.handleCreateSession)
	mux.HandleFunc("GET /api/v1/sessions/{id}", h.handleGetSession)
	mux.HandleFunc("POST /api/v1/sessions/{id}/activate", h.handleActivateSession)
	mux.HandleFunc("DELETE /api/v1/sessions/{id}", h.handleDeleteSession)

	mux.HandleFunc("GET /api/v1/agents", h.handleListAgents)
	mux.HandleFunc("POST /api/v1/agents", h.handleCreateAgent)
	mux.HandleFunc("DELETE /api/v1/agents/{id}", h.handleDeleteAgent)
	mux.HandleFunc("POST /api/v1/agents/{id}/run", h.handleRunAgent)

	mux.HandleFunc("GET /api/v1/logs", h.handleLogs)

	mux.HandleFunc("GET /api/v1/approvals", h.handleListApprovals)
	mux.HandleFunc("GET /api/v1/approvals/pending", h.handlePendingApprovals)
	mux.HandleFunc("POST /api/v1/approvals/{id}", h.handleResolveApproval)

	mux.HandleFunc("GET /api/v1/provider", h.handleGetProvider)
	mux.HandleFunc("POST /api/v1/provider", h.handleSwitchProvider)
	mux.HandleFunc("DELETE /api/v1/provider", h.handleLocalProvider)

	mux.HandleFunc("GET /api/v1/presets", h.handleListPresets)
	mux.HandleFunc("POST /api/v1/presets/{name}", h.handleCreatePreset)

	return h.withCommon(mux)
}

// withCommon sets CORS headers, answers preflight requests and checks the
// bearer token on everything except the status endpoint.
func (h *Host) withCommon(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		if r.Method == http.MethodOptions {
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.WriteHeader(http.StatusOK)
			return
		}
		if h.deps.AuthToken != "" && r.URL.Path != "/api/v1/status" {
			if !bearerMatches(r.Header.Get("Authorization"), h.deps.AuthToken) {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// bearerMatches reports whether header is "Bearer <want>". The comparison
// runs in constant time.
func bearerMatches(header, want string) bool {
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(strings.TrimSpace(token)), []byte(want)) == 1
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return false
	}
	return true
}

// errorStatus maps package sentinels to HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, timeline.ErrNotFound), errors.Is(err, session.ErrNotFound),
		errors.Is(err, presets.ErrUnknownPreset):
		return http.StatusNotFound
	case errors.Is(err, timeline.ErrAlreadyResolved):
		return http.StatusConflict
	case errors.Is(err, conversation.ErrEmptyMessage), errors.Is(err, conversation.ErrMissingAPIKey),
		errors.Is(err, provider.ErrUnknownProvider), errors.Is(err, agents.ErrInvalidAgent),
		errors.Is(err, scheduler.ErrInvalidSchedule), errors.Is(err, approval.ErrInvalidDecision):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, errorStatus(err), map[string]string{"error": err.Error()})
}

func (h *Host) handleStatus(w http.ResponseWriter, r *http.Request) {
	pending := 0
	if items, err := h.deps.Store.GetPendingApprovals(r.Context()); err == nil {
		pending = len(items)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"version":           h.deps.Version,
		"mode":              h.deps.Engine.Mode(),
		"model":             h.deps.Engine.Model(),
		"active_session":    h.deps.Sessions.Active(),
		"pending_approvals": pending,
		"uptime_seconds":    int(time.Since(h.started).Seconds()),
	})
}

func (h *Host) handleChat(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Message string `json:"message"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if strings.TrimSpace(body.Message) == "" {
		writeError(w, conversation.ErrEmptyMessage)
		return
	}

	req := bus.TurnRequested{Text: body.Message, Reply: make(chan bus.TurnResult, 1)}
	if err := h.deps.Events.Publish(r.Context(), req); err != nil {
		http.Error(w, "request cancelled", http.StatusServiceUnavailable)
		return
	}
	select {
	case res := <-req.Reply:
		if res.Err != nil {
			writeError(w, res.Err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"reply":      res.Content,
			"backend":    res.Backend,
			"fell_back":  res.FellBack,
			"session_id": res.SessionID,
		})
	case <-r.Context().Done():
	}
}

func (h *Host) handleListSessions(w http.ResponseWriter, r *http.Request) {
	list, err := h.deps.Sessions.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Host) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	s, err := h.deps.Sessions.Create(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, s)
}

func (h *Host) handleGetSession(w http.ResponseWriter, r *http.Request) {
	s, err := h.deps.Sessions.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func (h *Host) handleActivateSession(w http.ResponseWriter, r *http.Request) {
	s, err := h.deps.Sessions.Activate(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func (h *Host) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.Sessions.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Host) handleListAgents(w http.ResponseWriter, r *http.Request) {
	list, err := h.deps.Store.ListAgents(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if list == nil {
		list = []timeline.Agent{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Host) handleCreateAgent(w http.ResponseWriter, r *http.Request) {
	var body timeline.Agent
	if !decodeJSON(w, r, &body) {
		return
	}
	created, err := h.deps.Agents.Create(r.Context(), &body)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Host) handleDeleteAgent(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.Agents.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Host) handleRunAgent(w http.ResponseWriter, r *http.Request) {
	a, err := h.deps.Store.GetAgent(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	out := h.deps.Dispatcher.Dispatch(context.WithoutCancel(r.Context()), a, dispatch.TriggerManual)
	writeJSON(w, http.StatusOK, out)
}

func (h *Host) handleLogs(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}
	logs, err := h.deps.Store.GetLogs(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if logs == nil {
		logs = []timeline.ExecutionLog{}
	}
	writeJSON(w, http.StatusOK, logs)
}

func (h *Host) handleListApprovals(w http.ResponseWriter, r *http.Request) {
	items, err := h.deps.Approvals.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if items == nil {
		items = []timeline.ApprovalItem{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *Host) handlePendingApprovals(w http.ResponseWriter, r *http.Request) {
	items, err := h.deps.Approvals.ListPending(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if items == nil {
		items = []timeline.ApprovalItem{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *Host) handleResolveApproval(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Approved *bool `json:"approved"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.Approved == nil {
		http.Error(w, "approved is required", http.StatusBadRequest)
		return
	}
	res, err := h.deps.Approvals.Resolve(context.WithoutCancel(r.Context()), r.PathValue("id"), approval.DecisionFor(*body.Approved))
	if errors.Is(err, approval.ErrLogWriteFailed) {
		writeJSON(w, http.StatusOK, map[string]any{"resolution": res, "warning": err.Error()})
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"resolution": res})
}

func (h *Host) handleGetProvider(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"mode":  h.deps.Engine.Mode(),
		"model": h.deps.Engine.Model(),
	})
}

func (h *Host) handleSwitchProvider(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Provider string `json:"provider"`
		APIKey   string `json:"api_key"`
		Model    string `json:"model"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if err := h.deps.Engine.SwitchProvider(r.Context(), body.Provider, body.APIKey, body.Model); err != nil {
		writeError(w, err)
		return
	}
	h.handleGetProvider(w, r)
}

func (h *Host) handleLocalProvider(w http.ResponseWriter, r *http.Request) {
	h.deps.Engine.SwitchToLocal(r.Context())
	h.handleGetProvider(w, r)
}

func (h *Host) handleListPresets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, presets.All())
}

func (h *Host) handleCreatePreset(w http.ResponseWriter, r *http.Request) {
	p, err := presets.Get(r.PathValue("name"))
	if err != nil {
		writeError(w, err)
		return
	}
	created, err := h.deps.Agents.Create(r.Context(), p.Agent())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}
