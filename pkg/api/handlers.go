package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/blueberry-browser/blueberry-go/pkg/memory"
	"github.com/blueberry-browser/blueberry-go/pkg/model"
	"github.com/blueberry-browser/blueberry-go/pkg/suggestion"
	"github.com/blueberry-browser/blueberry-go/pkg/telemetry"
	"github.com/blueberry-browser/blueberry-go/pkg/workflow"
)

type HealthHandler struct {
	events *telemetry.Service
}

func NewHealthHandler(events *telemetry.Service) *HealthHandler {
	return &HealthHandler{events: events}
}

type healthResponse struct {
	Status     string `json:"status"`
	EventCount int    `json:"eventCount"`
	Error      string `json:"error,omitempty"`
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	count, err := h.events.Count(r.Context())
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "degraded", Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", EventCount: count})
}

type EventHandler struct {
	events *telemetry.Service
}

func NewEventHandler(events *telemetry.Service) *EventHandler {
	return &EventHandler{events: events}
}

type recordEventRequest struct {
	TabID        string                 `json:"tabId"`
	Title        string                 `json:"title"`
	URL          string                 `json:"url"`
	EventType    string                 `json:"eventType"`
	Metadata     map[string]interface{} `json:"metadata"`
	LastActiveAt int64                  `json:"lastActiveAt"`
}

// List handles GET /events
func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	page, err := h.events.List(r.Context(), telemetry.ListOptions{
		EventType: r.URL.Query().Get("eventType"),
		Limit:     limit,
		Offset:    offset,
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// Record handles POST /events
func (h *EventHandler) Record(w http.ResponseWriter, r *http.Request) {
	var req recordEventRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	event, err := h.events.Append(r.Context(), telemetry.EventInput{
		TabID:        req.TabID,
		Title:        req.Title,
		URL:          req.URL,
		EventType:    req.EventType,
		Metadata:     req.Metadata,
		LastActiveAt: req.LastActiveAt,
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, event)
}

type MemoryHandler struct {
	memories *memory.Service
}

func NewMemoryHandler(memories *memory.Service) *MemoryHandler {
	return &MemoryHandler{memories: memories}
}

type addMemoryRequest struct {
	Content  string                 `json:"content"`
	Type     model.MemoryKind       `json:"type"`
	Metadata map[string]interface{} `json:"metadata"`
	ChatID   string                 `json:"chatId"`
}

type searchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

type searchResponse struct {
	Results interface{} `json:"results"`
}

// List handles GET /memories
func (h *MemoryHandler) List(w http.ResponseWriter, r *http.Request) {
	opts := memory.ListOptions{
		Kind:   model.MemoryKind(r.URL.Query().Get("type")),
		Search: r.URL.Query().Get("search"),
	}

	var err error
	if opts.Limit, err = queryInt(r, "limit", 0); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if opts.Offset, err = queryInt(r, "offset", 0); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if opts.StartTime, err = queryInt64(r, "startTime"); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if opts.EndTime, err = queryInt64(r, "endTime"); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	page, err := h.memories.List(r.Context(), opts)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// Add handles POST /memories
func (h *MemoryHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req addMemoryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	entry, err := h.memories.Add(r.Context(), req.Content, req.Type,
		memory.WithMetadata(req.Metadata),
		memory.WithChatID(req.ChatID),
	)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

// Get handles GET /memories/{id}
func (h *MemoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	entry, err := h.memories.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// Search handles POST /memories/search
func (h *MemoryHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	results, err := h.memories.SearchSimilar(r.Context(), req.Query, req.Limit)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, searchResponse{Results: results})
}

type SuggestionHandler struct {
	engine   *suggestion.Engine
	executor *workflow.Executor
}

func NewSuggestionHandler(engine *suggestion.Engine, executor *workflow.Executor) *SuggestionHandler {
	return &SuggestionHandler{engine: engine, executor: executor}
}

type listSuggestionsResponse struct {
	Suggestions []*model.Suggestion `json:"suggestions"`
}

type analyzeResponse struct {
	Ran bool `json:"ran"`
}

type runResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// List handles GET /suggestions
func (h *SuggestionHandler) List(w http.ResponseWriter, r *http.Request) {
	status := model.SuggestionStatus(r.URL.Query().Get("status"))

	list, err := h.engine.List(r.Context(), status)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	if list == nil {
		list = []*model.Suggestion{}
	}
	writeJSON(w, http.StatusOK, listSuggestionsResponse{Suggestions: list})
}

// Get handles GET /suggestions/{id}
func (h *SuggestionHandler) Get(w http.ResponseWriter, r *http.Request) {
	sg, err := h.engine.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sg)
}

// Accept handles POST /suggestions/{id}/accept
func (h *SuggestionHandler) Accept(w http.ResponseWriter, r *http.Request) {
	sg, err := h.engine.Accept(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sg)
}

// Reject handles POST /suggestions/{id}/reject
func (h *SuggestionHandler) Reject(w http.ResponseWriter, r *http.Request) {
	sg, err := h.engine.Reject(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sg)
}

// Run handles POST /suggestions/{id}/run
func (h *SuggestionHandler) Run(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if h.executor == nil {
		writeError(w, http.StatusServiceUnavailable, "no browser surface attached")
		return
	}
	if err := h.executor.RunSuggestion(r.Context(), id); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, runResponse{ID: id, Status: "completed"})
}

// Analyze handles POST /analyze. It reports whether a run took place; a
// request arriving while an analysis is in flight is dropped.
func (h *SuggestionHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	ran := h.engine.AnalyzePatterns(r.Context())
	writeJSON(w, http.StatusOK, analyzeResponse{Ran: ran})
}
