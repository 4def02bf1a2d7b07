package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"docassist/internal/contextutil"
	"docassist/internal/docstore"
	"docassist/internal/llm"
	"docassist/internal/metrics"
	"docassist/internal/rag"
)

// ChatHandler runs one streamed chat turn over Server-Sent Events.
type ChatHandler struct {
	engine  *rag.Engine
	docs    *docstore.Store
	metrics *metrics.Metrics
}

// NewChatHandler creates a new ChatHandler.
func NewChatHandler(engine *rag.Engine, docs *docstore.Store, m *metrics.Metrics) *ChatHandler {
	return &ChatHandler{
		engine:  engine,
		docs:    docs,
		metrics: m,
	}
}

// ChatRequest represents the HTTP request payload for a chat turn.
type ChatRequest struct {
	Message      string        `json:"message"`
	CollectionID string        `json:"collection_id"`
	History      []ChatMessage `json:"history,omitempty"`
}

// ChatMessage is one prior turn in the conversation history.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func (h *ChatHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		logger.WarnContext(ctx, "empty chat message")
		writeError(ctx, w, http.StatusBadRequest, "message is required")
		return
	}
	if req.CollectionID == "" {
		logger.WarnContext(ctx, "missing collection id")
		writeError(ctx, w, http.StatusBadRequest, "collection_id is required")
		return
	}

	// Unknown documents fail as plain JSON before the stream starts; once
	// streaming begins errors can only arrive as SSE error frames.
	if !h.docs.Has(req.CollectionID) {
		logger.WarnContext(ctx, "chat for unknown document", "collection_id", req.CollectionID)
		writeError(ctx, w, http.StatusNotFound, "document not found")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		logger.ErrorContext(ctx, "streaming not supported by response writer")
		writeError(ctx, w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	history := make([]llm.Message, len(req.History))
	for i, msg := range req.History {
		history[i] = llm.Message{Role: msg.Role, Content: msg.Content}
	}

	h.metrics.StreamOpened()
	defer h.metrics.StreamClosed()

	events := h.engine.StreamAnswer(ctx, rag.ChatRequest{
		DocumentID: req.CollectionID,
		Message:    req.Message,
		History:    history,
	})
	for ev := range events {
		data, err := json.Marshal(frameFor(ev))
		if err != nil {
			logger.ErrorContext(ctx, "failed to marshal event", "error", err)
			continue
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			logger.InfoContext(ctx, "client went away", "error", err)
			return
		}
		flusher.Flush()
	}
}

// frameFor converts an engine event into its wire frame. Sources marshal
// without omitempty so an empty turn still sends an explicit empty list.
func frameFor(ev rag.Event) any {
	switch ev := ev.(type) {
	case rag.ContentEvent:
		return struct {
			Type    string `json:"type"`
			Content string `json:"content"`
		}{Type: "content", Content: ev.Content}
	case rag.SourcesEvent:
		return struct {
			Type    string       `json:"type"`
			Sources []rag.Source `json:"sources"`
		}{Type: "sources", Sources: ev.Sources}
	case rag.ErrorEvent:
		return struct {
			Type  string `json:"type"`
			Error string `json:"error"`
		}{Type: "error", Error: ev.Message}
	case rag.DoneEvent:
		return struct {
			Type string `json:"type"`
		}{Type: "done"}
	default:
		return struct {
			Type string `json:"type"`
		}{Type: "error"}
	}
}
