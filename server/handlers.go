package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/tomhall/chatstack/agent"
	"github.com/tomhall/chatstack/llm"
	"github.com/tomhall/chatstack/memory"
	"github.com/tomhall/chatstack/rag"
	"github.com/tomhall/chatstack/rag/loader"
	"github.com/tomhall/chatstack/store"
)

// maxUploadBytes bounds document uploads.
const maxUploadBytes = 32 << 20

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type createSessionRequest struct {
	Style        string `json:"style,omitempty"`
	CustomPrompt string `json:"custom_prompt,omitempty"`
}

type createSessionResponse struct {
	SessionID string `json:"session_id"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body: %v", err)
			return
		}
	}

	opts := []agent.ChatOption{}
	if req.Style != "" {
		opts = append(opts, agent.WithStyle(llm.Style(req.Style)))
	}
	if req.CustomPrompt != "" {
		opts = append(opts, agent.WithCustomPrompt(req.CustomPrompt))
	}

	a := agent.NewChatAgent(s.model, s.newManager(), opts...)

	s.mu.Lock()
	s.agents[a.SessionID()] = a
	s.mu.Unlock()

	s.logger.Info("created session %s", a.SessionID())
	writeJSON(w, http.StatusCreated, createSessionResponse{SessionID: a.SessionID()})
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.sessions.Sessions(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list sessions: %v", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	msgs, err := s.sessions.Messages(r.Context(), id)
	if errors.Is(err, store.ErrSessionNotFound) {
		writeError(w, http.StatusNotFound, "session %s not found", id)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "load history: %v", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"session_id": id, "messages": msgs})
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	delete(s.agents, id)
	s.mu.Unlock()

	if err := s.sessions.Clear(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, "clear session: %v", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type chatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

type chatResponse struct {
	SessionID string `json:"session_id"`
	Reply     string `json:"reply"`
	HTML      string `json:"html"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: %v", err)
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	a, ok := s.agentFor(req.SessionID)
	if !ok {
		writeError(w, http.StatusNotFound, "session %s not found", req.SessionID)
		return
	}

	reply, err := a.Send(r.Context(), req.Message)
	if err != nil {
		writeError(w, http.StatusBadGateway, "chat failed: %v", err)
		return
	}

	turns := []memory.Message{
		memory.NewMessage(memory.RoleUser, req.Message),
		memory.NewMessage(memory.RoleAssistant, reply),
	}
	if err := s.sessions.AppendMessages(r.Context(), req.SessionID, turns); err != nil {
		s.logger.Warn("persist transcript for %s: %v", req.SessionID, err)
	}

	writeJSON(w, http.StatusOK, chatResponse{
		SessionID: req.SessionID,
		Reply:     reply,
		HTML:      s.renderer.HTML(reply),
	})
}

type agentChatRequest struct {
	Message string `json:"message"`
}

func (s *Server) handleAgentChat(w http.ResponseWriter, r *http.Request) {
	if s.webSearch == nil {
		writeError(w, http.StatusServiceUnavailable, "web search agent not configured")
		return
	}

	var req agentChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: %v", err)
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	reply, err := s.webSearch.Ask(r.Context(), req.Message)
	if err != nil {
		writeError(w, http.StatusBadGateway, "agent failed: %v", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"reply": reply,
		"html":  s.renderer.HTML(reply),
	})
}

func (s *Server) handleMCPChat(w http.ResponseWriter, r *http.Request) {
	if s.mcp == nil {
		writeError(w, http.StatusServiceUnavailable, "MCP agent not configured")
		return
	}

	var req agentChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: %v", err)
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	reply, err := s.mcp.Ask(r.Context(), req.Message)
	if err != nil {
		writeError(w, http.StatusBadGateway, "MCP agent failed: %v", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"reply": reply,
		"html":  s.renderer.HTML(reply),
	})
}

// handleIngest accepts multipart uploads under the "files" field. Plain
// text, markdown and PDF files are supported.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form: %v", err)
		return
	}

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		writeError(w, http.StatusBadRequest, "no files uploaded")
		return
	}

	var docs []rag.Document
	for _, header := range files {
		f, err := header.Open()
		if err != nil {
			writeError(w, http.StatusBadRequest, "open %s: %v", header.Filename, err)
			return
		}

		var l rag.Loader
		switch strings.ToLower(filepath.Ext(header.Filename)) {
		case ".pdf":
			data, err := io.ReadAll(f)
			f.Close()
			if err != nil {
				writeError(w, http.StatusBadRequest, "read %s: %v", header.Filename, err)
				return
			}
			l = loader.NewPDFBytesLoader(data, header.Filename)
		default:
			l = loader.NewReaderLoader(f, header.Filename)
			defer f.Close()
		}

		loaded, err := l.Load(r.Context())
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "load %s: %v", header.Filename, err)
			return
		}
		docs = append(docs, loaded...)
	}

	count, err := rag.Ingest(r.Context(), docs, s.splitter, s.embedder, s.vectors)
	if err != nil {
		writeError(w, http.StatusBadGateway, "ingest: %v", err)
		return
	}

	s.logger.Info("ingested %d files into %d chunks", len(files), count)
	writeJSON(w, http.StatusOK, map[string]any{
		"files":  len(files),
		"chunks": count,
	})
}

type queryRequest struct {
	Question string `json:"question"`
}

type queryResponse struct {
	Answer  string       `json:"answer"`
	HTML    string       `json:"html"`
	Mode    string       `json:"mode"`
	Sources []sourceInfo `json:"sources"`
}

type sourceInfo struct {
	Source string  `json:"source"`
	Score  float64 `json:"score"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: %v", err)
		return
	}
	if req.Question == "" {
		writeError(w, http.StatusBadRequest, "question is required")
		return
	}

	out, err := s.answerer.Answer(r.Context(), req.Question)
	if err != nil {
		writeError(w, http.StatusBadGateway, "query failed: %v", err)
		return
	}

	sources := make([]sourceInfo, 0, len(out.Documents))
	for _, res := range out.Documents {
		src, _ := res.Document.Metadata["source"].(string)
		sources = append(sources, sourceInfo{Source: src, Score: res.Score})
	}

	writeJSON(w, http.StatusOK, queryResponse{
		Answer:  out.Answer,
		HTML:    s.renderer.HTML(out.Answer),
		Mode:    string(out.Mode),
		Sources: sources,
	})
}

func (s *Server) handleDocumentStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.vectors.Stats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "stats: %v", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
