package server

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"batchrpc/registry"
	"batchrpc/wire"
)

// Handler serves batch requests over HTTP POST.
type Handler struct {
	executor    *Executor
	maxBodySize int64
	logger      zerolog.Logger
}

// NewHandler creates a Handler. maxBodySize of 0 means no limit.
func NewHandler(executor *Executor, maxBodySize int64, logger zerolog.Logger) *Handler {
	return &Handler{
		executor:    executor,
		maxBodySize: maxBodySize,
		logger:      logger.With().Str("component", "handler").Logger(),
	}
}

// ServeHTTP handles HTTP requests
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	calls, err := wire.DecodeCalls(r.URL.Query().Get(wire.CallsParam))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, wire.NewError(wire.CodeBadRequest, wire.NameBadRequest, err.Error()))
		return
	}

	var data []byte
	if h.maxBodySize > 0 {
		data, err = io.ReadAll(io.LimitReader(r.Body, h.maxBodySize+1))
		if err == nil && int64(len(data)) > h.maxBodySize {
			h.writeError(w, http.StatusBadRequest, wire.NewError(wire.CodeBadRequest, wire.NameBadRequest, "request body too large"))
			return
		}
	} else {
		data, err = io.ReadAll(r.Body)
	}
	if err != nil {
		h.writeError(w, http.StatusBadRequest, wire.NewError(wire.CodeBadRequest, wire.NameBadRequest, "failed to read request body"))
		return
	}

	var body []wire.BodyItem
	if len(data) > 0 {
		body, err = wire.ParseBody(data)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, wire.NewError(wire.CodeBadRequest, wire.NameBadRequest, err.Error()))
			return
		}
	}

	meta := &registry.CallContext{
		Header:     r.Header,
		RemoteAddr: r.RemoteAddr,
	}

	items := h.executor.Execute(r.Context(), calls, body, meta)
	h.writeItems(w, items)
}

func (h *Handler) writeItems(w http.ResponseWriter, items []*wire.ResponseItem) {
	data, err := wire.MarshalItems(items)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to marshal batch response")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

// writeError reports a request-level failure before any item was
// produced. Clients treat an unparseable non-2xx body as a
// whole-batch transport failure.
func (h *Handler) writeError(w http.ResponseWriter, status int, werr *wire.Error) {
	data, err := json.Marshal(map[string]*wire.Error{"error": werr})
	if err != nil {
		http.Error(w, werr.Message, status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}
