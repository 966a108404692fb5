// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package handlers implements the HTTP API the UI layer queries the
// supervisor through.
package handlers

import (
	"net/http"
	"strconv"

	"github.com/wingedpig/lattice/internal/supervisor"
)

// Backend is the supervisor surface the handlers need.
type Backend interface {
	Port() (int, bool)
	URL() (string, bool)
	Status() supervisor.Status
	Logs(n int) []string
}

// BackendHandler handles backend query API requests.
type BackendHandler struct {
	backend  Backend
	shutdown func()
}

// NewBackendHandler creates a new backend handler. shutdown is invoked
// when a client requests application shutdown; it must not block.
func NewBackendHandler(backend Backend, shutdown func()) *BackendHandler {
	return &BackendHandler{backend: backend, shutdown: shutdown}
}

// Port returns the discovered backend port, or 503 while none is known.
func (h *BackendHandler) Port(w http.ResponseWriter, r *http.Request) {
	port, ok := h.backend.Port()
	if !ok {
		WriteError(w, http.StatusServiceUnavailable, ErrBackendUnavailable, "backend port not yet advertised")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]int{"port": port})
}

// URL returns the backend base URL, or 503 while none is known.
func (h *BackendHandler) URL(w http.ResponseWriter, r *http.Request) {
	url, ok := h.backend.URL()
	if !ok {
		WriteError(w, http.StatusServiceUnavailable, ErrBackendUnavailable, "backend port not yet advertised")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"url": url})
}

// Status returns the supervisor status snapshot.
func (h *BackendHandler) Status(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.backend.Status())
}

// Logs returns the tail of the backend's captured output.
func (h *BackendHandler) Logs(w http.ResponseWriter, r *http.Request) {
	n := 0
	if s := r.URL.Query().Get("lines"); s != "" {
		parsed, err := strconv.Atoi(s)
		if err != nil || parsed < 0 {
			WriteError(w, http.StatusBadRequest, ErrBadRequest, "lines must be a non-negative integer")
			return
		}
		n = parsed
	}

	lines := h.backend.Logs(n)
	if lines == nil {
		lines = []string{}
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"lines": lines,
		"count": len(lines),
	})
}

// Shutdown requests application shutdown.
func (h *BackendHandler) Shutdown(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusAccepted, map[string]string{"status": "shutting down"})
	if h.shutdown != nil {
		h.shutdown()
	}
}
