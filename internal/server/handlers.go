package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/Sternrassler/chroma-viewer/pkg/pagination"
	"github.com/Sternrassler/chroma-viewer/pkg/viewer"
)

// notConnectedView is shown by HTML views when no store is attached.
const notConnectedView = "Database not connected. Please reconnect."

// errInvalidQuery marks a query parameter outside its allowed range.
var errInvalidQuery = errors.New("invalid query parameter")

// pageParams parses page (>= 1, default 1) and page_size (1-100, default 10).
func pageParams(r *http.Request) (page, size int, err error) {
	page, err = intParam(r, "page", pagination.DefaultPage, 1, 0)
	if err != nil {
		return 0, 0, err
	}
	size, err = intParam(r, "page_size", pagination.DefaultPageSize, 1, pagination.MaxPageSize)
	if err != nil {
		return 0, 0, err
	}
	return page, size, nil
}

// intParam reads an integer query parameter. hi == 0 means no upper bound.
func intParam(r *http.Request, name string, def, lo, hi int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer, got %q", errInvalidQuery, name, raw)
	}
	if v < lo {
		return 0, fmt.Errorf("%w: %s must be greater than or equal to %d", errInvalidQuery, name, lo)
	}
	if hi > 0 && v > hi {
		return 0, fmt.Errorf("%w: %s must be less than or equal to %d", errInvalidQuery, name, hi)
	}
	return v, nil
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	a, release, err := s.conn.Acquire()
	if err != nil {
		s.render(w, http.StatusOK, "connection.html", connectionView{Title: "Connect"})
		return
	}
	defer release()

	summaries, err := a.ListCollections(r.Context())
	if err != nil {
		s.renderError(w, err)
		return
	}

	s.render(w, http.StatusOK, "collections.html", collectionsView{
		Title:       "Collections",
		DBPath:      a.Path(),
		Collections: summaries,
	})
}

func (s *Server) handleCollectionView(w http.ResponseWriter, r *http.Request) {
	page, size, err := pageParams(r)
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	a, release, err := s.conn.Acquire()
	if err != nil {
		s.renderError(w, &viewer.Error{Kind: viewer.KindNotConnected, Message: notConnectedView, Err: err})
		return
	}
	defer release()

	p, err := a.GetPage(r.Context(), r.PathValue("name"), page, size)
	if err != nil {
		s.renderError(w, err)
		return
	}

	s.render(w, http.StatusOK, "documents.html", newDocumentsView(a.Path(), p))
}

func (s *Server) handleListCollections(w http.ResponseWriter, r *http.Request) {
	a, release, err := s.conn.Acquire()
	if err != nil {
		writeError(w, err)
		return
	}
	defer release()

	summaries, err := a.ListCollections(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string][]viewer.Summary{"collections": summaries})
}

func (s *Server) handleDocuments(w http.ResponseWriter, r *http.Request) {
	page, size, err := pageParams(r)
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	a, release, err := s.conn.Acquire()
	if err != nil {
		writeError(w, err)
		return
	}
	defer release()

	p, err := a.GetPage(r.Context(), r.PathValue("name"), page, size)
	if err != nil {
		writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, p)
}

type connectRequest struct {
	DBPath string `json:"db_path"`
}

type actionResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	var req connectRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "Request body must be a JSON object with a db_path field")
		return
	}

	if err := s.conn.Connect(r.Context(), req.DBPath, true); err != nil {
		writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, actionResponse{
		Success: true,
		Message: fmt.Sprintf("Successfully connected to database at %s", strings.TrimSpace(req.DBPath)),
	})
}

func (s *Server) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	if err := s.conn.Disconnect(); err != nil {
		status := viewer.StatusCode(viewer.KindOf(err))
		if viewer.KindOf(err) == viewer.KindNotConnected {
			// Nothing to disconnect is a bad request here, not 503.
			status = http.StatusBadRequest
		}
		writeDetail(w, status, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, actionResponse{
		Success: true,
		Message: "Successfully disconnected from database",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if !s.conn.Connected() {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprintf(w, "Database not connected")
		return
	}
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "Ready")
}
