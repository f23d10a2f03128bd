package relay

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/cuemby/nostrd/pkg/blossom"
	"github.com/cuemby/nostrd/pkg/metrics"
)

// handleBlossomGet implements BUD-01 blob retrieval: GET /blossom/<hash>.
func (s *Server) handleBlossomGet(w http.ResponseWriter, r *http.Request) {
	hash := chi.URLParam(r, "hash")

	data, err := s.blossom.Get(hash)
	if errors.Is(err, blossom.ErrNotFound) {
		http.Error(w, "blob not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Write(data)
}

// handleBlossomHead reports whether a blob exists without transferring it.
func (s *Server) handleBlossomHead(w http.ResponseWriter, r *http.Request) {
	hash := chi.URLParam(r, "hash")

	size, err := s.blossom.Stat(hash)
	if errors.Is(err, blossom.ErrNotFound) {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	w.WriteHeader(http.StatusOK)
}

// handleBlossomPut implements BUD-01 upload: the request body's sha256
// must match the hash named in the URL.
func (s *Server) handleBlossomPut(w http.ResponseWriter, r *http.Request) {
	wantHash := chi.URLParam(r, "hash")

	gotHash, data, err := blossom.HashReader(io.LimitReader(r.Body, s.cfg.MaxMessageBytes*64))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if gotHash != wantHash {
		http.Error(w, "sha256 mismatch", http.StatusBadRequest)
		return
	}

	if _, err := s.blossom.Put(data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if count, totalBytes, err := s.blossom.Count(); err == nil {
		metrics.BlossomBlobsTotal.Set(float64(count))
		metrics.BlossomBytesTotal.Set(float64(totalBytes))
	}

	w.WriteHeader(http.StatusCreated)
}

// handleBlossomDelete removes a blob. Deleting a blob that does not
// exist is not an error, matching blossom.Store.Delete's own semantics.
func (s *Server) handleBlossomDelete(w http.ResponseWriter, r *http.Request) {
	hash := chi.URLParam(r, "hash")

	if err := s.blossom.Delete(hash); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if count, totalBytes, err := s.blossom.Count(); err == nil {
		metrics.BlossomBlobsTotal.Set(float64(count))
		metrics.BlossomBytesTotal.Set(float64(totalBytes))
	}

	w.WriteHeader(http.StatusNoContent)
}
