// Package relay is the thin shell that turns pkg/storage's append-only
// event log into a runnable nostr relay: a WebSocket endpoint for NIP-01
// traffic, a cached NIP-11 relay information document, and an HTTP
// surface over pkg/blossom for content-addressed blob storage.
package relay

import (
	"context"
	"fmt"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/cuemby/nostrd/pkg/blossom"
	"github.com/cuemby/nostrd/pkg/config"
	"github.com/cuemby/nostrd/pkg/log"
	"github.com/cuemby/nostrd/pkg/storage"
)

// Server serves the relay's WebSocket, NIP-11, and Blossom HTTP surfaces
// over a single listener.
type Server struct {
	cfg     *config.Config
	store   *storage.Store
	blossom *blossom.Store

	upgrader websocket.Upgrader
	http     *http.Server
	nip11Doc func() []byte
}

// NewServer builds a Server around an already-open storage core and
// Blossom blob store.
func NewServer(cfg *config.Config, store *storage.Store, blobs *blossom.Store) *Server {
	s := &Server{
		cfg:     cfg,
		store:   store,
		blossom: blobs,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
	s.nip11Doc = s.buildNIP11Doc()

	s.http = &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: s.routes(),
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/", s.handleRoot)
	r.Get("/blossom/{hash}", s.handleBlossomGet)
	r.Put("/blossom/{hash}", s.handleBlossomPut)
	r.Head("/blossom/{hash}", s.handleBlossomHead)
	r.Delete("/blossom/{hash}", s.handleBlossomDelete)

	return r
}

// handleRoot serves the NIP-11 document to clients that request
// application/nostr+json, and upgrades everyone else to a WebSocket
// connection — the same dual behavior real relays expose on "/".
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Accept") == "application/nostr+json" {
		s.handleNIP11(w, r)
		return
	}
	s.handleWebSocket(w, r)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithComponent("relay").Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	c := newConn(s, ws)
	go c.serve()
}

// Start opens the listener and blocks serving requests until Stop is
// called (or the listener errors). Call it from its own goroutine.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return fmt.Errorf("relay: listen on %s: %w", s.http.Addr, err)
	}
	log.WithComponent("relay").Info().Str("addr", s.http.Addr).Msg("listening")

	if err := s.http.Serve(ln); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("relay: serve: %w", err)
	}
	return nil
}

// Stop gracefully shuts down the HTTP/WebSocket listener.
func (s *Server) Stop(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
