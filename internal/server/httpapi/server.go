// Package httpapi is the thin HTTP adapter over the share service. Routing
// stays deliberately dumb: every decision of consequence lives in the
// service layer.
package httpapi

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/dmitrijs2005/filedrop/internal/logging"
	sc "github.com/dmitrijs2005/filedrop/internal/server/config"
	"github.com/dmitrijs2005/filedrop/internal/server/services"
)

type Server struct {
	address string
	shares  *services.ShareService
	config  *sc.Config
	logger  logging.Logger
}

func NewServer(address string, shares *services.ShareService, cfg *sc.Config, logger logging.Logger) *Server {
	return &Server{
		address: address,
		shares:  shares,
		config:  cfg,
		logger:  logger.With("module", "http_server"),
	}
}

func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/files", s.handleCreateShare).Methods(http.MethodPut)
	r.HandleFunc("/files/chunks", s.handleChunkInfo).Methods(http.MethodPost)
	r.HandleFunc("/files/chunks", s.handlePutChunk).Methods(http.MethodPut)
	r.HandleFunc("/files/chunks/merged", s.handleMergeChunks).Methods(http.MethodPost)
	r.HandleFunc("/files/share/{code}", s.handleShareCode).Methods(http.MethodGet)
	r.HandleFunc("/files/{id}", s.handleFetchObject).Methods(http.MethodGet)

	admin := r.PathPrefix("/api/admin").Subrouter()
	admin.Use(s.adminAuth)
	admin.HandleFunc("/shares", s.handleListShares).Methods(http.MethodGet)
	admin.HandleFunc("/shares", s.handleDeleteShares).Methods(http.MethodDelete)

	return r
}

// Run serves until ctx is cancelled, then drains with a bounded grace
// period.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.address,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// adminAuth guards the admin API with a static bearer token. With no token
// configured the whole surface is disabled.
func (s *Server) adminAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.config.AdminToken == "" {
			writeJSON(w, http.StatusUnauthorized, apiResponse{Result: false, Message: "admin API disabled"})
			return
		}

		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if subtle.ConstantTimeCompare([]byte(token), []byte(s.config.AdminToken)) != 1 {
			writeJSON(w, http.StatusUnauthorized, apiResponse{Result: false, Message: "unauthorized"})
			return
		}

		next.ServeHTTP(w, r)
	})
}
