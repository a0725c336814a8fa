package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"VestLedger/internal/chain"
	"VestLedger/internal/ledger"
	"VestLedger/internal/logger"
	"VestLedger/internal/treasury"
)

const (
	// maxBodySize is the maximum request body size in bytes.
	maxBodySize = 1 << 16 // 64 KB

	// adminTokenHeader carries the admin token on privileged requests.
	adminTokenHeader = "X-Admin-Token"
)

// Config holds the API server configuration.
type Config struct {
	Addr         string         // Addr is the HTTP listen address
	AdminToken   string         // AdminToken authorizes privileged requests
	AdminAccount ledger.Account // AdminAccount is the caller for privileged operations
	RatePerSec   float64        // RatePerSec limits mutating requests; 0 disables
	RateBurst    int            // RateBurst is the limiter burst size
}

// Server is the HTTP API server over the vesting ledger.
type Server struct {
	cfg      Config
	ledger   *ledger.Ledger
	treasury *treasury.Treasury
	clock    *chain.Height
	limiter  *rate.Limiter
	server   *http.Server
}

// New creates a new HTTP API server.
func New(cfg Config, l *ledger.Ledger, t *treasury.Treasury, clock *chain.Height) *Server {
	var limiter *rate.Limiter
	if cfg.RatePerSec > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), burst)
	}

	return &Server{
		cfg:      cfg,
		ledger:   l,
		treasury: t,
		clock:    clock,
		limiter:  limiter,
	}
}

// Handler builds the route mux. Exposed for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /schedules", s.handleCreate)
	mux.HandleFunc("GET /schedules/{beneficiary}", s.handleList)
	mux.HandleFunc("GET /schedules/{beneficiary}/{id}", s.handleSummary)
	mux.HandleFunc("POST /schedules/{beneficiary}/{id}/release", s.handleRelease)
	mux.HandleFunc("POST /schedules/{beneficiary}/{id}/revoke", s.handleRevoke)
	mux.HandleFunc("POST /pause", s.handlePause)
	mux.HandleFunc("POST /resume", s.handleResume)
	mux.HandleFunc("GET /assets/{asset}", s.handleAssetTotal)
	mux.HandleFunc("GET /balances/{asset}/{account}", s.handleBalance)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /status", s.handleStatus)

	return mux
}

// Start starts the HTTP server in a goroutine.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("http api started", "addr", s.cfg.Addr)

		if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("http server error", "error", err)
		}
	}()

	return nil
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return s.server.Shutdown(ctx)
}

// createRequest is the body of POST /schedules.
type createRequest struct {
	Beneficiary   string `json:"beneficiary"`
	Asset         string `json:"asset"`
	TotalAmount   uint64 `json:"totalAmount"`
	Start         uint64 `json:"start"`
	CliffDuration uint64 `json:"cliffDuration"`
	VestDuration  uint64 `json:"vestDuration"`
	Revocable     bool   `json:"revocable"`
}

// handleCreate handles POST /schedules.
func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	if !s.allowMutation(w) || !s.requireAdmin(w, r) {
		return
	}

	var req createRequest
	if !decodeBody(w, r, &req) {
		return
	}

	beneficiary, asset, err := parseCreateRequest(&req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	id, err := s.ledger.Create(
		s.cfg.AdminAccount,
		beneficiary,
		asset,
		req.TotalAmount,
		req.Start,
		req.CliffDuration,
		req.VestDuration,
		req.Revocable,
	)
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]uint64{"id": id})
}

// handleRelease handles POST /schedules/{beneficiary}/{id}/release.
func (s *Server) handleRelease(w http.ResponseWriter, r *http.Request) {
	if !s.allowMutation(w) {
		return
	}

	beneficiary, id, ok := parseScheduleKey(w, r)
	if !ok {
		return
	}

	amount, err := s.ledger.Release(beneficiary, id)
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]uint64{"released": amount})
}

// handleRevoke handles POST /schedules/{beneficiary}/{id}/revoke.
func (s *Server) handleRevoke(w http.ResponseWriter, r *http.Request) {
	if !s.allowMutation(w) || !s.requireAdmin(w, r) {
		return
	}

	beneficiary, id, ok := parseScheduleKey(w, r)
	if !ok {
		return
	}

	if err := s.ledger.Revoke(s.cfg.AdminAccount, beneficiary, id); err != nil {
		writeLedgerError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "revoked"})
}

// handleSummary handles GET /schedules/{beneficiary}/{id}.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	beneficiary, id, ok := parseScheduleKey(w, r)
	if !ok {
		return
	}

	summary, err := s.ledger.Summary(beneficiary, id)
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, summaryResponse(summary))
}

// handleList handles GET /schedules/{beneficiary}.
func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	beneficiary, err := parseAccount(r.PathValue("beneficiary"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	summaries, err := s.ledger.ListSummaries(beneficiary)
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	out := make([]map[string]any, len(summaries))
	for i, summary := range summaries {
		out[i] = summaryResponse(summary)
	}

	writeJSON(w, http.StatusOK, map[string]any{"schedules": out})
}

// handleAssetTotal handles GET /assets/{asset}.
func (s *Server) handleAssetTotal(w http.ResponseWriter, r *http.Request) {
	asset, err := parseAsset(r.PathValue("asset"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	total, err := s.ledger.AssetTotal(asset)
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]uint64{"committed": total})
}

// handleBalance handles GET /balances/{asset}/{account}.
func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	asset, err := parseAsset(r.PathValue("asset"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	account, err := parseAccount(r.PathValue("account"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	balance, err := s.treasury.Balance(asset, account)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]uint64{"balance": balance})
}

// handlePause handles POST /pause.
func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	s.setPaused(w, r, true)
}

// handleResume handles POST /resume.
func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	s.setPaused(w, r, false)
}

// setPaused applies a pause toggle for the admin caller.
func (s *Server) setPaused(w http.ResponseWriter, r *http.Request, paused bool) {
	if !s.requireAdmin(w, r) {
		return
	}

	if err := s.ledger.SetPaused(s.cfg.AdminAccount, paused); err != nil {
		writeLedgerError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"paused": paused})
}

// handleHealth handles GET /health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleStatus handles GET /status.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	paused, err := s.ledger.Paused()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	count, err := s.ledger.GlobalCount()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"height":    s.clock.Now(),
		"schedules": count,
		"paused":    paused,
	})
}

// requireAdmin checks the admin token header. Writes 401 on mismatch.
func (s *Server) requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	token := r.Header.Get(adminTokenHeader)

	if s.cfg.AdminToken == "" ||
		subtle.ConstantTimeCompare([]byte(token), []byte(s.cfg.AdminToken)) != 1 {
		writeError(w, http.StatusUnauthorized, "invalid admin token")
		return false
	}

	return true
}

// allowMutation applies the rate limit to mutating endpoints.
// Writes 429 when the limit is exceeded.
func (s *Server) allowMutation(w http.ResponseWriter) bool {
	if s.limiter != nil && !s.limiter.Allow() {
		writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
		return false
	}

	return true
}

// decodeBody parses a JSON request body. Writes 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	body := http.MaxBytesReader(w, r.Body, maxBodySize)

	if err := json.NewDecoder(body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}

	return true
}

// writeLedgerError maps a ledger error to an HTTP status.
func writeLedgerError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, ledger.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ledger.ErrUnauthorized):
		status = http.StatusForbidden
	case errors.Is(err, ledger.ErrInvalidParameters):
		status = http.StatusBadRequest
	case errors.Is(err, ledger.ErrCliffNotReached),
		errors.Is(err, ledger.ErrNoTokensToRelease),
		errors.Is(err, ledger.ErrVestingEnded):
		status = http.StatusConflict
	case errors.Is(err, ledger.ErrTransferFailed):
		status = http.StatusBadGateway
	}

	writeError(w, status, err.Error())
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
