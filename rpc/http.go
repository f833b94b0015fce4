package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"stakeledger/core"
	"stakeledger/core/events"
	"stakeledger/crypto"
	"stakeledger/eventlog"
	nativecommon "stakeledger/native/common"
	"stakeledger/native/staking"
	"stakeledger/observability"
)

const (
	jsonRPCVersion  = "2.0"
	maxRequestBytes = 1 << 20 // 1 MiB
)

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeServerError    = -32000
	codeRateLimited    = -32020
	codeStakingError   = -32050
	codeArchiveOff     = -32051
	codeModulePaused   = -32052
)

// ServerConfig captures the listener and policy knobs of the RPC server.
type ServerConfig struct {
	Auth              AuthConfig
	RateLimit         RateLimitConfig
	FaucetEnabled     bool
	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
}

type methodHandler func(r *http.Request, req *RPCRequest) (interface{}, *methodError)

type methodSpec struct {
	module  string
	handler methodHandler
	mutates bool
}

// methodError carries the HTTP status alongside the JSON-RPC error.
type methodError struct {
	status int
	err    *RPCError
}

func newMethodError(status, code int, message string, data interface{}) *methodError {
	return &methodError{status: status, err: &RPCError{Code: code, Message: message, Data: data}}
}

func invalidParams(format string, args ...interface{}) *methodError {
	return newMethodError(http.StatusBadRequest, codeInvalidParams, fmt.Sprintf(format, args...), nil)
}

// Server exposes the node over JSON-RPC, plus health, metrics and the event
// stream.
type Server struct {
	node    *core.Node
	archive *eventlog.Store
	stream  *events.Broadcaster
	auth    *Authenticator
	limiter *RateLimiter
	cfg     ServerConfig
	logger  *slog.Logger
	methods map[string]methodSpec
	router  chi.Router

	mu     sync.Mutex
	server *http.Server
}

// NewServer wires the routes. archive and stream are optional.
func NewServer(node *core.Node, archive *eventlog.Store, stream *events.Broadcaster, cfg ServerConfig, logger *slog.Logger) (*Server, error) {
	if node == nil {
		return nil, errors.New("rpc: node required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		node:    node,
		archive: archive,
		stream:  stream,
		auth:    NewAuthenticator(cfg.Auth),
		limiter: NewRateLimiter(cfg.RateLimit),
		cfg:     cfg,
		logger:  logger.With("component", "rpc"),
	}
	s.methods = map[string]methodSpec{
		"staking_initialize":   {module: "staking", handler: s.handleStakingInitialize, mutates: true},
		"staking_stake":        {module: "staking", handler: s.handleStakingStake, mutates: true},
		"staking_withdraw":     {module: "staking", handler: s.handleStakingWithdraw, mutates: true},
		"staking_addReward":    {module: "staking", handler: s.handleStakingAddReward, mutates: true},
		"staking_getState":     {module: "staking", handler: s.handleStakingGetState},
		"staking_amountStaked": {module: "staking", handler: s.handleStakingAmountStaked},
		"staking_listStakers":  {module: "staking", handler: s.handleStakingListStakers},
		"staking_listEvents":   {module: "staking", handler: s.handleStakingListEvents},
		"bank_balanceOf":       {module: "bank", handler: s.handleBankBalanceOf},
	}
	if cfg.FaucetEnabled {
		s.methods["bank_mint"] = methodSpec{module: "bank", handler: s.handleBankMint, mutates: true}
	}

	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Handle("/rpc", otelhttp.NewHandler(http.HandlerFunc(s.handle), "rpc"))
	r.Get("/ws/events", s.handleEventStream)
	s.router = r
	return s, nil
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// Serve blocks serving on ln until Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: s.cfg.ReadHeaderTimeout,
		ReadTimeout:       s.cfg.ReadTimeout,
		WriteTimeout:      s.cfg.WriteTimeout,
		IdleTimeout:       s.cfg.IdleTimeout,
	}
	s.mu.Lock()
	s.server = srv
	s.mu.Unlock()
	s.logger.Info("rpc server listening", slog.String("address", ln.Addr().String()))
	err := srv.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Start listens on addr and serves.
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Shutdown stops the listener and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.server
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

func writeError(w http.ResponseWriter, status int, id json.RawMessage, code int, message string, data interface{}) {
	if status <= 0 {
		status = http.StatusBadRequest
	}
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	errObj := &RPCError{Code: code, Message: message}
	if data != nil {
		errObj.Data = data
	}
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Error: errObj}
	_ = json.NewEncoder(w).Encode(resp)
}

func writeResult(w http.ResponseWriter, id json.RawMessage, result interface{}) {
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Result: result}
	_ = json.NewEncoder(w).Encode(resp)
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, nil, codeInvalidRequest, "POST required", nil)
		return
	}
	if !s.limiter.Allow(r) {
		writeError(w, http.StatusTooManyRequests, nil, codeRateLimited, "rate limit exceeded", nil)
		return
	}

	reader := http.MaxBytesReader(w, r.Body, maxRequestBytes)
	defer func() {
		_ = reader.Close()
	}()
	body, err := io.ReadAll(reader)
	if err != nil {
		status := http.StatusBadRequest
		message := "failed to read request body"
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			status = http.StatusRequestEntityTooLarge
			message = fmt.Sprintf("request body exceeds %d bytes", maxRequestBytes)
		}
		writeError(w, status, nil, codeInvalidRequest, message, err.Error())
		return
	}
	if len(bytes.TrimSpace(body)) == 0 {
		writeError(w, http.StatusBadRequest, nil, codeInvalidRequest, "request body required", nil)
		return
	}

	req := &RPCRequest{}
	if err := json.Unmarshal(body, req); err != nil {
		writeError(w, http.StatusBadRequest, nil, codeParseError, "invalid JSON payload", err.Error())
		return
	}
	if req.JSONRPC != "" && req.JSONRPC != jsonRPCVersion {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "unsupported jsonrpc version", req.JSONRPC)
		return
	}
	if req.Method == "" {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "method required", nil)
		return
	}

	method, ok := s.methods[req.Method]
	if !ok {
		writeError(w, http.StatusNotFound, req.ID, codeMethodNotFound, fmt.Sprintf("unknown method: %s", req.Method), nil)
		return
	}

	start := time.Now()
	result, failure := method.handler(r, req)
	code := 0
	if failure != nil {
		code = failure.err.Code
	}
	observability.ModuleMetrics().Observe(method.module, req.Method, code, time.Since(start))
	if method.mutates {
		s.logger.Info("rpc mutation",
			slog.String("method", req.Method),
			slog.Int("code", code),
			slog.Duration("duration", time.Since(start)))
	}
	if failure != nil {
		writeError(w, failure.status, req.ID, failure.err.Code, failure.err.Message, failure.err.Data)
		return
	}
	writeResult(w, req.ID, result)
}

// requireCaller resolves the authenticated caller of a mutating request.
func (s *Server) requireCaller(r *http.Request) (crypto.Address, *methodError) {
	addr, err := s.auth.Caller(r)
	if err != nil {
		s.logger.Debug("caller authentication failed", slog.String("error", err.Error()))
		return crypto.Address{}, newMethodError(http.StatusUnauthorized, codeStakingError,
			"unauthorized: "+err.Error(),
			StakingErrorData{Code: uint16(staking.CodeInvalidContext), Kind: staking.CodeInvalidContext.String()})
	}
	return addr, nil
}

// mapError converts an engine or node failure into a JSON-RPC error.
func (s *Server) mapError(err error) *methodError {
	if errors.Is(err, nativecommon.ErrModulePaused) {
		return newMethodError(http.StatusServiceUnavailable, codeModulePaused, err.Error(), nil)
	}
	if code, ok := staking.CodeOf(err); ok {
		status := http.StatusBadRequest
		switch code {
		case staking.CodeInvalidContext:
			status = http.StatusUnauthorized
		case staking.CodePermissionDenied:
			status = http.StatusForbidden
		case staking.CodeInvalidState:
			status = http.StatusConflict
		}
		return newMethodError(status, codeStakingError, err.Error(),
			StakingErrorData{Code: uint16(code), Kind: code.String()})
	}
	s.logger.Error("rpc call failed", slog.String("error", err.Error()))
	return newMethodError(http.StatusInternalServerError, codeServerError, strings.TrimSpace(err.Error()), nil)
}

func decodeParams(req *RPCRequest, dst interface{}) *methodError {
	if len(req.Params) != 1 {
		return invalidParams("expected a single parameter object")
	}
	dec := json.NewDecoder(bytes.NewReader(req.Params[0]))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return invalidParams("invalid parameter object: %v", err)
	}
	return nil
}
