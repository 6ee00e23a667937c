package rpc

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math/big"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"campuschain/core"
	"campuschain/crypto"
	"campuschain/observability"
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
	codeUnauthorized   = -32001
	codeServerError    = -32000
	codeRateLimited    = -32020
	codeForbidden      = -32030
	codeNotFound       = -32031
	codeConflict       = -32032
	codePhase          = -32033
	codeFunds          = -32034
)

type Server struct {
	uni    *core.University
	logger *slog.Logger

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	perSec   rate.Limit
	burst    int

	authSecret []byte
}

type Options struct {
	AuthSecret         []byte
	RateLimitPerSecond int
	RateLimitBurst     int
	Logger             *slog.Logger
}

func NewServer(uni *core.University, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	perSec := opts.RateLimitPerSecond
	if perSec <= 0 {
		perSec = 50
	}
	burst := opts.RateLimitBurst
	if burst < perSec {
		burst = perSec
	}
	return &Server{
		uni:        uni,
		logger:     logger,
		limiters:   make(map[string]*rate.Limiter),
		perSec:     rate.Limit(perSec),
		burst:      burst,
		authSecret: opts.AuthSecret,
	}
}

// Router returns the HTTP handler: the JSON-RPC endpoint at /, a liveness
// probe, and the Prometheus scrape endpoint.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestID)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Post("/", s.handle)
	return r
}

func (s *Server) Start(addr string) error {
	s.logger.Info("starting JSON-RPC server", "addr", addr)
	server := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return server.ListenAndServe()
}

// requestID tags each request with a correlation id, honouring one supplied
// by the client.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get("X-Request-Id"))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, r)
	})
}

type RPCRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	ID      interface{}       `json:"id"`
}

type RPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func writeError(w http.ResponseWriter, status int, id interface{}, code int, message string, data interface{}) {
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

func writeResult(w http.ResponseWriter, id interface{}, result interface{}) {
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Result: result}
	_ = json.NewEncoder(w).Encode(resp)
}

type handlerFunc func(w http.ResponseWriter, r *http.Request, req *RPCRequest)

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)
	var req RPCRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, nil, codeParseError, "invalid JSON request", err.Error())
		return
	}
	if req.JSONRPC != "" && req.JSONRPC != jsonRPCVersion {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "unsupported jsonrpc version", req.JSONRPC)
		return
	}

	if !s.allowSource(clientSource(r)) {
		observability.ModuleMetrics().RecordThrottle(moduleOf(req.Method), "rate_limit")
		writeError(w, http.StatusTooManyRequests, req.ID, codeRateLimited, "request rate limit exceeded", nil)
		return
	}

	handler, ok := s.methods()[req.Method]
	if !ok {
		writeError(w, http.StatusNotFound, req.ID, codeMethodNotFound, fmt.Sprintf("method %q not found", req.Method), nil)
		return
	}

	start := time.Now()
	recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	handler(recorder, r, &req)
	observability.ModuleMetrics().Observe(moduleOf(req.Method), req.Method, recorder.status, time.Since(start))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) methods() map[string]handlerFunc {
	return map[string]handlerFunc{
		"campus_createTeacher":     s.handleCreateTeacher,
		"campus_createStudent":     s.handleCreateStudent,
		"campus_getRoleToken":      s.handleGetRoleToken,
		"campus_registerCourse":    s.handleRegisterCourse,
		"campus_burnCourse":        s.handleBurnCourse,
		"campus_setCourseURI":      s.handleSetCourseURI,
		"campus_getCatalogCourse":  s.handleGetCatalogCourse,
		"campus_mintFunds":         s.handleMintFunds,
		"campus_transferFunds":     s.handleTransferFunds,
		"campus_approveFunds":      s.handleApproveFunds,
		"campus_transferFundsFrom": s.handleTransferFundsFrom,
		"campus_getBalance":        s.handleGetBalance,
		"campus_startTerm":         s.handleStartTerm,
		"campus_advance":           s.handleAdvance,
		"campus_getPhase":          s.handleGetPhase,
		"campus_getTerm":           s.handleGetTerm,
		"campus_addCourse":         s.handleAddCourse,
		"campus_apply":             s.handleApply,
		"campus_claim":             s.handleClaim,
		"campus_markStudent":       s.handleMarkStudent,
		"campus_transferSeat":      s.handleTransferSeat,
		"campus_getCourse":         s.handleGetCourse,
		"campus_getSeat":           s.handleGetSeat,
		"campus_listSeat":          s.handleListSeat,
		"campus_cancelListing":     s.handleCancelListing,
		"campus_buySeat":           s.handleBuySeat,
		"campus_getListing":        s.handleGetListing,
		"campus_mintDegree":        s.handleMintDegree,
		"campus_attachDegreeHash":  s.handleAttachDegreeHash,
		"campus_getDegree":         s.handleGetDegree,
		"campus_getCredit":         s.handleGetCredit,
	}
}

func moduleOf(method string) string {
	trimmed := strings.TrimPrefix(method, "campus_")
	switch {
	case strings.Contains(trimmed, "Teacher") && !strings.Contains(trimmed, "mark"),
		strings.Contains(trimmed, "Student") && !strings.Contains(trimmed, "mark"),
		strings.Contains(trimmed, "RoleToken"):
		return "registry"
	case strings.Contains(trimmed, "Catalog"), trimmed == "registerCourse", trimmed == "burnCourse", trimmed == "setCourseURI":
		return "catalog"
	case strings.Contains(trimmed, "Funds"), strings.Contains(trimmed, "Balance"):
		return "bank"
	case strings.Contains(trimmed, "Term"), trimmed == "advance", trimmed == "getPhase":
		return "term"
	case strings.Contains(trimmed, "Listing"), trimmed == "listSeat", trimmed == "buySeat":
		return "market"
	case strings.Contains(trimmed, "Degree"), trimmed == "getCredit":
		return "degree"
	default:
		return "enrollment"
	}
}

// requireAuth validates a bearer JWT signed with the configured secret. Only
// administrative methods demand it.
func (s *Server) requireAuth(r *http.Request) *RPCError {
	if len(s.authSecret) == 0 {
		return &RPCError{Code: codeUnauthorized, Message: "RPC authentication secret not configured"}
	}
	header := r.Header.Get("Authorization")
	if header == "" {
		return &RPCError{Code: codeUnauthorized, Message: "missing Authorization header"}
	}
	if !strings.HasPrefix(header, "Bearer ") {
		return &RPCError{Code: codeUnauthorized, Message: "Authorization header must use Bearer scheme"}
	}
	tokenString := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if tokenString == "" {
		return &RPCError{Code: codeUnauthorized, Message: "missing bearer token"}
	}
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.authSecret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !token.Valid {
		return &RPCError{Code: codeUnauthorized, Message: "invalid RPC credentials"}
	}
	return nil
}

func (s *Server) allowSource(source string) bool {
	if source == "" {
		source = "unknown"
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	limiter, ok := s.limiters[source]
	if !ok {
		limiter = rate.NewLimiter(s.perSec, s.burst)
		s.limiters[source] = limiter
	}
	return limiter.Allow()
}

func clientSource(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		if len(parts) > 0 {
			candidate := strings.TrimSpace(parts[0])
			if candidate != "" {
				return candidate
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func parseBech32Address(value string) ([20]byte, error) {
	var out [20]byte
	decoded, err := crypto.DecodeAddress(strings.TrimSpace(value))
	if err != nil {
		return out, err
	}
	copy(out[:], decoded.Bytes())
	return out, nil
}

func formatAddress(addr [20]byte) string {
	return crypto.NewAddress(crypto.CampusPrefix, addr[:]).String()
}

func parsePositiveBigInt(value string) (*big.Int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, fmt.Errorf("amount required")
	}
	amount, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", value)
	}
	if amount.Sign() < 0 {
		return nil, fmt.Errorf("amount must not be negative")
	}
	return amount, nil
}
