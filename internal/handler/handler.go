package handler

import (
	"context"
	"encoding/json"
	"errors"
	"eth-faucet/internal/model"
	"eth-faucet/internal/service"
	"eth-faucet/internal/util"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/felixge/httpsnoop"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

// EventLister reads the payout audit log.
type EventLister interface {
	Recent(ctx context.Context, status model.PayoutStatus, offset, limit int) ([]model.PayoutEvent, error)
}

type Handler struct {
	Service    *service.Service
	AdminToken string
	Throttle   *Throttle
	Events     EventLister  // nil disables /admin/events
	Metrics    http.Handler // nil disables /metrics
	StaticDir  string
	TrustXFF   bool
	Symbol     string
}

// Request bodies
type faucetRequest struct {
	Address string `json:"address"`
}

type faucetResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
}

type queueResponse struct {
	LastSend []model.PayoutRecord `json:"lastSend"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func NewHandler(s *service.Service) *Handler {
	return &Handler{
		Service: s,
		Symbol:  "ETH",
	}
}

func (h *Handler) Routes() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/faucet", h.ThrottleMiddleware(h.Faucet, h.faucetThrottled)).Methods("POST")
	r.HandleFunc("/queue", h.Queue).Methods("GET")
	r.HandleFunc("/stats", h.ThrottleMiddleware(h.Stats, rateLimited)).Methods("GET")
	r.HandleFunc("/stats/admissions", h.AdmissionStats).Methods("GET")
	r.HandleFunc("/healthz", h.Healthz).Methods("GET")
	if h.Events != nil {
		r.HandleFunc("/admin/events", h.AdminAuth(h.ListEvents)).Methods("GET")
	}
	if h.Metrics != nil {
		r.Handle("/metrics", h.Metrics).Methods("GET")
	}
	if h.StaticDir != "" {
		r.PathPrefix("/").Handler(spaHandler(h.StaticDir)).Methods("GET")
	}

	r.Use(accessLog)
	return r
}

func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		m := httpsnoop.CaptureMetrics(next, w, req)
		log.Info().
			Str("method", req.Method).
			Str("path", req.URL.Path).
			Int("status", m.Code).
			Dur("duration", m.Duration).
			Msg("request")
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("write response")
	}
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// Faucet admits a payout request. Every outcome is a 200; status tells accept from reject.
func (h *Handler) Faucet(w http.ResponseWriter, r *http.Request) {
	var req faucetRequest
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded") {
		req.Address = r.FormValue("address")
	} else if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Debug().Err(err).Msg("invalid faucet body")
	}

	address := util.StripSpaces(req.Address)
	ip := util.ClientIP(r, h.TrustXFF)

	d := h.Service.Admit(r.Context(), ip, address)
	writeJSON(w, http.StatusOK, faucetResponse{
		Status:  d.Accepted(),
		Message: message(d, h.Symbol),
	})
}

func (h *Handler) Queue(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, queueResponse{LastSend: h.Service.Recent()})
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	st, err := h.Service.FaucetStats(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("read faucet stats")
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: "ledger unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *Handler) AdmissionStats(w http.ResponseWriter, r *http.Request) {
	totals, err := h.Service.AdmissionTotals(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("read admission stats")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "error reading stats"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"queueDepth": h.Service.Depth(),
		"admissions": totals,
	})
}

func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	pageQ := r.URL.Query().Get("page")
	limitQ := r.URL.Query().Get("limit")
	page := 1
	limit := 20
	if pageQ != "" {
		if p, err := strconv.Atoi(pageQ); err == nil && p > 0 {
			page = p
		}
	}
	if limitQ != "" {
		if l, err := strconv.Atoi(limitQ); err == nil && l > 0 && l <= 100 {
			limit = l
		}
	}
	status := model.PayoutStatus(r.URL.Query().Get("status"))
	if status != "" && status != model.PayoutCompleted && status != model.PayoutFailed {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "status must be completed or failed"})
		return
	}

	list, err := h.Events.Recent(r.Context(), status, (page-1)*limit, limit)
	if err != nil {
		log.Error().Err(err).Msg("list payout events")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "error listing"})
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) AdminAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get("X-Admin-Token")
		if token == "" || token != h.AdminToken {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	}
}

// ThrottleMiddleware sets Retry-After and hands limited requests to reject.
func (h *Handler) ThrottleMiddleware(next http.HandlerFunc, reject http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ok, retry := h.Throttle.Allow(util.ClientIP(r, h.TrustXFF))
		if !ok {
			secs := int(retry.Seconds())
			if secs < 1 {
				secs = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(secs))
			reject(w, r)
			return
		}
		next.ServeHTTP(w, r)
	}
}

func rateLimited(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "rate limit exceeded"})
}

// faucetThrottled answers like any other /faucet rejection.
func (h *Handler) faucetThrottled(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, faucetResponse{Status: false, Message: throttledMessage(h.Symbol)})
}

// spaHandler serves files from dir and falls back to index.html for client-side routes.
func spaHandler(dir string) http.Handler {
	files := http.FileServer(http.Dir(dir))
	index := filepath.Join(dir, "index.html")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := filepath.Join(dir, filepath.FromSlash(filepath.Clean("/"+r.URL.Path)))
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			files.ServeHTTP(w, r)
			return
		}
		if _, err := os.Stat(index); errors.Is(err, os.ErrNotExist) {
			http.NotFound(w, r)
			return
		}
		http.ServeFile(w, r, index)
	})
}
