package devserver

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/groupshare/internal/api"
	"github.com/dmitrijs2005/groupshare/internal/common"
	"github.com/dmitrijs2005/groupshare/internal/logging"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const maxRequestBytes = 64 << 10

// Server serves the group sharing endpoints over a Store.
type Server struct {
	store      *Store
	validate   *validator.Validate
	logger     logging.Logger
	defaultTTL time.Duration
	metrics    *metrics
	gatherer   prometheus.Gatherer
}

// NewServer registers its metrics with reg; a nil reg gets a private
// registry.
func NewServer(store *Store, logger logging.Logger, defaultTTL time.Duration, reg *prometheus.Registry) *Server {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	return &Server{
		store:      store,
		validate:   validator.New(validator.WithRequiredStructEnabled()),
		logger:     logger.With("module", "devserver"),
		defaultTTL: defaultTTL,
		metrics:    newMetrics(reg, store),
		gatherer:   reg,
	}
}

// NewRouter wires every endpoint, plus /health and /metrics.
func (s *Server) NewRouter() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.metrics.middleware)

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, "OK\n")
	}).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	g := r.PathPrefix(common.GroupSharingPrefix).Subrouter()
	g.HandleFunc("/create", s.handleCreate).Methods(http.MethodPost)
	g.HandleFunc("/join", s.handleJoin).Methods(http.MethodPost)
	g.HandleFunc("/session/{id}", s.handleGet).Methods(http.MethodGet)
	g.HandleFunc("/connect/{id}", s.handleConnect).Methods(http.MethodPost)
	g.HandleFunc("/set-cards/{id}", s.handleSetCards).Methods(http.MethodPost)
	g.HandleFunc("/execute/{id}", s.handleExecute).Methods(http.MethodPost)
	g.HandleFunc("/end/{id}", s.handleEnd).Methods(http.MethodPost)

	return r
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req api.CreateSessionRequest
	if !s.decode(w, r, &req) {
		return
	}

	ttl := s.defaultTTL
	if req.ExpirationMinutes > 0 {
		ttl = time.Duration(req.ExpirationMinutes) * time.Minute
	}

	sess, err := s.store.Create(CreateParams{
		Code:       req.Code,
		AdminID:    req.AdminID,
		AdminName:  req.AdminName,
		AdminPhoto: req.AdminPhoto,
		TTL:        ttl,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.logger.Info(r.Context(), "session created", "session_id", sess.ID, "code", sess.Code)
	writeJSON(w, http.StatusCreated, api.SessionResponse{Success: true, Session: sess})
}

func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	var req api.JoinSessionRequest
	if !s.decode(w, r, &req) {
		return
	}

	sess, err := s.store.Join(JoinParams{
		Code:  req.Code,
		ID:    req.UserID,
		Name:  req.UserName,
		Phone: req.UserPhone,
		Photo: req.UserPhoto,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.logger.Info(r.Context(), "participant joined", "session_id", sess.ID, "user_id", req.UserID)
	writeJSON(w, http.StatusOK, api.SessionResponse{Success: true, Session: sess})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	sess, err := s.store.Get(mux.Vars(r)["id"])
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, api.SessionResponse{Success: true, Session: sess})
}

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	var req api.ConnectRequest
	if !s.decode(w, r, &req) {
		return
	}

	sess, err := s.store.Connect(mux.Vars(r)["id"], req.AdminID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, api.SessionResponse{Success: true, Session: sess})
}

func (s *Server) handleSetCards(w http.ResponseWriter, r *http.Request) {
	var req api.SetCardsRequest
	if !s.decode(w, r, &req) {
		return
	}

	if err := s.store.SetCards(mux.Vars(r)["id"], req.UserID, req.CardIDs, req.DefaultCardID); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, api.StatusResponse{Success: true})
}

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	var req api.ExecuteRequest
	if !s.decode(w, r, &req) {
		return
	}

	res, err := s.store.Execute(mux.Vars(r)["id"], req.AdminID, strings.TrimSpace(req.GroupName))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.metrics.shares.Add(float64(res.Summary.NewShares))
	s.logger.Info(r.Context(), "sharing executed", "session_id", mux.Vars(r)["id"], "total", res.Summary.TotalShares)
	writeJSON(w, http.StatusOK, api.ExecuteResponse{ExecuteResult: *res})
}

func (s *Server) handleEnd(w http.ResponseWriter, r *http.Request) {
	var req api.EndRequest
	if !s.decode(w, r, &req) {
		return
	}

	if err := s.store.End(mux.Vars(r)["id"], req.UserID); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, api.StatusResponse{Success: true})
}

// decode reads and validates a JSON body. It writes the 400 response
// itself and reports false when the request is unusable.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBytes))
	if err := dec.Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, api.StatusResponse{Error: "invalid JSON body"})
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		msg := "invalid request"
		if errors.As(err, &verrs) && len(verrs) > 0 {
			msg = "invalid " + verrs[0].Field()
		}
		writeJSON(w, http.StatusBadRequest, api.StatusResponse{Error: msg})
		return false
	}
	return true
}

// fail maps a Store error to a status code and the message clients show.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	msg := "internal error"

	switch {
	case errors.Is(err, ErrNotFound):
		status, msg = http.StatusNotFound, "Session not found"
	case errors.Is(err, ErrExpired):
		status, msg = http.StatusGone, "Session has expired"
	case errors.Is(err, ErrForbidden):
		status, msg = http.StatusForbidden, detail(err)
	case errors.Is(err, ErrCodeInUse):
		status, msg = http.StatusConflict, "Code already in use"
	case errors.Is(err, ErrInvalidState):
		status, msg = http.StatusConflict, detail(err)
	default:
		s.logger.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, api.StatusResponse{Message: msg})
}

// detail returns the text after the sentinel, capitalized.
func detail(err error) string {
	_, msg, ok := strings.Cut(err.Error(), ": ")
	if !ok || msg == "" {
		msg = err.Error()
	}
	return strings.ToUpper(msg[:1]) + msg[1:]
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
