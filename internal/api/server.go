// Package api exposes the journal, its statistics and the import jobs over HTTP.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/LurkingFox/Tradeworth-sub000/internal/app"
	"github.com/LurkingFox/Tradeworth-sub000/internal/datamanager"
	"github.com/LurkingFox/Tradeworth-sub000/internal/logger"
	"github.com/LurkingFox/Tradeworth-sub000/internal/types"
	"github.com/LurkingFox/Tradeworth-sub000/pkg/errors"
	"github.com/gorilla/mux"
	"github.com/moznion/go-optional"
	"go.uber.org/zap"
)

// MaxBodyBytes bounds request bodies, import uploads included.
const MaxBodyBytes = 64 << 20

type Server struct {
	app    *app.App
	logger *logger.Logger
	router *mux.Router
}

// ImportRequest is the body of POST /api/imports.
type ImportRequest struct {
	Trades    []types.RawTrade `json:"trades"`
	ChunkSize int              `json:"chunk_size,omitempty"`
}

type ImportAccepted struct {
	ID        string `json:"id"`
	StatusURL string `json:"status_url"`
}

type ErrorResponse struct {
	Code  int    `json:"code"`
	Error string `json:"error"`
}

func NewServer(a *app.App, log *logger.Logger) *Server {
	s := &Server{
		app:    a,
		logger: log.Named("api"),
		router: mux.NewRouter(),
	}

	s.routes()

	return s
}

// Handler returns the routed handler for use with http.Server or httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

//nolint:funcorder // helper method used by NewServer
func (s *Server) routes() {
	s.router.Use(s.logRequests)

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/statistics", s.handleStatistics).Methods(http.MethodGet)
	api.HandleFunc("/trades", s.handleListTrades).Methods(http.MethodGet)
	api.HandleFunc("/trades", s.handleAddTrade).Methods(http.MethodPost)
	api.HandleFunc("/trades/{id}", s.handleDeleteTrade).Methods(http.MethodDelete)
	api.HandleFunc("/calendar/{year:[0-9]{4}}/{month:[0-9]{1,2}}", s.handleCalendar).Methods(http.MethodGet)
	api.HandleFunc("/portfolio", s.handlePortfolio).Methods(http.MethodGet)
	api.HandleFunc("/charts/equity", s.handleEquity).Methods(http.MethodGet)
	api.HandleFunc("/imports", s.handleStartImport).Methods(http.MethodPost)
	api.HandleFunc("/imports/{id}", s.handleImportStatus).Methods(http.MethodGet)
	api.HandleFunc("/imports/{id}", s.handleCancelImport).Methods(http.MethodDelete)
}

func (s *Server) handleStatistics(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.app.Store().GetStatistics())
}

func (s *Server) handleListTrades(w http.ResponseWriter, r *http.Request) {
	filter, err := ParseTradeFilter(r.URL.Query())
	if err != nil {
		s.writeError(w, err)

		return
	}

	s.writeJSON(w, http.StatusOK, s.app.Store().GetFilteredTrades(filter))
}

func (s *Server) handleAddTrade(w http.ResponseWriter, r *http.Request) {
	var raw types.RawTrade
	if err := s.decode(w, r, &raw); err != nil {
		s.writeError(w, err)

		return
	}

	trade, err := s.app.AddTrade(r.Context(), raw)
	if err != nil {
		s.writeError(w, err)

		return
	}

	s.writeJSON(w, http.StatusCreated, trade)
}

func (s *Server) handleDeleteTrade(w http.ResponseWriter, r *http.Request) {
	if err := s.app.DeleteTrade(r.Context(), mux.Vars(r)["id"]); err != nil {
		s.writeError(w, err)

		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	year, _ := strconv.Atoi(vars["year"])
	month, _ := strconv.Atoi(vars["month"])

	if month < 1 || month > 12 {
		s.writeError(w, errors.Newf(errors.ErrCodeInvalidParameter, "month %d is out of range", month))

		return
	}

	s.writeJSON(w, http.StatusOK, s.app.Store().GetCalendarData(year, time.Month(month)))
}

func (s *Server) handlePortfolio(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.app.Store().GetPortfolioMetrics(s.app.StartingBalance()))
}

func (s *Server) handleEquity(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"equity":   s.app.Store().GetEquityCurve(),
		"drawdown": s.app.Store().GetDrawdownSeries(),
	})
}

func (s *Server) handleStartImport(w http.ResponseWriter, r *http.Request) {
	var req ImportRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, err)

		return
	}

	if len(req.Trades) == 0 {
		s.writeError(w, errors.New(errors.ErrCodeImportEmptyInput, "no records to import"))

		return
	}

	opts := s.app.ImportOptions()
	opts.ChunkSize = req.ChunkSize

	id := s.app.Imports().Start(r.Context(), req.Trades, opts)

	s.writeJSON(w, http.StatusAccepted, ImportAccepted{
		ID:        id,
		StatusURL: "/api/imports/" + id,
	})
}

func (s *Server) handleImportStatus(w http.ResponseWriter, r *http.Request) {
	job, err := s.app.Imports().Get(mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, err)

		return
	}

	s.writeJSON(w, http.StatusOK, job.StatusView())
}

func (s *Server) handleCancelImport(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if err := s.app.Imports().Cancel(id); err != nil {
		s.writeError(w, err)

		return
	}

	job, err := s.app.Imports().Get(id)
	if err != nil {
		s.writeError(w, err)

		return
	}

	s.writeJSON(w, http.StatusAccepted, job.StatusView())
}

// ParseTradeFilter reads a TradeFilter from query parameters. pair may repeat or hold
// a comma separated list; from and to are calendar dates.
func ParseTradeFilter(q map[string][]string) (datamanager.TradeFilter, error) {
	get := func(key string) string {
		if v := q[key]; len(v) > 0 {
			return strings.TrimSpace(v[0])
		}

		return ""
	}

	filter := datamanager.TradeFilter{
		Pairs:     nil,
		Direction: optional.None[types.Direction](),
		Status:    optional.None[types.TradeStatus](),
		Outcome:   optional.None[types.Outcome](),
		Setup:     get("setup"),
		From:      optional.None[time.Time](),
		To:        optional.None[time.Time](),
		Search:    get("search"),
		SortBy:    datamanager.SortField(get("sort")),
		Ascending: get("order") == "asc",
		Offset:    0,
		Limit:     0,
	}

	for _, v := range q["pair"] {
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				filter.Pairs = append(filter.Pairs, p)
			}
		}
	}

	if v := get("direction"); v != "" {
		d, ok := types.ParseDirection(v)
		if !ok {
			return filter, errors.Newf(errors.ErrCodeInvalidParameter, "invalid direction %q", v)
		}

		filter.Direction = optional.Some(d)
	}

	switch v := types.TradeStatus(get("status")); v {
	case "":
	case types.TradeStatusOpen, types.TradeStatusClosed:
		filter.Status = optional.Some(v)
	default:
		return filter, errors.Newf(errors.ErrCodeInvalidParameter, "invalid status %q", v)
	}

	switch v := types.Outcome(get("outcome")); v {
	case "":
	case types.OutcomeWin, types.OutcomeLoss, types.OutcomeBreakeven:
		filter.Outcome = optional.Some(v)
	default:
		return filter, errors.Newf(errors.ErrCodeInvalidParameter, "invalid outcome %q", v)
	}

	switch filter.SortBy {
	case "", datamanager.SortByDate, datamanager.SortByPnL, datamanager.SortByPair, datamanager.SortByLotSize:
	default:
		return filter, errors.Newf(errors.ErrCodeInvalidParameter, "invalid sort field %q", filter.SortBy)
	}

	for key, dst := range map[string]*optional.Option[time.Time]{"from": &filter.From, "to": &filter.To} {
		v := get(key)
		if v == "" {
			continue
		}

		t, err := time.Parse(types.DateLayout, v)
		if err != nil {
			return filter, errors.Wrapf(errors.ErrCodeInvalidParameter, err, "invalid %s date %q", key, v)
		}

		*dst = optional.Some(t)
	}

	for key, dst := range map[string]*int{"offset": &filter.Offset, "limit": &filter.Limit} {
		v := get(key)
		if v == "" {
			continue
		}

		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return filter, errors.Newf(errors.ErrCodeInvalidParameter, "invalid %s %q", key, v)
		}

		*dst = n
	}

	return filter, nil
}

// StatusCode maps an engine error onto an HTTP status.
func StatusCode(err error) int {
	code := errors.GetCode(err)

	switch {
	case code == errors.ErrCodeTradeNotFound, code == errors.ErrCodeImportNotFound:
		return http.StatusNotFound
	case code == errors.ErrCodeDuplicateTrade, code == errors.ErrCodeUniqueViolation,
		code == errors.ErrCodeImportNotCancelable:
		return http.StatusConflict
	case code == errors.ErrCodeBackendUnavailable, code == errors.ErrCodeDisposed:
		return http.StatusServiceUnavailable
	case code >= errors.ErrCodeInvalidParameter && code < errors.ErrCodeBackendUnavailable,
		code == errors.ErrCodeImportNoUser, code == errors.ErrCodeImportEmptyInput:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

//nolint:funcorder // helper method used by handlers
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidParameter, "invalid request body", err)
	}

	return nil
}

//nolint:funcorder // helper method used by handlers
func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Warn("Failed to encode response", zap.Error(err))
	}
}

//nolint:funcorder // helper method used by handlers
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := StatusCode(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("Request failed", zap.Error(err))
	}

	s.writeJSON(w, status, ErrorResponse{
		Code:  int(errors.GetCode(err)),
		Error: err.Error(),
	})
}

//nolint:funcorder // helper method used by routes
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		next.ServeHTTP(w, r)

		s.logger.Debug("Request served",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("elapsed", time.Since(start)),
		)
	})
}
