package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"coingateway/internal/auth"
	"coingateway/internal/lookup"
	"coingateway/internal/quote"
	"coingateway/internal/recorder"
)

// Looker resolves a symbol into a quote.
type Looker interface {
	Lookup(ctx context.Context, symbol string) (quote.Quote, error)
}

// History is implemented by recorders that can read entries back.
type History interface {
	Recent(ctx context.Context, symbol string, limit int) ([]recorder.Entry, error)
}

type server struct {
	lookup  Looker
	users   auth.Users
	ping    func(context.Context) error
	history History // nil when the recorder cannot read back
	timeout time.Duration
	log     logrus.FieldLogger
}

// envelope is the error body: {"status_code": 404, "data": [], "detail": "..."}.
type envelope struct {
	StatusCode int    `json:"status_code"`
	Data       []any  `json:"data"`
	Detail     string `json:"detail"`
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("POST /token", s.handleToken)
	mux.Handle("GET /users/me", s.requireUser(http.HandlerFunc(s.handleMe)))
	mux.Handle("GET /api", s.requireUser(http.HandlerFunc(s.handleLookup)))
	mux.Handle("GET /api/history", s.requireUser(http.HandlerFunc(s.handleHistory)))
	return withRequestID(s.log, withJSONHeaders(withGzip(recoverPanic(s.log, limitBody(mux)))))
}

type userKey struct{}

func (s *server) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := auth.BearerToken(r)
		if !ok {
			w.Header().Set("WWW-Authenticate", "Bearer")
			writeError(w, http.StatusUnauthorized, "Not authenticated")
			return
		}
		user, err := s.users.Authenticate(token)
		if err != nil {
			w.Header().Set("WWW-Authenticate", "Bearer")
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey{}, user)))
	})
}

func (s *server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.ping(ctx); err != nil {
		s.log.WithError(err).Warn("health check: store unreachable")
		writeError(w, http.StatusServiceUnavailable, "store unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handleToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid form body")
		return
	}
	username, password := r.PostForm.Get("username"), r.PostForm.Get("password")
	if username == "" || password == "" {
		writeError(w, http.StatusUnprocessableEntity, "username and password are required")
		return
	}
	tok, err := s.users.Login(username, password)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, tok)
}

func (s *server) handleMe(w http.ResponseWriter, r *http.Request) {
	user, _ := r.Context().Value(userKey{}).(auth.User)
	writeJSON(w, http.StatusOK, user)
}

func (s *server) handleLookup(w http.ResponseWriter, r *http.Request) {
	symbol := strings.TrimSpace(r.URL.Query().Get("symbol"))
	if symbol == "" {
		writeError(w, http.StatusUnprocessableEntity, "query parameter symbol is required")
		return
	}

	ctx := r.Context()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	q, err := s.lookup.Lookup(ctx, symbol)
	if err != nil {
		status := lookup.HTTPStatus(err)
		detail := "Internal Server Error"
		switch {
		case errors.Is(err, lookup.ErrNotFound):
			detail = "Symbol not found."
		case lookup.KindOf(err) == lookup.KindFx:
			detail = "exchange rate unavailable"
		case lookup.KindOf(err) == lookup.KindTimeout:
			detail = "lookup timed out"
		case lookup.KindOf(err) == lookup.KindInvalid:
			detail = err.Error()
		}
		s.log.WithFields(logrus.Fields{
			"request_id": requestID(r.Context()),
			"symbol":     symbol,
			"kind":       lookup.KindOf(err).String(),
		}).WithError(err).Warn("lookup failed")
		writeError(w, status, detail)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (s *server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusNotFound, "lookup history is disabled")
		return
	}
	req, err := quote.NewLookupRequest(r.URL.Query().Get("symbol"))
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "query parameter symbol is required")
		return
	}
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 500 {
			writeError(w, http.StatusUnprocessableEntity, "limit must be between 1 and 500")
			return
		}
		limit = n
	}
	entries, err := s.history.Recent(r.Context(), req.Symbol, limit)
	if err != nil {
		s.log.WithError(err).Error("reading lookup history")
		writeError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	type row struct {
		Source             string  `json:"source"`
		CoinPrice          float64 `json:"coin_price"`
		CoinPriceReference float64 `json:"coin_price_reference"`
		At                 string  `json:"at"`
	}
	rows := make([]row, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, row{e.Source, e.CoinPrice, e.CoinPriceReference, e.At.Format(quote.ConsultedLayout)})
	}
	writeJSON(w, http.StatusOK, map[string]any{"symbol": req.Symbol, "history": rows})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, envelope{StatusCode: status, Data: []any{}, Detail: detail})
}
