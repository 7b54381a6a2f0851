package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"quizrush-service/internal/app"
	"quizrush-service/internal/domain"
)

type RESTHandler struct {
	service *app.SessionService
}

func NewRESTHandler(service *app.SessionService) *RESTHandler {
	return &RESTHandler{service: service}
}

// NewMux wires every HTTP surface: the websocket session protocol, the
// read-only leaderboard endpoints, health, and metrics.
func NewMux(ws *WSHandler, rest *RESTHandler, registry *prometheus.Registry) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", ws.ServeWS)
	mux.HandleFunc("GET /quizzes/{quizID}/leaderboard", rest.QuizLeaderboard)
	mux.HandleFunc("GET /leaderboard", rest.OverallLeaderboard)
	mux.HandleFunc("GET /players/{playerID}", rest.Profile)
	if registry != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}
	return mux
}

func (h *RESTHandler) QuizLeaderboard(w http.ResponseWriter, r *http.Request) {
	board, err := h.service.QuizBoard(r.Context(), r.PathValue("quizID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, board)
}

func (h *RESTHandler) OverallLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = parsed
	}
	entries, err := h.service.OverallLeaderboard(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if entries == nil {
		entries = []domain.OverallEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *RESTHandler) Profile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.service.Profile(r.Context(), r.PathValue("playerID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrProfileNotFound), errors.Is(err, domain.ErrQuizNotFound):
		status = http.StatusNotFound
	}
	writeJSON(w, status, errorPayload{Code: errorCode(err), Message: err.Error()})
}
