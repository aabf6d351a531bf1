package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"clip-trivia-service/internal/app"
	"clip-trivia-service/internal/domain"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
)

// Handler exposes the game use cases as a JSON polling API.
type Handler struct {
	service *app.GameService
}

func NewHandler(service *app.GameService) *Handler {
	return &Handler{service: service}
}

// RouterOptions configures NewRouter.
type RouterOptions struct {
	StaticDir      string
	AllowedOrigins []string
}

// NewRouter wires the API, the websocket endpoint and optional static files.
func NewRouter(service *app.GameService, opts RouterOptions) http.Handler {
	mux := http.NewServeMux()
	NewHandler(service).Register(mux)
	mux.HandleFunc("GET /ws", NewWSHandler(service).ServeWS)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	if opts.StaticDir != "" {
		mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.Dir(opts.StaticDir))))
	}

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
	})
	return RequestLogger(c.Handler(mux))
}

// Register adds the game routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", h.home)
	mux.HandleFunc("POST /games", h.createGame)
	mux.HandleFunc("GET /games/suggest", h.suggest)
	mux.HandleFunc("GET /games/{code}", h.lobby)
	mux.HandleFunc("POST /games/{code}/players", h.join)
	mux.HandleFunc("POST /games/{code}/players/{player}/start", h.start)
	mux.HandleFunc("GET /games/{code}/players/{player}/question", h.question)
	mux.HandleFunc("POST /games/{code}/players/{player}/questions/{question}/answers/{answer}", h.answer)
	mux.HandleFunc("GET /games/{code}/players/{player}/answer", h.answerStatus)
	mux.HandleFunc("GET /games/{code}/players/{player}/summary", h.summary)
}

type homePayload struct {
	ActiveGames int    `json:"activeGames"`
	Message     string `json:"message"`
}

type suggestPayload struct {
	Code int `json:"code"`
}

type errorPayload struct {
	Message string `json:"message"`
}

func (h *Handler) home(w http.ResponseWriter, r *http.Request) {
	active := h.service.ActiveGames()
	writeJSON(w, http.StatusOK, homePayload{
		ActiveGames: active,
		Message:     "Games currently running: " + strconv.Itoa(active),
	})
}

func (h *Handler) createGame(w http.ResponseWriter, r *http.Request) {
	level, err := strconv.Atoi(r.URL.Query().Get("level"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorPayload{Message: "invalid level"})
		return
	}
	result, err := h.service.CreateGame(r.Context(), level)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (h *Handler) suggest(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, suggestPayload{Code: h.service.SuggestCode()})
}

func (h *Handler) lobby(w http.ResponseWriter, r *http.Request) {
	code, ok := pathInt(w, r, "code")
	if !ok {
		return
	}
	summary, err := h.service.Lobby(r.Context(), code)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *Handler) join(w http.ResponseWriter, r *http.Request) {
	code, ok := pathInt(w, r, "code")
	if !ok {
		return
	}
	result, err := h.service.Join(r.Context(), code)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (h *Handler) start(w http.ResponseWriter, r *http.Request) {
	code, player, ok := codeAndPlayer(w, r)
	if !ok {
		return
	}
	poll, err := h.service.Start(r.Context(), code, player)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, poll)
}

func (h *Handler) question(w http.ResponseWriter, r *http.Request) {
	code, player, ok := codeAndPlayer(w, r)
	if !ok {
		return
	}
	poll, err := h.service.RequestQuestion(r.Context(), code, player)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, poll)
}

func (h *Handler) answer(w http.ResponseWriter, r *http.Request) {
	code, player, ok := codeAndPlayer(w, r)
	if !ok {
		return
	}
	question, ok := pathInt(w, r, "question")
	if !ok {
		return
	}
	answer, ok := pathInt(w, r, "answer")
	if !ok {
		return
	}
	status, err := h.service.SubmitAnswer(r.Context(), code, player, question, answer)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *Handler) answerStatus(w http.ResponseWriter, r *http.Request) {
	code, player, ok := codeAndPlayer(w, r)
	if !ok {
		return
	}
	status, err := h.service.AnswerStatus(r.Context(), code, player)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	code, player, ok := codeAndPlayer(w, r)
	if !ok {
		return
	}
	summary, err := h.service.Summary(r.Context(), code, player)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func codeAndPlayer(w http.ResponseWriter, r *http.Request) (int, int, bool) {
	code, ok := pathInt(w, r, "code")
	if !ok {
		return 0, 0, false
	}
	player, ok := pathInt(w, r, "player")
	if !ok {
		return 0, 0, false
	}
	return code, player, true
}

func pathInt(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	value, err := strconv.Atoi(r.PathValue(name))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorPayload{Message: "invalid " + name})
		return 0, false
	}
	return value, true
}

// StatusFor maps domain errors to HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound), errors.Is(err, domain.ErrLevelNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidPlayer), errors.Is(err, domain.ErrStaleQuestion):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrSessionNotStarted), errors.Is(err, domain.ErrSessionNotRunning):
		return http.StatusConflict
	case errors.Is(err, domain.ErrCodesExhausted):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Msg("request failed")
		message = "internal error"
	}
	writeJSON(w, status, errorPayload{Message: message})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Warn().Err(err).Msg("write response failed")
	}
}
