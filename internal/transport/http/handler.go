package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"quizforge/internal/app"
	"quizforge/internal/domain"
)

// Handler serves the JSON REST surface of the quiz service.
type Handler struct {
	service *app.QuizService
}

func NewHandler(service *app.QuizService) *Handler {
	return &Handler{service: service}
}

// Register wires every route onto the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/quizzes", h.startQuiz)
	mux.HandleFunc("GET /api/quizzes/{id}/question", h.getQuestion)
	mux.HandleFunc("POST /api/quizzes/{id}/answers", h.submitAnswer)
	mux.HandleFunc("GET /api/quizzes/{id}/hint", h.getHint)
	mux.HandleFunc("POST /api/quizzes/{id}/end", h.endQuiz)
	mux.HandleFunc("POST /api/explanations", h.explainMistake)
	mux.HandleFunc("GET /api/leaderboard", h.getLeaderboard)
}

type startQuizRequest struct {
	Name       string `json:"name"`
	Difficulty string `json:"difficulty"`
	Topic      string `json:"topic"`
	Visual     bool   `json:"visual"`
}

type startQuizResponse struct {
	SessionID      string `json:"sessionId"`
	TotalQuestions int    `json:"totalQuestions"`
}

func (h *Handler) startQuiz(w http.ResponseWriter, r *http.Request) {
	var req startQuizRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.ErrValidation)
		return
	}

	id, total, err := h.service.Start(r.Context(), req.Name, req.Difficulty, req.Topic, req.Visual)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, startQuizResponse{SessionID: id, TotalQuestions: total})
}

type questionResponse struct {
	Done     bool                 `json:"done"`
	Question *domain.QuestionView `json:"question,omitempty"`
}

func (h *Handler) getQuestion(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.NextQuestion(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if res.Done {
		writeJSON(w, http.StatusOK, questionResponse{Done: true})
		return
	}
	writeJSON(w, http.StatusOK, questionResponse{Question: &res.Question})
}

type submitAnswerRequest struct {
	QuestionIndex int `json:"questionIndex"`
	AnswerIndex   int `json:"answerIndex"`
}

type submitAnswerResponse struct {
	Correct bool `json:"correct"`
	Score   int  `json:"score"`
}

func (h *Handler) submitAnswer(w http.ResponseWriter, r *http.Request) {
	var req submitAnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.ErrValidation)
		return
	}

	correct, score, err := h.service.SubmitAnswer(r.Context(), r.PathValue("id"), req.QuestionIndex, req.AnswerIndex)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, submitAnswerResponse{Correct: correct, Score: score})
}

type hintResponse struct {
	Hint string `json:"hint"`
}

func (h *Handler) getHint(w http.ResponseWriter, r *http.Request) {
	questionIndex, err := strconv.Atoi(r.URL.Query().Get("question"))
	if err != nil {
		writeError(w, domain.ErrValidation)
		return
	}

	hint, err := h.service.Hint(r.Context(), r.PathValue("id"), questionIndex)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, hintResponse{Hint: hint})
}

func (h *Handler) endQuiz(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.End(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type explainRequest struct {
	Question     string   `json:"question"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correctIndex"`
	UserIndex    int      `json:"userIndex"`
}

type explainResponse struct {
	Explanation string `json:"explanation"`
}

func (h *Handler) explainMistake(w http.ResponseWriter, r *http.Request) {
	var req explainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.ErrValidation)
		return
	}

	explanation, err := h.service.ExplainMistake(r.Context(), req.Question, req.Options, req.CorrectIndex, req.UserIndex)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, explainResponse{Explanation: explanation})
}

type leaderboardResponse struct {
	Entries []domain.LeaderboardEntry `json:"entries"`
}

func (h *Handler) getLeaderboard(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, leaderboardResponse{Entries: h.service.LeaderboardSnapshot()})
}

type errorBody struct {
	Error errorPayload `json:"error"`
}

type errorPayload struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// writeError maps the domain error taxonomy onto status codes and
// machine-distinguishable kinds.
func writeError(w http.ResponseWriter, err error) {
	kind, status := "internal", http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		kind, status = "not_found", http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidIndex):
		kind, status = "invalid_index", http.StatusBadRequest
	case errors.Is(err, domain.ErrValidation):
		kind, status = "validation", http.StatusBadRequest
	case errors.Is(err, domain.ErrGeneration):
		kind, status = "generation_failed", http.StatusBadGateway
	}
	writeJSON(w, status, errorBody{Error: errorPayload{Kind: kind, Message: err.Error()}})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("http: write response: %v", err)
	}
}
