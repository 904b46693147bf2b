package controllers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"posts-api/db"
	"posts-api/middlewares"
	"posts-api/models"
	"posts-api/validation"
)

const (
	msgInternalError     = "Internal server error"
	msgInvalidPayload    = "Invalid JSON payload"
	msgInvalidExpiration = "Invalid expiration date"
	msgPostNotFound      = "Post not found."
	msgPostDeleted       = "deleted"
	msgAllDeleted        = "all data deleted"
)

// PostHandler serves the posts resource on top of a PostStore.
type PostHandler struct {
	Store db.PostStore
	Now   func() time.Time
	NewID func() string
}

func NewPostHandler(store db.PostStore) *PostHandler {
	return &PostHandler{
		Store: store,
		Now:   time.Now,
		NewID: uuid.NewString,
	}
}

// SetupPostRoutes registers the routes that require a verified caller.
// r is expected to be gated by middlewares.TokenAuthMiddleware.
func (h *PostHandler) SetupPostRoutes(r *mux.Router) {
	r.HandleFunc("", h.ListPosts).Methods(http.MethodGet)
	r.HandleFunc("", h.CreatePost).Methods(http.MethodPost)
	r.HandleFunc("/{id}", h.GetPost).Methods(http.MethodGet)
	r.HandleFunc("/{id}", h.DeletePost).Methods(http.MethodDelete)
}

// SetupResetRoute registers POST /posts/reset, which needs no token.
func (h *PostHandler) SetupResetRoute(r *mux.Router) {
	r.HandleFunc("/posts/reset", h.ResetPosts).Methods(http.MethodPost)
}

func (h *PostHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	userID, ok := middlewares.UserIDFromContext(r.Context())
	if !ok {
		middlewares.HttpError(w, msgInternalError, http.StatusInternalServerError, errors.New("no verified user in request context"))
		return
	}

	var req models.CreatePostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middlewares.HttpError(w, msgInvalidPayload, http.StatusBadRequest, err)
		return
	}

	post, err := validation.ValidateNewPost(req, userID, h.Now())
	if err != nil {
		var verr *validation.ValidationError
		switch {
		case errors.As(err, &verr):
			middlewares.RespondMessage(w, verr.Fields, http.StatusBadRequest)
		case errors.Is(err, validation.ErrInvalidExpiration):
			middlewares.RespondMessage(w, msgInvalidExpiration, http.StatusPreconditionFailed)
		default:
			middlewares.HttpError(w, msgInternalError, http.StatusInternalServerError, err)
		}
		return
	}

	post.ID = h.NewID()
	if err := h.Store.CreatePost(r.Context(), post); err != nil {
		middlewares.HttpError(w, msgInternalError, http.StatusInternalServerError, err)
		return
	}

	middlewares.RespondJSON(w, models.CreatedPost{
		ID:        post.ID,
		UserID:    post.UserID,
		CreatedAt: post.CreatedAt,
	}, http.StatusCreated)
}

func (h *PostHandler) ListPosts(w http.ResponseWriter, r *http.Request) {
	userID, _ := middlewares.UserIDFromContext(r.Context())

	filter, err := validation.ParseListFilter(r.URL.RawQuery, userID, h.Now())
	if err != nil {
		middlewares.RespondMessage(w, err.Error(), http.StatusBadRequest)
		return
	}

	posts, err := h.Store.ListPosts(r.Context(), filter)
	if err != nil {
		middlewares.HttpError(w, msgInternalError, http.StatusInternalServerError, err)
		return
	}
	if posts == nil {
		posts = []models.Post{}
	}

	middlewares.RespondJSON(w, posts, http.StatusOK)
}

func (h *PostHandler) GetPost(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if !validation.IsValidUUID(id) {
		middlewares.RespondMessage(w, validation.ErrInvalidID.Error(), http.StatusBadRequest)
		return
	}

	post, err := h.Store.GetPost(r.Context(), id)
	if err != nil {
		if errors.Is(err, db.ErrPostNotFound) {
			middlewares.RespondMessage(w, msgPostNotFound, http.StatusNotFound)
			return
		}
		middlewares.HttpError(w, msgInternalError, http.StatusInternalServerError, err)
		return
	}

	middlewares.RespondJSON(w, post, http.StatusOK)
}

func (h *PostHandler) DeletePost(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if !validation.IsValidUUID(id) {
		middlewares.RespondMessage(w, validation.ErrInvalidID.Error(), http.StatusBadRequest)
		return
	}

	if err := h.Store.DeletePost(r.Context(), id); err != nil {
		if errors.Is(err, db.ErrPostNotFound) {
			middlewares.RespondMessage(w, msgPostNotFound, http.StatusNotFound)
			return
		}
		middlewares.HttpError(w, msgInternalError, http.StatusInternalServerError, err)
		return
	}

	middlewares.RespondMessage(w, msgPostDeleted, http.StatusOK)
}

// ResetPosts deletes every post unconditionally.
func (h *PostHandler) ResetPosts(w http.ResponseWriter, r *http.Request) {
	if _, err := h.Store.DeleteAllPosts(r.Context()); err != nil {
		middlewares.HttpError(w, msgInternalError, http.StatusInternalServerError, err)
		return
	}

	middlewares.RespondMessage(w, msgAllDeleted, http.StatusOK)
}
