package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/jwtauth"
	"github.com/go-chi/render"

	"github.com/pubhub/pubhub/pkg/pubhub"
	"github.com/pubhub/pubhub/pkg/pubhub/token"
)

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, render.M{"error": "invalid request body"})
		return false
	}
	return true
}

// Register creates an account and returns a token pair.
// POST /users/registration/
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username  string `json:"username"`
		Email     string `json:"email"`
		Password  string `json:"password"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
	}
	if !decodeBody(w, r, &body) {
		return
	}

	_, pair, err := h.users.Register(r.Context(), pubhub.RegisterRequest{
		Username:  body.Username,
		Email:     body.Email,
		Password:  body.Password,
		FirstName: body.FirstName,
		LastName:  body.LastName,
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, pair)
}

// Login verifies credentials and returns a token pair.
// POST /users/login/
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if body.Username == "" || body.Password == "" {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, render.M{"error": "username and password fields are required"})
		return
	}

	pair, err := h.users.Login(r.Context(), body.Username, body.Password)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	render.JSON(w, r, pair)
}

// Logout blacklists the refresh token from the body and the presented
// access token.
// POST /users/logout/
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RefreshToken string `json:"refresh_token"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if body.RefreshToken == "" {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, render.M{"error": "refresh token is required"})
		return
	}

	if err := h.users.Logout(r.Context(), body.RefreshToken); err != nil {
		h.respondError(w, r, err)
		return
	}
	if access := jwtauth.TokenFromHeader(r); access != "" {
		if err := h.users.Logout(r.Context(), access); err != nil && !errors.Is(err, token.ErrInvalidToken) {
			h.respondError(w, r, err)
			return
		}
	}
	render.JSON(w, r, render.M{"detail": "logged out"})
}

// UpdateProfile replaces the editable profile fields, self only.
// PUT /users/{id}/edit/
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		h.respondError(w, r, pubhub.ErrUserNotFound)
		return
	}

	var body struct {
		Email     string `json:"email"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		Picture   string `json:"picture"`
	}
	if !decodeBody(w, r, &body) {
		return
	}

	err := h.users.UpdateProfile(r.Context(), id, requester(r), pubhub.ProfileRequest{
		Email:     body.Email,
		FirstName: body.FirstName,
		LastName:  body.LastName,
		Picture:   body.Picture,
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	render.NoContent(w, r)
}

// ChangePassword verifies the old password before replacing it.
// POST /users/password/change/
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var body struct {
		OldPassword string `json:"old_password"`
		NewPassword string `json:"new_password"`
	}
	if !decodeBody(w, r, &body) {
		return
	}

	if err := h.users.ChangePassword(r.Context(), requester(r), body.OldPassword, body.NewPassword); err != nil {
		h.respondError(w, r, err)
		return
	}
	render.NoContent(w, r)
}

// RequestPasswordReset records a reset token for delivery by the mailer.
// The response does not reveal whether the email is registered.
// POST /users/password/reset/
func (h *Handler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email string `json:"email"`
	}
	if !decodeBody(w, r, &body) {
		return
	}

	if _, err := h.users.RequestPasswordReset(r.Context(), body.Email); err != nil && !isNotFound(err) {
		h.respondError(w, r, err)
		return
	}
	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, render.M{"detail": "reset requested"})
}

// ConfirmPasswordReset consumes a reset token and sets the new password.
// POST /users/password/reset/confirm/
func (h *Handler) ConfirmPasswordReset(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Token       string `json:"token"`
		NewPassword string `json:"new_password"`
	}
	if !decodeBody(w, r, &body) {
		return
	}

	if err := h.users.ConfirmPasswordReset(r.Context(), body.Token, body.NewPassword); err != nil {
		h.respondError(w, r, err)
		return
	}
	render.NoContent(w, r)
}
