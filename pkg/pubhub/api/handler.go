// Package api exposes the pubhub services over HTTP with chi.
package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/pubhub/pubhub/pkg/pubhub"
	"github.com/pubhub/pubhub/pkg/pubhub/token"
)

// Handler wires the publication, item and user services into HTTP routes.
type Handler struct {
	services *pubhub.Services
	users    *pubhub.UserService
	issuer   *token.Issuer
	logger   *slog.Logger
}

// NewHandler creates an HTTP handler over the assembled services.
func NewHandler(services *pubhub.Services, users *pubhub.UserService, issuer *token.Issuer, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{services: services, users: users, issuer: issuer, logger: logger}
}

// Routes returns the routes for the publications and users surface.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Route("/publications", func(r chi.Router) {
		r.Get("/{kind}/", h.ListPublications)
		r.Get("/{kind}/{id}/", h.PublicationDetail)

		r.Group(func(r chi.Router) {
			r.Use(h.issuer.Verifier(), h.issuer.Authenticator)

			r.Post("/{kind}/", h.CreatePublication)
			r.Put("/{kind}/edit/{id}/", h.UpdatePublication)
			r.Delete("/{kind}/edit/{id}/", h.DeletePublication)

			r.Post("/{kind}/{id}/like/", h.react(pubhub.ReactionLike, true))
			r.Delete("/{kind}/{id}/like/", h.react(pubhub.ReactionLike, false))
			r.Post("/{kind}/{id}/dislike/", h.react(pubhub.ReactionDislike, true))
			r.Delete("/{kind}/{id}/dislike/", h.react(pubhub.ReactionDislike, false))

			r.Post("/contents/{kind}/{pubID}/{itemKind}/", h.AttachItem)

			r.Get("/items/{itemKind}/{itemID}/", h.GetItem)
			r.Put("/items/{itemKind}/{itemID}/", h.UpdateItem)
			r.Delete("/items/{itemKind}/{itemID}/", h.DeleteItem)
		})
	})

	r.Route("/users", func(r chi.Router) {
		r.Post("/registration/", h.Register)
		r.Post("/login/", h.Login)
		r.Post("/password/reset/", h.RequestPasswordReset)
		r.Post("/password/reset/confirm/", h.ConfirmPasswordReset)

		r.Group(func(r chi.Router) {
			r.Use(h.issuer.Verifier(), h.issuer.Authenticator)

			r.Post("/logout/", h.Logout)
			r.Put("/{id}/edit/", h.UpdateProfile)
			r.Post("/password/change/", h.ChangePassword)
		})
	})

	return r
}

func isNotFound(err error) bool {
	return errors.Is(err, pubhub.ErrPublicationNotFound) ||
		errors.Is(err, pubhub.ErrItemNotFound) ||
		errors.Is(err, pubhub.ErrContentNotFound) ||
		errors.Is(err, pubhub.ErrUserNotFound) ||
		errors.Is(err, pubhub.ErrResetNotFound)
}

// respondError translates service errors to status signals. Store-level
// detail never reaches the caller; unexpected errors are logged and
// collapsed to a 500.
func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	var fields pubhub.FieldErrors
	if errors.As(err, &fields) {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, fields)
		return
	}

	switch {
	case isNotFound(err):
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, render.M{"error": "not found"})
	case errors.Is(err, pubhub.ErrForbidden):
		render.Status(r, http.StatusForbidden)
		render.JSON(w, r, render.M{"error": "forbidden"})
	case errors.Is(err, pubhub.ErrInvalidKind):
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, render.M{"error": "invalid publication type"})
	case errors.Is(err, pubhub.ErrInvalidCredentials):
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, render.M{"error": "invalid credentials"})
	case errors.Is(err, token.ErrInvalidToken):
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, render.M{"error": "incorrect token"})
	default:
		h.logger.Error("request failed", "path", r.URL.Path, "error", err)
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, render.M{"error": "internal server error"})
	}
}
