package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/pubhub/pubhub/pkg/pubhub"
	"github.com/pubhub/pubhub/pkg/pubhub/token"
)

// publicationBody is the write shape for publications. Fields outside the
// kind's shape are ignored by the service.
type publicationBody struct {
	Title      string       `json:"title"`
	IntroText  string       `json:"intro_text"`
	IntroImage string       `json:"intro_image"`
	Level      pubhub.Level `json:"level"`
	Tags       []string     `json:"tags"`
	Status     *bool        `json:"status"`
	Mention    []int64      `json:"mention"`
}

func (h *Handler) publicationService(w http.ResponseWriter, r *http.Request) (pubhub.PublicationService, bool) {
	kind, err := pubhub.ParsePublicationKind(chi.URLParam(r, "kind"))
	if err != nil {
		h.respondError(w, r, err)
		return nil, false
	}
	svc, err := h.services.Publications(kind)
	if err != nil {
		h.respondError(w, r, err)
		return nil, false
	}
	return svc, true
}

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	return id, err == nil && id > 0
}

func requester(r *http.Request) int64 {
	userID, _ := token.UserIDFromContext(r.Context())
	return userID
}

// ListPublications returns one page of enriched summaries.
// GET /publications/{kind}/?page_number=N
func (h *Handler) ListPublications(w http.ResponseWriter, r *http.Request) {
	svc, ok := h.publicationService(w, r)
	if !ok {
		return
	}

	summaries, err := svc.List(r.Context(), r.URL.Query().Get("page_number"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	render.JSON(w, r, summaries)
}

// PublicationDetail returns the enriched publication with its items.
// GET /publications/{kind}/{id}/
func (h *Handler) PublicationDetail(w http.ResponseWriter, r *http.Request) {
	svc, ok := h.publicationService(w, r)
	if !ok {
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		h.respondError(w, r, pubhub.ErrPublicationNotFound)
		return
	}

	detail, err := svc.Detail(r.Context(), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	render.JSON(w, r, detail)
}

// CreatePublication creates a publication for the authenticated author.
// POST /publications/{kind}/
func (h *Handler) CreatePublication(w http.ResponseWriter, r *http.Request) {
	svc, ok := h.publicationService(w, r)
	if !ok {
		return
	}

	var body publicationBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, render.M{"error": "invalid request body"})
		return
	}

	p, err := svc.Create(r.Context(), pubhub.CreatePublicationRequest{
		AuthorID:   requester(r),
		Title:      body.Title,
		IntroText:  body.IntroText,
		IntroImage: body.IntroImage,
		Level:      body.Level,
		Tags:       body.Tags,
		Status:     body.Status,
		Mention:    body.Mention,
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, render.M{"id": p.ID})
}

// UpdatePublication replaces the editable fields, author only.
// PUT /publications/{kind}/edit/{id}/
func (h *Handler) UpdatePublication(w http.ResponseWriter, r *http.Request) {
	svc, ok := h.publicationService(w, r)
	if !ok {
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		h.respondError(w, r, pubhub.ErrPublicationNotFound)
		return
	}

	var body publicationBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, render.M{"error": "invalid request body"})
		return
	}

	err := svc.Update(r.Context(), id, requester(r), pubhub.UpdatePublicationRequest{
		Title:      body.Title,
		IntroText:  body.IntroText,
		IntroImage: body.IntroImage,
		Level:      body.Level,
		Tags:       body.Tags,
		Status:     body.Status,
		Mention:    body.Mention,
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	render.NoContent(w, r)
}

// DeletePublication removes a publication and its content rows, author
// only.
// DELETE /publications/{kind}/edit/{id}/
func (h *Handler) DeletePublication(w http.ResponseWriter, r *http.Request) {
	svc, ok := h.publicationService(w, r)
	if !ok {
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		h.respondError(w, r, pubhub.ErrPublicationNotFound)
		return
	}

	if err := svc.Delete(r.Context(), id, requester(r)); err != nil {
		h.respondError(w, r, err)
		return
	}
	render.NoContent(w, r)
}

// react builds the handler for one like/dislike membership change.
func (h *Handler) react(reaction pubhub.Reaction, add bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		svc, ok := h.publicationService(w, r)
		if !ok {
			return
		}
		id, ok := pathID(r, "id")
		if !ok {
			h.respondError(w, r, pubhub.ErrPublicationNotFound)
			return
		}

		if err := svc.React(r.Context(), id, requester(r), reaction, add); err != nil {
			h.respondError(w, r, err)
			return
		}
		render.NoContent(w, r)
	}
}
