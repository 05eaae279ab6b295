package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/pubhub/pubhub/pkg/pubhub"
)

// itemPayload extracts the kind's payload field from a JSON body, e.g.
// {"content": "..."} for a text item. A missing field decodes to the empty
// payload and fails validation downstream with a field-mapped error.
func itemPayload(r *http.Request, kind pubhub.ItemKind) (string, error) {
	var body map[string]string
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return "", err
	}
	return body[kind.PayloadField()], nil
}

func (h *Handler) itemKind(w http.ResponseWriter, r *http.Request) (pubhub.ItemKind, bool) {
	kind, err := pubhub.ParseItemKind(chi.URLParam(r, "itemKind"))
	if err != nil {
		h.respondError(w, r, err)
		return "", false
	}
	return kind, true
}

// AttachItem creates an item and its Content association on a publication
// the requester authors.
// POST /publications/contents/{kind}/{pubID}/{itemKind}/
func (h *Handler) AttachItem(w http.ResponseWriter, r *http.Request) {
	svc, ok := h.publicationService(w, r)
	if !ok {
		return
	}
	itemKind, ok := h.itemKind(w, r)
	if !ok {
		return
	}
	pubID, ok := pathID(r, "pubID")
	if !ok {
		h.respondError(w, r, pubhub.ErrPublicationNotFound)
		return
	}

	payload, err := itemPayload(r, itemKind)
	if err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, render.M{"error": "invalid request body"})
		return
	}

	if _, err := svc.AttachItem(r.Context(), pubID, requester(r), itemKind, payload); err != nil {
		h.respondError(w, r, err)
		return
	}
	render.NoContent(w, r)
}

// GetItem returns one item, creator only.
// GET /publications/items/{itemKind}/{itemID}/
func (h *Handler) GetItem(w http.ResponseWriter, r *http.Request) {
	kind, ok := h.itemKind(w, r)
	if !ok {
		return
	}
	id, ok := pathID(r, "itemID")
	if !ok {
		h.respondError(w, r, pubhub.ErrItemNotFound)
		return
	}

	item, err := h.services.Items().Get(r.Context(), kind, id, requester(r))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	render.JSON(w, r, render.M{"id": item.ID, "item": item})
}

// UpdateItem replaces the item's payload, creator only.
// PUT /publications/items/{itemKind}/{itemID}/
func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	kind, ok := h.itemKind(w, r)
	if !ok {
		return
	}
	id, ok := pathID(r, "itemID")
	if !ok {
		h.respondError(w, r, pubhub.ErrItemNotFound)
		return
	}

	payload, err := itemPayload(r, kind)
	if err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, render.M{"error": "invalid request body"})
		return
	}

	if err := h.services.Items().Update(r.Context(), kind, id, requester(r), payload); err != nil {
		h.respondError(w, r, err)
		return
	}
	render.NoContent(w, r)
}

// DeleteItem removes the item together with its Content association,
// creator only.
// DELETE /publications/items/{itemKind}/{itemID}/
func (h *Handler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	kind, ok := h.itemKind(w, r)
	if !ok {
		return
	}
	id, ok := pathID(r, "itemID")
	if !ok {
		h.respondError(w, r, pubhub.ErrItemNotFound)
		return
	}

	if err := h.services.Items().Delete(r.Context(), kind, id, requester(r)); err != nil {
		h.respondError(w, r, err)
		return
	}
	render.NoContent(w, r)
}
