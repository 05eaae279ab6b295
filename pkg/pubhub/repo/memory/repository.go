// Package memory implements pubhub.Repository with in-process maps. It is
// the default for tests and development.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/pubhub/pubhub/pkg/pubhub"
)

type pubKey struct {
	kind pubhub.PublicationKind
	id   int64
}

type itemKey struct {
	kind pubhub.ItemKind
	id   int64
}

type reactionKey struct {
	kind     pubhub.PublicationKind
	id       int64
	reaction pubhub.Reaction
}

// Repository implements pubhub.Repository using in-memory storage.
type Repository struct {
	mu sync.RWMutex

	nextPublicationID int64
	nextItemID        int64
	nextContentID     int64
	nextUserID        int64

	publications map[pubKey]*pubhub.Publication
	contents     map[int64]*pubhub.Content
	items        map[itemKey]*pubhub.Item
	reactions    map[reactionKey]map[int64]struct{}
	users        map[int64]*pubhub.User
	usersByName  map[string]int64
	usersByEmail map[string]int64
	resets       map[string]*pubhub.PasswordReset
}

// New creates a new in-memory repository.
func New() *Repository {
	return &Repository{
		publications: make(map[pubKey]*pubhub.Publication),
		contents:     make(map[int64]*pubhub.Content),
		items:        make(map[itemKey]*pubhub.Item),
		reactions:    make(map[reactionKey]map[int64]struct{}),
		users:        make(map[int64]*pubhub.User),
		usersByName:  make(map[string]int64),
		usersByEmail: make(map[string]int64),
		resets:       make(map[string]*pubhub.PasswordReset),
	}
}

func copyPublication(p *pubhub.Publication) *pubhub.Publication {
	c := *p
	c.Tags = append([]string(nil), p.Tags...)
	c.Mention = append([]int64(nil), p.Mention...)
	return &c
}

// Publication operations

func (r *Repository) CreatePublication(ctx context.Context, p *pubhub.Publication) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextPublicationID++
	p.ID = r.nextPublicationID
	r.publications[pubKey{p.Kind, p.ID}] = copyPublication(p)
	return nil
}

func (r *Repository) GetPublication(ctx context.Context, kind pubhub.PublicationKind, id int64) (*pubhub.Publication, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.publications[pubKey{kind, id}]
	if !ok {
		return nil, pubhub.ErrPublicationNotFound
	}
	return copyPublication(p), nil
}

func (r *Repository) GetPublishedPublication(ctx context.Context, kind pubhub.PublicationKind, id int64) (*pubhub.Publication, error) {
	p, err := r.GetPublication(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	if !p.Status {
		return nil, pubhub.ErrPublicationNotFound
	}
	return p, nil
}

func (r *Repository) UpdatePublication(ctx context.Context, p *pubhub.Publication) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := pubKey{p.Kind, p.ID}
	if _, ok := r.publications[key]; !ok {
		return pubhub.ErrPublicationNotFound
	}
	r.publications[key] = copyPublication(p)
	return nil
}

func (r *Repository) DeletePublication(ctx context.Context, kind pubhub.PublicationKind, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := pubKey{kind, id}
	if _, ok := r.publications[key]; !ok {
		return pubhub.ErrPublicationNotFound
	}
	delete(r.publications, key)

	// Cascade: content rows go, and their items with them.
	for cid, c := range r.contents {
		if c.PublicationKind == kind && c.PublicationID == id {
			delete(r.items, itemKey{c.ItemKind, c.ItemID})
			delete(r.contents, cid)
		}
	}
	delete(r.reactions, reactionKey{kind, id, pubhub.ReactionLike})
	delete(r.reactions, reactionKey{kind, id, pubhub.ReactionDislike})
	return nil
}

func (r *Repository) ListPublished(ctx context.Context, kind pubhub.PublicationKind, limit, offset int) ([]*pubhub.Publication, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*pubhub.Publication
	for key, p := range r.publications {
		if key.kind == kind && p.Status {
			result = append(result, copyPublication(p))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})

	if offset >= len(result) {
		return nil, nil
	}
	result = result[offset:]
	if limit < len(result) {
		result = result[:limit]
	}
	return result, nil
}

func (r *Repository) SetReaction(ctx context.Context, kind pubhub.PublicationKind, id, userID int64, reaction pubhub.Reaction, add bool) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.publications[pubKey{kind, id}]; !ok {
		return false, pubhub.ErrPublicationNotFound
	}

	key := reactionKey{kind, id, reaction}
	set, ok := r.reactions[key]
	if !ok {
		set = make(map[int64]struct{})
		r.reactions[key] = set
	}

	if add {
		if _, ok := set[userID]; ok {
			return false, nil
		}
		set[userID] = struct{}{}
		return true, nil
	}
	if _, ok := set[userID]; !ok {
		return false, nil
	}
	delete(set, userID)
	return true, nil
}

// Item and content operations

func (r *Repository) CreateItemWithContent(ctx context.Context, item *pubhub.Item, pubKind pubhub.PublicationKind, pubID int64) (*pubhub.Content, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.publications[pubKey{pubKind, pubID}]; !ok {
		return nil, pubhub.ErrPublicationNotFound
	}

	// Item and association are created under one lock; there is no state
	// in which only one of them exists.
	r.nextItemID++
	item.ID = r.nextItemID
	itemCopy := *item
	r.items[itemKey{item.Kind, item.ID}] = &itemCopy

	r.nextContentID++
	c := &pubhub.Content{
		ID:              r.nextContentID,
		PublicationKind: pubKind,
		PublicationID:   pubID,
		ItemKind:        item.Kind,
		ItemID:          item.ID,
	}
	r.contents[c.ID] = c

	contentCopy := *c
	return &contentCopy, nil
}

func (r *Repository) GetItem(ctx context.Context, kind pubhub.ItemKind, id int64) (*pubhub.Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[itemKey{kind, id}]
	if !ok {
		return nil, pubhub.ErrItemNotFound
	}
	itemCopy := *item
	return &itemCopy, nil
}

func (r *Repository) UpdateItem(ctx context.Context, item *pubhub.Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := itemKey{item.Kind, item.ID}
	if _, ok := r.items[key]; !ok {
		return pubhub.ErrItemNotFound
	}
	itemCopy := *item
	r.items[key] = &itemCopy
	return nil
}

func (r *Repository) DeleteItemWithContent(ctx context.Context, kind pubhub.ItemKind, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := itemKey{kind, id}
	if _, ok := r.items[key]; !ok {
		return pubhub.ErrItemNotFound
	}

	var contentID int64 = -1
	for cid, c := range r.contents {
		if c.ItemKind == kind && c.ItemID == id {
			contentID = cid
			break
		}
	}
	if contentID < 0 {
		// An item without an owning association is state corruption;
		// surface it instead of deleting blindly.
		return pubhub.ErrContentNotFound
	}

	delete(r.contents, contentID)
	delete(r.items, key)
	return nil
}

func (r *Repository) ListContentsFor(ctx context.Context, pubKind pubhub.PublicationKind, pubIDs []int64, kind *pubhub.ItemKind) ([]*pubhub.ContentWithItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	wanted := make(map[int64]struct{}, len(pubIDs))
	for _, id := range pubIDs {
		wanted[id] = struct{}{}
	}

	var result []*pubhub.ContentWithItem
	for _, c := range r.contents {
		if c.PublicationKind != pubKind {
			continue
		}
		if _, ok := wanted[c.PublicationID]; !ok {
			continue
		}
		if kind != nil && c.ItemKind != *kind {
			continue
		}
		item, ok := r.items[itemKey{c.ItemKind, c.ItemID}]
		if !ok {
			continue
		}
		result = append(result, &pubhub.ContentWithItem{Content: *c, Item: *item})
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Content.ID < result[j].Content.ID
	})
	return result, nil
}

// User operations

func (r *Repository) CreateUser(ctx context.Context, u *pubhub.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.usersByName[u.Username]; ok {
		return pubhub.ErrUsernameTaken
	}
	if _, ok := r.usersByEmail[u.Email]; ok {
		return pubhub.ErrEmailTaken
	}

	r.nextUserID++
	u.ID = r.nextUserID
	userCopy := *u
	r.users[u.ID] = &userCopy
	r.usersByName[u.Username] = u.ID
	r.usersByEmail[u.Email] = u.ID
	return nil
}

func (r *Repository) GetUser(ctx context.Context, id int64) (*pubhub.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, pubhub.ErrUserNotFound
	}
	userCopy := *u
	return &userCopy, nil
}

func (r *Repository) GetUserByUsername(ctx context.Context, username string) (*pubhub.User, error) {
	r.mu.RLock()
	id, ok := r.usersByName[username]
	r.mu.RUnlock()
	if !ok {
		return nil, pubhub.ErrUserNotFound
	}
	return r.GetUser(ctx, id)
}

func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*pubhub.User, error) {
	r.mu.RLock()
	id, ok := r.usersByEmail[email]
	r.mu.RUnlock()
	if !ok {
		return nil, pubhub.ErrUserNotFound
	}
	return r.GetUser(ctx, id)
}

func (r *Repository) GetUsersByIDs(ctx context.Context, ids []int64) (map[int64]*pubhub.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[int64]*pubhub.User, len(ids))
	for _, id := range ids {
		if u, ok := r.users[id]; ok {
			userCopy := *u
			result[id] = &userCopy
		}
	}
	return result, nil
}

func (r *Repository) UpdateUser(ctx context.Context, u *pubhub.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	old, ok := r.users[u.ID]
	if !ok {
		return pubhub.ErrUserNotFound
	}
	if id, taken := r.usersByEmail[u.Email]; taken && id != u.ID {
		return pubhub.ErrEmailTaken
	}
	if id, taken := r.usersByName[u.Username]; taken && id != u.ID {
		return pubhub.ErrUsernameTaken
	}

	delete(r.usersByName, old.Username)
	delete(r.usersByEmail, old.Email)
	userCopy := *u
	r.users[u.ID] = &userCopy
	r.usersByName[u.Username] = u.ID
	r.usersByEmail[u.Email] = u.ID
	return nil
}

// Password reset operations

func (r *Repository) CreatePasswordReset(ctx context.Context, pr *pubhub.PasswordReset) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	resetCopy := *pr
	r.resets[pr.Token] = &resetCopy
	return nil
}

func (r *Repository) GetPasswordReset(ctx context.Context, token string) (*pubhub.PasswordReset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	pr, ok := r.resets[token]
	if !ok {
		return nil, pubhub.ErrResetNotFound
	}
	resetCopy := *pr
	return &resetCopy, nil
}

func (r *Repository) DeletePasswordReset(ctx context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.resets[token]; !ok {
		return pubhub.ErrResetNotFound
	}
	delete(r.resets, token)
	return nil
}
