package pubhub

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

const pageSize = 4

const maxTitleLength = 250

// service holds the shared collaborators; kind-specific views over it are
// handed out by the Services factory.
type service struct {
	repo     Repository
	counters CounterStore
	rating   *RatingHandler
	logger   *slog.Logger
}

// Option represents a functional option for configuring the services.
type Option func(*service)

// WithRepository sets the repository.
func WithRepository(repo Repository) Option {
	return func(s *service) {
		s.repo = repo
	}
}

// WithCounterStore sets the counter store used for views, ratings and
// daily creation counters.
func WithCounterStore(counters CounterStore) Option {
	return func(s *service) {
		s.counters = counters
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *service) {
		s.logger = logger
	}
}

// Services is the factory handing out kind-scoped publication services and
// the item edit service.
type Services struct {
	svc *service
}

// New creates the service factory. A repository and a counter store are
// required.
func New(options ...Option) (*Services, error) {
	s := &service{}
	for _, option := range options {
		option(s)
	}

	if s.repo == nil {
		return nil, fmt.Errorf("repository is required")
	}
	if s.counters == nil {
		return nil, fmt.Errorf("counter store is required")
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.rating = NewRatingHandler(s.counters, s.logger)

	return &Services{svc: s}, nil
}

// Publications returns the service for one publication kind, rejecting
// tags outside the publication set.
func (f *Services) Publications(kind PublicationKind) (PublicationService, error) {
	if _, err := ParsePublicationKind(string(kind)); err != nil {
		return nil, err
	}
	return &publicationService{kind: kind, service: f.svc}, nil
}

// Items returns the creator-gated item edit service.
func (f *Services) Items() ItemService {
	return &itemService{service: f.svc}
}

type publicationService struct {
	kind PublicationKind
	*service
}

// parsePageToken maps a raw page token to a page number. Non-numeric
// tokens (including the empty token) fall back to the first page; numeric
// tokens below one are out of range.
func parsePageToken(token string) (page int, inRange bool) {
	page, err := strconv.Atoi(strings.TrimSpace(token))
	if err != nil {
		return 1, true
	}
	if page < 1 {
		return 0, false
	}
	return page, true
}

func (s *publicationService) List(ctx context.Context, pageToken string) ([]PublicationSummary, error) {
	page, inRange := parsePageToken(pageToken)
	if !inRange {
		return []PublicationSummary{}, nil
	}

	pubs, err := s.repo.ListPublished(ctx, s.kind, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, &PublicationError{Kind: s.kind, Op: "list", Err: err}
	}
	if len(pubs) == 0 {
		return []PublicationSummary{}, nil
	}

	ids := make([]int64, 0, len(pubs))
	for _, p := range pubs {
		ids = append(ids, p.ID)
	}

	// One batched fetch of text content for the whole page; listing never
	// loads the other item kinds.
	textKind := ItemText
	contents, err := s.repo.ListContentsFor(ctx, s.kind, ids, &textKind)
	if err != nil {
		return nil, &PublicationError{Kind: s.kind, Op: "list contents", Err: err}
	}
	texts := make(map[int64][]string)
	for _, c := range contents {
		texts[c.PublicationID] = append(texts[c.PublicationID], c.Item.Payload)
	}

	users, err := s.usersFor(ctx, pubs)
	if err != nil {
		return nil, &PublicationError{Kind: s.kind, Op: "list users", Err: err}
	}

	summaries := make([]PublicationSummary, 0, len(pubs))
	for _, p := range pubs {
		summaries = append(summaries, s.summarize(ctx, p, users, texts[p.ID]))
	}
	return summaries, nil
}

func (s *publicationService) Detail(ctx context.Context, id int64) (*PublicationDetail, error) {
	p, err := s.repo.GetPublishedPublication(ctx, s.kind, id)
	if err != nil {
		return nil, err
	}

	// Every detail fetch counts as a view, repeated callers included.
	if err := s.counters.Increment(ctx, viewsKey(s.kind, id)); err != nil {
		s.logger.Error("view counter increment failed", "key", viewsKey(s.kind, id), "error", err)
	}

	contents, err := s.repo.ListContentsFor(ctx, s.kind, []int64{id}, nil)
	if err != nil {
		return nil, &PublicationError{Kind: s.kind, ID: id, Op: "detail contents", Err: err}
	}

	items := make([]AttachedItem, 0, len(contents))
	var texts []string
	for _, c := range contents {
		items = append(items, AttachedItem{ID: c.Content.ID, Item: c.Item})
		if c.ItemKind == ItemText {
			texts = append(texts, c.Item.Payload)
		}
	}

	users, err := s.usersFor(ctx, []*Publication{p})
	if err != nil {
		return nil, &PublicationError{Kind: s.kind, ID: id, Op: "detail users", Err: err}
	}

	return &PublicationDetail{
		PublicationSummary: s.summarize(ctx, p, users, texts),
		Items:              items,
	}, nil
}

func (s *publicationService) Create(ctx context.Context, req CreatePublicationRequest) (*Publication, error) {
	p := &Publication{
		Kind:      s.kind,
		AuthorID:  req.AuthorID,
		Status:    req.Status == nil || *req.Status,
		Mention:   req.Mention,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.applyEditable(ctx, p, req.Title, req.IntroText, req.IntroImage, req.Level, req.Tags, req.Mention); err != nil {
		return nil, err
	}

	if err := s.repo.CreatePublication(ctx, p); err != nil {
		return nil, &PublicationError{Kind: s.kind, Op: "create", Err: err}
	}

	if p.Status {
		if err := s.AddPublicationCreation(ctx); err != nil {
			s.logger.Error("creation counter increment failed", "kind", s.kind, "error", err)
		}
	}
	return p, nil
}

func (s *publicationService) Update(ctx context.Context, id, requester int64, req UpdatePublicationRequest) error {
	p, err := s.repo.GetPublication(ctx, s.kind, id)
	if err != nil {
		return err
	}
	if p.AuthorID != requester {
		return ErrForbidden
	}

	p.Status = req.Status == nil || *req.Status
	p.Mention = req.Mention
	if err := s.applyEditable(ctx, p, req.Title, req.IntroText, req.IntroImage, req.Level, req.Tags, req.Mention); err != nil {
		return err
	}

	if err := s.repo.UpdatePublication(ctx, p); err != nil {
		return &PublicationError{Kind: s.kind, ID: id, Op: "update", Err: err}
	}
	return nil
}

func (s *publicationService) Delete(ctx context.Context, id, requester int64) error {
	p, err := s.repo.GetPublication(ctx, s.kind, id)
	if err != nil {
		return err
	}
	if p.AuthorID != requester {
		return ErrForbidden
	}
	if err := s.repo.DeletePublication(ctx, s.kind, id); err != nil {
		return &PublicationError{Kind: s.kind, ID: id, Op: "delete", Err: err}
	}
	return nil
}

func (s *publicationService) React(ctx context.Context, id, userID int64, reaction Reaction, add bool) error {
	if _, err := s.repo.GetPublishedPublication(ctx, s.kind, id); err != nil {
		return err
	}
	changed, err := s.repo.SetReaction(ctx, s.kind, id, userID, reaction, add)
	if err != nil {
		return &PublicationError{Kind: s.kind, ID: id, Op: "react", Err: err}
	}
	if changed {
		s.rating.MembershipChanged(ctx, s.kind, id, reaction, add)
	}
	return nil
}

func (s *publicationService) AttachItem(ctx context.Context, pubID, requester int64, kind ItemKind, payload string) (*Item, error) {
	p, err := s.repo.GetPublication(ctx, s.kind, pubID)
	if err != nil {
		return nil, err
	}
	// Authorship is checked before payload validation.
	if p.AuthorID != requester {
		return nil, ErrForbidden
	}
	if err := ValidateItemPayload(kind, payload); err != nil {
		return nil, err
	}

	item := &Item{CreatorID: requester, Kind: kind, Payload: payload}
	if _, err := s.repo.CreateItemWithContent(ctx, item, s.kind, pubID); err != nil {
		return nil, &ItemError{Kind: kind, Op: "attach", Err: err}
	}
	return item, nil
}

func (s *publicationService) AddPublicationCreation(ctx context.Context) error {
	return s.counters.Increment(ctx, creationKey(s.kind, time.Now().UTC()))
}

func (s *publicationService) GetPublicationCreation(ctx context.Context) (int64, error) {
	v, _, err := s.counters.Get(ctx, creationKey(s.kind, time.Now().UTC()))
	return v, err
}

// applyEditable validates and writes the kind's editable fields onto the
// publication. Posts carry none of the extras, so anything supplied for
// them is dropped rather than stored.
func (s *publicationService) applyEditable(ctx context.Context, p *Publication, title, introText, introImage string, level Level, tags []string, mention []int64) error {
	errs := FieldErrors{}

	if s.kind == KindPosts {
		p.Title, p.IntroText, p.IntroImage, p.Level, p.Tags = "", "", "", "", nil
	} else {
		if title == "" {
			errs.Add("title", "This field is required.")
		} else if utf8.RuneCountInString(title) > maxTitleLength {
			errs.Add("title", fmt.Sprintf("Ensure this field has no more than %d characters.", maxTitleLength))
		}
		if introText == "" {
			errs.Add("intro_text", "This field is required.")
		}
		p.Title, p.IntroText, p.IntroImage, p.Tags = title, introText, introImage, tags

		if s.kind == KindArticles {
			switch level {
			case "":
				p.Level = LevelEasy
			case LevelEasy, LevelMid, LevelHard:
				p.Level = level
			default:
				errs.Add("level", fmt.Sprintf("%q is not a valid choice.", string(level)))
			}
		} else {
			p.Level = ""
		}
	}

	if len(mention) > 0 {
		users, err := s.repo.GetUsersByIDs(ctx, mention)
		if err != nil {
			return &PublicationError{Kind: s.kind, Op: "resolve mention", Err: err}
		}
		for _, id := range mention {
			if _, ok := users[id]; !ok {
				errs.Add("mention", fmt.Sprintf("Invalid pk %d - object does not exist.", id))
				break
			}
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// usersFor batch-resolves the author and mention references for a set of
// publications.
func (s *publicationService) usersFor(ctx context.Context, pubs []*Publication) (map[int64]*User, error) {
	seen := make(map[int64]struct{})
	var ids []int64
	add := func(id int64) {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	for _, p := range pubs {
		add(p.AuthorID)
		for _, m := range p.Mention {
			add(m)
		}
	}
	return s.repo.GetUsersByIDs(ctx, ids)
}

func (s *publicationService) summarize(ctx context.Context, p *Publication, users map[int64]*User, texts []string) PublicationSummary {
	summary := PublicationSummary{
		ID:         p.ID,
		CreatedAt:  p.CreatedAt,
		Status:     p.Status,
		Title:      p.Title,
		IntroText:  p.IntroText,
		IntroImage: p.IntroImage,
		Level:      p.Level,
		Tags:       p.Tags,
		ReadTime:   readTime(texts),
		Views:      s.counterValue(ctx, viewsKey(p.Kind, p.ID)),
		Rating:     s.counterValue(ctx, ratingKey(p.Kind, p.ID)),
		Mention:    make([]UserRef, 0, len(p.Mention)),
	}
	if u, ok := users[p.AuthorID]; ok {
		summary.Author = u.Ref()
	} else {
		summary.Author = UserRef{ID: p.AuthorID}
	}
	for _, m := range p.Mention {
		if u, ok := users[m]; ok {
			summary.Mention = append(summary.Mention, u.Ref())
		} else {
			summary.Mention = append(summary.Mention, UserRef{ID: m})
		}
	}
	return summary
}

// counterValue reads a counter, treating absence and store failure as
// zero. Store failures are logged, never surfaced to the request.
func (s *service) counterValue(ctx context.Context, key string) int64 {
	v, ok, err := s.counters.Get(ctx, key)
	if err != nil {
		s.logger.Error("counter read failed", "key", key, "error", err)
		return 0
	}
	if !ok {
		return 0
	}
	return v
}

type itemService struct {
	*service
}

func (s *itemService) Get(ctx context.Context, kind ItemKind, id, requester int64) (*Item, error) {
	if _, err := ParseItemKind(string(kind)); err != nil {
		return nil, err
	}
	item, err := s.repo.GetItem(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	if item.CreatorID != requester {
		return nil, ErrForbidden
	}
	return item, nil
}

func (s *itemService) Update(ctx context.Context, kind ItemKind, id, requester int64, payload string) error {
	item, err := s.Get(ctx, kind, id, requester)
	if err != nil {
		return err
	}
	if err := ValidateItemPayload(kind, payload); err != nil {
		return err
	}
	item.Payload = payload
	if err := s.repo.UpdateItem(ctx, item); err != nil {
		return &ItemError{Kind: kind, ID: id, Op: "update", Err: err}
	}
	return nil
}

func (s *itemService) Delete(ctx context.Context, kind ItemKind, id, requester int64) error {
	if _, err := s.Get(ctx, kind, id, requester); err != nil {
		return err
	}
	// The repository removes the item and its owning Content row as one
	// step; a missing association surfaces as ErrContentNotFound.
	return s.repo.DeleteItemWithContent(ctx, kind, id)
}
