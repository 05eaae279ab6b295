package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pubhub/pubhub/pkg/pubhub"
	"github.com/pubhub/pubhub/pkg/pubhub/repo/memory"
)

func seedPublication(t *testing.T, repo *memory.Repository, kind pubhub.PublicationKind, status bool, createdAt time.Time) *pubhub.Publication {
	t.Helper()
	p := &pubhub.Publication{
		Kind:      kind,
		AuthorID:  1,
		Title:     "seed",
		IntroText: "intro",
		Status:    status,
		CreatedAt: createdAt,
	}
	require.NoError(t, repo.CreatePublication(context.Background(), p))
	return p
}

func TestPublicationCRUD(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()

	p := seedPublication(t, repo, pubhub.KindArticles, true, time.Now().UTC())
	require.NotZero(t, p.ID)

	got, err := repo.GetPublication(ctx, pubhub.KindArticles, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.Title, got.Title)

	// The same id under another kind does not resolve.
	_, err = repo.GetPublication(ctx, pubhub.KindNews, p.ID)
	assert.ErrorIs(t, err, pubhub.ErrPublicationNotFound)

	got.Title = "renamed"
	require.NoError(t, repo.UpdatePublication(ctx, got))
	again, err := repo.GetPublication(ctx, pubhub.KindArticles, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "renamed", again.Title)

	require.NoError(t, repo.DeletePublication(ctx, pubhub.KindArticles, p.ID))
	_, err = repo.GetPublication(ctx, pubhub.KindArticles, p.ID)
	assert.ErrorIs(t, err, pubhub.ErrPublicationNotFound)
	err = repo.DeletePublication(ctx, pubhub.KindArticles, p.ID)
	assert.ErrorIs(t, err, pubhub.ErrPublicationNotFound)
}

func TestGetPublishedPublication(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()

	draft := seedPublication(t, repo, pubhub.KindArticles, false, time.Now().UTC())

	_, err := repo.GetPublishedPublication(ctx, pubhub.KindArticles, draft.ID)
	assert.ErrorIs(t, err, pubhub.ErrPublicationNotFound)

	// The edit path still sees it.
	_, err = repo.GetPublication(ctx, pubhub.KindArticles, draft.ID)
	assert.NoError(t, err)
}

func TestListPublishedOrderAndPaging(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()
	base := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

	var ids []int64
	for i := 0; i < 5; i++ {
		p := seedPublication(t, repo, pubhub.KindNews, true, base.Add(time.Duration(i)*time.Minute))
		ids = append(ids, p.ID)
	}
	seedPublication(t, repo, pubhub.KindNews, false, base.Add(time.Hour))
	seedPublication(t, repo, pubhub.KindArticles, true, base.Add(time.Hour))

	page, err := repo.ListPublished(ctx, pubhub.KindNews, 3, 0)
	require.NoError(t, err)
	require.Len(t, page, 3)
	// Newest first.
	assert.Equal(t, ids[4], page[0].ID)
	assert.Equal(t, ids[3], page[1].ID)
	assert.Equal(t, ids[2], page[2].ID)

	rest, err := repo.ListPublished(ctx, pubhub.KindNews, 3, 3)
	require.NoError(t, err)
	require.Len(t, rest, 2)
	assert.Equal(t, ids[1], rest[0].ID)

	none, err := repo.ListPublished(ctx, pubhub.KindNews, 3, 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSetReaction(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()

	p := seedPublication(t, repo, pubhub.KindPosts, true, time.Now().UTC())

	changed, err := repo.SetReaction(ctx, pubhub.KindPosts, p.ID, 7, pubhub.ReactionLike, true)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = repo.SetReaction(ctx, pubhub.KindPosts, p.ID, 7, pubhub.ReactionLike, true)
	require.NoError(t, err)
	assert.False(t, changed)

	changed, err = repo.SetReaction(ctx, pubhub.KindPosts, p.ID, 7, pubhub.ReactionLike, false)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = repo.SetReaction(ctx, pubhub.KindPosts, p.ID, 7, pubhub.ReactionLike, false)
	require.NoError(t, err)
	assert.False(t, changed)

	_, err = repo.SetReaction(ctx, pubhub.KindPosts, p.ID+1, 7, pubhub.ReactionLike, true)
	assert.ErrorIs(t, err, pubhub.ErrPublicationNotFound)
}

func TestItemWithContentLifecycle(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()

	p := seedPublication(t, repo, pubhub.KindArticles, true, time.Now().UTC())

	item := &pubhub.Item{CreatorID: 1, Kind: pubhub.ItemText, Payload: "body"}
	content, err := repo.CreateItemWithContent(ctx, item, pubhub.KindArticles, p.ID)
	require.NoError(t, err)
	require.NotZero(t, item.ID)
	assert.Equal(t, item.ID, content.ItemID)
	assert.Equal(t, p.ID, content.PublicationID)

	_, err = repo.CreateItemWithContent(ctx, &pubhub.Item{Kind: pubhub.ItemText}, pubhub.KindArticles, p.ID+1)
	assert.ErrorIs(t, err, pubhub.ErrPublicationNotFound)

	got, err := repo.GetItem(ctx, pubhub.ItemText, item.ID)
	require.NoError(t, err)
	assert.Equal(t, "body", got.Payload)

	// Item ids are scoped per kind.
	_, err = repo.GetItem(ctx, pubhub.ItemImage, item.ID)
	assert.ErrorIs(t, err, pubhub.ErrItemNotFound)

	got.Payload = "revised"
	require.NoError(t, repo.UpdateItem(ctx, got))

	list, err := repo.ListContentsFor(ctx, pubhub.KindArticles, []int64{p.ID}, nil)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "revised", list[0].Item.Payload)

	text := pubhub.ItemText
	list, err = repo.ListContentsFor(ctx, pubhub.KindArticles, []int64{p.ID}, &text)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	image := pubhub.ItemImage
	list, err = repo.ListContentsFor(ctx, pubhub.KindArticles, []int64{p.ID}, &image)
	require.NoError(t, err)
	assert.Empty(t, list)

	require.NoError(t, repo.DeleteItemWithContent(ctx, pubhub.ItemText, item.ID))
	_, err = repo.GetItem(ctx, pubhub.ItemText, item.ID)
	assert.ErrorIs(t, err, pubhub.ErrItemNotFound)
	list, err = repo.ListContentsFor(ctx, pubhub.KindArticles, []int64{p.ID}, nil)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestDeletePublicationCascades(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()

	p := seedPublication(t, repo, pubhub.KindArticles, true, time.Now().UTC())
	item := &pubhub.Item{CreatorID: 1, Kind: pubhub.ItemText, Payload: "body"}
	_, err := repo.CreateItemWithContent(ctx, item, pubhub.KindArticles, p.ID)
	require.NoError(t, err)
	_, err = repo.SetReaction(ctx, pubhub.KindArticles, p.ID, 7, pubhub.ReactionLike, true)
	require.NoError(t, err)

	require.NoError(t, repo.DeletePublication(ctx, pubhub.KindArticles, p.ID))

	_, err = repo.GetItem(ctx, pubhub.ItemText, item.ID)
	assert.ErrorIs(t, err, pubhub.ErrItemNotFound)
	list, err := repo.ListContentsFor(ctx, pubhub.KindArticles, []int64{p.ID}, nil)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestUserUniqueness(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()

	alice := &pubhub.User{Username: "alice", Email: "alice@example.com"}
	require.NoError(t, repo.CreateUser(ctx, alice))
	require.NotZero(t, alice.ID)

	err := repo.CreateUser(ctx, &pubhub.User{Username: "alice", Email: "other@example.com"})
	assert.ErrorIs(t, err, pubhub.ErrUsernameTaken)
	err = repo.CreateUser(ctx, &pubhub.User{Username: "other", Email: "alice@example.com"})
	assert.ErrorIs(t, err, pubhub.ErrEmailTaken)

	bob := &pubhub.User{Username: "bob", Email: "bob@example.com"}
	require.NoError(t, repo.CreateUser(ctx, bob))

	bob.Email = "alice@example.com"
	err = repo.UpdateUser(ctx, bob)
	assert.ErrorIs(t, err, pubhub.ErrEmailTaken)

	bob.Email = "bobby@example.com"
	require.NoError(t, repo.UpdateUser(ctx, bob))

	got, err := repo.GetUserByEmail(ctx, "bobby@example.com")
	require.NoError(t, err)
	assert.Equal(t, bob.ID, got.ID)
	// The old email no longer resolves.
	_, err = repo.GetUserByEmail(ctx, "bob@example.com")
	assert.ErrorIs(t, err, pubhub.ErrUserNotFound)
}

func TestGetUsersByIDs(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()

	alice := &pubhub.User{Username: "alice", Email: "alice@example.com"}
	require.NoError(t, repo.CreateUser(ctx, alice))

	users, err := repo.GetUsersByIDs(ctx, []int64{alice.ID, alice.ID + 10})
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "alice", users[alice.ID].Username)
}

func TestPasswordResets(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()

	pr := &pubhub.PasswordReset{Email: "alice@example.com", Token: "tok", CreatedAt: time.Now().UTC()}
	require.NoError(t, repo.CreatePasswordReset(ctx, pr))

	got, err := repo.GetPasswordReset(ctx, "tok")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", got.Email)

	require.NoError(t, repo.DeletePasswordReset(ctx, "tok"))
	_, err = repo.GetPasswordReset(ctx, "tok")
	assert.ErrorIs(t, err, pubhub.ErrResetNotFound)
	err = repo.DeletePasswordReset(ctx, "tok")
	assert.ErrorIs(t, err, pubhub.ErrResetNotFound)
}

func TestCopiesAreIsolated(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()

	p := seedPublication(t, repo, pubhub.KindArticles, true, time.Now().UTC())
	p.Tags = []string{"go"}
	require.NoError(t, repo.UpdatePublication(ctx, p))

	got, err := repo.GetPublication(ctx, pubhub.KindArticles, p.ID)
	require.NoError(t, err)
	got.Tags[0] = "mutated"
	got.Title = "mutated"

	fresh, err := repo.GetPublication(ctx, pubhub.KindArticles, p.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"go"}, fresh.Tags)
	assert.Equal(t, "seed", fresh.Title)
}
