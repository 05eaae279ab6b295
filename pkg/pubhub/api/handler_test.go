package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pubhub/pubhub/pkg/pubhub"
	"github.com/pubhub/pubhub/pkg/pubhub/api"
	countermemory "github.com/pubhub/pubhub/pkg/pubhub/counter/memory"
	"github.com/pubhub/pubhub/pkg/pubhub/repo/memory"
	"github.com/pubhub/pubhub/pkg/pubhub/token"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	repo := memory.New()
	services, err := pubhub.New(
		pubhub.WithRepository(repo),
		pubhub.WithCounterStore(countermemory.New()),
	)
	require.NoError(t, err)

	issuer := token.NewIssuer([]byte("test-secret"), token.NewMemoryBlacklist(), 15*time.Minute, 24*time.Hour, nil)
	users := pubhub.NewUserService(repo, issuer, nil)

	handler := api.NewHandler(services, users, issuer, nil)
	srv := httptest.NewServer(handler.Routes())
	t.Cleanup(srv.Close)
	return srv
}

type client struct {
	t      *testing.T
	srv    *httptest.Server
	bearer string
}

func (c *client) do(method, path string, body interface{}) (*http.Response, map[string]json.RawMessage) {
	c.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, c.srv.URL+path, &buf)
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", "application/json")
	if c.bearer != "" {
		req.Header.Set("Authorization", "Bearer "+c.bearer)
	}

	resp, err := c.srv.Client().Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()

	fields := map[string]json.RawMessage{}
	_ = json.NewDecoder(resp.Body).Decode(&fields)
	return resp, fields
}

func (c *client) register(username string) {
	c.t.Helper()
	resp, fields := c.do(http.MethodPost, "/users/registration/", map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": "swordfish1",
	})
	require.Equal(c.t, http.StatusCreated, resp.StatusCode)
	var access string
	require.NoError(c.t, json.Unmarshal(fields["access"], &access))
	c.bearer = access
}

func (c *client) createArticle(title string) int64 {
	c.t.Helper()
	resp, fields := c.do(http.MethodPost, "/publications/articles/", map[string]interface{}{
		"title":      title,
		"intro_text": "intro",
		"tags":       []string{"go"},
	})
	require.Equal(c.t, http.StatusCreated, resp.StatusCode)
	var id int64
	require.NoError(c.t, json.Unmarshal(fields["id"], &id))
	return id
}

func TestRegistrationAndLogin(t *testing.T) {
	srv := newTestServer(t)
	c := &client{t: t, srv: srv}

	c.register("alice")
	require.NotEmpty(t, c.bearer)

	resp, fields := c.do(http.MethodPost, "/users/login/", map[string]string{
		"username": "alice",
		"password": "swordfish1",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, fields, "access")
	assert.Contains(t, fields, "refresh")

	resp, _ = c.do(http.MethodPost, "/users/login/", map[string]string{
		"username": "alice",
		"password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Duplicate registration surfaces the field error.
	resp, fields = c.do(http.MethodPost, "/users/registration/", map[string]string{
		"username": "alice",
		"email":    "second@example.com",
		"password": "swordfish1",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var msg string
	require.NoError(t, json.Unmarshal(fields["username"], &msg))
	assert.Equal(t, "A user with that username already exists.", msg)
}

func TestPublicationLifecycle(t *testing.T) {
	srv := newTestServer(t)
	alice := &client{t: t, srv: srv}
	alice.register("alice")

	// Creating without a token is rejected before anything else.
	anon := &client{t: t, srv: srv}
	resp, _ := anon.do(http.MethodPost, "/publications/articles/", map[string]string{
		"title":      "t",
		"intro_text": "intro",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	id := alice.createArticle("hello go")

	// The listing is public.
	resp, _ = anon.do(http.MethodGet, "/publications/articles/", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, fields := anon.do(http.MethodGet, fmt.Sprintf("/publications/articles/%d/", id), nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var title string
	require.NoError(t, json.Unmarshal(fields["title"], &title))
	assert.Equal(t, "hello go", title)

	// Another user cannot edit it.
	bob := &client{t: t, srv: srv}
	bob.register("bob")
	resp, _ = bob.do(http.MethodPut, fmt.Sprintf("/publications/articles/edit/%d/", id), map[string]string{
		"title":      "stolen",
		"intro_text": "intro",
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = alice.do(http.MethodPut, fmt.Sprintf("/publications/articles/edit/%d/", id), map[string]string{
		"title":      "hello again",
		"intro_text": "intro",
	})
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = alice.do(http.MethodDelete, fmt.Sprintf("/publications/articles/edit/%d/", id), nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = anon.do(http.MethodGet, fmt.Sprintf("/publications/articles/%d/", id), nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUnknownKindRejected(t *testing.T) {
	srv := newTestServer(t)
	anon := &client{t: t, srv: srv}

	resp, fields := anon.do(http.MethodGet, "/publications/blog/", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var msg string
	require.NoError(t, json.Unmarshal(fields["error"], &msg))
	assert.Equal(t, "invalid publication type", msg)
}

func TestValidationErrorsAreFieldMapped(t *testing.T) {
	srv := newTestServer(t)
	alice := &client{t: t, srv: srv}
	alice.register("alice")

	resp, fields := alice.do(http.MethodPost, "/publications/articles/", map[string]string{
		"intro_text": "intro",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var msg string
	require.NoError(t, json.Unmarshal(fields["title"], &msg))
	assert.Equal(t, "This field is required.", msg)
}

func TestReactions(t *testing.T) {
	srv := newTestServer(t)
	alice := &client{t: t, srv: srv}
	alice.register("alice")
	id := alice.createArticle("rated")

	resp, _ := alice.do(http.MethodPost, fmt.Sprintf("/publications/articles/%d/like/", id), nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, fields := alice.do(http.MethodGet, fmt.Sprintf("/publications/articles/%d/", id), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var rating int64
	require.NoError(t, json.Unmarshal(fields["rating"], &rating))
	assert.Equal(t, int64(1), rating)

	resp, _ = alice.do(http.MethodDelete, fmt.Sprintf("/publications/articles/%d/like/", id), nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, fields = alice.do(http.MethodGet, fmt.Sprintf("/publications/articles/%d/", id), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(fields["rating"], &rating))
	assert.Equal(t, int64(0), rating)
}

func TestItemRoutes(t *testing.T) {
	srv := newTestServer(t)
	alice := &client{t: t, srv: srv}
	alice.register("alice")
	id := alice.createArticle("with items")

	// Missing payload field answers with the field-mapped message.
	resp, fields := alice.do(http.MethodPost, fmt.Sprintf("/publications/contents/articles/%d/text/", id), map[string]string{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var msg string
	require.NoError(t, json.Unmarshal(fields["content"], &msg))
	assert.Equal(t, "This field is required.", msg)

	resp, _ = alice.do(http.MethodPost, fmt.Sprintf("/publications/contents/articles/%d/text/", id), map[string]string{
		"content": "body text",
	})
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	// The detail now serializes the item per its kind.
	resp, fields = alice.do(http.MethodGet, fmt.Sprintf("/publications/articles/%d/", id), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var items []struct {
		ID   int64 `json:"id"`
		Item struct {
			ItemName string `json:"item_name"`
			Content  string `json:"content"`
		} `json:"item"`
	}
	require.NoError(t, json.Unmarshal(fields["items"], &items))
	require.Len(t, items, 1)
	assert.Equal(t, "text", items[0].Item.ItemName)
	assert.Equal(t, "body text", items[0].Item.Content)

	// Item edits are creator gated.
	bob := &client{t: t, srv: srv}
	bob.register("bob")
	itemID := int64(1)
	resp, _ = bob.do(http.MethodPut, fmt.Sprintf("/publications/items/text/%d/", itemID), map[string]string{
		"content": "hijacked",
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = alice.do(http.MethodPut, fmt.Sprintf("/publications/items/text/%d/", itemID), map[string]string{
		"content": "revised",
	})
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = alice.do(http.MethodDelete, fmt.Sprintf("/publications/items/text/%d/", itemID), nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = alice.do(http.MethodGet, fmt.Sprintf("/publications/items/text/%d/", itemID), nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestLogoutBlacklistsToken(t *testing.T) {
	srv := newTestServer(t)
	alice := &client{t: t, srv: srv}
	alice.register("alice")

	resp, fields := alice.do(http.MethodPost, "/users/login/", map[string]string{
		"username": "alice",
		"password": "swordfish1",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var refresh string
	require.NoError(t, json.Unmarshal(fields["refresh"], &refresh))

	resp, _ = alice.do(http.MethodPost, "/users/logout/", map[string]string{
		"refresh_token": refresh,
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// The access token used for the logout is dead now.
	resp, _ = alice.do(http.MethodPost, "/publications/posts/", map[string]string{})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestPasswordResetFlow(t *testing.T) {
	srv := newTestServer(t)
	alice := &client{t: t, srv: srv}
	alice.register("alice")

	// The endpoint does not reveal whether the email exists.
	resp, _ := alice.do(http.MethodPost, "/users/password/reset/", map[string]string{
		"email": "nobody@example.com",
	})
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	resp, _ = alice.do(http.MethodPost, "/users/password/reset/", map[string]string{
		"email": "alice@example.com",
	})
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	resp, _ = alice.do(http.MethodPost, "/users/password/reset/confirm/", map[string]string{
		"token":        "unknown-token",
		"new_password": "newpassword1",
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestProfileEdit(t *testing.T) {
	srv := newTestServer(t)
	alice := &client{t: t, srv: srv}
	alice.register("alice")
	bob := &client{t: t, srv: srv}
	bob.register("bob")

	// Alice is user 1, bob is user 2; bob cannot edit her profile.
	resp, _ := bob.do(http.MethodPut, "/users/1/edit/", map[string]string{
		"first_name": "Mallory",
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = alice.do(http.MethodPut, "/users/1/edit/", map[string]string{
		"first_name": "Alice",
	})
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = alice.do(http.MethodPost, "/users/password/change/", map[string]string{
		"old_password": "swordfish1",
		"new_password": "newpassword1",
	})
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = alice.do(http.MethodPost, "/users/login/", map[string]string{
		"username": "alice",
		"password": "newpassword1",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
