package pubhub_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pubhub/pubhub/pkg/pubhub"
)

func TestPayloadField(t *testing.T) {
	assert.Equal(t, "content", pubhub.ItemText.PayloadField())
	assert.Equal(t, "file", pubhub.ItemFile.PayloadField())
	assert.Equal(t, "image", pubhub.ItemImage.PayloadField())
	assert.Equal(t, "url", pubhub.ItemVideo.PayloadField())
}

func TestValidateItemPayload(t *testing.T) {
	tests := []struct {
		name    string
		kind    pubhub.ItemKind
		payload string
		field   string
		message string
	}{
		{name: "text ok", kind: pubhub.ItemText, payload: "hello"},
		{name: "text empty", kind: pubhub.ItemText, payload: "", field: "content", message: "This field is required."},
		{name: "file empty", kind: pubhub.ItemFile, payload: "", field: "file", message: "This field is required."},
		{name: "image ok", kind: pubhub.ItemImage, payload: "cat.png"},
		{name: "video ok", kind: pubhub.ItemVideo, payload: "https://example.com/v"},
		{name: "video empty", kind: pubhub.ItemVideo, payload: "", field: "url", message: "This field is required."},
		{name: "video relative", kind: pubhub.ItemVideo, payload: "/v/1", field: "url", message: "Enter a valid URL."},
		{name: "video garbage", kind: pubhub.ItemVideo, payload: "not a url", field: "url", message: "Enter a valid URL."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := pubhub.ValidateItemPayload(tt.kind, tt.payload)
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var fields pubhub.FieldErrors
			require.ErrorAs(t, err, &fields)
			assert.Equal(t, tt.message, fields[tt.field])
		})
	}
}

func TestValidateItemPayloadUnknownKind(t *testing.T) {
	err := pubhub.ValidateItemPayload(pubhub.ItemKind("audio"), "x")
	assert.ErrorIs(t, err, pubhub.ErrInvalidKind)
}

func TestItemSerializesPerKind(t *testing.T) {
	out, err := json.Marshal(pubhub.Item{ID: 1, Kind: pubhub.ItemVideo, Payload: "https://example.com/v"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"item_name":"video","url":"https://example.com/v"}`, string(out))

	out, err = json.Marshal(pubhub.Item{ID: 2, Kind: pubhub.ItemText, Payload: "body"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"item_name":"text","content":"body"}`, string(out))
}

func TestParseKinds(t *testing.T) {
	k, err := pubhub.ParsePublicationKind("articles")
	require.NoError(t, err)
	assert.Equal(t, pubhub.KindArticles, k)

	// Item kind tags are not publication kind tags, and vice versa.
	_, err = pubhub.ParsePublicationKind("video")
	assert.ErrorIs(t, err, pubhub.ErrInvalidKind)

	ik, err := pubhub.ParseItemKind("video")
	require.NoError(t, err)
	assert.Equal(t, pubhub.ItemVideo, ik)

	_, err = pubhub.ParseItemKind("news")
	assert.ErrorIs(t, err, pubhub.ErrInvalidKind)
}

func TestFieldErrorsFirstWins(t *testing.T) {
	errs := pubhub.FieldErrors{}
	errs.Add("title", "This field is required.")
	errs.Add("title", "second message")
	assert.Equal(t, "This field is required.", errs["title"])
	assert.Contains(t, errs.Error(), "title: This field is required.")
}
