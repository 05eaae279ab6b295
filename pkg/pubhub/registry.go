package pubhub

import (
	"encoding/json"
	"net/url"
)

// The item registry is a closed variant set: each item kind maps to the name
// of its single payload field and that field's validation rule. The field
// name is part of the variant's shape, not a generic lookup.
type itemSpec struct {
	payloadField string
	validate     func(payload string) string // empty string means valid
}

var itemSpecs = map[ItemKind]itemSpec{
	ItemText:  {payloadField: "content", validate: requiredPayload},
	ItemFile:  {payloadField: "file", validate: requiredPayload},
	ItemImage: {payloadField: "image", validate: requiredPayload},
	ItemVideo: {payloadField: "url", validate: validateVideoURL},
}

func requiredPayload(payload string) string {
	if payload == "" {
		return "This field is required."
	}
	return ""
}

func validateVideoURL(payload string) string {
	if payload == "" {
		return "This field is required."
	}
	u, err := url.Parse(payload)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return "Enter a valid URL."
	}
	return ""
}

// PayloadField returns the name of the kind's payload field
// (content, file, image or url).
func (k ItemKind) PayloadField() string {
	return itemSpecs[k].payloadField
}

// ValidateItemPayload checks the payload against the kind's rule and
// returns a field-mapped validation error on failure.
func ValidateItemPayload(kind ItemKind, payload string) error {
	spec, ok := itemSpecs[kind]
	if !ok {
		return ErrInvalidKind
	}
	if msg := spec.validate(payload); msg != "" {
		return FieldErrors{spec.payloadField: msg}
	}
	return nil
}

// MarshalJSON serializes an item per its own kind: the item_name tag plus
// the kind's payload field. item_name is derived from the kind at save time
// and is never caller-settable.
func (i Item) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]string{
		"item_name":            string(i.Kind),
		i.Kind.PayloadField(): i.Payload,
	})
}

// AttachedItem is the detail-envelope shape for one Content row: the
// association id plus the item serialized per its kind.
type AttachedItem struct {
	ID   int64 `json:"id"`
	Item Item  `json:"item"`
}
