package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Source identifies one of the supported social networks.
type Source string

// supported sources, fixed set with no runtime registration
const (
	SourceMicroblog     Source = "microblog"
	SourcePhotoShare    Source = "photoshare"
	SourceSocialNetwork Source = "socialnetwork"
)

// ParseSource converts a string to a Source, rejecting unknown values.
func ParseSource(s string) (Source, error) {
	switch Source(s) {
	case SourceMicroblog, SourcePhotoShare, SourceSocialNetwork:
		return Source(s), nil
	}
	return "", fmt.Errorf("unknown source %q", s)
}

// Image describes a single rendition of a post image.
type Image struct {
	URL    string `json:"url"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// Item is the canonical, source-independent representation of a social post.
// Immutable after construction, the external ID is always a string even when
// the source returns a numeric identifier.
type Item struct {
	ID     string
	Type   Source
	Text   string
	Posted *time.Time
	Images map[string]Image

	raw map[string]any // original source payload, kept for round-trips
}

// NewItem creates a canonical item. The raw payload is retained as-is and
// reachable only through the Extra probe.
func NewItem(id string, source Source, text string, posted *time.Time, images map[string]Image, raw map[string]any) Item {
	return Item{ID: id, Type: source, Text: text, Posted: posted, Images: images, raw: raw}
}

// Extra probes the retained raw payload for a source-specific field not
// hoisted into the canonical model. The second return distinguishes a missing
// field from a null one, so typos don't silently read as empty values.
func (i Item) Extra(name string) (any, bool) {
	v, ok := i.raw[name]
	return v, ok
}

// itemJSON is the serialization shape, timestamps go out as ISO-8601
type itemJSON struct {
	ID           string           `json:"id"`
	Type         Source           `json:"type"`
	Text         string           `json:"text"`
	Posted       *time.Time       `json:"posted"`
	Images       map[string]Image `json:"image_dict,omitempty"`
	OriginalData map[string]any   `json:"original_data,omitempty"`
}

// MarshalJSON implements json.Marshaler
func (i Item) MarshalJSON() ([]byte, error) {
	return json.Marshal(itemJSON{
		ID:           i.ID,
		Type:         i.Type,
		Text:         i.Text,
		Posted:       i.Posted,
		Images:       i.Images,
		OriginalData: i.raw,
	})
}

// UnmarshalJSON implements json.Unmarshaler
func (i *Item) UnmarshalJSON(data []byte) error {
	var aux itemJSON
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber() // keep large numeric ids in the raw payload intact
	if err := dec.Decode(&aux); err != nil {
		return fmt.Errorf("decode item: %w", err)
	}
	*i = Item{
		ID:     aux.ID,
		Type:   aux.Type,
		Text:   aux.Text,
		Posted: aux.Posted,
		Images: aux.Images,
		raw:    aux.OriginalData,
	}
	return nil
}

// StringID coerces a raw identifier of any JSON type to its string form.
func StringID(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(val, 10)
	case nil:
		return ""
	default:
		return fmt.Sprint(val)
	}
}
