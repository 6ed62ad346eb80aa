package request

import (
	"encoding/json"
	"strings"

	"github.com/manas-swain-001/cms-client/pkg/logger"
)

// Kind tags the classification of a response body.
type Kind int

const (
	// KindRaw is anything that matched no other classification.
	KindRaw Kind = iota
	// KindJSON is a decoded JSON document.
	KindJSON
	// KindText is plain text or HTML.
	KindText
	// KindBinary is an opaque payload such as a PDF or image.
	KindBinary
)

// Body is the tagged result of classifying a response exactly once, rather
// than cascading content-type string checks at every call site.
type Body struct {
	Kind Kind
	// JSON holds the decoded document when Kind is KindJSON.
	JSON any
	// Text holds the body when Kind is KindText.
	Text string
	// Bytes holds the raw payload for KindBinary and KindRaw.
	Bytes []byte
	// ContentType is the declared media type of the payload.
	ContentType string
	// Status is the HTTP status the body arrived with.
	Status int
}

// Decode unmarshals a JSON body into dest.
func (b *Body) Decode(dest any) error {
	raw, err := json.Marshal(b.JSON)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dest)
}

// DecodeField unmarshals a single top-level field of a JSON body into dest,
// typically the "data" member of the backend envelope.
func (b *Body) DecodeField(field string, dest any) error {
	obj, ok := b.JSON.(map[string]any)
	if !ok {
		return json.Unmarshal([]byte("null"), dest)
	}
	raw, err := json.Marshal(obj[field])
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dest)
}

var binaryPrefixes = []string{
	"application/octet-stream",
	"application/pdf",
	"image/",
	"video/",
	"audio/",
}

// classify produces the tagged Body for a payload, in priority order:
// JSON, text, binary, raw.
func classify(contentType string, raw []byte, forceBinary bool, log logger.Logger) *Body {
	body := &Body{ContentType: contentType, Bytes: raw}

	if forceBinary {
		body.Kind = KindBinary
		return body
	}

	mediaType := contentType
	if i := strings.IndexByte(mediaType, ';'); i >= 0 {
		mediaType = mediaType[:i]
	}
	mediaType = strings.TrimSpace(strings.ToLower(mediaType))

	switch {
	case mediaType == "application/json" || strings.HasSuffix(mediaType, "+json"):
		if len(raw) == 0 {
			body.Kind = KindJSON
			return body
		}
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			log.Warn("response declared JSON but did not parse, passing through as text", "error", err)
			body.Kind = KindText
			body.Text = string(raw)
			return body
		}
		body.Kind = KindJSON
		body.JSON = v
		return body

	case strings.HasPrefix(mediaType, "text/"):
		body.Kind = KindText
		body.Text = string(raw)
		return body
	}

	for _, prefix := range binaryPrefixes {
		if strings.HasPrefix(mediaType, prefix) {
			body.Kind = KindBinary
			return body
		}
	}

	body.Kind = KindRaw
	if len(raw) == 0 {
		body.Bytes = nil
	}
	return body
}
