package httpclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Body is an encoded request payload. It can be read any number of times,
// so redirects and retries inside net/http can replay it. A nil *Body sends
// no payload.
type Body struct {
	data        []byte
	contentType string
}

// JSONBody encodes v once.
func JSONBody(v any) (*Body, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode json body: %w", err)
	}
	return &Body{data: data, contentType: "application/json"}, nil
}

func (b *Body) reader() (io.ReadCloser, error) {
	if b.Len() == 0 {
		return http.NoBody, nil
	}
	return io.NopCloser(bytes.NewReader(b.data)), nil
}

// Len is the encoded size in bytes.
func (b *Body) Len() int {
	if b == nil {
		return 0
	}
	return len(b.data)
}

// ContentType is empty for a nil body.
func (b *Body) ContentType() string {
	if b == nil {
		return ""
	}
	return b.contentType
}
