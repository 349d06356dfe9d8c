package httpclient

import (
	"io"
	"testing"
)

func TestJSONBodyReplays(t *testing.T) {
	body, err := JSONBody(map[string]int{"skier": 7})
	if err != nil {
		t.Fatalf("JSONBody() error = %v", err)
	}
	if body.ContentType() != "application/json" {
		t.Errorf("ContentType() = %q", body.ContentType())
	}
	if body.Len() != len(`{"skier":7}`) {
		t.Errorf("Len() = %d", body.Len())
	}

	for i := 0; i < 2; i++ {
		r, err := body.reader()
		if err != nil {
			t.Fatalf("reader() error = %v", err)
		}
		data, _ := io.ReadAll(r)
		_ = r.Close()
		if string(data) != `{"skier":7}` {
			t.Errorf("read %d = %q", i, data)
		}
	}
}

func TestJSONBodyEncodeError(t *testing.T) {
	if _, err := JSONBody(make(chan int)); err == nil {
		t.Fatal("expected error encoding a channel")
	}
}

func TestNilBody(t *testing.T) {
	var body *Body
	r, err := body.reader()
	if err != nil {
		t.Fatalf("reader() error = %v", err)
	}
	if data, _ := io.ReadAll(r); len(data) != 0 {
		t.Errorf("nil body read %q", data)
	}
	if body.Len() != 0 || body.ContentType() != "" {
		t.Errorf("nil body Len() = %d, ContentType() = %q", body.Len(), body.ContentType())
	}
}
