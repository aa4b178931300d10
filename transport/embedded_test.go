package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/coder/websocket"
)

func TestEmbeddedDialAndReceive(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embed" {
			http.NotFound(w, r)
			return
		}
		if got := r.URL.Query().Get("appId"); got != "demo" {
			t.Errorf("appId = %q", got)
		}
		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
		if err != nil {
			return
		}
		defer c.Close(websocket.StatusNormalClosure, "done")
		if err := c.Write(r.Context(), websocket.MessageText, []byte(`{"type":"READY"}`)); err != nil {
			t.Errorf("write: %v", err)
		}
		// Keep the socket open until the client hangs up.
		_, _, _ = c.Read(r.Context())
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := Params{SurfaceOrigin: srv.URL, AppID: "demo", HostOrigin: "http://localhost:3000"}
	e, err := dialEmbedded(ctx, p)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer e.Close()

	if e.Kind() != KindEmbedded {
		t.Fatalf("kind = %v", e.Kind())
	}
	if e.Gone() {
		t.Fatal("embedded transport reported gone")
	}

	select {
	case in := <-e.Inbound():
		if in.Origin != srv.URL {
			t.Fatalf("inbound origin = %q, want %q", in.Origin, srv.URL)
		}
		if string(in.Data) != `{"type":"READY"}` {
			t.Fatalf("inbound data = %s", in.Data)
		}
	case <-ctx.Done():
		t.Fatal("no inbound message")
	}
}

func TestEmbeddedDialFailure(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	p := Params{SurfaceOrigin: "http://127.0.0.1:1", AppID: "demo"}
	if _, err := dialEmbedded(ctx, p); err == nil {
		t.Fatal("expected dial error")
	}
}

func TestEmbeddedInboundClosesOnDisconnect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
		if err != nil {
			return
		}
		c.Close(websocket.StatusNormalClosure, "bye")
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	e, err := dialEmbedded(ctx, Params{SurfaceOrigin: srv.URL, AppID: "demo"})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer e.Close()

	select {
	case _, ok := <-e.Inbound():
		if ok {
			t.Fatal("unexpected inbound message")
		}
	case <-ctx.Done():
		t.Fatal("inbound channel never closed")
	}
}
