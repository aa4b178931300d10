package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/pkg/browser"
)

// ErrNotConnected indicates the popup page has not reported back yet.
var ErrNotConnected = errors.New("transport: popup not connected")

// popup is the secondary-window transport. It runs a loopback callback
// server and opens the surface's authorize page in a system browser
// window; the page dials the callback websocket and relays protocol
// messages. The declared origin of inbound messages is the Origin
// header of the callback handshake.
type popup struct {
	origin string
	srv    *http.Server
	ln     net.Listener

	inbound chan Inbound
	done    chan struct{}

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
	dropped   bool

	closeOnce sync.Once
}

func openPopup(ctx context.Context, p Params) (*popup, error) {
	pp, cb, err := newLoopback(p)
	if err != nil {
		return nil, err
	}
	if err := browser.OpenURL(authorizeURL(p, cb)); err != nil {
		_ = pp.Close()
		return nil, fmt.Errorf("transport: open window: %w", err)
	}
	return pp, nil
}

// newLoopback starts the callback server without opening a browser
// window. It returns the transport and the callback websocket URL the
// popup page should dial.
func newLoopback(p Params) (*popup, string, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, "", fmt.Errorf("transport: loopback listen: %w", err)
	}
	pp := &popup{
		origin:  p.SurfaceOrigin,
		ln:      ln,
		inbound: make(chan Inbound, 16),
		done:    make(chan struct{}),
	}

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{p.SurfaceOrigin, "http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))
	r.Get("/callback", pp.handleCallback(p))
	pp.srv = &http.Server{Handler: r}
	go func() { _ = pp.srv.Serve(ln) }()

	cb := fmt.Sprintf("ws://%s/callback", ln.Addr().String())
	return pp, cb, nil
}

func (p *popup) handleCallback(params Params) http.HandlerFunc {
	patterns := []string{"localhost:*", "127.0.0.1:*"}
	if u, err := url.Parse(params.SurfaceOrigin); err == nil && u.Host != "" {
		patterns = append(patterns, u.Host)
	}
	return func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: patterns})
		if err != nil {
			return
		}
		p.mu.Lock()
		if p.conn != nil {
			p.mu.Unlock()
			_ = c.Close(websocket.StatusPolicyViolation, "already connected")
			return
		}
		p.conn = c
		p.connected = true
		p.mu.Unlock()

		ctx := r.Context()
		for {
			_, data, err := c.Read(ctx)
			if err != nil {
				// The window closed or navigated away. The close-poll
				// timer observes this through Gone.
				p.mu.Lock()
				p.dropped = true
				p.mu.Unlock()
				return
			}
			select {
			case p.inbound <- Inbound{Origin: origin, Data: data}:
			case <-p.done:
				return
			}
		}
	}
}

func (p *popup) Kind() Kind              { return KindPopup }
func (p *popup) TargetOrigin() string    { return p.origin }
func (p *popup) Inbound() <-chan Inbound { return p.inbound }

// Gone reports whether the popup connected and then went away.
func (p *popup) Gone() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.connected && p.dropped
}

func (p *popup) Send(ctx context.Context, data []byte) error {
	p.mu.Lock()
	c := p.conn
	p.mu.Unlock()
	if c == nil {
		return ErrNotConnected
	}
	return c.Write(ctx, websocket.MessageText, data)
}

func (p *popup) Close() error {
	p.closeOnce.Do(func() {
		close(p.done)
		p.mu.Lock()
		c := p.conn
		p.mu.Unlock()
		if c != nil {
			_ = c.Close(websocket.StatusNormalClosure, "closing")
		}
		_ = p.srv.Close()
	})
	return nil
}
