package transport

import (
	"context"
	"fmt"
	"sync"

	"github.com/coder/websocket"
)

// embedded is the primary transport: a websocket dialed straight to
// the isolated surface's embed endpoint. The declared origin of every
// inbound message is the origin the socket was dialed to.
type embedded struct {
	conn   *websocket.Conn
	origin string

	inbound chan Inbound
	cancel  context.CancelFunc
	once    sync.Once
}

func dialEmbedded(ctx context.Context, p Params) (*embedded, error) {
	u := embedURL(p)
	if u == "" {
		return nil, fmt.Errorf("transport: invalid surface origin %q", p.SurfaceOrigin)
	}
	conn, _, err := websocket.Dial(ctx, u, nil)
	if err != nil {
		return nil, fmt.Errorf("transport: embed dial: %w", err)
	}
	readCtx, cancel := context.WithCancel(context.Background())
	e := &embedded{
		conn:    conn,
		origin:  p.SurfaceOrigin,
		inbound: make(chan Inbound, 16),
		cancel:  cancel,
	}
	go e.readLoop(readCtx)
	return e, nil
}

func (e *embedded) Kind() Kind           { return KindEmbedded }
func (e *embedded) TargetOrigin() string { return e.origin }
func (e *embedded) Inbound() <-chan Inbound {
	return e.inbound
}

// Gone is always false: the host owns the embedded surface's
// container, so there is no externally closable window to watch.
func (e *embedded) Gone() bool { return false }

func (e *embedded) Send(ctx context.Context, data []byte) error {
	return e.conn.Write(ctx, websocket.MessageText, data)
}

func (e *embedded) Close() error {
	e.once.Do(func() {
		e.cancel()
		_ = e.conn.Close(websocket.StatusNormalClosure, "closing")
	})
	return nil
}

func (e *embedded) readLoop(ctx context.Context) {
	defer close(e.inbound)
	for {
		_, data, err := e.conn.Read(ctx)
		if err != nil {
			return
		}
		select {
		case e.inbound <- Inbound{Origin: e.origin, Data: data}:
		case <-ctx.Done():
			return
		}
	}
}
