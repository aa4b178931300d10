// surface-sim is a local stand-in for the isolated authentication
// surface. It speaks the bridge protocol over the same channels the
// production surface uses, so the full open/ready/success cycle can be
// exercised without network access: point the bridge at it with
// --surface-origin http://localhost:<port>.
package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/google/uuid"

	"github.com/identikit/authbridge/internal/logx"
	"github.com/identikit/authbridge/protocol"
)

var (
	port         = flag.Int("port", 7080, "HTTP listen port")
	logLevel     = flag.String("log-level", "info", "log verbosity")
	readyDelay   = flag.Duration("ready-delay", 100*time.Millisecond, "delay before READY is sent")
	successDelay = flag.Duration("success-delay", 2*time.Second, "delay before AUTH_SUCCESS is sent")
	nickname     = flag.String("nickname", "dev-user", "nickname in the generated identity")
)

func main() {
	flag.Parse()
	logx.Configure(*logLevel)

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))
	r.Get("/embed", handleEmbed)
	r.Get("/authorize", handleAuthorize)

	logx.Log.Info().Int("port", *port).Msg("surface simulator listening")
	if err := http.ListenAndServe(fmt.Sprintf(":%d", *port), r); err != nil {
		logx.Log.Fatal().Err(err).Msg("server error")
	}
}

// handleEmbed plays the embedded-surface side of the ceremony: accept
// the bridge's websocket, report READY, then complete with a generated
// identity.
func handleEmbed(w http.ResponseWriter, r *http.Request) {
	appID := r.URL.Query().Get("appId")
	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		return
	}
	defer c.Close(websocket.StatusNormalClosure, "done")
	ctx := r.Context()
	logx.Log.Info().Str("app_id", appID).Msg("embed session")

	time.Sleep(*readyDelay)
	if err := send(ctx, c, protocol.Message{Type: protocol.TypeReady}); err != nil {
		return
	}
	time.Sleep(*successDelay)
	id := newIdentity()
	if err := send(ctx, c, protocol.Message{Type: protocol.TypeAuthSuccess, Identity: &id}); err != nil {
		return
	}
	logx.Log.Info().Str("address", id.Address).Msg("ceremony complete")
}

func send(ctx context.Context, c *websocket.Conn, m protocol.Message) error {
	b, err := protocol.Encode(m)
	if err != nil {
		return err
	}
	return c.Write(ctx, websocket.MessageText, b)
}

// newIdentity fabricates a plausible identity payload.
func newIdentity() protocol.Identity {
	seed := uuid.New()
	addr := make([]byte, 20)
	copy(addr, seed[:])
	_, _ = rand.Read(addr[16:])
	return protocol.Identity{
		Address:  "0x" + hex.EncodeToString(addr),
		Nickname: *nickname,
		Avatar:   []byte(`{"variant":"beam","seed":"` + seed.String() + `"}`),
	}
}

var authorizePage = template.Must(template.New("authorize").Parse(`<!doctype html>
<html>
<head><title>Authorize {{.AppID}}</title></head>
<body>
<p>Simulated ceremony for <b>{{.AppID}}</b> (scopes: {{.Scopes}}). This window closes itself.</p>
<script>
  const ws = new WebSocket({{.Callback}});
  ws.onopen = () => {
    ws.send(JSON.stringify({type: "READY"}));
    setTimeout(() => {
      ws.send(JSON.stringify({type: "AUTH_SUCCESS", payload: {identity: {{.Identity}}}}));
      setTimeout(() => window.close(), 250);
    }, {{.Delay}});
  };
</script>
</body>
</html>
`))

// handleAuthorize serves the popup ceremony page. The page reports
// back over the loopback callback websocket supplied by the bridge.
func handleAuthorize(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	cb := q.Get("callback")
	if cb == "" {
		http.Error(w, "callback required", http.StatusBadRequest)
		return
	}
	id := newIdentity()
	data := struct {
		AppID    string
		Scopes   string
		Callback string
		Identity protocol.Identity
		Delay    int64
	}{
		AppID:    q.Get("appId"),
		Scopes:   q.Get("scopes"),
		Callback: cb,
		Identity: id,
		Delay:    (*successDelay).Milliseconds(),
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := authorizePage.Execute(w, data); err != nil {
		logx.Log.Error().Err(err).Msg("authorize page")
	}
}
