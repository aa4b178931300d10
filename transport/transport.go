package transport

import "context"

// Kind identifies the transport flavor.
type Kind string

const (
	KindEmbedded Kind = "embedded"
	KindPopup    Kind = "popup"
)

// Inbound is one raw message received from the isolated surface,
// tagged with the origin it was declared from. The origin is what the
// validator's origin gate judges; transports never filter themselves.
type Inbound struct {
	Origin string
	Data   []byte
}

// Params describe the surface endpoint a new transport should attach to.
type Params struct {
	// SurfaceOrigin is the scheme+host origin of the isolated surface.
	SurfaceOrigin string
	AppID         string
	Scopes        []string
	// HostOrigin is the origin the host declares in the open request.
	HostOrigin string
}

// Transport is a live message channel to the isolated surface. The
// Inbound channel is closed when the underlying channel ends; Close is
// idempotent and safe from any goroutine.
type Transport interface {
	Kind() Kind
	TargetOrigin() string
	Send(ctx context.Context, data []byte) error
	Inbound() <-chan Inbound
	// Gone reports whether a previously connected secondary window has
	// closed. Always false for embedded transports.
	Gone() bool
	Close() error
}

// Factory creates transports. The bridge uses Default in production;
// tests substitute fakes.
type Factory interface {
	Embedded(ctx context.Context, p Params) (Transport, error)
	Popup(ctx context.Context, p Params) (Transport, error)
}

type defaultFactory struct{}

// Default returns the production transport factory.
func Default() Factory { return defaultFactory{} }

func (defaultFactory) Embedded(ctx context.Context, p Params) (Transport, error) {
	return dialEmbedded(ctx, p)
}

func (defaultFactory) Popup(ctx context.Context, p Params) (Transport, error) {
	return openPopup(ctx, p)
}
