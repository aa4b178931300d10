package bridge

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/identikit/authbridge/internal/logx"
	"github.com/identikit/authbridge/internal/metrics"
	"github.com/identikit/authbridge/protocol"
	"github.com/identikit/authbridge/transport"
)

// Bridge delegates an authentication ceremony to an isolated browser
// surface and relays its outcome to the host through typed events. A
// Bridge holds at most one live session; Open a new one only after the
// previous reached closed.
type Bridge struct {
	cfg     Config
	factory transport.Factory
	events  events

	mu    sync.Mutex
	state SessionState
	sess  *session
}

// Option customizes a Bridge at construction.
type Option func(*Bridge)

// WithFactory replaces the production transport factory.
func WithFactory(f transport.Factory) Option {
	return func(b *Bridge) { b.factory = f }
}

// New validates cfg and returns a Bridge in the idle state. No
// transport is created until Open.
func New(cfg Config, opts ...Option) (*Bridge, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	b := &Bridge{cfg: cfg, factory: transport.Default(), state: StateIdle}
	for _, o := range opts {
		o(b)
	}
	return b, nil
}

// State returns the current session lifecycle state.
func (b *Bridge) State() SessionState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Bridge) setState(to SessionState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !validTransition(b.state, to) {
		logx.Log.Debug().Str("from", string(b.state)).Str("to", string(to)).Msg("ignoring invalid state transition")
		return
	}
	b.state = to
}

// Open starts an authentication session and blocks until the surface
// reports READY or the session fails terminally. Later outcomes
// (success, cancel, error, consent) are delivered through the event
// subscriptions. Open settles exactly once, including across the
// embedded-to-popup fallback.
func (b *Bridge) Open(ctx context.Context) error {
	b.mu.Lock()
	if !openable(b.state) {
		b.mu.Unlock()
		return ErrSessionActive
	}
	b.state = StateOpening
	s := newSession(b)
	b.sess = s
	b.mu.Unlock()

	logx.Log.Info().Str("session_id", s.id).Str("app_id", b.cfg.AppID).Msg("opening session")
	if err := s.start(ctx); err != nil {
		e := &Error{Code: protocol.CodeNetworkError, Message: err.Error()}
		b.events.err.emit(e)
		metrics.RecordOutcome("error")
		s.teardown()
		return e
	}
	go s.run()

	select {
	case err := <-s.result:
		if err != nil {
			return err
		}
		return nil
	case <-ctx.Done():
		s.shutdown()
		return ctx.Err()
	}
}

// Close tears down the active session. It is idempotent, safe to call
// from any state, and a no-op when nothing is open.
func (b *Bridge) Close() {
	b.mu.Lock()
	s := b.sess
	b.mu.Unlock()
	if s == nil {
		return
	}
	s.shutdown()
}

// session is one open()..close() lifecycle. Its run loop owns all
// state mutation: inbound messages, timer firings, and close requests
// are serialized through a single select so competing triggers always
// observe a consistent state.
type session struct {
	b       *Bridge
	id      string
	cfg     Config
	factory transport.Factory

	mu     sync.Mutex
	tr     transport.Transport
	closed bool

	timers     timerSet
	detectionC <-chan time.Time
	overallC   <-chan time.Time
	pollC      <-chan time.Time
	inbound    <-chan transport.Inbound

	started time.Time

	closeCh chan struct{}
	reqOnce sync.Once

	downOnce   sync.Once
	settleOnce sync.Once
	result     chan error
}

func newSession(b *Bridge) *session {
	return &session{
		b:       b,
		id:      uuid.NewString(),
		cfg:     b.cfg,
		factory: b.factory,
		started: time.Now(),
		closeCh: make(chan struct{}),
		result:  make(chan error, 1),
	}
}

func (s *session) params() transport.Params {
	return transport.Params{
		SurfaceOrigin: s.cfg.surfaceOrigin(),
		AppID:         s.cfg.AppID,
		Scopes:        s.cfg.Scopes,
		HostOrigin:    s.cfg.HostOrigin,
	}
}

func (s *session) transport() transport.Transport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tr
}

// attach adopts a freshly created transport. A Close can land while
// the factory call is still in flight; in that case the session is
// already torn down and the transport must not outlive it, so attach
// closes it on the spot and reports false.
func (s *session) attach(tr transport.Transport) bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = tr.Close()
		return false
	}
	s.tr = tr
	s.mu.Unlock()
	s.inbound = tr.Inbound()
	return true
}

func (s *session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// start attaches the first transport per the configured strategy.
func (s *session) start(ctx context.Context) error {
	if s.cfg.PreferPopup {
		tr, err := s.factory.Popup(ctx, s.params())
		if err != nil {
			return err
		}
		if s.attach(tr) {
			metrics.RecordSessionStart(string(tr.Kind()))
		}
		return nil
	}
	tr, err := s.factory.Embedded(ctx, s.params())
	if err != nil {
		// A failed embed dial is indistinguishable from a blocked
		// frame; go straight to the secondary window.
		logx.Log.Debug().Str("session_id", s.id).Err(err).Msg("embed dial failed, trying secondary window")
		metrics.RecordFallback()
		tr, err = s.factory.Popup(ctx, s.params())
		if err != nil {
			return err
		}
	}
	if s.attach(tr) {
		metrics.RecordSessionStart(string(tr.Kind()))
	}
	return nil
}

func (s *session) run() {
	if s.isClosed() {
		return
	}
	s.overallC = s.timers.startOverall(s.cfg.Timeout)
	if s.transport().Kind() == transport.KindEmbedded {
		s.detectionC = s.timers.startDetection(s.cfg.DetectionTimeout)
	} else {
		s.pollC = s.timers.startClosePoll(closePollInterval)
	}
	for {
		select {
		case <-s.closeCh:
			// Timers may have been armed after teardown's stopAll if a
			// close raced transport creation; stop them again here.
			s.timers.stopAll()
			s.teardown()
			return
		case <-s.detectionC:
			if s.b.State() != StateOpening {
				// READY won the race in an earlier iteration.
				s.detectionC = nil
				continue
			}
			if !s.fallback() {
				return
			}
		case <-s.overallC:
			s.fail(&Error{Code: protocol.CodeTimeout, Message: "session timed out"}, "timeout")
			return
		case <-s.pollC:
			if s.transport().Gone() {
				s.cancelled("secondary window closed")
				return
			}
		case in, ok := <-s.inbound:
			if !ok {
				if s.transportEnded() {
					return
				}
				continue
			}
			if s.handle(in) {
				return
			}
		}
	}
}

// fallback tears down the embedded transport and transparently retries
// with a secondary window. The caller's Open stays pending throughout.
// Returns false when the session failed instead.
func (s *session) fallback() bool {
	s.timers.stopDetection()
	s.detectionC = nil
	_ = s.transport().Close()
	metrics.RecordFallback()
	logx.Log.Info().Str("session_id", s.id).Msg("embedded surface unresponsive, retrying with secondary window")
	tr, err := s.factory.Popup(context.Background(), s.params())
	if err != nil {
		s.fail(&Error{Code: protocol.CodeNetworkError, Message: fmt.Sprintf("secondary window blocked: %v", err)}, "error")
		return false
	}
	if !s.attach(tr) {
		// The session was closed while the window was being opened.
		return false
	}
	s.overallC = s.timers.startOverall(s.cfg.Timeout)
	s.pollC = s.timers.startClosePoll(closePollInterval)
	return true
}

// transportEnded reacts to the transport's inbound channel closing
// without a terminal message. Returns true when the session is over.
func (s *session) transportEnded() bool {
	s.inbound = nil
	if st := s.b.State(); st == StateClosing || st == StateClosed {
		return true
	}
	if s.transport().Kind() == transport.KindEmbedded && s.b.State() == StateOpening {
		return !s.fallback()
	}
	s.fail(&Error{Code: protocol.CodeNetworkError, Message: "transport closed unexpectedly"}, "error")
	return true
}

// handle runs one inbound message through the origin and schema gates
// and applies it to the state machine. Returns true when the session
// reached a terminal state.
func (s *session) handle(in transport.Inbound) bool {
	if st := s.b.State(); st == StateClosing || st == StateClosed || st == StateIdle {
		return true
	}
	if !protocol.TrustedOrigin(in.Origin, s.transport().TargetOrigin()) {
		metrics.RecordDroppedMessage("origin")
		if s.cfg.Debug {
			logx.Log.Debug().Str("session_id", s.id).Str("origin", in.Origin).Msg("message dropped: untrusted origin")
		}
		return false
	}
	msg, err := protocol.Decode(in.Data)
	if err != nil {
		metrics.RecordDroppedMessage("schema")
		if s.cfg.Debug {
			logx.Log.Debug().Str("session_id", s.id).Err(err).Msg("message dropped: schema rejected")
		}
		return false
	}

	switch msg.Type {
	case protocol.TypeReady:
		if s.b.State() != StateOpening {
			return false
		}
		s.timers.stopDetection()
		s.detectionC = nil
		s.b.setState(StateReady)
		logx.Log.Info().Str("session_id", s.id).Msg("surface ready")
		s.b.events.ready.emit(struct{}{})
		s.settle(nil)
		return false
	case protocol.TypeAuthSuccess:
		// Host-visible progress only; teardown follows immediately.
		s.b.setState(StateAuthenticating)
		s.b.events.success.emit(*msg.Identity)
		metrics.RecordOutcome("success")
		s.settle(nil)
		s.teardown()
		return true
	case protocol.TypeAuthCancel:
		s.cancelled("authentication cancelled")
		return true
	case protocol.TypeAuthError:
		s.fail(&Error{Code: msg.Failure.Code, Message: msg.Failure.Error}, "error")
		return true
	case protocol.TypeConsentGranted:
		s.b.events.consentGranted.emit(*msg.Grant)
		return false
	case protocol.TypeConsentDenied:
		s.b.events.consentDenied.emit(*msg.Denial)
		metrics.RecordOutcome("cancel")
		s.settle(&Error{Code: protocol.CodeCancelled, Message: "consent denied"})
		s.teardown()
		return true
	}
	return false
}

func (s *session) cancelled(reason string) {
	s.b.events.cancel.emit(struct{}{})
	metrics.RecordOutcome("cancel")
	s.settle(&Error{Code: protocol.CodeCancelled, Message: reason})
	s.teardown()
}

func (s *session) fail(e *Error, outcome string) {
	s.b.events.err.emit(e)
	metrics.RecordOutcome(outcome)
	s.settle(e)
	s.teardown()
}

// settle resolves the pending Open exactly once.
func (s *session) settle(err error) {
	s.settleOnce.Do(func() {
		if err == nil {
			s.result <- nil
			return
		}
		s.result <- err
	})
}

// shutdown requests run-loop exit and performs teardown inline so a
// host Close returns with the session fully closed.
func (s *session) shutdown() {
	s.reqOnce.Do(func() { close(s.closeCh) })
	s.teardown()
}

// teardown converges every termination path. Timers stop first so a
// late firing can never act on a torn-down transport, then the
// transport closes, then the state machine reaches closed.
func (s *session) teardown() {
	s.downOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		tr := s.tr
		s.mu.Unlock()
		s.b.setState(StateClosing)
		s.timers.stopAll()
		if tr != nil {
			_ = tr.Close()
		}
		s.b.setState(StateClosed)
		metrics.ObserveSessionDuration(time.Since(s.started))
		s.settle(&Error{Code: protocol.CodeCancelled, Message: "session closed"})
		logx.Log.Info().Str("session_id", s.id).Msg("session closed")
	})
}
