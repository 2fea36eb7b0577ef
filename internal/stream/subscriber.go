package stream

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/five82/vane/internal/metrics"
	"github.com/five82/vane/internal/telemetry"
)

// DefaultReconnectDelay is the fixed wait between a failure and the next attempt.
const DefaultReconnectDelay = 5 * time.Second

// Sink receives connection state and decoded messages. *state.Store
// implements it.
type Sink interface {
	SetConnection(conn telemetry.ConnState, err error)
	ApplyStream(msg telemetry.StreamMessage) (applied bool, evicted int)
}

// Options configures a Subscriber.
type Options struct {
	Dialer         telemetry.StreamDialer
	Sink           Sink
	ReconnectDelay time.Duration
	Clock          Clock
	Logger         zerolog.Logger
	Metrics        metrics.Collector
}

type eventKind int

const (
	evOpened eventKind = iota
	evMessage
	evErrored
	evTimerFired
	evTeardown
)

func (k eventKind) String() string {
	switch k {
	case evOpened:
		return "opened"
	case evMessage:
		return "message"
	case evErrored:
		return "errored"
	case evTimerFired:
		return "timer_fired"
	default:
		return "teardown"
	}
}

type event struct {
	kind    eventKind
	gen     uint64
	seq     uint64
	conn    telemetry.StreamConn
	payload []byte
	err     error
}

// Subscriber keeps one push channel open for the selected device and
// reconnects after failures. All transitions go through dispatch and are
// applied one at a time.
type Subscriber struct {
	dialer  telemetry.StreamDialer
	sink    Sink
	delay   time.Duration
	clock   Clock
	logger  zerolog.Logger
	metrics metrics.Collector

	mu       sync.Mutex
	state    telemetry.ConnState
	deviceID string
	connID   string
	gen      uint64
	cancel   context.CancelFunc
	conn     telemetry.StreamConn
	timer    Timer
	timerSeq uint64
	wg       sync.WaitGroup
}

// New builds an idle subscriber.
func New(opts Options) (*Subscriber, error) {
	if opts.Dialer == nil {
		return nil, errors.New("stream dialer is required")
	}
	if opts.Sink == nil {
		return nil, errors.New("stream sink is required")
	}
	delay := opts.ReconnectDelay
	if delay <= 0 {
		delay = DefaultReconnectDelay
	}
	clock := opts.Clock
	if clock == nil {
		clock = realClock{}
	}
	collector := opts.Metrics
	if collector == nil {
		collector = metrics.Noop()
	}
	return &Subscriber{
		dialer:  opts.Dialer,
		sink:    opts.Sink,
		delay:   delay,
		clock:   clock,
		logger:  opts.Logger.With().Str("component", "stream").Logger(),
		metrics: collector,
	}, nil
}

// Open subscribes to deviceID. It is a no-op when that device is already
// subscribed; otherwise the current channel is torn down first. An empty id
// only tears down.
func (s *Subscriber) Open(deviceID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if deviceID == "" {
		s.teardownLocked()
		return
	}
	if deviceID == s.deviceID && s.state != telemetry.ConnIdle {
		return
	}
	s.teardownLocked()
	s.connectLocked(deviceID)
}

// Close tears down the channel and any pending reconnect. Safe to call more
// than once.
func (s *Subscriber) Close() {
	s.dispatch(event{kind: evTeardown})
}

// Wait blocks until the channel goroutines have exited.
func (s *Subscriber) Wait() {
	s.wg.Wait()
}

// State reports the connection state.
func (s *Subscriber) State() telemetry.ConnState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// DeviceID reports the subscribed device, empty when idle.
func (s *Subscriber) DeviceID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deviceID
}

func (s *Subscriber) dispatch(ev event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logger.Trace().Stringer("event", ev.kind).Uint64("gen", ev.gen).Stringer("state", s.state).Msg("stream event")
	switch ev.kind {
	case evOpened:
		s.handleOpened(ev)
	case evMessage:
		s.handleMessage(ev)
	case evErrored:
		s.handleErrored(ev)
	case evTimerFired:
		s.handleTimerFired(ev)
	case evTeardown:
		s.teardownLocked()
	}
}

func (s *Subscriber) handleOpened(ev event) {
	if ev.gen != s.gen || s.state != telemetry.ConnConnecting {
		_ = ev.conn.Close()
		return
	}
	s.conn = ev.conn
	s.state = telemetry.ConnOpen
	s.sink.SetConnection(telemetry.ConnOpen, nil)
	s.logger.Info().Str("device_id", s.deviceID).Str("conn_id", s.connID).Msg("stream open")
}

func (s *Subscriber) handleMessage(ev event) {
	if ev.gen != s.gen || s.state != telemetry.ConnOpen {
		return
	}
	msg, err := telemetry.ParseStreamMessage(ev.payload)
	if err != nil {
		s.metrics.IncStreamMessage(metrics.KindMalformed)
		s.logger.Warn().Err(err).Str("conn_id", s.connID).Int("bytes", len(ev.payload)).Msg("dropping stream message")
		return
	}
	if msg.Kind == telemetry.MessageConnected {
		s.metrics.IncStreamMessage(metrics.KindConnected)
		s.logger.Debug().Str("device_id", msg.DeviceID).Str("conn_id", s.connID).Msg("stream acknowledged")
		s.sink.ApplyStream(msg)
		return
	}
	applied, evicted := s.sink.ApplyStream(msg)
	if !applied {
		s.metrics.IncStreamMessage(metrics.KindDiscarded)
		return
	}
	s.metrics.IncStreamMessage(metrics.KindTelemetry)
	s.metrics.AddHistoryEvicted(evicted)
}

func (s *Subscriber) handleErrored(ev event) {
	if ev.gen != s.gen || s.state == telemetry.ConnIdle {
		return
	}
	s.closeConnLocked()
	s.state = telemetry.ConnClosed
	s.sink.SetConnection(telemetry.ConnClosed, fmt.Errorf("%w; retrying in %s", ev.err, s.delay))
	s.logger.Warn().Err(ev.err).
		Str("device_id", s.deviceID).
		Str("conn_id", s.connID).
		Dur("retry_in", s.delay).
		Msg("stream failed")
	s.armTimerLocked()
}

func (s *Subscriber) handleTimerFired(ev event) {
	if ev.seq != s.timerSeq || s.state != telemetry.ConnClosed {
		return
	}
	s.timer = nil
	s.metrics.IncStreamReconnect()
	s.connectLocked(s.deviceID)
}

// armTimerLocked replaces any pending reconnect with a new one.
func (s *Subscriber) armTimerLocked() {
	s.stopTimerLocked()
	seq := s.timerSeq
	s.timer = s.clock.AfterFunc(s.delay, func() {
		s.dispatch(event{kind: evTimerFired, seq: seq})
	})
}

// stopTimerLocked cancels the pending reconnect. Bumping the sequence also
// voids a callback that already fired but has not been dispatched yet.
func (s *Subscriber) stopTimerLocked() {
	s.timerSeq++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Subscriber) connectLocked(deviceID string) {
	s.gen++
	gen := s.gen
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.deviceID = deviceID
	s.connID = uuid.NewString()
	s.state = telemetry.ConnConnecting
	s.sink.SetConnection(telemetry.ConnConnecting, nil)
	s.logger.Debug().Str("device_id", deviceID).Str("conn_id", s.connID).Msg("stream connecting")

	s.wg.Add(1)
	go s.pump(ctx, gen, deviceID)
}

func (s *Subscriber) closeConnLocked() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	if s.conn != nil {
		_ = s.conn.Close()
		s.conn = nil
	}
}

func (s *Subscriber) teardownLocked() {
	if s.state == telemetry.ConnIdle && s.cancel == nil && s.conn == nil && s.timer == nil {
		return
	}
	s.closeConnLocked()
	s.stopTimerLocked()
	s.gen++
	s.state = telemetry.ConnIdle
	s.logger.Debug().Str("device_id", s.deviceID).Str("conn_id", s.connID).Msg("stream closed")
	s.deviceID = ""
	s.connID = ""
	s.sink.SetConnection(telemetry.ConnIdle, nil)
}

// pump owns one connection attempt: dial, then forward payloads until the
// channel fails or the attempt is cancelled.
func (s *Subscriber) pump(ctx context.Context, gen uint64, deviceID string) {
	defer s.wg.Done()

	conn, err := s.dialer.Dial(ctx, deviceID)
	if err != nil {
		s.dispatch(event{kind: evErrored, gen: gen, err: err})
		return
	}
	s.dispatch(event{kind: evOpened, gen: gen, conn: conn})

	for {
		payload, err := conn.Recv()
		if err != nil {
			s.dispatch(event{kind: evErrored, gen: gen, err: err})
			return
		}
		if ctx.Err() != nil {
			return
		}
		s.dispatch(event{kind: evMessage, gen: gen, payload: payload})
	}
}
