package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"univox/internal/domain"
	"univox/internal/ports"
	"univox/internal/rtvi"
	"univox/internal/signaling"
)

// Config controls session behavior.
type Config struct {
	Audio             ports.AudioConfig
	Peer              ports.PeerConfig
	ChunkSize         int
	HeartbeatInterval time.Duration
}

// SessionController owns at most one live transcription session: it
// drives the connect/stop lifecycle, keeps the control channel alive, and
// folds inbound recognition fragments into the transcript.
type SessionController struct {
	audio     ports.AudioCapture
	transport ports.PeerTransport
	events    ports.EventSink
	log       zerolog.Logger
	cfg       Config

	mu        sync.Mutex
	current   *activeSession
	lastState domain.SessionState
}

func NewSessionController(
	audio ports.AudioCapture,
	transport ports.PeerTransport,
	events ports.EventSink,
	log zerolog.Logger,
	cfg Config,
) *SessionController {
	if cfg.ChunkSize < 256 {
		cfg.ChunkSize = 4096
	}
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = time.Second
	}
	return &SessionController{
		audio:     audio,
		transport: transport,
		events:    events,
		log:       log,
		cfg:       cfg,
		lastState: domain.SessionStateIdle,
	}
}

// Connect negotiates a new session: microphone first, then the peer
// transport (which performs the offer/answer exchange). Each step is a
// failure point with no retry. A Connect while a session is negotiating
// or open is a no-op; callers must Stop first.
func (c *SessionController) Connect(ctx context.Context) error {
	active := newActiveSession()

	c.mu.Lock()
	if c.current != nil {
		c.mu.Unlock()
		return nil
	}
	c.current = active
	c.mu.Unlock()

	c.events.SessionStateChanged(domain.SessionStateNegotiating, domain.SessionReasonNegotiationStarted)

	audioSession, err := c.audio.Start(ctx, c.cfg.Audio)
	if err != nil {
		wrapped := fmt.Errorf("microphone acquisition failed: %w", err)
		c.failConnect(active, domain.ErrorCodeMedia, domain.SessionReasonMediaFailed, wrapped)
		return wrapped
	}

	if active.stopRequested() {
		_ = audioSession.Stop()
		c.discardConnect(active)
		return nil
	}

	peer, err := c.transport.Connect(ctx, c.cfg.Peer)
	if err != nil {
		_ = audioSession.Stop()
		code, reason := classifyConnectErr(err)
		c.failConnect(active, code, reason, err)
		return err
	}

	active.resMu.Lock()
	if active.stopRequested() {
		active.resMu.Unlock()
		_ = peer.Close()
		_ = audioSession.Stop()
		c.discardConnect(active)
		return nil
	}
	active.audio = audioSession
	active.peer = peer
	active.committed = true
	active.resMu.Unlock()

	go c.watchDisconnect(active)
	go c.runHeartbeat(active)
	go c.consumeMessages(active)
	go c.pumpAudio(active)

	return nil
}

// Stop tears the current session down: heartbeat first, then transport,
// then capture. It is idempotent, safe before any Connect, and never
// fails; teardown errors are swallowed because it runs on cleanup paths.
func (c *SessionController) Stop() {
	c.mu.Lock()
	active := c.current
	c.current = nil
	c.lastState = domain.SessionStateClosed
	c.mu.Unlock()

	if active == nil {
		return
	}

	active.resMu.Lock()
	active.requestStop()
	committed := active.committed
	active.resMu.Unlock()

	if !committed {
		// Negotiation is still in flight; the connect path discards its
		// own result once the pending step completes.
		return
	}

	c.events.SessionStateChanged(domain.SessionStateClosing, domain.SessionReasonStopRequested)
	c.teardown(active, domain.SessionStateClosed, domain.SessionReasonStopped)
}

// ClearTranscript resets the transcript to empty without touching the
// session.
func (c *SessionController) ClearTranscript() {
	c.mu.Lock()
	active := c.current
	c.mu.Unlock()

	if active == nil {
		c.events.TranscriptUpdated(nil)
		return
	}
	active.reducer.Clear()
	c.events.TranscriptUpdated(active.reducer.Lines())
}

// Transcript returns a snapshot of the current session's transcript.
func (c *SessionController) Transcript() []domain.TranscriptLine {
	c.mu.Lock()
	active := c.current
	c.mu.Unlock()

	if active == nil {
		return nil
	}
	return active.reducer.Lines()
}

// Status returns the current session status.
func (c *SessionController) Status() domain.Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return domain.Status{State: c.lastState}
	}
	state := c.current.getState()
	return domain.Status{State: state, Connected: state == domain.SessionStateOpen}
}

// consumeMessages waits for the control channel to open, fires the
// connected event exactly once, then classifies every inbound payload.
// The ordering contract holds by construction: no payload reaches the
// classifier before the connected event has been emitted.
func (c *SessionController) consumeMessages(active *activeSession) {
	defer close(active.consumeDone)

	select {
	case <-active.peer.Opened():
	case <-active.peer.Done():
		return
	case <-active.stopping:
		return
	}

	active.setState(domain.SessionStateOpen)
	c.events.SessionStateChanged(domain.SessionStateOpen, domain.SessionReasonChannelOpen)
	c.events.Connected()

	for payload := range active.peer.Messages() {
		msg := rtvi.Classify(payload)
		switch msg.Kind {
		case rtvi.KindTranscription:
			c.events.TranscriptUpdated(active.reducer.Fold(msg.Fragment))
		case rtvi.KindBackendStatus:
			c.events.BackendStatus(msg.VADBackend)
		default:
			c.log.Debug().Int("bytes", len(payload)).Msg("dropping unrecognized control payload")
		}
	}
}

// runHeartbeat sends a liveness marker once per interval while the
// control channel is open. The stop signal is checked before every send,
// and Stop waits for this goroutine before closing the transport, so a
// send can never race teardown.
func (c *SessionController) runHeartbeat(active *activeSession) {
	defer close(active.heartbeatDone)

	select {
	case <-active.peer.Opened():
	case <-active.peer.Done():
		return
	case <-active.stopping:
		return
	}

	ticker := time.NewTicker(c.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-active.stopping:
			return
		case <-active.peer.Done():
			return
		case <-ticker.C:
			if active.stopRequested() {
				return
			}
			if err := active.peer.KeepAlive(); err != nil {
				c.log.Debug().Err(err).Msg("heartbeat send failed")
				return
			}
		}
	}
}

// watchDisconnect fires the disconnected event exactly once per session,
// the first time the transport reports a terminal state, whether or not
// Stop was called locally. A remote failure also releases the session's
// resources since no renegotiation is supported.
func (c *SessionController) watchDisconnect(active *activeSession) {
	<-active.peer.Done()

	if !active.stopRequested() {
		c.mu.Lock()
		if c.current == active {
			c.current = nil
			c.lastState = domain.SessionStateFailed
		}
		c.mu.Unlock()
		c.teardown(active, domain.SessionStateFailed, domain.SessionReasonPeerDisconnected)
	}

	active.discOnce.Do(func() { c.events.Disconnected() })
}

func (c *SessionController) teardown(active *activeSession, state domain.SessionState, reason domain.SessionStateReason) {
	active.stopOnce.Do(func() {
		active.requestStop()
		<-active.heartbeatDone
		_ = active.peer.Close()
		_ = active.audio.Stop()
		<-active.consumeDone
		<-active.pumpDone
		active.setState(state)
		c.events.SessionStateChanged(state, reason)
	})
}

func (c *SessionController) failConnect(active *activeSession, code domain.ErrorCode, reason domain.SessionStateReason, err error) {
	if active.stopRequested() {
		c.discardConnect(active)
		return
	}

	c.mu.Lock()
	if c.current == active {
		c.current = nil
		c.lastState = domain.SessionStateFailed
	}
	c.mu.Unlock()

	active.setState(domain.SessionStateFailed)
	c.events.SessionError(code, err.Error())
	c.events.SessionStateChanged(domain.SessionStateFailed, reason)
}

// discardConnect finishes a connect attempt that was stopped while a
// non-cancellable step was in flight: the step's result has already been
// released by the caller, so only the state bookkeeping remains.
func (c *SessionController) discardConnect(active *activeSession) {
	active.setState(domain.SessionStateClosed)
	c.events.SessionStateChanged(domain.SessionStateClosed, domain.SessionReasonStopped)
}

func classifyConnectErr(err error) (domain.ErrorCode, domain.SessionStateReason) {
	var sigErr *signaling.Error
	if errors.As(err, &sigErr) {
		return domain.ErrorCodeSignaling, domain.SessionReasonSignalingFailed
	}
	return domain.ErrorCodeTransport, domain.SessionReasonTransportFailed
}
