package ports

import (
	"context"
	"io"

	"univox/internal/domain"
)

// AudioConfig describes how the microphone should be captured.
type AudioConfig struct {
	SampleRate  int
	Channels    int
	InputFormat string
	InputDevice string
}

// AudioSession is a live capture session.
type AudioSession interface {
	io.ReadCloser
	Stop() error
}

// AudioCapture creates microphone capture sessions.
type AudioCapture interface {
	Start(ctx context.Context, cfg AudioConfig) (AudioSession, error)
}

// Description is an SDP session description exchanged during signaling.
type Description struct {
	SDP  string `json:"sdp"`
	Type string `json:"type"`
}

// Signaler exchanges a local offer for the backend's answer.
type Signaler interface {
	Exchange(ctx context.Context, offer Description) (Description, error)
}

// PeerConfig describes transport-agnostic session settings.
type PeerConfig struct {
	SampleRate int
	Channels   int
}

// PeerSession is an established audio+control session with the
// recognition backend.
type PeerSession interface {
	// SendAudio transmits one chunk of little-endian 16-bit PCM. Chunks
	// arriving before the control channel opens may be dropped.
	SendAudio(chunk []byte) error
	// KeepAlive sends a transport-appropriate liveness marker. It is a
	// no-op while the control channel is not open.
	KeepAlive() error
	// Messages delivers raw inbound control-channel payloads. The channel
	// is closed when the session reaches a terminal state.
	Messages() <-chan []byte
	// Opened is closed once the control channel reports open.
	Opened() <-chan struct{}
	// Done is closed on the first terminal connectivity state.
	Done() <-chan struct{}
	// Close releases the transport. Idempotent and never fails.
	Close() error
}

// PeerTransport negotiates peer sessions with the recognition backend.
type PeerTransport interface {
	Connect(ctx context.Context, cfg PeerConfig) (PeerSession, error)
}

// EventSink emits session state and transcript updates to the UI.
type EventSink interface {
	SessionStateChanged(state domain.SessionState, reason domain.SessionStateReason)
	Connected()
	Disconnected()
	BackendStatus(vadBackend string)
	TranscriptUpdated(lines []domain.TranscriptLine)
	SessionError(code domain.ErrorCode, detail string)
}
