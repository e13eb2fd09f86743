package domain

// SessionState models the transport session lifecycle.
type SessionState string

const (
	SessionStateIdle        SessionState = "idle"
	SessionStateNegotiating SessionState = "negotiating"
	SessionStateOpen        SessionState = "open"
	SessionStateClosing     SessionState = "closing"
	SessionStateClosed      SessionState = "closed"
	SessionStateFailed      SessionState = "failed"
)

// SessionStateReason provides a structured reason for state transitions.
type SessionStateReason string

const (
	SessionReasonNegotiationStarted SessionStateReason = "negotiation_started"
	SessionReasonChannelOpen        SessionStateReason = "channel_open"
	SessionReasonStopRequested      SessionStateReason = "stop_requested"
	SessionReasonStopped            SessionStateReason = "stopped"
	SessionReasonPeerDisconnected   SessionStateReason = "peer_disconnected"
	SessionReasonMediaFailed        SessionStateReason = "media_failed"
	SessionReasonSignalingFailed    SessionStateReason = "signaling_failed"
	SessionReasonTransportFailed    SessionStateReason = "transport_failed"
)

// ErrorCode identifies non-fatal and fatal session errors.
type ErrorCode string

const (
	ErrorCodeStartup     ErrorCode = "startup"
	ErrorCodeMedia       ErrorCode = "media_acquisition"
	ErrorCodeSignaling   ErrorCode = "signaling"
	ErrorCodeTransport   ErrorCode = "transport"
	ErrorCodeAudioStream ErrorCode = "audio_stream"
)

// RecognitionFragment is one incremental recognition result received from
// the backend. Fragments carry no identity of their own; the transcript
// reducer assigns it.
type RecognitionFragment struct {
	Text      string
	Final     bool
	Timestamp string
}

// TranscriptLine is one entry in the ordered transcript. A non-final line
// is rewritten in place while it remains the tail; a final line is
// immutable once appended.
type TranscriptLine struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Final     bool   `json:"final"`
	Timestamp string `json:"timestamp,omitempty"`
}

// Status summarizes the current runtime status.
type Status struct {
	State     SessionState `json:"state"`
	Connected bool         `json:"connected"`
}
