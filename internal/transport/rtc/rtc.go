// Package rtc implements the peer transport over a pion WebRTC
// connection: one outbound PCMU audio track plus a data channel used as
// the control channel for recognition events.
package rtc

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media"
	"github.com/rs/zerolog"
	"github.com/zaf/g711"

	"univox/internal/ports"
)

// ControlChannelLabel names the data channel carrying recognition events.
const ControlChannelLabel = "rtvi"

const defaultSampleRate = 8000

// Transport implements ports.PeerTransport using pion/webrtc.
type Transport struct {
	signaler ports.Signaler
	stunURLs []string
	log      zerolog.Logger
}

// NewTransport creates a WebRTC transport negotiating through the given
// signaler. stunURLs may be empty; host candidates are enough for a
// backend on the local network.
func NewTransport(signaler ports.Signaler, stunURLs []string, log zerolog.Logger) *Transport {
	return &Transport{signaler: signaler, stunURLs: stunURLs, log: log}
}

// Connect brings up a peer connection: control channel and audio track
// first, then the offer/answer exchange. Any failed step closes the peer
// connection so no partial transport is left behind.
func (t *Transport) Connect(ctx context.Context, cfg ports.PeerConfig) (ports.PeerSession, error) {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = defaultSampleRate
	}

	var iceServers []webrtc.ICEServer
	if len(t.stunURLs) > 0 {
		iceServers = append(iceServers, webrtc.ICEServer{URLs: t.stunURLs})
	}

	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{ICEServers: iceServers})
	if err != nil {
		return nil, fmt.Errorf("failed to create peer connection: %w", err)
	}

	session := &peerSession{
		pc:         pc,
		sampleRate: cfg.SampleRate,
		messages:   make(chan []byte, 64),
		opened:     make(chan struct{}),
		done:       make(chan struct{}),
		log:        t.log,
	}

	dc, err := pc.CreateDataChannel(ControlChannelLabel, nil)
	if err != nil {
		_ = pc.Close()
		return nil, fmt.Errorf("failed to create control channel: %w", err)
	}
	session.dc = dc

	track, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypePCMU, ClockRate: 8000, Channels: 1},
		"audio", "univox-mic",
	)
	if err != nil {
		_ = pc.Close()
		return nil, fmt.Errorf("failed to create audio track: %w", err)
	}
	session.track = track

	if _, err := pc.AddTransceiverFromTrack(track, webrtc.RTPTransceiverInit{
		Direction: webrtc.RTPTransceiverDirectionSendrecv,
	}); err != nil {
		_ = pc.Close()
		return nil, fmt.Errorf("failed to attach audio track: %w", err)
	}

	dc.OnOpen(session.markOpened)
	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		session.deliver(msg.Data)
	})
	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		switch state {
		case webrtc.PeerConnectionStateDisconnected,
			webrtc.PeerConnectionStateFailed,
			webrtc.PeerConnectionStateClosed:
			session.markDone()
		default:
		}
	})

	offer, err := pc.CreateOffer(nil)
	if err != nil {
		_ = pc.Close()
		return nil, fmt.Errorf("failed to create offer: %w", err)
	}

	// Vanilla ICE: gather every candidate before shipping the offer, so
	// the backend gets a complete description in a single exchange.
	gathered := webrtc.GatheringCompletePromise(pc)
	if err := pc.SetLocalDescription(offer); err != nil {
		_ = pc.Close()
		return nil, fmt.Errorf("failed to set local description: %w", err)
	}
	select {
	case <-gathered:
	case <-ctx.Done():
		_ = pc.Close()
		return nil, ctx.Err()
	}

	local := pc.LocalDescription()
	answer, err := t.signaler.Exchange(ctx, ports.Description{SDP: local.SDP, Type: local.Type.String()})
	if err != nil {
		_ = pc.Close()
		return nil, err
	}

	if err := pc.SetRemoteDescription(webrtc.SessionDescription{
		Type: webrtc.NewSDPType(answer.Type),
		SDP:  answer.SDP,
	}); err != nil {
		_ = pc.Close()
		return nil, fmt.Errorf("failed to apply backend answer: %w", err)
	}

	return session, nil
}

type peerSession struct {
	pc    *webrtc.PeerConnection
	dc    *webrtc.DataChannel
	track *webrtc.TrackLocalStaticSample

	sampleRate int
	log        zerolog.Logger

	messages chan []byte
	opened   chan struct{}
	done     chan struct{}

	openOnce  sync.Once
	doneOnce  sync.Once
	closeOnce sync.Once

	msgMu     sync.Mutex
	msgClosed bool
}

func (s *peerSession) markOpened() {
	s.openOnce.Do(func() { close(s.opened) })
}

func (s *peerSession) markDone() {
	s.doneOnce.Do(func() {
		close(s.done)
		s.msgMu.Lock()
		s.msgClosed = true
		close(s.messages)
		s.msgMu.Unlock()
	})
}

// deliver hands one inbound payload to the consumer, blocking if the
// buffer is full; a slow consumer must not cost a transcription
// fragment. markDone closes done before it takes msgMu, so a delivery
// in flight during teardown unblocks instead of deadlocking.
func (s *peerSession) deliver(payload []byte) {
	s.msgMu.Lock()
	defer s.msgMu.Unlock()
	if s.msgClosed {
		return
	}

	data := append([]byte(nil), payload...)
	select {
	case s.messages <- data:
	case <-s.done:
		s.log.Debug().Msg("inbound control payload discarded during teardown")
	}
}

// SendAudio µ-law encodes one little-endian 16-bit PCM chunk and writes
// it to the outbound track. Chunks are dropped until negotiation
// completes; the capture process is already real-time paced.
func (s *peerSession) SendAudio(chunk []byte) error {
	select {
	case <-s.done:
		return errors.New("session closed")
	default:
	}
	select {
	case <-s.opened:
	default:
		return nil
	}

	if len(chunk) < 2 {
		return nil
	}
	encoded := g711.EncodeUlaw(chunk)
	if err := s.track.WriteSample(media.Sample{
		Data:     encoded,
		Duration: sampleDuration(len(chunk), s.sampleRate),
	}); err != nil {
		return fmt.Errorf("failed to write audio sample: %w", err)
	}
	return nil
}

// KeepAlive sends the plain-text liveness marker that keeps intermediary
// relays from idling the session out. The backend never acknowledges it.
func (s *peerSession) KeepAlive() error {
	select {
	case <-s.opened:
	default:
		return nil
	}
	select {
	case <-s.done:
		return errors.New("session closed")
	default:
	}
	return s.dc.SendText(fmt.Sprintf("ping %d", time.Now().UnixMilli()))
}

func (s *peerSession) Messages() <-chan []byte { return s.messages }

func (s *peerSession) Opened() <-chan struct{} { return s.opened }

func (s *peerSession) Done() <-chan struct{} { return s.done }

// Close releases the control channel and the peer connection. Errors are
// swallowed: teardown runs on cleanup paths and must never fail.
func (s *peerSession) Close() error {
	s.closeOnce.Do(func() {
		_ = s.dc.Close()
		_ = s.pc.Close()
		s.markDone()
	})
	return nil
}

// sampleDuration converts a PCM byte count to wall-clock duration for
// 16-bit mono samples.
func sampleDuration(pcmBytes, sampleRate int) time.Duration {
	if sampleRate <= 0 {
		sampleRate = defaultSampleRate
	}
	return time.Duration(pcmBytes/2) * time.Second / time.Duration(sampleRate)
}
