// Package deepgram implements the peer transport directly against
// Deepgram's streaming API, bypassing the univox backend. Recognition
// results are normalized into the control-channel payload schema so the
// rest of the client cannot tell the transports apart.
package deepgram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"univox/internal/domain"
	"univox/internal/ports"
	"univox/internal/rtvi"
)

// Config controls Deepgram websocket settings.
type Config struct {
	APIKey      string
	APIBaseURL  string
	Model       string
	Language    string
	SmartFormat bool
	Encoding    string
}

// Transport implements ports.PeerTransport for Deepgram.
type Transport struct {
	cfg Config
}

func NewTransport(cfg Config) *Transport {
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = "https://api.deepgram.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "nova-3-general"
	}
	if cfg.Encoding == "" {
		cfg.Encoding = "linear16"
	}
	return &Transport{cfg: cfg}
}

func (t *Transport) Connect(ctx context.Context, cfg ports.PeerConfig) (ports.PeerSession, error) {
	if strings.TrimSpace(t.cfg.APIKey) == "" {
		return nil, errors.New("DEEPGRAM_API_KEY is not configured")
	}

	wsURL, err := buildListenURL(t.cfg, cfg)
	if err != nil {
		return nil, err
	}

	headers := http.Header{}
	headers.Set("Authorization", "Token "+t.cfg.APIKey)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, headers)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Deepgram websocket: %w", err)
	}

	session := &peerSession{
		conn:     conn,
		messages: make(chan []byte, 64),
		outbound: make(chan outboundFrame, 32),
		opened:   make(chan struct{}),
		closing:  make(chan struct{}),
		done:     make(chan struct{}),
	}
	// The websocket doubles as the control channel, so it is open the
	// moment the dial succeeds.
	close(session.opened)

	session.wg.Add(2)
	go session.readLoop()
	go session.writeLoop()
	go func() {
		session.wg.Wait()
		close(session.messages)
		close(session.done)
		_ = conn.Close()
	}()

	return session, nil
}

type outboundFrame struct {
	messageType int
	payload     []byte
}

type peerSession struct {
	conn *websocket.Conn

	messages chan []byte
	outbound chan outboundFrame
	opened   chan struct{}
	closing  chan struct{}
	done     chan struct{}

	wg sync.WaitGroup

	sendMu     sync.RWMutex
	sendClosed bool
	closeOnce  sync.Once
}

func (s *peerSession) SendAudio(chunk []byte) error {
	if len(chunk) == 0 {
		return nil
	}
	return s.enqueue(outboundFrame{
		messageType: websocket.BinaryMessage,
		payload:     append([]byte(nil), chunk...),
	})
}

// KeepAlive sends Deepgram's JSON keepalive, the provider's equivalent of
// the backend transport's liveness ping.
func (s *peerSession) KeepAlive() error {
	return s.enqueue(outboundFrame{
		messageType: websocket.TextMessage,
		payload:     []byte(`{"type":"KeepAlive"}`),
	})
}

func (s *peerSession) enqueue(frame outboundFrame) error {
	s.sendMu.RLock()
	closed := s.sendClosed
	s.sendMu.RUnlock()
	if closed {
		return errors.New("session closed")
	}

	select {
	case s.outbound <- frame:
		return nil
	case <-s.done:
		return errors.New("session closed")
	}
}

func (s *peerSession) Messages() <-chan []byte { return s.messages }

func (s *peerSession) Opened() <-chan struct{} { return s.opened }

func (s *peerSession) Done() <-chan struct{} { return s.done }

func (s *peerSession) Close() error {
	s.closeOnce.Do(func() {
		close(s.closing)
		s.sendMu.Lock()
		if !s.sendClosed {
			s.sendClosed = true
			close(s.outbound)
		}
		s.sendMu.Unlock()
		_ = s.conn.Close()
	})
	return nil
}

func (s *peerSession) writeLoop() {
	defer s.wg.Done()

	for frame := range s.outbound {
		if err := s.conn.WriteMessage(frame.messageType, frame.payload); err != nil {
			return
		}
	}

	_ = s.conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"CloseStream"}`))
}

func (s *peerSession) readLoop() {
	defer s.wg.Done()

	for {
		_, payload, err := s.conn.ReadMessage()
		if err != nil {
			return
		}

		var response listenResponse
		if err := json.Unmarshal(payload, &response); err != nil {
			continue
		}

		transcript := extractTranscript(response)
		if transcript == "" {
			continue
		}

		normalized := rtvi.EncodeUserTranscription(domain.RecognitionFragment{
			Text:      transcript,
			Final:     response.IsFinal || response.SpeechFinal,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
		if normalized == nil {
			continue
		}

		// Blocking send: the consumer drains until the session ends, and
		// losing a final fragment here would drop a whole utterance.
		select {
		case s.messages <- normalized:
		case <-s.closing:
			return
		}
	}
}

type listenResponse struct {
	Type        string `json:"type"`
	IsFinal     bool   `json:"is_final"`
	SpeechFinal bool   `json:"speech_final"`

	Channel struct {
		Alternatives []struct {
			Transcript string `json:"transcript"`
		} `json:"alternatives"`
	} `json:"channel"`
}

func extractTranscript(response listenResponse) string {
	if len(response.Channel.Alternatives) == 0 {
		return ""
	}
	return strings.TrimSpace(response.Channel.Alternatives[0].Transcript)
}

func buildListenURL(cfg Config, peerCfg ports.PeerConfig) (string, error) {
	base := strings.TrimSpace(cfg.APIBaseURL)
	if base == "" {
		base = "https://api.deepgram.com/v1"
	}

	if strings.HasPrefix(base, "https://") {
		base = "wss://" + strings.TrimPrefix(base, "https://")
	} else if strings.HasPrefix(base, "http://") {
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	base = strings.TrimRight(base, "/")

	listenURL, err := url.Parse(base + "/listen")
	if err != nil {
		return "", fmt.Errorf("invalid Deepgram API base URL: %w", err)
	}

	if peerCfg.SampleRate <= 0 {
		peerCfg.SampleRate = 16000
	}
	if peerCfg.Channels <= 0 {
		peerCfg.Channels = 1
	}

	query := listenURL.Query()
	query.Set("model", cfg.Model)
	query.Set("encoding", cfg.Encoding)
	query.Set("sample_rate", fmt.Sprintf("%d", peerCfg.SampleRate))
	query.Set("channels", fmt.Sprintf("%d", peerCfg.Channels))
	query.Set("interim_results", "true")
	query.Set("smart_format", fmt.Sprintf("%t", cfg.SmartFormat))
	if cfg.Language != "" {
		query.Set("language", cfg.Language)
	}
	listenURL.RawQuery = query.Encode()
	return listenURL.String(), nil
}
