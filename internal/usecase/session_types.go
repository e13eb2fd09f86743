package usecase

import (
	"sync"

	"univox/internal/domain"
	"univox/internal/ports"
)

type activeSession struct {
	reducer *transcriptReducer

	stateMu sync.Mutex
	state   domain.SessionState

	// resMu guards audio/peer/committed during the connect handoff, so a
	// Stop arriving mid-negotiation either discards the in-flight result
	// or tears down the committed session, never both.
	resMu     sync.Mutex
	audio     ports.AudioSession
	peer      ports.PeerSession
	committed bool

	stopping    chan struct{}
	stopReqOnce sync.Once
	stopOnce    sync.Once
	discOnce    sync.Once

	heartbeatDone chan struct{}
	consumeDone   chan struct{}
	pumpDone      chan struct{}
}

func newActiveSession() *activeSession {
	return &activeSession{
		reducer:       newTranscriptReducer(),
		state:         domain.SessionStateNegotiating,
		stopping:      make(chan struct{}),
		heartbeatDone: make(chan struct{}),
		consumeDone:   make(chan struct{}),
		pumpDone:      make(chan struct{}),
	}
}

func (s *activeSession) setState(state domain.SessionState) {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	s.state = state
}

func (s *activeSession) getState() domain.SessionState {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.state
}

// requestStop signals every session goroutine to wind down. Idempotent.
func (s *activeSession) requestStop() {
	s.stopReqOnce.Do(func() { close(s.stopping) })
}

func (s *activeSession) stopRequested() bool {
	select {
	case <-s.stopping:
		return true
	default:
		return false
	}
}
