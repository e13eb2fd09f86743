package main

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog"

	"univox/internal/bootstrap"
	"univox/internal/config"
	"univox/internal/domain"
	"univox/internal/usecase"
)

// App is the terminal client root: it drives the session controller and
// renders its events.
type App struct {
	controller *usecase.SessionController
	cfg        config.Config
	log        zerolog.Logger

	mu           sync.Mutex
	out          io.Writer
	printedFinal map[string]bool
	vadBackend   string
	bootErr      error
}

func NewApp(out io.Writer, log zerolog.Logger) *App {
	return &App{out: out, log: log, printedFinal: make(map[string]bool)}
}

func (a *App) startup() {
	services, err := bootstrap.Build(a, a.log)
	if err != nil {
		a.bootErr = err
		a.SessionError(domain.ErrorCodeStartup, err.Error())
		return
	}
	a.cfg = services.Config
	a.controller = services.Controller
	a.log.Info().
		Str("transport", a.cfg.Session.Transport).
		Str("server_url", a.cfg.Server.URL).
		Msg("client configured")
}

// Start connects a new transcription session.
func (a *App) Start(ctx context.Context) error {
	if err := a.requireReady(); err != nil {
		return err
	}
	return a.controller.Connect(ctx)
}

// Stop tears the current session down. Safe to call at any time.
func (a *App) Stop() {
	if a.controller == nil {
		return
	}
	a.controller.Stop()
}

// Clear resets the transcript to empty.
func (a *App) Clear() {
	a.mu.Lock()
	a.printedFinal = make(map[string]bool)
	a.mu.Unlock()

	if a.controller != nil {
		a.controller.ClearTranscript()
	}
}

// Status returns the current session status.
func (a *App) Status() domain.Status {
	if a.controller == nil {
		return domain.Status{State: domain.SessionStateIdle}
	}
	return a.controller.Status()
}

// VADBackend returns the backend-reported VAD label, if any.
func (a *App) VADBackend() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.vadBackend
}

func (a *App) requireReady() error {
	if a.bootErr != nil {
		return a.bootErr
	}
	if a.controller == nil {
		return fmt.Errorf("application is not initialized")
	}
	return nil
}

// SessionStateChanged logs session lifecycle updates.
func (a *App) SessionStateChanged(state domain.SessionState, reason domain.SessionStateReason) {
	a.log.Info().
		Str("state", string(state)).
		Str("reason", string(reason)).
		Msg(stateMessage(state, reason))
}

// Connected marks the session live.
func (a *App) Connected() {
	a.log.Info().Msg("connected: streaming microphone audio")
}

// Disconnected marks the session gone.
func (a *App) Disconnected() {
	a.log.Info().Msg("disconnected from backend")
}

// BackendStatus reports which VAD backend the server is running.
func (a *App) BackendStatus(vadBackend string) {
	a.mu.Lock()
	a.vadBackend = vadBackend
	a.mu.Unlock()
	a.log.Info().Str("vad_backend", vadBackend).Msg("backend status")
}

// TranscriptUpdated renders the transcript: each final line is printed
// once, and the in-progress interim line is redrawn in place.
func (a *App) TranscriptUpdated(lines []domain.TranscriptLine) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, line := range lines {
		if line.Final && !a.printedFinal[line.ID] {
			a.printedFinal[line.ID] = true
			fmt.Fprintf(a.out, "\r\033[K%s\n", line.Text)
		}
	}
	if n := len(lines); n > 0 && !lines[n-1].Final {
		fmt.Fprintf(a.out, "\r\033[K… %s", lines[n-1].Text)
	}
}

// SessionError reports session errors.
func (a *App) SessionError(code domain.ErrorCode, detail string) {
	a.log.Error().
		Str("code", string(code)).
		Str("detail", detail).
		Msg(errorMessage(code))
}

func stateMessage(state domain.SessionState, reason domain.SessionStateReason) string {
	switch reason {
	case domain.SessionReasonNegotiationStarted:
		return "Connecting to backend..."
	case domain.SessionReasonChannelOpen:
		return "Control channel open"
	case domain.SessionReasonStopRequested:
		return "Stopping session..."
	case domain.SessionReasonStopped:
		return "Session closed"
	case domain.SessionReasonPeerDisconnected:
		return "Backend disconnected"
	case domain.SessionReasonMediaFailed:
		return "Microphone unavailable"
	case domain.SessionReasonSignalingFailed:
		return "Offer exchange failed"
	case domain.SessionReasonTransportFailed:
		return "Transport failed"
	default:
		return string(state)
	}
}

func errorMessage(code domain.ErrorCode) string {
	switch code {
	case domain.ErrorCodeStartup:
		return "Startup failed"
	case domain.ErrorCodeMedia:
		return "Microphone acquisition failed"
	case domain.ErrorCodeSignaling:
		return "Signaling failed"
	case domain.ErrorCodeTransport:
		return "Transport error"
	case domain.ErrorCodeAudioStream:
		return "Audio streaming issue"
	default:
		return "Unknown error"
	}
}
