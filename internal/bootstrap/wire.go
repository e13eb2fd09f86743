package bootstrap

import (
	"github.com/rs/zerolog"

	"univox/internal/audio"
	"univox/internal/config"
	"univox/internal/ports"
	"univox/internal/signaling"
	"univox/internal/transport/deepgram"
	"univox/internal/transport/rtc"
	"univox/internal/usecase"
)

// Services is the assembled runtime graph.
type Services struct {
	Controller *usecase.SessionController
	Config     config.Config
}

// Build wires all client dependencies for the current runtime.
func Build(events ports.EventSink, log zerolog.Logger) (Services, error) {
	cfg, err := config.Load()
	if err != nil {
		return Services{}, err
	}

	var transport ports.PeerTransport
	switch cfg.Session.Transport {
	case config.TransportDeepgram:
		transport = deepgram.NewTransport(deepgram.Config{
			APIKey:      cfg.Deepgram.APIKey,
			APIBaseURL:  cfg.Deepgram.APIBaseURL,
			Model:       cfg.Deepgram.Model,
			Language:    cfg.Deepgram.Language,
			SmartFormat: cfg.Deepgram.SmartFormat,
		})
	default:
		signaler := signaling.NewClient(cfg.Server.URL, cfg.Session.SignalingTimeout)
		transport = rtc.NewTransport(signaler, cfg.Server.STUNURLs, log)
	}

	controller := usecase.NewSessionController(
		audio.NewFFMPEGCapture(cfg.Audio.RecorderCommand),
		transport,
		events,
		log,
		usecase.Config{
			Audio: ports.AudioConfig{
				SampleRate:  cfg.Audio.SampleRate,
				Channels:    cfg.Audio.Channels,
				InputFormat: cfg.Audio.InputFormat,
				InputDevice: cfg.Audio.InputDevice,
			},
			Peer: ports.PeerConfig{
				SampleRate: cfg.Audio.SampleRate,
				Channels:   cfg.Audio.Channels,
			},
			ChunkSize:         cfg.Session.ChunkSize,
			HeartbeatInterval: cfg.Session.HeartbeatInterval,
		},
	)

	return Services{Controller: controller, Config: cfg}, nil
}
