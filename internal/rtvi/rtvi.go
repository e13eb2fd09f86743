// Package rtvi classifies and encodes the control-channel payloads the
// univox backend emits over the RTVI message protocol.
package rtvi

import (
	"encoding/json"

	"univox/internal/domain"
)

// MessageKind identifies the classified payload category.
type MessageKind string

const (
	KindTranscription MessageKind = "transcription"
	KindBackendStatus MessageKind = "backend_status"
	KindUnrecognized  MessageKind = "unrecognized"
)

// Message is the result of classifying one inbound control payload.
type Message struct {
	Kind       MessageKind
	Fragment   domain.RecognitionFragment
	VADBackend string
}

const (
	labelRTVI             = "rtvi-ai"
	typeUserTranscription = "user-transcription"
	typeServerMessage     = "server-message"
	typeUnivoxStatus      = "univox-status"
)

type envelope struct {
	Label      string          `json:"label"`
	Type       string          `json:"type"`
	Data       json.RawMessage `json:"data"`
	VADBackend string          `json:"vad_backend"`
}

type transcriptionData struct {
	Text      *string `json:"text"`
	Final     bool    `json:"final"`
	Timestamp string  `json:"timestamp"`
}

type serverMessageData struct {
	VADBackend string `json:"vad_backend"`
}

// Classify maps one inbound control payload to a typed message. Payloads
// that are not JSON, or JSON of an unknown shape, classify as
// unrecognized; the control channel carries expected noise (for example
// heartbeat echoes) and classification never fails.
func Classify(payload []byte) Message {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return Message{Kind: KindUnrecognized}
	}

	switch {
	case env.Label == labelRTVI && env.Type == typeUserTranscription:
		var data transcriptionData
		if err := json.Unmarshal(env.Data, &data); err != nil || data.Text == nil {
			return Message{Kind: KindUnrecognized}
		}
		return Message{
			Kind: KindTranscription,
			Fragment: domain.RecognitionFragment{
				Text:      *data.Text,
				Final:     data.Final,
				Timestamp: data.Timestamp,
			},
		}

	case env.Label == labelRTVI && env.Type == typeServerMessage:
		var data serverMessageData
		if err := json.Unmarshal(env.Data, &data); err != nil || data.VADBackend == "" {
			return Message{Kind: KindUnrecognized}
		}
		return Message{Kind: KindBackendStatus, VADBackend: data.VADBackend}

	case env.Type == typeUnivoxStatus && env.VADBackend != "":
		return Message{Kind: KindBackendStatus, VADBackend: env.VADBackend}
	}

	return Message{Kind: KindUnrecognized}
}

// EncodeUserTranscription renders a recognition fragment as a
// user-transcription payload. Transport adapters that speak a different
// provider protocol use it to normalize their results onto the control
// channel schema, so the classifier stays the sole gate in front of the
// transcript reducer.
func EncodeUserTranscription(frag domain.RecognitionFragment) []byte {
	text := frag.Text
	payload := struct {
		Label string            `json:"label"`
		Type  string            `json:"type"`
		Data  transcriptionData `json:"data"`
	}{
		Label: labelRTVI,
		Type:  typeUserTranscription,
		Data: transcriptionData{
			Text:      &text,
			Final:     frag.Final,
			Timestamp: frag.Timestamp,
		},
	}

	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil
	}
	return encoded
}
