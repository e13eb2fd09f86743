package rtvi

import (
	"testing"

	"univox/internal/domain"
)

func TestClassifyUserTranscription(t *testing.T) {
	t.Parallel()

	payload := []byte(`{"label":"rtvi-ai","type":"user-transcription","data":{"text":"hello there","final":true,"timestamp":"2026-08-23T10:00:00Z"}}`)
	msg := Classify(payload)

	if msg.Kind != KindTranscription {
		t.Fatalf("expected transcription, got %s", msg.Kind)
	}
	if msg.Fragment.Text != "hello there" || !msg.Fragment.Final {
		t.Fatalf("unexpected fragment: %+v", msg.Fragment)
	}
	if msg.Fragment.Timestamp != "2026-08-23T10:00:00Z" {
		t.Fatalf("unexpected timestamp: %q", msg.Fragment.Timestamp)
	}
}

func TestClassifyInterimDefaultsFinalFalse(t *testing.T) {
	t.Parallel()

	msg := Classify([]byte(`{"label":"rtvi-ai","type":"user-transcription","data":{"text":"hel"}}`))
	if msg.Kind != KindTranscription || msg.Fragment.Final {
		t.Fatalf("expected non-final fragment, got %+v", msg)
	}
}

func TestClassifyServerMessageStatus(t *testing.T) {
	t.Parallel()

	msg := Classify([]byte(`{"label":"rtvi-ai","type":"server-message","data":{"univox":"status","vad_backend":"silero"}}`))
	if msg.Kind != KindBackendStatus || msg.VADBackend != "silero" {
		t.Fatalf("unexpected message: %+v", msg)
	}
}

func TestClassifyUnivoxStatusFallback(t *testing.T) {
	t.Parallel()

	msg := Classify([]byte(`{"type":"univox-status","vad_backend":"cobra"}`))
	if msg.Kind != KindBackendStatus || msg.VADBackend != "cobra" {
		t.Fatalf("unexpected message: %+v", msg)
	}
}

func TestClassifyNoise(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"plain text":           `not json`,
		"heartbeat echo":       `ping 1724400000000`,
		"unknown shape":        `{"unexpected":"shape"}`,
		"missing text":         `{"label":"rtvi-ai","type":"user-transcription","data":{"final":true}}`,
		"non-string text":      `{"label":"rtvi-ai","type":"user-transcription","data":{"text":42}}`,
		"wrong label":          `{"label":"other","type":"user-transcription","data":{"text":"x"}}`,
		"status without vad":   `{"type":"univox-status"}`,
		"server msg no vad":    `{"label":"rtvi-ai","type":"server-message","data":{"univox":"status"}}`,
		"empty payload":        ``,
		"json null":            `null`,
		"top-level json array": `[1,2,3]`,
	}

	for name, payload := range cases {
		payload := payload
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			if msg := Classify([]byte(payload)); msg.Kind != KindUnrecognized {
				t.Fatalf("expected unrecognized, got %+v", msg)
			}
		})
	}
}

func TestEncodeUserTranscriptionRoundTrip(t *testing.T) {
	t.Parallel()

	frag := domain.RecognitionFragment{Text: "round trip", Final: true, Timestamp: "2026-08-23T10:00:00Z"}
	msg := Classify(EncodeUserTranscription(frag))

	if msg.Kind != KindTranscription {
		t.Fatalf("encoded payload did not classify: %+v", msg)
	}
	if msg.Fragment != frag {
		t.Fatalf("fragment mismatch: %+v vs %+v", msg.Fragment, frag)
	}
}
