package usecase

import (
	"sync"

	"github.com/google/uuid"

	"univox/internal/domain"
)

// transcriptReducer folds incremental recognition fragments into an
// ordered, append-only transcript. Recognition backends emit a rolling
// window of interim guesses for the in-progress utterance followed by one
// final fragment: interim fragments overwrite the non-final tail in place
// so the transcript never floods, while final fragments always start a
// new line so completed utterances stay individually addressable.
type transcriptReducer struct {
	mu    sync.Mutex
	lines []domain.TranscriptLine
}

func newTranscriptReducer() *transcriptReducer {
	return &transcriptReducer{}
}

// Fold merges one fragment and returns a snapshot of the updated
// transcript. It is total: every fragment lands somewhere, including a
// final fragment on an empty transcript (it simply becomes the first
// line).
func (r *transcriptReducer) Fold(frag domain.RecognitionFragment) []domain.TranscriptLine {
	r.mu.Lock()
	defer r.mu.Unlock()

	if frag.Final {
		r.lines = append(r.lines, domain.TranscriptLine{
			ID:        uuid.NewString(),
			Text:      frag.Text,
			Final:     true,
			Timestamp: frag.Timestamp,
		})
		return r.snapshotLocked()
	}

	if n := len(r.lines); n > 0 && !r.lines[n-1].Final {
		r.lines[n-1].Text = frag.Text
		r.lines[n-1].Timestamp = frag.Timestamp
		return r.snapshotLocked()
	}

	r.lines = append(r.lines, domain.TranscriptLine{
		ID:        uuid.NewString(),
		Text:      frag.Text,
		Timestamp: frag.Timestamp,
	})
	return r.snapshotLocked()
}

// Clear resets the transcript to empty. Line ids are never reused within
// a session, so the id source is left untouched.
func (r *transcriptReducer) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = nil
}

// Lines returns a snapshot of the current transcript.
func (r *transcriptReducer) Lines() []domain.TranscriptLine {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

func (r *transcriptReducer) snapshotLocked() []domain.TranscriptLine {
	out := make([]domain.TranscriptLine, len(r.lines))
	copy(out, r.lines)
	return out
}
