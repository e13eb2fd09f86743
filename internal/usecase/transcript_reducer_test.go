package usecase

import (
	"testing"

	"univox/internal/domain"
)

func TestReducerMergesInterimFragments(t *testing.T) {
	t.Parallel()

	r := newTranscriptReducer()
	r.Fold(domain.RecognitionFragment{Text: "a"})
	lines := r.Fold(domain.RecognitionFragment{Text: "ab"})

	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
	if lines[0].Text != "ab" || lines[0].Final {
		t.Fatalf("unexpected line: %+v", lines[0])
	}
}

func TestReducerInterimKeepsStableID(t *testing.T) {
	t.Parallel()

	r := newTranscriptReducer()
	first := r.Fold(domain.RecognitionFragment{Text: "a"})
	second := r.Fold(domain.RecognitionFragment{Text: "ab"})

	if first[0].ID != second[0].ID {
		t.Fatalf("interim merge must keep the line id: %q vs %q", first[0].ID, second[0].ID)
	}
}

func TestReducerFinalNeverMergesIntoInterimTail(t *testing.T) {
	t.Parallel()

	r := newTranscriptReducer()
	r.Fold(domain.RecognitionFragment{Text: "a"})
	r.Fold(domain.RecognitionFragment{Text: "ab"})
	lines := r.Fold(domain.RecognitionFragment{Text: "abc", Final: true})

	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if lines[0].Text != "ab" || lines[0].Final {
		t.Fatalf("interim line must survive as a non-final entry: %+v", lines[0])
	}
	if lines[1].Text != "abc" || !lines[1].Final {
		t.Fatalf("expected final tail line: %+v", lines[1])
	}
}

func TestReducerFinalsAppendInOrder(t *testing.T) {
	t.Parallel()

	r := newTranscriptReducer()
	r.Fold(domain.RecognitionFragment{Text: "x", Final: true})
	lines := r.Fold(domain.RecognitionFragment{Text: "y", Final: true})

	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if lines[0].Text != "x" || lines[1].Text != "y" {
		t.Fatalf("finals out of order: %+v", lines)
	}
	if !lines[0].Final || !lines[1].Final {
		t.Fatalf("expected both lines final")
	}
	if lines[0].ID == lines[1].ID {
		t.Fatalf("line ids must be unique")
	}
}

func TestReducerInterimAfterFinalStartsNewLine(t *testing.T) {
	t.Parallel()

	r := newTranscriptReducer()
	r.Fold(domain.RecognitionFragment{Text: "done", Final: true})
	lines := r.Fold(domain.RecognitionFragment{Text: "next"})

	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if lines[1].Final || lines[1].Text != "next" {
		t.Fatalf("expected fresh interim tail: %+v", lines[1])
	}
}

func TestReducerFinalOnEmptyTranscript(t *testing.T) {
	t.Parallel()

	r := newTranscriptReducer()
	lines := r.Fold(domain.RecognitionFragment{Text: "solo", Final: true})

	if len(lines) != 1 || !lines[0].Final {
		t.Fatalf("expected single final line, got %+v", lines)
	}
}

func TestReducerClearResetsToEmpty(t *testing.T) {
	t.Parallel()

	r := newTranscriptReducer()
	r.Fold(domain.RecognitionFragment{Text: "a"})
	r.Fold(domain.RecognitionFragment{Text: "b", Final: true})
	r.Clear()

	if got := r.Lines(); len(got) != 0 {
		t.Fatalf("expected empty transcript, got %+v", got)
	}

	lines := r.Fold(domain.RecognitionFragment{Text: "fresh"})
	if len(lines) != 1 || lines[0].Text != "fresh" {
		t.Fatalf("fold after clear should behave like first fragment: %+v", lines)
	}
}

func TestReducerSnapshotIsolation(t *testing.T) {
	t.Parallel()

	r := newTranscriptReducer()
	first := r.Fold(domain.RecognitionFragment{Text: "a"})
	first[0].Text = "mutated"

	if got := r.Lines()[0].Text; got != "a" {
		t.Fatalf("snapshot mutation leaked into reducer: %q", got)
	}
}
