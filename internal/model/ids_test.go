package model

import "testing"

func TestTaskIDSeqRoundTrips(t *testing.T) {
	id := NewTaskID("subprocess", "build")
	seq, err := id.Seq()
	if err != nil {
		t.Fatalf("Seq() error = %v", err)
	}

	id2 := NewTaskID("subprocess", "build")
	seq2, err := id2.Seq()
	if err != nil {
		t.Fatalf("Seq() error = %v", err)
	}
	if seq2 <= seq {
		t.Fatalf("expected monotonically increasing sequence, got %d then %d", seq, seq2)
	}
}

func TestTaskIDSeqMalformed(t *testing.T) {
	if seq, err := TaskID("subprocess-build-1a2b").Seq(); err != nil || seq != 0x1a2b {
		t.Fatalf("Seq() = %d, %v, want 0x1a2b, nil", seq, err)
	}
	if _, err := TaskID("nohexsegment-").Seq(); err == nil {
		t.Fatalf("expected error for trailing dash with empty segment")
	}
	if _, err := TaskID("no-hex-zz").Seq(); err == nil {
		t.Fatalf("expected error for non-hex trailing segment")
	}
}
