package batch

import "testing"

func TestSummary_Record(t *testing.T) {
	var s Summary
	s.Record(2, 0, &Failure{Batch: 1, Kind: FailureTransport, Failed: 2, Reason: "timeout"})
	s.Record(1, 1, nil)

	if s.TotalProcessed != 3 || s.Succeeded != 1 || s.Failed != 2 || s.Batches != 2 {
		t.Fatalf("summary = %+v", s)
	}
	if len(s.Errors) != 1 || s.Errors[0].Batch != 1 {
		t.Errorf("errors = %+v", s.Errors)
	}
	if !s.Success() {
		t.Error("expected success with one ingested document")
	}
	if got, want := s.Message(), "Partially completed: 1 ingested, 2 failed across 2 batches"; got != want {
		t.Errorf("message = %q, want %q", got, want)
	}
}

func TestSummary_Messages(t *testing.T) {
	tests := []struct {
		name    string
		s       Summary
		success bool
		msg     string
	}{
		{"empty", Summary{}, true, "Successfully ingested 0 documents in 0 batches"},
		{"all ok", Summary{TotalProcessed: 5, Succeeded: 5, Batches: 1}, true, "Successfully ingested 5 documents in 1 batches"},
		{"all failed", Summary{TotalProcessed: 4, Failed: 4, Batches: 2}, false, "Failed to ingest: 4 failures across 2 batches"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.s.Success() != tt.success {
				t.Errorf("Success() = %v, want %v", tt.s.Success(), tt.success)
			}
			if tt.s.Message() != tt.msg {
				t.Errorf("Message() = %q, want %q", tt.s.Message(), tt.msg)
			}
		})
	}
}

func TestSummary_Reasons(t *testing.T) {
	s := Summary{Errors: []Failure{{Batch: 1, Reason: "a"}, {Batch: 3, Reason: "b"}}}
	if got := s.Reasons(); got != "batch 1: a; batch 3: b" {
		t.Errorf("Reasons() = %q", got)
	}
}
