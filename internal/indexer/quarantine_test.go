package indexer

import "testing"

func TestQuarantine_TriggersAtThreshold(t *testing.T) {
	q := NewQuarantine(3)
	if q.RecordFailure("a.go") {
		t.Fatal("should not quarantine after 1 failure")
	}
	if q.RecordFailure("a.go") {
		t.Fatal("should not quarantine after 2 failures")
	}
	if !q.RecordFailure("a.go") {
		t.Fatal("expected quarantine to trigger on 3rd failure")
	}
	if !q.IsQuarantined("a.go") {
		t.Fatal("expected a.go to be quarantined")
	}
}

func TestQuarantine_TriggersOnlyOnce(t *testing.T) {
	q := NewQuarantine(1)
	if !q.RecordFailure("a.go") {
		t.Fatal("expected quarantine on first failure with threshold 1")
	}
	if q.RecordFailure("a.go") {
		t.Fatal("expected no repeated trigger after already quarantined")
	}
}

func TestQuarantine_SuccessClears(t *testing.T) {
	q := NewQuarantine(1)
	q.RecordFailure("a.go")
	q.RecordSuccess("a.go")
	if q.IsQuarantined("a.go") {
		t.Fatal("expected quarantine cleared after success")
	}
	if !q.RecordFailure("a.go") {
		t.Fatal("expected quarantine to re-trigger after clearing and failing again")
	}
}

func TestQuarantine_IsolatesPerPath(t *testing.T) {
	q := NewQuarantine(2)
	q.RecordFailure("a.go")
	q.RecordFailure("b.go")
	if q.IsQuarantined("a.go") || q.IsQuarantined("b.go") {
		t.Fatal("expected neither path quarantined yet")
	}
}
