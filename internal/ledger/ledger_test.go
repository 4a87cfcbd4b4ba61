package ledger

import (
	"path/filepath"
	"testing"

	"autorespond/internal/domain"
)

func openTestLedger(t *testing.T) *Ledger {
	t.Helper()
	l, err := Open(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

func TestSeenAfterRecord(t *testing.T) {
	l := openTestLedger(t)

	seen, err := l.Seen(domain.ProviderGmail, "m1")
	if err != nil {
		t.Fatalf("Seen: %v", err)
	}
	if seen {
		t.Fatal("unrecorded message reported seen")
	}

	if err := l.Record(domain.ProviderGmail, "m1", domain.LabelInterested, "job-1"); err != nil {
		t.Fatalf("Record: %v", err)
	}

	seen, err = l.Seen(domain.ProviderGmail, "m1")
	if err != nil {
		t.Fatalf("Seen: %v", err)
	}
	if !seen {
		t.Fatal("recorded message not seen")
	}
}

func TestProvidersAreDistinct(t *testing.T) {
	l := openTestLedger(t)

	if err := l.Record(domain.ProviderGmail, "m1", domain.LabelInterested, "job-1"); err != nil {
		t.Fatalf("Record: %v", err)
	}

	seen, err := l.Seen(domain.ProviderOutlook, "m1")
	if err != nil {
		t.Fatalf("Seen: %v", err)
	}
	if seen {
		t.Fatal("same id under another provider reported seen")
	}
}

func TestDuplicateRecordIsNoop(t *testing.T) {
	l := openTestLedger(t)

	if err := l.Record(domain.ProviderGmail, "m1", domain.LabelInterested, "job-1"); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := l.Record(domain.ProviderGmail, "m1", domain.LabelNotInterested, "job-2"); err != nil {
		t.Fatalf("duplicate Record: %v", err)
	}
}
