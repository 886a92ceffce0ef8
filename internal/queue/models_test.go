package queue

import (
	"strings"
	"testing"
)

func TestParseHelpers(t *testing.T) {
	if s, ok := ParseStatus(" Completed "); !ok || s != StatusCompleted {
		t.Fatalf("ParseStatus: %v %v", s, ok)
	}
	if _, ok := ParseStatus("review"); ok {
		t.Fatal("unknown status accepted")
	}
	if st, ok := ParseStage("TRANSCRIBING"); !ok || st != StageTranscribing {
		t.Fatalf("ParseStage: %v %v", st, ok)
	}
	if m, ok := ParseMode(""); !ok || m != ModeMedium {
		t.Fatalf("ParseMode default: %v %v", m, ok)
	}
	if _, ok := ParseStyle("loud"); ok {
		t.Fatal("unknown style accepted")
	}
	if it, ok := ParseInputType("Article"); !ok || it != InputArticle {
		t.Fatalf("ParseInputType: %v %v", it, ok)
	}
}

func TestRebindForPostgres(t *testing.T) {
	s := &Store{driver: "postgres"}
	got := s.rebind("UPDATE tasks SET a = ? WHERE id = ? AND b IN (?, ?)")
	want := "UPDATE tasks SET a = $1 WHERE id = $2 AND b IN ($3, $4)"
	if got != want {
		t.Fatalf("rebind = %q, want %q", got, want)
	}
	sqlite := &Store{driver: "sqlite"}
	if q := sqlite.rebind("SELECT ?"); q != "SELECT ?" {
		t.Fatalf("sqlite query rewritten: %q", q)
	}
}

func TestRedactDSN(t *testing.T) {
	got := redactDSN("postgres", "postgres://user:secret@db:5432/podcasts")
	if strings.Contains(got, "secret") || !strings.HasSuffix(got, "@db:5432/podcasts") {
		t.Fatalf("unexpected redaction %q", got)
	}
}
