package synth

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"podcastforge/internal/media/ffmpeg"
	"podcastforge/internal/queue"
	"podcastforge/internal/services"
	"podcastforge/internal/services/tts"
	"podcastforge/internal/storage"
)

func TestSplitTurns(t *testing.T) {
	text := "Welcome to the show.\n\nThanks for having me.\n\nBob: I will go again.\n\nAlice：And me, with a full-width colon.\n\n\n   \n\nHost 2: generic label"
	turns := SplitTurns(text, "Alice", "Bob")
	want := []struct {
		host    int
		content string
	}{
		{1, "Welcome to the show."},
		{2, "Thanks for having me."},
		{2, "I will go again."},
		{1, "And me, with a full-width colon."},
		{2, "generic label"},
	}
	if len(turns) != len(want) {
		t.Fatalf("expected %d turns, got %d: %#v", len(want), len(turns), turns)
	}
	for i, w := range want {
		if turns[i].Host != w.host || turns[i].Content != w.content {
			t.Fatalf("turn %d = %#v, want host %d %q", i, turns[i], w.host, w.content)
		}
	}
	if turns[0].SpeakerName != "Alice" || turns[1].SpeakerName != "Bob" {
		t.Fatalf("unexpected speaker names %q %q", turns[0].SpeakerName, turns[1].SpeakerName)
	}
}

func TestSplitTurnsKeepsUnknownLabels(t *testing.T) {
	turns := SplitTurns("Note: this is not a speaker.\n\n**Host 1:** bold label", "A", "B")
	if len(turns) != 2 {
		t.Fatalf("expected 2 turns, got %#v", turns)
	}
	if turns[0].Content != "Note: this is not a speaker." || turns[0].Host != 1 {
		t.Fatalf("unexpected first turn %#v", turns[0])
	}
	if turns[1].Content != "bold label" || turns[1].Host != 1 {
		t.Fatalf("unexpected second turn %#v", turns[1])
	}
	if got := SplitTurns(" \n\n ", "A", "B"); len(got) != 0 {
		t.Fatalf("expected no turns for blank text, got %#v", got)
	}
}

func TestScriptText(t *testing.T) {
	turns := []Turn{{SpeakerName: "A", Content: "hi"}, {SpeakerName: "B", Content: "hello"}}
	if got := ScriptText(turns); got != "A: hi\n\nB: hello" {
		t.Fatalf("unexpected script %q", got)
	}
}

type fakeSpeech struct {
	mu       sync.Mutex
	voices   []tts.Voice
	failOn   int
	requests []tts.SynthesizeRequest
}

func (f *fakeSpeech) Voices(context.Context) ([]tts.Voice, error) {
	return f.voices, nil
}

func (f *fakeSpeech) Synthesize(_ context.Context, req tts.SynthesizeRequest) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.failOn > 0 && len(f.requests) == f.failOn {
		return nil, errors.New("tts gateway: http 500")
	}
	return []byte("ID3" + req.Voice.SpeakerID + ":" + req.Text), nil
}

// catConcat imitates ffmpeg's concat demuxer by appending inputs.
func catConcat(workDirs *[]string) ffmpeg.CommandRunner {
	return func(_ context.Context, _ string, args ...string) error {
		var list, output string
		for i, arg := range args {
			if arg == "-i" {
				list = args[i+1]
			}
		}
		output = args[len(args)-1]
		*workDirs = append(*workDirs, filepath.Dir(list))
		data, err := os.ReadFile(list)
		if err != nil {
			return err
		}
		var joined []byte
		for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
			path := strings.TrimSuffix(strings.TrimPrefix(line, "file '"), "'")
			part, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			joined = append(joined, part...)
		}
		return os.WriteFile(output, joined, 0o644)
	}
}

var catalog = []tts.Voice{
	{SpeakerID: "f1", Name: "Mia", Gender: tts.GenderFemale, Locale: "en-US"},
	{SpeakerID: "m1", Name: "Leo", Gender: tts.GenderMale, Locale: "en-US"},
	{SpeakerID: "m2", Name: "Sam", Gender: tts.GenderMale, Locale: "en-US"},
}

func newSynth(t *testing.T, speech Speech, workDirs *[]string) (*Synthesizer, *storage.Local) {
	t.Helper()
	store, err := storage.NewLocal(filepath.Join(t.TempDir(), "objects"), "")
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	runner := ffmpeg.New("ffmpeg").WithCommandRunner(catConcat(workDirs))
	s := New(Config{TempDir: t.TempDir()}, speech, runner, store, nil).
		WithDurationProbe(func(context.Context, string) (float64, error) { return 42.5, nil })
	return s, store
}

func TestSynthesizeEpisode(t *testing.T) {
	speech := &fakeSpeech{voices: catalog}
	var workDirs []string
	s, store := newSynth(t, speech, &workDirs)

	ep, err := s.Synthesize(context.Background(), Request{
		Summary: "Leo: Hello there.\n\nMia: Hi Leo.\n\nAnd we are back.",
		Title:   "Episode",
		Mode:    queue.ModeDeep,
		OwnerID: "alice",
		TaskID:  "task-1",
	})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if len(ep.Turns) != 3 {
		t.Fatalf("expected 3 turns, got %#v", ep.Turns)
	}
	if ep.Turns[0].SpeakerID != "m1" || ep.Turns[1].SpeakerID != "f1" || ep.Turns[2].SpeakerID != "m1" {
		t.Fatalf("unexpected voice assignment %#v", ep.Turns)
	}
	if speech.requests[0].Mode != "deep" {
		t.Fatalf("expected mode hint forwarded, got %q", speech.requests[0].Mode)
	}
	wantPrefix := "podcast-episodes/alice/" + ep.ID
	if ep.AudioKey != wantPrefix+".mp3" {
		t.Fatalf("unexpected key %q", ep.AudioKey)
	}
	if ep.DurationSeconds != 42.5 {
		t.Fatalf("unexpected duration %v", ep.DurationSeconds)
	}
	data, err := storage.ReadAll(context.Background(), store, ep.AudioKey)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(data) != "ID3m1:Hello there.ID3f1:Hi Leo.ID3m1:And we are back." {
		t.Fatalf("unexpected episode audio %q", data)
	}
	var decoded []Turn
	if err := json.Unmarshal([]byte(ep.ScriptJSON()), &decoded); err != nil || len(decoded) != 3 {
		t.Fatalf("script json did not round trip: %v %#v", err, decoded)
	}
	for _, dir := range workDirs {
		if _, err := os.Stat(dir); !os.IsNotExist(err) {
			t.Fatalf("expected temp dir %s to be removed", dir)
		}
	}
}

func TestSynthesizeUsesExplicitVoices(t *testing.T) {
	speech := &fakeSpeech{}
	var workDirs []string
	s, _ := newSynth(t, speech, &workDirs)
	host1 := tts.Voice{SpeakerID: "x1", Name: "Xavier"}
	host2 := tts.Voice{SpeakerID: "y2", Name: "Yara"}
	ep, err := s.Synthesize(context.Background(), Request{Summary: "one\n\ntwo", Host1: &host1, Host2: &host2})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if ep.Turns[0].SpeakerID != "x1" || ep.Turns[1].SpeakerID != "y2" {
		t.Fatalf("unexpected voices %#v", ep.Turns)
	}
	if !strings.HasPrefix(ep.AudioKey, "podcast-episodes/anonymous/") {
		t.Fatalf("unexpected key %q", ep.AudioKey)
	}
}

func TestSynthesizeTurnFailureAbortsEpisode(t *testing.T) {
	speech := &fakeSpeech{voices: catalog, failOn: 2}
	var workDirs []string
	s, store := newSynth(t, speech, &workDirs)
	_, err := s.Synthesize(context.Background(), Request{Summary: "a\n\nb\n\nc", OwnerID: "alice"})
	if services.Normalize(err) != services.KindSynthesisFailed {
		t.Fatalf("expected synthesis failure, got %v", err)
	}
	if len(speech.requests) != 2 {
		t.Fatalf("expected synthesis to stop at the failing turn, got %d calls", len(speech.requests))
	}
	entries, _ := os.ReadDir(filepath.Join(store.Root(), "podcast-episodes"))
	if len(entries) != 0 {
		t.Fatal("no episode should be uploaded after a failed turn")
	}
}

func TestSynthesizeWithoutVoices(t *testing.T) {
	var workDirs []string
	s, _ := newSynth(t, &fakeSpeech{voices: catalog[:1]}, &workDirs)
	if _, err := s.Synthesize(context.Background(), Request{Summary: "a"}); services.Normalize(err) != services.KindSynthesisFailed {
		t.Fatalf("expected synthesis failure without a male voice, got %v", err)
	}
	if _, err := s.Synthesize(context.Background(), Request{Summary: "  ", Host1: &catalog[0], Host2: &catalog[1]}); services.Normalize(err) != services.KindSynthesisFailed {
		t.Fatalf("expected synthesis failure for empty script, got %v", err)
	}
}

type failingStore struct{ storage.Store }

func (failingStore) Put(context.Context, string, []byte, string) (string, error) {
	return "", errors.New("disk full")
}

func TestSynthesizeUploadFailure(t *testing.T) {
	var workDirs []string
	s, store := newSynth(t, &fakeSpeech{voices: catalog}, &workDirs)
	s.store = failingStore{store}
	if _, err := s.Synthesize(context.Background(), Request{Summary: "a\n\nb"}); services.Normalize(err) != services.KindStorageFailed {
		t.Fatalf("expected storage failure, got %v", err)
	}
}
