package highlight

import (
	"context"
	"errors"
	"strings"
	"testing"

	"podcastforge/internal/services"
	"podcastforge/internal/services/llm"
	"podcastforge/internal/synth"
)

type fakeCompleter struct {
	reply string
	err   error
	last  llm.Request
}

func (f *fakeCompleter) Complete(_ context.Context, req llm.Request) (llm.Response, error) {
	f.last = req
	if f.err != nil {
		return llm.Response{}, f.err
	}
	return llm.Response{Content: f.reply, Model: "fake"}, nil
}

// tenTurns returns ten turns of ten characters each.
func tenTurns() []Turn {
	turns := make([]Turn, 10)
	for i := range turns {
		turns[i] = Turn{Speaker: "Host", Content: strings.Repeat(string(rune('a'+i)), 10)}
	}
	return turns
}

func TestParseModelOutputShapes(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    int
	}{
		{"bare array", `[{"title":"A","startIndex":1,"endIndex":2}]`, 1},
		{"segments", `{"segments":[{"title":"A","startIndex":1,"endIndex":2},{"title":"B","startIndex":3,"endIndex":4}]}`, 2},
		{"highlights", `{"highlights":[{"title":"A","startIndex":"1","endIndex":2.0}]}`, 1},
		{"items", `{"items":[{"title":"A","startIndex":1,"endIndex":2}]}`, 1},
		{"single object", `{"title":"A","startIndex":1,"endIndex":2}`, 1},
		{"fenced", "```json\n{\"segments\":[{\"title\":\"A\",\"startIndex\":1,\"endIndex\":2}]}\n```", 1},
		{"object suffix", `{"segments":[{"title":"A","startIndex":1,"endIndex":2}]} Let me know if you want another.`, 1},
		{"array suffix", "[{\"title\":\"A\",\"startIndex\":1,\"endIndex\":2}]\nHope this helps!", 1},
		{"prose", `Sure: [{"title":"A [draft]","startIndex":1,"endIndex":2}] done`, 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			parsed, ok := ParseModelOutput(tc.content).(Segments)
			if !ok {
				t.Fatalf("expected segments, got %#v", ParseModelOutput(tc.content))
			}
			if len(parsed) != tc.want {
				t.Fatalf("expected %d segments, got %d", tc.want, len(parsed))
			}
			if parsed[0].Title == "" || parsed[0].StartIndex != 1 || parsed[0].EndIndex != 2 {
				t.Fatalf("unexpected first segment %#v", parsed[0])
			}
		})
	}
}

func TestParseModelOutputFailures(t *testing.T) {
	for _, content := range []string{"", "no json at all", `{"segments":[]}`, `[]`, `{"foo":"bar"}`, `{"segments":"nope"}`} {
		if _, ok := ParseModelOutput(content).(Failure); !ok {
			t.Fatalf("expected failure for %q", content)
		}
	}
}

func TestExtractTargetDurationIsHonored(t *testing.T) {
	fake := &fakeCompleter{reply: `{"segments":[{"title":"Best bit","description":"d","startIndex":2,"endIndex":9}]}`}
	ex := NewExtractor(fake, Settings{}, nil)

	seg, err := ex.Extract(context.Background(), tenTurns(), 40)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if seg.Duration != 40 || seg.TargetDuration != 40 {
		t.Fatalf("expected duration 40, got %v", seg.Duration)
	}
	if seg.EndTime-seg.StartTime != seg.Duration {
		t.Fatalf("end-start %v != duration %v", seg.EndTime-seg.StartTime, seg.Duration)
	}
	// Two turns of ten characters precede index 2: 20 * 0.3 = 6 seconds.
	if seg.StartTime != 6 {
		t.Fatalf("expected start 6, got %v", seg.StartTime)
	}
	if !strings.Contains(fake.last.User, "[9] Host: jjjjjjjjjj") || !strings.Contains(fake.last.User, "134 characters") {
		t.Fatalf("prompt missing transcript or target chars: %q", fake.last.User)
	}
}

func TestExtractDurationBounds(t *testing.T) {
	fake := &fakeCompleter{reply: `[{"title":"x","startIndex":0,"endIndex":0}]`}
	ex := NewExtractor(fake, Settings{}, nil)
	for _, target := range []int{-5, 0, 1, 20, 60, 61, 300} {
		seg, err := ex.Extract(context.Background(), tenTurns(), target)
		if err != nil {
			t.Fatalf("Extract(%d): %v", target, err)
		}
		if seg.Duration <= 0 || seg.Duration > CeilingSeconds {
			t.Fatalf("target %d produced duration %v", target, seg.Duration)
		}
		if seg.EndTime-seg.StartTime != seg.Duration {
			t.Fatalf("target %d: end-start != duration", target)
		}
		want := float64(target)
		if target <= 0 || target > CeilingSeconds {
			want = CeilingSeconds
		}
		if seg.Duration != want {
			t.Fatalf("target %d: duration %v, want %v", target, seg.Duration, want)
		}
	}
}

func TestExtractClampsAndExtends(t *testing.T) {
	fake := &fakeCompleter{reply: `{"title":"x","startIndex":-3,"endIndex":0}`}
	ex := NewExtractor(fake, Settings{SecondsPerChar: 0.5}, nil)

	// 20 seconds at 0.5s/char needs 40 chars; one turn has 10, so the passage
	// grows to four turns.
	seg, err := ex.Extract(context.Background(), tenTurns(), 20)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if seg.StartIndex != 0 || seg.EndIndex != 3 {
		t.Fatalf("expected indexes 0..3, got %d..%d", seg.StartIndex, seg.EndIndex)
	}
	if seg.StartTime != 0 {
		t.Fatalf("expected start 0, got %v", seg.StartTime)
	}
	if lines := strings.Count(seg.TranscriptExcerpt, "\n") + 1; lines != 4 {
		t.Fatalf("expected four excerpt lines, got %d", lines)
	}

	fake.reply = `{"title":"x","startIndex":50,"endIndex":70}`
	seg, err = ex.Extract(context.Background(), tenTurns(), 20)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if seg.StartIndex != 9 || seg.EndIndex != 9 {
		t.Fatalf("expected clamp to last turn, got %d..%d", seg.StartIndex, seg.EndIndex)
	}
	if seg.StartTime != 45 {
		t.Fatalf("expected start 45, got %v", seg.StartTime)
	}
}

func TestExtractStartFromCharacterRate(t *testing.T) {
	fake := &fakeCompleter{reply: `{"segments":[{"title":"x","startIndex":1,"endIndex":1}]}`}
	ex := NewExtractor(fake, Settings{}, nil)
	turns := []Turn{
		{Content: strings.Repeat("a", 80)},
		{Content: strings.Repeat("b", 80)},
		{Content: strings.Repeat("c", 80)},
	}
	seg, err := ex.Extract(context.Background(), turns, 20)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	// 80 characters precede index 1: floor(80 * 0.3) = 24 seconds.
	if seg.StartTime != 24 || seg.EndTime != 44 {
		t.Fatalf("expected char-rate window 24..44, got %v..%v", seg.StartTime, seg.EndTime)
	}
}

func TestExtractFailures(t *testing.T) {
	ex := NewExtractor(&fakeCompleter{reply: "I can't"}, Settings{}, nil)
	if _, err := ex.Extract(context.Background(), tenTurns(), 20); services.Normalize(err) != services.KindAnalysisFailed {
		t.Fatalf("expected analysis failure, got %v", err)
	}
	if _, err := ex.Extract(context.Background(), nil, 20); services.Normalize(err) != services.KindInvalidInput {
		t.Fatalf("expected invalid input for empty script, got %v", err)
	}
	down := NewExtractor(&fakeCompleter{err: errors.New("503")}, Settings{}, nil)
	if _, err := down.Extract(context.Background(), tenTurns(), 20); services.Normalize(err) != services.KindAnalysisFailed {
		t.Fatalf("expected analysis failure, got %v", err)
	}
}

func TestTurnBuilders(t *testing.T) {
	episode := FromEpisode([]synth.Turn{{SpeakerName: "Leo", Content: "hi"}, {SpeakerName: "Mia", Content: " "}})
	if len(episode) != 1 || episode[0].Speaker != "Leo" {
		t.Fatalf("unexpected episode turns %#v", episode)
	}
	paragraphs := FromParagraphs("one\n\n\ntwo\r\n\r\nthree")
	if len(paragraphs) != 3 || paragraphs[2].Content != "three" {
		t.Fatalf("unexpected paragraphs %#v", paragraphs)
	}
}
