package workflow_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"podcastforge/internal/analyzer"
	"podcastforge/internal/audioclip"
	"podcastforge/internal/config"
	"podcastforge/internal/highlight"
	"podcastforge/internal/notifications"
	"podcastforge/internal/progress"
	"podcastforge/internal/queue"
	"podcastforge/internal/resolve"
	"podcastforge/internal/services/llm"
	"podcastforge/internal/services/tts"
	"podcastforge/internal/storage"
	"podcastforge/internal/synth"
	"podcastforge/internal/testsupport"
	"podcastforge/internal/workflow"
)

type stubNotifier struct {
	mu     sync.Mutex
	events []notifications.Event
	last   map[notifications.Event]notifications.Payload
}

func (s *stubNotifier) Publish(_ context.Context, event notifications.Event, payload notifications.Payload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		s.last = make(map[notifications.Event]notifications.Payload)
	}
	s.events = append(s.events, event)
	s.last[event] = payload
	return nil
}

func (s *stubNotifier) payload(event notifications.Event) notifications.Payload {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last[event]
}

type fakeResolver struct {
	content resolve.Content
	err     error
	calls   int
}

func (f *fakeResolver) Resolve(ctx context.Context, ref string, reporter progress.Reporter) (resolve.Content, error) {
	f.calls++
	if f.err != nil {
		return resolve.Content{}, f.err
	}
	content := f.content
	if content.Text == "" {
		content.Text = ref
	}
	return content, nil
}

type fakeVideo struct {
	meta    resolve.VideoMetadata
	metaErr error
	content resolve.Content
	err     error
	calls   int
	// metaRefs and refs record the references each method received.
	metaRefs []string
	refs     []string
}

func (f *fakeVideo) Metadata(_ context.Context, ref string) (resolve.VideoMetadata, error) {
	f.metaRefs = append(f.metaRefs, ref)
	return f.meta, f.metaErr
}

func (f *fakeVideo) Resolve(ctx context.Context, ref string, reporter progress.Reporter) (resolve.Content, error) {
	f.calls++
	f.refs = append(f.refs, ref)
	if f.err != nil {
		return resolve.Content{}, f.err
	}
	for _, u := range []progress.Update{
		{Stage: queue.StageDownloading, Percent: progress.PercentVideoDownloading, Message: "Downloading audio"},
		{Stage: queue.StageTranscribing, Percent: progress.PercentVideoTranscribing, Message: "Transcribing audio"},
	} {
		if err := reporter.Report(ctx, u); err != nil {
			return resolve.Content{}, err
		}
	}
	return f.content, nil
}

// staticCompleter answers every prompt with the same JSON object.
type staticCompleter struct {
	content string
	calls   int
	prompts []string
}

func (s *staticCompleter) Complete(_ context.Context, req llm.Request) (llm.Response, error) {
	s.calls++
	s.prompts = append(s.prompts, req.User)
	return llm.Response{Content: s.content, Model: "test-model"}, nil
}

type fakeSynth struct {
	mu       sync.Mutex
	requests []synth.Request
	err      error
	// onCall runs before the episode is produced.
	onCall func()
}

func (f *fakeSynth) Synthesize(ctx context.Context, req synth.Request) (synth.Episode, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	if f.onCall != nil {
		f.onCall()
		if err := ctx.Err(); err != nil {
			return synth.Episode{}, err
		}
	}
	if f.err != nil {
		return synth.Episode{}, f.err
	}
	turns := synth.SplitTurns(req.Summary, "Alex", "Blair")
	return synth.Episode{
		ID:              "ep-" + req.TaskID,
		AudioURL:        "local://podcast-episodes/" + req.OwnerID + "/ep.mp3",
		AudioKey:        "podcast-episodes/" + req.OwnerID + "/ep.mp3",
		Title:           req.Title,
		Turns:           turns,
		DurationSeconds: 42,
	}, nil
}

func (f *fakeSynth) last() synth.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		return synth.Request{}
	}
	return f.requests[len(f.requests)-1]
}

type fakeVoices struct{}

func (fakeVoices) Voices(context.Context) ([]tts.Voice, error) {
	return []tts.Voice{
		{SpeakerID: "m1", Name: "Alex", Gender: "male"},
		{SpeakerID: "f1", Name: "Blair", Gender: "female"},
		{SpeakerID: "f2", Name: "Casey", Gender: "female"},
	}, nil
}

type fakeExtractor struct{}

func (fakeExtractor) Extract(_ context.Context, turns []highlight.Turn, target int) (highlight.Segment, error) {
	if len(turns) == 0 {
		return highlight.Segment{}, errors.New("no turns")
	}
	start := float64(target) / 2
	return highlight.Segment{
		Title:             "Moment",
		StartIndex:        0,
		EndIndex:          len(turns) - 1,
		StartTime:         start,
		EndTime:           start + float64(target),
		Duration:          float64(target),
		TargetDuration:    target,
		TranscriptExcerpt: turns[0].Content,
	}, nil
}

// failingClips uploads through store but fails for one duration.
type failingClips struct {
	store    storage.Store
	failFor  float64
	requests []audioclip.ClipRequest
}

func (f *failingClips) Clip(ctx context.Context, req audioclip.ClipRequest) (audioclip.Clip, error) {
	f.requests = append(f.requests, req)
	if req.Duration == f.failFor {
		return audioclip.Clip{}, errors.New("s3 upload denied")
	}
	key := storage.JoinKey("podcast-highlights", req.OwnerID, req.TaskID, fmt.Sprintf("clip-%d.mp3", int(req.Duration)))
	url, err := f.store.Put(ctx, key, []byte("clip"), "audio/mpeg")
	if err != nil {
		return audioclip.Clip{}, err
	}
	return audioclip.Clip{URL: url, Key: key}, nil
}

type harness struct {
	cfg      *config.Config
	store    *queue.Store
	objects  *storage.Local
	text     *fakeResolver
	article  *fakeResolver
	video    *fakeVideo
	llm      *staticCompleter
	synth    *fakeSynth
	clips    *failingClips
	notifier *stubNotifier
	manager  *workflow.Manager
}

const scriptedJSON = `{"title":"Tea Through The Ages","summary":"A short history of tea.","podcastScript":"Host 1: Welcome to the show.\n\nHost 2: Today we talk about tea.\n\nHost 1: Thanks for listening."}`

func newHarness(t *testing.T, mutate ...func(*config.Config)) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	cfg.Analysis.FastPath = true
	for _, fn := range mutate {
		fn(cfg)
	}
	store := testsupport.MustOpenStore(t, cfg)
	objects, err := storage.NewLocal(cfg.Storage.LocalDir, "")
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}

	h := &harness{
		cfg:      cfg,
		store:    store,
		objects:  objects,
		text:     &fakeResolver{},
		article:  &fakeResolver{content: resolve.Content{Title: "Tea Article", Text: "Tea was first brewed in China."}},
		video:    &fakeVideo{},
		llm:      &staticCompleter{content: scriptedJSON},
		synth:    &fakeSynth{},
		notifier: &stubNotifier{},
	}
	h.clips = &failingClips{store: objects, failFor: -1}
	deps := workflow.Collaborators{
		Video:      h.video,
		Text:       h.text,
		Article:    h.article,
		Analyzer:   analyzer.New(h.llm, analyzer.SettingsFromConfig(cfg), nil),
		Synth:      h.synth,
		Voices:     fakeVoices{},
		Highlights: fakeExtractor{},
		Clips:      h.clips,
		Storage:    objects,
	}
	h.manager = workflow.NewManager(cfg, store, deps, nil, workflow.WithNotifier(h.notifier))
	return h
}

func (h *harness) submit(t *testing.T, req workflow.SubmitRequest) *queue.Task {
	t.Helper()
	if req.OwnerID == "" {
		req.OwnerID = "owner-1"
	}
	task, err := h.manager.Submit(context.Background(), req)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	return task
}

func (h *harness) reload(t *testing.T, id string) *queue.Task {
	t.Helper()
	task, err := h.store.GetTask(context.Background(), id)
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if task == nil {
		t.Fatalf("task %s missing", id)
	}
	return task
}

// completedTask stores a finished task with an episode script.
func (h *harness) completedTask(t *testing.T, owner string) *queue.Task {
	t.Helper()
	ctx := context.Background()
	task := testsupport.MustCreateTask(t, h.store, owner, queue.InputText, "Tea was first brewed in China.")
	if err := h.store.MarkProcessing(ctx, task.ID); err != nil {
		t.Fatalf("MarkProcessing: %v", err)
	}
	episode := synth.Episode{
		Turns: synth.SplitTurns("Host 1: Welcome.\n\nHost 2: Tea began in China.\n\nHost 1: Goodbye.", "Alex", "Blair"),
	}
	if _, err := h.objects.Put(ctx, "podcast-episodes/"+owner+"/ep.mp3", []byte("episode"), "audio/mpeg"); err != nil {
		t.Fatalf("put episode: %v", err)
	}
	if err := h.store.SaveEpisode(ctx, task.ID, queue.EpisodeResult{
		ID:         "ep-1",
		Title:      "Tea",
		AudioURL:   "local://podcast-episodes/" + owner + "/ep.mp3",
		AudioKey:   "podcast-episodes/" + owner + "/ep.mp3",
		ScriptJSON: episode.ScriptJSON(),
	}); err != nil {
		t.Fatalf("SaveEpisode: %v", err)
	}
	if err := h.store.Complete(ctx, task.ID, workflow.CompletionMessage); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	return h.reload(t, task.ID)
}
