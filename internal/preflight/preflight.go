package preflight

import (
	"context"
	"strings"

	"podcastforge/internal/config"
	"podcastforge/internal/deps"
	"podcastforge/internal/storage"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name     string
	Passed   bool
	Optional bool
	Detail   string
}

// Targets carries the live collaborators that remote checks probe. Nil
// fields skip their check.
type Targets struct {
	LLM     HealthChecker
	Voices  VoiceLister
	Storage storage.Store
}

// RunAll executes every applicable check for cfg.
func RunAll(ctx context.Context, cfg *config.Config, targets Targets) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result
	results = append(results,
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckDirectoryAccess("Temp directory", cfg.Paths.TempDir),
	)
	if cfg.Storage.Backend == config.StorageBackendLocal {
		results = append(results, CheckDirectoryAccess("Object directory", cfg.Storage.LocalDir))
	}
	for _, status := range deps.CheckBinaries(deps.Requirements(cfg)) {
		results = append(results, FromDependency(status))
	}

	if targets.LLM != nil {
		results = append(results, CheckLLM(ctx, "LLM", targets.LLM))
	} else if strings.TrimSpace(cfg.LLM.APIKey) == "" {
		results = append(results, Result{Name: "LLM", Detail: "API key missing"})
	}
	if targets.Voices != nil {
		results = append(results, CheckVoices(ctx, "Text-to-speech", targets.Voices))
	}
	if targets.Storage != nil {
		results = append(results, CheckStorage(ctx, targets.Storage))
	}
	return results
}

// Failed returns the required checks that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed && !r.Optional {
			failed = append(failed, r)
		}
	}
	return failed
}

// FromDependency converts a binary availability status to a Result.
func FromDependency(status deps.Status) Result {
	detail := status.Detail
	if status.Available {
		detail = status.Command + " (found)"
	}
	return Result{
		Name:     status.Name,
		Passed:   status.Available,
		Optional: status.Optional,
		Detail:   detail,
	}
}
