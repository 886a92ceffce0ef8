package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskLifecycleCounters(t *testing.T) {
	c := New("test")

	c.TaskSubmitted("text")
	c.TaskSubmitted("text")
	c.TaskStarted()
	c.TaskStarted()
	c.TaskFinished("text", "completed", "")
	c.TaskFinished("text", "failed", "source_fetch_failed")

	assert.Equal(t, 2.0, testutil.ToFloat64(c.tasksSubmitted.WithLabelValues("text")))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.tasksInFlight))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.tasksFinished.WithLabelValues("text", "failed", "source_fetch_failed")))
}

func TestHighlightAndFastPathCounters(t *testing.T) {
	c := New("test")

	c.Highlight(20, "created")
	c.Highlight(40, "skipped")
	c.Highlight(60, "created")
	c.FastPath("rejected")
	c.ModelAttempt("model-a", "error")

	assert.Equal(t, 1.0, testutil.ToFloat64(c.highlights.WithLabelValues("40", "skipped")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.fastPath.WithLabelValues("rejected")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.modelAttempts.WithLabelValues("model-a", "error")))
}

func TestHandlerExposesNamespace(t *testing.T) {
	c := New("")
	c.ObserveStage("analyzing", 2*time.Second)
	c.StoredObject("episode", 1024)

	srv := httptest.NewServer(c.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.True(t, strings.Contains(string(body), "podcastforge_stage_duration_seconds"))
	assert.True(t, strings.Contains(string(body), "podcastforge_stored_object_bytes"))
}

func TestNilCollectorsAreSafe(t *testing.T) {
	var c *Collectors
	c.TaskSubmitted("video")
	c.TaskStarted()
	c.TaskFinished("video", "failed", "internal")
	c.ObserveStage("generating", time.Second)
	c.Highlight(20, "created")
	c.FastPath("accepted")
	c.ModelAttempt("m", "ok")
	c.StoredObject("clip", 1)
	assert.Nil(t, c.Registry())
	assert.NotNil(t, c.Handler())
}
