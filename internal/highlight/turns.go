package highlight

import (
	"regexp"
	"strings"

	"podcastforge/internal/synth"
)

// FromEpisode converts synthesized episode turns.
func FromEpisode(turns []synth.Turn) []Turn {
	out := make([]Turn, 0, len(turns))
	for _, t := range turns {
		if content := strings.TrimSpace(t.Content); content != "" {
			out = append(out, Turn{Speaker: t.SpeakerName, Content: content})
		}
	}
	return out
}

var blankLines = regexp.MustCompile(`\n[ \t]*\n+`)

// FromParagraphs splits text on blank lines, one turn per paragraph.
func FromParagraphs(text string) []Turn {
	parts := blankLines.Split(strings.ReplaceAll(text, "\r\n", "\n"), -1)
	out := make([]Turn, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, Turn{Content: p})
		}
	}
	return out
}
