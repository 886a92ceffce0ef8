package analyzer

import (
	"fmt"
	"strings"

	"podcastforge/internal/queue"
)

const (
	titleSystemPrompt = `You write short, engaging podcast episode titles.
Respond with JSON only: {"title": "..."}`

	summarySystemPrompt = `You are an expert at summarizing content for podcast producers.
Produce a clear, structured narrative summary covering the main points and key facts.
Respond with JSON only: {"summary": "..."}`

	scriptSystemPrompt = `You are a podcast script writer. Turn the material into a lively
conversation between two hosts. The script must have an opening, a main discussion,
and a closing. Write each turn as its own paragraph prefixed with "Host 1:" or "Host 2:"
and separate paragraphs with a blank line.
Respond with JSON only: {"podcastScript": "..."}`

	fastPathSystemPrompt = `You analyze online videos for a podcast production pipeline.
You must analyze exactly the video identified in the request. If you cannot access
that specific video, respond with {"videoId": ""}.
Respond with JSON only:
{"videoId": "...", "title": "...", "summary": "...", "podcastScript": "..."}`

	truncationMarker = "\n...(truncated)"
	titleSampleChars = 1000
)

var styleHints = map[queue.Style]string{
	queue.StyleEducational:  "Use an educational tone: explain concepts step by step and define terms.",
	queue.StyleCasual:       "Use a relaxed, casual tone with natural back-and-forth banter.",
	queue.StyleProfessional: "Use a professional, concise tone suited to a business audience.",
}

var modeHints = map[queue.Mode]string{
	queue.ModeQuick:  "Keep it brief: a few short exchanges covering only the headline points.",
	queue.ModeMedium: "Aim for a moderate length that covers the main points with some discussion.",
	queue.ModeDeep:   "Go in depth: explore details, examples and implications.",
}

func styleHint(style queue.Style) string {
	if hint, ok := styleHints[style]; ok {
		return hint
	}
	return styleHints[queue.StyleCasual]
}

func modeHint(mode queue.Mode) string {
	if hint, ok := modeHints[mode]; ok {
		return hint
	}
	return modeHints[queue.ModeMedium]
}

func titlePrompt(text string, maxChars int, lang string) string {
	return fmt.Sprintf("Write a title of at most %d characters in %s for this content:\n\n%s",
		maxChars, lang, sample(text, titleSampleChars))
}

func summaryPrompt(text, lang string) string {
	return fmt.Sprintf("Summarize the following content in %s, including the main arguments and key information.\n\nContent:\n%s",
		lang, text)
}

func scriptPrompt(text, summary string, opts Options, lang string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write a two-host podcast script in %s.\n", lang)
	b.WriteString(styleHint(opts.Style))
	b.WriteByte('\n')
	b.WriteString(modeHint(opts.Mode))
	b.WriteString("\n\nContent:\n")
	b.WriteString(text)
	if summary != "" {
		b.WriteString("\n\nSummary:\n")
		b.WriteString(summary)
	}
	return b.String()
}

func fastPathPrompt(req FastPathRequest, lang string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Video URL: %s\nVideo ID: %s\n\n", req.SourceReference, req.VideoID)
	fmt.Fprintf(&b, "Analyze this specific video and write everything in %s.\n", lang)
	fmt.Fprintf(&b, "The videoId field must be exactly %q and the title field must be the video's real title.\n", req.VideoID)
	b.WriteString("summary: a 200-300 word narrative summary.\n")
	b.WriteString("podcastScript: a two-host script with opening, main discussion and closing, ")
	b.WriteString(`one paragraph per turn prefixed with "Host 1:" or "Host 2:".`)
	b.WriteByte('\n')
	b.WriteString(styleHint(req.Style))
	b.WriteByte('\n')
	b.WriteString(modeHint(req.Mode))
	return b.String()
}

func sample(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}
