package synth

import (
	"regexp"
	"strings"
)

// Turn is one speaker's paragraph in an episode script.
type Turn struct {
	Host        int    `json:"host"`
	SpeakerID   string `json:"speakerId"`
	SpeakerName string `json:"speakerName"`
	Content     string `json:"content"`
}

var (
	paragraphBreak = regexp.MustCompile(`\n[ \t]*\n+`)
	speakerPrefix  = regexp.MustCompile(`^([^:：\n]{1,40})[:：][ \t]*`)
)

var genericHostNames = map[string]int{
	"host 1": 1, "host1": 1, "host a": 1, "主持人1": 1, "主持人a": 1,
	"host 2": 2, "host2": 2, "host b": 2, "主持人2": 2, "主持人b": 2,
}

// SplitTurns splits text on blank lines into speaker turns. A paragraph that
// starts with "<name>:" (or the full-width colon) for either host name or a
// generic "Host 1"/"Host 2" label goes to that host with the label removed;
// every other paragraph alternates by its position. Host is 1 or 2.
func SplitTurns(text, host1Name, host2Name string) []Turn {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	paragraphs := paragraphBreak.Split(text, -1)
	turns := make([]Turn, 0, len(paragraphs))
	index := 0
	for _, paragraph := range paragraphs {
		paragraph = strings.TrimSpace(paragraph)
		if paragraph == "" {
			continue
		}
		host := 1 + index%2
		if match := speakerPrefix.FindStringSubmatch(paragraph); match != nil {
			if labelled := hostForLabel(match[1], host1Name, host2Name); labelled != 0 {
				host = labelled
				paragraph = strings.TrimSpace(strings.TrimLeft(paragraph[len(match[0]):], "*_ "))
			}
		}
		index++
		if paragraph == "" {
			continue
		}
		name := host1Name
		if host == 2 {
			name = host2Name
		}
		turns = append(turns, Turn{Host: host, SpeakerName: name, Content: paragraph})
	}
	return turns
}

func hostForLabel(label, host1Name, host2Name string) int {
	label = strings.TrimSpace(strings.Trim(label, "*_ "))
	switch {
	case label == "":
		return 0
	case host1Name != "" && strings.EqualFold(label, strings.TrimSpace(host1Name)):
		return 1
	case host2Name != "" && strings.EqualFold(label, strings.TrimSpace(host2Name)):
		return 2
	}
	return genericHostNames[strings.ToLower(label)]
}

// ScriptText joins turns back into labelled paragraphs.
func ScriptText(turns []Turn) string {
	var b strings.Builder
	for i, turn := range turns {
		if i > 0 {
			b.WriteString("\n\n")
		}
		if turn.SpeakerName != "" {
			b.WriteString(turn.SpeakerName)
			b.WriteString(": ")
		}
		b.WriteString(turn.Content)
	}
	return b.String()
}
