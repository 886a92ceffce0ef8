package highlight

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"podcastforge/internal/services/llm"
)

// RawSegment is one passage as the model described it.
type RawSegment struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	StartIndex  indexVal `json:"startIndex"`
	EndIndex    indexVal `json:"endIndex"`
	Reason      string   `json:"reason"`
}

// indexVal accepts integers, floats and numeric strings.
type indexVal int

func (v *indexVal) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*v = 0
		return nil
	}
	raw := string(data)
	if unquoted, err := strconv.Unquote(raw); err == nil {
		raw = strings.TrimSpace(unquoted)
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("index %s: %w", string(data), err)
	}
	*v = indexVal(int(f))
	return nil
}

// ParsedModelOutput is either Segments or Failure.
type ParsedModelOutput interface {
	parsedModelOutput()
}

// Segments holds at least one parsed passage.
type Segments []RawSegment

// Failure explains why no passage could be parsed.
type Failure struct {
	Reason string
}

func (Segments) parsedModelOutput() {}
func (Failure) parsedModelOutput()  {}

var segmentListKeys = []string{"segments", "highlights", "items"}

// ParseModelOutput reads a bare array, an object wrapping an array under
// segments, highlights or items, or a single segment object. Code fences and
// surrounding prose are tolerated.
func ParseModelOutput(content string) ParsedModelOutput {
	cleaned := strings.TrimSpace(stripControl(content))
	if cleaned == "" {
		return Failure{Reason: "empty response"}
	}
	payload := strings.TrimSpace(llm.ExtractJSON(cleaned))
	if payload == "" {
		return Failure{Reason: "no json in response"}
	}
	switch payload[0] {
	case '[':
		var list []RawSegment
		if err := json.Unmarshal([]byte(payload), &list); err != nil {
			return Failure{Reason: "decode array: " + err.Error()}
		}
		return nonEmpty(list)
	case '{':
		var fields map[string]json.RawMessage
		if err := json.Unmarshal([]byte(payload), &fields); err != nil {
			return Failure{Reason: "decode object: " + err.Error()}
		}
		for _, key := range segmentListKeys {
			raw, ok := fields[key]
			if !ok {
				continue
			}
			var list []RawSegment
			if err := json.Unmarshal(raw, &list); err != nil {
				return Failure{Reason: fmt.Sprintf("decode %s: %v", key, err)}
			}
			return nonEmpty(list)
		}
		if _, ok := fields["startIndex"]; ok {
			var single RawSegment
			if err := json.Unmarshal([]byte(payload), &single); err != nil {
				return Failure{Reason: "decode segment: " + err.Error()}
			}
			return Segments{single}
		}
		return Failure{Reason: "object has no segments"}
	}
	return Failure{Reason: "response is not json"}
}

func nonEmpty(list []RawSegment) ParsedModelOutput {
	if len(list) == 0 {
		return Failure{Reason: "no segments returned"}
	}
	return Segments(list)
}

// stripControl drops control characters other than tab, newline and
// carriage return, which some models emit inside JSON strings.
func stripControl(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\t' || r == '\n' || r == '\r' {
			return r
		}
		if r < 0x20 || (r >= 0x7f && r <= 0x9f) {
			return -1
		}
		return r
	}, s)
}
