package analyzer

import (
	"regexp"
	"strconv"
	"strings"
	"sync"
)

var (
	fieldPatternsMu sync.Mutex
	fieldPatterns   = map[string]*regexp.Regexp{}
)

func fieldPattern(name string) *regexp.Regexp {
	fieldPatternsMu.Lock()
	defer fieldPatternsMu.Unlock()
	if re, ok := fieldPatterns[name]; ok {
		return re
	}
	re := regexp.MustCompile(`(?s)"` + regexp.QuoteMeta(name) + `"\s*:\s*"((?:[^"\\]|\\.)*)"`)
	fieldPatterns[name] = re
	return re
}

// extractField pulls the first non-empty string value for any of names out
// of content that failed to decode as JSON, typically because the model
// truncated the payload or left a trailing comma.
func extractField(content string, names ...string) string {
	for _, name := range names {
		match := fieldPattern(name).FindStringSubmatch(content)
		if len(match) < 2 {
			continue
		}
		if value := strings.TrimSpace(unescapeJSONString(match[1])); value != "" {
			return value
		}
	}
	return ""
}

var jsonEscapes = strings.NewReplacer(`\n`, "\n", `\t`, "\t", `\r`, "\r", `\"`, `"`, `\/`, "/", `\\`, `\`)

func unescapeJSONString(raw string) string {
	if unquoted, err := strconv.Unquote(`"` + raw + `"`); err == nil {
		return unquoted
	}
	return jsonEscapes.Replace(raw)
}
