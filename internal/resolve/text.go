package resolve

import (
	"context"
	"strings"

	"podcastforge/internal/progress"
	"podcastforge/internal/services"
)

// Text passes raw submitted text through.
type Text struct{}

// Resolve implements Resolver.
func (Text) Resolve(_ context.Context, sourceReference string, _ progress.Reporter) (Content, error) {
	text := strings.TrimSpace(sourceReference)
	if text == "" {
		return Content{}, services.Wrap(services.ErrInvalidInput, "analyzing", "resolve text", "text is empty", nil)
	}
	return Content{Text: text}, nil
}
