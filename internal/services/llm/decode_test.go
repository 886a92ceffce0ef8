package llm

import "testing"

func TestDecodeLLMJSON(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
		wantErr bool
	}{
		{"plain", `{"title":"A"}`, "A", false},
		{"fenced", "```json\n{\"title\":\"B\"}\n```", "B", false},
		{"prose around", "Sure! Here you go: {\"title\":\"C\"} hope it helps", "C", false},
		{"fence after prose", "Result:\n```\n{\"title\":\"D\"}\n```\nDone.", "D", false},
		{"object suffix", "{\"title\":\"E\"}\nHope this helps!", "E", false},
		{"empty", "   ", "", true},
		{"garbage", "no json here", "", true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var out struct {
				Title string `json:"title"`
			}
			err := DecodeLLMJSON(tc.content, &out)
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeLLMJSON: %v", err)
			}
			if out.Title != tc.want {
				t.Fatalf("got %q, want %q", out.Title, tc.want)
			}
		})
	}
}

func TestExtractJSONPrefersFirstBracket(t *testing.T) {
	if got := ExtractJSON(`here: [{"a":1},{"a":2}] end`); got != `[{"a":1},{"a":2}]` {
		t.Fatalf("unexpected array extraction %q", got)
	}
	if got := ExtractJSON(`x {"segments":[1,2]} y`); got != `{"segments":[1,2]}` {
		t.Fatalf("unexpected object extraction %q", got)
	}
}

func TestExtractJSONBalancesBraces(t *testing.T) {
	content := `Here {"summary":"uses } and { inside","n":{"x":1}} and later {"other":true}`
	want := `{"summary":"uses } and { inside","n":{"x":1}}`
	if got := ExtractJSON(content); got != want {
		t.Fatalf("ExtractJSON = %q, want %q", got, want)
	}
	escaped := `note {"title":"say \"hi\" }"} tail`
	if got := ExtractJSON(escaped); got != `{"title":"say \"hi\" }"}` {
		t.Fatalf("escaped quotes not honored: %q", got)
	}
	if got := ExtractJSON(`oops {"title":"cut`); got != `oops {"title":"cut` {
		t.Fatalf("unbalanced payload should be returned unchanged, got %q", got)
	}
}

func TestExtractJSONTrimsTrailingProse(t *testing.T) {
	if got := ExtractJSON("{\"a\":1}\nHope this helps!"); got != `{"a":1}` {
		t.Fatalf("object suffix not trimmed: %q", got)
	}
	if got := ExtractJSON(`[{"a":1}] Let me know if you need more.`); got != `[{"a":1}]` {
		t.Fatalf("array suffix not trimmed: %q", got)
	}
	if got := ExtractJSON(`{"a":"cut`); got != `{"a":"cut` {
		t.Fatalf("unbalanced leading object should be returned unchanged, got %q", got)
	}
}
