package dialogue

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

type wireTurn struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
}

type wireDialogue struct {
	Dialogue []wireTurn `json:"dialogue"`
}

var lineTurnRe = regexp.MustCompile(`(?i)^(narrator|questioner|person\s*[12]|speaker\s*[12])\s*[:\-]\s*(.+)$`)

// parseDialogue decodes a model response into turns. It tries strict
// JSON first, then a jsonrepair pass for the usual trailing-comma and
// quoting damage, then falls back to line-by-line "speaker: text"
// matching. Returns nil when nothing resembles a dialogue.
func parseDialogue(raw string) []Turn {
	if turns := parseJSONDialogue(raw); len(turns) > 0 {
		return turns
	}
	return parseLineDialogue(raw)
}

func parseJSONDialogue(raw string) []Turn {
	payload := extractJSONObject(raw)
	if payload == "" {
		return nil
	}
	var wire wireDialogue
	if err := json.Unmarshal([]byte(payload), &wire); err != nil {
		fixed, repairErr := jsonrepair.JSONRepair(payload)
		if repairErr != nil {
			return nil
		}
		if err := json.Unmarshal([]byte(fixed), &wire); err != nil {
			return nil
		}
	}
	var turns []Turn
	for _, wt := range wire.Dialogue {
		role, ok := normalizeRole(wt.Speaker)
		text := strings.TrimSpace(wt.Text)
		if !ok || text == "" {
			continue
		}
		turns = append(turns, Turn{Role: role, Text: text})
	}
	return turns
}

func parseLineDialogue(raw string) []Turn {
	var turns []Turn
	for _, line := range strings.Split(raw, "\n") {
		m := lineTurnRe.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		role, ok := normalizeRole(m[1])
		if !ok {
			continue
		}
		turns = append(turns, Turn{Role: role, Text: strings.TrimSpace(m[2])})
	}
	return turns
}

// extractJSONObject cuts the outermost {...} out of a response that may
// be wrapped in prose or a markdown code fence.
func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return ""
	}
	return raw[start : end+1]
}

func normalizeRole(speaker string) (Role, bool) {
	s := strings.ToLower(strings.TrimSpace(speaker))
	s = strings.ReplaceAll(s, " ", "")
	switch s {
	case "narrator", "person1", "speaker1":
		return RoleNarrator, true
	case "questioner", "person2", "speaker2":
		return RoleQuestioner, true
	}
	return "", false
}

// mergeSameRole collapses consecutive same-role turns into one.
func mergeSameRole(turns []Turn) []Turn {
	var out []Turn
	for _, t := range turns {
		if n := len(out); n > 0 && out[n-1].Role == t.Role {
			out[n-1].Text = out[n-1].Text + " " + t.Text
			continue
		}
		out = append(out, t)
	}
	return out
}

// forceAlternate reassigns roles alternately starting from want,
// preserving text order. Last-resort normalization when the model keeps
// breaking the alternation contract.
func forceAlternate(turns []Turn, want Role) []Turn {
	out := make([]Turn, len(turns))
	for i, t := range turns {
		out[i] = Turn{Role: want, Text: t.Text, Tone: t.Tone}
		want = want.Other()
	}
	return out
}

// alternates reports whether turns alternate roles internally and start
// with want.
func alternates(turns []Turn, want Role) bool {
	for _, t := range turns {
		if t.Role != want {
			return false
		}
		want = want.Other()
	}
	return true
}
