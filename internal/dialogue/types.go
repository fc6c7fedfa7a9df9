// Package dialogue turns document segments into a two-speaker podcast
// conversation.
package dialogue

import (
	"fmt"
	"time"
)

// Role identifies one of the two podcast speakers.
type Role string

const (
	// RoleNarrator is the main summarizer; it always opens and closes
	// the show.
	RoleNarrator Role = "narrator"
	// RoleQuestioner asks clarifying questions between narrator turns.
	RoleQuestioner Role = "questioner"
)

// Other returns the opposite speaker.
func (r Role) Other() Role {
	if r == RoleNarrator {
		return RoleQuestioner
	}
	return RoleNarrator
}

// Turn is one speaker utterance. Turns are immutable once emitted; the
// assembler only ever appends to its history.
type Turn struct {
	Ordinal int    `json:"ordinal"`
	Role    Role   `json:"speaker"`
	Text    string `json:"text"`
	Tone    string `json:"tone,omitempty"`
}

// Line is a transcript entry. Offsets from the assembler are estimates;
// the audio stitcher recomputes them from real clip durations.
type Line struct {
	Offset time.Duration
	Role   Role
	Text   string
}

// GenerationError is a transient model-call failure; callers may retry.
type GenerationError struct {
	Segment int
	Err     error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("dialogue generation failed for segment %d: %v", e.Segment, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// MalformedOutputError means the model response could not be parsed into
// any valid turn structure. Not retryable.
type MalformedOutputError struct {
	Segment int
	Raw     string
}

func (e *MalformedOutputError) Error() string {
	return fmt.Sprintf("model output for segment %d is not a parseable dialogue", e.Segment)
}
