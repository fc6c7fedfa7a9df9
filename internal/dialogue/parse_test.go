package dialogue

import "testing"

func TestParseDialogueStrictJSON(t *testing.T) {
	raw := `{"dialogue": [
		{"speaker": "narrator", "text": "Hello and welcome."},
		{"speaker": "questioner", "text": "What are we covering today?"}
	]}`
	turns := parseDialogue(raw)
	if len(turns) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(turns))
	}
	if turns[0].Role != RoleNarrator || turns[1].Role != RoleQuestioner {
		t.Fatalf("unexpected roles: %v, %v", turns[0].Role, turns[1].Role)
	}
}

func TestParseDialogueWrappedInProseAndFence(t *testing.T) {
	raw := "Sure! Here is the dialogue:\n```json\n" +
		`{"dialogue": [{"speaker": "narrator", "text": "Welcome back."}]}` +
		"\n```\nLet me know if you need more."
	turns := parseDialogue(raw)
	if len(turns) != 1 || turns[0].Text != "Welcome back." {
		t.Fatalf("expected fenced JSON to parse, got %v", turns)
	}
}

func TestParseDialogueRepairsBrokenJSON(t *testing.T) {
	// Trailing comma, a classic model artifact.
	raw := `{"dialogue": [{"speaker": "narrator", "text": "First point."},]}`
	turns := parseDialogue(raw)
	if len(turns) != 1 {
		t.Fatalf("expected repaired JSON to yield 1 turn, got %d", len(turns))
	}
}

func TestParseDialogueLineFallback(t *testing.T) {
	raw := "narrator: So today we look at compilers.\nquestioner: Where do we even start?\nSpeaker 1: At the lexer, of course."
	turns := parseDialogue(raw)
	if len(turns) != 3 {
		t.Fatalf("expected 3 turns, got %d", len(turns))
	}
	if turns[2].Role != RoleNarrator {
		t.Fatalf("expected Speaker 1 to normalize to narrator, got %v", turns[2].Role)
	}
}

func TestParseDialogueLegacySpeakerNames(t *testing.T) {
	raw := `{"dialogue": [
		{"speaker": "Person1", "text": "Main point."},
		{"speaker": "Person2", "text": "Clarifying question?"}
	]}`
	turns := parseDialogue(raw)
	if len(turns) != 2 || turns[0].Role != RoleNarrator || turns[1].Role != RoleQuestioner {
		t.Fatalf("expected Person1/Person2 normalization, got %v", turns)
	}
}

func TestParseDialogueGarbage(t *testing.T) {
	if turns := parseDialogue("I am sorry, I cannot help with that."); turns != nil {
		t.Fatalf("expected nil for garbage, got %v", turns)
	}
}

func TestMergeSameRole(t *testing.T) {
	turns := []Turn{
		{Role: RoleNarrator, Text: "Part one."},
		{Role: RoleNarrator, Text: "Part two."},
		{Role: RoleQuestioner, Text: "A question?"},
	}
	merged := mergeSameRole(turns)
	if len(merged) != 2 {
		t.Fatalf("expected 2 turns after merge, got %d", len(merged))
	}
	if merged[0].Text != "Part one. Part two." {
		t.Fatalf("unexpected merged text: %q", merged[0].Text)
	}
}

func TestForceAlternate(t *testing.T) {
	turns := []Turn{
		{Role: RoleNarrator, Text: "a"},
		{Role: RoleNarrator, Text: "b"},
		{Role: RoleNarrator, Text: "c"},
	}
	fixed := forceAlternate(turns, RoleQuestioner)
	if !alternates(fixed, RoleQuestioner) {
		t.Fatalf("expected forced alternation starting with questioner")
	}
	if fixed[0].Text != "a" || fixed[2].Text != "c" {
		t.Fatalf("text order must be preserved")
	}
}

func TestAlternates(t *testing.T) {
	good := []Turn{{Role: RoleNarrator}, {Role: RoleQuestioner}, {Role: RoleNarrator}}
	if !alternates(good, RoleNarrator) {
		t.Fatal("expected alternating sequence to pass")
	}
	if alternates(good, RoleQuestioner) {
		t.Fatal("expected wrong starting role to fail")
	}
	bad := []Turn{{Role: RoleNarrator}, {Role: RoleNarrator}}
	if alternates(bad, RoleNarrator) {
		t.Fatal("expected repeated role to fail")
	}
}
