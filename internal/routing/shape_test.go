package routing

import (
	"strings"
	"testing"
)

func TestShape_HardCapExactLength(t *testing.T) {
	s := Shaper{MaxResponseLength: 1000}
	long := strings.Repeat("a", 1500)

	got := s.Shape("tell me everything about turtles", long)
	want := 1000 + len(TruncationNotice)
	if len(got) != want {
		t.Fatalf("len = %d; want %d", len(got), want)
	}
	if !strings.HasSuffix(got, TruncationNotice) {
		t.Fatalf("missing truncation notice")
	}
}

func TestShape_GreetingCap(t *testing.T) {
	s := Shaper{MaxResponseLength: 4000, SimpleGreetingMaxLength: 200}
	answer := strings.Repeat("b", 300)

	got := s.Shape("hi", answer)
	if len(got) != 203 {
		t.Fatalf("len = %d; want 203", len(got))
	}
	if !strings.HasSuffix(got, "...") {
		t.Fatalf("greeting truncation should end with ellipsis")
	}
}

func TestShape_GreetingCapThenHardCap(t *testing.T) {
	// Greeting cap larger than the hard cap: the hard cap still applies last.
	s := Shaper{MaxResponseLength: 100, SimpleGreetingMaxLength: 200}
	answer := strings.Repeat("c", 300)

	got := s.Shape("hello", answer)
	if len(got) != 100+len(TruncationNotice) {
		t.Fatalf("len = %d; want %d", len(got), 100+len(TruncationNotice))
	}
}

func TestShape_NonGreetingSkipsGreetingCap(t *testing.T) {
	s := Shaper{MaxResponseLength: 4000, SimpleGreetingMaxLength: 200}
	answer := strings.Repeat("d", 300)

	got := s.Shape("what is the weather", answer)
	if got != answer {
		t.Fatalf("non-greeting answer should be untouched")
	}
}

func TestShape_LongQueryIsNotAGreeting(t *testing.T) {
	s := Shaper{MaxResponseLength: 4000, SimpleGreetingMaxLength: 200}
	answer := strings.Repeat("e", 300)

	// Contains "hi" but is 20+ runes long.
	got := s.Shape("hi there, this is a long opener", answer)
	if got != answer {
		t.Fatalf("long query should not trigger the greeting cap")
	}
}

func TestShape_ShortAnswerUntouched(t *testing.T) {
	s := Shaper{MaxResponseLength: 1000, SimpleGreetingMaxLength: 200}
	if got := s.Shape("hey", "short answer"); got != "short answer" {
		t.Fatalf("short answer should be untouched, got %q", got)
	}
}

func TestShape_ZeroCapsDisable(t *testing.T) {
	s := Shaper{}
	long := strings.Repeat("f", 5000)
	if got := s.Shape("hi", long); got != long {
		t.Fatalf("zero caps should disable shaping")
	}
}

func TestIsSimpleGreeting(t *testing.T) {
	cases := map[string]bool{
		"hi":              true,
		"Hello!":          true,
		"hey bot":         true,
		"HOLA":            true,
		"hi!":             true,
		"ok":              false,
		"what time is it": false,
		"this crashed":    false, // "hi" inside "this" is not a greeting
		"yoga class":      false,
		"high scores":     false,
		"hi, how are you doing today friend": false, // too long
	}
	for q, want := range cases {
		if got := isSimpleGreeting(q); got != want {
			t.Errorf("isSimpleGreeting(%q) = %v; want %v", q, got, want)
		}
	}
}
