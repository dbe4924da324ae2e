package instagram

import (
	"math"
	"reflect"
	"testing"
)

func TestParseTemplatesRoundTrip(t *testing.T) {
	templates := []string{"Thanks {{username}}!", "Check your DMs", "Link in bio"}

	raw := SerializeTemplates(templates)
	parsed := ParseTemplates(raw)

	if !reflect.DeepEqual(parsed, templates) {
		t.Fatalf("round trip mismatch: got %v, want %v", parsed, templates)
	}
}

func TestSerializeTemplatesDropsBlanks(t *testing.T) {
	raw := SerializeTemplates([]string{"keep", "  ", "", "also keep"})
	parsed := ParseTemplates(raw)

	want := []string{"keep", "also keep"}
	if !reflect.DeepEqual(parsed, want) {
		t.Fatalf("got %v, want %v", parsed, want)
	}
}

func TestParseTemplatesMalformed(t *testing.T) {
	cases := []string{"", "not json", "42", `{"a":1}`, "   "}
	for _, raw := range cases {
		if got := ParseTemplates(raw); len(got) != 0 {
			t.Errorf("ParseTemplates(%q) = %v, want empty", raw, got)
		}
	}
}

func TestParseTemplatesFiltersBlankEntries(t *testing.T) {
	got := ParseTemplates(`["a", "  ", "", "b"]`)
	want := []string{"a", "b"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestParseTemplatesKeepsStringsFromMixedArray(t *testing.T) {
	got := ParseTemplates(`[1, "a", null, true, "b"]`)
	want := []string{"a", "b"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestSelectTemplateRoundRobin(t *testing.T) {
	templates := []string{"A", "B", "C"}

	cases := []struct {
		index int
		want  string
	}{
		{0, "A"},
		{1, "B"},
		{2, "C"},
		{3, "A"},
		{4, "B"},
		{-1, "C"}, // Euclidean wrap: ((-1 % 3) + 3) % 3 == 2
		{-3, "A"},
		{math.MinInt, "B"}, // negating this index overflows; modulo must stay in bounds
	}
	for _, tc := range cases {
		if got := SelectTemplate(templates, tc.index); got != tc.want {
			t.Errorf("SelectTemplate(index=%d) = %q, want %q", tc.index, got, tc.want)
		}
	}

	if got := SelectTemplate(nil, 5); got != "" {
		t.Errorf("SelectTemplate on empty list = %q, want empty", got)
	}
}

func TestInterpolateTemplate(t *testing.T) {
	vars := TemplateVariables{Username: "alice", Keyword: "boom", Comment: "so boom"}

	got := InterpolateTemplate("Hi {{username}}, you said {{keyword}}", vars)
	if got != "Hi alice, you said boom" {
		t.Fatalf("got %q", got)
	}

	// Unknown placeholders survive verbatim so template typos stay
	// diagnosable
	got = InterpolateTemplate("Hi {{usrname}}", vars)
	if got != "Hi {{usrname}}" {
		t.Fatalf("unknown placeholder: got %q", got)
	}

	// Unset variables also stay verbatim
	got = InterpolateTemplate("Hi {{username}}", TemplateVariables{})
	if got != "Hi {{username}}" {
		t.Fatalf("unset variable: got %q", got)
	}
}

func TestValidateTemplates(t *testing.T) {
	valid := []interface{}{"a", "b"}
	if !ValidateTemplates(valid) {
		t.Error("expected valid list to pass")
	}

	cases := []interface{}{
		"not a list",
		42,
		[]interface{}{"a", ""},
		[]interface{}{"a", "   "},
		[]interface{}{"a", 7},
	}
	for _, c := range cases {
		if ValidateTemplates(c) {
			t.Errorf("ValidateTemplates(%v) = true, want false", c)
		}
	}
}

func TestMatchKeywordWholeWord(t *testing.T) {
	if got := MatchKeyword("I love boomerangs", "boom"); got != "" {
		t.Errorf("substring matched: got %q", got)
	}
	if got := MatchKeyword("that was a boom", "boom"); got != "boom" {
		t.Errorf("got %q, want boom", got)
	}
	if got := MatchKeyword("BOOM!", "boom"); got != "boom" {
		t.Errorf("case-insensitive match failed: got %q", got)
	}
}

func TestMatchKeywordOrderAndTrimming(t *testing.T) {
	// First keyword in stored order wins
	if got := MatchKeyword("price and link please", " link , price "); got != "link" {
		t.Errorf("got %q, want link", got)
	}

	if got := MatchKeyword("anything", ""); got != "" {
		t.Errorf("empty keyword list: got %q", got)
	}
	if got := MatchKeyword("anything", " , ,, "); got != "" {
		t.Errorf("blank keyword entries: got %q", got)
	}
	if got := MatchKeyword("no match here", "absent"); got != "" {
		t.Errorf("got %q, want none", got)
	}
}

func TestMatchKeywordEscapesRegexMeta(t *testing.T) {
	// Metacharacters in keywords must match literally, not as regex
	if got := MatchKeyword("use a.b here", "a.b"); got != "a.b" {
		t.Errorf("got %q, want a.b", got)
	}
	if got := MatchKeyword("aXb", "a.b"); got != "" {
		t.Errorf("dot matched as wildcard: got %q", got)
	}
}
