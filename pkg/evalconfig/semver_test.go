package evalconfig

import "testing"

func TestParseSemVer(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"1.5.0", true},
		{"2.0.0", true},
		{"1.5.0-rc1", true},
		{"1.2", false},
		{"1", false},
		{"1.2.3.4", false},
		{"v1.2.3", false},
		{"", false},
		{"1.2.", false},
	}
	for _, c := range cases {
		_, ok := ParseSemVer(c.in)
		if ok != c.want {
			t.Errorf("ParseSemVer(%q) ok=%v, want %v", c.in, ok, c.want)
		}
	}
}

// S5 — semantic-version ordering scenario from the evaluator specification.
func TestSemVerOrderingScenarioS5(t *testing.T) {
	threshold, ok := ParseSemVer("1.5.0")
	if !ok {
		t.Fatal("threshold must parse")
	}

	cases := []struct {
		subject string
		wantGTE bool
	}{
		{"2.0.0", true},
		{"1.2.3", false},
		{"1.5.0-rc1", false}, // prerelease precedes the release it qualifies
	}
	for _, c := range cases {
		sv, ok := ParseSemVer(c.subject)
		if !ok {
			t.Fatalf("subject %q must parse as semver", c.subject)
		}
		got := sv.Compare(threshold) >= 0
		if got != c.wantGTE {
			t.Errorf("%q GTE 1.5.0 = %v, want %v", c.subject, got, c.wantGTE)
		}
	}
}

func TestFourPartVersionCompare(t *testing.T) {
	a, ok := ParseFourPartVersion("1.2.3")
	if !ok {
		t.Fatal("expected 1.2.3 to parse")
	}
	b, ok := ParseFourPartVersion("1.2.3.0")
	if !ok {
		t.Fatal("expected 1.2.3.0 to parse")
	}
	if a.Compare(b) != 0 {
		t.Error("1.2.3 and 1.2.3.0 must compare equal")
	}

	higher, _ := ParseFourPartVersion("1.2.4.0")
	if a.Compare(higher) >= 0 {
		t.Error("1.2.3 must be less than 1.2.4.0")
	}
}

func TestFourPartVersionRejectsMalformed(t *testing.T) {
	malformed := []string{"1.2.3.4.5", "", "1..2", ".1.2", "1.2.", "1.a.3"}
	for _, s := range malformed {
		if _, ok := ParseFourPartVersion(s); ok {
			t.Errorf("expected %q to be rejected", s)
		}
	}
}
