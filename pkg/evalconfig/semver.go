package evalconfig

import (
	"strconv"
	"strings"
)

// SemVer is a parsed semantic version: major.minor.patch with an
// optional dot-separated prerelease identifier list. Build metadata is
// accepted but ignored for comparison, per semver precedence rules.
type SemVer struct {
	Major, Minor, Patch int64
	Prerelease          []string
	HasPrerelease       bool
}

// ParseSemVer parses a strict "MAJOR.MINOR.PATCH[-PRERELEASE][+BUILD]"
// string. It intentionally does not accept the loose forms ("1", "1.2")
// that the four-part-version fallback handles separately.
func ParseSemVer(s string) (SemVer, bool) {
	if build := strings.IndexByte(s, '+'); build >= 0 {
		s = s[:build]
	}
	var prerelease string
	hasPrerelease := false
	if dash := strings.IndexByte(s, '-'); dash >= 0 {
		prerelease = s[dash+1:]
		s = s[:dash]
		hasPrerelease = true
	}
	parts := strings.Split(s, ".")
	if len(parts) != 3 {
		return SemVer{}, false
	}
	nums := make([]int64, 3)
	for i, p := range parts {
		if p == "" {
			return SemVer{}, false
		}
		n, err := strconv.ParseInt(p, 10, 64)
		if err != nil || n < 0 {
			return SemVer{}, false
		}
		nums[i] = n
	}
	sv := SemVer{Major: nums[0], Minor: nums[1], Patch: nums[2]}
	if hasPrerelease {
		if prerelease == "" {
			return SemVer{}, false
		}
		sv.Prerelease = strings.Split(prerelease, ".")
		sv.HasPrerelease = true
	}
	return sv, true
}

// Compare returns -1, 0, or 1 following semver precedence: core
// version numbers compare numerically; a version with a prerelease has
// lower precedence than the same core version without one; prerelease
// identifier lists compare element-wise (numeric identifiers compare
// numerically and are lower than alphanumeric ones, which compare
// lexically), and a shorter list that is otherwise a prefix of a longer
// one has lower precedence.
func (v SemVer) Compare(o SemVer) int {
	if c := compareInt64(v.Major, o.Major); c != 0 {
		return c
	}
	if c := compareInt64(v.Minor, o.Minor); c != 0 {
		return c
	}
	if c := compareInt64(v.Patch, o.Patch); c != 0 {
		return c
	}
	if !v.HasPrerelease && !o.HasPrerelease {
		return 0
	}
	if !v.HasPrerelease && o.HasPrerelease {
		return 1
	}
	if v.HasPrerelease && !o.HasPrerelease {
		return -1
	}
	for i := 0; i < len(v.Prerelease) && i < len(o.Prerelease); i++ {
		if c := comparePrereleaseID(v.Prerelease[i], o.Prerelease[i]); c != 0 {
			return c
		}
	}
	return compareInt64(int64(len(v.Prerelease)), int64(len(o.Prerelease)))
}

func comparePrereleaseID(a, b string) int {
	an, aErr := strconv.ParseInt(a, 10, 64)
	bn, bErr := strconv.ParseInt(b, 10, 64)
	aNumeric := aErr == nil
	bNumeric := bErr == nil
	switch {
	case aNumeric && bNumeric:
		return compareInt64(an, bn)
	case aNumeric && !bNumeric:
		return -1
	case !aNumeric && bNumeric:
		return 1
	default:
		return strings.Compare(a, b)
	}
}

func compareInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// FourPartVersion is the lexicographic fallback comparator for
// dot-separated integer quads, e.g. "1.5.0.0". A version with fewer
// than four components is padded with trailing zeros.
type FourPartVersion struct {
	Parts [4]int64
}

// ParseFourPartVersion accepts one to four dot-separated non-negative
// integer components; anything else (wrong separator, negative,
// non-numeric, more than four components, empty components from
// leading/trailing/double dots) is rejected.
func ParseFourPartVersion(s string) (FourPartVersion, bool) {
	if s == "" {
		return FourPartVersion{}, false
	}
	parts := strings.Split(s, ".")
	if len(parts) == 0 || len(parts) > 4 {
		return FourPartVersion{}, false
	}
	var fpv FourPartVersion
	for i, p := range parts {
		if p == "" {
			return FourPartVersion{}, false
		}
		n, err := strconv.ParseInt(p, 10, 64)
		if err != nil || n < 0 {
			return FourPartVersion{}, false
		}
		fpv.Parts[i] = n
	}
	return fpv, true
}

// Compare performs a lexicographic comparison over the four padded
// components.
func (v FourPartVersion) Compare(o FourPartVersion) int {
	for i := 0; i < 4; i++ {
		if c := compareInt64(v.Parts[i], o.Parts[i]); c != 0 {
			return c
		}
	}
	return 0
}
