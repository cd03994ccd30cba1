package domain

import (
	"cmp"
	"slices"
	"strings"
)

// CompareVersions orders rule versions such as "2018i" < "2019a" < "2019c".
// The leading digits compare numerically, then the suffix by length and text.
func CompareVersions(a, b string) int {
	aNum, aRest := splitVersion(a)
	bNum, bRest := splitVersion(b)
	if c := cmp.Compare(len(aNum), len(bNum)); c != 0 && aNum != "" && bNum != "" {
		return c
	}
	if c := strings.Compare(aNum, bNum); c != 0 {
		return c
	}
	if c := cmp.Compare(len(aRest), len(bRest)); c != 0 {
		return c
	}
	return strings.Compare(aRest, bRest)
}

func splitVersion(v string) (digits, rest string) {
	i := strings.IndexFunc(v, func(r rune) bool { return r < '0' || r > '9' })
	if i < 0 {
		return strings.TrimLeft(v, "0"), ""
	}
	return strings.TrimLeft(v[:i], "0"), v[i:]
}

// SortVersions sorts versions newest first and drops duplicates.
func SortVersions(versions []string) []string {
	out := slices.Clone(versions)
	slices.SortFunc(out, func(a, b string) int { return CompareVersions(b, a) })
	return slices.Compact(out)
}
