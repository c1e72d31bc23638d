// Package scope implements glob-style matching of a required permission
// string against a granted permission set.
package scope

import "path"

// Superuser is the reserved wildcard scope. A granted set containing it
// matches every required scope.
const Superuser = "*"

// Matches reports whether the required scope is satisfied by the
// granted set. A granted entry may contain glob wildcards, matched with
// standard glob semantics against the required string. Matching
// short-circuits on the first satisfying entry. An empty granted set
// never matches.
func Matches(required string, granted []string) bool {
	for _, g := range granted {
		if g == Superuser || g == required {
			return true
		}
		// path.Match only errors on a malformed pattern; a granted
		// entry that is not a valid glob simply never matches.
		if ok, err := path.Match(g, required); err == nil && ok {
			return true
		}
	}
	return false
}

// Union merges scope sets, preserving first-seen order and dropping
// duplicates. Token scope is fixed at issuance as the union of client
// and account scope.
func Union(sets ...[]string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, set := range sets {
		for _, s := range set {
			if _, ok := seen[s]; ok {
				continue
			}
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	return out
}

// MatchesAll reports whether every required scope is satisfied.
func MatchesAll(required []string, granted []string) bool {
	for _, r := range required {
		if !Matches(r, granted) {
			return false
		}
	}
	return true
}
