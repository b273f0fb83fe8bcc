package archive

import (
	"sort"
	"strings"
)

// PossibleMedia is the closed vocabulary of media-type tokens a
// subscriber can accept.
var PossibleMedia = []string{"document", "photo"}

// IsPossibleMedia reports whether token is part of the accepted-media
// vocabulary
func IsPossibleMedia(token string) bool {
	for _, m := range PossibleMedia {
		if token == m {
			return true
		}
	}
	return false
}

// ParseAcceptedMedia filters arbitrary user-supplied tokens down to the
// known vocabulary and normalizes them into the persisted form: deduped,
// lexicographically sorted, space-joined. Unknown tokens are dropped
// silently, matching the /accept command's forgiving behavior.
func ParseAcceptedMedia(args []string) string {
	set := make(map[string]bool)
	for _, arg := range args {
		token := strings.ToLower(strings.TrimSpace(arg))
		if IsPossibleMedia(token) {
			set[token] = true
		}
	}

	tokens := make([]string, 0, len(set))
	for token := range set {
		tokens = append(tokens, token)
	}
	sort.Strings(tokens)

	return strings.Join(tokens, " ")
}

// AcceptedMediaSet splits a persisted accepted_media string into a
// membership set
func AcceptedMediaSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, token := range strings.Fields(s) {
		set[token] = true
	}
	return set
}
