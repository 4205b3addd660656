package ingest

import "strings"

// NormalizeMessageID reduces an external message identifier to one
// canonical form. Providers inconsistently wrap identifiers in angle
// brackets, so "<abc@host>" and "abc@host" must compare equal.
// Empty input normalizes to the empty string.
func NormalizeMessageID(rawID string) string {
	id := strings.TrimSpace(rawID)
	for {
		trimmed := strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(id, "<"), ">"))
		if trimmed == id {
			return id
		}
		id = trimmed
	}
}

// CandidateParentIDs normalizes the In-Reply-To value and the References
// list into a deduplicated set of possible ancestor identifiers, used
// for reference-chain thread matching.
func CandidateParentIDs(inReplyTo string, references []string) []string {
	seen := make(map[string]struct{}, len(references)+1)
	candidates := make([]string, 0, len(references)+1)

	add := func(raw string) {
		id := NormalizeMessageID(raw)
		if id == "" {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		candidates = append(candidates, id)
	}

	for _, ref := range references {
		add(ref)
	}
	add(inReplyTo)

	return candidates
}

// replyPrefixes are the reply/forward markers stripped from subjects
// before comparison. Matched case-insensitively, repeatedly, so
// "Re: RE: Fwd: Hello" normalizes to "hello".
var replyPrefixes = []string{"re:", "fwd:", "fw:", "aw:", "wg:"}

// NormalizeSubject strips leading reply/forward markers, trims
// whitespace, and lowercases the remainder. May return the empty
// string, in which case subject matching is skipped entirely.
func NormalizeSubject(subject string) string {
	s := strings.TrimSpace(subject)
	for {
		lower := strings.ToLower(s)
		stripped := false
		for _, prefix := range replyPrefixes {
			if strings.HasPrefix(lower, prefix) {
				s = strings.TrimSpace(s[len(prefix):])
				stripped = true
				break
			}
		}
		if !stripped {
			break
		}
	}
	return strings.ToLower(s)
}
