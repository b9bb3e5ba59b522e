package service

import (
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/samoht625/cursor-eng-ctx/internal/domain"
)

// revertChainAssessment marks a change as a no-net-impact chain link.
const revertChainAssessment = "Part of revert chain - no net impact"

// issueRefSuffix matches a trailing issue/PR reference like " (#42)".
var issueRefSuffix = regexp.MustCompile(`\s*\(#\d+\)$`)

// ExtractOriginalSubject recursively unwraps revert prefixes from a subject
// line and reports whether any prefix was stripped (i.e. the commit is
// itself a revert). Handles nested forms like `Revert "Revert "Add X""`.
//
// Two prefix rules are tried, case-insensitively, until neither matches:
//   - "Revert:" — drop the prefix and trim.
//   - "Revert " — if the remainder is wrapped in double or single quotes,
//     take the substring up to the LAST matching quote (titles may contain
//     nested quotes); an unquoted remainder is taken verbatim. A leading
//     quote with no closing quote does not match at all.
func ExtractOriginalSubject(subject string) (string, bool) {
	current := subject
	isRevert := false

	for {
		if len(current) >= 7 && strings.EqualFold(current[:7], "revert:") {
			current = strings.TrimSpace(current[7:])
			isRevert = true
			continue
		}

		if len(current) >= 7 && strings.EqualFold(current[:7], "revert ") {
			rest := current[7:]

			if strings.HasPrefix(rest, `"`) {
				if last := strings.LastIndex(rest, `"`); last > 0 {
					current = rest[1:last]
					isRevert = true
					continue
				}
				break // unterminated quote: not a revert form
			}

			if strings.HasPrefix(rest, `'`) {
				if last := strings.LastIndex(rest, `'`); last > 0 {
					current = rest[1:last]
					isRevert = true
					continue
				}
				break
			}

			current = rest
			isRevert = true
			continue
		}

		break
	}

	return current, isRevert
}

// NormalizeSubject returns the grouping key for revert-chain detection:
// the fully unwrapped subject with any trailing issue reference stripped,
// plus whether the subject was a revert form.
func NormalizeSubject(subject string) (string, bool) {
	original, isRevert := ExtractOriginalSubject(subject)
	return issueRefSuffix.ReplaceAllString(original, ""), isRevert
}

// chainLink pairs a change with its revert flag inside one subject group.
type chainLink struct {
	change   *domain.ReconstructedChange
	isRevert bool
}

// ResolveRevertChains groups changes by normalized subject and collapses
// each revert/re-apply chain to at most one externally scorable member.
// Every other member is scored 0 in place. Returns all changes, zero-scored
// links included, in group order.
func ResolveRevertChains(changes []*domain.ReconstructedChange) []*domain.ReconstructedChange {
	groups := make(map[string][]chainLink)
	var order []string

	for _, ch := range changes {
		key, isRevert := NormalizeSubject(ch.Subject)
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], chainLink{change: ch, isRevert: isRevert})
	}

	var resolved []*domain.ReconstructedChange

	for _, key := range order {
		links := groups[key]
		if len(links) == 1 {
			resolved = append(resolved, links[0].change)
			continue
		}

		sort.SliceStable(links, func(i, j int) bool {
			return links[i].change.MergeDate.Before(links[j].change.MergeDate)
		})

		// Walk the chain: a revert flips the active state, anything else
		// lands the change. The final active member is the one commit that
		// represents current state; parity alone decides, not wording.
		active := false
		var final *domain.ReconstructedChange
		for _, link := range links {
			if link.isRevert {
				active = !active
			} else {
				active = true
			}
			if active {
				final = link.change
			} else {
				final = nil
			}
		}

		for _, link := range links {
			if link.change == final {
				resolved = append(resolved, link.change)
				continue
			}
			link.change.Scored = true
			link.change.ImpactScore = 0
			link.change.ImpactAssessment = revertChainAssessment
			resolved = append(resolved, link.change)
		}

		finalHash := "none"
		if final != nil {
			finalHash = final.MergeHash
		}
		slog.Debug("revert chain resolved",
			"subject", key, "links", len(links), "final", finalHash)
	}

	return resolved
}
