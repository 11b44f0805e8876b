package analysis

// levenshtein computes the classic single-character-edit distance between
// a and b. No edit-distance library appears among the retrieved examples
// (the few hits are unrelated diff/completion tooling, not a reusable
// distance function), so this is hand-rolled rather than imported, per
// DESIGN.md's stdlib-fallback note for this one helper.
func levenshtein(a, b string) int {
	if a == b {
		return 0
	}

	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}

	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	cur := make([]int, len(rb)+1)

	for i := 1; i <= len(ra); i++ {
		cur[0] = i

		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}

			del := prev[j] + 1
			ins := cur[j-1] + 1
			sub := prev[j-1] + cost

			cur[j] = minInt(del, minInt(ins, sub))
		}

		prev, cur = cur, prev
	}

	return prev[len(rb)]
}

func minInt(a, b int) int {
	if a < b {
		return a
	}

	return b
}

// nearestName returns the candidate closest to target by edit distance,
// and that distance, for "unknown command/flag, did you mean...?"
// diagnostics. Returns dist=-1 if candidates is empty.
func nearestName(target string, candidates []string) (string, int) {
	best := ""
	bestDist := -1

	for _, c := range candidates {
		d := levenshtein(target, c)
		if bestDist == -1 || d < bestDist {
			best, bestDist = c, d
		}
	}

	return best, bestDist
}
