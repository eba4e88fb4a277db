// Package server provides the periodicity analysis used by the acceptance
// filter to detect messages that are repetitions of a shorter pattern.
package server

// minPeriod returns the smallest positive d such that every rune of s equals
// the rune d positions earlier, i.e. the length of the shortest pattern whose
// repetition reproduces s. A string with no shorter period returns its own
// length; the empty string returns 0.
//
// The computation keeps a set of candidate delays. Each position eliminates
// the candidates whose required equality fails there and introduces a new
// candidate one longer than the prefix seen so far. Worst case O(n^2), which
// is fine at chat-message scale.
func minPeriod(s string) int {
	runes := []rune(s)
	if len(runes) == 0 {
		return 0
	}

	// candidates holds surviving delays in increasing order; a delay d
	// survives position j only if runes[j] == runes[j-d].
	candidates := make([]int, 0, len(runes))
	for j, r := range runes {
		kept := candidates[:0]
		for _, d := range candidates {
			if runes[j-d] == r {
				kept = append(kept, d)
			}
		}
		candidates = append(kept, j+1)
	}

	return candidates[0]
}
