package scanner

import (
	"sort"
	"strings"

	"github.com/calderwood/hoshi/internal/grammar"
)

// minimize reduces d to an equivalent DFA with the fewest states, via
// partition refinement (spec §4.6). States accepting different terminals (or
// one accepting, one not) start in different partitions and can never
// merge, so minimization never changes which terminal a given input
// resolves to.
func minimize(d *dfa) *dfa {
	bounds := globalBoundaries(d)

	group := make([]int, len(d.states))
	groupKey := map[string]int{}
	for i, st := range d.states {
		key := acceptKey(st.accepts)
		g, ok := groupKey[key]
		if !ok {
			g = len(groupKey)
			groupKey[key] = g
		}
		group[i] = g
	}

	for {
		sigOf := make([]string, len(d.states))
		for i, st := range d.states {
			sigOf[i] = signature(st, bounds, group)
		}
		nextGroup := make([]int, len(d.states))
		seen := map[string]int{}
		changed := false
		// Re-partition within each existing group by signature, preserving
		// group separation established by prior rounds.
		composite := make([]string, len(d.states))
		for i := range d.states {
			composite[i] = itoa(group[i]) + "#" + sigOf[i]
		}
		for i := range d.states {
			g, ok := seen[composite[i]]
			if !ok {
				g = len(seen)
				seen[composite[i]] = g
			}
			nextGroup[i] = g
			if g != group[i] {
				changed = true
			}
		}
		group = nextGroup
		if !changed {
			break
		}
	}

	numGroups := 0
	for _, g := range group {
		if g+1 > numGroups {
			numGroups = g + 1
		}
	}

	out := &dfa{states: make([]*dfaState, numGroups)}
	built := make([]bool, numGroups)
	for i, st := range d.states {
		g := group[i]
		if built[g] {
			continue
		}
		built[g] = true
		out.states[g] = &dfaState{accepts: st.accepts}
	}
	out.start = group[d.start]

	for i, st := range d.states {
		g := group[i]
		if out.states[g].trans != nil || len(st.trans) == 0 {
			continue // transitions for this group already populated from an earlier representative
		}
		out.states[g].trans = coalesce(transitionsByInterval(st, bounds, group))
	}
	return out
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// acceptKey encodes a dfaState's full, precedence-ordered accept set as a
// partition key: two states only start in the same partition if their
// accept cascades (spec §4.6(iv)) would emit byte-for-byte identical code.
func acceptKey(accepts []*grammar.Symbol) string {
	if len(accepts) == 0 {
		return ""
	}
	names := make([]string, len(accepts))
	for i, a := range accepts {
		names[i] = a.Name
	}
	return "A:" + strings.Join(names, ",")
}

// globalBoundaries returns the sorted rune split points implied by every
// transition of every state, giving a single alphabet partition fine enough
// that no state's transition range is split across two intervals.
func globalBoundaries(d *dfa) []rune {
	pts := map[rune]bool{}
	for _, st := range d.states {
		for _, e := range st.trans {
			pts[e.Lo] = true
			if e.Hi < fullRange.Hi {
				pts[e.Hi+1] = true
			}
		}
	}
	out := make([]rune, 0, len(pts))
	for p := range pts {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// destGroup returns the group of st's transition covering rune r, or -1 if
// st has no transition there.
func destGroup(st *dfaState, r rune, group []int) int {
	for _, e := range st.trans {
		if e.Lo <= r && r <= e.Hi {
			return group[e.to]
		}
	}
	return -1
}

// signature encodes, for each global interval, which group st transitions
// into (or -1), giving two states the same signature iff they currently
// behave identically on every interval.
func signature(st *dfaState, bounds []rune, group []int) string {
	s := make([]byte, 0, len(bounds)*4)
	for i, lo := range bounds {
		_ = i
		g := destGroup(st, lo, group)
		s = append(s, []byte(itoa(g)+",")...)
	}
	return string(s)
}

func transitionsByInterval(st *dfaState, bounds []rune, group []int) []edge {
	var out []edge
	for i, lo := range bounds {
		hi := fullRange.Hi
		if i+1 < len(bounds) {
			hi = bounds[i+1] - 1
		}
		g := destGroup(st, lo, group)
		if g < 0 {
			continue
		}
		out = append(out, edge{runeRange{lo, hi}, g})
	}
	return out
}

// coalesce merges adjacent intervals that share a destination, keeping the
// emitted transition table compact.
func coalesce(in []edge) []edge {
	if len(in) == 0 {
		return nil
	}
	sort.Slice(in, func(i, j int) bool { return in[i].Lo < in[j].Lo })
	out := []edge{in[0]}
	for _, e := range in[1:] {
		last := &out[len(out)-1]
		if e.to == last.to && e.Lo == last.Hi+1 {
			last.Hi = e.Hi
			continue
		}
		out = append(out, e)
	}
	return out
}
