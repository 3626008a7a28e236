package engine

import (
	"crypto/sha256"
	"encoding/binary"
	"sort"

	"github.com/felixgeelhaar/runeforge/internal/rules"
)

// TieEpsilon is the score distance within which candidates count as tied.
const TieEpsilon = 1e-9

// Ranked is a scored candidate in its final position.
type Ranked struct {
	Name      string          `json:"name"`
	Candidate rules.Candidate `json:"-"`
	Breakdown Breakdown       `json:"breakdown"`
	TieKey    uint64          `json:"tie_key"`
	Tied      bool            `json:"tied,omitempty"`
}

// Score returns the candidate's total score.
func (r Ranked) Score() float64 {
	return r.Breakdown.Total
}

// TieBreakKey derives the secondary ordering key for a candidate: the first
// eight bytes, big-endian, of SHA-256(seed ‖ topic ‖ 0x00 ‖ name) where seed
// is encoded as a big-endian uint64.
func TieBreakKey(seed uint64, topic, name string) uint64 {
	h := sha256.New()
	var s [8]byte
	binary.BigEndian.PutUint64(s[:], seed)
	h.Write(s[:])
	h.Write([]byte(topic))
	h.Write([]byte{0})
	h.Write([]byte(name))
	return binary.BigEndian.Uint64(h.Sum(nil)[:8])
}

// rank orders scored candidates by score descending. Candidates within
// TieEpsilon of their group's leading score are ordered by tie-break key,
// then name. It returns the number of tie groups with two or more members.
// The result never depends on the input order.
func rank(seed uint64, topic string, scored []Ranked) int {
	for i := range scored {
		scored[i].TieKey = TieBreakKey(seed, topic, scored[i].Name)
		scored[i].Tied = false
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score() != scored[j].Score() {
			return scored[i].Score() > scored[j].Score()
		}
		return scored[i].Name < scored[j].Name
	})

	groups := 0
	for start := 0; start < len(scored); {
		end := start + 1
		lead := scored[start].Score()
		for end < len(scored) && lead-scored[end].Score() <= TieEpsilon {
			end++
		}
		if end-start > 1 {
			groups++
			group := scored[start:end]
			sort.SliceStable(group, func(i, j int) bool {
				if group[i].TieKey != group[j].TieKey {
					return group[i].TieKey < group[j].TieKey
				}
				return group[i].Name < group[j].Name
			})
			for i := range group {
				group[i].Tied = true
			}
		}
		start = end
	}
	return groups
}
