// Package selector draws one display mode from a weighted set of choices.
//
// The random source is injected so that callers and tests control it; Select
// calls it exactly once per draw, which keeps selections reproducible under a
// fixed seed.
package selector

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"slices"

	"gopkg.in/yaml.v3"
)

// ErrNoChoices is returned when there is nothing to select from.
var ErrNoChoices = errors.New("selector: no choices")

// Weight is one selectable mode with its relative weight.
type Weight struct {
	Mode   string  `json:"mode"`
	Weight float64 `json:"weight"`
}

// Proportions is an ordered list of weighted modes. Order decides how the
// cumulative distribution is laid out.
type Proportions []Weight

// FromMap builds Proportions from a map, ordering keys lexically since map
// iteration order is not stable.
func FromMap(m map[string]float64) Proportions {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	p := make(Proportions, 0, len(keys))
	for _, k := range keys {
		p = append(p, Weight{Mode: k, Weight: m[k]})
	}
	return p
}

// UnmarshalYAML decodes a mapping of mode to weight, keeping document order.
func (p *Proportions) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("proportions: expected a mapping, got line %d", node.Line)
	}
	out := make(Proportions, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		var w float64
		if err := node.Content[i+1].Decode(&w); err != nil {
			return fmt.Errorf("proportions: weight for %q: %w", node.Content[i].Value, err)
		}
		if math.IsInf(w, 0) || math.IsNaN(w) {
			return fmt.Errorf("proportions: weight for %q is not a finite number", node.Content[i].Value)
		}
		out = append(out, Weight{Mode: node.Content[i].Value, Weight: w})
	}
	*p = out
	return nil
}

// MarshalYAML encodes the proportions as an ordered mapping.
func (p Proportions) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, w := range p {
		var k, v yaml.Node
		if err := k.Encode(w.Mode); err != nil {
			return nil, err
		}
		if err := v.Encode(w.Weight); err != nil {
			return nil, err
		}
		node.Content = append(node.Content, &k, &v)
	}
	return node, nil
}

// Select draws one mode. Entries with a weight <= 0 or a non-finite weight
// are ignored; when no usable weight remains the draw is uniform over every mode. rng must
// return values in [0, 1) and is called exactly once; nil uses math/rand/v2.
func Select(p Proportions, rng func() float64) (string, error) {
	if len(p) == 0 {
		return "", ErrNoChoices
	}
	if rng == nil {
		rng = rand.Float64
	}
	r := rng()

	var total float64
	for _, w := range p {
		if usable(w.Weight) {
			total += w.Weight
		}
	}

	if total == 0 {
		i := int(r * float64(len(p)))
		return p[clamp(i, len(p))].Mode, nil
	}

	var cumulative float64
	last := ""
	for _, w := range p {
		if !usable(w.Weight) {
			continue
		}
		cumulative += w.Weight / total
		last = w.Mode
		if cumulative >= r {
			return w.Mode, nil
		}
	}
	// rounding can leave the final cumulative weight just under r
	return last, nil
}

// SelectMap is Select over a map, ordered as FromMap orders it.
func SelectMap(m map[string]float64, rng func() float64) (string, error) {
	return Select(FromMap(m), rng)
}

func usable(w float64) bool {
	return w > 0 && !math.IsInf(w, 1)
}

func clamp(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
