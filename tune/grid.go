package tune

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ehoutland/tidymodels-test/pkg/errors"
)

// Params assigns a value to each tuned hyperparameter.
type Params map[string]float64

// Names returns the parameter names in sorted order.
func (p Params) Names() []string {
	names := make([]string, 0, len(p))
	for name := range p {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (p Params) String() string {
	parts := make([]string, 0, len(p))
	for _, name := range p.Names() {
		parts = append(parts, fmt.Sprintf("%s=%g", name, p[name]))
	}
	return strings.Join(parts, ", ")
}

func (p Params) clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Grid is an ordered list of candidates. Candidate indices used throughout
// this package are positions in the grid.
type Grid []Params

// RegularGrid enumerates the Cartesian product of the given values. Names
// are taken in sorted order and the last name varies fastest.
func RegularGrid(values map[string][]float64) (Grid, error) {
	if len(values) == 0 {
		return nil, errors.NewValidationError("grid", "no parameters", 0)
	}
	names := make([]string, 0, len(values))
	for name, vs := range values {
		if len(vs) == 0 {
			return nil, errors.NewValidationError(name, "no values to try", 0)
		}
		names = append(names, name)
	}
	sort.Strings(names)

	grid := Grid{Params{}}
	for _, name := range names {
		next := make(Grid, 0, len(grid)*len(values[name]))
		for _, partial := range grid {
			for _, v := range values[name] {
				p := partial.clone()
				p[name] = v
				next = append(next, p)
			}
		}
		grid = next
	}
	return grid, nil
}

// GridFromList keeps the candidates in the order given.
func GridFromList(candidates ...Params) Grid {
	grid := make(Grid, len(candidates))
	for i, c := range candidates {
		grid[i] = c.clone()
	}
	return grid
}

// names returns the parameter names of the grid, requiring every candidate
// to set the same ones.
func (g Grid) names() ([]string, error) {
	if len(g) == 0 {
		return nil, errors.NewValidationError("grid", "no candidates", 0)
	}
	names := g[0].Names()
	for i, c := range g[1:] {
		if strings.Join(c.Names(), ",") != strings.Join(names, ",") {
			return nil, errors.NewValidationError("grid", fmt.Sprintf("candidate %d sets %v, candidate 0 sets %v", i+1, c.Names(), names), i+1)
		}
	}
	return names, nil
}
