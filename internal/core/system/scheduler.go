package system

import (
	"errors"
	"fmt"
	"strings"
)

// ErrSchedulingCycle reports contradictory Before/After declarations. It is
// fatal to engine start.
var ErrSchedulingCycle = errors.New("scheduling cycle")

// Schedule is a dispatch order consistent with every declared relation.
type Schedule struct {
	order  []System
	groups [][]System
}

// Order returns the systems in dispatch order.
func (s *Schedule) Order() []System { return s.order }

// Groups splits Order into consecutive layers with no relation between
// members of the same layer. Flattening the layers yields Order.
func (s *Schedule) Groups() [][]System { return s.groups }

// Names returns the dispatch order as system names.
func (s *Schedule) Names() []string {
	out := make([]string, len(s.order))
	for i, sys := range s.order {
		out[i] = sys.Name()
	}
	return out
}

// BuildSchedule sorts systems topologically. An edge A->B exists when A
// declares Before B or B declares After A. Ties are broken by registration
// order, so the result is the same on every run.
func BuildSchedule(systems []System) (*Schedule, error) {
	n := len(systems)
	succ := make([][]int, n)
	indeg := make([]int, n)

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			a, b := systems[i], systems[j]
			ab, ba := a.Ordering(b), b.Ordering(a)
			fwd := ab == Before || ba == After
			back := ab == After || ba == Before
			switch {
			case fwd && back:
				return nil, fmt.Errorf("%w: %s and %s each require running first",
					ErrSchedulingCycle, a.Name(), b.Name())
			case fwd:
				succ[i] = append(succ[i], j)
				indeg[j]++
			case back:
				succ[j] = append(succ[j], i)
				indeg[i]++
			}
		}
	}

	done := make([]bool, n)
	idx := make([]int, 0, n)
	for len(idx) < n {
		next := -1
		for i := 0; i < n; i++ {
			if !done[i] && indeg[i] == 0 {
				next = i
				break
			}
		}
		if next < 0 {
			return nil, cycleError(systems, succ, done)
		}
		done[next] = true
		idx = append(idx, next)
		for _, k := range succ[next] {
			indeg[k]--
		}
	}

	order := make([]System, n)
	for i, k := range idx {
		order[i] = systems[k]
	}
	return &Schedule{order: order, groups: layers(systems, idx, succ)}, nil
}

// layers splits the dispatch order into runs. A run ends before the first
// system that depends on a member of the run.
func layers(systems []System, idx []int, succ [][]int) [][]System {
	var (
		groups [][]System
		run    []int
	)
	dependsOnRun := func(k int) bool {
		for _, m := range run {
			for _, s := range succ[m] {
				if s == k {
					return true
				}
			}
		}
		return false
	}
	for _, k := range idx {
		if dependsOnRun(k) {
			groups = append(groups, nil)
			run = run[:0]
		}
		if len(groups) == 0 {
			groups = append(groups, nil)
		}
		groups[len(groups)-1] = append(groups[len(groups)-1], systems[k])
		run = append(run, k)
	}
	return groups
}

// cycleError walks predecessors through the unscheduled subgraph until a
// node repeats. Every unscheduled node still has an unscheduled
// predecessor, so the walk always closes a loop.
func cycleError(systems []System, succ [][]int, done []bool) error {
	pred := make([][]int, len(systems))
	for i, next := range succ {
		for _, k := range next {
			pred[k] = append(pred[k], i)
		}
	}
	cur := -1
	for i := range systems {
		if !done[i] {
			cur = i
			break
		}
	}
	seen := make(map[int]int)
	var path []int
	for {
		if at, ok := seen[cur]; ok {
			path = path[at:]
			break
		}
		seen[cur] = len(path)
		path = append(path, cur)
		for _, k := range pred[cur] {
			if !done[k] {
				cur = k
				break
			}
		}
	}
	names := make([]string, 0, len(path)+1)
	for i := len(path) - 1; i >= 0; i-- {
		names = append(names, systems[path[i]].Name())
	}
	names = append(names, systems[path[len(path)-1]].Name())
	return fmt.Errorf("%w: %s", ErrSchedulingCycle, strings.Join(names, " -> "))
}
