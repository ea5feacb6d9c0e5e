package matching

import (
	"errors"
	"fmt"
	"math"
)

// ErrUnknownStrategy is returned for an unsupported strategy name
var ErrUnknownStrategy = errors.New("unknown matching strategy")

// Strategy names
const (
	StrategyGreedy  = "greedy"
	StrategyOptimal = "optimal"
)

// ScoreFunc scores master i against child j
type ScoreFunc func(master, child int) float64

// EmitFunc receives the decision for one child. master is -1 when the child
// stays unmatched.
type EmitFunc func(child, master int, score float64)

// Strategy decides which master, if any, each child is paired with. Every
// child is emitted exactly once and no master is emitted twice.
type Strategy interface {
	Name() string
	Assign(masters, children int, score ScoreFunc, threshold float64, emit EmitFunc)
}

// StrategyByName resolves a configured strategy; empty means greedy
func StrategyByName(name string) (Strategy, error) {
	switch name {
	case "", StrategyGreedy:
		return Greedy{}, nil
	case StrategyOptimal:
		return Optimal{}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownStrategy, name)
	}
}

// Greedy walks children in input order and gives each the best-scoring
// master not yet taken. Results depend on child order. Ties keep the master
// seen first.
type Greedy struct{}

func (Greedy) Name() string { return StrategyGreedy }

func (Greedy) Assign(masters, children int, score ScoreFunc, threshold float64, emit EmitFunc) {
	consumed := make([]bool, masters)
	for c := 0; c < children; c++ {
		best, bestScore := -1, 0.0
		for m := 0; m < masters; m++ {
			if consumed[m] {
				continue
			}
			s := score(m, c)
			if s >= threshold && s > bestScore {
				best, bestScore = m, s
			}
		}
		if best >= 0 {
			consumed[best] = true
		}
		emit(c, best, bestScore)
	}
}

// Optimal maximises the total score of all pairs above threshold with the
// Hungarian algorithm. Children are emitted in input order once solved.
type Optimal struct{}

func (Optimal) Name() string { return StrategyOptimal }

func (Optimal) Assign(masters, children int, score ScoreFunc, threshold float64, emit EmitFunc) {
	scores := make([][]float64, children)
	for c := range scores {
		scores[c] = make([]float64, masters)
		for m := 0; m < masters; m++ {
			scores[c][m] = score(m, c)
		}
	}

	childToMaster := make([]int, children)
	for c := range childToMaster {
		childToMaster[c] = -1
	}

	if masters > 0 && children > 0 {
		transpose := children > masters
		rows, cols := children, masters
		if transpose {
			rows, cols = masters, children
		}
		cost := make([][]float64, rows)
		for r := range cost {
			cost[r] = make([]float64, cols)
			for k := range cost[r] {
				c, m := r, k
				if transpose {
					c, m = k, r
				}
				if s := scores[c][m]; s >= threshold {
					cost[r][k] = -s
				}
			}
		}
		for r, k := range hungarian(cost) {
			if k < 0 {
				continue
			}
			c, m := r, k
			if transpose {
				c, m = k, r
			}
			if scores[c][m] >= threshold {
				childToMaster[c] = m
			}
		}
	}

	for c, m := range childToMaster {
		if m < 0 {
			emit(c, -1, 0)
			continue
		}
		emit(c, m, scores[c][m])
	}
}

// hungarian solves the rectangular assignment problem minimising total cost
// for an n×m matrix with n <= m. It returns the column assigned to each row.
func hungarian(cost [][]float64) []int {
	n := len(cost)
	if n == 0 {
		return nil
	}
	m := len(cost[0])

	inf := math.Inf(1)
	u := make([]float64, n+1)
	v := make([]float64, m+1)
	p := make([]int, m+1)
	way := make([]int, m+1)

	for i := 1; i <= n; i++ {
		p[0] = i
		j0 := 0
		minv := make([]float64, m+1)
		used := make([]bool, m+1)
		for j := range minv {
			minv[j] = inf
		}
		for {
			used[j0] = true
			i0 := p[j0]
			delta := inf
			j1 := 0
			for j := 1; j <= m; j++ {
				if used[j] {
					continue
				}
				cur := cost[i0-1][j-1] - u[i0] - v[j]
				if cur < minv[j] {
					minv[j] = cur
					way[j] = j0
				}
				if minv[j] < delta {
					delta = minv[j]
					j1 = j
				}
			}
			for j := 0; j <= m; j++ {
				if used[j] {
					u[p[j]] += delta
					v[j] -= delta
				} else {
					minv[j] -= delta
				}
			}
			j0 = j1
			if p[j0] == 0 {
				break
			}
		}
		for {
			j1 := way[j0]
			p[j0] = p[j1]
			j0 = j1
			if j0 == 0 {
				break
			}
		}
	}

	assignment := make([]int, n)
	for i := range assignment {
		assignment[i] = -1
	}
	for j := 1; j <= m; j++ {
		if p[j] != 0 {
			assignment[p[j]-1] = j - 1
		}
	}
	return assignment
}
