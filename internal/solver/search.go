package solver

import "strconv"

// Solution is the best reachable value for a puzzle.
type Solution struct {
	Value int    `json:"value"`
	Expr  string `json:"expr"`
	Diff  int    `json:"diff"`
}

type node struct {
	val   int
	size  int
	op    byte
	left  *node
	right *node
}

func leaf(n int) *node {
	return &node{val: n, size: len(strconv.Itoa(n))}
}

func join(op byte, a, b *node, val int) *node {
	return &node{val: val, size: a.size + b.size + 3, op: op, left: a, right: b}
}

func (n *node) String() string {
	if n.op == 0 {
		return strconv.Itoa(n.val)
	}
	return "(" + n.left.String() + string(n.op) + n.right.String() + ")"
}

func leaves(nums []int) []*node {
	out := make([]*node, 0, len(nums))
	for _, n := range nums {
		if n > 0 {
			out = append(out, leaf(n))
		}
	}
	return out
}

// combine returns every positive integer result of a op b, with a >= b.
// identity operations (x*1, x/1) are skipped unless keepIdentity is set.
func combine(a, b *node, keepIdentity bool) []*node {
	out := make([]*node, 0, 4)
	out = append(out, join('+', a, b, a.val+b.val))
	if a.val > b.val {
		out = append(out, join('-', a, b, a.val-b.val))
	}
	if b.val != 1 || keepIdentity {
		out = append(out, join('*', a, b, a.val*b.val))
	}
	if (b.val > 1 || (keepIdentity && b.val == 1)) && a.val%b.val == 0 {
		out = append(out, join('/', a, b, a.val/b.val))
	}
	return out
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

type closestSearch struct {
	target   int
	best     *node
	bestDiff int
}

// Closest explores every reduction order and every intermediate value, returning the value
// nearest to target. Ties prefer the shorter expression. The search stops on an exact hit.
func Closest(nums []int, target int) Solution {
	s := &closestSearch{target: target}
	s.search(leaves(nums))
	if s.best == nil {
		return Solution{Diff: abs(target)}
	}
	return Solution{Value: s.best.val, Expr: s.best.String(), Diff: s.bestDiff}
}

func (s *closestSearch) search(items []*node) bool {
	for _, it := range items {
		diff := abs(it.val - s.target)
		if s.best == nil || diff < s.bestDiff || (diff == s.bestDiff && it.size < s.best.size) {
			s.best = it
			s.bestDiff = diff
		}
	}
	if s.best != nil && s.bestDiff == 0 {
		return true
	}
	if len(items) < 2 {
		return false
	}
	for i := 0; i < len(items); i++ {
		for j := i + 1; j < len(items); j++ {
			a, b := items[i], items[j]
			if a.val < b.val {
				a, b = b, a
			}
			rest := remaining(items, i, j)
			for _, n := range combine(a, b, false) {
				if s.search(append(rest, n)) {
					return true
				}
			}
		}
	}
	return false
}

// Exact looks for an expression that consumes every operand and equals target.
func Exact(nums []int, target int) (string, bool) {
	if len(nums) == 0 {
		return "", false
	}
	items := leaves(nums)
	if len(items) != len(nums) {
		return "", false
	}
	n := exactSearch(items, target)
	if n == nil {
		return "", false
	}
	return n.String(), true
}

func exactSearch(items []*node, target int) *node {
	if len(items) == 1 {
		if items[0].val == target {
			return items[0]
		}
		return nil
	}
	for i := 0; i < len(items); i++ {
		for j := i + 1; j < len(items); j++ {
			a, b := items[i], items[j]
			if a.val < b.val {
				a, b = b, a
			}
			rest := remaining(items, i, j)
			for _, n := range combine(a, b, true) {
				if found := exactSearch(append(rest, n), target); found != nil {
					return found
				}
			}
		}
	}
	return nil
}

func remaining(items []*node, i, j int) []*node {
	rest := make([]*node, 0, len(items)-1)
	for k, it := range items {
		if k != i && k != j {
			rest = append(rest, it)
		}
	}
	return rest
}
