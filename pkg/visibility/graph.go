package visibility

import "sort"

// FindCycle looks for a loop in the source -> target graph formed by the
// conditions. It returns the question ids along the loop, starting and ending
// at the same question, or nil when the graph is acyclic.
func FindCycle(conditions []Condition) []int {
	edges := adjacency(conditions)

	const (
		unvisited = iota
		inProgress
		done
	)
	state := make(map[int]int, len(edges))
	var stack []int
	var cycle []int

	var visit func(node int) bool
	visit = func(node int) bool {
		state[node] = inProgress
		stack = append(stack, node)

		for _, next := range edges[node] {
			switch state[next] {
			case inProgress:
				for i, n := range stack {
					if n == next {
						cycle = append(append([]int{}, stack[i:]...), next)
						break
					}
				}
				return true
			case unvisited:
				if visit(next) {
					return true
				}
			}
		}

		stack = stack[:len(stack)-1]
		state[node] = done
		return false
	}

	for _, node := range sortedNodes(edges) {
		if state[node] == unvisited && visit(node) {
			return cycle
		}
	}

	return nil
}

// WouldCreateCycle reports whether adding candidate to existing introduces a loop.
func WouldCreateCycle(existing []Condition, candidate Condition) bool {
	if candidate.SourceQuestionID == candidate.TargetQuestionID {
		return true
	}

	edges := adjacency(existing)

	// A loop appears iff the candidate's source is reachable from its target.
	seen := map[int]bool{candidate.TargetQuestionID: true}
	queue := []int{candidate.TargetQuestionID}
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]

		for _, next := range edges[node] {
			if next == candidate.SourceQuestionID {
				return true
			}
			if !seen[next] {
				seen[next] = true
				queue = append(queue, next)
			}
		}
	}

	return false
}

func adjacency(conditions []Condition) map[int][]int {
	edges := make(map[int][]int)
	for _, c := range conditions {
		edges[c.SourceQuestionID] = append(edges[c.SourceQuestionID], c.TargetQuestionID)
	}
	for node := range edges {
		sort.Ints(edges[node])
	}
	return edges
}

func sortedNodes(edges map[int][]int) []int {
	nodes := make([]int, 0, len(edges))
	for node := range edges {
		nodes = append(nodes, node)
	}
	sort.Ints(nodes)
	return nodes
}
