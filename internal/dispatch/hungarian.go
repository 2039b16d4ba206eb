package dispatch

import "math"

// sentinelCost pads a rectangular cost matrix to square; any pair resolved
// against a sentinel column/row is discarded by the caller before commit.
const sentinelCost = math.MaxFloat64 / 4

// solveAssignment finds the minimum-cost one-to-one matching on a square
// cost matrix using the Jonker-Volgenant shortest-augmenting-path variant of
// the Hungarian algorithm. Returns rowToCol, where rowToCol[i] is the column
// assigned to row i. No Go library in this codebase's lineage ships an
// equivalent of scipy's linear_sum_assignment, so this is a from-scratch
// implementation (see the project's design notes for why it has no direct
// upstream grounding).
func solveAssignment(cost [][]float64) []int {
	n := len(cost)
	if n == 0 {
		return nil
	}

	const inf = math.MaxFloat64 / 2

	u := make([]float64, n+1)
	v := make([]float64, n+1)
	p := make([]int, n+1) // p[j] = row assigned to column j (1-indexed), 0 = unassigned
	way := make([]int, n+1)

	for i := 1; i <= n; i++ {
		p[0] = i
		j0 := 0
		minV := make([]float64, n+1)
		used := make([]bool, n+1)
		for j := 0; j <= n; j++ {
			minV[j] = inf
		}

		for {
			used[j0] = true
			i0 := p[j0]
			delta := inf
			j1 := -1
			for j := 1; j <= n; j++ {
				if used[j] {
					continue
				}
				cur := cost[i0-1][j-1] - u[i0] - v[j]
				if cur < minV[j] {
					minV[j] = cur
					way[j] = j0
				}
				if minV[j] < delta {
					delta = minV[j]
					j1 = j
				}
			}
			for j := 0; j <= n; j++ {
				if used[j] {
					u[p[j]] += delta
					v[j] -= delta
				} else {
					minV[j] -= delta
				}
			}
			j0 = j1
			if p[j0] == 0 {
				break
			}
		}

		for j0 != 0 {
			j1 := way[j0]
			p[j0] = p[j1]
			j0 = j1
		}
	}

	rowToCol := make([]int, n)
	for i := range rowToCol {
		rowToCol[i] = -1
	}
	for j := 1; j <= n; j++ {
		if p[j] != 0 {
			rowToCol[p[j]-1] = j - 1
		}
	}
	return rowToCol
}

// padSquare pads a rows x cols cost matrix to square with sentinelCost,
// returning the square matrix and its size.
func padSquare(cost [][]float64) ([][]float64, int) {
	rows := len(cost)
	cols := 0
	if rows > 0 {
		cols = len(cost[0])
	}
	n := rows
	if cols > n {
		n = cols
	}
	square := make([][]float64, n)
	for i := 0; i < n; i++ {
		row := make([]float64, n)
		for j := 0; j < n; j++ {
			switch {
			case i < rows && j < cols:
				row[j] = cost[i][j]
			default:
				row[j] = sentinelCost
			}
		}
		square[i] = row
	}
	return square, n
}
