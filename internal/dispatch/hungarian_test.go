package dispatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSolveAssignmentMinimizesTotalCost(t *testing.T) {
	cost := [][]float64{
		{4, 1},
		{2, 3},
	}
	square, _ := padSquare(cost)
	rowToCol := solveAssignment(square)

	total := 0.0
	for i, j := range rowToCol {
		if j >= 0 && j < len(cost[0]) {
			total += cost[i][j]
		}
	}
	// optimal assignment: row0->col1(1), row1->col0(2) = 3, beats row0->col0+row1->col1=7
	assert.Equal(t, 3.0, total)
	assert.Equal(t, 1, rowToCol[0])
	assert.Equal(t, 0, rowToCol[1])
}

func TestPadSquareDiscardsSentinelPairs(t *testing.T) {
	cost := [][]float64{
		{1, 2, 3},
	}
	square, n := padSquare(cost)
	assert.Equal(t, 3, n)
	rowToCol := solveAssignment(square)
	assert.Equal(t, 0, rowToCol[0]) // cheapest real column
	for i := 1; i < n; i++ {
		// padded rows should land on sentinel columns, never column 0
		assert.NotEqual(t, 0, rowToCol[i])
	}
}
