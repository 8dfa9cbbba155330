// Package life implements the B3/S23 Game of Life rule on a toroidal grid
// together with the interchangeable engines that apply it.
package life

import "life-gpu/internal/core"

// transition maps [current state][live neighbor count] to the next state.
// Survival on 2 or 3, birth on exactly 3.
var transition = [2][9]uint8{
	{0, 0, 0, 1, 0, 0, 0, 0, 0},
	{0, 0, 1, 1, 0, 0, 0, 0, 0},
}

// Next returns the next state of a cell given its state and the number of
// live neighbors. Any non-zero state counts as alive.
func Next(state uint8, n int) uint8 {
	if n < 0 || n > 8 {
		return 0
	}
	if state != 0 {
		return transition[1][n]
	}
	return transition[0][n]
}

// CountNeighbors counts live cells among the 8 toroidal neighbors of (x, y).
func CountNeighbors(g core.Grid, cells core.CellState, x, y int) int {
	w, h := g.W, g.H
	n := 0
	for dy := -1; dy <= 1; dy++ {
		ny := (y + dy + h) % h
		row := ny * w
		for dx := -1; dx <= 1; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			nx := (x + dx + w) % w
			if cells[row+nx] != 0 {
				n++
			}
		}
	}
	return n
}

// stepCell computes one output cell. It reads only cur and writes only
// next[y*W+x], which is what makes every engine order-independent.
func stepCell(g core.Grid, cur, next core.CellState, x, y int) {
	idx := y*g.W + x
	next[idx] = Next(cur[idx], CountNeighbors(g, cur, x, y))
}
