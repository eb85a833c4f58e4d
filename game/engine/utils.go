package engine

import "math"

// ManhattanDistance calculates the Manhattan distance between two coordinates
func ManhattanDistance(from, to Coordinate) int {
	dr := from.Row - to.Row
	if dr < 0 {
		dr = -dr
	}
	dc := from.Col - to.Col
	if dc < 0 {
		dc = -dc
	}
	return dr + dc
}

// EuclideanDistance calculates the straight-line distance between two coordinates
func EuclideanDistance(from, to Coordinate) float64 {
	dr := float64(from.Row - to.Row)
	dc := float64(from.Col - to.Col)
	return math.Sqrt(dr*dr + dc*dc)
}

// CountTileType counts the discovered tiles of a specific type on the grid
func CountTileType(g GridView, tileType TileType) int {
	count := 0
	size := g.Size()
	for r := 0; r < size; r++ {
		for c := 0; c < size; c++ {
			if t := g.TileAt(Coordinate{Row: r, Col: c}); t != nil && t.Type == tileType {
				count++
			}
		}
	}
	return count
}

// FindTiles returns the coordinates of every discovered tile matching the
// given type and color, in row-major order. A None color matches any color.
func FindTiles(g GridView, tileType TileType, color Color) []Coordinate {
	var found []Coordinate
	size := g.Size()
	for r := 0; r < size; r++ {
		for c := 0; c < size; c++ {
			at := Coordinate{Row: r, Col: c}
			t := g.TileAt(at)
			if t == nil || t.Type != tileType {
				continue
			}
			if color != None && t.Color != color {
				continue
			}
			found = append(found, at)
		}
	}
	return found
}
