package aoi

import (
	"fmt"
	"math"
)

// Coord is the type of coordinations of entity position (x, y, z)
type Coord float32

// Vector3 is type of entity position
type Vector3 struct {
	X Coord
	Y Coord
	Z Coord
}

func (p Vector3) String() string {
	return fmt.Sprintf("(%.2f, %.2f, %.2f)", p.X, p.Y, p.Z)
}

// DistanceTo calculates distance between two positions
func (p Vector3) DistanceTo(o Vector3) Coord {
	dx := p.X - o.X
	dy := p.Y - o.Y
	dz := p.Z - o.Z
	return Coord(math.Sqrt(float64(dx*dx + dy*dy + dz*dz)))
}

// Sub calculates Vector3 p - Vector3 o
func (p Vector3) Sub(o Vector3) Vector3 {
	return Vector3{p.X - o.X, p.Y - o.Y, p.Z - o.Z}
}

// Add calculates Vector3 p + Vector3 o
func (p Vector3) Add(o Vector3) Vector3 {
	return Vector3{p.X + o.X, p.Y + o.Y, p.Z + o.Z}
}

// Mul calculates Vector3 p * m
func (p Vector3) Mul(m Coord) Vector3 {
	return Vector3{p.X * m, p.Y * m, p.Z * m}
}

// Circle is a region on the X-Z plane, used by queries and watchers
type Circle struct {
	X      Coord
	Z      Coord
	Radius Coord
}

// NewCircle creates a circle centered at pos with radius r
func NewCircle(pos Vector3, r Coord) Circle {
	return Circle{X: pos.X, Z: pos.Z, Radius: r}
}

func (c Circle) String() string {
	return fmt.Sprintf("Circle<(%.2f, %.2f) r=%.2f>", c.X, c.Z, c.Radius)
}

// Contains tests if pos lies in the circle, boundary included. Height is ignored.
// A circle with a negative or NaN radius contains nothing, matching its empty tile rect.
func (c Circle) Contains(pos Vector3) bool {
	r := float64(c.Radius)
	if !(r >= 0) {
		return false
	}
	// float64 keeps the squares exact for float32 inputs
	dx := float64(pos.X) - float64(c.X)
	dz := float64(pos.Z) - float64(c.Z)
	return dx*dx+dz*dz <= r*r
}

// MoveTo returns the same circle centered at pos
func (c Circle) MoveTo(pos Vector3) Circle {
	c.X, c.Z = pos.X, pos.Z
	return c
}

// TileIndex is the address of one tile in the grid
type TileIndex struct {
	X int
	Z int
}

func (ti TileIndex) String() string {
	return fmt.Sprintf("(%d,%d)", ti.X, ti.Z)
}

// TileRect is a rectangle of tile indexes, bounds included on both axes
type TileRect struct {
	Min TileIndex
	Max TileIndex
}

func (r TileRect) String() string {
	return fmt.Sprintf("[%s-%s]", r.Min, r.Max)
}

// Empty returns true if the rect holds no tile
func (r TileRect) Empty() bool {
	return r.Min.X > r.Max.X || r.Min.Z > r.Max.Z
}

// Contains tests if the tile index is in the rect
func (r TileRect) Contains(ti TileIndex) bool {
	return ti.X >= r.Min.X && ti.X <= r.Max.X && ti.Z >= r.Min.Z && ti.Z <= r.Max.Z
}

// Count returns the number of tiles in the rect
func (r TileRect) Count() int {
	if r.Empty() {
		return 0
	}
	return (r.Max.X - r.Min.X + 1) * (r.Max.Z - r.Min.Z + 1)
}

// Intersect returns the tiles in both rects
func (r TileRect) Intersect(o TileRect) TileRect {
	return TileRect{
		Min: TileIndex{maxInt(r.Min.X, o.Min.X), maxInt(r.Min.Z, o.Min.Z)},
		Max: TileIndex{minInt(r.Max.X, o.Max.X), minInt(r.Max.Z, o.Max.Z)},
	}
}

// ForEach calls f with every tile index in the rect, stopping when f returns false
func (r TileRect) ForEach(f func(ti TileIndex) bool) bool {
	for x := r.Min.X; x <= r.Max.X; x++ {
		for z := r.Min.Z; z <= r.Max.Z; z++ {
			if !f(TileIndex{x, z}) {
				return false
			}
		}
	}
	return true
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
