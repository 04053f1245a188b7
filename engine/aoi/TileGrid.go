package aoi

import (
	"fmt"
	"math"

	"github.com/pkg/errors"
)

// TileGrid maps world positions on the X-Z plane to tile indexes
type TileGrid struct {
	minX, minZ Coord
	maxX, maxZ Coord
	tileWidth  Coord
	width      int // number of tiles along X
	height     int // number of tiles along Z
}

// NewTileGrid creates the grid covering [minX, maxX] x [minZ, maxZ]
func NewTileGrid(minX, minZ, maxX, maxZ Coord, tileWidth Coord) (*TileGrid, error) {
	if !(tileWidth > 0) || math.IsInf(float64(tileWidth), 0) {
		return nil, errors.Wrapf(ErrInvalidShapeBounds, "tile width %v", tileWidth)
	}
	if !(maxX > minX) || !(maxZ > minZ) {
		return nil, errors.Wrapf(ErrInvalidShapeBounds, "extents (%v, %v) - (%v, %v)", minX, minZ, maxX, maxZ)
	}
	width := float64((maxX-minX)/tileWidth) + 1
	height := float64((maxZ-minZ)/tileWidth) + 1
	if width*height > math.MaxInt32 {
		return nil, errors.Wrapf(ErrInvalidShapeBounds, "too many tiles: %.0f x %.0f", width, height)
	}
	return &TileGrid{
		minX:      minX,
		minZ:      minZ,
		maxX:      maxX,
		maxZ:      maxZ,
		tileWidth: tileWidth,
		width:     int(width),
		height:    int(height),
	}, nil
}

func (g *TileGrid) String() string {
	return fmt.Sprintf("TileGrid<%dx%d, tile=%.2f>", g.width, g.height, g.tileWidth)
}

// Width returns the number of tiles along X
func (g *TileGrid) Width() int {
	return g.width
}

// Height returns the number of tiles along Z
func (g *TileGrid) Height() int {
	return g.height
}

// TileWidth returns the side length of one tile
func (g *TileGrid) TileWidth() Coord {
	return g.tileWidth
}

// FullRect returns the rect of all tiles
func (g *TileGrid) FullRect() TileRect {
	return TileRect{Max: TileIndex{g.width - 1, g.height - 1}}
}

// ClampIndex moves ti into the grid
func (g *TileGrid) ClampIndex(ti TileIndex) TileIndex {
	return TileIndex{clampInt(ti.X, g.width), clampInt(ti.Z, g.height)}
}

// PositionToTileIndex returns the tile containing pos, clamped into the grid
func (g *TileGrid) PositionToTileIndex(pos Vector3) TileIndex {
	return TileIndex{
		X: g.axisIndex(pos.X, g.minX, g.width),
		Z: g.axisIndex(pos.Z, g.minZ, g.height),
	}
}

// BoundingCircleToTileRect returns the tiles covering the bounding box of c, clamped into the grid
func (g *TileGrid) BoundingCircleToTileRect(c Circle) TileRect {
	return TileRect{
		Min: TileIndex{
			X: g.axisIndex(c.X-c.Radius, g.minX, g.width),
			Z: g.axisIndex(c.Z-c.Radius, g.minZ, g.height),
		},
		Max: TileIndex{
			X: g.axisIndex(c.X+c.Radius, g.minX, g.width),
			Z: g.axisIndex(c.Z+c.Radius, g.minZ, g.height),
		},
	}
}

func (g *TileGrid) axisIndex(v Coord, min Coord, n int) int {
	local := v - min
	if !(local > 0) { // NaN goes to the first row as well
		return 0
	}
	if local >= g.tileWidth*Coord(n) {
		return n - 1
	}
	return clampInt(int(local/g.tileWidth), n)
}

func clampInt(i int, n int) int {
	if i < 0 {
		return 0
	} else if i >= n {
		return n - 1
	}
	return i
}
