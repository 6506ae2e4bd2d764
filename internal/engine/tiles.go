package engine

import "image"

// tile is one padded source region and its placement in the output surface.
//
// src is the padded extraction rect, clamped to frame bounds. The upscaled
// tile output is read starting at (readX, readY) — skipping padding×scale
// pixels on edges that do not touch the frame border — and exactly
// outW×outH pixels are placed at dst. Destinations sit on a non-overlapping
// grid with stride (tileSize − 2·padding)·scale, so every output pixel is
// contributed by exactly one tile.
type tile struct {
	tx, ty       int
	src          image.Rectangle
	dst          image.Point
	readX, readY int
	outW, outH   int

	borderLeft, borderTop     bool
	borderRight, borderBottom bool
}

// tileGrid computes the row-major tile layout for a w×h frame. The caller
// guarantees tileSize > 2·padding and that the frame exceeds the tile size
// on at least one axis (smaller frames take the single-tile path).
func tileGrid(w, h, tileSize, padding, scale int) []tile {
	stride := tileSize - 2*padding
	nx := (w + stride - 1) / stride
	ny := (h + stride - 1) / stride

	tiles := make([]tile, 0, nx*ny)
	for ty := 0; ty < ny; ty++ {
		for tx := 0; tx < nx; tx++ {
			ox := tx*stride - padding
			if ox < 0 {
				ox = 0
			}
			oy := ty*stride - padding
			if oy < 0 {
				oy = 0
			}
			sw := tileSize
			if w-ox < sw {
				sw = w - ox
			}
			sh := tileSize
			if h-oy < sh {
				sh = h - oy
			}

			t := tile{
				tx:           tx,
				ty:           ty,
				src:          image.Rect(ox, oy, ox+sw, oy+sh),
				dst:          image.Point{X: tx * stride * scale, Y: ty * stride * scale},
				borderLeft:   tx == 0,
				borderTop:    ty == 0,
				borderRight:  tx == nx-1,
				borderBottom: ty == ny-1,
			}
			if !t.borderLeft {
				t.readX = padding * scale
			}
			if !t.borderTop {
				t.readY = padding * scale
			}

			// Destination extent is bounded by the grid stride and by the
			// frame edge, never by the padded source rect.
			dw := stride
			if w-tx*stride < dw {
				dw = w - tx*stride
			}
			dh := stride
			if h-ty*stride < dh {
				dh = h - ty*stride
			}
			t.outW = dw * scale
			t.outH = dh * scale
			tiles = append(tiles, t)
		}
	}
	return tiles
}
