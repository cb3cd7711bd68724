// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package hpx

// Neighbour direction indices, ordered as the classic HEALPix library
// emits them. SW/NW/NE/SE cross cell edges; W/N/E/S touch at corners.
const (
	DirSW = iota
	DirW
	DirNW
	DirN
	DirNE
	DirE
	DirSE
	DirS
	nDirs
)

var (
	nbXOffset = [8]int64{-1, -1, 0, 1, 1, 1, 0, -1}
	nbYOffset = [8]int64{0, 1, 1, 1, 0, -1, -1, -1}

	// nbFace[g][f] is the face reached when stepping out of face f in
	// grid direction g (3x3 grid index 4 + dx + 3*dy); -1 where no
	// neighbour exists (cells across the pole gaps).
	nbFace = [9][12]int64{
		{8, 9, 10, 11, -1, -1, -1, -1, 10, 11, 8, 9},    // S
		{5, 6, 7, 4, 8, 9, 10, 11, 9, 10, 11, 8},        // SE
		{-1, -1, -1, -1, 5, 6, 7, 4, -1, -1, -1, -1},    // E
		{4, 5, 6, 7, 11, 8, 9, 10, 11, 8, 9, 10},        // SW
		{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11},          // center
		{1, 2, 3, 0, 0, 1, 2, 3, 5, 6, 7, 4},            // NE
		{-1, -1, -1, -1, 7, 4, 5, 6, -1, -1, -1, -1},    // W
		{3, 0, 1, 2, 3, 0, 1, 2, 4, 5, 6, 7},            // NW
		{2, 3, 0, 1, -1, -1, -1, -1, 0, 1, 2, 3},        // N
	}

	// nbSwap[g][f>>2]: bit 1 flips x, bit 2 flips y, bit 4 swaps x/y
	// when crossing into the neighbour face.
	nbSwap = [9][3]int64{
		{0, 0, 3}, // S
		{0, 0, 6}, // SE
		{0, 0, 0}, // E
		{0, 0, 5}, // SW
		{0, 0, 0}, // center
		{5, 0, 0}, // NE
		{0, 0, 0}, // W
		{6, 0, 0}, // NW
		{3, 0, 0}, // N
	}
)

// Neighbours fills an 8-element array with the NESTED indices of the
// neighbours of pix in direction order [SW, W, NW, N, NE, E, SE, S]; -1
// marks a missing neighbour.
func Neighbours(depth uint8, pix uint64) [8]int64 {
	nside := Nside(depth)
	ix, iy, face := nestToXyf(depth, pix)
	var out [8]int64
	for i := 0; i < nDirs; i++ {
		x := ix + nbXOffset[i]
		y := iy + nbYOffset[i]
		g := 4
		if x < 0 {
			x += nside
			g--
		} else if x >= nside {
			x -= nside
			g++
		}
		if y < 0 {
			y += nside
			g -= 3
		} else if y >= nside {
			y -= nside
			g += 3
		}
		if g == 4 {
			out[i] = int64(xyfToNest(depth, x, y, face))
			continue
		}
		f := nbFace[g][face]
		if f < 0 {
			out[i] = -1
			continue
		}
		b := nbSwap[g][face>>2]
		if b&1 != 0 {
			x = nside - x - 1
		}
		if b&2 != 0 {
			y = nside - y - 1
		}
		if b&4 != 0 {
			x, y = y, x
		}
		out[i] = int64(xyfToNest(depth, x, y, f))
	}
	return out
}

// EdgeNeighbours returns the four edge-sharing neighbours of pix
// (directions SW, NW, NE, SE). Edge neighbours always exist.
func EdgeNeighbours(depth uint8, pix uint64) [4]uint64 {
	nb := Neighbours(depth, pix)
	return [4]uint64{uint64(nb[DirSW]), uint64(nb[DirNW]), uint64(nb[DirNE]), uint64(nb[DirSE])}
}
