package tool

import "github.com/ehrlich-b/multipixel/internal/pixel"

// FloodFillMaxDistance is FLOODFILL_MAX_DISTANCE (SPEC_FULL.md §6).
const FloodFillMaxDistance = 300

// Fill performs a 4-connected flood fill from seed, limited to Manhattan
// distance FloodFillMaxDistance. It paints only pixels whose current color
// equals the seed's original color, and refuses to run at all if that color
// already equals the tool color (a no-op fill).
func Fill(cache ChunkCache, seed pixel.Pos, color pixel.RGB) {
	target := cache.GetPixel(seed.X, seed.Y)
	if target == color {
		return
	}

	visited := make(map[pixel.Pos]bool)
	queue := []pixel.Pos{seed}
	visited[seed] = true

	for len(queue) > 0 {
		p := queue[0]
		queue = queue[1:]

		cache.SetPixel(p.X, p.Y, color)

		for _, n := range neighbors4(p) {
			if visited[n] {
				continue
			}
			if pixel.ManhattanDistance(seed, n) > FloodFillMaxDistance {
				continue
			}
			if cache.GetPixel(n.X, n.Y) != target {
				continue
			}
			visited[n] = true
			queue = append(queue, n)
		}
	}
}

func neighbors4(p pixel.Pos) [4]pixel.Pos {
	return [4]pixel.Pos{
		{X: p.X + 1, Y: p.Y},
		{X: p.X - 1, Y: p.Y},
		{X: p.X, Y: p.Y + 1},
		{X: p.X, Y: p.Y - 1},
	}
}
