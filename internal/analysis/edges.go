package analysis

// Canny edge detection over a luma plane: 3x3 Sobel gradients with L1
// magnitude, non-maximum suppression along the quantised gradient
// direction, then hysteresis between cannyLow and cannyHigh.

const (
	dirHorizontal = iota
	dirVertical
	dirDiagonal     // gradient along +x+y
	dirAntiDiagonal // gradient along +x-y
)

// tan(22.5deg) and tan(67.5deg) scaled by 2^15
const (
	tan22 = 13573
	tan67 = 79109
)

// cannyDensity returns the fraction of pixels marked as edges
func cannyDensity(p *lumaPlane) float64 {
	if p.w < 3 || p.h < 3 {
		return 0
	}
	edges := cannyEdges(p, cannyLow, cannyHigh)
	count := 0
	for _, e := range edges {
		if e {
			count++
		}
	}
	return float64(count) / float64(len(edges))
}

func cannyEdges(p *lumaPlane, low, high int) []bool {
	n := p.w * p.h
	mag := make([]int, n)
	dir := make([]uint8, n)

	for y := 0; y < p.h; y++ {
		for x := 0; x < p.w; x++ {
			gx := (p.at(x+1, y-1) + 2*p.at(x+1, y) + p.at(x+1, y+1)) -
				(p.at(x-1, y-1) + 2*p.at(x-1, y) + p.at(x-1, y+1))
			gy := (p.at(x-1, y+1) + 2*p.at(x, y+1) + p.at(x+1, y+1)) -
				(p.at(x-1, y-1) + 2*p.at(x, y-1) + p.at(x+1, y-1))

			i := y*p.w + x
			mag[i] = abs(gx) + abs(gy)
			dir[i] = gradientDirection(gx, gy)
		}
	}

	magAt := func(x, y int) int {
		if x < 0 || y < 0 || x >= p.w || y >= p.h {
			return 0
		}
		return mag[y*p.w+x]
	}

	// 0 none, 1 weak, 2 strong
	state := make([]uint8, n)
	stack := make([]int, 0, n/16)

	for y := 0; y < p.h; y++ {
		for x := 0; x < p.w; x++ {
			i := y*p.w + x
			m := mag[i]
			if m <= low {
				continue
			}

			var a, b int
			switch dir[i] {
			case dirHorizontal:
				a, b = magAt(x-1, y), magAt(x+1, y)
			case dirVertical:
				a, b = magAt(x, y-1), magAt(x, y+1)
			case dirDiagonal:
				a, b = magAt(x-1, y-1), magAt(x+1, y+1)
			default:
				a, b = magAt(x+1, y-1), magAt(x-1, y+1)
			}
			if !isLocalMax(dir[i], m, a, b) {
				continue
			}

			if m > high {
				state[i] = 2
				stack = append(stack, i)
			} else {
				state[i] = 1
			}
		}
	}

	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		x, y := i%p.w, i/p.w
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				nx, ny := x+dx, y+dy
				if nx < 0 || ny < 0 || nx >= p.w || ny >= p.h {
					continue
				}
				j := ny*p.w + nx
				if state[j] == 1 {
					state[j] = 2
					stack = append(stack, j)
				}
			}
		}
	}

	edges := make([]bool, n)
	for i, s := range state {
		edges[i] = s == 2
	}
	return edges
}

// isLocalMax keeps plateaus along the axes on their first pixel only and
// drops diagonal plateaus entirely.
func isLocalMax(dir uint8, m, a, b int) bool {
	if dir == dirDiagonal || dir == dirAntiDiagonal {
		return m > a && m > b
	}
	return m > a && m >= b
}

func gradientDirection(gx, gy int) uint8 {
	ax, ay := abs(gx), abs(gy)
	switch {
	case ay<<15 < ax*tan22:
		return dirHorizontal
	case ay<<15 > ax*tan67:
		return dirVertical
	case (gx < 0) == (gy < 0):
		return dirDiagonal
	default:
		return dirAntiDiagonal
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
