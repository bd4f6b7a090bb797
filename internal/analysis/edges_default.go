//go:build !gocv

package analysis

// EdgeBackend names the edge detector compiled into this build
const EdgeBackend = "go"

// edgeDensity returns the fraction of pixels marked as Canny edges
func edgeDensity(p *lumaPlane) float64 {
	return cannyDensity(p)
}
