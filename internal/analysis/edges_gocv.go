//go:build gocv

package analysis

import "gocv.io/x/gocv"

// EdgeBackend names the edge detector compiled into this build
const EdgeBackend = "gocv"

// edgeDensity runs OpenCV's Canny on the luma plane. Planes OpenCV cannot
// wrap fall back to the Go detector.
func edgeDensity(p *lumaPlane) float64 {
	if p.w < 3 || p.h < 3 {
		return 0
	}

	src, err := gocv.NewMatFromBytes(p.h, p.w, gocv.MatTypeCV8U, p.pix)
	if err != nil {
		return cannyDensity(p)
	}
	defer src.Close()

	edges := gocv.NewMat()
	defer edges.Close()

	gocv.Canny(src, &edges, float32(cannyLow), float32(cannyHigh))
	return float64(gocv.CountNonZero(edges)) / float64(p.w*p.h)
}
