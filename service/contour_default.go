//go:build !gocv

package service

// NewContourFinder returns the pure Go border follower. Build with -tags gocv
// to use OpenCV instead.
func NewContourFinder() ContourFinder {
	return BorderFollower{}
}
