package dto

import "image"

// DetectionResult is a face bounding box in frame pixel coordinates.
type DetectionResult struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// FromRectangles converts detector output to DetectionResults.
func FromRectangles(faces []image.Rectangle) []DetectionResult {
	if len(faces) == 0 {
		return nil
	}
	results := make([]DetectionResult, 0, len(faces))
	for _, r := range faces {
		results = append(results, DetectionResult{
			X:      r.Min.X,
			Y:      r.Min.Y,
			Width:  r.Dx(),
			Height: r.Dy(),
		})
	}
	return results
}
