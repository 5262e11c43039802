package camera

import (
	"fmt"
	"image"
	"image/color"

	"facewatch/internal/service/vision"

	"gocv.io/x/gocv"
)

// Window is the on-screen preview with face boxes drawn in.
type Window struct {
	window *gocv.Window
	color  color.RGBA
}

// NewWindow opens a named preview window.
func NewWindow(title string) *Window {
	return &Window{
		window: gocv.NewWindow(title),
		color:  color.RGBA{R: 0, G: 0, B: 255, A: 0},
	}
}

// Show draws faces onto the frame in place and displays it.
func (w *Window) Show(frame vision.Frame, faces []image.Rectangle) error {
	f, ok := frame.(*Frame)
	if !ok {
		return fmt.Errorf("unsupported frame type %T", frame)
	}

	mat := f.Mat()
	for _, r := range faces {
		if err := gocv.Rectangle(&mat, r, w.color, 2); err != nil {
			return fmt.Errorf("failed to draw rectangle: %w", err)
		}
	}

	w.window.IMShow(mat)
	return nil
}

func (w *Window) PollKey() int {
	return w.window.WaitKey(1)
}

func (w *Window) Close() error {
	return w.window.Close()
}
