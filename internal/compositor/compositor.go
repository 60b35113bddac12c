// Package compositor renders scene images onto fixed-size video frames.
// Images are scaled to fit without cropping, centered on an opaque black
// canvas: a wide image on a tall frame gets bars above and below, a tall
// image on a wide frame gets bars left and right.
package compositor

import (
	"fmt"
	"image"
	"image/color"

	xdraw "golang.org/x/image/draw"
)

// Frame dimensions per export shape.
const (
	WideWidth  = 1280
	WideHeight = 720
	TallWidth  = 720
	TallHeight = 1280
)

// Target is a frame size.
type Target struct {
	Width  int
	Height int
}

// TargetWide is the 16:9 long-form frame; TargetTall the 9:16 shorts frame.
var (
	TargetWide = Target{Width: WideWidth, Height: WideHeight}
	TargetTall = Target{Width: TallWidth, Height: TallHeight}
)

// Fit returns the centered scale-to-fit placement of a srcW×srcH image on a
// dstW×dstH frame. When the image is proportionally wider than the frame its
// width is clamped and bars appear above and below; otherwise its height is
// clamped and bars appear at the sides. Geometry is exact and deterministic
// for a given input.
func Fit(srcW, srcH, dstW, dstH int) image.Rectangle {
	if srcW <= 0 || srcH <= 0 {
		return image.Rectangle{}
	}

	// Compare aspect ratios without floats: srcW/srcH > dstW/dstH.
	var w, h int
	if srcW*dstH > dstW*srcH {
		w = dstW
		h = srcH * dstW / srcW
	} else {
		h = dstH
		w = srcW * dstH / srcH
	}

	x := (dstW - w) / 2
	y := (dstH - h) / 2
	return image.Rect(x, y, x+w, y+h)
}

// Render draws img scaled-to-fit onto a black target frame.
func Render(img image.Image, target Target) (*image.RGBA, error) {
	bounds := img.Bounds()
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return nil, fmt.Errorf("empty source image %v", bounds)
	}

	frame := image.NewRGBA(image.Rect(0, 0, target.Width, target.Height))
	xdraw.Draw(frame, frame.Bounds(), image.NewUniform(color.Black), image.Point{}, xdraw.Src)

	placement := Fit(bounds.Dx(), bounds.Dy(), target.Width, target.Height)
	xdraw.CatmullRom.Scale(frame, placement, img, bounds, xdraw.Over, nil)

	return frame, nil
}
