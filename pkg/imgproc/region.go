package imgproc

import (
	"fmt"
	"image"
)

// Corner is a fractional image coordinate. Both axes are kept in [0,1]
// relative to the source dimensions.
type Corner struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Clamp forces both coordinates into [0,1].
func (c Corner) Clamp() Corner {
	return Corner{X: clamp01(c.X), Y: clamp01(c.Y)}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Rect is an axis-aligned crop rectangle in source pixels.
type Rect struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"width"`
	H int `json:"height"`
}

// Region describes the area of interest within a source image: either a
// pixel rectangle or four fractional corners. Exactly one form is set.
//
// The quadrilateral form is NOT perspective-corrected: its corners only
// define a bounding rectangle. That approximation is intentional and part
// of the product behavior.
type Region struct {
	Rect    *Rect      `json:"rect,omitempty"`
	Corners *[4]Corner `json:"corners,omitempty"`
}

// Validate checks that exactly one region form is present.
func (r Region) Validate() error {
	if (r.Rect == nil) == (r.Corners == nil) {
		return fmt.Errorf("region needs exactly one of rect or corners")
	}
	return nil
}

// Clamped returns a copy with fractional corners clamped to [0,1]. The
// rectangle form is left alone here; it is clamped against concrete image
// bounds at crop time.
func (r Region) Clamped() Region {
	if r.Corners == nil {
		return r
	}
	var cs [4]Corner
	for i, c := range r.Corners {
		cs[i] = c.Clamp()
	}
	return Region{Corners: &cs}
}

// PixelRect resolves the region against an image of the given bounds,
// returning the rectangle to cut. Fractional corners are scaled to pixels
// and reduced to their bounding box; the result is always intersected with
// the image bounds.
func (r Region) PixelRect(bounds image.Rectangle) (image.Rectangle, error) {
	if err := r.Validate(); err != nil {
		return image.Rectangle{}, err
	}
	var rect image.Rectangle
	if r.Rect != nil {
		rect = image.Rect(r.Rect.X, r.Rect.Y, r.Rect.X+r.Rect.W, r.Rect.Y+r.Rect.H)
	} else {
		w := float64(bounds.Dx())
		h := float64(bounds.Dy())
		first := r.Corners[0].Clamp()
		minX, maxX := first.X, first.X
		minY, maxY := first.Y, first.Y
		for _, c := range r.Corners[1:] {
			c = c.Clamp()
			if c.X < minX {
				minX = c.X
			}
			if c.X > maxX {
				maxX = c.X
			}
			if c.Y < minY {
				minY = c.Y
			}
			if c.Y > maxY {
				maxY = c.Y
			}
		}
		rect = image.Rect(
			bounds.Min.X+int(minX*w),
			bounds.Min.Y+int(minY*h),
			bounds.Min.X+int(maxX*w),
			bounds.Min.Y+int(maxY*h),
		)
	}
	rect = rect.Intersect(bounds)
	if rect.Empty() {
		return image.Rectangle{}, fmt.Errorf("region outside image bounds")
	}
	return rect, nil
}
