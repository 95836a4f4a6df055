package imgproc

import (
	"context"
	"fmt"

	"github.com/disintegration/imaging"
)

// Crop cuts the region out of img and re-encodes it as a new RasterImage.
// The output dimensions equal the resolved rectangle and its pixels are
// exactly the source sub-rectangle. Failures (undecodable source, region
// outside the image) come back as errors the caller surfaces as a
// recoverable "cropping failed" outcome.
func Crop(ctx context.Context, img RasterImage, region Region) (RasterImage, error) {
	if err := ctx.Err(); err != nil {
		return RasterImage{}, err
	}
	src, err := img.Decode()
	if err != nil {
		return RasterImage{}, err
	}
	rect, err := region.PixelRect(src.Bounds())
	if err != nil {
		return RasterImage{}, err
	}
	out := imaging.Crop(src, rect)
	if err := ctx.Err(); err != nil {
		return RasterImage{}, err
	}
	res, err := Encode(out, img.ContentType())
	if err != nil {
		return RasterImage{}, fmt.Errorf("crop: %w", err)
	}
	return res, nil
}
