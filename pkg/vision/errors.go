package vision

import "errors"

var (
	// ErrNoExtraction means the model produced no usable output at all,
	// as opposed to a successful extraction that found nothing.
	ErrNoExtraction = errors.New("no extraction produced")

	// ErrNoImage means the enhancement call returned no image.
	ErrNoImage = errors.New("no enhanced image produced")

	// ErrEnhanceUnsupported is returned by engines that can read images
	// but not generate them; callers fall back to the unenhanced image.
	ErrEnhanceUnsupported = errors.New("engine does not support enhancement")
)
