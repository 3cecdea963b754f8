// Package preprocess turns raw frame regions into high-contrast
// binarized crops that Tesseract can read reliably. The chain is
// grayscale, blank detection, upscale, CLAHE, threshold, morphology.
package preprocess

import (
	"image"
	"image/draw"

	"gocv.io/x/gocv"

	"github.com/croplens/croplens/internal/errors"
	"github.com/croplens/croplens/internal/roi"
)

// Default tuning constants.
const (
	DefaultMinHeight   = 32
	DefaultCLAHEClip   = 2.0
	DefaultCLAHEGrid   = 8
	DefaultBlockSize   = 35
	DefaultBlockC      = 11.0
	DefaultBlankStdDev = 6.0
)

// Options controls the preprocessing chain. The zero value is usable;
// missing fields fall back to the defaults above.
type Options struct {
	MinHeight   int     // upscale crops shorter than this
	CLAHEClip   float64 // contrast clip limit, 0 disables CLAHE
	CLAHEGrid   int     // CLAHE tile grid size
	BlockSize   int     // adaptive threshold neighborhood, must be odd
	BlockC      float64 // adaptive threshold constant
	BlankStdDev float64 // grayscale stddev below which the crop is blank
}

func (o Options) withDefaults() Options {
	if o.MinHeight <= 0 {
		o.MinHeight = DefaultMinHeight
	}
	if o.CLAHEClip == 0 {
		o.CLAHEClip = DefaultCLAHEClip
	}
	if o.CLAHEGrid <= 0 {
		o.CLAHEGrid = DefaultCLAHEGrid
	}
	if o.BlockSize <= 0 {
		o.BlockSize = DefaultBlockSize
	}
	if o.BlockSize%2 == 0 {
		o.BlockSize++
	}
	if o.BlockC == 0 {
		o.BlockC = DefaultBlockC
	}
	if o.BlankStdDev == 0 {
		o.BlankStdDev = DefaultBlankStdDev
	}
	return o
}

// Prepare crops rect out of frame, binarizes it per hints, and returns
// the result as PNG bytes. Returns a BlankRegion error when the crop
// has no visible content, which callers treat as "HUD element hidden"
// rather than a failure.
func Prepare(frame image.Image, rect image.Rectangle, hints roi.Hints, opts Options) ([]byte, error) {
	opts = opts.withDefaults()

	src, err := gocv.ImageToMatRGBA(toRGBA(frame))
	if err != nil {
		return nil, errors.Wrap(err, errors.OCRExtractFailed, "convert frame to mat")
	}
	defer src.Close()

	crop := src.Region(rect)
	region := crop.Clone()
	crop.Close()
	defer region.Close()

	gray := gocv.NewMat()
	gocv.CvtColor(region, &gray, gocv.ColorRGBAToGray)
	defer gray.Close()

	// A flat crop means the HUD element is hidden or covered.
	mean := gocv.NewMat()
	defer mean.Close()
	stddev := gocv.NewMat()
	defer stddev.Close()
	gocv.MeanStdDev(gray, &mean, &stddev)
	if !stddev.Empty() && stddev.GetDoubleAt(0, 0) < opts.BlankStdDev {
		return nil, errors.New(errors.BlankRegion, "region has no contrast")
	}

	minHeight := opts.MinHeight
	if hints.MinHeight > 0 {
		minHeight = hints.MinHeight
	}

	// Scale up small crops; Tesseract degrades sharply below ~30px glyphs.
	cur := gray.Clone()
	if cur.Rows() < minHeight {
		scale := float64(minHeight) / float64(cur.Rows())
		scaled := gocv.NewMat()
		gocv.Resize(cur, &scaled, image.Point{}, scale, scale, gocv.InterpolationCubic)
		cur.Close()
		cur = scaled
	}

	if opts.CLAHEClip > 0 {
		clahe := gocv.NewCLAHEWithParams(opts.CLAHEClip, image.Point{X: opts.CLAHEGrid, Y: opts.CLAHEGrid})
		enhanced := gocv.NewMat()
		clahe.Apply(cur, &enhanced)
		clahe.Close()
		cur.Close()
		cur = enhanced
	}

	binary := gocv.NewMat()
	if hints.Otsu {
		gocv.Threshold(cur, &binary, 0, 255, gocv.ThresholdBinary|gocv.ThresholdOtsu)
	} else {
		gocv.AdaptiveThreshold(cur, &binary, 255, gocv.AdaptiveThresholdGaussian, gocv.ThresholdBinary, opts.BlockSize, float32(opts.BlockC))
	}
	cur.Close()
	cur = binary

	// Light HUD text on dark ground comes out white-on-black; Tesseract
	// wants the opposite polarity.
	if hints.Invert {
		gocv.BitwiseNot(cur, &cur)
	}

	kernel := gocv.GetStructuringElement(gocv.MorphRect, image.Point{X: 2, Y: 2})
	cleaned := gocv.NewMat()
	gocv.MorphologyEx(cur, &cleaned, gocv.MorphOpen, kernel)
	kernel.Close()
	cur.Close()
	defer cleaned.Close()

	buf, err := gocv.IMEncode(gocv.PNGFileExt, cleaned)
	if err != nil {
		return nil, errors.Wrap(err, errors.OCRExtractFailed, "encode preprocessed region")
	}
	defer buf.Close()

	out := make([]byte, len(buf.GetBytes()))
	copy(out, buf.GetBytes())
	return out, nil
}

// toRGBA normalizes any decoded image to RGBA so the mat conversion
// never sees a paletted or YCbCr layout.
func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	return rgba
}
