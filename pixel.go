package imgdiff

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// highlightColor marks a changed pixel in the diff raster
var highlightColor = color.NRGBA{R: 255, A: 255}

// Raster is a decoded image with the structural attributes compared before pixels
type Raster struct {
	Format string
	Mode   string
	Image  image.Image
}

// Size returns the raster dimensions
func (r *Raster) Size() (int, int) {
	bounds := r.Image.Bounds()
	return bounds.Dx(), bounds.Dy()
}

// DecodeImage decodes the content of path. The format is sniffed from the
// bytes, not taken from the extension.
func DecodeImage(path string, data []byte) (*Raster, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, newDecodeImageError(path, err)
	}

	return &Raster{
		Format: strings.ToUpper(format),
		Mode:   colorMode(format, data, img),
		Image:  img,
	}, nil
}

// colorMode names the pixel layout of a decoded image. PNG keeps the color type
// from its header because the decoder widens RGB to RGBA.
func colorMode(format string, data []byte, img image.Image) string {
	if format == "png" && len(data) > 25 && string(data[12:16]) == "IHDR" {
		depth, colorType := data[24], data[25]
		switch colorType {
		case 0:
			if depth == 16 {
				return "I;16"
			}
			return "L"
		case 2:
			return "RGB"
		case 3:
			return "P"
		case 4:
			return "LA"
		case 6:
			return "RGBA"
		}
	}

	switch img.(type) {
	case *image.Gray:
		return "L"
	case *image.Gray16:
		return "I;16"
	case *image.Paletted:
		return "P"
	case *image.YCbCr:
		return "RGB"
	case *image.NYCbCrA:
		return "RGBA"
	case *image.CMYK:
		return "CMYK"
	case *image.RGBA, *image.NRGBA:
		return "RGBA"
	case *image.RGBA64, *image.NRGBA64:
		return "RGBA;16"
	default:
		return fmt.Sprintf("%T", img)
	}
}

// PixelDiff is the result of comparing two rasters
type PixelDiff struct {
	WithinTolerance bool
	// Highlight is nil when the rasters differ structurally
	Highlight     *image.NRGBA
	ChangedPixels int
	TotalPixels   int
	Percent       float64
	Reasons       []string
}

// DiffFiles decodes both files and compares them with DiffRasters
func DiffFiles(expectedPath, actualPath string, tolerance float64, threshold uint8) (*PixelDiff, error) {
	expectedData, err := ReadFile(expectedPath)
	if err != nil {
		return nil, err
	}

	actualData, err := ReadFile(actualPath)
	if err != nil {
		return nil, err
	}

	return diffData(expectedPath, expectedData, actualPath, actualData, tolerance, threshold)
}

func diffData(expectedPath string, expectedData []byte, actualPath string, actualData []byte, tolerance float64, threshold uint8) (*PixelDiff, error) {
	expected, err := DecodeImage(expectedPath, expectedData)
	if err != nil {
		return nil, err
	}

	actual, err := DecodeImage(actualPath, actualData)
	if err != nil {
		return nil, err
	}

	return DiffRasters(expected, actual, tolerance, threshold), nil
}

// DiffRasters compares expected with actual.
//
// A format, mode or size mismatch is reported as reasons and stops the
// comparison. Otherwise every pixel whose grayscale channel difference, or
// alpha difference, exceeds threshold is counted and painted red in the
// highlight. The pair is within tolerance when the changed share, in percent,
// is at most tolerance.
func DiffRasters(expected, actual *Raster, tolerance float64, threshold uint8) *PixelDiff {
	var reasons []string

	if expected.Format != actual.Format {
		reasons = append(reasons, fmt.Sprintf("Format changed from %s to %s", expected.Format, actual.Format))
	}
	if expected.Mode != actual.Mode {
		reasons = append(reasons, fmt.Sprintf("Mode changed from %s to %s", expected.Mode, actual.Mode))
	}

	ew, eh := expected.Size()
	aw, ah := actual.Size()
	if ew != aw || eh != ah {
		reasons = append(reasons, fmt.Sprintf("Size changed from (%d, %d) to (%d, %d)", ew, eh, aw, ah))
	}

	if len(reasons) > 0 {
		return &PixelDiff{
			WithinTolerance: false,
			Reasons:         reasons,
		}
	}

	left := toNRGBA(expected.Image)
	right := toNRGBA(actual.Image)
	highlight := image.NewNRGBA(image.Rect(0, 0, ew, eh))

	changed := 0
	for y := 0; y < eh; y++ {
		for x := 0; x < ew; x++ {
			i, j := left.PixOffset(x, y), right.PixOffset(x, y)
			a := left.Pix[i : i+4 : i+4]
			b := right.Pix[j : j+4 : j+4]

			gray := luminance(absDiff(a[0], b[0]), absDiff(a[1], b[1]), absDiff(a[2], b[2]))
			if gray > threshold || absDiff(a[3], b[3]) > threshold {
				highlight.SetNRGBA(x, y, highlightColor)
				changed++
			}
		}
	}

	total := ew * eh
	percent := 0.0
	if total > 0 {
		percent = float64(changed) / float64(total) * 100
	}

	reasons = append(reasons, fmt.Sprintf("Pixels changed with extent %.2f%%", percent))

	return &PixelDiff{
		WithinTolerance: percent <= tolerance,
		Highlight:       highlight,
		ChangedPixels:   changed,
		TotalPixels:     total,
		Percent:         percent,
		Reasons:         reasons,
	}
}

// toNRGBA copies img into a zero-origin NRGBA raster
func toNRGBA(img image.Image) *image.NRGBA {
	bounds := img.Bounds()
	if nrgba, ok := img.(*image.NRGBA); ok && bounds.Min == (image.Point{}) {
		return nrgba
	}

	dst := image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(dst, dst.Bounds(), img, bounds.Min, draw.Src)
	return dst
}

func absDiff(a, b uint8) uint8 {
	if a > b {
		return a - b
	}
	return b - a
}

// luminance is the ITU-R 601-2 transform with fixed-point rounding
func luminance(r, g, b uint8) uint8 {
	return uint8((19595*uint32(r) + 38470*uint32(g) + 7471*uint32(b) + 1<<15) >> 16)
}
