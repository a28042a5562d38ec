package vision

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"melonsense/internal/model"
)

const (
	// InputSize is the square side length the classifiers were trained on.
	InputSize = 224
	// InputChannels is the number of colour channels the classifiers accept.
	InputChannels = 3
)

var (
	ErrDecode          = errors.New("invalid image")
	ErrChannelMismatch = errors.New("input image must have 3 channels (RGB)")
)

// DefaultMaxPixels matches the decompression-bomb ceiling common image
// libraries enforce (about 179M pixels).
const DefaultMaxPixels int64 = 178956970

// Preprocessor turns uploaded bytes into model input.
type Preprocessor struct {
	// MaxPixels bounds width*height as declared by the image header.
	// Zero or less means DefaultMaxPixels.
	MaxPixels int64
}

// Preprocess uses the default Preprocessor.
func Preprocess(data []byte) (model.Tensor, error) {
	return Preprocessor{}.Preprocess(data)
}

// Preprocess decodes data, checks it is a 3-channel image and converts it to
// a (1, 224, 224, 3) NHWC tensor with values in [0, 1]. The header is checked
// before any pixel buffer is allocated.
func (p Preprocessor) Preprocess(data []byte) (model.Tensor, error) {
	mtype := mimetype.Detect(data)
	if !strings.HasPrefix(mtype.String(), "image/") {
		return model.Tensor{}, fmt.Errorf("%w: unsupported content type %s", ErrDecode, mtype.String())
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return model.Tensor{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	maxPixels := p.MaxPixels
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > maxPixels {
		return model.Tensor{}, fmt.Errorf("%w: %s image is %dx%d, limit is %d pixels",
			ErrDecode, format, cfg.Width, cfg.Height, maxPixels)
	}

	if n := ChannelCount(cfg.ColorModel); n != InputChannels {
		return model.Tensor{}, fmt.Errorf("%w: %s image has %d", ErrChannelMismatch, format, n)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return model.Tensor{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	return PreprocessImage(img), nil
}

// ChannelCount reports how many channels a pixel array built from an image
// with colour model m would carry. Grayscale and paletted images have one.
// Images with alpha, and CMYK images, have four. Plain colour images have
// three. A truecolor PNG with a tRNS chunk reports RGBAModel and counts as 3.
func ChannelCount(m color.Model) int {
	if _, ok := m.(color.Palette); ok {
		return 1
	}
	switch m {
	case color.GrayModel, color.Gray16Model, color.AlphaModel, color.Alpha16Model:
		return 1
	case color.NRGBAModel, color.NRGBA64Model, color.NYCbCrAModel, color.CMYKModel:
		return 4
	default:
		return 3
	}
}

// PreprocessImage resizes img to 224x224 with bilinear scaling and lays the
// RGB values out as float32 NHWC, scaled by 1/255.
func PreprocessImage(img image.Image) model.Tensor {
	dst := image.NewRGBA(image.Rect(0, 0, InputSize, InputSize))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)

	out := make([]float32, InputSize*InputSize*InputChannels)
	for y := 0; y < InputSize; y++ {
		for x := 0; x < InputSize; x++ {
			c := dst.RGBAAt(x, y)
			idx := (y*InputSize + x) * InputChannels
			out[idx] = float32(c.R) / 255.0
			out[idx+1] = float32(c.G) / 255.0
			out[idx+2] = float32(c.B) / 255.0
		}
	}

	return model.Tensor{
		Shape: []int64{1, InputSize, InputSize, InputChannels},
		Data:  out,
	}
}
