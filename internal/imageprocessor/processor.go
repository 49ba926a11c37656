package imageprocessor

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"

	_ "image/gif"

	"golang.org/x/image/draw"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported image format")
	// ErrTooManyPixels - заявленный в заголовке размер больше лимита;
	// такие файлы не декодируются вовсе
	ErrTooManyPixels = errors.New("image dimensions exceed limit")
)

// DefaultMaxPixels - 40 мегапикселей, около 160 МБ в RGBA
const DefaultMaxPixels = 40_000_000

// Result - обработанное изображение
type Result struct {
	Data        []byte
	ContentType string
	Width       int
	Height      int
}

// Processor декодирует, уменьшает и перекодирует фотографии
type Processor struct {
	quality      int // JPEG quality (1-100)
	maxDimension int
	maxPixels    int
}

func NewProcessor(quality, maxDimension int) *Processor {
	if quality <= 0 || quality > 100 {
		quality = 85
	}
	if maxDimension <= 0 {
		maxDimension = 1024
	}
	return &Processor{
		quality:      quality,
		maxDimension: maxDimension,
		maxPixels:    DefaultMaxPixels,
	}
}

// WithMaxPixels задает лимит width*height; n <= 0 оставляет значение по умолчанию
func (p *Processor) WithMaxPixels(n int) *Processor {
	if n > 0 {
		p.maxPixels = n
	}
	return p
}

// Process уменьшает изображение так, чтобы большая сторона не превышала
// maxDimension. JPEG остается JPEG, остальные форматы сохраняются в PNG.
func (p *Processor) Process(data []byte) (*Result, error) {
	// маленький сжатый файл может объявить огромный холст: сначала только заголовок
	header, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to read image header: %w", err)
	}
	if header.Width <= 0 || header.Height <= 0 {
		return nil, fmt.Errorf("%w: empty image", ErrUnsupportedFormat)
	}
	if int64(header.Width)*int64(header.Height) > int64(p.maxPixels) {
		return nil, fmt.Errorf("%w: %dx%d", ErrTooManyPixels, header.Width, header.Height)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	if bounds.Dx() == 0 || bounds.Dy() == 0 {
		return nil, fmt.Errorf("%w: empty image", ErrUnsupportedFormat)
	}

	resized := p.resize(img)

	var buf bytes.Buffer
	result := &Result{
		Width:  resized.Bounds().Dx(),
		Height: resized.Bounds().Dy(),
	}

	switch format {
	case "jpeg":
		if err := jpeg.Encode(&buf, resized, &jpeg.Options{Quality: p.quality}); err != nil {
			return nil, fmt.Errorf("failed to encode JPEG: %w", err)
		}
		result.ContentType = "image/jpeg"
	case "png", "gif":
		if err := png.Encode(&buf, resized); err != nil {
			return nil, fmt.Errorf("failed to encode PNG: %w", err)
		}
		result.ContentType = "image/png"
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}

	result.Data = buf.Bytes()
	return result, nil
}

// resize сохраняет пропорции и никогда не увеличивает изображение
func (p *Processor) resize(img image.Image) image.Image {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	if width <= p.maxDimension && height <= p.maxDimension {
		return img
	}

	newWidth, newHeight := p.maxDimension, p.maxDimension
	if width > height {
		newHeight = max(1, height*p.maxDimension/width)
	} else {
		newWidth = max(1, width*p.maxDimension/height)
	}

	dst := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}
