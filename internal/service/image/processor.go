package image

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"strings"
	"time"

	"github.com/sourcegraph/conc/iter"
	"go.uber.org/zap"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"AEye/internal/config"
)

const (
	defaultMaxWidth = 1280
	defaultQuality  = 80
)

// ErrInvalidImage кадр не декодируется как base64 или как изображение.
var ErrInvalidImage = errors.New("invalid image")

// ErrTooManyImages в запросе больше кадров, чем разрешено конфигурацией.
var ErrTooManyImages = errors.New("too many images")

type Processor struct {
	maxCount int
	maxWidth int
	quality  int
	workers  int
	logger   *zap.SugaredLogger
}

func NewProcessor(cfg config.ImagesConfig, logger *zap.SugaredLogger) *Processor {
	p := &Processor{
		maxCount: cfg.MaxCount,
		maxWidth: cfg.MaxWidth,
		quality:  cfg.JPEGQuality,
		workers:  cfg.Workers,
		logger:   logger,
	}
	if p.maxWidth < 0 {
		p.maxWidth = defaultMaxWidth
	}
	if p.quality <= 0 || p.quality > 100 {
		p.quality = defaultQuality
	}
	return p
}

// Prepare декодирует кадры из base64 (допускается префикс data:), уменьшает их до maxWidth
// и возвращает data URL JPEG в исходном порядке. Пустой вход возвращается как есть.
func (p *Processor) Prepare(encoded []string) ([]string, error) {
	if len(encoded) == 0 {
		return nil, nil
	}
	if p.maxCount > 0 && len(encoded) > p.maxCount {
		return nil, fmt.Errorf("%w: %d > %d", ErrTooManyImages, len(encoded), p.maxCount)
	}

	started := time.Now()
	mapper := iter.Mapper[string, string]{MaxGoroutines: p.workers}
	urls, err := mapper.MapErr(encoded, func(s *string) (string, error) {
		return p.prepareOne(*s)
	})
	if err != nil {
		return nil, err
	}
	p.logger.Debugw("Кадры подготовлены", "count", len(urls), "took", time.Since(started).String())
	return urls, nil
}

func (p *Processor) prepareOne(s string) (string, error) {
	raw, err := decodeBase64(s)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return "", fmt.Errorf("%w: size %dx%d", ErrInvalidImage, b.Dx(), b.Dy())
	}
	if p.maxWidth > 0 && b.Dx() > p.maxWidth {
		img = resize(img, p.maxWidth, max(1, b.Dy()*p.maxWidth/b.Dx()))
	}

	encoded, err := encodeJPEG(img, p.quality)
	if err != nil {
		return "", err
	}
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(encoded), nil
}

// decodeBase64 принимает стандартный и URL-алфавит, с паддингом и без.
func decodeBase64(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "data:") {
		i := strings.Index(s, ",")
		if i < 0 {
			return nil, errors.New("malformed data url")
		}
		s = s[i+1:]
	}
	if s == "" {
		return nil, errors.New("empty image")
	}
	var lastErr error
	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.RawStdEncoding, base64.URLEncoding, base64.RawURLEncoding} {
		b, err := enc.DecodeString(s)
		if err == nil {
			return b, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func resize(src image.Image, width, height int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}
