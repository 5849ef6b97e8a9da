package photodedup

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"sort"
	"sync"

	"github.com/bep/imagemeta"
	"github.com/nfnt/resize"
	_ "golang.org/x/image/webp"
)

const (
	dhashSize     = 8  // dHash is computed on an 8×8 grid
	phashSize     = 32 // pHash works on a 32×32 resized image
	phashHashSize = 8  // ...reduced to the top-left 8×8 DCT block
)

// HashingService computes and memoizes per-item byte and perceptual hashes,
// delegating byte retrieval to a DownloadManager. One instance is scoped to
// a single scan.
type HashingService struct {
	downloads *DownloadManager

	mu                 sync.Mutex
	byteHashes         map[string]string
	perceptualHashes   map[string]PerceptualHashes
	byteHashCount      int
	perceptualHashCount int
}

// NewHashingService builds a service that fetches bytes through downloads.
func NewHashingService(downloads *DownloadManager) *HashingService {
	return &HashingService{
		downloads:        downloads,
		byteHashes:       make(map[string]string),
		perceptualHashes: make(map[string]PerceptualHashes),
	}
}

// ByteHashCount is the number of cache misses satisfied so far.
func (h *HashingService) ByteHashCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.byteHashCount
}

// PerceptualHashCount is the number of cache misses satisfied so far.
func (h *HashingService) PerceptualHashCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.perceptualHashCount
}

// GetByteHash returns the lowercase hex SHA-256 digest of item's full bytes,
// memoized by item.ID.
func (h *HashingService) GetByteHash(ctx context.Context, item PhotoItem) (string, error) {
	h.mu.Lock()
	if v, ok := h.byteHashes[item.ID]; ok {
		h.mu.Unlock()
		return v, nil
	}
	h.mu.Unlock()

	data, err := h.downloads.GetBytes(ctx, item)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	digest := hex.EncodeToString(sum[:])

	h.mu.Lock()
	if v, ok := h.byteHashes[item.ID]; ok {
		h.mu.Unlock()
		return v, nil
	}
	h.byteHashes[item.ID] = digest
	h.byteHashCount++
	h.mu.Unlock()

	return digest, nil
}

// GetPerceptualHashes decodes item's bytes, auto-rotates per EXIF
// orientation, converts to grayscale, and computes dHash/pHash. Results are
// memoized by item.ID.
func (h *HashingService) GetPerceptualHashes(ctx context.Context, item PhotoItem) (PerceptualHashes, error) {
	h.mu.Lock()
	if v, ok := h.perceptualHashes[item.ID]; ok {
		h.mu.Unlock()
		return v, nil
	}
	h.mu.Unlock()

	data, err := h.downloads.GetBytes(ctx, item)
	if err != nil {
		return PerceptualHashes{}, err
	}

	gray, err := decodeGrayscale(data)
	if err != nil {
		return PerceptualHashes{}, newError(KindImageDecodeFailed, item.ID, err)
	}

	hashes := PerceptualHashes{
		DHash: computeDHash(gray),
		PHash: computePHash(gray),
	}

	h.mu.Lock()
	if v, ok := h.perceptualHashes[item.ID]; ok {
		h.mu.Unlock()
		return v, nil
	}
	h.perceptualHashes[item.ID] = hashes
	h.perceptualHashCount++
	h.mu.Unlock()

	return hashes, nil
}

// decodeGrayscale decodes raw image bytes, applies EXIF-orientation
// auto-rotation, and returns an 8-bit grayscale image.
func decodeGrayscale(data []byte) (*image.Gray, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	gray := toGray(img)
	orientation := readEXIFOrientation(data)
	return applyOrientation(gray, orientation), nil
}

func toGray(src image.Image) *image.Gray {
	bounds := src.Bounds()
	dst := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			dst.Set(x, y, color.GrayModel.Convert(src.At(x, y)))
		}
	}
	return dst
}

// readEXIFOrientation returns the EXIF Orientation tag (1-8), defaulting to
// 1 (no rotation) when metadata is absent or unparseable. The metadata is
// always parsed as JPEG, so PNG, GIF and WebP inputs get 1.
func readEXIFOrientation(data []byte) int {
	orientation := 1
	opts := imagemeta.Options{
		R:           bytes.NewReader(data),
		ImageFormat: imagemeta.JPEG,
		HandleTag: func(ti imagemeta.TagInfo) error {
			if ti.Tag == "Orientation" {
				if v, ok := tagInfoInt(ti.Value); ok && v >= 1 && v <= 8 {
					orientation = v
				}
			}
			return nil
		},
	}
	_ = imagemeta.Decode(opts)
	return orientation
}

func tagInfoInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int16:
		return int(n), true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case uint16:
		return int(n), true
	case uint32:
		return int(n), true
	case uint64:
		return int(n), true
	default:
		return 0, false
	}
}

// applyOrientation rotates/flips a grayscale image per the standard EXIF
// orientation codes 1-8.
func applyOrientation(g *image.Gray, orientation int) *image.Gray {
	switch orientation {
	case 2:
		return flipHorizontal(g)
	case 3:
		return rotate180(g)
	case 4:
		return flipVertical(g)
	case 5:
		return flipHorizontal(rotate90(g))
	case 6:
		return rotate90(g)
	case 7:
		return flipHorizontal(rotate270(g))
	case 8:
		return rotate270(g)
	default:
		return g
	}
}

func rotate90(g *image.Gray) *image.Gray {
	b := g.Bounds()
	w, h := b.Dx(), b.Dy()
	out := image.NewGray(image.Rect(0, 0, h, w))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			out.SetGray(h-1-y, x, g.GrayAt(b.Min.X+x, b.Min.Y+y))
		}
	}
	return out
}

func rotate270(g *image.Gray) *image.Gray {
	b := g.Bounds()
	w, h := b.Dx(), b.Dy()
	out := image.NewGray(image.Rect(0, 0, h, w))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			out.SetGray(y, w-1-x, g.GrayAt(b.Min.X+x, b.Min.Y+y))
		}
	}
	return out
}

func rotate180(g *image.Gray) *image.Gray {
	b := g.Bounds()
	w, h := b.Dx(), b.Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			out.SetGray(w-1-x, h-1-y, g.GrayAt(b.Min.X+x, b.Min.Y+y))
		}
	}
	return out
}

func flipHorizontal(g *image.Gray) *image.Gray {
	b := g.Bounds()
	w, h := b.Dx(), b.Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			out.SetGray(w-1-x, y, g.GrayAt(b.Min.X+x, b.Min.Y+y))
		}
	}
	return out
}

func flipVertical(g *image.Gray) *image.Gray {
	b := g.Bounds()
	w, h := b.Dx(), b.Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			out.SetGray(x, h-1-y, g.GrayAt(b.Min.X+x, b.Min.Y+y))
		}
	}
	return out
}

// computeDHash resizes to (size+1, size) via Lanczos, then emits 1 bit per
// row where pixel(r,c) > pixel(r,c+1), MSB-first row-major.
func computeDHash(g *image.Gray) uint64 {
	resized := resize.Resize(dhashSize+1, dhashSize, g, resize.Lanczos3)
	b := resized.Bounds()

	var hash uint64
	for r := 0; r < dhashSize; r++ {
		for c := 0; c < dhashSize; c++ {
			left := grayAt(resized, b, c, r)
			right := grayAt(resized, b, c+1, r)
			hash <<= 1
			if left > right {
				hash |= 1
			}
		}
	}
	return hash
}

// computePHash resizes to size×size via Lanczos, takes the 2-D DCT-II, keeps
// the top-left hash_size×hash_size block, and thresholds each coefficient
// (including DC) against the median of the non-DC coefficients.
func computePHash(g *image.Gray) uint64 {
	resized := resize.Resize(phashSize, phashSize, g, resize.Lanczos3)
	b := resized.Bounds()

	pixels := make([]float64, phashSize*phashSize)
	for r := 0; r < phashSize; r++ {
		for c := 0; c < phashSize; c++ {
			pixels[r*phashSize+c] = float64(grayAt(resized, b, c, r))
		}
	}

	coeffs := dct2D(pixels, phashSize)

	block := make([]float64, phashHashSize*phashHashSize)
	for r := 0; r < phashHashSize; r++ {
		for c := 0; c < phashHashSize; c++ {
			block[r*phashHashSize+c] = snapNearZero(coeffs[r*phashSize+c])
		}
	}

	median := medianExcludingDC(block)

	var hash uint64
	for _, v := range block {
		hash <<= 1
		if v > median {
			hash |= 1
		}
	}
	return hash
}

func grayAt(img image.Image, b image.Rectangle, x, y int) uint8 {
	c := img.At(b.Min.X+x, b.Min.Y+y)
	gr, _, _, _ := c.RGBA()
	return uint8(gr >> 8)
}

// dctSnapEpsilon collapses the floating-point noise a separable DCT leaves
// behind on a perfectly flat input (AC coefficients on the order of 1e-13
// instead of exactly 0) so that median-thresholding doesn't split them
// arbitrarily across the zero line.
const dctSnapEpsilon = 1e-9

func snapNearZero(v float64) float64 {
	if v > -dctSnapEpsilon && v < dctSnapEpsilon {
		return 0
	}
	return v
}

// medianExcludingDC is the median of all coefficients except index 0 (the DC
// term). Median of an empty slice is 0; median of an even-length slice is
// the mean of the two central elements.
func medianExcludingDC(block []float64) float64 {
	if len(block) <= 1 {
		return 0
	}
	ac := make([]float64, len(block)-1)
	copy(ac, block[1:])
	sort.Float64s(ac)

	n := len(ac)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return ac[n/2]
	}
	return (ac[n/2-1] + ac[n/2]) / 2
}
