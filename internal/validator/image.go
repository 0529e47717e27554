// Package validator holds the upstream signal producers: image
// authenticity, lister verification, cross-platform consistency, and
// review sentiment. Each produces a raw signal the trust engine can
// score, and degrades to a parseable error shape instead of failing.
package validator

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math/bits"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/propguard/propguard/internal/model"
)

// ImageValidator checks listing photos for near-duplicates and
// unfetchable or undecodable entries, and renders the line-labeled
// report the trust engine parses.
type ImageValidator struct {
	http     *http.Client
	limiter  *rate.Limiter
	distance int // max Hamming distance treated as a duplicate
}

// NewImageValidator creates an ImageValidator. A nil client gets a
// default with a 15s timeout; a nil limiter disables rate limiting.
func NewImageValidator(client *http.Client, limiter *rate.Limiter, duplicateDistance int) *ImageValidator {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	if duplicateDistance <= 0 {
		duplicateDistance = 8
	}
	return &ImageValidator{http: client, limiter: limiter, distance: duplicateDistance}
}

// ValidateImages fetches and fingerprints each URL, then renders the
// validation report. Fetch or decode failures mark a URL suspicious
// rather than aborting the run.
func (v *ImageValidator) ValidateImages(ctx context.Context, urls []string) *model.Signal {
	var valid, duplicates, suspicious int
	var hashes []uint64

	for _, url := range urls {
		if v.limiter != nil {
			if err := v.limiter.Wait(ctx); err != nil {
				suspicious++
				continue
			}
		}

		h, err := v.fingerprint(ctx, url)
		if err != nil {
			zap.L().Debug("validator: image rejected",
				zap.String("url", url),
				zap.Error(err),
			)
			suspicious++
			continue
		}

		if isDuplicate(h, hashes, v.distance) {
			duplicates++
			continue
		}
		hashes = append(hashes, h)
		valid++
	}

	report := fmt.Sprintf(
		"Image Validation Results:\n"+
			"- Valid images: %d\n"+
			"- Duplicate images: %d\n"+
			"- Suspicious images: %d\n"+
			"- Total images processed: %d\n"+
			"- Processed at: %s",
		valid, duplicates, suspicious,
		valid+duplicates+suspicious,
		time.Now().UTC().Format(time.RFC3339),
	)
	return model.TextSignal(report)
}

// fingerprint downloads and decodes an image and computes its average
// hash.
func (v *ImageValidator) fingerprint(ctx context.Context, url string) (uint64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}

	resp, err := v.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("status %d", resp.StatusCode)
	}

	img, _, err := image.Decode(resp.Body)
	if err != nil {
		return 0, err
	}
	return averageHash(img), nil
}

// averageHash computes an 8x8 average hash: the image is reduced to an
// 8x8 luminance grid and each cell contributes one bit depending on
// whether it is above the grid mean.
func averageHash(img image.Image) uint64 {
	const grid = 8
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w == 0 || h == 0 {
		return 0
	}

	var cells [grid * grid]float64
	for gy := 0; gy < grid; gy++ {
		for gx := 0; gx < grid; gx++ {
			x0 := bounds.Min.X + gx*w/grid
			x1 := bounds.Min.X + (gx+1)*w/grid
			y0 := bounds.Min.Y + gy*h/grid
			y1 := bounds.Min.Y + (gy+1)*h/grid
			if x1 <= x0 {
				x1 = x0 + 1
			}
			if y1 <= y0 {
				y1 = y0 + 1
			}

			var sum float64
			for y := y0; y < y1; y++ {
				for x := x0; x < x1; x++ {
					r, g, b, _ := img.At(x, y).RGBA()
					// Rec. 601 luminance over 16-bit channels.
					sum += 0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)
				}
			}
			cells[gy*grid+gx] = sum / float64((x1-x0)*(y1-y0))
		}
	}

	var mean float64
	for _, c := range cells {
		mean += c
	}
	mean /= grid * grid

	var hash uint64
	for i, c := range cells {
		if c > mean {
			hash |= 1 << uint(i)
		}
	}
	return hash
}

// isDuplicate reports whether h is within distance of any seen hash.
func isDuplicate(h uint64, seen []uint64, distance int) bool {
	for _, s := range seen {
		if bits.OnesCount64(h^s) < distance {
			return true
		}
	}
	return false
}
