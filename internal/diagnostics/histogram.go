package diagnostics

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"sort"
)

// Histogram buckets deviations by their exact delta value.
type Histogram struct {
	Counts map[int]int
}

// BuildHistogram tallies the start-line deltas of devs.
func BuildHistogram(devs []Deviation) *Histogram {
	h := &Histogram{Counts: make(map[int]int)}
	for _, d := range devs {
		h.Counts[d.Delta]++
	}
	return h
}

// sortedDeltas returns the bucket keys in ascending order.
func (h *Histogram) sortedDeltas() []int {
	deltas := make([]int, 0, len(h.Counts))
	for d := range h.Counts {
		deltas = append(deltas, d)
	}
	sort.Ints(deltas)
	return deltas
}

const (
	histBarWidth  = 12
	histBarGap    = 4
	histHeight    = 400
	histPadding   = 20
	histBaseline  = histHeight - histPadding
	histMaxBarLen = histHeight - 2*histPadding
)

// RenderPNG draws the histogram as a simple bar chart and writes it to path.
// Bars run left to right in ascending delta order; the tallest bucket spans
// the full drawable height.
func (h *Histogram) RenderPNG(path string) error {
	deltas := h.sortedDeltas()
	if len(deltas) == 0 {
		return fmt.Errorf("render histogram: no deviations to plot")
	}

	maxCount := 0
	for _, c := range h.Counts {
		if c > maxCount {
			maxCount = c
		}
	}

	width := 2*histPadding + len(deltas)*(histBarWidth+histBarGap)
	img := image.NewRGBA(image.Rect(0, 0, width, histHeight))

	white := color.RGBA{255, 255, 255, 255}
	bar := color.RGBA{70, 130, 180, 255}
	axis := color.RGBA{0, 0, 0, 255}

	for y := 0; y < histHeight; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, white)
		}
	}
	for x := histPadding; x < width-histPadding; x++ {
		img.Set(x, histBaseline, axis)
	}

	for i, delta := range deltas {
		barLen := h.Counts[delta] * histMaxBarLen / maxCount
		x0 := histPadding + i*(histBarWidth+histBarGap)
		for x := x0; x < x0+histBarWidth; x++ {
			for y := histBaseline - barLen; y < histBaseline; y++ {
				img.Set(x, y, bar)
			}
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create histogram %s: %w", path, err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("encode histogram %s: %w", path, err)
	}
	return nil
}
