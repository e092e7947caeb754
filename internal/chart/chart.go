// Package chart renders a PM2.5 trend chart for the alert message.
package chart

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/srwpaibong/PM25-alert-system/internal/models"
)

const (
	width    = 720
	height   = 360
	padLeft  = 48
	padTop   = 28
	padBot   = 36
	padRight = 16
)

var (
	colBackground = color.RGBA{255, 255, 255, 255}
	colAxis       = color.RGBA{90, 90, 90, 255}
	colGrid       = color.RGBA{225, 225, 225, 255}
	colSeries     = color.RGBA{30, 90, 180, 255}
	colThreshold  = color.RGBA{200, 40, 40, 255}
	colText       = color.RGBA{40, 40, 40, 255}
)

// Render draws the hourly series as a line chart with a horizontal
// rule at the red threshold, returning PNG bytes. Nil samples leave
// gaps in the line. Fails only when the series has no numeric values.
func Render(samples []models.HistorySample, thresholdUgM3 float64, title string) ([]byte, error) {
	maxVal := thresholdUgM3
	count := 0
	for _, s := range samples {
		if s.Value == nil {
			continue
		}
		count++
		if *s.Value > maxVal {
			maxVal = *s.Value
		}
	}
	if count == 0 {
		return nil, fmt.Errorf("render chart: no numeric samples")
	}
	maxVal = math.Ceil(maxVal*1.15/10) * 10

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	fill(img, colBackground)

	plotW := width - padLeft - padRight
	plotH := height - padTop - padBot

	toX := func(i int) int {
		if len(samples) <= 1 {
			return padLeft
		}
		return padLeft + i*plotW/(len(samples)-1)
	}
	toY := func(v float64) int {
		return padTop + plotH - int(v/maxVal*float64(plotH))
	}

	// Horizontal gridlines every maxVal/4.
	for i := 0; i <= 4; i++ {
		v := maxVal * float64(i) / 4
		y := toY(v)
		hline(img, padLeft, width-padRight, y, colGrid)
		drawText(img, 4, y+4, fmt.Sprintf("%.0f", v), colText)
	}

	// Threshold rule.
	hline(img, padLeft, width-padRight, toY(thresholdUgM3), colThreshold)

	// Series, skipping gaps at missing samples.
	prev := -1
	for i, s := range samples {
		if s.Value == nil {
			prev = -1
			continue
		}
		if prev >= 0 {
			line(img, toX(prev), toY(*samples[prev].Value), toX(i), toY(*s.Value), colSeries)
		}
		prev = i
	}

	// Axes over the gridlines.
	hline(img, padLeft, width-padRight, padTop+plotH, colAxis)
	vline(img, padLeft, padTop, padTop+plotH, colAxis)

	drawText(img, padLeft, 16, title, colText)
	if len(samples) > 0 {
		first := samples[0].Time.Format("02/01 15:04")
		last := samples[len(samples)-1].Time.Format("02/01 15:04")
		drawText(img, padLeft, height-8, first, colText)
		drawText(img, width-padRight-len(last)*7, height-8, last, colText)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode chart: %w", err)
	}
	return buf.Bytes(), nil
}

func fill(img *image.RGBA, c color.RGBA) {
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			img.SetRGBA(x, y, c)
		}
	}
}

func hline(img *image.RGBA, x1, x2, y int, c color.RGBA) {
	for x := x1; x <= x2; x++ {
		img.SetRGBA(x, y, c)
	}
}

func vline(img *image.RGBA, x, y1, y2 int, c color.RGBA) {
	for y := y1; y <= y2; y++ {
		img.SetRGBA(x, y, c)
	}
}

// line draws with a simple integer Bresenham walk.
func line(img *image.RGBA, x1, y1, x2, y2 int, c color.RGBA) {
	dx := abs(x2 - x1)
	dy := -abs(y2 - y1)
	sx, sy := 1, 1
	if x1 > x2 {
		sx = -1
	}
	if y1 > y2 {
		sy = -1
	}
	err := dx + dy

	for {
		img.SetRGBA(x1, y1, c)
		if x1 == x2 && y1 == y2 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x1 += sx
		}
		if e2 <= dx {
			err += dx
			y1 += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func drawText(img *image.RGBA, x, y int, text string, c color.RGBA) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}
