package svg

import (
	"fmt"
	"html/template"
	"math"
	"strings"
)

// Lines renders a responsive multi-series SVG line chart over a shared x-axis.
func Lines(width, height int, series []Series, labels []string, opts LineOpts) (template.HTML, error) {
	if len(series) == 0 {
		return "", fmt.Errorf("svg: series required")
	}
	for _, s := range series {
		if len(s.Values) != len(labels) {
			return "", fmt.Errorf("svg: series %q length must match labels", s.Label)
		}
	}
	if len(labels) == 0 {
		return "", fmt.Errorf("svg: labels required")
	}
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}
	padding := opts.Padding
	if padding <= 0 {
		padding = DefaultPadding
	}
	tickCount := opts.TickCount
	if tickCount <= 0 {
		tickCount = DefaultTicks
	}
	axisColor := fallback(opts.AxisColor, "#475569")
	gridColor := fallback(opts.GridColor, "#cbd5f5")

	chartWidth := float64(width) - 2*padding
	chartHeight := float64(height) - 2*padding
	if chartWidth <= 0 || chartHeight <= 0 {
		return "", fmt.Errorf("svg: viewport too small")
	}

	minVal, maxVal := bounds(series)
	if minVal > 0 {
		minVal = 0
	}
	if maxVal < 0 {
		maxVal = 0
	}
	if almostEqual(maxVal, minVal) {
		maxVal = minVal + 1
	}
	scale := chartHeight / (maxVal - minVal)

	step := 0.0
	if len(labels) > 1 {
		step = chartWidth / float64(len(labels)-1)
	}
	xAt := func(i int) float64 {
		if len(labels) > 1 {
			return padding + float64(i)*step
		}
		return padding + chartWidth/2
	}
	yAt := func(v float64) float64 {
		return padding + chartHeight - (v-minVal)*scale
	}

	titleID := makeID(opts.Title, "lines-title")
	descID := makeID(opts.Title, "lines-desc")

	var b strings.Builder
	b.WriteString(fmt.Sprintf("<svg xmlns=\"http://www.w3.org/2000/svg\" viewBox=\"0 0 %d %d\" role=\"img\" aria-labelledby=\"%s %s\">", width, height, titleID, descID))
	b.WriteString(fmt.Sprintf("<title id=\"%s\">%s</title>", titleID, template.HTMLEscapeString(fallback(opts.Title, "Line chart"))))
	b.WriteString(fmt.Sprintf("<desc id=\"%s\">%s</desc>", descID, template.HTMLEscapeString(fallback(opts.Description, "Trend data"))))

	// Grid lines and ticks
	for i := 0; i <= tickCount; i++ {
		ratio := float64(i) / float64(tickCount)
		y := padding + chartHeight - ratio*chartHeight
		value := minVal + (maxVal-minVal)*ratio
		b.WriteString(fmt.Sprintf("<line x1=\"%.2f\" y1=\"%.2f\" x2=\"%.2f\" y2=\"%.2f\" stroke=\"%s\" stroke-width=\"0.5\" stroke-dasharray=\"2,4\" aria-hidden=\"true\"></line>", padding, y, padding+chartWidth, y, gridColor))
		b.WriteString(fmt.Sprintf("<text x=\"%.2f\" y=\"%.2f\" fill=\"%s\" font-size=\"10\" text-anchor=\"end\">%s</text>", padding-6, y+4, axisColor, template.HTMLEscapeString(formatTick(value))))
	}

	// Axes
	b.WriteString(fmt.Sprintf("<g stroke=\"%s\" aria-label=\"Axes\">", axisColor))
	b.WriteString(fmt.Sprintf("<line x1=\"%.2f\" y1=\"%.2f\" x2=\"%.2f\" y2=\"%.2f\" stroke-width=\"1\"></line>", padding, padding, padding, padding+chartHeight))
	b.WriteString(fmt.Sprintf("<line x1=\"%.2f\" y1=\"%.2f\" x2=\"%.2f\" y2=\"%.2f\" stroke-width=\"1\"></line>", padding, padding+chartHeight, padding+chartWidth, padding+chartHeight))
	b.WriteString("</g>")

	// One path per series
	for si, s := range series {
		color := s.Color
		if color == "" {
			color = palette[si%len(palette)]
		}
		var path strings.Builder
		for i, value := range s.Values {
			x := xAt(i)
			y := yAt(value)
			if i == 0 {
				path.WriteString(fmt.Sprintf("M%.2f %.2f", x, y))
			} else {
				path.WriteString(fmt.Sprintf(" L%.2f %.2f", x, y))
			}
		}
		b.WriteString(fmt.Sprintf("<path d=\"%s\" fill=\"none\" stroke=\"%s\" stroke-width=\"2\" stroke-linejoin=\"round\" stroke-linecap=\"round\" aria-label=\"%s\"></path>", path.String(), color, template.HTMLEscapeString(s.Label)))
		if opts.ShowDots {
			for i, value := range s.Values {
				b.WriteString(fmt.Sprintf("<circle cx=\"%.2f\" cy=\"%.2f\" r=\"2.5\" fill=\"%s\" aria-hidden=\"true\"></circle>", xAt(i), yAt(value), color))
			}
		}
	}

	// X labels, thinned so long ranges stay legible
	labelEvery := 1
	if len(labels) > 12 {
		labelEvery = (len(labels) + 11) / 12
	}
	for i, label := range labels {
		if i%labelEvery != 0 && i != len(labels)-1 {
			continue
		}
		b.WriteString(fmt.Sprintf("<text x=\"%.2f\" y=\"%.2f\" fill=\"%s\" font-size=\"10\" text-anchor=\"middle\">%s</text>", xAt(i), padding+chartHeight+14, axisColor, template.HTMLEscapeString(label)))
	}

	// Legend
	legendX := padding
	for si, s := range series {
		color := s.Color
		if color == "" {
			color = palette[si%len(palette)]
		}
		b.WriteString(fmt.Sprintf("<rect x=\"%.2f\" y=\"6\" width=\"10\" height=\"10\" fill=\"%s\"></rect>", legendX, color))
		b.WriteString(fmt.Sprintf("<text x=\"%.2f\" y=\"15\" fill=\"%s\" font-size=\"10\">%s</text>", legendX+14, axisColor, template.HTMLEscapeString(s.Label)))
		legendX += 14 + 7*float64(len(s.Label)) + 16
	}

	b.WriteString("</svg>")
	return template.HTML(b.String()), nil
}

func bounds(series []Series) (float64, float64) {
	minVal := math.Inf(1)
	maxVal := math.Inf(-1)
	for _, s := range series {
		for _, v := range s.Values {
			if v < minVal {
				minVal = v
			}
			if v > maxVal {
				maxVal = v
			}
		}
	}
	if math.IsInf(minVal, 1) {
		return 0, 0
	}
	return minVal, maxVal
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func fallback(value, def string) string {
	if strings.TrimSpace(value) == "" {
		return def
	}
	return value
}

func formatTick(value float64) string {
	abs := math.Abs(value)
	switch {
	case abs >= 1_000_000:
		return fmt.Sprintf("%.1fM", value/1_000_000)
	case abs >= 1_000:
		return fmt.Sprintf("%.1fk", value/1_000)
	default:
		return fmt.Sprintf("%.0f", value)
	}
}

func makeID(seed, prefix string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '-'
		}
	}, strings.ToLower(seed))
	cleaned = strings.Trim(cleaned, "-")
	if cleaned == "" {
		return prefix
	}
	return prefix + "-" + cleaned
}
