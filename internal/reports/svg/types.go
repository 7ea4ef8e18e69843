package svg

import "html/template"

// Series is one named line on the chart.
type Series struct {
	Label  string
	Color  string
	Values []float64
}

// LineOpts customises the multi-series line chart renderer.
type LineOpts struct {
	Title       string
	Description string
	AxisColor   string
	GridColor   string
	Padding     float64
	ShowDots    bool
	TickCount   int
}

// Renderer produces the chart markup. Satisfied by Lines; an interface so the
// PDF exporter can degrade gracefully in tests.
type Renderer interface {
	Lines(width, height int, series []Series, labels []string, opts LineOpts) (template.HTML, error)
}

// Defaults for the report charts.
const (
	DefaultWidth   = 720
	DefaultHeight  = 240
	DefaultPadding = 24.0
	DefaultTicks   = 6
)

// palette supplies series colors when a Series leaves Color empty.
var palette = []string{"#2563eb", "#16a34a", "#dc2626", "#d97706", "#7c3aed"}
