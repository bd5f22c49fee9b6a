package httpapi

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"

	"github.com/i474232898/pm25-forecast/internal/common"
	"github.com/i474232898/pm25-forecast/internal/logger"
	"github.com/i474232898/pm25-forecast/internal/predictor"
)

const (
	chartWidth   = 720
	chartHeight  = 260
	chartPadding = 40
)

var page = template.Must(template.New("page").Funcs(template.FuncMap{"join": strings.Join}).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>PM2.5 next-day forecast</title>
<style>
body { font-family: sans-serif; max-width: 800px; margin: 2em auto; color: #222; }
.metric { font-size: 2.4em; font-weight: bold; }
.error { color: #a00; }
.note { color: #666; font-size: 0.9em; }
svg { border: 1px solid #ddd; }
</style>
</head>
<body>
<h1>PM2.5 next-day forecast</h1>
<form method="get" action="/">
<input type="text" name="city" value="{{.City}}" placeholder="City, e.g. Delhi">
<button type="submit">Predict</button>
</form>
{{if .Message}}<p class="error">{{.Message}}</p>{{end}}
{{with .Prediction}}
<h2>{{.City}} ({{printf "%.4f, %.4f" .Coordinate.Latitude .Coordinate.Longitude}})</h2>
<p>Predicted PM2.5 for {{.TargetDate.Format "2006-01-02"}}</p>
<p class="metric">{{printf "%.2f" .PM25}} µg/m³</p>
<p>Latest observed daily mean: {{printf "%.2f" .LatestPM25}} µg/m³ on {{.LatestDate.Format "2006-01-02"}}</p>
{{if .Fallback}}<p class="note">Some features used the earliest available value: {{join .Fallback ", "}}</p>{{end}}
{{end}}
{{with .Chart}}
<h3>Daily PM2.5</h3>
<svg width="{{.Width}}" height="{{.Height}}" viewBox="0 0 {{.Width}} {{.Height}}" role="img" aria-label="Daily PM2.5">
<polyline fill="none" stroke="#3366cc" stroke-width="2" points="{{.Points}}"/>
<circle cx="{{.NextX}}" cy="{{.NextY}}" r="4" fill="#cc3333"/>
<text x="4" y="{{.TopY}}" font-size="11">{{printf "%.0f" .Max}}</text>
<text x="4" y="{{.BottomY}}" font-size="11">{{printf "%.0f" .Min}}</text>
<text x="{{.LeftX}}" y="{{.Height}}" font-size="11" dy="-4">{{.FirstDate}}</text>
<text x="{{.RightX}}" y="{{.Height}}" font-size="11" dy="-4" text-anchor="end">{{.LastDate}}</text>
</svg>
{{end}}
<p class="note">The forecast reuses the latest day's weather as a proxy for tomorrow. Retrain the model regularly.</p>
</body>
</html>
`))

type pageData struct {
	City       string
	Message    string
	Prediction *predictor.Prediction
	Chart      *chart
}

type chart struct {
	Width     int
	Height    int
	Points    string
	NextX     float64
	NextY     float64
	Min       float64
	Max       float64
	TopY      float64
	BottomY   float64
	LeftX     float64
	RightX    float64
	FirstDate string
	LastDate  string
}

func renderPage(c *fiber.Ctx, forecaster Forecaster) error {
	data := pageData{City: strings.TrimSpace(utils.CopyString(c.Query("city")))}
	status := fiber.StatusOK

	if data.City != "" {
		pred, err := forecaster.Predict(c.UserContext(), data.City)
		if err != nil {
			status = StatusFor(err)
			data.Message = predictor.UserMessage(err)
		} else {
			data.Prediction = pred
			data.Chart = newChart(pred)
		}
	}

	var buf bytes.Buffer
	if err := page.Execute(&buf, data); err != nil {
		logger.Errorf("render page: %v", err)
		return fiber.NewError(fiber.StatusInternalServerError, "failed to render page")
	}
	c.Status(status).Type("html", "utf-8")
	return c.Send(buf.Bytes())
}

// newChart scales the daily history plus the forecast point into the SVG box.
// It returns nil when there is nothing to draw.
func newChart(p *predictor.Prediction) *chart {
	n := len(p.History)
	if n == 0 {
		return nil
	}

	lo, hi := p.PM25, p.PM25
	for _, pt := range p.History {
		lo = min(lo, pt.PM25)
		hi = max(hi, pt.PM25)
	}
	if hi == lo {
		hi = lo + 1
	}

	plotW := float64(chartWidth - 2*chartPadding)
	plotH := float64(chartHeight - 2*chartPadding)
	// n history points plus the forecast give n steps.
	step := plotW / float64(n)
	x := func(i int) float64 { return float64(chartPadding) + step*float64(i) }
	y := func(v float64) float64 { return float64(chartPadding) + plotH*(hi-v)/(hi-lo) }

	pts := make([]string, n)
	for i, pt := range p.History {
		pts[i] = fmt.Sprintf("%.1f,%.1f", x(i), y(pt.PM25))
	}

	return &chart{
		Width:     chartWidth,
		Height:    chartHeight,
		Points:    strings.Join(pts, " "),
		NextX:     x(n),
		NextY:     y(p.PM25),
		Min:       lo,
		Max:       hi,
		TopY:      y(hi),
		BottomY:   y(lo),
		LeftX:     x(0),
		RightX:    x(n),
		FirstDate: p.History[0].Date.Format(common.DateLayout),
		LastDate:  p.TargetDate.Format(common.DateLayout),
	}
}
