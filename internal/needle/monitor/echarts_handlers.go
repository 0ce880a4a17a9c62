package monitor

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/smartneedle/needletrack/internal/httputil"
	"github.com/smartneedle/needletrack/internal/needle/trackdb"
)

// handleTrackingChart renders an HTML page charting the session's confidence
// grades and smoothed tip coordinates over cycles. Debugging-only endpoint;
// the clinical front end has its own display.
func (ws *WebServer) handleTrackingChart(w http.ResponseWriter, r *http.Request) {
	if ws.store == nil || ws.session == nil {
		httputil.NotFound(w, "no session store available")
		return
	}
	cycles, err := ws.store.GetCycles(ws.session.ID, 0)
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	if len(cycles) == 0 {
		httputil.NotFound(w, "no cycles recorded yet")
		return
	}

	page := BuildTrackingPage(ws.session.ID, cycles)
	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to render chart: %v", err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

// BuildTrackingPage assembles the confidence and position charts for one
// session. Shared by the live debug endpoint and the offline report tool.
func BuildTrackingPage(sessionID string, cycles []*trackdb.CycleRecord) *components.Page {
	x := make([]string, len(cycles))
	confData := make([]opts.LineData, len(cycles))
	rData := make([]opts.LineData, len(cycles))
	aData := make([]opts.LineData, len(cycles))
	sData := make([]opts.LineData, len(cycles))
	for i, c := range cycles {
		x[i] = fmt.Sprintf("%d %s", c.CycleNumber, c.Plane)
		confData[i] = opts.LineData{Value: c.Confidence}
		rData[i] = opts.LineData{Value: c.SmoothedRAS[0]}
		aData[i] = opts.LineData{Value: c.SmoothedRAS[1]}
		sData[i] = opts.LineData{Value: c.SmoothedRAS[2]}
	}

	confidence := charts.NewLine()
	confidence.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "360px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Tip Estimate Confidence",
			Subtitle: fmt.Sprintf("session=%s cycles=%d", sessionID, len(cycles)),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Min: 0, Max: 5, Name: "confidence"}),
	)
	confidence.SetXAxis(x).AddSeries("confidence", confData)

	position := charts.NewLine()
	position.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "480px"}),
		charts.WithTitleOpts(opts.Title{Title: "Smoothed Tip Position (RAS)"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Name: "mm"}),
	)
	position.SetXAxis(x).
		AddSeries("R", rData).
		AddSeries("A", aData).
		AddSeries("S", sData)

	page := components.NewPage()
	page.AddCharts(confidence, position)
	return page
}
