package geo

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/xela07ax/ran-copilot/internal/domain"
)

// Шкала тепловой карты (dBm): HeatFloor дает вес 0, HeatCeil дает 1, остальное обрезается.
const (
	HeatFloor = -120.0
	HeatCeil  = -60.0
)

type colorStop struct {
	weight  float64
	r, g, b uint8
}

// От красного через оранжевый к зеленому.
var heatStops = []colorStop{
	{0, 0xFF, 0x00, 0x00},
	{0.5, 0xFF, 0xA5, 0x00},
	{1, 0x00, 0xFF, 0x00},
}

// HeatWeight = clamp((v+120)/60, 0, 1). NaN считается минимумом.
func HeatWeight(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	w := (v - HeatFloor) / (HeatCeil - HeatFloor)
	return math.Max(0, math.Min(1, w))
}

// HeatColor интерполирует цвет между опорными точками по весу значения.
func HeatColor(v float64) string {
	w := HeatWeight(v)
	for i := 1; i < len(heatStops); i++ {
		lo, hi := heatStops[i-1], heatStops[i]
		if w > hi.weight {
			continue
		}
		t := (w - lo.weight) / (hi.weight - lo.weight)
		return fmt.Sprintf("#%02X%02X%02X", lerp(lo.r, hi.r, t), lerp(lo.g, hi.g, t), lerp(lo.b, hi.b, t))
	}
	last := heatStops[len(heatStops)-1]
	return fmt.Sprintf("#%02X%02X%02X", last.r, last.g, last.b)
}

func lerp(a, b uint8, t float64) uint8 {
	return uint8(math.Round(float64(a) + (float64(b)-float64(a))*t))
}

// Heatmap размечает точки коллекции: weight, color и popup.
// Цвет, пришедший от бэкенда, сохраняется. Точки без числового value отбрасываются:
// на тепловом слое их нечем рисовать.
func Heatmap(in *geojson.FeatureCollection) *geojson.FeatureCollection {
	out := geojson.NewFeatureCollection()
	if in == nil {
		return out
	}
	for _, f := range in.Features {
		v, ok := numericValue(f.Properties["value"])
		if !ok {
			continue
		}
		nf := geojson.NewFeature(f.Geometry)
		nf.ID = f.ID
		for k, val := range f.Properties {
			nf.Properties[k] = val
		}
		nf.Properties["value"] = v
		nf.Properties["weight"] = HeatWeight(v)
		if c, _ := nf.Properties["color"].(string); c == "" {
			nf.Properties["color"] = HeatColor(v)
		}
		nf.Properties["popup"] = HeatPopup(v, f.Geometry)
		out.Append(nf)
	}
	return out
}

// HeatPopup: "-84.2 at 40.7128, -74.0060" (широта, затем долгота).
func HeatPopup(v float64, g orb.Geometry) string {
	p, ok := g.(orb.Point)
	if !ok {
		return fmt.Sprintf("%.1f", v)
	}
	return fmt.Sprintf("%.1f at %.4f, %.4f", v, p.Lat(), p.Lon())
}

// FallbackHeatmap - три точки на демонстрационных сотах.
func FallbackHeatmap() *geojson.FeatureCollection {
	values := []float64{-84.2, -97.6, -115.1}
	colors := []string{"#00FF00", "#FFA500", "#FF0000"}

	fc := geojson.NewFeatureCollection()
	for i, c := range domain.FallbackCells() {
		f := geojson.NewFeature(orb.Point{c.Longitude, c.Latitude})
		f.Properties["value"] = values[i]
		f.Properties["color"] = colors[i]
		fc.Append(f)
	}
	return fc
}

func numericValue(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, !math.IsNaN(n)
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
