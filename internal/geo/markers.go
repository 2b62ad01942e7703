// Package geo готовит данные для карты: маркеры сот и тепловую карту KPI в GeoJSON.
package geo

import (
	"fmt"
	"strconv"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/xela07ax/ran-copilot/internal/domain"
)

// Палитра уровней, одна для маркеров, карточек и таблицы.
var tierColors = map[domain.Tier]string{
	domain.TierSuccess:  "#22C55E",
	domain.TierWarning:  "#F59E0B",
	domain.TierCritical: "#EF4444",
}

// TierColor возвращает цвет уровня; неизвестный уровень красится как critical.
func TierColor(t domain.Tier) string {
	if c, ok := tierColors[t]; ok {
		return c
	}
	return tierColors[domain.TierCritical]
}

// Markers строит по точке на каждую соту. Координаты GeoJSON: [lon, lat].
func Markers(cells []domain.CellStatus) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, c := range cells {
		tier := domain.StateTier(c.Status)

		f := geojson.NewFeature(orb.Point{c.Longitude, c.Latitude})
		f.ID = c.CellID
		f.Properties["cell_id"] = c.CellID
		f.Properties["status"] = string(c.Status)
		f.Properties["tier"] = string(tier)
		f.Properties["color"] = TierColor(tier)
		f.Properties["load_percentage"] = c.LoadPercentage
		f.Properties["rrc_success_rate"] = c.RRCSuccessRate
		f.Properties["popup"] = MarkerPopup(c)
		fc.Append(f)
	}
	return fc
}

// MarkerPopup: "Cell-123 | Optimal | Load 45% | RRC 96.5%".
func MarkerPopup(c domain.CellStatus) string {
	return fmt.Sprintf("%s | %s | Load %s%% | RRC %s%%",
		c.CellID, c.Status, formatNumber(c.LoadPercentage), formatNumber(c.RRCSuccessRate))
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
