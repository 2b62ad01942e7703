package domain

// NetworkStatus - грубая оценка состояния сети в шапке дашборда.
type NetworkStatus string

const (
	NetworkOperational NetworkStatus = "Operational"
	NetworkDegraded    NetworkStatus = "Degraded"
	NetworkCritical    NetworkStatus = "Critical"
)

// DashboardKPIs - агрегированный снимок KPI. Обновляется целиком при каждом опросе.
type DashboardKPIs struct {
	RRCSuccessRate float64       `json:"rrc_success_rate"`
	ActiveCells    int           `json:"active_cells"`
	CriticalAlarms int           `json:"critical_alarms"`
	NetworkLoad    float64       `json:"network_load"`
	Status         NetworkStatus `json:"status"`
}

// Health - ответ /ping бэкенда.
type Health struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}
