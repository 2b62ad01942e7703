package domain

// CellState - статус соты, общий для карты и таблицы.
type CellState string

const (
	CellOptimal  CellState = "Optimal"
	CellDegraded CellState = "Degraded"
	CellCritical CellState = "Critical"
)

// CellStatus - сота с координатами для карты.
// Уникальность CellID не проверяется, бэкенду доверяем.
type CellStatus struct {
	CellID         string    `json:"cell_id"`
	Latitude       float64   `json:"latitude"`
	Longitude      float64   `json:"longitude"`
	Status         CellState `json:"status"`
	LoadPercentage float64   `json:"load_percentage"`
	RRCSuccessRate float64   `json:"rrc_success_rate"`
}

// CellPerformance - строка таблицы производительности.
// Независима от CellStatus: отдельный эндпоинт, join не делаем.
type CellPerformance struct {
	CellID              string    `json:"cell_id"`
	RRCSuccessRate      float64   `json:"rrc_success_rate"`
	HandoverSuccessRate float64   `json:"handover_success_rate"`
	NetworkLoad         float64   `json:"network_load"`
	ActiveAlarms        int       `json:"active_alarms"`
	Status              CellState `json:"status"`
}

// TimeSeriesData - одна точка аналитики. Порядок по времени задает бэкенд.
type TimeSeriesData struct {
	Timestamp           string  `json:"timestamp"`
	RRCSuccessRate      float64 `json:"rrc_success_rate"`
	HandoverSuccessRate float64 `json:"handover_success_rate"`
	ThroughputMbps      float64 `json:"throughput_mbps"`
}
