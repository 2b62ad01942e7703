package domain

// Статичные наборы данных, которые подставляются во вью, если бэкенд недоступен.
// Функции возвращают свежие копии, чтобы вызывающий код не портил эталон.

func FallbackKPIs() DashboardKPIs {
	return DashboardKPIs{
		RRCSuccessRate: 98.2,
		ActiveCells:    1247,
		CriticalAlarms: 3,
		NetworkLoad:    67,
		Status:         NetworkOperational,
	}
}

func FallbackCells() []CellStatus {
	return []CellStatus{
		{CellID: "Cell-123", Latitude: 40.7128, Longitude: -74.0060, Status: CellOptimal, LoadPercentage: 45, RRCSuccessRate: 96.5},
		{CellID: "Cell-456", Latitude: 40.7589, Longitude: -73.9851, Status: CellDegraded, LoadPercentage: 87, RRCSuccessRate: 93.2},
		{CellID: "Cell-789", Latitude: 40.7306, Longitude: -73.9352, Status: CellCritical, LoadPercentage: 92, RRCSuccessRate: 91.8},
	}
}

func FallbackTimeSeries() []TimeSeriesData {
	return []TimeSeriesData{
		{Timestamp: "00:00", RRCSuccessRate: 96.5, HandoverSuccessRate: 98.2, ThroughputMbps: 450},
		{Timestamp: "04:00", RRCSuccessRate: 97.1, HandoverSuccessRate: 98.5, ThroughputMbps: 380},
		{Timestamp: "08:00", RRCSuccessRate: 94.8, HandoverSuccessRate: 97.8, ThroughputMbps: 720},
		{Timestamp: "12:00", RRCSuccessRate: 93.2, HandoverSuccessRate: 96.9, ThroughputMbps: 890},
		{Timestamp: "16:00", RRCSuccessRate: 95.4, HandoverSuccessRate: 97.5, ThroughputMbps: 950},
		{Timestamp: "20:00", RRCSuccessRate: 96.8, HandoverSuccessRate: 98.1, ThroughputMbps: 680},
	}
}

func FallbackPerformance() []CellPerformance {
	return []CellPerformance{
		{CellID: "Cell-123", RRCSuccessRate: 96.5, HandoverSuccessRate: 98.2, NetworkLoad: 45, ActiveAlarms: 0, Status: CellOptimal},
		{CellID: "Cell-456", RRCSuccessRate: 93.2, HandoverSuccessRate: 96.9, NetworkLoad: 87, ActiveAlarms: 2, Status: CellDegraded},
		{CellID: "Cell-789", RRCSuccessRate: 91.8, HandoverSuccessRate: 95.1, NetworkLoad: 92, ActiveAlarms: 4, Status: CellCritical},
		{CellID: "Cell-234", RRCSuccessRate: 97.3, HandoverSuccessRate: 99.1, NetworkLoad: 38, ActiveAlarms: 0, Status: CellOptimal},
		{CellID: "Cell-567", RRCSuccessRate: 95.8, HandoverSuccessRate: 97.6, NetworkLoad: 62, ActiveAlarms: 1, Status: CellOptimal},
	}
}

// Greeting - первое сообщение ассистента в новой ленте.
const Greeting = "Hello! I'm your RAN Co-pilot. I can help you diagnose network issues, analyze KPIs, and optimize cell parameters. How can I assist you today?"

// Apology подставляется вместо ответа агента при любой ошибке транспорта.
const Apology = "Sorry, I couldn't reach the RAN Co-pilot agent right now. Please try again in a moment."
