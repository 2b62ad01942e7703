package domain

// Tier - цветовой уровень для карточек, таблицы и маркеров карты.
type Tier string

const (
	TierSuccess  Tier = "success"
	TierWarning  Tier = "warning"
	TierCritical Tier = "critical"
)

// Границы уровней фиксированы и не зависят от данных.
const (
	SuccessRateGood = 95.0
	SuccessRateWarn = 90.0

	LoadWarn     = 60.0
	LoadCritical = 85.0

	HandoverGood = 97.0
	HandoverWarn = 95.0
)

// SuccessRateTier: >=95 success, [90,95) warning, <90 critical.
func SuccessRateTier(rate float64) Tier {
	switch {
	case rate >= SuccessRateGood:
		return TierSuccess
	case rate >= SuccessRateWarn:
		return TierWarning
	default:
		return TierCritical
	}
}

// LoadTier: <60 success, [60,85) warning, >=85 critical.
func LoadTier(load float64) Tier {
	switch {
	case load >= LoadCritical:
		return TierCritical
	case load >= LoadWarn:
		return TierWarning
	default:
		return TierSuccess
	}
}

func HandoverTier(rate float64) Tier {
	switch {
	case rate >= HandoverGood:
		return TierSuccess
	case rate >= HandoverWarn:
		return TierWarning
	default:
		return TierCritical
	}
}

// StateTier переводит статус соты в цветовой уровень маркера.
func StateTier(s CellState) Tier {
	switch s {
	case CellOptimal:
		return TierSuccess
	case CellDegraded:
		return TierWarning
	default:
		return TierCritical
	}
}

// NetworkTier - уровень для бейджа состояния в шапке.
func NetworkTier(s NetworkStatus) Tier {
	switch s {
	case NetworkOperational:
		return TierSuccess
	case NetworkDegraded:
		return TierWarning
	default:
		return TierCritical
	}
}
