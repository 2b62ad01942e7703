package infra

const (
	// RedisNamespace Базовый префикс для изоляции данных проекта в Redis
	RedisNamespace = "ran-copilot"
)

// Каналы Pub/Sub (события)
const (
	// RedisChanNotifications - уведомления вью для всех реплик консоли.
	RedisChanNotifications = RedisNamespace + ":console:notifications"
)
