package topics

const (
	// Alertas novos para o notificador (email, chat, ...) e o monitor-api
	RacingAlerts = "racing_alerts"
)

// Redis
const (
	// Canal pub/sub com a última comparação ranqueada
	ComparisonBroadcast = "racing_comparison_broadcast"

	// Chave com a última comparação do dia: "racing:comparison:<date>"
	ComparisonKeyPrefix = "racing:comparison:"

	LedgerKeyPrefix = "racing:ledger"
)
