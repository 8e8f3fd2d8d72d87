package common

const (
	EnvKeyGoEnv string = "GO_ENV"

	EnvKeyRunIntegrationTests string = "RUN_INTEGRATION_TESTS"

	EnvKeyIOTDBType  string = "IOT_DB_TYPE"
	EnvKeyIOTDbPath  string = "IOT_DB_PATH"
	EnvKeyIOTLogsDir string = "IOT_LOGS_DIR"

	EnvKeyIOTHttpHostPort string = "IOT_HTTP_HOST_PORT"

	EnvKeyIOTMqttBrokerURL   string = "IOT_MQTT_BROKER_URL"
	EnvKeyIOTMqttClientID    string = "IOT_MQTT_CLIENT_ID"
	EnvKeyIOTMqttUsername    string = "IOT_MQTT_USERNAME"
	EnvKeyIOTMqttPassword    string = "IOT_MQTT_PASSWORD"
	EnvKeyIOTMqttTopicPrefix string = "IOT_MQTT_TOPIC_PREFIX"

	EnvKeyIOTFcmCredentialsFile string = "IOT_FCM_CREDENTIALS_FILE"

	EnvKeyIOTDefaultRate  string = "IOT_DEFAULT_RATE"
	EnvKeyIOTDefaultBurst string = "IOT_DEFAULT_BURST"

	EnvKeyIOTRevalidationWindow string = "IOT_REVALIDATION_WINDOW"
	EnvKeyIOTDedupWindow        string = "IOT_DEDUP_WINDOW"
	EnvKeyIOTSweepInterval      string = "IOT_SWEEP_INTERVAL"
	EnvKeyIOTOfflineThreshold   string = "IOT_OFFLINE_THRESHOLD"

	LoggerNamePresenceCore   string = "presence_core"
	LoggerNameRestfulServer  string = "restful_server"
	LoggerNameMqttSubscriber string = "mqtt_subscriber"

	LoggerFieldCategory string = "category"

	LoggerCategoryAvailability string = "availability"
	LoggerCategoryHeartbeat    string = "heartbeat"
	LoggerCategoryAlert        string = "alert"
	LoggerCategoryOwners       string = "owners"
	LoggerCategoryFanout       string = "fanout"
	LoggerCategorySweep        string = "sweep"
	LoggerCategoryMessageLog   string = "message_log"
)
