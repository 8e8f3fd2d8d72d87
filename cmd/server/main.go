package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"liyu1981.xyz/iot-presence-service/pkg/common"
	"liyu1981.xyz/iot-presence-service/pkg/db"
	iotHttp "liyu1981.xyz/iot-presence-service/pkg/http"
	iotMqtt "liyu1981.xyz/iot-presence-service/pkg/mqtt"
	"liyu1981.xyz/iot-presence-service/pkg/presence"
	"liyu1981.xyz/iot-presence-service/pkg/push"
)

func main() {
	var err error

	err = godotenv.Load()
	if err != nil {
		log.Fatal("Error loading .env file, copy .env.example to .env first if in development")
	}

	var dbInstance *db.DB
	iotDbType := os.Getenv(common.EnvKeyIOTDBType)
	switch iotDbType {
	case "file":
		dbInstance = db.GetInstance(db.UseSqliteDialector())
	case "memory":
		dbInstance = db.GetInstance(db.UseMemorySqliteDialector())
	default:
		log.Fatal("Unknown IOT_DB_TYPE: " + iotDbType)
	}

	brokerURL := strings.TrimSpace(os.Getenv(common.EnvKeyIOTMqttBrokerURL))
	if brokerURL == "" {
		log.Fatal("IOT_MQTT_BROKER_URL not set in .env")
	}

	topicPrefix := strings.TrimSpace(os.Getenv(common.EnvKeyIOTMqttTopicPrefix))
	if topicPrefix == "" {
		log.Fatal("IOT_MQTT_TOPIC_PREFIX not set in .env")
	}

	clientID := strings.TrimSpace(os.Getenv(common.EnvKeyIOTMqttClientID))
	if clientID == "" {
		clientID = "iot-presence-service"
	}

	credentialsFile := strings.TrimSpace(os.Getenv(common.EnvKeyIOTFcmCredentialsFile))
	if credentialsFile == "" {
		log.Fatal("IOT_FCM_CREDENTIALS_FILE not set in .env")
	}

	httpHostPort := strings.TrimSpace(os.Getenv(common.EnvKeyIOTHttpHostPort))
	if httpHostPort == "" {
		// fallback to default http port
		httpHostPort = ":1080"
	}

	var defaultRate float64
	var defaultBurst int64

	if defaultRate, err = strconv.ParseFloat(os.Getenv(common.EnvKeyIOTDefaultRate), 64); err != nil {
		log.Fatal("Invalid IOT_DEFAULT_RATE, or not set in .env, should be a float64 value")
	}

	if defaultBurst, err = strconv.ParseInt(os.Getenv(common.EnvKeyIOTDefaultBurst), 10, 64); err != nil {
		log.Fatal("Invalid IOT_DEFAULT_BURST, or not set in .env, should be an int value")
	}

	logger := common.GetLogger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gateway, err := push.NewFCMGateway(ctx, credentialsFile)
	if err != nil {
		log.Fatalf("Failed to init push gateway: %v", err)
	}

	core := &presence.Presence{
		Db:      *dbInstance,
		Cache:   presence.NewDeviceCache(),
		Cfg:     presence.ConfigFromEnv(),
		Gateway: gateway,
	}
	core.WithServices(presence.ServiceOpts{
		Tracker:  core.GetITracker(),
		Alerts:   core.GetIAlerts(),
		Owners:   core.GetIOwners(),
		Notifier: core.GetINotifier(),
	})

	if err := core.Tracker.LoadCache(); err != nil {
		logger.Warn("Cache warm-up failed, continuing with empty cache", zap.Error(err))
	}

	go core.RunSweeper(ctx)

	sub := &iotMqtt.Subscriber{Core: core, TopicPrefix: topicPrefix}
	client := iotMqtt.NewClient(
		brokerURL,
		clientID,
		os.Getenv(common.EnvKeyIOTMqttUsername),
		os.Getenv(common.EnvKeyIOTMqttPassword),
		sub,
	)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		log.Fatalf("Failed to connect to MQTT broker: %v", token.Error())
	}

	rs := &iotHttp.RestfulServer{
		Server:           gin.Default(),
		Core:             core,
		RateLimiterStore: presence.NewRateLimiterStore(rate.Limit(defaultRate), int(defaultBurst)),
	}
	rs.Setup()

	go func() {
		logger.Info("Starting HTTP server on: " + httpHostPort)
		if err := rs.Server.Run(httpHostPort); err != nil {
			log.Fatalf("http server failed to serve: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutdown signal received, disconnecting from MQTT broker")
	client.Disconnect(250)
}
