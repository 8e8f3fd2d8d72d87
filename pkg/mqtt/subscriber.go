package mqtt

import (
	"strings"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
	"liyu1981.xyz/iot-presence-service/pkg/common"
	"liyu1981.xyz/iot-presence-service/pkg/models"
	"liyu1981.xyz/iot-presence-service/pkg/presence"
)

// Subscriber routes inbound device messages to the presence core. One
// subscription covers the whole fleet: <topic-prefix>/+/+.
type Subscriber struct {
	Core        *presence.Presence
	TopicPrefix string
}

func (s *Subscriber) TopicFilter() string {
	return strings.TrimSuffix(s.TopicPrefix, "/") + "/+/+"
}

func (s *Subscriber) Subscribe(client pahomqtt.Client) error {
	token := client.Subscribe(s.TopicFilter(), 0, s.HandleMessage)
	token.Wait()
	return token.Error()
}

// HandleMessage is the paho message callback. One bad event must never take
// the subscriber down, so everything is recovered and logged here.
func (s *Subscriber) HandleMessage(_ pahomqtt.Client, msg pahomqtt.Message) {
	logger := common.GetLoggerWith(common.LoggerNameMqttSubscriber)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("Panic while handling message",
				zap.String("topic", msg.Topic()),
				zap.Any("panic", r))
		}
	}()

	deviceID, messageType, err := Classify(msg.Topic())
	if err != nil {
		logger.Error("Unroutable topic", zap.String("topic", msg.Topic()), zap.Error(err))
		return
	}

	payload := string(msg.Payload())
	now := time.Now()

	var handleErr error
	switch messageType {
	case models.MessageTypeAvailability:
		handleErr = s.Core.Tracker.HandleAvailability(deviceID, payload, now)
	case models.MessageTypeHeartbeat:
		handleErr = s.Core.Tracker.HandleHeartbeat(deviceID, payload, now)
	case models.MessageTypeAlert:
		handleErr = s.Core.Alerts.HandleAlert(deviceID, payload, now)
	default:
		// query and any unrecognized type are logged verbatim
		handleErr = s.Core.LogMessage(deviceID, messageType, payload, now)
	}

	if handleErr != nil {
		logger.Error("Failed to handle message",
			zap.String("device_id", deviceID),
			zap.String("type", messageType),
			zap.Error(handleErr))
	}
}

// NewClient builds a paho client that (re-)subscribes on every connect, so a
// broker reconnect restores the subscription.
func NewClient(brokerURL string, clientID string, username string, password string, sub *Subscriber) pahomqtt.Client {
	logger := common.GetLoggerWith(common.LoggerNameMqttSubscriber)

	opts := pahomqtt.NewClientOptions().
		AddBroker(brokerURL).
		SetClientID(clientID).
		SetAutoReconnect(true)

	if username != "" {
		opts.SetUsername(username)
		opts.SetPassword(password)
	}

	opts.SetOnConnectHandler(func(client pahomqtt.Client) {
		logger.Info("Connected to MQTT broker", zap.String("broker", brokerURL))
		if err := sub.Subscribe(client); err != nil {
			logger.Error("MQTT subscribe failed",
				zap.String("filter", sub.TopicFilter()),
				zap.Error(err))
			return
		}
		logger.Info("Subscribed", zap.String("filter", sub.TopicFilter()))
	})

	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		logger.Error("MQTT connection lost", zap.Error(err))
	})

	return pahomqtt.NewClient(opts)
}
