package presence

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"liyu1981.xyz/iot-presence-service/pkg/common"
	"liyu1981.xyz/iot-presence-service/pkg/models"
	"liyu1981.xyz/iot-presence-service/pkg/push"
)

type FanoutResult struct {
	TotalTokens int
	Successful  int
	Failed      int
}

type tokenOutcome struct {
	token string
	err   error
}

func tokenPrefix(token string) string {
	if len(token) > 20 {
		return token[:20] + "..."
	}
	return token
}

func (p *Presence) notify(owner Owner, deviceID string, alert AlertPayload) (FanoutResult, error) {
	logger := common.GetLoggerWith(
		common.LoggerNamePresenceCore,
		zap.String(common.LoggerFieldCategory, common.LoggerCategoryFanout),
	)

	if len(owner.Tokens) == 0 {
		logger.Info("No push tokens for user", zap.String("user_id", owner.UserID))
		return FanoutResult{}, nil
	}

	msg := &push.Message{
		Title: fmt.Sprintf("Security Alert - %s", owner.DisplayName),
		Body:  alert.Message,
		Data: map[string]string{
			"deviceId":  deviceID,
			"alertType": alert.Category,
			"timestamp": strconv.FormatInt(time.Now().UnixMilli(), 10),
			"message":   alert.Message,
			"location":  alert.Location,
			"severity":  alert.Severity,
		},
	}

	outcomes := make([]tokenOutcome, len(owner.Tokens))
	var wg sync.WaitGroup
	for i, token := range owner.Tokens {
		wg.Add(1)
		go func(i int, token string) {
			defer wg.Done()
			outcomes[i] = tokenOutcome{
				token: token,
				err:   p.Gateway.Send(context.Background(), token, msg),
			}
		}(i, token)
	}
	wg.Wait()

	for _, o := range outcomes {
		switch {
		case o.err == nil:
			logger.Info("Push notification delivered",
				zap.String("user_id", owner.UserID),
				zap.String("token", tokenPrefix(o.token)))
		case push.IsTokenNotRegistered(o.err):
			if err := p.Db.Conn.
				Where("user_id = ? AND token = ?", owner.UserID, o.token).
				Delete(&models.PushToken{}).Error; err != nil {
				logger.Error("Failed to remove unregistered token",
					zap.String("user_id", owner.UserID),
					zap.String("token", tokenPrefix(o.token)),
					zap.Error(err))
			} else {
				logger.Info("Removed unregistered token",
					zap.String("user_id", owner.UserID),
					zap.String("token", tokenPrefix(o.token)))
			}
		default:
			logger.Error("Push delivery failed",
				zap.String("user_id", owner.UserID),
				zap.String("token", tokenPrefix(o.token)),
				zap.Error(o.err))
		}
	}

	result := common.Reducer(outcomes, func(acc FanoutResult, o tokenOutcome) FanoutResult {
		acc.TotalTokens++
		if o.err == nil {
			acc.Successful++
		} else {
			acc.Failed++
		}
		return acc
	}, FanoutResult{})

	logger.Info("Fanout complete for user",
		zap.String("user_id", owner.UserID),
		zap.Int("total", result.TotalTokens),
		zap.Int("successful", result.Successful),
		zap.Int("failed", result.Failed))
	return result, nil
}

type INotifierImpl struct {
	presence *Presence
}

func (in *INotifierImpl) Notify(owner Owner, deviceID string, alert AlertPayload) (FanoutResult, error) {
	return in.presence.notify(owner, deviceID, alert)
}

func (p *Presence) GetINotifier() INotifier {
	return &INotifierImpl{presence: p}
}
