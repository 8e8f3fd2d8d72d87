package http

import (
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
	"liyu1981.xyz/iot-presence-service/pkg/presence"
)

type RestfulServer struct {
	Server           *gin.Engine
	Core             *presence.Presence
	RateLimiterStore *presence.RateLimiterStore
}

func (rs *RestfulServer) GetLimiter(deviceID string) *rate.Limiter {
	if rs.RateLimiterStore == nil {
		return nil
	} else {
		return rs.RateLimiterStore.GetLimiter(deviceID)
	}
}

func (rs *RestfulServer) CheckDeviceLimiter(deviceID string) bool {
	limiter := rs.GetLimiter(deviceID)
	if limiter == nil {
		return true
	}
	return limiter.Allow()
}

func (rs *RestfulServer) SetLimiter(deviceID string, deviceRate float64, deviceBurst int) {
	if rs.RateLimiterStore == nil {
		return
	}
	rs.RateLimiterStore.SetLimiter(deviceID, rate.Limit(deviceRate), deviceBurst)
}

func (rs *RestfulServer) Setup() {
	rs.Server.GET("/healthz", rs.HealthCheck)

	devices := rs.Server.Group("/devices")
	{
		devices.GET("", rs.ListDevices)

		device := devices.Group("/:device_id")
		{
			device.GET("", rs.GetDevice)
			device.GET("/messages", rs.GetMessages)
			device.POST("/limiter", rs.PostLimiter)
		}
	}

	users := rs.Server.Group("/users/:user_id")
	{
		users.POST("/tokens", rs.RegisterToken)
	}
}
