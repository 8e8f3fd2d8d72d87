package http

import (
	"errors"
	"net/http"
	"strconv"

	"gorm.io/gorm"
	"liyu1981.xyz/iot-presence-service/pkg/models"

	"github.com/gin-gonic/gin"

	z "github.com/Oudwins/zog"
	"github.com/Oudwins/zog/zhttp"
)

func (rs *RestfulServer) ListDevices(c *gin.Context) {
	var devices []models.Device
	if err := rs.Core.Db.Conn.Find(&devices).Error; err != nil {
		c.JSON(http.StatusInternalServerError, err)
		return
	}

	c.JSON(http.StatusOK, devices)
}

func (rs *RestfulServer) GetDevice(c *gin.Context) {
	deviceID := c.Param("device_id")

	if !rs.CheckDeviceLimiter(deviceID) {
		c.Status(http.StatusTooManyRequests)
		return
	}

	var device models.Device
	if err := rs.Core.Db.Conn.First(&device, "device_id = ?", deviceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.Status(http.StatusNotFound)
			return
		}
		c.JSON(http.StatusInternalServerError, err)
		return
	}

	c.JSON(http.StatusOK, device)
}

const (
	defaultMessageLimit = 20
	maxMessageLimit     = 100
)

func (rs *RestfulServer) GetMessages(c *gin.Context) {
	deviceID := c.Param("device_id")

	if !rs.CheckDeviceLimiter(deviceID) {
		c.Status(http.StatusTooManyRequests)
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultMessageLimit)))
	if err != nil || limit < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
		return
	}
	if limit > maxMessageLimit {
		limit = maxMessageLimit
	}

	var messages []models.MessageLog
	if err := rs.Core.Db.Conn.
		Where("device_id = ?", deviceID).
		Order("timestamp desc").
		Limit(limit).
		Find(&messages).Error; err != nil {
		c.JSON(http.StatusInternalServerError, err)
		return
	}

	c.JSON(http.StatusOK, messages)
}

type TokenRequest struct {
	Token string `json:"token"`
}

var tokenRequestSchema = z.Struct(z.Shape{
	"Token": z.String().Min(1).Required(),
})

// RegisterToken activates a push token for a user, reviving it if the
// fanout path pruned it earlier.
func (rs *RestfulServer) RegisterToken(c *gin.Context) {
	userID := c.Param("user_id")

	var req TokenRequest
	if err := tokenRequestSchema.Parse(zhttp.Request(c.Request), &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err})
		return
	}

	conn := rs.Core.Db.Conn

	var existing models.PushToken
	err := conn.Where("user_id = ? AND token = ?", userID, req.Token).First(&existing).Error
	switch {
	case err == nil:
		existing.Active = true
		if err := conn.Save(&existing).Error; err != nil {
			c.JSON(http.StatusInternalServerError, err)
			return
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		token := models.PushToken{UserID: userID, Token: req.Token, Active: true}
		if err := conn.Create(&token).Error; err != nil {
			c.JSON(http.StatusInternalServerError, err)
			return
		}
	default:
		c.JSON(http.StatusInternalServerError, err)
		return
	}

	c.Status(http.StatusOK)
}

type LimiterRequest struct {
	Rate  float64 `json:"rate"`
	Burst int     `json:"burst"`
}

var limiterRequestSchema = z.Struct(z.Shape{
	"rate":  z.Float64().Required(),
	"burst": z.Int().Required(),
})

func (rs *RestfulServer) PostLimiter(c *gin.Context) {
	deviceID := c.Param("device_id")

	var req LimiterRequest
	if err := limiterRequestSchema.Parse(zhttp.Request(c.Request), &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err})
		return
	}

	rs.SetLimiter(deviceID, req.Rate, req.Burst)

	c.Status(http.StatusOK)
}

func (rs *RestfulServer) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
