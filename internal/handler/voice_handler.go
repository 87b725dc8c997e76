package handler

import (
	"voicetask/internal/pkg/logger"
	"voicetask/internal/pkg/serverutils"
	internalWS "voicetask/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

const defaultDeviceID = "default"

type VoiceHandler struct {
	hub       *internalWS.Hub
	cfg       internalWS.VoiceConfig
	jwtSecret string
	logger    logger.ILogger
}

func NewVoiceHandler(hub *internalWS.Hub, cfg internalWS.VoiceConfig, jwtSecret string, log logger.ILogger) *VoiceHandler {
	return &VoiceHandler{
		hub:       hub,
		cfg:       cfg,
		jwtSecret: jwtSecret,
		logger:    log,
	}
}

// ServeWs authenticates the device and upgrades to a voice session. With
// auth disabled the device id comes from the "device" query parameter.
func (h *VoiceHandler) ServeWs(c *fiber.Ctx) error {
	deviceID := c.Query("device", defaultDeviceID)

	if h.jwtSecret != "" {
		tokenStr := serverutils.TokenFromRequest(c)
		if tokenStr == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(serverutils.ErrorResponse(fiber.StatusUnauthorized, "Missing token (Query 'token' or Header 'Authorization')"))
		}
		claimed, err := serverutils.ParseDeviceToken(tokenStr, h.jwtSecret)
		if err != nil {
			h.logger.Warn("VoiceHandler", "Invalid Token in WS Handshake", map[string]interface{}{"error": err.Error()})
			return c.Status(fiber.StatusUnauthorized).JSON(serverutils.ErrorResponse(fiber.StatusUnauthorized, "Invalid token"))
		}
		if claimed != "" {
			deviceID = claimed
		}
	}

	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	return websocket.New(func(conn *websocket.Conn) {
		h.logger.Info("VoiceHandler", "Starting voice session", map[string]interface{}{"device_id": deviceID})
		internalWS.ServeVoice(h.hub, conn, deviceID, h.cfg)
		h.logger.Info("VoiceHandler", "Voice session ended", map[string]interface{}{"device_id": deviceID})
	})(c)
}

func (h *VoiceHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/voice/v1/ws", h.ServeWs)
}
