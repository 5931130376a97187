package controller

import (
	"encoding/base64"
	"encoding/hex"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/danmuck/tlvctl/internal/protocol/tlv"
)

// sendRequest is the admin command-enqueue payload. Payload may be
// given as plain text or base64; base64 wins when both are set.
type sendRequest struct {
	Type       uint32 `json:"type"`
	Payload    string `json:"payload"`
	PayloadB64 string `json:"payload_b64"`
}

type rebindRequest struct {
	Path string `json:"path" binding:"required"`
}

func (s *Service) registerRoutes(router *gin.Engine) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"uptime":    time.Since(s.started).String(),
			"component": s.cfg.Name,
			"version":   "0.1.0",
		})
	})

	router.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"ready":     true,
			"uptime":    time.Since(s.started).String(),
			"component": s.cfg.Name,
			"version":   "0.1.0",
		})
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"url_path":      s.tun.URLPath(),
			"pending_bytes": s.tun.PendingBytes(),
			"inbox_count":   len(s.Inbox()),
		})
	})

	router.GET("/packets", func(c *gin.Context) {
		inbox := s.Inbox()
		packets := make([]gin.H, 0, len(inbox))
		for _, r := range inbox {
			packets = append(packets, gin.H{
				"type":        r.Packet.Type,
				"length":      len(r.Packet.Payload),
				"payload_hex": hex.EncodeToString(r.Packet.Payload),
				"received_at": r.At.UTC().Format(time.RFC3339Nano),
			})
		}
		c.JSON(http.StatusOK, gin.H{"packets": packets})
	})

	router.POST("/send", func(c *gin.Context) {
		var req sendRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		payload := []byte(req.Payload)
		if req.PayloadB64 != "" {
			decoded, err := base64.StdEncoding.DecodeString(req.PayloadB64)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload_b64"})
				return
			}
			payload = decoded
		}

		if err := s.tun.Send(tlv.New(req.Type, payload)); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusAccepted, gin.H{
			"queued":        true,
			"pending_bytes": s.tun.PendingBytes(),
		})
	})

	router.POST("/path", func(c *gin.Context) {
		var req rebindRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := s.tun.SetURLPath(req.Path); err != nil {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"url_path": s.tun.URLPath()})
	})
}
