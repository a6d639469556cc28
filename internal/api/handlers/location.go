package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/langchou/triprec/internal/location"
)

// PushFix 宿主平台上报一条原始定位
func (h *Handler) PushFix(c *gin.Context) {
	var fix location.RawFix
	if err := c.BindJSON(&fix); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid fix payload"})
		return
	}
	if fix.Latitude < -90 || fix.Latitude > 90 || fix.Longitude < -180 || fix.Longitude > 180 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Coordinates out of range"})
		return
	}

	h.provider.PushFix(fix)
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// PushHeading 宿主平台上报一条磁航向
func (h *Handler) PushHeading(c *gin.Context) {
	var req struct {
		Heading float64 `json:"heading"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid heading payload"})
		return
	}

	h.provider.PushHeading(req.Heading)
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// GetLocation 最近一次实时位置
func (h *Handler) GetLocation(c *gin.Context) {
	sample := h.recorder.CurrentLocation()
	if sample == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No location yet"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": sample})
}

// GetRecordingStatus 当前录制状态
func (h *Handler) GetRecordingStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": h.recorder.Status()})
}

// StartTracking 开始位置采样
// 前台定位权限被拒时返回 403，由 UI 引导用户去系统设置
func (h *Handler) StartTracking(c *gin.Context) {
	interval := h.settings.SampleInterval(c.Request.Context(), h.defaultInterval)
	if err := h.adapter.Start(c.Request.Context(), interval); err != nil {
		if errors.Is(err, location.ErrPermissionDenied) {
			c.JSON(http.StatusForbidden, gin.H{"error": "Location permission denied"})
			return
		}
		h.logger.Error("Failed to start tracking", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start tracking"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Tracking started", "interval_ms": interval.Milliseconds()})
}

// StopTracking 停止位置采样
func (h *Handler) StopTracking(c *gin.Context) {
	h.adapter.Stop()
	c.JSON(http.StatusOK, gin.H{"message": "Tracking stopped"})
}

// SetSampleInterval 更新采样间隔，采样中则按新间隔重启
func (h *Handler) SetSampleInterval(c *gin.Context) {
	var req struct {
		IntervalMs int64 `json:"interval_ms" binding:"required,gt=0"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid interval payload"})
		return
	}

	interval := time.Duration(req.IntervalMs) * time.Millisecond
	if err := h.settings.SetSampleInterval(c.Request.Context(), interval); err != nil {
		h.logger.Error("Failed to save sample interval", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save interval"})
		return
	}

	if h.adapter.Running() {
		if err := h.adapter.Restart(c.Request.Context(), interval); err != nil {
			h.logger.Error("Failed to restart tracking", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Interval saved but restart failed"})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"message": "Interval updated", "interval_ms": req.IntervalMs})
}
