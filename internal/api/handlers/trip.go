package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/langchou/triprec/internal/service"
)

// StartTrip 开始录制行程
func (h *Handler) StartTrip(c *gin.Context) {
	id, err := h.recorder.StartTrip(c.Request.Context())
	if err != nil {
		if errors.Is(err, service.ErrTripActive) {
			c.JSON(http.StatusConflict, gin.H{"error": "A trip is already being recorded"})
			return
		}
		h.logger.Error("Failed to start trip", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start trip"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": gin.H{"trip_id": id}})
}

// StopTrip 结束录制行程
func (h *Handler) StopTrip(c *gin.Context) {
	if err := h.recorder.StopTrip(c.Request.Context()); err != nil {
		if errors.Is(err, service.ErrNoActiveTrip) {
			c.JSON(http.StatusConflict, gin.H{"error": "No trip is being recorded"})
			return
		}
		h.logger.Error("Failed to stop trip", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to stop trip"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Trip stopped"})
}

// ListTrips 获取行程列表，可按车辆过滤
func (h *Handler) ListTrips(c *gin.Context) {
	if raw := c.Query("car_id"); raw != "" {
		carID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid car ID"})
			return
		}
		trips, err := h.tripRepo.ListByCar(c.Request.Context(), carID)
		if err != nil {
			h.logger.Error("Failed to list trips", zap.Error(err), zap.Int64("car_id", carID))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list trips"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": trips})
		return
	}

	trips, err := h.tripRepo.List(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to list trips", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list trips"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": trips})
}

// GetTrip 获取行程详情
func (h *Handler) GetTrip(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid trip ID"})
		return
	}

	trip, err := h.tripRepo.GetByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Trip not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": trip})
}

// GetTripPoints 获取行程轨迹点
func (h *Handler) GetTripPoints(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid trip ID"})
		return
	}

	points, err := h.pointRepo.ListByTrip(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("Failed to list trip points", zap.Error(err), zap.Int64("trip_id", id))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list trip points"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": points})
}

// DeleteTrip 删除行程及其全部轨迹点
func (h *Handler) DeleteTrip(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid trip ID"})
		return
	}

	if err := h.tripRepo.Delete(c.Request.Context(), id); err != nil {
		h.logger.Error("Failed to delete trip", zap.Error(err), zap.Int64("trip_id", id))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete trip"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Trip deleted", "trip_id": id})
}
