package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/langchou/triprec/internal/models"
)

type carRequest struct {
	Type      string `json:"type"`
	Make      string `json:"make"`
	Model     string `json:"model"`
	Variant   string `json:"variant"`
	RegNumber string `json:"reg_number"`
	Nickname  string `json:"nickname" binding:"required"`
}

// ListCars 获取车辆列表
func (h *Handler) ListCars(c *gin.Context) {
	cars, err := h.carRepo.List(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to list cars", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list cars"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": cars})
}

// CreateCar 新增车辆
func (h *Handler) CreateCar(c *gin.Context) {
	var req carRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid car payload"})
		return
	}

	car := &models.Car{
		Type:      req.Type,
		Make:      req.Make,
		Model:     req.Model,
		Variant:   req.Variant,
		RegNumber: req.RegNumber,
		Nickname:  req.Nickname,
	}
	if err := h.carRepo.Create(c.Request.Context(), car); err != nil {
		h.logger.Error("Failed to create car", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create car"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": car})
}

// UpdateCar 更新车辆
func (h *Handler) UpdateCar(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid car ID"})
		return
	}

	var req carRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid car payload"})
		return
	}

	if _, err := h.carRepo.GetByID(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Car not found"})
		return
	}

	car := &models.Car{
		ID:        id,
		Type:      req.Type,
		Make:      req.Make,
		Model:     req.Model,
		Variant:   req.Variant,
		RegNumber: req.RegNumber,
		Nickname:  req.Nickname,
	}
	if err := h.carRepo.Update(c.Request.Context(), car); err != nil {
		h.logger.Error("Failed to update car", zap.Error(err), zap.Int64("car_id", id))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update car"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": car})
}

// DeleteCar 删除车辆
// 历史行程保留，关联引用被置空；选中的是它时同时清掉选中状态
func (h *Handler) DeleteCar(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid car ID"})
		return
	}

	if err := h.carRepo.Delete(c.Request.Context(), id); err != nil {
		h.logger.Error("Failed to delete car", zap.Error(err), zap.Int64("car_id", id))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete car"})
		return
	}

	if selected := h.settings.SelectedCar(c.Request.Context()); selected != nil && *selected == id {
		if err := h.settings.ClearSelectedCar(c.Request.Context()); err != nil {
			h.logger.Warn("Failed to clear car selection", zap.Error(err))
		}
	}

	c.JSON(http.StatusOK, gin.H{"message": "Car deleted", "car_id": id})
}

// SelectCar 选中车辆，之后开始的行程都会关联它
func (h *Handler) SelectCar(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid car ID"})
		return
	}

	if _, err := h.carRepo.GetByID(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Car not found"})
		return
	}

	if err := h.settings.SelectCar(c.Request.Context(), id); err != nil {
		h.logger.Error("Failed to select car", zap.Error(err), zap.Int64("car_id", id))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to select car"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Car selected", "car_id": id})
}

// ClearSelection 取消选中车辆，之后的行程不关联车辆
func (h *Handler) ClearSelection(c *gin.Context) {
	if err := h.settings.ClearSelectedCar(c.Request.Context()); err != nil {
		h.logger.Error("Failed to clear car selection", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to clear selection"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Selection cleared"})
}
