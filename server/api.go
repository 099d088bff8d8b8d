package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"shorts-worker/dto"
	"shorts-worker/service"
)

func addRoutes(r *gin.Engine, downloads *service.Downloads, shorts *service.Shorts) {
	api := r.Group("/api")

	api.POST("/downloads", func(c *gin.Context) {
		var req dto.StartDownloadRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		rec, err := downloads.Start(req.VideoID, req.SessionID)
		if err != nil {
			c.JSON(statusFor(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusAccepted, gin.H{
			"id":        rec.ID,
			"status":    rec.Status,
			"videoRef":  rec.VideoRef,
			"startedAt": rec.StartedAt,
		})
	})

	api.GET("/downloads/:id", func(c *gin.Context) {
		rec, ok := downloads.Get(c.Param("id"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "download not found"})
			return
		}
		c.JSON(http.StatusOK, rec)
	})

	api.POST("/downloads/:id/cancel", func(c *gin.Context) {
		deleteBlob := c.Query("deleteBlob") == "true"
		if !downloads.Cancel(c.Request.Context(), c.Param("id"), deleteBlob) {
			c.JSON(http.StatusNotFound, gin.H{"error": "download not found"})
			return
		}
		rec, _ := downloads.Get(c.Param("id"))
		c.JSON(http.StatusOK, rec)
	})

	api.POST("/shorts", func(c *gin.Context) {
		var req dto.StartJobRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		rec, err := shorts.Start(req.DownloadID, req.SessionID, req.Clip)
		if err != nil {
			c.JSON(statusFor(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusAccepted, dto.NewJobPublication(rec))
	})

	api.GET("/shorts/:id", func(c *gin.Context) {
		rec, ok := shorts.Get(c.Param("id"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
			return
		}
		c.JSON(http.StatusOK, dto.NewJobPublication(rec))
	})

	api.POST("/shorts/:id/cancel", func(c *gin.Context) {
		if !shorts.Cancel(c.Request.Context(), c.Param("id")) {
			c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
			return
		}
		rec, _ := shorts.Get(c.Param("id"))
		c.JSON(http.StatusOK, dto.NewJobPublication(rec))
	})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
