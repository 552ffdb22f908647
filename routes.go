package main

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jazbelrose/mylg-chat/module/chat/sync"
)

// registerRoutes exposes the per-conversation view over HTTP. Fetching a
// conversation's messages activates it, so the engine's snapshot seed and
// one-time history fetch ride on the first GET.
func registerRoutes(r *gin.Engine, mgr *sync.Manager) {
	r.GET("/conversations/:id/messages", func(c *gin.Context) {
		eng := mgr.Activate(c.Request.Context(), c.Param("id"))
		c.JSON(http.StatusOK, gin.H{
			"messages": eng.Messages(),
			"loading":  eng.Loading(),
			"error":    eng.LastError(),
		})
	})

	r.POST("/conversations/:id/messages", func(c *gin.Context) {
		var body struct {
			Text string `json:"text"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		eng := mgr.Activate(c.Request.Context(), c.Param("id"))
		msg, err := eng.Send(c.Request.Context(), body.Text)
		if err != nil {
			c.JSON(http.StatusAccepted, gin.H{"message": msg, "error": eng.LastError()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": msg})
	})

	r.POST("/conversations/:id/attachments", func(c *gin.Context) {
		fh, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing file"})
			return
		}
		f, err := fh.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		data, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		eng := mgr.Activate(c.Request.Context(), c.Param("id"))
		msg, err := eng.SendAttachment(c.Request.Context(), fh.Filename, data)
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": msg})
	})

	r.DELETE("/conversations/:id/messages/:messageId", func(c *gin.Context) {
		eng := mgr.Activate(c.Request.Context(), c.Param("id"))
		if err := eng.Delete(c.Request.Context(), c.Param("messageId")); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.Status(http.StatusNoContent)
	})

	r.PATCH("/conversations/:id/messages/:messageId", func(c *gin.Context) {
		var body struct {
			Text string `json:"text"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		eng := mgr.Activate(c.Request.Context(), c.Param("id"))
		if err := eng.Edit(c.Request.Context(), c.Param("messageId"), body.Text); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"messages": eng.Messages()})
	})

	r.POST("/conversations/:id/messages/:messageId/reactions", func(c *gin.Context) {
		var body struct {
			Emoji string `json:"emoji"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		eng := mgr.Activate(c.Request.Context(), c.Param("id"))
		if err := eng.React(c.Request.Context(), c.Param("messageId"), body.Emoji); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"messages": eng.Messages()})
	})

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
}
