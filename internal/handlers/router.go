package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes wires the API surface onto a gin engine. Shared between the
// server binary and handler tests so both exercise the same routing.
func RegisterRoutes(router *gin.Engine, songs *SongHandler, admin *AdminHandler) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api/v1")
	{
		api.POST("/songs/lookup", songs.LookupSong)
		api.GET("/songs/search", songs.SearchSongs)
		api.POST("/songs/recognize", songs.RecognizeAudio)
		api.POST("/songs/transpose", songs.TransposeChords)
		api.POST("/repertoire", songs.GenerateRepertoire)
		api.POST("/notation", songs.GenerateNotation)

		api.POST("/admin/cache/sweep", admin.SweepCache)
		api.GET("/admin/cache/stats", admin.CacheStats)
	}
}
