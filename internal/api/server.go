// Package api exposes the HTTP surface: the JSON routes the browser UI calls
// and the embedded UI itself.
package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/book-expert/beatlab/internal/core"
	"github.com/book-expert/beatlab/internal/web"
	"github.com/book-expert/logger"
)

const (
	headerAllowOrigin  = "Access-Control-Allow-Origin"
	headerAllowMethods = "Access-Control-Allow-Methods"
	headerAllowHeaders = "Access-Control-Allow-Headers"

	allowedMethods = "GET, POST, DELETE, OPTIONS"
	allowedHeaders = "Content-Type"

	multipartMemoryLimit = 8 << 20
	bytesPerMB           = 1 << 20
)

// Options carries the request-handling limits taken from configuration.
type Options struct {
	MaxUploadMB int
	SweepMaxAge time.Duration
}

// Server holds the handlers' collaborators. All state lives behind them;
// handlers themselves are stateless.
type Server struct {
	voices core.VoiceService
	music  core.MusicService
	store  core.BlobStore
	mixer  core.Mixer
	log    *logger.Logger

	maxUploadBytes int64
	sweepMaxAge    time.Duration
}

// New creates a Server around the given collaborators.
func New(
	voices core.VoiceService,
	music core.MusicService,
	blobs core.BlobStore,
	mix core.Mixer,
	opts Options,
	log *logger.Logger,
) *Server {
	return &Server{
		voices:         voices,
		music:          music,
		store:          blobs,
		mixer:          mix,
		log:            log,
		maxUploadBytes: int64(opts.MaxUploadMB) * bytesPerMB,
		sweepMaxAge:    opts.SweepMaxAge,
	}
}

// Router builds the gin engine with all routes and middleware attached.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), s.requestLog(), corsMiddleware())
	router.MaxMultipartMemory = multipartMemoryLimit

	apiRoutes := router.Group("/api")
	apiRoutes.GET("/health", s.handleHealth)
	apiRoutes.GET("/voices", s.handleVoices)
	apiRoutes.POST("/upload", s.handleUpload)
	apiRoutes.POST("/generate-vocals", s.handleGenerateVocals)
	apiRoutes.POST("/generate-music", s.handleGenerateMusic)
	apiRoutes.POST("/clone-voice", s.handleCloneVoice)
	apiRoutes.POST("/mix", s.handleMix)
	apiRoutes.POST("/render-beat", s.handleRenderBeat)
	apiRoutes.GET("/random-beat", s.handleRandomBeat)
	apiRoutes.DELETE("/cleanup", s.handleCleanup)
	apiRoutes.GET("/files/:name", s.handleFile)

	// Everything else falls through to the embedded UI.
	router.NoRoute(gin.WrapH(http.FileServer(web.Static())))

	return router
}

// requestLog writes one line per request to the service log.
func (s *Server) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		s.log.Info(
			"%s %s -> %d (%s)",
			c.Request.Method,
			c.Request.URL.Path,
			c.Writer.Status(),
			time.Since(start).Round(time.Millisecond),
		)
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header(headerAllowOrigin, "*")
		c.Header(headerAllowMethods, allowedMethods)
		c.Header(headerAllowHeaders, allowedHeaders)

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)

			return
		}

		c.Next()
	}
}
