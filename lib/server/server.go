// Package server exposes a Studio over HTTP. It serves the preview view, a JSON control API,
// a websocket stream of snapshots and the prometheus metrics.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-rod/screenrec"
	"github.com/go-rod/screenrec/lib/capture"
	"github.com/go-rod/screenrec/lib/media"
	"github.com/go-rod/screenrec/lib/metrics"
	"github.com/go-rod/screenrec/lib/preview"
	"github.com/go-rod/screenrec/lib/settings"
	"github.com/go-rod/screenrec/lib/transcode"
	"github.com/go-rod/screenrec/lib/utils"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server of a studio
type Server struct {
	studio   *screenrec.Studio
	store    *preview.Store
	logger   utils.Logger
	upgrader websocket.Upgrader
	engine   *gin.Engine
}

// New server. The store must be the one the preview manager of the studio writes to.
func New(studio *screenrec.Studio, store *preview.Store) *Server {
	s := &Server{
		studio: studio,
		store:  store,
		logger: utils.DefaultLogger,
		upgrader: websocket.Upgrader{
			// the control api is meant for local tools
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
	s.engine = s.routes()
	return s
}

// Logger overrides the default logger
func (s *Server) Logger(l utils.Logger) *Server {
	s.logger = l
	return s
}

// Handler of the server
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), instrument())

	preview.Register(r, s.store)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	api.GET("/state", s.state)
	api.GET("/events", s.events)
	api.POST("/preview", s.openPreview)
	api.DELETE("/preview", s.closePreview)
	api.POST("/recording/start", s.startRecording)
	api.POST("/recording/stop", s.stopRecording)
	api.DELETE("/recording", s.clearRecording)
	api.GET("/settings/options", s.settingsOptions)
	api.PUT("/settings", s.changeSettings)
	api.POST("/download", s.download)
	api.POST("/codec/load", s.loadCodec)
	api.DELETE("/error", s.dismissError)

	return r
}

// instrument records the request metrics, the long-lived and scraping routes are skipped
func instrument() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		path := ctx.FullPath()
		if path == "" || path == "/metrics" || path == "/api/events" {
			ctx.Next()
			return
		}

		start := time.Now()
		ctx.Next()

		status := strconv.Itoa(ctx.Writer.Status())
		metrics.HTTPRequestsTotal.WithLabelValues(ctx.Request.Method, path, status).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(ctx.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// Serve on the listener until ctx is done
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	srv := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errs := make(chan error, 1)
	go func() {
		errs <- srv.Serve(l)
	}()

	s.logger.Println("listening on", "http://"+l.Addr().String())

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}

	shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdown)
	<-errs
	return err
}

type errorBody struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// fail writes err with the status that matches it
func fail(ctx *gin.Context, err error) {
	body := errorBody{Error: err.Error()}

	var e *screenrec.Error
	if errors.As(err, &e) {
		body.Code = e.Code
		body.Message = e.Message()
	}

	ctx.AbortWithStatusJSON(status(err), body)
}

func badRequest(ctx *gin.Context, err error) {
	ctx.AbortWithStatusJSON(http.StatusBadRequest, errorBody{Error: err.Error()})
}

func status(err error) int {
	switch {
	case errors.Is(err, preview.ErrInvalidPayload),
		errors.Is(err, settings.ErrInvalid):
		return http.StatusBadRequest
	case errors.Is(err, preview.ErrPopupBlocked):
		return http.StatusBadGateway
	case errors.Is(err, capture.ErrBusy),
		errors.Is(err, capture.ErrNotRecording),
		errors.Is(err, capture.ErrNoSurface):
		return http.StatusConflict
	case errors.Is(err, capture.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, capture.ErrUnsupported):
		return http.StatusNotImplemented
	case errors.Is(err, screenrec.ErrNoRecording):
		return http.StatusNotFound
	case errors.Is(err, transcode.ErrSourceTooLarge):
		return http.StatusRequestEntityTooLarge
	case screenrec.IsError(err, screenrec.ErrCodeCodecLoad):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (s *Server) state(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, s.studio.Snapshot())
}

// events streams a snapshot on every change, the first message is the current snapshot
func (s *Server) events(ctx *gin.Context) {
	conn, err := s.upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		s.logger.Println("websocket upgrade:", err)
		return
	}
	defer func() { _ = conn.Close() }()

	c, cancel := context.WithCancel(ctx.Request.Context())
	defer cancel()

	// the client never sends anything, reading detects the close
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	snaps := s.studio.Subscribe(c)

	if err := conn.WriteJSON(s.studio.Snapshot()); err != nil {
		return
	}
	for snap := range snaps {
		if err := conn.WriteJSON(snap); err != nil {
			return
		}
	}
}

func (s *Server) openPreview(ctx *gin.Context) {
	var p preview.Payload
	if err := ctx.ShouldBindJSON(&p); err != nil {
		badRequest(ctx, err)
		return
	}

	if err := s.studio.Context(ctx.Request.Context()).OpenPreview(p); err != nil {
		fail(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, s.studio.Snapshot())
}

func (s *Server) closePreview(ctx *gin.Context) {
	if err := s.studio.ClosePreview(); err != nil {
		fail(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, s.studio.Snapshot())
}

// startRecording returns once the countdown starts, the result is reported by the snapshots
func (s *Server) startRecording(ctx *gin.Context) {
	snap := s.studio.Snapshot()
	if !snap.PreviewOpen {
		fail(ctx, &screenrec.Error{Err: capture.ErrNoSurface, Code: screenrec.ErrCodeCapture})
		return
	}
	if snap.Recording || snap.CountingDown {
		fail(ctx, &screenrec.Error{Err: capture.ErrBusy, Code: screenrec.ErrCodeCapture})
		return
	}

	go func() {
		_, _ = s.studio.StartRecording()
	}()

	ctx.JSON(http.StatusAccepted, s.studio.Snapshot())
}

func (s *Server) stopRecording(ctx *gin.Context) {
	if _, err := s.studio.StopRecording(); err != nil {
		fail(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, s.studio.Snapshot())
}

func (s *Server) clearRecording(ctx *gin.Context) {
	if err := s.studio.ClearRecording(); err != nil {
		fail(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, s.studio.Snapshot())
}

func (s *Server) settingsOptions(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{
		"frameRate":    settings.FrameRates,
		"videoBitrate": settings.VideoBitrates,
		"audioBitrate": settings.AudioBitrates,
		"countdown":    settings.Countdowns,
		"resolution":   settings.Resolutions,
	})
}

func (s *Server) changeSettings(ctx *gin.Context) {
	var patch settings.Patch
	if err := ctx.ShouldBindJSON(&patch); err != nil {
		badRequest(ctx, err)
		return
	}

	next, err := s.studio.ChangeSettings(patch)
	if err != nil {
		fail(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, next)
}

type downloadRequest struct {
	Format string `json:"format"`
	// Save writes the file into the dir of the studio instead of sending it back
	Save bool `json:"save"`
}

func (s *Server) download(ctx *gin.Context) {
	req := downloadRequest{Format: string(media.FormatWebM)}
	if ctx.Request.ContentLength != 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			badRequest(ctx, err)
			return
		}
	}

	format, err := media.ParseFormat(req.Format)
	if err != nil {
		badRequest(ctx, err)
		return
	}

	studio := s.studio.Context(ctx.Request.Context())

	if req.Save {
		p, err := studio.Download(format)
		if err != nil {
			fail(ctx, err)
			return
		}
		ctx.JSON(http.StatusOK, gin.H{"path": p})
		return
	}

	name, blob, err := studio.Export(format)
	if err != nil {
		fail(ctx, err)
		return
	}

	ctx.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	ctx.Data(http.StatusOK, blob.Type, blob.Data)
}

func (s *Server) loadCodec(ctx *gin.Context) {
	if err := s.studio.LoadCodec(); err != nil {
		fail(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, s.studio.Snapshot())
}

func (s *Server) dismissError(ctx *gin.Context) {
	s.studio.DismissError()
	ctx.JSON(http.StatusOK, s.studio.Snapshot())
}
