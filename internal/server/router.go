// Package server is the HTTP surface started once the browser backend is
// confirmed (or waived) by the readiness gate.
package server

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/loykin/browserboot/internal/config"
	"github.com/loykin/browserboot/internal/history"
	"github.com/loykin/browserboot/internal/metrics"
	"github.com/loykin/browserboot/internal/probe"
	"github.com/loykin/browserboot/internal/reqmgr"
)

// Runner executes one unit of automation work against the browser backend. It
// must honor rc.ShouldStop() between steps. The default runner does nothing;
// the real scraping logic is plugged in by the embedding application.
type Runner func(ctx context.Context, rc *reqmgr.Context) error

// BrowserInfo is the orchestrator's view of the acquired browser, exposed on
// the status endpoint.
type BrowserInfo struct {
	PID          int    `json:"pid"`
	LaunchedByUs bool   `json:"launched_by_us"`
	DebugPort    int    `json:"debug_port"`
	GateResult   string `json:"gate_result"`
	GateAttempts int    `json:"gate_attempts"`
}

// Router wires the API endpoints.
// Endpoints:
//
//	GET  /health                   liveness of the API itself
//	GET  /browser/status           probe + acquisition details
//	GET  /metrics                  prometheus metrics
//	POST /requests                 enqueue and execute one request
//	GET  /requests/status          queue/lock summary
//	GET  /requests/:id             single request snapshot
//	POST /requests/:id/cancel      cooperative cancel
//	POST /requests/cancel-current  cancel the running request
//	POST /requests/force-release   emergency slot release
//	GET  /history/runs             recent orchestration runs (when history is on)
type Router struct {
	Cfg     config.Config
	Mgr     *reqmgr.Manager
	Probe   probe.Probe
	Browser BrowserInfo
	Run     Runner
	Hist    *history.SQLiteSink // nil when history is disabled
}

type errorResp struct {
	Error string `json:"error"`
}

type okResp struct {
	OK bool `json:"ok"`
}

// Handler returns an http.Handler powered by gin.
func (r *Router) Handler() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	g := gin.New()
	g.Use(gin.Recovery())
	if r.Cfg.TrustProxy {
		// Behind a reverse proxy: honor forwarded headers from any hop.
		_ = g.SetTrustedProxies([]string{"0.0.0.0/0"})
	} else {
		_ = g.SetTrustedProxies(nil)
	}

	g.GET("/health", r.handleHealth)
	g.GET("/browser/status", r.handleBrowserStatus)
	g.GET("/metrics", gin.WrapH(metrics.Handler()))

	g.POST("/requests", r.handleSubmit)
	g.GET("/requests/status", r.handleSummary)
	g.GET("/requests/:id", r.handleGet)
	g.POST("/requests/:id/cancel", r.handleCancel)
	g.POST("/requests/cancel-current", r.handleCancelCurrent)
	g.POST("/requests/force-release", r.handleForceRelease)

	g.GET("/history/runs", r.handleHistory)
	return g
}

func (r *Router) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true, "mode": string(r.Cfg.Mode)})
}

func (r *Router) handleBrowserStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"ready":   r.Probe.Ready(),
		"probe":   r.Probe.Describe(),
		"browser": r.Browser,
	})
}

func (r *Router) handleSubmit(c *gin.Context) {
	rc := r.Mgr.Create()
	r.Mgr.WatchDisconnect(c.Request.Context().Done(), rc)

	if err := r.Mgr.Acquire(c.Request.Context(), rc); err != nil {
		status := http.StatusServiceUnavailable
		if err == reqmgr.ErrQueueFull {
			status = http.StatusTooManyRequests
		}
		c.JSON(status, errorResp{Error: err.Error()})
		return
	}
	run := r.Run
	if run == nil {
		run = func(context.Context, *reqmgr.Context) error { return nil }
	}
	err := run(c.Request.Context(), rc)
	r.Mgr.Release(rc, err == nil)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"request": rc.Snapshot(), "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"request": rc.Snapshot()})
}

func (r *Router) handleSummary(c *gin.Context) {
	c.JSON(http.StatusOK, r.Mgr.Summary())
}

func (r *Router) handleGet(c *gin.Context) {
	rc := r.Mgr.Get(c.Param("id"))
	if rc == nil {
		c.JSON(http.StatusNotFound, errorResp{Error: "unknown request id"})
		return
	}
	c.JSON(http.StatusOK, rc.Snapshot())
}

func (r *Router) handleCancel(c *gin.Context) {
	if !r.Mgr.Cancel(c.Param("id"), "manual") {
		c.JSON(http.StatusConflict, errorResp{Error: "request unknown or already finished"})
		return
	}
	c.JSON(http.StatusOK, okResp{OK: true})
}

func (r *Router) handleCancelCurrent(c *gin.Context) {
	if !r.Mgr.CancelCurrent("cancel_current") {
		c.JSON(http.StatusConflict, errorResp{Error: "no request is running"})
		return
	}
	c.JSON(http.StatusOK, okResp{OK: true})
}

func (r *Router) handleForceRelease(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"released": r.Mgr.ForceRelease()})
}

func (r *Router) handleHistory(c *gin.Context) {
	if r.Hist == nil {
		c.JSON(http.StatusNotFound, errorResp{Error: "history is disabled"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	rows, err := r.Hist.Recent(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResp{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, rows)
}

// NewServer builds an http.Server for the router. The caller owns
// ListenAndServe and Shutdown. WriteTimeout must cover the longest admitted
// request execution.
func NewServer(addr string, r *Router) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           r.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      6 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}
}
