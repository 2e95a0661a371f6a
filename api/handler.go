package api

import (
	"context"
	stderrors "errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/kbukum/jobflow/dag"
	"github.com/kbukum/jobflow/engine"
	"github.com/kbukum/jobflow/errors"
	"github.com/kbukum/jobflow/server"
	"github.com/kbukum/jobflow/sse"
)

// Orchestrator is the part of engine.Service the handlers need.
type Orchestrator interface {
	Submit(ctx context.Context, in dag.DagInput) (*engine.Handle, error)
	Status(ctx context.Context, instanceID string) (*dag.StatusSnapshot, error)
}

// Handler serves DAG submission and status queries.
type Handler struct {
	svc Orchestrator
	hub *sse.Hub
}

// Option configures a Handler.
type Option func(*Handler)

// WithStream enables GET /dags/:id/events, fed by hub.
func WithStream(hub *sse.Hub) Option {
	return func(h *Handler) { h.hub = hub }
}

func NewHandler(svc Orchestrator, opts ...Option) *Handler {
	h := &Handler{svc: svc}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts the routes on group, normally /api/v1.
func (h *Handler) Register(group *gin.RouterGroup) {
	group.POST("/dags", h.Submit)
	group.GET("/dags/:id", h.Status)
	if h.hub != nil {
		group.GET("/dags/:id/events", h.Stream)
	}
}

// Submit accepts a DagInput as JSON or YAML and answers 202 with the
// instance handle.
func (h *Handler) Submit(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			server.RespondWithError(c, errors.New(errors.ErrCodeInvalidInput, "Request body too large.", http.StatusRequestEntityTooLarge))
			return
		}
		server.RespondWithError(c, errors.InvalidInput("body", err.Error()))
		return
	}
	if len(body) == 0 {
		server.RespondWithError(c, errors.InvalidInput("body", "request body is empty"))
		return
	}

	in, err := dag.ParseInput(body, formatOf(c.ContentType()))
	if err != nil {
		server.RespondWithError(c, errors.InvalidInput("body", err.Error()).WithCause(err))
		return
	}

	handle, err := h.svc.Submit(c.Request.Context(), in)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondAccepted(c, handle.StatusQueryURI, handle)
}

// Status returns the last committed snapshot.
func (h *Handler) Status(c *gin.Context) {
	snap, err := h.svc.Status(c.Request.Context(), c.Param("id"))
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOK(c, snap)
}

// Stream sends the current snapshot and then every checkpoint as SSE
// until the instance is done.
func (h *Handler) Stream(c *gin.Context) {
	id := c.Param("id")
	client := sse.NewClient(id + ":" + uuid.NewString())
	if !h.hub.Register(client) {
		server.RespondWithError(c, errors.ServiceUnavailable("status stream"))
		return
	}
	defer h.hub.Unregister(client)

	snap, err := h.svc.Status(c.Request.Context(), id)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	first, err := sse.SnapshotEvent(snap)
	if err != nil {
		server.RespondWithError(c, errors.Internal(err))
		return
	}
	if err := sse.Serve(c.Writer, c.Request, client, first); err != nil {
		server.RespondWithError(c, errors.Internal(err))
	}
}

func formatOf(contentType string) string {
	switch {
	case strings.Contains(contentType, "yaml"):
		return "yaml"
	case strings.Contains(contentType, "json"):
		return "json"
	}
	return ""
}
