package handlers

import (
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"AlsitoQC/internal/location"
	"AlsitoQC/internal/models"
	"AlsitoQC/internal/workflow"
	"AlsitoQC/pkg/errors"
	"AlsitoQC/pkg/middleware"
	"AlsitoQC/pkg/response"
)

// RouteEvent is the SSE event carrying a workflow.Route.
const RouteEvent = "route"

type createFlowRequest struct {
	Kind string `json:"kind" binding:"required"`
}

type locationRequest struct {
	Location string `json:"location"`
}

type descriptionRequest struct {
	Description string `json:"description"`
}

// restoreRequest carries the route of a flow that is no longer held,
// either as the route object or as its encoded string form.
type restoreRequest struct {
	Route json.RawMessage `json:"route" binding:"required"`
}

type detailsRequest struct {
	Details string `json:"details" binding:"required"`
}

type flowResponse struct {
	ID    string         `json:"id"`
	Flow  workflow.View  `json:"flow"`
	Route workflow.Route `json:"route"`
}

func (h *Handlers) newWorkflow(c *gin.Context, id string) *workflow.Workflow {
	return workflow.New(h.workflowOptions(c, id)...)
}

func (h *Handlers) workflowOptions(c *gin.Context, id string) []workflow.Option {
	return []workflow.Option{
		workflow.WithSignal(h.deps.Signal),
		workflow.WithMessages(h.deps.I18n.For(middleware.Lang(c), "en")),
		workflow.WithObserver(h.deps.Metrics),
		workflow.WithMinLocationLength(h.deps.MinLocationLength),
		workflow.WithLogger(h.logger.With(zap.String("flow", id))),
		workflow.WithNavigator(workflow.NavigatorFunc(func(r workflow.Route) {
			h.events.Publish(id, RouteEvent, r)
			h.deps.Dispatch.For(id).Navigate(r)
		})),
	}
}

// PruneIdleFlows drops flows untouched for maxIdle and returns how many
// went. Their event streams close through the eviction callback.
func (h *Handlers) PruneIdleFlows(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)
	n := 0
	for _, id := range h.flows.Keys() {
		if wf, ok := h.flows.Peek(id); ok && wf.LastActive().Before(cutoff) {
			h.flows.Remove(id)
			n++
		}
	}
	h.deps.Metrics.SetActiveFlows(h.flows.Len())
	if n > 0 {
		h.logger.Info("idle report flows pruned", zap.Int("count", n))
	}
	return n
}

// lookup writes the 404 itself.
func (h *Handlers) lookup(c *gin.Context) (string, *workflow.Workflow, bool) {
	id := c.Param("id")
	wf, ok := h.flows.Get(id)
	if !ok {
		h.fail(c, errors.WithCode(errors.CodeFlowNotFound, "report flow not found"))
		return id, nil, false
	}
	return id, wf, true
}

func (h *Handlers) render(c *gin.Context, id string, wf *workflow.Workflow) {
	v := wf.Snapshot()
	response.Success(c, "ok", flowResponse{ID: id, Flow: v, Route: v.Route})
}

// fail maps coded errors to HTTP statuses.
func (h *Handlers) fail(c *gin.Context, err error) {
	response.Error(c, statusFor(err), err, nil)
}

func statusFor(err error) int {
	switch errors.GetCode(err) {
	case errors.CodeFlowNotFound:
		return http.StatusNotFound
	case errors.CodeInvalidTransition, errors.CodeLocateInFlight:
		return http.StatusConflict
	case errors.CodeEmptyLocation, errors.CodeTooShort:
		return http.StatusUnprocessableEntity
	case errors.CodeMissingCredentials:
		return http.StatusBadRequest
	case errors.CodeInvalidCredentials:
		return http.StatusUnauthorized
	case errors.CodeAccountNotApproved:
		return http.StatusForbidden
	case errors.CodeConnectionFailed, errors.CodeUnexpected:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handlers) handleCreateFlow(c *gin.Context) {
	var req createFlowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, "invalid request", gin.H{"error": err.Error()})
		return
	}
	if _, err := models.LookupKind(req.Kind); err != nil {
		response.Fail(c, err.Error(), nil)
		return
	}
	id := uuid.NewString()
	wf := h.newWorkflow(c, id)
	if err := wf.Select(models.EmergencyKind(req.Kind)); err != nil {
		h.fail(c, err)
		return
	}
	h.flows.Add(id, wf)
	h.deps.Metrics.SetActiveFlows(h.flows.Len())
	h.render(c, id, wf)
}

// handleRestoreFlow rebuilds a flow from its last route under a new id.
// The verification count starts over.
func (h *Handlers) handleRestoreFlow(c *gin.Context) {
	var req restoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, "invalid request", gin.H{"error": err.Error()})
		return
	}
	encoded := string(req.Route)
	var quoted string
	if err := json.Unmarshal(req.Route, &quoted); err == nil {
		encoded = quoted
	}
	route, err := workflow.DecodeRoute(encoded)
	if err != nil {
		response.Fail(c, "invalid route", gin.H{"error": err.Error()})
		return
	}

	id := uuid.NewString()
	wf, err := workflow.Restore(route, h.workflowOptions(c, id)...)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.flows.Add(id, wf)
	h.deps.Metrics.SetActiveFlows(h.flows.Len())
	h.logger.Info("report flow restored", zap.String("flow", id), zap.Stringer("screen", route.Screen))
	h.render(c, id, wf)
}

func (h *Handlers) handleGetFlow(c *gin.Context) {
	id, wf, ok := h.lookup(c)
	if !ok {
		return
	}
	h.render(c, id, wf)
}

func (h *Handlers) handleEditLocation(c *gin.Context) {
	id, wf, ok := h.lookup(c)
	if !ok {
		return
	}
	var req locationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, "invalid request", gin.H{"error": err.Error()})
		return
	}
	if err := wf.EditLocation(req.Location); err != nil {
		h.fail(c, err)
		return
	}
	h.render(c, id, wf)
}

func (h *Handlers) handleEditDescription(c *gin.Context) {
	id, wf, ok := h.lookup(c)
	if !ok {
		return
	}
	var req descriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, "invalid request", gin.H{"error": err.Error()})
		return
	}
	if err := wf.EditDescription(req.Description); err != nil {
		h.fail(c, err)
		return
	}
	h.render(c, id, wf)
}

// handleLocate locates the caller by IP. Location warnings are part of
// the flow view, not HTTP errors.
func (h *Handlers) handleLocate(c *gin.Context) {
	id, wf, ok := h.lookup(c)
	if !ok {
		return
	}
	acq := location.NewAcquirer(h.deps.GeoIP.For(net.ParseIP(c.ClientIP())), location.NoSettings{}, h.deps.LocationTimeout, h.logger)
	acq.Observer = h.deps.Metrics
	if _, err := wf.Locate(c.Request.Context(), acq); err != nil {
		h.fail(c, err)
		return
	}
	h.render(c, id, wf)
}

func (h *Handlers) handleSubmit(c *gin.Context) {
	h.step(c, (*workflow.Workflow).Submit)
}

func (h *Handlers) handleCancel(c *gin.Context) {
	h.step(c, (*workflow.Workflow).Cancel)
}

func (h *Handlers) handleConfirm(c *gin.Context) {
	h.step(c, (*workflow.Workflow).Confirm)
}

func (h *Handlers) handleBack(c *gin.Context) {
	h.step(c, (*workflow.Workflow).Back)
}

// step runs a transition without a request body.
func (h *Handlers) step(c *gin.Context, op func(*workflow.Workflow) error) {
	id, wf, ok := h.lookup(c)
	if !ok {
		return
	}
	if err := op(wf); err != nil {
		h.fail(c, err)
		return
	}
	h.render(c, id, wf)
}

func (h *Handlers) handleTap(c *gin.Context) {
	id, wf, ok := h.lookup(c)
	if !ok {
		return
	}
	if _, err := wf.Tap(); err != nil {
		h.fail(c, err)
		return
	}
	h.render(c, id, wf)
}

func (h *Handlers) handleDetails(c *gin.Context) {
	id, wf, ok := h.lookup(c)
	if !ok {
		return
	}
	var req detailsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, "invalid request", gin.H{"error": err.Error()})
		return
	}
	if _, err := wf.AddIncidentDetails(req.Details); err != nil {
		h.fail(c, err)
		return
	}
	h.render(c, id, wf)
}

func (h *Handlers) handleArrived(c *gin.Context) {
	id, wf, ok := h.lookup(c)
	if !ok {
		return
	}
	if _, err := wf.MarkResponderArrived(); err != nil {
		h.fail(c, err)
		return
	}
	h.render(c, id, wf)
}

func (h *Handlers) handleAttachment(c *gin.Context) {
	id, wf, ok := h.lookup(c)
	if !ok {
		return
	}
	if h.deps.Storage == nil {
		c.AbortWithStatusJSON(http.StatusNotImplemented, response.Response{Code: http.StatusNotImplemented, Msg: "attachments are disabled"})
		return
	}
	fh, err := c.FormFile("image")
	if err != nil {
		response.Fail(c, "image file is required", nil)
		return
	}
	f, err := fh.Open()
	if err != nil {
		response.Fail(c, "unreadable image", nil)
		return
	}
	defer f.Close()

	if _, err := wf.AttachImage(c.Request.Context(), h.deps.Storage, fh.Filename, f, fh.Size, fh.Header.Get("Content-Type")); err != nil {
		h.logger.Warn("attach image failed", zap.String("flow", id), zap.Error(err))
		h.fail(c, err)
		return
	}
	h.render(c, id, wf)
}
