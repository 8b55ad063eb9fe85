package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/safee-analytics/odoo/internal/application/records"
	"github.com/safee-analytics/odoo/internal/infrastructure/odoo"
	"github.com/safee-analytics/odoo/internal/interfaces/http/dto"
)

// RecordService is the generic CRUD surface over Odoo models
type RecordService interface {
	List(ctx context.Context, sess odoo.Session, q records.ListQuery) (*records.ListResult, error)
	Get(ctx context.Context, sess odoo.Session, model string, id int, fieldsRaw string) (odoo.Record, error)
	Create(ctx context.Context, sess odoo.Session, model string, vals map[string]any) (odoo.Record, error)
	Update(ctx context.Context, sess odoo.Session, model string, id int, vals map[string]any) (odoo.Record, error)
	Delete(ctx context.Context, sess odoo.Session, model string, id int) error
	CallRecordMethod(ctx context.Context, sess odoo.Session, model string, id int, method string, args []any, kwargs map[string]any) (any, error)
	CallModelMethod(ctx context.Context, sess odoo.Session, model, method string, args []any, kwargs map[string]any) (any, error)
}

// RecordsHandler serves /api/:model
type RecordsHandler struct {
	BaseHandler
	records RecordService
}

// NewRecordsHandler creates the handler
func NewRecordsHandler(svc RecordService) *RecordsHandler {
	return &RecordsHandler{records: svc}
}

// CallRequest is the body of the method call endpoints
type CallRequest struct {
	Args   []any          `json:"args"`
	Kwargs map[string]any `json:"kwargs"`
}

// List godoc
// @Summary      Search and read records
// @Tags         CRUD Operations
// @Produce      json
// @Param        model  path  string true  "Odoo model, e.g. res.partner"
// @Param        domain query string false "JSON domain"
// @Param        fields query string false "JSON list of fields"
// @Param        limit  query int    false "Page size" default(80)
// @Param        offset query int    false "Offset"
// @Param        order  query string false "Order clause" default(id desc)
// @Success      200 {object} dto.Response
// @Router       /api/{model} [get]
func (h *RecordsHandler) List(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	limit, err := intQuery(c, "limit", 0)
	if err != nil || limit < 0 {
		h.BadRequest(c, "Invalid limit")
		return
	}
	offset, err := intQuery(c, "offset", 0)
	if err != nil || offset < 0 {
		h.BadRequest(c, "Invalid offset")
		return
	}

	result, err := h.records.List(c.Request.Context(), sess, records.ListQuery{
		Model:  c.Param("model"),
		Domain: c.Query("domain"),
		Fields: c.Query("fields"),
		Limit:  limit,
		Offset: offset,
		Order:  c.Query("order"),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewListResponse(result.Records, int64(result.Total), result.Count, result.Limit, result.Offset))
}

// Get reads one record
func (h *RecordsHandler) Get(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	id, ok := h.intParam(c, "id")
	if !ok {
		return
	}
	rec, err := h.records.Get(c.Request.Context(), sess, c.Param("model"), id, c.Query("fields"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, rec)
}

// Create creates a record from {"vals": {...}} or a bare object
func (h *RecordsHandler) Create(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	vals, ok := h.bindVals(c)
	if !ok {
		return
	}
	rec, err := h.records.Create(c.Request.Context(), sess, c.Param("model"), vals)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, rec)
}

// Update writes vals to one record and returns it
func (h *RecordsHandler) Update(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	id, ok := h.intParam(c, "id")
	if !ok {
		return
	}
	vals, ok := h.bindVals(c)
	if !ok {
		return
	}
	rec, err := h.records.Update(c.Request.Context(), sess, c.Param("model"), id, vals)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, rec)
}

// Delete unlinks one record
func (h *RecordsHandler) Delete(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	id, ok := h.intParam(c, "id")
	if !ok {
		return
	}
	if err := h.records.Delete(c.Request.Context(), sess, c.Param("model"), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"message": fmt.Sprintf("Record %d deleted", id)})
}

// CallRecord calls a public method on one record
func (h *RecordsHandler) CallRecord(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	id, ok := h.intParam(c, "id")
	if !ok {
		return
	}
	req, ok := h.bindCall(c)
	if !ok {
		return
	}
	result, err := h.records.CallRecordMethod(c.Request.Context(), sess, c.Param("model"), id, c.Param("method"), req.Args, req.Kwargs)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"result": result})
}

// CallModel calls a public model-level method
func (h *RecordsHandler) CallModel(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	req, ok := h.bindCall(c)
	if !ok {
		return
	}
	result, err := h.records.CallModelMethod(c.Request.Context(), sess, c.Param("model"), c.Param("method"), req.Args, req.Kwargs)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"result": result})
}

func (h *RecordsHandler) bindVals(c *gin.Context) (map[string]any, bool) {
	var body map[string]any
	if err := c.ShouldBindJSON(&body); err != nil {
		h.BadRequest(c, "Invalid JSON body")
		return nil, false
	}
	if raw, ok := body["vals"]; ok {
		vals, isMap := raw.(map[string]any)
		if !isMap {
			h.BadRequest(c, "vals must be an object")
			return nil, false
		}
		return vals, true
	}
	return body, true
}

// bindCall accepts an empty body as a call without arguments
func (h *RecordsHandler) bindCall(c *gin.Context) (CallRequest, bool) {
	var req CallRequest
	if c.Request.ContentLength == 0 {
		return req, true
	}
	if err := json.NewDecoder(c.Request.Body).Decode(&req); err != nil {
		h.BadRequest(c, "Invalid JSON body")
		return req, false
	}
	return req, true
}
