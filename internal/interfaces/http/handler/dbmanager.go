package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/safee-analytics/odoo/internal/application/dbmanager"
	"github.com/safee-analytics/odoo/internal/domain/duplication"
	"github.com/safee-analytics/odoo/internal/interfaces/http/dto"
)

// MasterPasswordHeader carries the master password on job polling requests
const MasterPasswordHeader = "X-Master-Password"

// DatabaseManager runs master-password protected database maintenance
type DatabaseManager interface {
	CheckMasterPassword(pwd string) error
	CloseConnections(ctx context.Context, masterPwd, dbName string) (int, error)
	Duplicate(ctx context.Context, input dbmanager.DuplicateInput) (duplication.Job, error)
	DuplicateAsync(ctx context.Context, input dbmanager.DuplicateInput) (duplication.Job, error)
	Job(ctx context.Context, id uuid.UUID) (duplication.Job, error)
}

// DBManagerHandler serves /safee/db
type DBManagerHandler struct {
	BaseHandler
	manager DatabaseManager
}

// NewDBManagerHandler creates the handler
func NewDBManagerHandler(manager DatabaseManager) *DBManagerHandler {
	return &DBManagerHandler{manager: manager}
}

// CloseConnectionsRequest is the body of POST /safee/db/close_connections
type CloseConnectionsRequest struct {
	MasterPwd string `json:"master_pwd"`
	DBName    string `json:"db_name" binding:"required"`
}

// DuplicateRequest is the body of POST /safee/db/duplicate
type DuplicateRequest struct {
	MasterPwd  string `json:"master_pwd"`
	SourceDB   string `json:"source_db" binding:"required"`
	NewDB      string `json:"new_db" binding:"required"`
	Neutralize bool   `json:"neutralize"`
	Async      bool   `json:"async"`
}

// CloseConnections godoc
// @Summary      Terminate every session on a database
// @Tags         Database
// @Accept       json
// @Produce      json
// @Param        request body CloseConnectionsRequest true "Master password and database"
// @Success      200 {object} dto.Response
// @Failure      401 {object} dto.Response
// @Router       /safee/db/close_connections [post]
func (h *DBManagerHandler) CloseConnections(c *gin.Context) {
	var req CloseConnectionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}
	n, err := h.manager.CloseConnections(c.Request.Context(), req.MasterPwd, req.DBName)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{
		"message":    fmt.Sprintf("Closed connections to %s", req.DBName),
		"terminated": n,
	})
}

// Duplicate godoc
// @Summary      Duplicate a database
// @Description  Runs inside the request unless async is set, in which case the pending job is returned with 202.
// @Tags         Database
// @Accept       json
// @Produce      json
// @Param        request body DuplicateRequest true "Duplication request"
// @Success      200 {object} dto.Response{data=duplication.Job}
// @Success      202 {object} dto.Response{data=duplication.Job}
// @Failure      401 {object} dto.Response
// @Failure      502 {object} dto.Response
// @Router       /safee/db/duplicate [post]
func (h *DBManagerHandler) Duplicate(c *gin.Context) {
	var req DuplicateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}
	input := dbmanager.DuplicateInput{
		MasterPassword: req.MasterPwd,
		SourceDB:       req.SourceDB,
		NewDB:          req.NewDB,
		Neutralize:     req.Neutralize,
	}

	if req.Async {
		job, err := h.manager.DuplicateAsync(c.Request.Context(), input)
		if err != nil {
			h.HandleError(c, err)
			return
		}
		h.Accepted(c, job)
		return
	}

	job, err := h.manager.Duplicate(c.Request.Context(), input)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if job.Status == duplication.StatusFailed {
		h.Error(c, http.StatusBadGateway, dto.ErrCodeUpstream, fmt.Sprintf("Duplication of %s failed: %s", job.SourceDB, job.Error))
		return
	}
	h.Success(c, job)
}

// Job returns the state of a duplication job
func (h *DBManagerHandler) Job(c *gin.Context) {
	if err := h.manager.CheckMasterPassword(c.GetHeader(MasterPasswordHeader)); err != nil {
		h.HandleError(c, err)
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid job id")
		return
	}
	job, err := h.manager.Job(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, job)
}
