// controller/audit_controller.go
package controller

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/accesskit/gatekeeper/api/audit"
	"github.com/accesskit/gatekeeper/api/util"
	helper_util "github.com/accesskit/gatekeeper/api/util/helper"
)

type AuditController struct {
	auditService    audit.Service
	notificationSvc *util.NotificationService
}

func NewAuditController(auditService audit.Service, notificationSvc *util.NotificationService) *AuditController {
	return &AuditController{
		auditService:    auditService,
		notificationSvc: notificationSvc,
	}
}

// RegisterRoutes registers the API routes for the audit trail
func (ac *AuditController) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("", ac.QueryEntries)
	r.GET("/suspicious", ac.SuspiciousActivity)
}

// QueryEntries endpoint searches the audit trail
func (ac *AuditController) QueryEntries(c *gin.Context) {
	limit, offset, err := helper_util.GetPaginationParams(c)
	if err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid pagination parameters", err)
		return
	}

	filter := audit.Filter{
		ActorID:      c.Query("actor_id"),
		Kind:         c.Query("kind"),
		ResourceType: c.Query("resource_type"),
	}

	if from := c.Query("from"); from != "" {
		t, err := helper_util.ParseTime(from)
		if err != nil {
			util.RespondWithError(c, http.StatusBadRequest, "Invalid from timestamp", err)
			return
		}
		filter.From = t
	}
	if to := c.Query("to"); to != "" {
		t, err := helper_util.ParseTime(to)
		if err != nil {
			util.RespondWithError(c, http.StatusBadRequest, "Invalid to timestamp", err)
			return
		}
		filter.To = t
	}
	if success := c.Query("success"); success != "" {
		v, err := strconv.ParseBool(success)
		if err != nil {
			util.RespondWithError(c, http.StatusBadRequest, "Invalid success flag", err)
			return
		}
		filter.Success = &v
	}

	entries, err := ac.auditService.Query(c, filter, audit.Pagination{Limit: limit, Offset: offset})
	if err != nil {
		util.RespondWithError(c, http.StatusInternalServerError, "Failed to query audit trail", err)
		return
	}

	c.JSON(http.StatusOK, entries)
}

// SuspiciousActivity endpoint surfaces actors with repeated denials
func (ac *AuditController) SuspiciousActivity(c *gin.Context) {
	windowDays, err := strconv.Atoi(c.DefaultQuery("window_days", "7"))
	if err != nil || windowDays <= 0 {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid window_days", err)
		return
	}
	threshold, err := strconv.Atoi(c.DefaultQuery("threshold", "10"))
	if err != nil || threshold <= 0 {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid threshold", err)
		return
	}

	activity, err := ac.auditService.FindSuspiciousActivity(c, windowDays, threshold)
	if err != nil {
		util.RespondWithError(c, http.StatusInternalServerError, "Failed to aggregate audit trail", err)
		return
	}

	if len(activity) > 0 {
		if err := ac.notificationSvc.NotifyAdmins(c, fmt.Sprintf("%d actors exceeded %d denials in the last %d days", len(activity), threshold, windowDays)); err != nil {
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to notify admins", err)
			return
		}
	}

	c.JSON(http.StatusOK, activity)
}
