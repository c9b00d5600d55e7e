package transport

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lapply/lapply/internal/entity"
	"github.com/lapply/lapply/internal/service"
)

type ApplicationHandler struct {
	queryService service.ApplicationQueryService
}

func NewApplicationHandler(queryService service.ApplicationQueryService) *ApplicationHandler {
	return &ApplicationHandler{queryService: queryService}
}

// GetCancelable lists the user's applied, future applications for one
// organization. The list is queried fresh on every call.
func (h *ApplicationHandler) GetCancelable(c *gin.Context) {
	userID := c.Query("userId")
	organizationID := c.Query("organizationId")

	applications, err := h.queryService.FindCancelable(c.Request.Context(), userID, organizationID, time.Now())
	if err != nil {
		if errors.Is(err, entity.ErrInvalidInput) {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Success: false,
				Error:   "userId and organizationId are required",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Success: false,
			Error:   "failed to get cancelable applications: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Success: true,
		Message: "cancelable applications retrieved successfully",
		Data:    applications,
		Meta: map[string]interface{}{
			"count": len(applications),
		},
	})
}

func (h *ApplicationHandler) GetOrganizationApplications(c *gin.Context) {
	organizationID := c.Param("id")
	if organizationID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Success: false,
			Error:   "organization id is required",
		})
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 {
		limit = 50
	}
	if limit > 100 {
		limit = 100
	}

	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}

	applications, err := h.queryService.GetByOrganization(c.Request.Context(), organizationID, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Success: false,
			Error:   "failed to get applications: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Success: true,
		Message: "applications retrieved successfully",
		Data:    applications,
		Meta: map[string]interface{}{
			"organization_id": organizationID,
			"count":           len(applications),
			"limit":           limit,
			"offset":          offset,
		},
	})
}

// GetEventAvailability returns an event with the current capacity of each
// of its slots.
func (h *ApplicationHandler) GetEventAvailability(c *gin.Context) {
	eventID := c.Param("id")
	if eventID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Success: false,
			Error:   "event id is required",
		})
		return
	}

	event, err := h.queryService.GetEventAvailability(c.Request.Context(), eventID)
	if err != nil {
		if errors.Is(err, entity.ErrEventNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Success: false,
				Error:   "event not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Success: false,
			Error:   "failed to get event: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Success: true,
		Message: "event retrieved successfully",
		Data:    event,
	})
}
