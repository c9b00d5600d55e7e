package transport

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lapply/lapply/internal/entity"
	"github.com/lapply/lapply/internal/service"
)

type CancellationHandler struct {
	cancellationService service.CancellationService
}

func NewCancellationHandler(cancellationService service.CancellationService) *CancellationHandler {
	return &CancellationHandler{cancellationService: cancellationService}
}

// SuccessResponse is the common success envelope.
type SuccessResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Meta    interface{} `json:"meta,omitempty"`
}

// ErrorResponse is the common error envelope. Data carries the partial
// cancellation result when a mid-sequence step failed.
type ErrorResponse struct {
	Success bool        `json:"success"`
	Error   string      `json:"error"`
	Data    interface{} `json:"data,omitempty"`
}

func (h *CancellationHandler) Cancel(c *gin.Context) {
	h.cancel(c)
}

// RepairCancel re-runs the cancellation sequence on an application whose
// earlier cancel attempt failed partway. The operation is the same one:
// on an already-canceled application it converges the side-effect steps.
func (h *CancellationHandler) RepairCancel(c *gin.Context) {
	h.cancel(c)
}

func (h *CancellationHandler) cancel(c *gin.Context) {
	applicationID := c.Param("id")
	if applicationID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Success: false,
			Error:   "application id is required",
		})
		return
	}

	result, err := h.cancellationService.Cancel(c.Request.Context(), applicationID)
	if err != nil {
		switch {
		case errors.Is(err, entity.ErrApplicationNotFound):
			c.JSON(http.StatusNotFound, ErrorResponse{
				Success: false,
				Error:   "application not found",
			})
		default:
			c.JSON(http.StatusInternalServerError, ErrorResponse{
				Success: false,
				Error:   "failed to cancel application: " + err.Error(),
				Data:    result,
			})
		}
		return
	}

	if result.Outcome == service.OutcomeNotCancelable {
		c.JSON(http.StatusOK, SuccessResponse{
			Success: false,
			Message: "application is not cancelable",
			Data:    result,
		})
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Success: true,
		Message: "application canceled",
		Data:    result,
	})
}
