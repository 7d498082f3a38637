package response

import (
	"net/http"

	"courtly/internal/shared/apperror"

	"github.com/gin-gonic/gin"
)

func RespondJSON(c *gin.Context, status string, code int, message string, data interface{}, errors interface{}) {
	c.JSON(code, StandardApiResponse{
		Status:     status,
		StatusCode: code,
		Message:    message,
		Data:       data,
		Errors:     errors,
	})
}

// RespondSuccess writes a "success" envelope.
func RespondSuccess(c *gin.Context, code int, message string, data interface{}) {
	RespondJSON(c, "success", code, message, data, nil)
}

// RespondError maps err to its HTTP status and writes the violated invariant
// in the errors field. Unclassified errors become 500 and hide their detail.
func RespondError(c *gin.Context, message string, err error) {
	code := apperror.StatusOf(err)
	if appErr, ok := apperror.As(err); ok {
		RespondJSON(c, "error", code, message, nil, ErrorDetail{
			Kind:   string(appErr.Kind),
			Detail: appErr.Message,
		})
		return
	}
	_ = c.Error(err)
	RespondJSON(c, "error", http.StatusInternalServerError, message, nil, ErrorDetail{
		Detail: "internal server error",
	})
}

// RespondBadRequest reports a binding or parameter error.
func RespondBadRequest(c *gin.Context, message string, err error) {
	RespondJSON(c, "error", http.StatusBadRequest, message, nil, ErrorDetail{Detail: err.Error()})
}
