package responses

import (
	"net/http"

	"account-service/internal/apperr"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// UserResponse is the success envelope every endpoint answers with.
type UserResponse struct {
	Status  int                    `json:"status"`
	Message string                 `json:"message"`
	Data    map[string]interface{} `json:"data"`
}

// ErrorResponse carries a stable machine-readable code in Message.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// HandleHttpError renders err with its own code and status. Errors outside the
// taxonomy are logged and answered with fallback and 500.
func HandleHttpError(c *gin.Context, err error, fallback string) {
	e, ok := apperr.As(err)
	if !ok || e.Kind == apperr.Internal || e.Kind == apperr.UpstreamFailure {
		log.Error().Err(err).Str("path", c.FullPath()).Msg(fallback)
	}
	if !ok {
		c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{Success: false, Message: fallback, Code: http.StatusInternalServerError})
		return
	}
	c.AbortWithStatusJSON(e.Status, ErrorResponse{Success: false, Message: e.Code, Code: e.Status})
}

// ValidationError answers a malformed request body.
func ValidationError(c *gin.Context, err error) {
	log.Error().Err(err).Msg("error validating request fields")
	c.AbortWithStatusJSON(http.StatusBadRequest, UserResponse{
		Status:  http.StatusBadRequest,
		Message: "VALIDATION_ERROR",
		Data:    map[string]interface{}{"data": err.Error()},
	})
}
