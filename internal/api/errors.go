package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"mealplan-backend-go/internal/core"
)

// statusForKind is the single mapping from error kind to HTTP status on user-facing routes.
var statusForKind = map[core.ErrorKind]int{
	core.KindClientInput:       http.StatusBadRequest,
	core.KindNotFound:          http.StatusNotFound,
	core.KindAuth:              http.StatusUnauthorized,
	core.KindSignatureInvalid:  http.StatusBadRequest,
	core.KindTransientProvider: http.StatusServiceUnavailable,
	core.KindProviderRejected:  http.StatusBadGateway,
	core.KindCorrelation:       http.StatusInternalServerError,
	core.KindGenerationFormat:  http.StatusBadGateway,
	core.KindInternal:          http.StatusInternalServerError,
}

var messageForKind = map[core.ErrorKind]string{
	core.KindClientInput:       "Invalid request",
	core.KindNotFound:          "Not found",
	core.KindAuth:              "Unauthorized",
	core.KindSignatureInvalid:  "Webhook signature verification failed",
	core.KindTransientProvider: "Upstream service unavailable, please retry",
	core.KindProviderRejected:  "Payment provider rejected the request",
	core.KindCorrelation:       "Billing state could not be matched to a profile",
	core.KindGenerationFormat:  "Failed to parse meal plan, please try again",
	core.KindInternal:          "An unexpected internal server error occurred.",
}

// writeError answers with the status of err's kind. Details are only exposed for client
// errors; everything else is logged and answered generically.
func writeError(c *gin.Context, logger *zap.Logger, err error) {
	kind := core.KindOf(err)
	status := statusForKind[kind]
	if errors.Is(err, core.ErrSubscriptionNeeded) {
		status = http.StatusForbidden
	}

	resp := ErrorResponse{Error: messageForKind[kind]}
	switch kind {
	case core.KindClientInput, core.KindNotFound, core.KindAuth:
		resp.Details = err.Error()
	}

	if status >= http.StatusInternalServerError {
		logger.Error("Request failed", zap.String("path", c.FullPath()), zap.String("kind", kind.String()), zap.Error(err))
	}
	_ = c.Error(err)
	c.JSON(status, resp)
}
