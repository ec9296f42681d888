package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"mealplan-backend-go/internal/core"
)

func TestWriteErrorStatus(t *testing.T) {
	tests := []struct {
		err     error
		status  int
		details bool
	}{
		{fmt.Errorf("%w: planType", core.ErrInvalidInput), http.StatusBadRequest, true},
		{core.ErrUnknownPlan, http.StatusBadRequest, true},
		{core.ErrProfileNotFound, http.StatusNotFound, true},
		{core.ErrUnauthenticated, http.StatusUnauthorized, true},
		{core.ErrSubscriptionNeeded, http.StatusForbidden, true},
		{core.ErrProviderUnavailable, http.StatusServiceUnavailable, false},
		{core.ErrProviderRejected, http.StatusBadGateway, false},
		{core.ErrCorrelation, http.StatusInternalServerError, false},
		{core.ErrMealPlanFormat, http.StatusBadGateway, false},
		{fmt.Errorf("boom"), http.StatusInternalServerError, false},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			writeError(c, zaptest.NewLogger(t), tt.err)

			assert.Equal(t, tt.status, w.Code)
			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.NotEmpty(t, resp.Error)
			assert.Equal(t, tt.details, resp.Details != "")
		})
	}
}
