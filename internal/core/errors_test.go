package core

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"mealplan-backend-go/internal/db"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		err  error
		want ErrorKind
	}{
		{fmt.Errorf("%w: planType %q", ErrUnknownPlan, "day"), KindClientInput},
		{fmt.Errorf("wrapped: %w", ErrInvalidEvent), KindClientInput},
		{storeError("read", "u", fmt.Errorf("x: %w", db.ErrNotFound)), KindNotFound},
		{ErrUnauthenticated, KindAuth},
		{fmt.Errorf("%w: bad", ErrWebhookSignature), KindSignatureInvalid},
		{fmt.Errorf("%w: 503", ErrProviderUnavailable), KindTransientProvider},
		{fmt.Errorf("%w: 400", ErrProviderRejected), KindProviderRejected},
		{fmt.Errorf("%w: sub_1", ErrCorrelation), KindCorrelation},
		{ErrMealPlanFormat, KindGenerationFormat},
		{storeError("update", "u", fmt.Errorf("profile: %w", context.DeadlineExceeded)), KindTransientProvider},
		{storeError("read", "u", context.Canceled), KindTransientProvider},
		{storeError("read", "u", fmt.Errorf("%w: rpc deadline", db.ErrUnavailable)), KindTransientProvider},
		{fmt.Errorf("%w: %w", ErrProviderRejected, context.DeadlineExceeded), KindProviderRejected},
		{errors.New("disk on fire"), KindInternal},
		{nil, KindInternal},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, KindOf(tt.err), "%v", tt.err)
	}
	assert.Equal(t, "correlation", KindCorrelation.String())
}
