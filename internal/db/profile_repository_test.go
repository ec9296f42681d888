package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestUnavailableTagsTransientFirestoreErrors(t *testing.T) {
	for _, code := range []codes.Code{codes.DeadlineExceeded, codes.Unavailable, codes.Canceled} {
		err := unavailable(status.Error(code, "rpc failed"))
		assert.ErrorIs(t, err, ErrUnavailable, code.String())
		assert.Equal(t, code, status.Code(err), code.String())
	}

	plain := status.Error(codes.PermissionDenied, "no")
	assert.NotErrorIs(t, unavailable(plain), ErrUnavailable)
}
