package validate_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/adamwoolhether/rollup/business/sys/validate"
)

type model struct {
	Name      string `json:"name" validate:"required"`
	Signature []byte `json:"signature" validate:"required,len=65"`
}

func TestCheck(t *testing.T) {
	require.NoError(t, validate.Check(model{Name: "alice", Signature: make([]byte, 65)}))

	err := validate.Check(model{Signature: make([]byte, 10)})
	require.True(t, validate.IsFieldErrors(err))

	fields := validate.GetFieldErrors(fmt.Errorf("wrapped: %w", err)).Fields()
	require.Len(t, fields, 2)
	require.Equal(t, "name is a required field", fields["name"])
	require.Contains(t, fields, "signature")
}

func TestNotFieldErrors(t *testing.T) {
	require.False(t, validate.IsFieldErrors(fmt.Errorf("plain")))
	require.Nil(t, validate.GetFieldErrors(fmt.Errorf("plain")))
}
