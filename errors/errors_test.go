package errors_test

import (
	"errors"
	"testing"

	configerrors "github.com/halfword/configvol/errors"
	"github.com/stretchr/testify/assert"
)

func TestVolumeErrnoWithMessage(t *testing.T) {
	newErr := configerrors.ErrRegistryFull.WithMessage("no free slots")
	assert.Equal(t, "Entry registry is full: no free slots", newErr.Error())
	assert.ErrorIs(t, newErr, configerrors.ErrRegistryFull)
}

func TestVolumeErrnoWrap(t *testing.T) {
	originalErr := errors.New("short read")
	newErr := configerrors.ErrIOFailed.WrapError(originalErr)

	assert.Equal(t, "Input/output error: short read", newErr.Error())
	assert.ErrorIs(t, newErr, originalErr)
}

func TestAsVolumeErrnoFindsSentinelThroughMultipleWraps(t *testing.T) {
	chained := configerrors.ErrValidationFailed.WithMessage("WIFI_SSID").WithMessage("bootstrap")

	errno, ok := configerrors.AsVolumeErrno(chained)
	assert.True(t, ok)
	assert.Equal(t, configerrors.ErrValidationFailed, errno)
}

func TestAsVolumeErrnoFalseForPlainError(t *testing.T) {
	_, ok := configerrors.AsVolumeErrno(errors.New("not a sentinel"))
	assert.False(t, ok)
}
