package model

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_ErrorIncludesDetailWhenPresent(t *testing.T) {
	e := &Error{Message: "rebase failed", Detail: "CONFLICT (content): a.go"}
	assert.Equal(t, "rebase failed\nCONFLICT (content): a.go", e.Error())
}

func TestError_ErrorOmitsDetailWhenEmpty(t *testing.T) {
	e := &Error{Message: "rebase failed"}
	assert.Equal(t, "rebase failed", e.Error())
}

func TestError_UnwrapReturnsWrapped(t *testing.T) {
	wrapped := errors.New("exit status 1")
	e := &Error{Message: "backend failed", Wrapped: wrapped}
	assert.Equal(t, wrapped, errors.Unwrap(e))
}

func TestExitCode_NilErrorIsZero(t *testing.T) {
	assert.Equal(t, 0, ExitCode(nil))
}

func TestExitCode_PlainErrorIsOne(t *testing.T) {
	assert.Equal(t, 1, ExitCode(errors.New("boom")))
}

func TestExitCode_RebaseConflictIsThree(t *testing.T) {
	assert.Equal(t, 3, ExitCode(&Error{Kind: ErrRebaseConflict}))
}

func TestExitCode_IntegrationUnconfirmedIsFour(t *testing.T) {
	assert.Equal(t, 4, ExitCode(&Error{Kind: ErrIntegrationUnconfirmed}))
}

func TestExitCode_NotInteractiveIsFive(t *testing.T) {
	assert.Equal(t, 5, ExitCode(&Error{Kind: ErrNotInteractive}))
}

func TestExitCode_UnlistedKindDefaultsToOne(t *testing.T) {
	assert.Equal(t, 1, ExitCode(&Error{Kind: ErrBackend}))
}

func TestExitCode_ExplicitExitCodeOverridesKindTable(t *testing.T) {
	assert.Equal(t, 42, ExitCode(&Error{Kind: ErrRebaseConflict, ExitCode: 42}))
}

func TestExitCode_FindsErrorThroughFmtWrapping(t *testing.T) {
	werr := &Error{Kind: ErrIntegrationUnconfirmed}
	wrapped := fmt.Errorf("remove feature: %w", werr)
	assert.Equal(t, 4, ExitCode(wrapped))
}
