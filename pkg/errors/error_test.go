package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/suite"
)

type ErrorTestSuite struct {
	suite.Suite
}

func TestErrorSuite(t *testing.T) {
	suite.Run(t, new(ErrorTestSuite))
}

func (suite *ErrorTestSuite) TestNewError() {
	err := New(ErrCodeMissingRequiredFields, "pair is required")
	suite.NotNil(err)
	suite.Equal(ErrCodeMissingRequiredFields, err.Code)
	suite.Equal("pair is required", err.Message)
	suite.Nil(err.Cause)
}

func (suite *ErrorTestSuite) TestNewfError() {
	err := Newf(ErrCodeInvalidEnum, "unknown direction %q", "hold")
	suite.Equal(ErrCodeInvalidEnum, err.Code)
	suite.Equal(`unknown direction "hold"`, err.Message)
}

func (suite *ErrorTestSuite) TestWrapError() {
	cause := errors.New("connection refused")
	err := Wrap(ErrCodeBackendUnavailable, "backend unreachable", cause)
	suite.Equal(ErrCodeBackendUnavailable, err.Code)
	suite.Equal(cause, err.Cause)
	suite.Equal(cause, err.Unwrap())
}

func (suite *ErrorTestSuite) TestWrapfError() {
	cause := errors.New("duplicate key")
	err := Wrapf(ErrCodeUniqueViolation, cause, "chunk %d rejected", 2)
	suite.Equal("chunk 2 rejected", err.Message)
	suite.Equal("[301] chunk 2 rejected: duplicate key", err.Error())
}

func (suite *ErrorTestSuite) TestErrorString() {
	err := New(ErrCodeInvalidParameter, "invalid parameter")
	suite.Equal("[100] invalid parameter", err.Error())
}

func (suite *ErrorTestSuite) TestUnwrapNil() {
	err := New(ErrCodeInvalidParameter, "invalid parameter")
	suite.Nil(err.Unwrap())
}

func (suite *ErrorTestSuite) TestGetCode() {
	tests := []struct {
		name     string
		err      error
		expected ErrorCode
	}{
		{name: "direct", err: New(ErrCodeInvalidNumber, "bad"), expected: ErrCodeInvalidNumber},
		{name: "outermost wins", err: Wrap(ErrCodeImportChunkFailed, "chunk", New(ErrCodeUniqueViolation, "dup")), expected: ErrCodeImportChunkFailed},
		{name: "fmt wrapped", err: fmt.Errorf("ctx: %w", New(ErrCodeQueryFailed, "q")), expected: ErrCodeQueryFailed},
		{name: "plain error", err: errors.New("standard error"), expected: ErrCodeUnknown},
		{name: "nil", err: nil, expected: ErrCodeUnknown},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			suite.Equal(tc.expected, GetCode(tc.err))
		})
	}
}

func (suite *ErrorTestSuite) TestHasCode() {
	err := New(ErrCodeTradeNotFound, "trade not found")
	suite.True(HasCode(err, ErrCodeTradeNotFound))
	suite.False(HasCode(err, ErrCodeQueryFailed))
}

func (suite *ErrorTestSuite) TestIsAndAs() {
	cause := errors.New("underlying error")
	err := Wrap(ErrCodeQueryFailed, "query failed", cause)
	suite.True(Is(err, cause))

	var coded *Error
	suite.True(As(err, &coded))
	suite.Equal(ErrCodeQueryFailed, coded.Code)
}

func (suite *ErrorTestSuite) TestIsPersistence() {
	suite.True(IsPersistence(New(ErrCodeUniqueViolation, "dup")))
	suite.True(IsPersistence(New(ErrCodeSchemaMismatch, "schema")))
	suite.False(IsPersistence(New(ErrCodeImportNoUser, "no user")))
	suite.False(IsPersistence(errors.New("plain")))
}

func (suite *ErrorTestSuite) TestErrorCodeRanges() {
	suite.Equal(ErrorCode(1), ErrCodeUnknown)
	suite.Equal(ErrorCode(100), ErrCodeInvalidParameter)
	suite.Equal(ErrorCode(200), ErrCodeMissingInput)
	suite.Equal(ErrorCode(300), ErrCodeBackendUnavailable)
	suite.Equal(ErrorCode(400), ErrCodeImportNoUser)
	suite.Equal(ErrorCode(500), ErrCodeCacheDisabled)
	suite.Equal(ErrorCode(600), ErrCodeInvalidConfiguration)
}
