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
	err := New(ErrCodeInvalidParameter, "invalid parameter")
	suite.NotNil(err)
	suite.Equal(ErrCodeInvalidParameter, err.Code)
	suite.Equal("invalid parameter", err.Message)
	suite.Nil(err.Cause)
}

func (suite *ErrorTestSuite) TestNewfError() {
	err := Newf(ErrCodeContractUnavailable, "no contract for symbol %s", "BTCUSDT")
	suite.NotNil(err)
	suite.Equal(ErrCodeContractUnavailable, err.Code)
	suite.Equal("no contract for symbol BTCUSDT", err.Message)
	suite.Nil(err.Cause)
}

func (suite *ErrorTestSuite) TestWrapError() {
	cause := errors.New("underlying error")
	err := Wrap(ErrCodeOrderFailed, "exchange call failed", cause)
	suite.NotNil(err)
	suite.Equal(ErrCodeOrderFailed, err.Code)
	suite.Equal("exchange call failed", err.Message)
	suite.Equal(cause, err.Cause)
}

func (suite *ErrorTestSuite) TestWrapfError() {
	cause := errors.New("underlying error")
	err := Wrapf(ErrCodeOrderFailed, cause, "order failed for symbol: %s", "ETHUSDT")
	suite.NotNil(err)
	suite.Equal(ErrCodeOrderFailed, err.Code)
	suite.Equal("order failed for symbol: ETHUSDT", err.Message)
	suite.Equal(cause, err.Cause)
}

func (suite *ErrorTestSuite) TestErrorString() {
	err := New(ErrCodeInvalidParameter, "invalid parameter")
	suite.Equal("[100] invalid parameter", err.Error())
}

func (suite *ErrorTestSuite) TestErrorStringWithCause() {
	cause := errors.New("underlying error")
	err := Wrap(ErrCodeContractUnavailable, "contract lookup failed", cause)
	suite.Equal("[200] contract lookup failed: underlying error", err.Error())
}

func (suite *ErrorTestSuite) TestUnwrap() {
	cause := errors.New("underlying error")
	err := Wrap(ErrCodeOrderFailed, "order failed", cause)
	suite.Equal(cause, err.Unwrap())
}

func (suite *ErrorTestSuite) TestUnwrapNil() {
	err := New(ErrCodeInvalidParameter, "invalid parameter")
	suite.Nil(err.Unwrap())
}

func (suite *ErrorTestSuite) TestGetCode() {
	err := New(ErrCodeRiskRejected, "size below minimum")
	suite.Equal(ErrCodeRiskRejected, GetCode(err))
}

func (suite *ErrorTestSuite) TestGetCodeFromWrapped() {
	inner := New(ErrCodeRiskRejected, "size below minimum")
	wrapped := fmt.Errorf("submit failed: %w", inner)
	suite.Equal(ErrCodeRiskRejected, GetCode(wrapped))
}

func (suite *ErrorTestSuite) TestGetCodeUnknown() {
	err := errors.New("plain error")
	suite.Equal(ErrCodeUnknown, GetCode(err))
}

func (suite *ErrorTestSuite) TestHasCode() {
	err := New(ErrCodeUnsupportedOrderKind, "unsupported order kind")
	suite.True(HasCode(err, ErrCodeUnsupportedOrderKind))
	suite.False(HasCode(err, ErrCodeOrderFailed))
}

func (suite *ErrorTestSuite) TestIsRiskRejected() {
	suite.True(IsRiskRejected(New(ErrCodeRiskRejected, "account balance is zero")))
	suite.False(IsRiskRejected(New(ErrCodeOrderFailed, "order failed")))
	suite.False(IsRiskRejected(errors.New("plain error")))
}
