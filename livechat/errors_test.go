package livechat

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseErrorCode(t *testing.T) {
	for code := ErrorUnsupportedVersion; code <= ErrorInternalServer; code++ {
		require.Equal(t, code, ParseErrorCode(code.String()), code.String())
	}
	require.Equal(t, ErrorUnknown, ParseErrorCode("not_connected"))
	require.Equal(t, ErrorUnknown, ParseErrorCode("brand_new_code"))
	require.Equal(t, "unknown_code_99", ErrorCode(99).String())
}

func TestErrorPredicates(t *testing.T) {
	invalidApp := FromProtocolError(&WireError{Code: "invalid_app_id", Msg: "no such app"})
	require.True(t, IsConfigError(invalidApp))
	require.True(t, IsProtocolError(invalidApp))
	require.False(t, IsAuthError(invalidApp))

	wrapped := fmt.Errorf("subscribe: %w", FromProtocolError(&WireError{Code: "unauthorized"}))
	require.True(t, IsAuthError(wrapped))
	require.ErrorIs(t, wrapped, NewError(ErrorUnauthorized, ""))

	down := WrapError(ErrorDisconnected, "read", errors.New("EOF"))
	require.True(t, IsConnectionError(down))
	require.False(t, IsProtocolError(down))
	require.EqualError(t, down, "disconnected: read (wrapped: EOF)")

	require.False(t, IsConfigError(errors.New("plain")))
	require.Nil(t, FromProtocolError(nil))
}
