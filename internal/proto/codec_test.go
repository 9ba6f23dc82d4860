package proto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/encoding"
)

func TestJSONCodecIsRegistered(t *testing.T) {
	c := encoding.GetCodec(CodecName)
	require.NotNil(t, c)

	b, err := c.Marshal(&RefreshRequest{RefreshToken: "abc"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"refresh_token":"abc"}`, string(b))

	var out AuthResponse
	require.NoError(t, c.Unmarshal([]byte(`{"access_token":"a","refresh_token":"r"}`), &out))
	assert.Equal(t, AuthResponse{AccessToken: "a", RefreshToken: "r"}, out)
}
