package cluster

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIPCRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := newIPCWriter(&buf)

	require.NoError(t, w.Send(Message{Type: MsgReady}))
	require.NoError(t, w.Send(Message{Type: MsgBeginGracefulShutdown}))

	r := newIPCReader(&buf)

	msg, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, MsgReady, msg.Type)

	msg, err = r.Next()
	require.NoError(t, err)
	assert.Equal(t, MsgBeginGracefulShutdown, msg.Type)

	_, err = r.Next()
	assert.Equal(t, io.EOF, err)
}
