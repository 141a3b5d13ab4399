package network

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/blockverse/internal/protocol"
)

func TestListenUnknownTransport(t *testing.T) {
	_, err := Listen("quic", "127.0.0.1:0")
	assert.Error(t, err)
	_, err = Dial("quic", "127.0.0.1:1")
	assert.Error(t, err)
}

func TestServeOverTransports(t *testing.T) {
	for _, transport := range []string{"tcp", "kcp"} {
		t.Run(transport, func(t *testing.T) {
			env := newTestEnv(t, nil)
			ln, err := Listen(transport, "127.0.0.1:0")
			require.NoError(t, err)

			ctx, cancel := context.WithCancel(env.ctx)
			done := make(chan error, 1)
			go func() { done <- env.srv.Serve(ctx, ln) }()

			conn, err := Dial(transport, ln.Addr().String())
			require.NoError(t, err)
			defer conn.Close()

			require.NoError(t, protocol.WriteFrame(conn, protocol.MsgLogin, protocol.Login{Username: "remote"}))
			require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
			var resp protocol.LoginResponse
			for {
				f, err := protocol.ReadFrame(conn)
				require.NoError(t, err)
				if f.Type == protocol.MsgLoginResponse {
					require.NoError(t, f.Decode(&resp))
					break
				}
			}
			assert.True(t, resp.Success, resp.Message)

			cancel()
			select {
			case err := <-done:
				assert.NoError(t, err)
			case <-time.After(3 * time.Second):
				t.Fatal("Serve не завершился после отмены контекста")
			}

			shutdownCtx, stop := context.WithTimeout(context.Background(), 3*time.Second)
			defer stop()
			assert.NoError(t, env.srv.Shutdown(shutdownCtx))
		})
	}
}
