package network

import (
	"fmt"
	"net"

	"github.com/xtaci/kcp-go/v5"
)

// Listen открывает слушатель игрового порта: "tcp" или "kcp" (надежный UDP)
func Listen(transport, addr string) (net.Listener, error) {
	switch transport {
	case "", "tcp":
		return net.Listen("tcp", addr)
	case "kcp":
		ln, err := kcp.ListenWithOptions(addr, nil, 10, 3)
		if err != nil {
			return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
		}
		return ln, nil
	default:
		return nil, fmt.Errorf("неизвестный транспорт %q", transport)
	}
}

// Dial подключается к игровому серверу по указанному транспорту
func Dial(transport, addr string) (net.Conn, error) {
	switch transport {
	case "", "tcp":
		return net.Dial("tcp", addr)
	case "kcp":
		sess, err := kcp.DialWithOptions(addr, nil, 10, 3)
		if err != nil {
			return nil, fmt.Errorf("failed to dial %s: %w", addr, err)
		}
		tuneConn(sess)
		return sess, nil
	default:
		return nil, fmt.Errorf("неизвестный транспорт %q", transport)
	}
}

// tuneConn настраивает KCP сессию под интерактивный трафик
func tuneConn(conn net.Conn) {
	us, ok := conn.(*kcp.UDPSession)
	if !ok {
		return
	}
	us.SetStreamMode(true)
	us.SetWriteDelay(false)
	us.SetNoDelay(1, 20, 2, 1)
	us.SetWindowSize(512, 512)
	us.SetMtu(1400)
}
