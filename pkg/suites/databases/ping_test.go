package databases_test

import (
	"bufio"
	"net"
	"strconv"
	"strings"
	"testing"

	"github.com/re-tools/re-healthcheck/pkg/suites/databases"

	. "github.com/onsi/gomega"
)

// serveRESP answers PING with pingReply and every other command with an error,
// which clients treat as an older server.
func serveRESP(t *testing.T, pingReply string) (string, int) {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	t.Cleanup(func() { _ = l.Close() })

	go func() {
		for {
			conn, err := l.Accept()
			if err != nil {
				return
			}

			go handleRESP(conn, pingReply)
		}
	}()

	addr := l.Addr().(*net.TCPAddr)

	return addr.IP.String(), addr.Port
}

func handleRESP(conn net.Conn, pingReply string) {
	defer func() { _ = conn.Close() }()

	r := bufio.NewReader(conn)

	for {
		args, err := readCommand(r)
		if err != nil {
			return
		}

		reply := "-ERR unknown command\r\n"
		if len(args) > 0 && strings.EqualFold(args[0], "PING") {
			reply = pingReply
		}

		if _, err := conn.Write([]byte(reply)); err != nil {
			return
		}
	}
}

func readCommand(r *bufio.Reader) ([]string, error) {
	header, err := r.ReadString('\n')
	if err != nil {
		return nil, err
	}

	n, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(header, "*")))
	if err != nil {
		return nil, err
	}

	args := make([]string, 0, n)
	for range n {
		if _, err := r.ReadString('\n'); err != nil {
			return nil, err
		}

		arg, err := r.ReadString('\n')
		if err != nil {
			return nil, err
		}

		args = append(args, strings.TrimSpace(arg))
	}

	return args, nil
}

func TestRedisPing(t *testing.T) {
	tests := []struct {
		name      string
		reply     string
		expectErr bool
	}{
		{name: "pong", reply: "+PONG\r\n"},
		{name: "password protected", reply: "-NOAUTH Authentication required.\r\n"},
		{name: "loading", reply: "-LOADING Redis is loading the dataset in memory\r\n", expectErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewWithT(t)

			host, port := serveRESP(t, tt.reply)

			err := databases.RedisPing(t.Context(), host, port)
			if tt.expectErr {
				g.Expect(err).To(HaveOccurred())
				g.Expect(err.Error()).To(ContainSubstring("LOADING"))

				return
			}

			g.Expect(err).ToNot(HaveOccurred())
		})
	}
}

func TestRedisPing_Unreachable(t *testing.T) {
	g := NewWithT(t)

	l, err := net.Listen("tcp", "127.0.0.1:0")
	g.Expect(err).ToNot(HaveOccurred())

	port := l.Addr().(*net.TCPAddr).Port
	g.Expect(l.Close()).To(Succeed())

	g.Expect(databases.RedisPing(t.Context(), "127.0.0.1", port)).ToNot(Succeed())
}
