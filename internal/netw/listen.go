package netw

import (
	"bufio"
	"net"
)

// Listen binds a TCP port given as a bare port number or host:port.
func Listen(port string) (net.Listener, error) {
	addr := port
	if _, _, err := net.SplitHostPort(addr); err != nil {
		addr = ":" + port
	}
	return net.Listen("tcp", addr)
}

// LineConn wraps a slave connection with the buffered line framing GTP
// uses on the wire. All I/O is done without any engine lock held.
type LineConn struct {
	conn net.Conn
	r    *bufio.Reader
	w    *bufio.Writer
	Addr string
}

func NewLineConn(conn net.Conn) *LineConn {
	addr := ""
	if ra := conn.RemoteAddr(); ra != nil {
		if host, _, err := net.SplitHostPort(ra.String()); err == nil {
			addr = host
		} else {
			addr = ra.String()
		}
	}
	return &LineConn{
		conn: conn,
		r:    bufio.NewReader(conn),
		w:    bufio.NewWriter(conn),
		Addr: addr,
	}
}

// ReadLine returns one line including its trailing newline.
func (c *LineConn) ReadLine() (string, error) {
	return c.r.ReadString('\n')
}

func (c *LineConn) Send(p []byte) error {
	if _, err := c.w.Write(p); err != nil {
		return err
	}
	return c.w.Flush()
}

func (c *LineConn) Close() error {
	return c.conn.Close()
}
