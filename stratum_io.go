package main

import (
	"errors"
	"io"
	"net"
	"time"
)

var errNotConnected = errors.New("not connected to pool")

func (c *StratumClient) writeJSON(v any) error {
	b, err := fastJSONMarshal(v)
	if err != nil {
		return err
	}
	b = append(b, '\n')
	return c.writeBytes(b)
}

// writeBytes is the only path onto the socket.
func (c *StratumClient) writeBytes(b []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	conn := c.currentConn()
	if conn == nil {
		return errNotConnected
	}
	return writeBytesLocked(conn, b)
}

func writeBytesLocked(conn net.Conn, b []byte) error {
	if err := conn.SetWriteDeadline(time.Now().Add(stratumWriteTimeout)); err != nil {
		return err
	}
	logNetMessage("send", b)
	for len(b) > 0 {
		n, err := conn.Write(b)
		if n > 0 {
			b = b[n:]
		}
		if err != nil {
			return err
		}
		if n == 0 {
			return io.ErrUnexpectedEOF
		}
	}
	return nil
}

// sendRequest registers a pending id for method and writes the request.
func (c *StratumClient) sendRequest(method string, params []any, jobID string) (uint64, error) {
	id := c.nextID.Add(1)
	c.pendingMu.Lock()
	c.pending[id] = pendingRequest{method: method, jobID: jobID, sentAt: time.Now()}
	c.pendingMu.Unlock()

	if err := c.writeJSON(stratumRequest{ID: id, Method: method, Params: params}); err != nil {
		c.pendingMu.Lock()
		delete(c.pending, id)
		c.pendingMu.Unlock()
		return 0, err
	}
	return id, nil
}
