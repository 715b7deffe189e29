package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

var (
	errAuthorization            = errors.New("pool rejected authorization")
	errConnectAttemptsExhausted = errors.New("could not connect to pool")
	errPoolReconnect            = errors.New("pool requested reconnect")
)

type dialFunc func(ctx context.Context, addr string) (net.Conn, error)

func defaultDial(ctx context.Context, addr string) (net.Conn, error) {
	d := net.Dialer{Timeout: stratumDialTimeout, KeepAlive: 30 * time.Second}
	return d.DialContext(ctx, "tcp", addr)
}

type pendingRequest struct {
	method string
	jobID  string
	sentAt time.Time
}

// StratumClient is a single stratum v1 session with reconnects. It owns the
// extranonce state and assembles each job's coinbase before handing the job
// to the handler.
type StratumClient struct {
	cfg     Config
	handler poolEventHandler
	dial    dialFunc

	connectRetryDelay  time.Duration
	reconnectDelay     time.Duration
	poolReconnectDelay time.Duration

	state atomic.Int32

	mu                 sync.Mutex
	addr               string
	conn               net.Conn
	extranonce1        string
	extranonce2Size    int
	extranonce2Counter uint64
	heldJob            *Job
	framer             *lineFramer

	writeMu   sync.Mutex
	nextID    atomic.Uint64
	pendingMu sync.Mutex
	pending   map[uint64]pendingRequest
}

func newStratumClient(cfg Config, handler poolEventHandler) *StratumClient {
	c := &StratumClient{
		cfg:                cfg,
		handler:            handler,
		dial:               defaultDial,
		connectRetryDelay:  connectRetryDelay,
		reconnectDelay:     reconnectDelay,
		poolReconnectDelay: poolReconnectDelay,
		addr:               cfg.PoolAddr(),
		framer:             newLineFramer(maxStratumMessageSize),
		pending:            make(map[uint64]pendingRequest),
	}
	c.state.Store(int32(sessionDisconnected))
	return c
}

func (c *StratumClient) State() sessionState {
	return sessionState(c.state.Load())
}

func (c *StratumClient) setState(s sessionState) {
	if sessionState(c.state.Swap(int32(s))) == s {
		return
	}
	logger.Debug("pool session state", "state", s)
	if c.handler != nil {
		c.handler.OnSessionState(s)
	}
}

func (c *StratumClient) currentConn() net.Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn
}

func (c *StratumClient) poolAddr() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.addr
}

// Run keeps a session alive until ctx is cancelled. It returns nil on
// cancellation, errConnectAttemptsExhausted when the first connection never
// succeeds and errAuthorization when the pool refuses the credentials.
func (c *StratumClient) Run(ctx context.Context) error {
	defer c.setState(sessionStopped)

	established := false
	failures := 0
	var delay time.Duration
	for {
		if delay > 0 {
			c.setState(sessionReconnecting)
			if !sleepCtx(ctx, delay) {
				return nil
			}
		}
		if ctx.Err() != nil {
			return nil
		}

		addr := c.poolAddr()
		c.setState(sessionConnecting)
		conn, err := c.dial(ctx, addr)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			failures++
			logger.Warn("pool connection failed", "kind", "network", "addr", addr, "attempt", failures, "error", err)
			if !established && failures >= c.cfg.ConnectAttempts {
				c.setState(sessionDisconnected)
				return fmt.Errorf("%w %s after %d attempts: %v", errConnectAttemptsExhausted, addr, failures, err)
			}
			delay = c.reconnectDelay
			if !established {
				delay = c.connectRetryDelay
			}
			continue
		}
		established = true
		failures = 0
		logger.Info("connected to pool", "kind", "network", "addr", addr)

		err = c.serve(ctx, conn)
		switch {
		case ctx.Err() != nil:
			return nil
		case errors.Is(err, errAuthorization):
			logger.Error("pool authorization failed", "user", c.cfg.StratumUsername(), "error", err)
			return err
		case errors.Is(err, errPoolReconnect):
			logger.Info("reconnecting at pool request", "kind", "network", "addr", c.poolAddr(), "delay", c.poolReconnectDelay)
			delay = c.poolReconnectDelay
		default:
			logger.Warn("pool connection lost", "kind", "network", "addr", addr, "error", err)
			delay = c.reconnectDelay
		}
	}
}

// serve runs the handshake and the read loop on one connection.
func (c *StratumClient) serve(ctx context.Context, conn net.Conn) error {
	c.beginSession(conn)
	defer c.endSession(conn)
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	c.setState(sessionConnected)
	if _, err := c.sendRequest("mining.subscribe", []any{c.cfg.UserAgent}, ""); err != nil {
		return fmt.Errorf("send subscribe: %w", err)
	}
	params := []any{c.cfg.StratumUsername(), c.cfg.PoolPassword}
	if _, err := c.sendRequest("mining.authorize", params, ""); err != nil {
		return fmt.Errorf("send authorize: %w", err)
	}
	return c.readLoop(conn)
}

// beginSession resets everything scoped to one connection. The extranonce2
// counter restarts at zero because the pool hands out a new extranonce1.
func (c *StratumClient) beginSession(conn net.Conn) {
	c.mu.Lock()
	c.conn = conn
	c.extranonce1 = ""
	c.extranonce2Size = 0
	c.extranonce2Counter = 0
	c.heldJob = nil
	c.mu.Unlock()
	c.framer.reset()

	c.pendingMu.Lock()
	clear(c.pending)
	c.pendingMu.Unlock()
}

func (c *StratumClient) endSession(conn net.Conn) {
	_ = conn.Close()
	c.mu.Lock()
	if c.conn == conn {
		c.conn = nil
	}
	c.mu.Unlock()

	c.pendingMu.Lock()
	lost := 0
	for _, p := range c.pending {
		if p.method == "mining.submit" {
			lost++
		}
	}
	clear(c.pending)
	c.pendingMu.Unlock()
	if lost > 0 {
		logger.Warn("connection closed with unanswered submissions", "count", lost)
	}
	c.setState(sessionDisconnected)
}

func (c *StratumClient) readLoop(conn net.Conn) error {
	buf := make([]byte, 4096)
	for {
		if err := conn.SetReadDeadline(time.Now().Add(stratumReadTimeout)); err != nil {
			return err
		}
		n, err := conn.Read(buf)
		if n > 0 {
			lines, dropped := c.framer.feed(buf[:n])
			if dropped > 0 {
				logger.Warn("discarded oversized pool message", "limit_bytes", maxStratumMessageSize)
			}
			for _, line := range lines {
				if herr := c.handleLine(line); herr != nil {
					return herr
				}
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return fmt.Errorf("pool closed the connection: %w", err)
			}
			return err
		}
	}
}

// handleLine dispatches one framed message. Malformed messages are logged
// and skipped; only session-ending conditions come back as errors.
func (c *StratumClient) handleLine(line []byte) error {
	logNetMessage("recv", line)
	var msg stratumMessage
	if err := fastJSONUnmarshal(line, &msg); err != nil {
		logger.Warn("malformed pool message", "error", fmt.Errorf("%w: %v", errProtocol, err))
		return nil
	}
	if msg.Method != "" {
		return c.handleNotification(&msg)
	}
	id, ok := parseMessageID(msg.ID)
	if !ok {
		logger.Warn("pool message without method or id", "error", errProtocol)
		return nil
	}
	return c.handleResponse(id, &msg)
}

func (c *StratumClient) takePending(id uint64) (pendingRequest, bool) {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()
	req, ok := c.pending[id]
	if ok {
		delete(c.pending, id)
	}
	return req, ok
}

func (c *StratumClient) handleResponse(id uint64, msg *stratumMessage) error {
	req, ok := c.takePending(id)
	if !ok {
		logger.Debug("response for unknown request", "id", id)
		return nil
	}
	switch req.method {
	case "mining.subscribe":
		return c.handleSubscribeResult(msg)
	case "mining.authorize":
		return c.handleAuthorizeResult(msg)
	case "mining.submit":
		c.handleSubmitResult(req, msg)
	}
	return nil
}

// parseSubscribeResult accepts the standard [subscriptions, extranonce1,
// extranonce2_size] result and the nested [subscriptions, [extranonce1,
// extranonce2_size]] variant.
func parseSubscribeResult(result any) (string, int, error) {
	arr, ok := result.([]any)
	if !ok || len(arr) < 2 {
		return "", 0, fmt.Errorf("%w: subscribe result %v", errProtocol, result)
	}
	fields := arr[1:]
	if nested, ok := arr[1].([]any); ok {
		fields = nested
	}
	if len(fields) < 2 {
		return "", 0, fmt.Errorf("%w: subscribe result missing extranonce fields", errProtocol)
	}
	en1, ok := fields[0].(string)
	if !ok || len(en1)%2 != 0 {
		return "", 0, fmt.Errorf("%w: bad extranonce1 %v", errProtocol, fields[0])
	}
	if _, err := hexDecodedLen(en1); err != nil {
		return "", 0, fmt.Errorf("%w: extranonce1: %v", errProtocol, err)
	}
	size, ok := jsonNumber(fields[1])
	if !ok || size < 0 || size > 32 || size != float64(int(size)) {
		return "", 0, fmt.Errorf("%w: bad extranonce2 size %v", errProtocol, fields[1])
	}
	return en1, int(size), nil
}

func hexDecodedLen(s string) (int, error) {
	buf := make([]byte, len(s)/2)
	if err := decodeHexToFixedBytes(buf, s); err != nil {
		return 0, err
	}
	return len(buf), nil
}

func (c *StratumClient) handleSubscribeResult(msg *stratumMessage) error {
	if msg.Error != nil {
		return fmt.Errorf("%w: subscribe rejected: %s", errProtocol, stratumErrorText(msg.Error))
	}
	en1, size, err := parseSubscribeResult(msg.Result)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.extranonce1 = en1
	c.extranonce2Size = size
	c.extranonce2Counter = 0
	c.mu.Unlock()
	if !c.State().authorized() {
		c.setState(sessionSubscribed)
	}
	logger.Info("subscribed to pool", "kind", "network", "extranonce1", en1, "extranonce2_size", size)
	return nil
}

func (c *StratumClient) handleAuthorizeResult(msg *stratumMessage) error {
	ok, _ := msg.Result.(bool)
	if !ok || msg.Error != nil {
		reason := stratumErrorText(msg.Error)
		if reason == "" {
			reason = "authorize returned false"
		}
		return fmt.Errorf("%w: %s", errAuthorization, reason)
	}
	c.setState(sessionAuthorized)
	logger.Info("authorized with pool", "kind", "success", "user", c.cfg.StratumUsername())

	c.mu.Lock()
	held := c.heldJob
	c.heldJob = nil
	c.mu.Unlock()
	if held != nil {
		c.deliverJob(held)
	}
	return nil
}

func (c *StratumClient) handleSubmitResult(req pendingRequest, msg *stratumMessage) {
	accepted, _ := msg.Result.(bool)
	reason := ""
	if msg.Error != nil {
		accepted = false
		reason = stratumErrorText(msg.Error)
	} else if !accepted {
		reason = "pool returned false"
	}
	logShareResult(accepted, req.jobID, reason)
	logger.Debug("share response time", "job", req.jobID, "rtt", time.Since(req.sentAt))
	if c.handler != nil {
		c.handler.OnShareResult(accepted, reason)
	}
}

func (c *StratumClient) handleNotification(msg *stratumMessage) error {
	switch msg.Method {
	case "mining.notify":
		job, err := jobFromNotify(msg.Params)
		if err != nil {
			logger.Warn("ignoring bad mining.notify", "error", err)
			return nil
		}
		c.acceptJob(job)
	case "mining.set_difficulty":
		if len(msg.Params) == 0 {
			logger.Warn("mining.set_difficulty without params", "error", errProtocol)
			return nil
		}
		diff, ok := jsonNumber(msg.Params[0])
		if !ok || !(diff > 0) {
			logger.Warn("ignoring invalid pool difficulty", "value", msg.Params[0])
			return nil
		}
		if c.handler != nil {
			c.handler.OnPoolDifficulty(diff)
		}
	case "mining.set_extranonce":
		en1, size, err := parseSubscribeResult(append([]any{nil}, msg.Params...))
		if err != nil {
			logger.Warn("ignoring bad mining.set_extranonce", "error", err)
			return nil
		}
		c.mu.Lock()
		c.extranonce1 = en1
		c.extranonce2Size = size
		c.extranonce2Counter = 0
		c.mu.Unlock()
		logger.Info("pool changed extranonce", "extranonce1", en1, "extranonce2_size", size)
	case "client.reconnect":
		c.applyReconnectTarget(msg.Params)
		return errPoolReconnect
	case "client.show_message":
		text := ""
		if len(msg.Params) > 0 {
			text = fmt.Sprint(msg.Params[0])
		}
		logger.Info("pool message", "kind", "network", "message", text)
	default:
		logger.Debug("unhandled pool notification", "method", msg.Method)
	}
	return nil
}

// applyReconnectTarget honours the optional [host, port] of client.reconnect.
func (c *StratumClient) applyReconnectTarget(params []any) {
	if len(params) < 2 {
		return
	}
	host, _ := params[0].(string)
	port, ok := jsonNumber(params[1])
	if host == "" || !ok || port <= 0 || port > 65535 {
		return
	}
	c.mu.Lock()
	c.addr = net.JoinHostPort(host, strconv.Itoa(int(port)))
	c.mu.Unlock()
}

// nextExtranonce2 formats the next counter value as size*2 hex digits.
func (c *StratumClient) nextExtranonce2Locked() string {
	v := c.extranonce2Counter
	c.extranonce2Counter++
	if c.extranonce2Size <= 0 {
		return ""
	}
	if c.extranonce2Size < 8 {
		v &= (uint64(1) << (8 * uint(c.extranonce2Size))) - 1
	}
	return fmt.Sprintf("%0*x", c.extranonce2Size*2, v)
}

// acceptJob gives the job a fresh extranonce2 and coinbase. Jobs arriving
// before authorization are held and only the newest is kept.
func (c *StratumClient) acceptJob(job *Job) {
	c.mu.Lock()
	en2 := c.nextExtranonce2Locked()
	err := job.assembleCoinbase(c.extranonce1, en2)
	if err == nil {
		job.ReceivedAt = time.Now()
	}
	authorized := c.State().authorized()
	if err == nil && !authorized {
		c.heldJob = job
	}
	c.mu.Unlock()

	if err != nil {
		logger.Warn("ignoring job with bad coinbase", "job", job.JobID, "error", err)
		return
	}
	if authorized {
		c.deliverJob(job)
	}
}

func (c *StratumClient) deliverJob(job *Job) {
	c.setState(sessionMining)
	if c.handler != nil {
		c.handler.OnJob(job)
	}
}

// SubmitShare sends mining.submit for nonce. It reports false without
// sending when the session is not authorized or the write fails; the
// pool's verdict arrives later through the handler.
func (c *StratumClient) SubmitShare(job *Job, nonce uint32) bool {
	if !c.State().authorized() {
		return false
	}
	params := []any{
		c.cfg.StratumUsername(),
		job.JobID,
		job.Extranonce2,
		job.NTime,
		uint32ToBEHex(nonce),
	}
	if _, err := c.sendRequest("mining.submit", params, job.JobID); err != nil {
		logger.Warn("share submission failed", "job", job.JobID, "error", err)
		return false
	}
	return true
}
