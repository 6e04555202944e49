package routeros

import (
	"bufio"
	"context"
	"crypto/md5"
	"crypto/tls"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/mohit83k/aaabridge/internal/logger"
)

const (
	DefaultPort    = 8728
	DefaultTLSPort = 8729
	DefaultTimeout = 10 * time.Second
)

// Config holds what one device connection needs. It is never persisted
// beyond a single Execute call.
type Config struct {
	Address  string
	Username string
	Password string
	Timeout  time.Duration
	TLS      bool
	// TLSConfig is used when TLS is set. Nil means a default config.
	TLSConfig *tls.Config
}

// DialFunc opens the raw connection. Tests replace it to reach fake devices.
type DialFunc func(ctx context.Context, network, address string) (net.Conn, error)

// Observer is told about every command the client runs.
type Observer interface {
	ObserveCommand(path, outcome string, elapsed time.Duration)
}

type Option func(*Client)

func WithDialer(d DialFunc) Option {
	return func(c *Client) {
		c.dial = d
	}
}

func WithObserver(o Observer) Option {
	return func(c *Client) {
		c.observer = o
	}
}

func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		c.log = l
	}
}

// Client runs commands against one device. Every Execute call opens its
// own connection, logs in, runs exactly one command and closes the
// connection again; nothing is shared between calls, so a Client is safe
// for concurrent use.
type Client struct {
	cfg      Config
	dial     DialFunc
	observer Observer
	log      logger.Logger
}

func NewClient(cfg Config, opts ...Option) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	c := &Client{cfg: cfg, log: logger.Discard()}
	for _, opt := range opts {
		opt(c)
	}
	if c.dial == nil {
		c.dial = c.defaultDial
	}
	return c
}

func (c *Client) defaultDial(ctx context.Context, network, address string) (net.Conn, error) {
	if c.cfg.TLS {
		d := &tls.Dialer{Config: c.cfg.TLSConfig}
		return d.DialContext(ctx, network, address)
	}
	var d net.Dialer
	return d.DialContext(ctx, network, address)
}

// Execute runs cmd and returns its "!re" rows. All failures are returned
// as *DeviceError. No retries are made.
func (c *Client) Execute(ctx context.Context, cmd Command) (rows []Row, err error) {
	start := time.Now()
	defer func() {
		elapsed := time.Since(start)
		if c.observer != nil {
			c.observer.ObserveCommand(cmd.Path, Outcome(err), elapsed)
		}
		if err == nil {
			return
		}
		entry := c.log.WithFields(map[string]any{
			"device":  c.cfg.Address,
			"command": cmd.Path,
			"outcome": Outcome(err),
			"elapsed": elapsed.String(),
		})
		// Rejected commands are routine (duplicates on re-sync), the rest is not.
		if errors.Is(err, ErrCommand) || errors.Is(err, ErrNotFound) {
			entry.Warn(err.Error())
		} else {
			entry.Error(err)
		}
	}()

	if err := cmd.Validate(); err != nil {
		return nil, &DeviceError{Kind: KindProtocol, Command: cmd.Path, Category: -1, Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	conn, err := c.dial(ctx, "tcp", c.cfg.Address)
	if err != nil {
		return nil, c.ioError(ctx, cmd.Path, "dial "+c.cfg.Address, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	s := &session{conn: conn, r: bufio.NewReader(conn)}

	if err := s.login(c.cfg.Username, c.cfg.Password); err != nil {
		return nil, c.classify(ctx, "/login", err, KindAuth)
	}

	res, err := s.roundTrip(cmd.Words())
	if err != nil {
		return nil, c.classify(ctx, cmd.Path, err, KindCommand)
	}
	return res.rows, nil
}

// classify turns a session error into a DeviceError. Traps become trapKind
// (auth for login, command otherwise); I/O failures become connection errors.
func (c *Client) classify(ctx context.Context, path string, err error, trapKind Kind) error {
	var trap *trapError
	if errors.As(err, &trap) {
		if trapKind == KindAuth {
			return &DeviceError{Kind: KindAuth, Command: path, Message: trap.message, Category: trap.category}
		}
		return NewTrapError(path, trap.message, trap.category)
	}
	var perr *protocolError
	if errors.As(err, &perr) {
		return &DeviceError{Kind: KindProtocol, Command: path, Message: perr.msg, Category: -1}
	}
	var fatal *fatalError
	if errors.As(err, &fatal) {
		return &DeviceError{Kind: KindConnection, Command: path, Message: "device closed session: " + fatal.msg, Category: -1}
	}
	if errors.Is(err, ErrInvalidLength) || errors.Is(err, ErrWordTooLarge) {
		return &DeviceError{Kind: KindProtocol, Command: path, Message: "malformed reply", Category: -1, Err: err}
	}
	return c.ioError(ctx, path, "", err)
}

func (c *Client) ioError(ctx context.Context, path, msg string, err error) error {
	var ne net.Error
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded), errors.As(err, &ne) && ne.Timeout():
		msg = "timed out after " + c.cfg.Timeout.String()
	case errors.Is(ctx.Err(), context.Canceled):
		msg = "cancelled"
	}
	return &DeviceError{Kind: KindConnection, Command: path, Message: msg, Category: -1, Err: err}
}

type trapError struct {
	message  string
	category int
}

func (e *trapError) Error() string { return e.message }

type fatalError struct{ msg string }

func (e *fatalError) Error() string { return e.msg }

type protocolError struct{ msg string }

func (e *protocolError) Error() string { return e.msg }

type session struct {
	conn net.Conn
	r    *bufio.Reader
}

type result struct {
	rows []Row
	done Row
}

// roundTrip writes one sentence and reads replies until "!done". A "!trap"
// is remembered and reported after "!done" arrives.
func (s *session) roundTrip(words []string) (result, error) {
	if err := WriteSentence(s.conn, words...); err != nil {
		return result{}, err
	}

	var res result
	var trap *trapError
	for {
		sentence, err := ReadSentence(s.r)
		if err != nil {
			return result{}, err
		}
		rep, err := parseReply(sentence)
		if err != nil {
			return result{}, &protocolError{msg: err.Error()}
		}
		switch rep.word {
		case "!re":
			res.rows = append(res.rows, rep.attrs)
		case "!empty":
			// 7.18+ marks a reply without rows; "!done" still follows.
			continue
		case "!trap":
			if trap == nil {
				trap = &trapError{message: rep.attrs["message"], category: -1}
				if cat, err := strconv.Atoi(rep.attrs["category"]); err == nil {
					trap.category = cat
				}
			}
		case "!done":
			res.done = rep.attrs
			if trap != nil {
				return result{}, trap
			}
			return res, nil
		case "!fatal":
			msg := rep.fatal
			if msg == "" {
				msg = rep.attrs["message"]
			}
			return result{}, &fatalError{msg: msg}
		default:
			return result{}, &protocolError{msg: fmt.Sprintf("unexpected reply word %q", rep.word)}
		}
	}
}

// login authenticates with the plain-text method and falls back to the
// pre-6.43 MD5 challenge when the device answers with "=ret=".
func (s *session) login(username, password string) error {
	res, err := s.roundTrip([]string{"/login", "=name=" + username, "=password=" + password})
	if err != nil {
		return err
	}
	challenge, ok := res.done["ret"]
	if !ok || challenge == "" {
		return nil
	}

	raw, err := hex.DecodeString(challenge)
	if err != nil {
		return &protocolError{msg: "invalid login challenge: " + err.Error()}
	}
	_, err = s.roundTrip([]string{"/login", "=name=" + username, "=response=" + ChallengeResponse(password, raw)})
	return err
}

// ChallengeResponse computes the legacy login response "00" + md5(0x00 + password + challenge).
func ChallengeResponse(password string, challenge []byte) string {
	h := md5.New()
	h.Write([]byte{0})
	h.Write([]byte(password))
	h.Write(challenge)
	return "00" + hex.EncodeToString(h.Sum(nil))
}
