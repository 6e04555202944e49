package session

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"layeh.com/radius"
	"layeh.com/radius/rfc2865"
	"layeh.com/radius/rfc2866"

	"github.com/mohit83k/aaabridge/internal/logger"
	"github.com/mohit83k/aaabridge/internal/model"
)

const DefaultCoAPort = 3799

// CoADisconnector ends sessions with an RFC 3576 Disconnect-Request sent
// to the device's incoming RADIUS port. It is an alternative to the API
// path for sessions that were authenticated through RADIUS.
type CoADisconnector struct {
	Addr    string
	Secret  []byte
	Timeout time.Duration
	Logger  logger.Logger
}

func NewCoADisconnector(host string, port int, secret string, timeout time.Duration, log logger.Logger) *CoADisconnector {
	if port == 0 {
		port = DefaultCoAPort
	}
	if log == nil {
		log = logger.Discard()
	}
	return &CoADisconnector{
		Addr:    net.JoinHostPort(host, strconv.Itoa(port)),
		Secret:  []byte(secret),
		Timeout: timeout,
		Logger:  log,
	}
}

// Disconnect asks the device to end the session identified by username
// and, when given, accounting session id. A NAK or no answer is a failure
// result.
func (d *CoADisconnector) Disconnect(ctx context.Context, username, acctSessionID string) model.Result {
	if username == "" && acctSessionID == "" {
		return model.Fail("cannot disconnect session", errors.New("username or accounting session id is required"))
	}

	pkt := radius.New(radius.CodeDisconnectRequest, d.Secret)
	if username != "" {
		if err := rfc2865.UserName_SetString(pkt, username); err != nil {
			return model.Fail("cannot build disconnect request", err)
		}
	}
	if acctSessionID != "" {
		if err := rfc2866.AcctSessionID_SetString(pkt, acctSessionID); err != nil {
			return model.Fail("cannot build disconnect request", err)
		}
	}

	if d.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.Timeout)
		defer cancel()
	}

	// Retry 0: a single attempt, matching the API client.
	client := &radius.Client{}
	resp, err := client.Exchange(ctx, pkt, d.Addr)
	if err != nil {
		return model.Fail("disconnect request to "+d.Addr+" failed", err)
	}

	target := username
	if target == "" {
		target = acctSessionID
	}
	fields := map[string]any{"nas": d.Addr, "username": username, "session": acctSessionID}
	if resp.Code != radius.CodeDisconnectACK {
		err := fmt.Errorf("device answered %s", resp.Code)
		d.Logger.WithFields(fields).Error(err)
		return model.Fail("session "+target+" was not disconnected", err)
	}
	d.Logger.WithFields(fields).Info("session disconnected via RADIUS")
	return model.OK("session "+target+" disconnected", nil)
}
