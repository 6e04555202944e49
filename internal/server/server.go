// Package server receives RADIUS accounting from the access device and
// turns it into AAA events.
package server

import (
	"context"
	"fmt"
	"net"
	"time"

	"layeh.com/radius"
	"layeh.com/radius/rfc2865"
	"layeh.com/radius/rfc2866"
	"layeh.com/radius/rfc2869"

	"github.com/mohit83k/aaabridge/internal/logger"
	"github.com/mohit83k/aaabridge/internal/model"
)

const DefaultAcctPort = "1813"

// EventSink stores events keyed by the reporting device.
type EventSink interface {
	SaveEvent(ctx context.Context, device string, ev model.LogEvent) (bool, error)
}

// Server handles incoming RADIUS Accounting-Request packets.
type Server struct {
	Addr   string
	Secret []byte
	Store  EventSink
	Logger logger.Logger

	now func() time.Time
}

// NewServer returns a new RADIUS accounting server.
func NewServer(addr string, secret string, store EventSink, log logger.Logger) *Server {
	return &Server{
		Addr:   addr,
		Secret: []byte(secret),
		Store:  store,
		Logger: log,
	}
}

// ListenAndServe listens for RADIUS packets and processes them.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr, err := net.ResolveUDPAddr("udp", s.Addr)
	if err != nil {
		return fmt.Errorf("failed to resolve UDP address: %w", err)
	}

	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on UDP: %w", err)
	}
	return s.Serve(ctx, conn)
}

// Serve processes packets from an already bound socket until ctx ends.
func (s *Server) Serve(ctx context.Context, conn *net.UDPConn) error {
	defer conn.Close()

	s.Logger.Info("RADIUS accounting listener on " + conn.LocalAddr().String())
	go func() {
		<-ctx.Done()
		_ = conn.Close() // unblocks ReadFromUDP
	}()

	buf := make([]byte, 4096)
	for {
		n, remoteAddr, err := conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil {
				s.Logger.Info("Shutting down RADIUS accounting listener")
				return nil
			}
			s.Logger.Error(fmt.Errorf("failed to read UDP: %w", err))
			continue
		}

		data := make([]byte, n)
		copy(data, buf[:n])
		go s.handlePacket(ctx, conn, data, remoteAddr)
	}
}

func (s *Server) handlePacket(ctx context.Context, conn net.PacketConn, data []byte, remoteAddr *net.UDPAddr) {
	packet, err := radius.Parse(data, s.Secret)
	if err != nil {
		s.Logger.WithFields(map[string]any{
			"bytes": len(data),
			"from":  remoteAddr.String(),
		}).Error(err)
		return
	}

	if packet.Code != radius.CodeAccountingRequest {
		s.Logger.WithFields(map[string]any{"type": packet.Code}).Info("Ignoring non-accounting packet")
		return
	}

	ev := s.toEvent(packet)
	device := remoteAddr.IP.String()
	if ev.AAA.NASIP != "" {
		device = ev.AAA.NASIP
	}

	// No response on a failed store so the device retransmits.
	stored, err := s.Store.SaveEvent(ctx, device, ev)
	if err != nil {
		s.Logger.Error(fmt.Errorf("failed to save accounting event: %w", err))
		return
	}

	s.Logger.WithFields(map[string]any{
		"username": ev.AAA.Username,
		"result":   ev.AAA.AuthResult,
		"session":  ev.AAA.SessionID,
		"new":      stored,
	}).Info("Stored accounting event")

	resp := packet.Response(radius.CodeAccountingResponse)
	encodedResp, err := resp.Encode()
	if err != nil {
		s.Logger.Error(fmt.Errorf("failed to encode response: %w", err))
		return
	}
	if conn != nil {
		if _, err := conn.WriteTo(encodedResp, remoteAddr); err != nil {
			s.Logger.Error(fmt.Errorf("failed to send response: %w", err))
		}
	}
}

// statusResults maps Acct-Status-Type onto the log classifier's
// authResult vocabulary. Interim updates carry no result.
var statusResults = map[rfc2866.AcctStatusType]string{
	rfc2866.AcctStatusType_Value_Start: "accept",
	rfc2866.AcctStatusType_Value_Stop:  "logout",
}

func (s *Server) toEvent(p *radius.Packet) model.LogEvent {
	now := time.Now().UTC()
	if s.now != nil {
		now = s.now()
	}

	status := rfc2866.AcctStatusType_Get(p)
	aaa := model.AAAFields{
		Username:         rfc2865.UserName_GetString(p),
		SessionID:        rfc2866.AcctSessionID_GetString(p),
		AuthResult:       statusResults[status],
		CallingStationID: rfc2865.CallingStationID_GetString(p),
		CalledStationID:  rfc2865.CalledStationID_GetString(p),
		NASPortID:        rfc2869.NASPortID_GetString(p),
	}
	if ip := rfc2865.NASIPAddress_Get(p); ip != nil {
		aaa.NASIP = ip.String()
	}
	if ip := rfc2865.FramedIPAddress_Get(p); ip != nil {
		aaa.FramedIP = ip.String()
		aaa.ClientIP = ip.String()
	}
	if rfc2865.FramedProtocol_Get(p) == rfc2865.FramedProtocol_Value_PPP {
		aaa.ServiceType = string(model.ServicePPPoE)
	}
	if cause, err := rfc2866.AcctTerminateCause_Lookup(p); err == nil {
		aaa.Reason = cause.String()
	}

	msg := fmt.Sprintf("accounting %s user=%s session-id=%s", status, aaa.Username, aaa.SessionID)
	if aaa.Reason != "" {
		msg += " cause=" + aaa.Reason
	}
	return model.LogEvent{
		ID:        "acct:" + aaa.SessionID + ":" + status.String(),
		Time:      now.Format("2006-01-02 15:04:05"),
		Timestamp: &now,
		Topics:    []string{"radius", "account"},
		Message:   msg,
		Kind:      model.EventAAA,
		AAA:       &aaa,
	}
}
