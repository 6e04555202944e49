// Package session reads and terminates live subscriber sessions.
package session

import (
	"context"
	"fmt"

	"github.com/mohit83k/aaabridge/internal/command"
	"github.com/mohit83k/aaabridge/internal/logger"
	"github.com/mohit83k/aaabridge/internal/model"
	"github.com/mohit83k/aaabridge/internal/routeros"
)

// Reader lists and disconnects sessions through the device API. Each call
// is a single round trip.
type Reader struct {
	exec routeros.Executor
	log  logger.Logger
}

func NewReader(exec routeros.Executor, log logger.Logger) *Reader {
	if log == nil {
		log = logger.Discard()
	}
	return &Reader{exec: exec, log: log}
}

func (r *Reader) List(ctx context.Context, service model.ServiceType) ([]model.Session, error) {
	cmd, err := command.SessionList{Service: service}.Build()
	if err != nil {
		return nil, err
	}
	rows, err := r.exec.Execute(ctx, cmd)
	if err != nil {
		return nil, err
	}
	sessions := make([]model.Session, 0, len(rows))
	for _, row := range rows {
		sessions = append(sessions, fromRow(row, service))
	}
	return sessions, nil
}

// ListResult is List wrapped in the caller envelope.
func (r *Reader) ListResult(ctx context.Context, service model.ServiceType) model.Result {
	sessions, err := r.List(ctx, service)
	if err != nil {
		return model.Fail("failed to list "+string(service)+" sessions", err)
	}
	return model.OK(fmt.Sprintf("%d active %s sessions", len(sessions), service), sessions)
}

// Disconnect removes the session with the given device id. An unknown id
// is an ordinary failure result.
func (r *Reader) Disconnect(ctx context.Context, id string, service model.ServiceType) model.Result {
	cmd, err := command.SessionRemove{Service: service, ID: id}.Build()
	if err != nil {
		return model.Fail("cannot disconnect session", err)
	}
	if _, err := r.exec.Execute(ctx, cmd); err != nil {
		if routeros.IsNotFound(err) {
			return model.Fail("session "+id+" not found", err)
		}
		return model.Fail("failed to disconnect session "+id, err)
	}
	r.log.WithFields(map[string]any{"session": id, "service": string(service)}).Info("session disconnected")
	return model.OK("session "+id+" disconnected", nil)
}

func fromRow(row routeros.Row, service model.ServiceType) model.Session {
	s := model.Session{
		ID:          row.ID(),
		Address:     row["address"],
		Uptime:      row["uptime"],
		SessionID:   row["session-id"],
		ServiceType: service,
	}
	switch service {
	case model.ServiceHotspot:
		s.Username = row["user"]
		s.CallerID = row["mac-address"]
		s.BytesIn = row["bytes-in"]
		s.BytesOut = row["bytes-out"]
	default:
		s.Username = row["name"]
		s.CallerID = row["caller-id"]
	}
	return s
}
