package model

import "time"

// EventKind tells which structured payload of a LogEvent is populated.
type EventKind string

const (
	EventNAT   EventKind = "nat"
	EventAAA   EventKind = "aaa"
	EventOther EventKind = "other"
)

// LogEvent is one device log line plus whatever structure could be
// extracted from it. Fields that were not found stay empty.
type LogEvent struct {
	ID        string     `json:"id,omitempty" yaml:"id,omitempty"`
	Time      string     `json:"time,omitempty" yaml:"time,omitempty"`
	Timestamp *time.Time `json:"timestamp,omitempty" yaml:"timestamp,omitempty"`
	Topics    []string   `json:"topics" yaml:"topics"`
	Message   string     `json:"message" yaml:"message"`
	Kind      EventKind  `json:"kind" yaml:"kind"`
	NAT       *NATFields `json:"nat,omitempty" yaml:"nat,omitempty"`
	AAA       *AAAFields `json:"aaa,omitempty" yaml:"aaa,omitempty"`
}

// NATFields are the firewall/NAT attributes of a log line.
type NATFields struct {
	SourceIP        string `json:"source_ip,omitempty" yaml:"source_ip,omitempty"`
	DestinationIP   string `json:"destination_ip,omitempty" yaml:"destination_ip,omitempty"`
	SourcePort      string `json:"source_port,omitempty" yaml:"source_port,omitempty"`
	DestinationPort string `json:"destination_port,omitempty" yaml:"destination_port,omitempty"`
	Protocol        string `json:"protocol,omitempty" yaml:"protocol,omitempty"`
	Action          string `json:"action,omitempty" yaml:"action,omitempty"`
	NATType         string `json:"nat_type,omitempty" yaml:"nat_type,omitempty"`
	InInterface     string `json:"in_interface,omitempty" yaml:"in_interface,omitempty"`
	OutInterface    string `json:"out_interface,omitempty" yaml:"out_interface,omitempty"`
}

// AAAFields are the authentication/accounting attributes of a log line.
type AAAFields struct {
	Username         string `json:"username,omitempty" yaml:"username,omitempty"`
	ClientIP         string `json:"client_ip,omitempty" yaml:"client_ip,omitempty"`
	NASIP            string `json:"nas_ip,omitempty" yaml:"nas_ip,omitempty"`
	SessionID        string `json:"session_id,omitempty" yaml:"session_id,omitempty"`
	AuthResult       string `json:"auth_result,omitempty" yaml:"auth_result,omitempty"`
	ServiceType      string `json:"service_type,omitempty" yaml:"service_type,omitempty"`
	Reason           string `json:"reason,omitempty" yaml:"reason,omitempty"`
	CallingStationID string `json:"calling_station_id,omitempty" yaml:"calling_station_id,omitempty"`
	CalledStationID  string `json:"called_station_id,omitempty" yaml:"called_station_id,omitempty"`
	NASPortID        string `json:"nas_port_id,omitempty" yaml:"nas_port_id,omitempty"`
	FramedIP         string `json:"framed_ip,omitempty" yaml:"framed_ip,omitempty"`
}

func (n NATFields) Empty() bool { return n == NATFields{} }

func (a AAAFields) Empty() bool { return a == AAAFields{} }
