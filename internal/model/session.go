package model

// Session is a live subscriber session as reported by the device. It is
// observed and possibly terminated, never created by this system.
type Session struct {
	ID          string      `json:"id" yaml:"id"`
	Username    string      `json:"username" yaml:"username"`
	Address     string      `json:"address,omitempty" yaml:"address,omitempty"`
	CallerID    string      `json:"caller_id,omitempty" yaml:"caller_id,omitempty"`
	Uptime      string      `json:"uptime,omitempty" yaml:"uptime,omitempty"`
	SessionID   string      `json:"session_id,omitempty" yaml:"session_id,omitempty"`
	BytesIn     string      `json:"bytes_in,omitempty" yaml:"bytes_in,omitempty"`
	BytesOut    string      `json:"bytes_out,omitempty" yaml:"bytes_out,omitempty"`
	ServiceType ServiceType `json:"service_type" yaml:"service_type"`
}
