package model

// Package is the application-side service package a subscriber is on.
// Rates are in Mbps, burst time in seconds.
type Package struct {
	Name                   string  `json:"name" yaml:"name"`
	DownloadMbps           float64 `json:"download_mbps" yaml:"download_mbps"`
	UploadMbps             float64 `json:"upload_mbps" yaml:"upload_mbps"`
	BurstEnabled           bool    `json:"burst_enabled" yaml:"burst_enabled"`
	BurstDownloadMbps      float64 `json:"burst_download_mbps,omitempty" yaml:"burst_download_mbps"`
	BurstUploadMbps        float64 `json:"burst_upload_mbps,omitempty" yaml:"burst_upload_mbps"`
	BurstThresholdDownMbps float64 `json:"burst_threshold_download_mbps,omitempty" yaml:"burst_threshold_download_mbps"`
	BurstThresholdUpMbps   float64 `json:"burst_threshold_upload_mbps,omitempty" yaml:"burst_threshold_upload_mbps"`
	BurstTimeSeconds       int     `json:"burst_time_seconds,omitempty" yaml:"burst_time_seconds"`
	SessionTimeout         string  `json:"session_timeout,omitempty" yaml:"session_timeout"`
	IdleTimeout            string  `json:"idle_timeout,omitempty" yaml:"idle_timeout"`
	SharedUsers            int     `json:"shared_users,omitempty" yaml:"shared_users"`
	AddressPool            string  `json:"address_pool,omitempty" yaml:"address_pool"`
}

// Subscriber is the application-side customer record.
type Subscriber struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	LoginID     string `json:"login_id,omitempty" yaml:"login_id"`
	Phone       string `json:"phone,omitempty" yaml:"phone"`
	Email       string `json:"email,omitempty" yaml:"email"`
	Secret      string `json:"-" yaml:"secret"`
	Active      bool   `json:"active" yaml:"active"`
	PackageName string `json:"package" yaml:"package"`
	MACAddress  string `json:"mac_address,omitempty" yaml:"mac_address"`
	IPAddress   string `json:"ip_address,omitempty" yaml:"ip_address"`
}

// Username returns the stable device-side account name: the configured
// login identifier, else the phone number, else the email address.
func (s Subscriber) Username() string {
	switch {
	case s.LoginID != "":
		return s.LoginID
	case s.Phone != "":
		return s.Phone
	default:
		return s.Email
	}
}

// BandwidthProfile is the device-side rate-limit profile derived from a Package.
type BandwidthProfile struct {
	Name           string      `json:"name" yaml:"name"`
	ServiceType    ServiceType `json:"service_type" yaml:"service_type"`
	RateLimit      string      `json:"rate_limit" yaml:"rate_limit"`
	SessionTimeout string      `json:"session_timeout,omitempty" yaml:"session_timeout,omitempty"`
	IdleTimeout    string      `json:"idle_timeout,omitempty" yaml:"idle_timeout,omitempty"`
	SharedUsers    int         `json:"shared_users,omitempty" yaml:"shared_users,omitempty"`
	AddressPool    string      `json:"address_pool,omitempty" yaml:"address_pool,omitempty"`
}

// Account is the device-side AAA account for one subscriber.
type Account struct {
	Username    string      `json:"username"`
	Secret      string      `json:"-"`
	Profile     string      `json:"profile"`
	ServiceType ServiceType `json:"service_type"`
	Disabled    bool        `json:"disabled"`
	Comment     string      `json:"comment"`
	MACAddress  string      `json:"mac_address,omitempty"`
	IPAddress   string      `json:"ip_address,omitempty"`
}
