package model

import (
	"fmt"
	"strings"
)

// ServiceType selects which family of device tables an operation targets.
type ServiceType string

const (
	ServicePPPoE   ServiceType = "pppoe"
	ServiceHotspot ServiceType = "hotspot"
)

// ParseServiceType accepts the canonical names case-insensitively.
func ParseServiceType(s string) (ServiceType, error) {
	switch ServiceType(strings.ToLower(strings.TrimSpace(s))) {
	case ServicePPPoE:
		return ServicePPPoE, nil
	case ServiceHotspot:
		return ServiceHotspot, nil
	}
	return "", fmt.Errorf("unknown service type %q (want pppoe or hotspot)", s)
}

func (s ServiceType) Valid() bool {
	return s == ServicePPPoE || s == ServiceHotspot
}
