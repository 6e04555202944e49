// Package profile turns service packages into device bandwidth profiles.
// Everything here is pure.
package profile

import (
	"fmt"
	"math"
	"regexp"

	"github.com/mohit83k/aaabridge/internal/model"
)

var whitespace = regexp.MustCompile(`\s+`)

// Name derives the device profile name for a package. The same inputs
// always give the same name, which is what makes re-sync idempotent.
func Name(packageName string, service model.ServiceType) string {
	return whitespace.ReplaceAllString(packageName, "_") + "_" + string(service)
}

// kbps converts Mbps to the device's kbit figure (1 Mbps = 1024k).
func kbps(mbps float64) int64 {
	return int64(math.Round(mbps * 1024))
}

func pair(up, down float64) string {
	return fmt.Sprintf("%dk/%dk", kbps(up), kbps(down))
}

// burstComplete reports whether every burst field needed for a burst
// clause is present.
func burstComplete(p model.Package) bool {
	return p.BurstDownloadMbps > 0 &&
		p.BurstUploadMbps > 0 &&
		p.BurstThresholdDownMbps > 0 &&
		p.BurstThresholdUpMbps > 0 &&
		p.BurstTimeSeconds > 0
}

// RateLimit encodes a package as a device rate-limit string, upload first:
//
//	<up>k/<down>k [<burstUp>k/<burstDown>k <thrUp>k/<thrDown>k <t>/<t>]
//
// The burst part is emitted only when burst is enabled and complete; an
// incomplete burst configuration yields the base rate alone. The trailing
// priority and minimum-rate fields of the device format are left out on
// purpose, so the device applies its own defaults for them.
func RateLimit(p model.Package) string {
	rate := pair(p.UploadMbps, p.DownloadMbps)
	if !p.BurstEnabled || !burstComplete(p) {
		return rate
	}
	return fmt.Sprintf("%s %s %s %d/%d",
		rate,
		pair(p.BurstUploadMbps, p.BurstDownloadMbps),
		pair(p.BurstThresholdUpMbps, p.BurstThresholdDownMbps),
		p.BurstTimeSeconds, p.BurstTimeSeconds,
	)
}

// Build derives the full device profile for a package.
func Build(p model.Package, service model.ServiceType) model.BandwidthProfile {
	return model.BandwidthProfile{
		Name:           Name(p.Name, service),
		ServiceType:    service,
		RateLimit:      RateLimit(p),
		SessionTimeout: p.SessionTimeout,
		IdleTimeout:    p.IdleTimeout,
		SharedUsers:    p.SharedUsers,
		AddressPool:    p.AddressPool,
	}
}
