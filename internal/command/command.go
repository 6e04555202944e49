// Package command holds one validated builder per device command family.
// Builders know the per-service menu paths and attribute names; Build
// refuses to serialize anything the device would reject as malformed.
package command

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/mohit83k/aaabridge/internal/model"
	"github.com/mohit83k/aaabridge/internal/routeros"
)

// MaxLogLines is the largest log window a caller may request.
const MaxLogLines = 1000

var ErrInvalid = errors.New("invalid command")

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

type menus struct {
	profile string
	account string
	session string
}

var serviceMenus = map[model.ServiceType]menus{
	model.ServicePPPoE: {
		profile: "/ppp/profile",
		account: "/ppp/secret",
		session: "/ppp/active",
	},
	model.ServiceHotspot: {
		profile: "/ip/hotspot/user/profile",
		account: "/ip/hotspot/user",
		session: "/ip/hotspot/active",
	},
}

func menusFor(s model.ServiceType) (menus, error) {
	m, ok := serviceMenus[s]
	if !ok {
		return menus{}, invalid("unknown service type %q", s)
	}
	return m, nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// ProfileCreate adds a bandwidth profile.
type ProfileCreate struct {
	Profile model.BandwidthProfile
}

func (c ProfileCreate) Build() (routeros.Command, error) {
	p := c.Profile
	m, err := menusFor(p.ServiceType)
	if err != nil {
		return routeros.Command{}, err
	}
	if p.Name == "" {
		return routeros.Command{}, invalid("profile name is required")
	}
	if p.RateLimit == "" {
		return routeros.Command{}, invalid("profile %s: rate limit is required", p.Name)
	}
	if p.SharedUsers < 0 {
		return routeros.Command{}, invalid("profile %s: shared users must not be negative", p.Name)
	}

	cmd := routeros.NewCommand(m.profile+"/add").
		With("name", p.Name).
		With("rate-limit", p.RateLimit)
	if p.SessionTimeout != "" {
		cmd = cmd.With("session-timeout", p.SessionTimeout)
	}
	if p.IdleTimeout != "" {
		cmd = cmd.With("idle-timeout", p.IdleTimeout)
	}

	switch p.ServiceType {
	case model.ServicePPPoE:
		if p.SharedUsers > 0 {
			cmd = cmd.With("only-one", yesNo(p.SharedUsers == 1))
		}
		if p.AddressPool != "" {
			cmd = cmd.With("remote-address", p.AddressPool)
		}
	case model.ServiceHotspot:
		if p.SharedUsers > 0 {
			cmd = cmd.With("shared-users", strconv.Itoa(p.SharedUsers))
		}
		if p.AddressPool != "" {
			cmd = cmd.With("address-pool", p.AddressPool)
		}
	}
	return cmd, nil
}

// ProfileLookup finds a profile by name.
type ProfileLookup struct {
	Service model.ServiceType
	Name    string
}

func (c ProfileLookup) Build() (routeros.Command, error) {
	m, err := menusFor(c.Service)
	if err != nil {
		return routeros.Command{}, err
	}
	if c.Name == "" {
		return routeros.Command{}, invalid("profile name is required")
	}
	return routeros.NewCommand(m.profile+"/print").Where("name", c.Name), nil
}

// ProfileRemove deletes a profile by its device ".id".
type ProfileRemove struct {
	Service model.ServiceType
	ID      string
}

func (c ProfileRemove) Build() (routeros.Command, error) {
	m, err := menusFor(c.Service)
	if err != nil {
		return routeros.Command{}, err
	}
	if c.ID == "" {
		return routeros.Command{}, invalid("profile id is required")
	}
	return routeros.NewCommand(m.profile+"/remove").With(".id", c.ID), nil
}

// AccountCreate adds a subscriber account.
type AccountCreate struct {
	Account model.Account
}

func (c AccountCreate) Build() (routeros.Command, error) {
	a := c.Account
	m, err := menusFor(a.ServiceType)
	if err != nil {
		return routeros.Command{}, err
	}
	if a.Username == "" {
		return routeros.Command{}, invalid("account username is required")
	}
	if a.Secret == "" {
		return routeros.Command{}, invalid("account %s: secret is required", a.Username)
	}
	if a.Profile == "" {
		return routeros.Command{}, invalid("account %s: profile is required", a.Username)
	}
	if a.ServiceType != model.ServiceHotspot && (a.MACAddress != "" || a.IPAddress != "") {
		return routeros.Command{}, invalid("account %s: MAC/IP binding is only valid for hotspot accounts", a.Username)
	}

	cmd := routeros.NewCommand(m.account+"/add").
		With("name", a.Username).
		With("password", a.Secret).
		With("profile", a.Profile)
	if a.ServiceType == model.ServicePPPoE {
		cmd = cmd.With("service", "pppoe")
	}
	cmd = cmd.With("disabled", yesNo(a.Disabled))
	if a.Comment != "" {
		cmd = cmd.With("comment", a.Comment)
	}
	if a.MACAddress != "" {
		cmd = cmd.With("mac-address", a.MACAddress)
	}
	if a.IPAddress != "" {
		cmd = cmd.With("address", a.IPAddress)
	}
	return cmd, nil
}

// AccountLookup finds an account by username.
type AccountLookup struct {
	Service  model.ServiceType
	Username string
}

func (c AccountLookup) Build() (routeros.Command, error) {
	m, err := menusFor(c.Service)
	if err != nil {
		return routeros.Command{}, err
	}
	if c.Username == "" {
		return routeros.Command{}, invalid("account username is required")
	}
	return routeros.NewCommand(m.account+"/print").Where("name", c.Username), nil
}

// AccountUpdate changes an existing account found by a prior lookup.
// Secret is only sent when non-nil.
type AccountUpdate struct {
	Service  model.ServiceType
	ID       string
	Profile  string
	Disabled bool
	Comment  string
	Secret   *string
}

func (c AccountUpdate) Build() (routeros.Command, error) {
	m, err := menusFor(c.Service)
	if err != nil {
		return routeros.Command{}, err
	}
	if c.ID == "" {
		return routeros.Command{}, invalid("account id is required")
	}
	if c.Profile == "" {
		return routeros.Command{}, invalid("account %s: profile is required", c.ID)
	}
	if c.Secret != nil && *c.Secret == "" {
		return routeros.Command{}, invalid("account %s: secret must not be empty when set", c.ID)
	}

	cmd := routeros.NewCommand(m.account+"/set").
		With(".id", c.ID).
		With("profile", c.Profile).
		With("disabled", yesNo(c.Disabled)).
		With("comment", c.Comment)
	if c.Secret != nil {
		cmd = cmd.With("password", *c.Secret)
	}
	return cmd, nil
}

// AccountRemove deletes an account by its device ".id".
type AccountRemove struct {
	Service model.ServiceType
	ID      string
}

func (c AccountRemove) Build() (routeros.Command, error) {
	m, err := menusFor(c.Service)
	if err != nil {
		return routeros.Command{}, err
	}
	if c.ID == "" {
		return routeros.Command{}, invalid("account id is required")
	}
	return routeros.NewCommand(m.account+"/remove").With(".id", c.ID), nil
}

// SessionList prints active sessions.
type SessionList struct {
	Service model.ServiceType
}

func (c SessionList) Build() (routeros.Command, error) {
	m, err := menusFor(c.Service)
	if err != nil {
		return routeros.Command{}, err
	}
	return routeros.NewCommand(m.session + "/print"), nil
}

// SessionRemove terminates one active session.
type SessionRemove struct {
	Service model.ServiceType
	ID      string
}

func (c SessionRemove) Build() (routeros.Command, error) {
	m, err := menusFor(c.Service)
	if err != nil {
		return routeros.Command{}, err
	}
	if c.ID == "" {
		return routeros.Command{}, invalid("session id is required")
	}
	return routeros.NewCommand(m.session+"/remove").With(".id", c.ID), nil
}

// LogQuery requests up to Count log lines matching Topics and Where.
type LogQuery struct {
	Topics []string
	Where  string
	Count  int
}

func (c LogQuery) Build() (routeros.Command, error) {
	if c.Count <= 0 {
		return routeros.Command{}, invalid("log count must be positive, got %d", c.Count)
	}
	if c.Count > MaxLogLines {
		return routeros.Command{}, invalid("log count %d exceeds limit of %d", c.Count, MaxLogLines)
	}
	for _, t := range c.Topics {
		if t == "" || strings.ContainsAny(t, ", ") {
			return routeros.Command{}, invalid("invalid log topic %q", t)
		}
	}

	cmd := routeros.NewCommand("/log/print").With("count", strconv.Itoa(c.Count))
	if len(c.Topics) > 0 {
		cmd = cmd.With("topics", strings.Join(c.Topics, ","))
	}
	if c.Where != "" {
		cmd = cmd.With("where", c.Where)
	}
	return cmd, nil
}
