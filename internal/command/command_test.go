package command

import (
	"errors"
	"testing"

	"github.com/mohit83k/aaabridge/internal/model"
)

func TestProfileCreate_PerService(t *testing.T) {
	p := model.BandwidthProfile{
		Name:        "Fiber_100_pppoe",
		ServiceType: model.ServicePPPoE,
		RateLimit:   "10240k/102400k",
		SharedUsers: 1,
		AddressPool: "pool-fiber",
	}
	cmd, err := ProfileCreate{Profile: p}.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if cmd.Path != "/ppp/profile/add" {
		t.Errorf("unexpected path %s", cmd.Path)
	}
	if v, _ := cmd.Arg("only-one"); v != "yes" {
		t.Errorf("expected only-one=yes, got %q", v)
	}
	if v, _ := cmd.Arg("remote-address"); v != "pool-fiber" {
		t.Errorf("expected remote-address pool, got %q", v)
	}

	p.ServiceType = model.ServiceHotspot
	p.SharedUsers = 3
	cmd, err = ProfileCreate{Profile: p}.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if cmd.Path != "/ip/hotspot/user/profile/add" {
		t.Errorf("unexpected path %s", cmd.Path)
	}
	if v, _ := cmd.Arg("shared-users"); v != "3" {
		t.Errorf("expected shared-users=3, got %q", v)
	}
	if v, _ := cmd.Arg("address-pool"); v != "pool-fiber" {
		t.Errorf("expected address-pool, got %q", v)
	}
}

func TestProfileCreate_Validation(t *testing.T) {
	cases := map[string]model.BandwidthProfile{
		"no name":     {ServiceType: model.ServicePPPoE, RateLimit: "1k/1k"},
		"no rate":     {Name: "x", ServiceType: model.ServicePPPoE},
		"bad service": {Name: "x", RateLimit: "1k/1k", ServiceType: "dialup"},
		"neg shared":  {Name: "x", RateLimit: "1k/1k", ServiceType: model.ServiceHotspot, SharedUsers: -1},
	}
	for name, p := range cases {
		if _, err := (ProfileCreate{Profile: p}).Build(); !errors.Is(err, ErrInvalid) {
			t.Errorf("%s: expected ErrInvalid, got %v", name, err)
		}
	}
}

func TestAccountCreate_BindingOnlyForHotspot(t *testing.T) {
	a := model.Account{
		Username:    "alice",
		Secret:      "s3cret",
		Profile:     "Fiber_100_pppoe",
		ServiceType: model.ServicePPPoE,
		MACAddress:  "AA:BB:CC:DD:EE:FF",
	}
	if _, err := (AccountCreate{Account: a}).Build(); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected pppoe MAC binding to be rejected, got %v", err)
	}

	a.ServiceType = model.ServiceHotspot
	a.Disabled = true
	cmd, err := AccountCreate{Account: a}.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if cmd.Path != "/ip/hotspot/user/add" {
		t.Errorf("unexpected path %s", cmd.Path)
	}
	if v, _ := cmd.Arg("mac-address"); v != a.MACAddress {
		t.Errorf("expected mac-address, got %q", v)
	}
	if v, _ := cmd.Arg("disabled"); v != "yes" {
		t.Errorf("expected disabled=yes, got %q", v)
	}
	if _, ok := cmd.Arg("service"); ok {
		t.Error("hotspot users carry no service attribute")
	}
}

func TestAccountCreate_PPPoE(t *testing.T) {
	cmd, err := AccountCreate{Account: model.Account{
		Username:    "alice",
		Secret:      "s3cret",
		Profile:     "Fiber_100_pppoe",
		ServiceType: model.ServicePPPoE,
		Comment:     "Customer: Alice (ID: 42)",
	}}.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	want := []string{"/ppp/secret/add", "=name=alice", "=password=s3cret", "=profile=Fiber_100_pppoe",
		"=service=pppoe", "=disabled=no", "=comment=Customer: Alice (ID: 42)"}
	got := cmd.Words()
	if len(got) != len(want) {
		t.Fatalf("got %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("word %d: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestAccountUpdate_SecretOptional(t *testing.T) {
	base := AccountUpdate{Service: model.ServicePPPoE, ID: "*1", Profile: "p"}
	cmd, err := base.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if _, ok := cmd.Arg("password"); ok {
		t.Error("password must not be sent without a secret")
	}

	secret := "new"
	base.Secret = &secret
	cmd, _ = base.Build()
	if v, _ := cmd.Arg("password"); v != "new" {
		t.Errorf("expected password, got %q", v)
	}

	empty := ""
	base.Secret = &empty
	if _, err := base.Build(); !errors.Is(err, ErrInvalid) {
		t.Errorf("expected empty secret to be rejected, got %v", err)
	}
}

func TestSessionCommands(t *testing.T) {
	cmd, _ := SessionList{Service: model.ServiceHotspot}.Build()
	if cmd.Path != "/ip/hotspot/active/print" {
		t.Errorf("unexpected path %s", cmd.Path)
	}
	cmd, _ = SessionRemove{Service: model.ServicePPPoE, ID: "*A"}.Build()
	if cmd.Path != "/ppp/active/remove" {
		t.Errorf("unexpected path %s", cmd.Path)
	}
	if _, err := (SessionRemove{Service: model.ServicePPPoE}).Build(); !errors.Is(err, ErrInvalid) {
		t.Errorf("expected missing id to be rejected, got %v", err)
	}
}

func TestLogQuery_Bounds(t *testing.T) {
	if _, err := (LogQuery{Count: MaxLogLines + 1}).Build(); !errors.Is(err, ErrInvalid) {
		t.Errorf("expected count above limit to be rejected, got %v", err)
	}
	if _, err := (LogQuery{Count: 0}).Build(); !errors.Is(err, ErrInvalid) {
		t.Errorf("expected zero count to be rejected, got %v", err)
	}
	if _, err := (LogQuery{Count: 10, Topics: []string{"firewall,info"}}).Build(); !errors.Is(err, ErrInvalid) {
		t.Errorf("expected comma in topic to be rejected, got %v", err)
	}

	cmd, err := LogQuery{Count: MaxLogLines, Topics: []string{"pppoe", "radius"}, Where: `message contains "x"`}.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if v, _ := cmd.Arg("topics"); v != "pppoe,radius" {
		t.Errorf("unexpected topics %q", v)
	}
	if v, _ := cmd.Arg("count"); v != "1000" {
		t.Errorf("unexpected count %q", v)
	}
}
