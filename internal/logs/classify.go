package logs

import (
	"regexp"
	"strings"

	"github.com/mohit83k/aaabridge/internal/model"
)

const ipv4 = `(\d{1,3}(?:\.\d{1,3}){3})`

// rule extracts one field with the first capture group of pattern. Several
// rules may target the same field; the first one that matches wins.
type rule struct {
	field   string
	pattern *regexp.Regexp
}

func newRule(field, pattern string) rule {
	return rule{field: field, pattern: regexp.MustCompile(pattern)}
}

var natRules = []rule{
	newRule("source_ip", `(?i)\bsrc-address=`+ipv4),
	newRule("source_ip", ipv4+`(?::\d+)?->`),
	newRule("destination_ip", `(?i)\bdst-address=`+ipv4),
	newRule("destination_ip", `->`+ipv4),
	newRule("source_port", `(?i)\bsrc-port=(\d+)`),
	newRule("source_port", `(?i)\bsrc-address=\d{1,3}(?:\.\d{1,3}){3}:(\d+)`),
	newRule("source_port", `\d{1,3}(?:\.\d{1,3}){3}:(\d+)->`),
	newRule("destination_port", `(?i)\bdst-port=(\d+)`),
	newRule("destination_port", `(?i)\bdst-address=\d{1,3}(?:\.\d{1,3}){3}:(\d+)`),
	newRule("destination_port", `->\d{1,3}(?:\.\d{1,3}){3}:(\d+)`),
	newRule("protocol", `(?i)\bprotocol=([a-z0-9-]+)`),
	newRule("protocol", `(?i)\bproto ([a-z0-9-]+)`),
	newRule("action", `(?i)\baction=(accept|drop|reject|srcnat|dstnat)\b`),
	newRule("in_interface", `(?i)\bin-interface=([^\s,]+)`),
	newRule("in_interface", `(?i)\bin:([^\s,()]+)`),
	newRule("out_interface", `(?i)\bout-interface=([^\s,]+)`),
	newRule("out_interface", `(?i)\bout:([^\s,()]+)`),
}

var aaaRules = []rule{
	newRule("username", `(?i)\b(?:username|user)[=:\s]\s*"?([^\s,"]+)`),
	newRule("username", `<(?:pppoe|ppp|l2tp|pptp|sstp|ovpn)-([^>]+)>`),
	newRule("client_ip", `(?i)\bclient(?:-ip|-address)?[=:\s]\s*`+ipv4),
	newRule("nas_ip", `(?i)\bnas(?:-ip-address|-ip|-address)?[=:\s]\s*`+ipv4),
	newRule("session_id", `(?i)\b(?:acct-session-id|session-id)[=:\s]\s*([^\s,]+)`),
	newRule("session_id", `(?i)\bsession=([^\s,]+)`),
	newRule("reason", `(?i)\b(?:reason|error|cause)=("[^"]*"|[^\s,]+)`),
	newRule("calling_station_id", `(?i)\bcalling-station-id[=:\s]\s*"?([^\s,"]+)`),
	newRule("called_station_id", `(?i)\bcalled-station-id[=:\s]\s*"?([^\s,"]+)`),
	newRule("nas_port_id", `(?i)\bnas-port-id[=:\s]\s*"?([^\s,"]+)`),
	newRule("framed_ip", `(?i)\bframed-ip(?:-address)?[=:\s]\s*`+ipv4),
}

// keyword maps a set of substrings to the value a field takes when any of
// them is present. Tables are checked in order; the first hit wins.
type keyword struct {
	value   string
	markers []string
}

var natTypeKeywords = []keyword{
	{"source", []string{"srcnat"}},
	{"destination", []string{"dstnat"}},
}

// A line that says "login failed" is a reject, so reject is checked first.
var authResultKeywords = []keyword{
	{"reject", []string{"reject", "deny", "denied", "failed"}},
	{"logout", []string{"logout", "disconnect"}},
	{"accept", []string{"accept", "login", "authenticated"}},
}

var serviceKeywords = []keyword{
	{"pppoe", []string{"pppoe"}},
	{"hotspot", []string{"hotspot"}},
}

func matchKeyword(lower string, table []keyword) string {
	for _, k := range table {
		for _, m := range k.markers {
			if strings.Contains(lower, m) {
				return k.value
			}
		}
	}
	return ""
}

// Topic sets used to decide which payload a line gets.
var (
	NATTopics = []string{"firewall"}
	AAATopics = []string{"pppoe", "ppp", "hotspot", "radius", "account"}
)

// Classifier extracts structured fields from device log messages. A field
// is only ever set from text that is actually in the message.
type Classifier struct {
	nat []rule
	aaa []rule
}

func NewClassifier() *Classifier {
	return &Classifier{nat: natRules, aaa: aaaRules}
}

// NAT extracts firewall/NAT fields.
func (c *Classifier) NAT(message string) model.NATFields {
	var out model.NATFields
	for _, rl := range c.nat {
		dst := natField(&out, rl.field)
		if dst == nil || *dst != "" {
			continue
		}
		if m := rl.pattern.FindStringSubmatch(message); m != nil {
			*dst = normalize(rl.field, m[1])
		}
	}
	out.NATType = matchKeyword(strings.ToLower(message), natTypeKeywords)
	return out
}

// AAA extracts authentication/accounting fields.
func (c *Classifier) AAA(message string) model.AAAFields {
	var out model.AAAFields
	for _, rl := range c.aaa {
		dst := aaaField(&out, rl.field)
		if dst == nil || *dst != "" {
			continue
		}
		if m := rl.pattern.FindStringSubmatch(message); m != nil {
			*dst = normalize(rl.field, m[1])
		}
	}
	lower := strings.ToLower(message)
	out.AuthResult = matchKeyword(lower, authResultKeywords)
	out.ServiceType = matchKeyword(lower, serviceKeywords)
	return out
}

// Classify builds a LogEvent for one line. Topics steer the choice of
// payload; without a topic hint a line with addressing or a firewall
// action is NAT, otherwise AAA if anything matched, otherwise other.
// Nothing is dropped.
func (c *Classifier) Classify(message string, topics []string) model.LogEvent {
	ev := model.LogEvent{Message: message, Topics: topics, Kind: model.EventOther}
	nat := c.NAT(message)
	aaa := c.AAA(message)

	switch {
	case hasTopic(topics, NATTopics) && !nat.Empty():
		ev.Kind, ev.NAT = model.EventNAT, &nat
	case hasTopic(topics, AAATopics) && !aaa.Empty():
		ev.Kind, ev.AAA = model.EventAAA, &aaa
	case nat.SourceIP != "" || nat.DestinationIP != "" || nat.Action != "":
		ev.Kind, ev.NAT = model.EventNAT, &nat
	case !aaa.Empty():
		ev.Kind, ev.AAA = model.EventAAA, &aaa
	case !nat.Empty():
		ev.Kind, ev.NAT = model.EventNAT, &nat
	}
	return ev
}

// ClassifyAs forces the payload kind, still leaving unmatched fields empty.
// A line where nothing matched stays kind other.
func (c *Classifier) ClassifyAs(kind model.EventKind, message string, topics []string) model.LogEvent {
	ev := model.LogEvent{Message: message, Topics: topics, Kind: model.EventOther}
	switch kind {
	case model.EventNAT:
		if nat := c.NAT(message); !nat.Empty() {
			ev.Kind, ev.NAT = model.EventNAT, &nat
		}
	case model.EventAAA:
		if aaa := c.AAA(message); !aaa.Empty() {
			ev.Kind, ev.AAA = model.EventAAA, &aaa
		}
	default:
		return c.Classify(message, topics)
	}
	return ev
}

func hasTopic(have, want []string) bool {
	for _, h := range have {
		for _, w := range want {
			if strings.EqualFold(strings.TrimSpace(h), w) {
				return true
			}
		}
	}
	return false
}

func normalize(field, v string) string {
	switch field {
	case "protocol", "action":
		return strings.ToLower(v)
	case "reason":
		return strings.Trim(v, `"`)
	}
	return strings.TrimRight(v, ",;")
}

func natField(f *model.NATFields, name string) *string {
	switch name {
	case "source_ip":
		return &f.SourceIP
	case "destination_ip":
		return &f.DestinationIP
	case "source_port":
		return &f.SourcePort
	case "destination_port":
		return &f.DestinationPort
	case "protocol":
		return &f.Protocol
	case "action":
		return &f.Action
	case "in_interface":
		return &f.InInterface
	case "out_interface":
		return &f.OutInterface
	}
	return nil
}

func aaaField(f *model.AAAFields, name string) *string {
	switch name {
	case "username":
		return &f.Username
	case "client_ip":
		return &f.ClientIP
	case "nas_ip":
		return &f.NASIP
	case "session_id":
		return &f.SessionID
	case "reason":
		return &f.Reason
	case "calling_station_id":
		return &f.CallingStationID
	case "called_station_id":
		return &f.CalledStationID
	case "nas_port_id":
		return &f.NASPortID
	case "framed_ip":
		return &f.FramedIP
	}
	return nil
}
