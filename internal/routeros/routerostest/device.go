// Package routerostest provides in-memory stand-ins for a RouterOS device:
// Device implements routeros.Executor directly, and Server speaks the API
// wire protocol on a local listener on top of a Device.
package routerostest

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/mohit83k/aaabridge/internal/routeros"
)

// Device keeps one table of rows per menu path ("/ppp/secret", ...) and
// answers add/set/remove/print the way the real device does, including
// the trap texts for duplicates and missing items.
type Device struct {
	mu     sync.Mutex
	tables map[string][]routeros.Row
	nextID int

	// Logs is served by "/log/print", newest last.
	Logs []routeros.Row

	// Fail forces an error for a full command path such as "/ppp/secret/add".
	Fail map[string]error

	calls []routeros.Command
}

func NewDevice() *Device {
	return &Device{
		tables: make(map[string][]routeros.Row),
		Fail:   make(map[string]error),
	}
}

// Calls returns the commands executed so far, in order.
func (d *Device) Calls() []routeros.Command {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]routeros.Command(nil), d.calls...)
}

// CallCount counts executed commands with the given path.
func (d *Device) CallCount(path string) int {
	n := 0
	for _, c := range d.Calls() {
		if c.Path == path {
			n++
		}
	}
	return n
}

// Rows returns a copy of the table at menu.
func (d *Device) Rows(menu string) []routeros.Row {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]routeros.Row, 0, len(d.tables[menu]))
	for _, r := range d.tables[menu] {
		out = append(out, copyRow(r))
	}
	return out
}

// Seed inserts a row directly and returns its assigned ".id".
func (d *Device) Seed(menu string, row routeros.Row) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.insert(menu, row)
}

func (d *Device) insert(menu string, row routeros.Row) string {
	d.nextID++
	r := copyRow(row)
	r[".id"] = "*" + strings.ToUpper(strconv.FormatInt(int64(d.nextID), 16))
	d.tables[menu] = append(d.tables[menu], r)
	return r[".id"]
}

func (d *Device) Execute(_ context.Context, cmd routeros.Command) ([]routeros.Row, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, cmd)

	if err := d.Fail[cmd.Path]; err != nil {
		return nil, err
	}

	i := strings.LastIndex(cmd.Path, "/")
	if i <= 0 {
		return nil, routeros.NewTrapError(cmd.Path, "no such command prefix", 0)
	}
	menu, verb := cmd.Path[:i], cmd.Path[i+1:]

	switch verb {
	case "add":
		return d.add(menu, cmd)
	case "set":
		return nil, d.set(menu, cmd)
	case "remove":
		return nil, d.remove(menu, cmd)
	case "print":
		if menu == "/log" {
			return d.printLogs(cmd), nil
		}
		return d.print(menu, cmd), nil
	}
	return nil, routeros.NewTrapError(cmd.Path, "no such command", 0)
}

func (d *Device) add(menu string, cmd routeros.Command) ([]routeros.Row, error) {
	row := routeros.Row{}
	for _, a := range cmd.Args {
		row[a.Key] = a.Value
	}
	if name := row["name"]; name != "" {
		for _, existing := range d.tables[menu] {
			if existing["name"] == name {
				return nil, routeros.NewTrapError(cmd.Path, "failure: already have such name", 1)
			}
		}
	}
	d.insert(menu, row)
	return nil, nil
}

func (d *Device) find(menu, id string) int {
	for i, r := range d.tables[menu] {
		if r[".id"] == id || r["name"] == id {
			return i
		}
	}
	return -1
}

func (d *Device) set(menu string, cmd routeros.Command) error {
	id, _ := cmd.Arg(".id")
	idx := d.find(menu, id)
	if idx < 0 {
		return routeros.NewTrapError(cmd.Path, "no such item", 0)
	}
	for _, a := range cmd.Args {
		if a.Key == ".id" {
			continue
		}
		d.tables[menu][idx][a.Key] = a.Value
	}
	return nil
}

func (d *Device) remove(menu string, cmd routeros.Command) error {
	id, _ := cmd.Arg(".id")
	idx := d.find(menu, id)
	if idx < 0 {
		return routeros.NewTrapError(cmd.Path, "no such item", 0)
	}
	t := d.tables[menu]
	d.tables[menu] = append(t[:idx:idx], t[idx+1:]...)
	return nil
}

func (d *Device) print(menu string, cmd routeros.Command) []routeros.Row {
	var out []routeros.Row
	for _, r := range d.tables[menu] {
		if matches(r, cmd.Queries) {
			out = append(out, copyRow(r))
		}
	}
	return out
}

// printLogs filters by topic and returns at most "count" of the newest
// lines. The where predicate is recorded in Calls but not evaluated.
func (d *Device) printLogs(cmd routeros.Command) []routeros.Row {
	var topics []string
	if t, ok := cmd.Arg("topics"); ok && t != "" {
		topics = strings.Split(t, ",")
	}

	var out []routeros.Row
	for _, r := range d.Logs {
		if len(topics) == 0 || hasTopic(r["topics"], topics) {
			out = append(out, copyRow(r))
		}
	}
	if c, ok := cmd.Arg("count"); ok {
		if n, err := strconv.Atoi(c); err == nil && n < len(out) {
			out = out[len(out)-n:]
		}
	}
	return out
}

func hasTopic(rowTopics string, want []string) bool {
	for _, have := range strings.Split(rowTopics, ",") {
		for _, w := range want {
			if strings.TrimSpace(have) == strings.TrimSpace(w) {
				return true
			}
		}
	}
	return false
}

func matches(r routeros.Row, queries []string) bool {
	for _, q := range queries {
		k, v, ok := strings.Cut(q, "=")
		if !ok {
			continue
		}
		if r[k] != v {
			return false
		}
	}
	return true
}

func copyRow(r routeros.Row) routeros.Row {
	out := make(routeros.Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// String summarizes table sizes, handy in failure messages.
func (d *Device) String() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	var parts []string
	for menu, rows := range d.tables {
		parts = append(parts, fmt.Sprintf("%s=%d", menu, len(rows)))
	}
	return strings.Join(parts, " ")
}
