package routeros

import (
	"context"
	"fmt"
	"strings"
)

// Row is one "!re" record of a reply, keyed by attribute name.
type Row map[string]string

// ID returns the device-assigned ".id" of the row.
func (r Row) ID() string {
	return r[".id"]
}

// Arg is one "=key=value" attribute word.
type Arg struct {
	Key   string
	Value string
}

// Command is a path plus an ordered parameter set. Build one with
// NewCommand and the chaining helpers.
type Command struct {
	Path    string
	Args    []Arg
	Queries []string
}

func NewCommand(path string) Command {
	return Command{Path: path}
}

// With appends an attribute word.
func (c Command) With(key, value string) Command {
	c.Args = append(append([]Arg(nil), c.Args...), Arg{Key: key, Value: value})
	return c
}

// Where appends a "?key=value" query word.
func (c Command) Where(key, value string) Command {
	c.Queries = append(append([]string(nil), c.Queries...), key+"="+value)
	return c
}

// Arg returns the value of the named attribute, if present.
func (c Command) Arg(key string) (string, bool) {
	for _, a := range c.Args {
		if a.Key == key {
			return a.Value, true
		}
	}
	return "", false
}

func (c Command) Validate() error {
	if !strings.HasPrefix(c.Path, "/") || len(c.Path) < 2 {
		return fmt.Errorf("routeros: invalid command path %q", c.Path)
	}
	for _, a := range c.Args {
		if a.Key == "" || strings.Contains(a.Key, "=") {
			return fmt.Errorf("routeros: invalid attribute name %q for %s", a.Key, c.Path)
		}
	}
	return nil
}

// Words renders the command as API words, path first.
func (c Command) Words() []string {
	words := make([]string, 0, 1+len(c.Args)+len(c.Queries))
	words = append(words, c.Path)
	for _, a := range c.Args {
		words = append(words, "="+a.Key+"="+a.Value)
	}
	for _, q := range c.Queries {
		words = append(words, "?"+q)
	}
	return words
}

// ParseCommand is the inverse of Words.
func ParseCommand(words []string) (Command, error) {
	if len(words) == 0 {
		return Command{}, fmt.Errorf("routeros: empty command sentence")
	}
	cmd := NewCommand(words[0])
	for _, w := range words[1:] {
		switch {
		case strings.HasPrefix(w, "="):
			k, v := splitAttr(w[1:])
			cmd.Args = append(cmd.Args, Arg{Key: k, Value: v})
		case strings.HasPrefix(w, "?"):
			cmd.Queries = append(cmd.Queries, w[1:])
		}
	}
	return cmd, cmd.Validate()
}

func (c Command) String() string {
	return c.Path
}

// Executor runs one command against a device and returns its rows.
type Executor interface {
	Execute(ctx context.Context, cmd Command) ([]Row, error)
}

// FindOne runs a lookup and returns its first row. A lookup that matches
// nothing is reported as a not-found DeviceError. The lookup and any
// follow-up command are separate round trips, so the row may change on the
// device in between; there is no transaction primitive to prevent that.
func FindOne(ctx context.Context, ex Executor, lookup Command) (Row, error) {
	rows, err := ex.Execute(ctx, lookup)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &DeviceError{
			Kind:     KindNotFound,
			Command:  lookup.Path,
			Message:  "no matching item",
			Category: -1,
		}
	}
	return rows[0], nil
}
