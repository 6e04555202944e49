package routerostest

import (
	"bufio"
	"context"
	"encoding/hex"
	"errors"
	"io"
	"net"
	"sort"
	"strconv"
	"sync"
	"testing"

	"github.com/mohit83k/aaabridge/internal/routeros"
)

var legacyChallenge = []byte("0123456789abcdef")

// Server is a fake device listening on a loopback port. Each connection
// must log in before commands are passed to the backing Device.
type Server struct {
	Device   *Device
	Username string
	Password string

	ln     net.Listener
	wg     sync.WaitGroup
	mu     sync.Mutex
	opened int
	closed int
	legacy bool
	stall  bool
	empty  bool
	fatal  string
	raw    []byte
}

// SetLegacy makes login use the pre-6.43 MD5 challenge exchange.
func (s *Server) SetLegacy(v bool) {
	s.mu.Lock()
	s.legacy = v
	s.mu.Unlock()
}

// SetStall makes the server swallow commands without ever replying.
func (s *Server) SetStall(v bool) {
	s.mu.Lock()
	s.stall = v
	s.mu.Unlock()
}

// SetFatal makes the server answer the first command with "!fatal" msg.
func (s *Server) SetFatal(msg string) {
	s.mu.Lock()
	s.fatal = msg
	s.mu.Unlock()
}

// SetEmpty makes the server answer commands without rows with "!empty"
// before "!done", as RouterOS 7.18 and later do.
func (s *Server) SetEmpty(v bool) {
	s.mu.Lock()
	s.empty = v
	s.mu.Unlock()
}

// SetRawReply makes the server answer the first command with b as is and
// hang up.
func (s *Server) SetRawReply(b []byte) {
	s.mu.Lock()
	s.raw = b
	s.mu.Unlock()
}

func (s *Server) mode() (legacy, stall, empty bool, fatal string, raw []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.legacy, s.stall, s.empty, s.fatal, s.raw
}

// NewServer starts a fake device and stops it when the test ends.
func NewServer(t testing.TB, d *Device, username, password string) *Server {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("routerostest: listen: %v", err)
	}
	s := &Server{Device: d, Username: username, Password: password, ln: ln}
	s.wg.Add(1)
	go s.serve()
	t.Cleanup(s.Close)
	return s
}

func (s *Server) Addr() string {
	return s.ln.Addr().String()
}

func (s *Server) Close() {
	_ = s.ln.Close()
	s.wg.Wait()
}

// Connections reports how many connections were accepted and how many of
// them have been closed by either side.
func (s *Server) Connections() (opened, closed int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opened, s.closed
}

func (s *Server) serve() {
	defer s.wg.Done()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		s.mu.Lock()
		s.opened++
		s.mu.Unlock()

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handle(conn)
			s.mu.Lock()
			s.closed++
			s.mu.Unlock()
		}()
	}
}

func (s *Server) handle(conn net.Conn) {
	defer conn.Close()
	r := bufio.NewReader(conn)
	loggedIn := false

	for {
		words, err := routeros.ReadSentence(r)
		if err != nil {
			return
		}
		cmd, err := routeros.ParseCommand(words)
		if err != nil {
			_ = routeros.WriteSentence(conn, "!fatal", err.Error())
			return
		}

		legacy, stall, empty, fatal, raw := s.mode()
		if cmd.Path == "/login" {
			loggedIn = s.login(conn, cmd, legacy)
			continue
		}
		if !loggedIn {
			writeTrap(conn, "not logged in", 0)
			continue
		}
		if fatal != "" {
			_ = routeros.WriteSentence(conn, "!fatal", fatal)
			return
		}
		if stall {
			_, _ = io.Copy(io.Discard, r)
			return
		}
		if raw != nil {
			_, _ = conn.Write(raw)
			return
		}

		rows, err := s.Device.Execute(context.Background(), cmd)
		for _, row := range rows {
			_ = routeros.WriteSentence(conn, rowWords(row)...)
		}
		if err != nil {
			var de *routeros.DeviceError
			if errors.As(err, &de) {
				writeTrap(conn, de.Message, de.Category)
			} else {
				writeTrap(conn, err.Error(), 4)
			}
			continue
		}
		if empty && len(rows) == 0 {
			_ = routeros.WriteSentence(conn, "!empty")
		}
		_ = routeros.WriteSentence(conn, "!done")
	}
}

func (s *Server) login(conn net.Conn, cmd routeros.Command, legacy bool) bool {
	name, _ := cmd.Arg("name")
	if legacy {
		response, ok := cmd.Arg("response")
		if !ok {
			_ = routeros.WriteSentence(conn, "!done", "=ret="+hex.EncodeToString(legacyChallenge))
			return false
		}
		if name != s.Username || response != routeros.ChallengeResponse(s.Password, legacyChallenge) {
			writeTrap(conn, "invalid user name or password (6)", -1)
			return false
		}
		_ = routeros.WriteSentence(conn, "!done")
		return true
	}

	password, _ := cmd.Arg("password")
	if name != s.Username || password != s.Password {
		writeTrap(conn, "invalid user name or password (6)", -1)
		return false
	}
	_ = routeros.WriteSentence(conn, "!done")
	return true
}

func writeTrap(conn net.Conn, message string, category int) {
	words := []string{"!trap"}
	if category >= 0 {
		words = append(words, "=category="+strconv.Itoa(category))
	}
	words = append(words, "=message="+message)
	_ = routeros.WriteSentence(conn, words...)
	_ = routeros.WriteSentence(conn, "!done")
}

func rowWords(row routeros.Row) []string {
	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	words := []string{"!re"}
	for _, k := range keys {
		words = append(words, "="+k+"="+row[k])
	}
	return words
}
