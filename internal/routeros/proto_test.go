package routeros

import (
	"bufio"
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestEncodeLength_Boundaries(t *testing.T) {
	cases := []struct {
		n    int
		want []byte
	}{
		{0x00, []byte{0x00}},
		{0x7F, []byte{0x7F}},
		{0x80, []byte{0x80, 0x80}},
		{0x3FFF, []byte{0xBF, 0xFF}},
		{0x4000, []byte{0xC0, 0x40, 0x00}},
		{0x1FFFFF, []byte{0xDF, 0xFF, 0xFF}},
		{0x200000, []byte{0xE0, 0x20, 0x00, 0x00}},
		{0xFFFFFFF, []byte{0xEF, 0xFF, 0xFF, 0xFF}},
		{0x10000000, []byte{0xF0, 0x10, 0x00, 0x00, 0x00}},
	}
	for _, tc := range cases {
		got := encodeLength(tc.n)
		if !bytes.Equal(got, tc.want) {
			t.Errorf("encodeLength(%#x) = % x, want % x", tc.n, got, tc.want)
		}
		n, err := readLength(bufio.NewReader(bytes.NewReader(got)))
		if err != nil {
			t.Fatalf("readLength(% x): %v", got, err)
		}
		if n != tc.n {
			t.Errorf("readLength(% x) = %#x, want %#x", got, n, tc.n)
		}
	}
}

func TestReadLength_InvalidPrefix(t *testing.T) {
	_, err := readLength(bufio.NewReader(bytes.NewReader([]byte{0xF8})))
	if !errors.Is(err, ErrInvalidLength) {
		t.Fatalf("expected ErrInvalidLength for reserved control byte, got %v", err)
	}
}

func TestSentence_WriteThenRead(t *testing.T) {
	long := strings.Repeat("x", 300)
	var buf bytes.Buffer
	if err := WriteSentence(&buf, "/ppp/secret/add", "=name=alice", "=comment="+long); err != nil {
		t.Fatalf("WriteSentence: %v", err)
	}

	words, err := ReadSentence(bufio.NewReader(&buf))
	if err != nil {
		t.Fatalf("ReadSentence: %v", err)
	}
	if len(words) != 3 || words[0] != "/ppp/secret/add" || words[2] != "=comment="+long {
		t.Errorf("unexpected words: %q", words)
	}
}

func TestReadSentence_Truncated(t *testing.T) {
	_, err := ReadSentence(bufio.NewReader(bytes.NewReader([]byte{0x05, 'a', 'b'})))
	if err == nil {
		t.Fatal("expected error for truncated word")
	}
}

func TestParseReply_AttributesWithEquals(t *testing.T) {
	rep, err := parseReply([]string{"!re", "=.id=*1", "=comment=a=b", "=disabled="})
	if err != nil {
		t.Fatalf("parseReply: %v", err)
	}
	if rep.attrs[".id"] != "*1" || rep.attrs["comment"] != "a=b" {
		t.Errorf("unexpected attrs: %v", rep.attrs)
	}
	if v, ok := rep.attrs["disabled"]; !ok || v != "" {
		t.Errorf("expected empty disabled attr, got %q %v", v, ok)
	}
}

func TestParseReply_Fatal(t *testing.T) {
	rep, _ := parseReply([]string{"!fatal", "session terminated on request"})
	if rep.fatal != "session terminated on request" {
		t.Errorf("unexpected fatal text %q", rep.fatal)
	}
}

func TestCommand_WordsRoundTrip(t *testing.T) {
	cmd := NewCommand("/ppp/secret/print").With(".proplist", ".id,name").Where("name", "alice")
	parsed, err := ParseCommand(cmd.Words())
	if err != nil {
		t.Fatalf("ParseCommand: %v", err)
	}
	if parsed.Path != cmd.Path || len(parsed.Args) != 1 || parsed.Queries[0] != "name=alice" {
		t.Errorf("unexpected command: %+v", parsed)
	}
}

func TestCommand_WithDoesNotAlias(t *testing.T) {
	base := NewCommand("/ppp/secret/add").With("name", "a")
	one := base.With("password", "1")
	two := base.With("password", "2")
	if v, _ := one.Arg("password"); v != "1" {
		t.Errorf("expected 1, got %q", v)
	}
	if v, _ := two.Arg("password"); v != "2" {
		t.Errorf("expected 2, got %q", v)
	}
}

func TestCommand_Validate(t *testing.T) {
	if err := NewCommand("ppp/secret").Validate(); err == nil {
		t.Error("expected error for relative path")
	}
	if err := NewCommand("/ppp/secret/add").With("", "x").Validate(); err == nil {
		t.Error("expected error for empty attribute name")
	}
}

func TestChallengeResponse_Format(t *testing.T) {
	got := ChallengeResponse("secret", []byte("abc"))
	if len(got) != 34 || !strings.HasPrefix(got, "00") {
		t.Errorf("unexpected response %q", got)
	}
}
