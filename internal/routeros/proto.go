package routeros

import (
	"bufio"
	"errors"
	"fmt"
	"io"
)

// maxWordSize bounds a single API word so a corrupt length prefix cannot
// make us allocate absurd buffers.
const maxWordSize = 16 << 20

// Framing errors. Both mean the peer sent something that is not a valid
// API sentence.
var (
	ErrWordTooLarge  = errors.New("routeros: word exceeds maximum size")
	ErrInvalidLength = errors.New("routeros: invalid length prefix")
)

// encodeLength returns the RouterOS API length prefix for a word of n bytes.
//
//	0x00000000-0x0000007F  1 byte
//	0x00000080-0x00003FFF  2 bytes, high bits 10
//	0x00004000-0x001FFFFF  3 bytes, high bits 110
//	0x00200000-0x0FFFFFFF  4 bytes, high bits 1110
//	larger                 0xF0 followed by 4 bytes
func encodeLength(n int) []byte {
	switch {
	case n < 0x80:
		return []byte{byte(n)}
	case n < 0x4000:
		return []byte{byte(n>>8) | 0x80, byte(n)}
	case n < 0x200000:
		return []byte{byte(n>>16) | 0xC0, byte(n >> 8), byte(n)}
	case n < 0x10000000:
		return []byte{byte(n>>24) | 0xE0, byte(n >> 16), byte(n >> 8), byte(n)}
	default:
		return []byte{0xF0, byte(n >> 24), byte(n >> 16), byte(n >> 8), byte(n)}
	}
}

func readLength(r *bufio.Reader) (int, error) {
	b, err := r.ReadByte()
	if err != nil {
		return 0, err
	}

	var extra int
	var n int
	switch {
	case b&0x80 == 0x00:
		return int(b), nil
	case b&0xC0 == 0x80:
		n, extra = int(b&0x3F), 1
	case b&0xE0 == 0xC0:
		n, extra = int(b&0x1F), 2
	case b&0xF0 == 0xE0:
		n, extra = int(b&0x0F), 3
	case b == 0xF0:
		n, extra = 0, 4
	default:
		return 0, fmt.Errorf("%w 0x%02x", ErrInvalidLength, b)
	}

	for i := 0; i < extra; i++ {
		next, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		n = n<<8 | int(next)
	}
	return n, nil
}

// WriteSentence writes words followed by the empty terminator word as a
// single write.
func WriteSentence(w io.Writer, words ...string) error {
	size := 1
	for _, word := range words {
		size += len(word) + 5
	}
	buf := make([]byte, 0, size)
	for _, word := range words {
		if len(word) > maxWordSize {
			return ErrWordTooLarge
		}
		buf = append(buf, encodeLength(len(word))...)
		buf = append(buf, word...)
	}
	buf = append(buf, 0)

	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("routeros: write sentence: %w", err)
	}
	return nil
}

// ReadSentence reads words up to the empty terminator word.
func ReadSentence(r *bufio.Reader) ([]string, error) {
	var words []string
	for {
		n, err := readLength(r)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return words, nil
		}
		if n > maxWordSize {
			return nil, ErrWordTooLarge
		}
		word := make([]byte, n)
		if _, err := io.ReadFull(r, word); err != nil {
			return nil, fmt.Errorf("routeros: read word: %w", err)
		}
		words = append(words, string(word))
	}
}

// reply is one parsed reply sentence: "!re", "!done", "!trap" or "!fatal".
type reply struct {
	word  string
	attrs Row
	// fatal carries the bare message word that follows "!fatal".
	fatal string
}

func parseReply(words []string) (reply, error) {
	if len(words) == 0 {
		return reply{}, errors.New("routeros: empty reply sentence")
	}
	rep := reply{word: words[0], attrs: Row{}}
	for _, w := range words[1:] {
		switch {
		case len(w) > 1 && w[0] == '=':
			key, value := splitAttr(w[1:])
			rep.attrs[key] = value
		case rep.word == "!fatal":
			rep.fatal = w
		}
	}
	return rep, nil
}

func splitAttr(kv string) (string, string) {
	for i := 0; i < len(kv); i++ {
		if kv[i] == '=' {
			return kv[:i], kv[i+1:]
		}
	}
	return kv, ""
}
