package resp

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

var (
	crlf = []byte("\r\n")

	ErrProtocol = errors.New("redis protocol error")
)

const (
	// MaxBulkLength bounds the size of a single bulk string accepted by the reader.
	MaxBulkLength = 512 * 1024 * 1024
	// MaxArrayLength bounds the element count of an array or command.
	MaxArrayLength = 16 * 1024 * 1024
	// MaxNesting bounds how deep arrays may be nested inside a reply.
	MaxNesting = 512

	// Buffers are grown while reading instead of trusting the announced size.
	initialAlloc = 64 * 1024
)

// ReadReply reads exactly one reply from r.
// Any returned error leaves r in an undefined position; the connection should be dropped.
func ReadReply(r *bufio.Reader) (Reply, error) {
	return readReply(r, 0)
}

func readReply(r *bufio.Reader, depth int) (Reply, error) {
	line, err := readLine(r)
	if err != nil {
		return Reply{}, err
	}
	if len(line) == 0 {
		return Reply{}, fmt.Errorf("empty reply line: %w", ErrProtocol)
	}

	switch Type(line[0]) {
	case TypeSimpleString:
		return SimpleString(string(line[1:])), nil
	case TypeError:
		return ErrorReply(string(line[1:])), nil
	case TypeInteger:
		i, err := parseInt(line[1:])
		if err != nil {
			return Reply{}, err
		}
		return Integer(i), nil
	case TypeBulkString:
		n, err := parseInt(line[1:])
		if err != nil {
			return Reply{}, err
		}
		if n < 0 {
			return NullReply(), nil
		}
		s, err := readBulk(r, n)
		if err != nil {
			return Reply{}, err
		}
		return Bulk(s), nil
	case TypeArray:
		n, err := parseInt(line[1:])
		if err != nil {
			return Reply{}, err
		}
		if n < 0 {
			return NullReply(), nil
		}
		if n == 0 {
			return ArrayReply(), nil
		}
		if err := checkArrayLength(n); err != nil {
			return Reply{}, err
		}
		if depth >= MaxNesting {
			return Reply{}, fmt.Errorf("arrays nested deeper than %d: %w", MaxNesting, ErrProtocol)
		}
		elems := make([]Reply, 0, min(n, initialAlloc/64))
		for i := int64(0); i < n; i++ {
			e, err := readReply(r, depth+1)
			if err != nil {
				return Reply{}, err
			}
			elems = append(elems, e)
		}
		return ArrayReply(elems...), nil
	default:
		return Reply{}, fmt.Errorf("unexpected reply type %q: %w", line[0], ErrProtocol)
	}
}

// readLine returns the next CRLF terminated line without the terminator.
// The returned slice is only valid until the next read.
func readLine(r *bufio.Reader) ([]byte, error) {
	line, err := r.ReadSlice('\n')
	if err != nil {
		if errors.Is(err, bufio.ErrBufferFull) {
			return nil, fmt.Errorf("line too long: %w", ErrProtocol)
		}
		return nil, err
	}
	if len(line) < 2 || line[len(line)-2] != '\r' {
		return nil, fmt.Errorf("line not terminated by CRLF: %w", ErrProtocol)
	}
	return line[:len(line)-2], nil
}

func parseInt(b []byte) (int64, error) {
	i, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid integer %q: %w", string(b), ErrProtocol)
	}
	return i, nil
}

func checkArrayLength(n int64) error {
	if n > MaxArrayLength {
		return fmt.Errorf("array length %d exceeds limit: %w", n, ErrProtocol)
	}
	return nil
}

func readBulk(r *bufio.Reader, n int64) (string, error) {
	if n > MaxBulkLength {
		return "", fmt.Errorf("bulk length %d exceeds limit: %w", n, ErrProtocol)
	}

	var sb strings.Builder
	sb.Grow(int(min(n, initialAlloc)))
	if _, err := io.CopyN(&sb, r, n); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return "", err
	}

	var term [2]byte
	if _, err := io.ReadFull(r, term[:]); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return "", err
	}
	if term != [2]byte{'\r', '\n'} {
		return "", fmt.Errorf("bulk string not terminated by CRLF: %w", ErrProtocol)
	}
	return sb.String(), nil
}
