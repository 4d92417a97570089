package resp

import (
	"bufio"
	"bytes"
	"fmt"
)

// ReadCommand reads one client command, either as an array of bulk strings
// or as an inline command (space separated words terminated by CRLF).
func ReadCommand(r *bufio.Reader) ([]string, error) {
	line, err := readLine(r)
	if err != nil {
		return nil, err
	}
	if len(line) == 0 {
		return nil, fmt.Errorf("empty command: %w", ErrProtocol)
	}

	if line[0] != byte(TypeArray) {
		fields := bytes.Fields(line)
		cmd := make([]string, len(fields))
		for i, f := range fields {
			cmd[i] = string(f)
		}
		return cmd, nil
	}

	n, err := parseInt(line[1:])
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, fmt.Errorf("negative command length %d: %w", n, ErrProtocol)
	}

	if err := checkArrayLength(n); err != nil {
		return nil, err
	}

	cmd := make([]string, 0, min(n, 64))
	for i := int64(0); i < n; i++ {
		line, err := readLine(r)
		if err != nil {
			return nil, err
		}
		if len(line) == 0 || line[0] != byte(TypeBulkString) {
			return nil, fmt.Errorf("expected bulk string argument: %w", ErrProtocol)
		}
		size, err := parseInt(line[1:])
		if err != nil {
			return nil, err
		}
		if size < 0 {
			return nil, fmt.Errorf("null argument: %w", ErrProtocol)
		}
		arg, err := readBulk(r, size)
		if err != nil {
			return nil, err
		}
		cmd = append(cmd, arg)
	}
	return cmd, nil
}
