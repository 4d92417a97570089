package gonet

import "bufio"

// Codec frames outbound commands and decodes inbound replies of a protocol.
//
// AppendCommand must not fail: commands are encoded into memory only.
// ReadReply returns an error only if the stream can no longer be trusted,
// protocol-level error replies must be returned as values.
type Codec[R any] interface {
	AppendCommand(dst []byte, cmd []string) []byte
	ReadReply(r *bufio.Reader) (R, error)
}
