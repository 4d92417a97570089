package resp

import "bufio"

// Codec plugs RESP into gonet.Connection.
type Codec struct{}

func (Codec) AppendCommand(dst []byte, cmd []string) []byte { return AppendCommand(dst, cmd) }

func (Codec) ReadReply(r *bufio.Reader) (Reply, error) { return ReadReply(r) }
