// Package resp implements the RESP2 wire format: command encoding and reply
// decoding for clients, command decoding and reply encoding for servers.
package resp

import (
	"errors"
	"strconv"
	"strings"
)

// Type is the RESP2 type of a reply, identified by its leading byte on the wire.
type Type byte

const (
	TypeSimpleString Type = '+'
	TypeError        Type = '-'
	TypeInteger      Type = ':'
	TypeBulkString   Type = '$'
	TypeArray        Type = '*'

	// TypeNull covers both the null bulk string ($-1) and the null array (*-1).
	TypeNull Type = '_'
)

func (t Type) String() string {
	switch t {
	case TypeSimpleString:
		return "simple string"
	case TypeError:
		return "error"
	case TypeInteger:
		return "integer"
	case TypeBulkString:
		return "bulk string"
	case TypeArray:
		return "array"
	case TypeNull:
		return "null"
	default:
		return "unknown(" + strconv.Itoa(int(t)) + ")"
	}
}

// Reply is one decoded protocol reply.
// Only the field matching Type is meaningful.
type Reply struct {
	Type  Type
	Str   string
	Int   int64
	Elems []Reply
}

func SimpleString(s string) Reply { return Reply{Type: TypeSimpleString, Str: s} }
func ErrorReply(msg string) Reply { return Reply{Type: TypeError, Str: msg} }
func Integer(i int64) Reply       { return Reply{Type: TypeInteger, Int: i} }
func Bulk(s string) Reply         { return Reply{Type: TypeBulkString, Str: s} }
func NullReply() Reply            { return Reply{Type: TypeNull} }
func ArrayReply(elems ...Reply) Reply {
	return Reply{Type: TypeArray, Elems: elems}
}

func (r Reply) IsNull() bool  { return r.Type == TypeNull }
func (r Reply) IsError() bool { return r.Type == TypeError }

// Err returns the server error carried by an error reply, or nil.
// The returned error wraps ErrServer.
func (r Reply) Err() error {
	if r.Type != TypeError {
		return nil
	}
	return &ServerError{Msg: r.Str}
}

// String renders the reply the way redis-cli would, which is handy for logs and the CLI.
func (r Reply) String() string {
	var sb strings.Builder
	r.format(&sb, "")
	return sb.String()
}

func (r Reply) format(sb *strings.Builder, indent string) {
	switch r.Type {
	case TypeSimpleString:
		sb.WriteString(r.Str)
	case TypeError:
		sb.WriteString("(error) ")
		sb.WriteString(r.Str)
	case TypeInteger:
		sb.WriteString("(integer) ")
		sb.WriteString(strconv.FormatInt(r.Int, 10))
	case TypeBulkString:
		sb.WriteString(strconv.Quote(r.Str))
	case TypeNull:
		sb.WriteString("(nil)")
	case TypeArray:
		if len(r.Elems) == 0 {
			sb.WriteString("(empty array)")
			return
		}
		for i, e := range r.Elems {
			if i > 0 {
				sb.WriteString("\n")
				sb.WriteString(indent)
			}
			prefix := strconv.Itoa(i+1) + ") "
			sb.WriteString(prefix)
			e.format(sb, indent+strings.Repeat(" ", len(prefix)))
		}
	default:
		sb.WriteString(r.Type.String())
	}
}

var ErrServer = errors.New("redis server error")

// ServerError is an error reply turned into a Go error.
type ServerError struct {
	Msg string
}

func (e *ServerError) Error() string        { return e.Msg }
func (e *ServerError) Is(target error) bool { return target == ErrServer }
