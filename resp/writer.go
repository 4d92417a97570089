package resp

import "strconv"

// AppendCommand appends cmd to dst encoded as an array of bulk strings.
func AppendCommand(dst []byte, cmd []string) []byte {
	dst = appendHeader(dst, '*', int64(len(cmd)))
	for _, arg := range cmd {
		dst = appendBulk(dst, arg)
	}
	return dst
}

// AppendReply appends the wire form of r to dst.
func AppendReply(dst []byte, r Reply) []byte {
	switch r.Type {
	case TypeSimpleString, TypeError:
		dst = append(dst, byte(r.Type))
		dst = append(dst, r.Str...)
		return append(dst, crlf...)
	case TypeInteger:
		return appendHeader(dst, ':', r.Int)
	case TypeBulkString:
		return appendBulk(dst, r.Str)
	case TypeArray:
		dst = appendHeader(dst, '*', int64(len(r.Elems)))
		for _, e := range r.Elems {
			dst = AppendReply(dst, e)
		}
		return dst
	default:
		return append(dst, "$-1\r\n"...)
	}
}

func appendHeader(dst []byte, prefix byte, n int64) []byte {
	dst = append(dst, prefix)
	dst = strconv.AppendInt(dst, n, 10)
	return append(dst, crlf...)
}

func appendBulk(dst []byte, s string) []byte {
	dst = appendHeader(dst, '$', int64(len(s)))
	dst = append(dst, s...)
	return append(dst, crlf...)
}
