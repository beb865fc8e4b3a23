package config

import "bytes"

// StripJSONComments removes // and /* */ comments from JSONC data so it
// can be fed to encoding/json. Comment markers inside string literals are
// left alone.
func StripJSONComments(data []byte) []byte {
	out := bytes.NewBuffer(make([]byte, 0, len(data)))

	inString := false
	for i := 0; i < len(data); {
		c := data[i]

		if inString {
			out.WriteByte(c)
			if c == '\\' && i+1 < len(data) {
				out.WriteByte(data[i+1])
				i += 2
				continue
			}
			if c == '"' {
				inString = false
			}
			i++
			continue
		}

		switch {
		case c == '"':
			inString = true
			out.WriteByte(c)
			i++
		case c == '/' && i+1 < len(data) && data[i+1] == '/':
			for i < len(data) && data[i] != '\n' {
				i++
			}
		case c == '/' && i+1 < len(data) && data[i+1] == '*':
			end := bytes.Index(data[i+2:], []byte("*/"))
			if end < 0 {
				i = len(data)
			} else {
				i += 2 + end + 2
			}
		default:
			out.WriteByte(c)
			i++
		}
	}

	return out.Bytes()
}
