package process

import "fmt"

// ShellSplit splits s into argv using POSIX shell word-splitting rules
// (backslash escapes, single quotes literal, double quotes with
// backslash/$/`/" escapes). It is deliberately minimal — no globbing,
// variable expansion, or command substitution — since the daemon only
// needs to turn a stored command string back into argv at spawn time.
//
// No ecosystem package in the retrieved examples implements POSIX
// word-splitting; this is hand-rolled stdlib because nothing in the
// corpus offers a suitable library for it.
func ShellSplit(s string) ([]string, error) {
	var (
		args    []string
		cur     []rune
		hasWord bool
	)

	const (
		stateNormal = iota
		stateSingle
		stateDouble
	)
	state := stateNormal

	runes := []rune(s)
	for i := 0; i < len(runes); i++ {
		c := runes[i]

		switch state {
		case stateSingle:
			if c == '\'' {
				state = stateNormal
				continue
			}
			cur = append(cur, c)

		case stateDouble:
			switch c {
			case '"':
				state = stateNormal
			case '\\':
				if i+1 < len(runes) {
					next := runes[i+1]
					switch next {
					case '"', '\\', '$', '`':
						cur = append(cur, next)
						i++
					default:
						cur = append(cur, c)
					}
				} else {
					return nil, fmt.Errorf("unterminated escape in command")
				}
			default:
				cur = append(cur, c)
			}

		default: // stateNormal
			switch {
			case c == '\'':
				state = stateSingle
				hasWord = true
			case c == '"':
				state = stateDouble
				hasWord = true
			case c == '\\':
				if i+1 >= len(runes) {
					return nil, fmt.Errorf("unterminated escape in command")
				}
				cur = append(cur, runes[i+1])
				hasWord = true
				i++
			case c == ' ' || c == '\t' || c == '\n':
				if hasWord {
					args = append(args, string(cur))
					cur = cur[:0]
					hasWord = false
				}
			default:
				cur = append(cur, c)
				hasWord = true
			}
		}
	}

	switch state {
	case stateSingle:
		return nil, fmt.Errorf("unterminated single quote in command")
	case stateDouble:
		return nil, fmt.Errorf("unterminated double quote in command")
	}

	if hasWord {
		args = append(args, string(cur))
	}

	if len(args) == 0 {
		return nil, fmt.Errorf("empty command")
	}
	return args, nil
}
