package logtail

import "strings"

// Attr is one key=value pair from a log line.
type Attr struct {
	Key   string
	Value string
}

// Entry is a parsed slog text-handler line.
type Entry struct {
	Time    string
	Level   string
	Message string
	Attrs   []Attr
	// Raw is the original line, kept for lines that are not key=value formatted.
	Raw string
}

// Parsed reports whether the line carried at least a level or message.
func (e Entry) Parsed() bool {
	return e.Level != "" || e.Message != ""
}

// Attr returns the value for key, or "".
func (e Entry) Attr(key string) string {
	for _, a := range e.Attrs {
		if a.Key == key {
			return a.Value
		}
	}
	return ""
}

// Parse splits a line written by slog.TextHandler into its fields.
// Malformed input never fails; unknown shapes come back with only Raw set.
func Parse(line string) Entry {
	entry := Entry{Raw: line}
	pairs, ok := splitPairs(line)
	if !ok {
		return entry
	}
	for _, p := range pairs {
		switch p.Key {
		case "time":
			entry.Time = p.Value
		case "level":
			entry.Level = strings.ToUpper(p.Value)
		case "msg":
			entry.Message = p.Value
		default:
			entry.Attrs = append(entry.Attrs, p)
		}
	}
	return entry
}

func splitPairs(line string) ([]Attr, bool) {
	var pairs []Attr
	i := 0
	n := len(line)
	for i < n {
		for i < n && line[i] == ' ' {
			i++
		}
		if i >= n {
			break
		}
		start := i
		for i < n && line[i] != '=' && line[i] != ' ' {
			i++
		}
		if i >= n || line[i] != '=' || i == start {
			return nil, false
		}
		key := line[start:i]
		i++

		var value string
		if i < n && line[i] == '"' {
			i++
			var b strings.Builder
			closed := false
			for i < n {
				c := line[i]
				if c == '\\' && i+1 < n {
					switch line[i+1] {
					case 'n':
						b.WriteByte('\n')
					case 't':
						b.WriteByte('\t')
					default:
						b.WriteByte(line[i+1])
					}
					i += 2
					continue
				}
				if c == '"' {
					closed = true
					i++
					break
				}
				b.WriteByte(c)
				i++
			}
			if !closed {
				return nil, false
			}
			value = b.String()
		} else {
			vstart := i
			for i < n && line[i] != ' ' {
				i++
			}
			value = line[vstart:i]
		}
		pairs = append(pairs, Attr{Key: key, Value: value})
	}
	return pairs, len(pairs) > 0
}
