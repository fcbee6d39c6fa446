// Package protocol parses the `action(arg1,arg2,...)` text commands spoken
// over the serial link.
package protocol

import (
	"bytes"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Command is one parsed frame. Args that failed to parse are zero and their
// indices are listed in Malformed.
type Command struct {
	Action    string
	Args      []decimal.Decimal
	Malformed []int
	Raw       string
}

var (
	maxArg = decimal.NewFromInt(math.MaxInt64)
	minArg = decimal.NewFromInt(math.MinInt64)
)

// Parse splits a frame into its action name and numeric arguments. Parsing
// never fails; unparseable arguments, and values outside the int64 range,
// become zero.
func Parse(frame string) Command {
	raw := strings.TrimSpace(frame)
	cmd := Command{Raw: raw}
	open := strings.IndexByte(raw, '(')
	if open < 0 {
		cmd.Action = raw
		return cmd
	}
	cmd.Action = strings.TrimSpace(raw[:open])
	body := raw[open+1:]
	if end := strings.LastIndexByte(body, ')'); end >= 0 {
		body = body[:end]
	}
	if strings.TrimSpace(body) == "" {
		return cmd
	}
	for i, field := range strings.Split(body, ",") {
		d, err := decimal.NewFromString(strings.TrimSpace(field))
		if err != nil || d.GreaterThan(maxArg) || d.LessThan(minArg) {
			d = decimal.Zero
			cmd.Malformed = append(cmd.Malformed, i)
		}
		cmd.Args = append(cmd.Args, d)
	}
	return cmd
}

// Float returns argument i, or zero when it is missing.
func (c Command) Float(i int) float64 {
	if i < 0 || i >= len(c.Args) {
		return 0
	}
	f, _ := c.Args[i].Float64()
	return f
}

// Int returns the integer part of argument i, or zero when it is missing.
func (c Command) Int(i int) int {
	if i < 0 || i >= len(c.Args) {
		return 0
	}
	return int(c.Args[i].IntPart())
}

// Missing reports how many of the first n arguments were not supplied.
func (c Command) Missing(n int) int {
	if len(c.Args) >= n {
		return 0
	}
	return n - len(c.Args)
}

func (c Command) String() string {
	return Format(c.Action, c.Args...)
}

// Format renders a command frame.
func Format(action string, args ...decimal.Decimal) string {
	var b strings.Builder
	b.WriteString(action)
	b.WriteByte('(')
	for i, a := range args {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(a.String())
	}
	b.WriteByte(')')
	return b.String()
}

// FormatFloats renders a command frame from float arguments.
func FormatFloats(action string, args ...float64) string {
	ds := make([]decimal.Decimal, len(args))
	for i, a := range args {
		ds[i] = decimal.NewFromFloat(a)
	}
	return Format(action, ds...)
}

// ScanFrames is a bufio.SplitFunc for command frames. A frame ends at the
// closing parenthesis, or at a line break when no parenthesis was opened.
// Blank lines are skipped.
func ScanFrames(data []byte, atEOF bool) (advance int, token []byte, err error) {
	start := 0
	for start < len(data) && isSpace(data[start]) {
		start++
	}
	if start == len(data) {
		if atEOF {
			return len(data), nil, nil
		}
		return start, nil, nil
	}
	opened := false
	for i := start; i < len(data); i++ {
		switch data[i] {
		case '(':
			opened = true
		case ')':
			if opened {
				return i + 1, data[start : i+1], nil
			}
		case '\n', '\r':
			if !opened {
				return i + 1, bytes.TrimSpace(data[start:i]), nil
			}
		}
	}
	if atEOF {
		return len(data), bytes.TrimSpace(data[start:]), nil
	}
	return start, nil, nil
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}
