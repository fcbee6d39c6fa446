package protocol_test

import (
	"bufio"
	"strings"
	"testing"

	"github.com/jt05610/gantry/protocol"
)

func TestParse(t *testing.T) {
	cases := []struct {
		frame     string
		action    string
		args      []float64
		malformed []int
	}{
		{"move(100,50,-20)", "move", []float64{100, 50, -20}, nil},
		{"mix(25, 100)", "mix", []float64{25, 100}, nil},
		{"  hardHome(0)\n", "hardHome", []float64{0}, nil},
		{"pinch()", "pinch", nil, nil},
		{"returnState", "returnState", nil, nil},
		{"move(1,abc,3)", "move", []float64{1, 0, 3}, []int{1}},
		{"move(NaN,Inf,1e1)", "move", []float64{0, 0, 10}, []int{0, 1}},
		{"move(1,,3)", "move", []float64{1, 0, 3}, []int{1}},
		{"foo(1,2)", "foo", []float64{1, 2}, nil},
		{"mix(4,1e400,300)", "mix", []float64{4, 0, 300}, []int{1}},
		{"mix(1e19,10,300)", "mix", []float64{0, 10, 300}, []int{0}},
		{"move(-1e19,-1e400,1e18)", "move", []float64{0, 0, 1e18}, []int{0, 1}},
	}
	for _, tc := range cases {
		cmd := protocol.Parse(tc.frame)
		if cmd.Action != tc.action {
			t.Fatalf("%q: expected action %q, got %q", tc.frame, tc.action, cmd.Action)
		}
		if len(cmd.Args) != len(tc.args) {
			t.Fatalf("%q: expected %d args, got %d", tc.frame, len(tc.args), len(cmd.Args))
		}
		for i, a := range tc.args {
			if cmd.Float(i) != a {
				t.Fatalf("%q: expected arg %d = %v, got %v", tc.frame, i, a, cmd.Float(i))
			}
		}
		if len(cmd.Malformed) != len(tc.malformed) {
			t.Fatalf("%q: expected malformed %v, got %v", tc.frame, tc.malformed, cmd.Malformed)
		}
		for i := range tc.malformed {
			if cmd.Malformed[i] != tc.malformed[i] {
				t.Fatalf("%q: expected malformed %v, got %v", tc.frame, tc.malformed, cmd.Malformed)
			}
		}
	}
}

func TestArgumentAccessors(t *testing.T) {
	cmd := protocol.Parse("mix(25.7, 100)")
	if cmd.Int(0) != 25 {
		t.Fatalf("expected 25, got %d", cmd.Int(0))
	}
	if cmd.Int(5) != 0 || cmd.Float(-1) != 0 {
		t.Fatal("expected missing arguments to read as zero")
	}
	if cmd.Missing(3) != 1 {
		t.Fatalf("expected 1 missing, got %d", cmd.Missing(3))
	}
	if huge := protocol.Parse("mix(1e19,10,300)"); huge.Int(0) != 0 {
		t.Fatalf("expected out-of-range count to read as 0, got %d", huge.Int(0))
	}
}

func TestFormat(t *testing.T) {
	if got := protocol.FormatFloats("move", 100, 50.5, -20); got != "move(100,50.5,-20)" {
		t.Fatalf("expected move(100,50.5,-20), got %s", got)
	}
	if got := protocol.FormatFloats("hardHome"); got != "hardHome()" {
		t.Fatalf("expected hardHome(), got %s", got)
	}
	if got := protocol.Parse("move(1, 2,3)").String(); got != "move(1,2,3)" {
		t.Fatalf("expected move(1,2,3), got %s", got)
	}
}

func TestScanFrames(t *testing.T) {
	input := "move(1,2,3)hardHome(0)\r\nmix(25, 100)\n\nreturnState\nfoo(1,\n2)pinch(0)"
	s := bufio.NewScanner(strings.NewReader(input))
	s.Split(protocol.ScanFrames)
	var frames []string
	for s.Scan() {
		frames = append(frames, s.Text())
	}
	if err := s.Err(); err != nil {
		t.Fatal(err)
	}
	expect := []string{"move(1,2,3)", "hardHome(0)", "mix(25, 100)", "returnState", "foo(1,\n2)", "pinch(0)"}
	if len(frames) != len(expect) {
		t.Fatalf("expected %q, got %q", expect, frames)
	}
	for i := range expect {
		if frames[i] != expect[i] {
			t.Fatalf("expected %q, got %q", expect, frames)
		}
	}
}

func TestScanFramesTrailing(t *testing.T) {
	s := bufio.NewScanner(strings.NewReader("  release"))
	s.Split(protocol.ScanFrames)
	if !s.Scan() || s.Text() != "release" {
		t.Fatalf("expected trailing frame at EOF, got %q", s.Text())
	}
	if s.Scan() {
		t.Fatalf("expected no more frames, got %q", s.Text())
	}
}
