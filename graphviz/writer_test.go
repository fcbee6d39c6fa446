package graphviz_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/jt05610/gantry/gantry"
	"github.com/jt05610/gantry/graphviz"
)

func TestWriter_Flush(t *testing.T) {
	w := graphviz.New(&graphviz.Config{
		Font:    graphviz.Helvetica,
		RankDir: graphviz.LeftToRight,
	})
	var buf bytes.Buffer
	if err := w.Flush(&buf, gantry.Transitions); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"HardHoming", "Retreating", "zQuickHome", "done [!homed]"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected output to contain %q", want)
		}
	}
}

func TestWriter_UnknownState(t *testing.T) {
	w := graphviz.New(&graphviz.Config{})
	bad := []gantry.Transition{{From: gantry.Unhomed, Event: "x", To: gantry.HomingState(99)}}
	if err := w.Flush(&bytes.Buffer{}, bad); err == nil {
		t.Fatal("expected error for unknown state")
	}
}
