// Package graphviz draws the homing state machine.
package graphviz

import (
	"fmt"
	"io"

	"github.com/goccy/go-graphviz"
	"github.com/goccy/go-graphviz/cgraph"
	"github.com/jt05610/gantry/gantry"
)

type Writer struct {
	*Config
	g       *cgraph.Graph
	mapping map[gantry.HomingState]*cgraph.Node
}

func (w *Writer) writeState(s gantry.HomingState) error {
	node, err := w.g.CreateNode(fmt.Sprintf("s%d", int(s)))
	if err != nil {
		return err
	}
	switch s {
	case gantry.Homed:
		node.SetShape(cgraph.DoubleCircleShape)
	case gantry.Unhomed:
		node.SetShape(cgraph.CircleShape)
	default:
		node.SetShape(cgraph.BoxShape)
	}
	node.SetLabel(s.String())
	node.Set("fontname", string(w.Font))
	w.mapping[s] = node
	return nil
}

func label(t gantry.Transition) string {
	if t.Guard == "" {
		return t.Event
	}
	return fmt.Sprintf("%s [%s]", t.Event, t.Guard)
}

func (w *Writer) writeTransition(i int, t gantry.Transition) error {
	src, ok := w.mapping[t.From]
	if !ok {
		return fmt.Errorf("transition %d: unknown state %v", i, t.From)
	}
	dst, ok := w.mapping[t.To]
	if !ok {
		return fmt.Errorf("transition %d: unknown state %v", i, t.To)
	}
	e, err := w.g.CreateEdge(fmt.Sprintf("t%d", i), src, dst)
	if err != nil {
		return err
	}
	e.SetLabel(label(t))
	e.Set("fontname", string(w.Font))
	return nil
}

// Flush renders the states and transitions to out.
func (w *Writer) Flush(out io.Writer, transitions []gantry.Transition) error {
	graph := graphviz.New()
	defer func() {
		_ = graph.Close()
	}()
	g, err := graph.Graph()
	if err != nil {
		return err
	}
	defer func() {
		_ = g.Close()
	}()
	g.SetRankDir(cgraph.RankDir(w.RankDir))
	w.g = g
	w.mapping = make(map[gantry.HomingState]*cgraph.Node)
	for _, s := range gantry.HomingStates() {
		if err := w.writeState(s); err != nil {
			return err
		}
	}
	for i, t := range transitions {
		if err := w.writeTransition(i, t); err != nil {
			return err
		}
	}
	return graph.Render(w.g, w.Format, out)
}

type Font string

func (f Font) Or(other Font) Font {
	return f + "," + other
}

const (
	Helvetica Font = "Helvetica"
	Arial     Font = "Arial"
	SansSerif Font = "sans-serif"
	Times     Font = "Times"
)

type RankDir string

const (
	LeftToRight RankDir = "LR"
	TopToBottom RankDir = "TB"
)

type Format = graphviz.Format

const (
	XDOT = graphviz.XDOT
	SVG  = graphviz.SVG
	PNG  = graphviz.PNG
)

type Config struct {
	Name string
	Font
	RankDir
	Format
}

func New(config *Config) *Writer {
	if config.Name == "" {
		config.Name = "homing"
	}
	if config.Font == "" {
		config.Font = Helvetica
	}
	if config.RankDir == "" {
		config.RankDir = LeftToRight
	}
	if config.Format == "" {
		config.Format = XDOT
	}
	return &Writer{Config: config}
}
