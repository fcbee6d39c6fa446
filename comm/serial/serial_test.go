package serial

import (
	"errors"
	"io"
	"testing"
)

func TestListPorts(t *testing.T) {
	pp, err := ListPorts()
	if err != nil {
		t.Skipf("no serial enumeration here: %v", err)
	}
	for _, p := range pp {
		t.Log(p)
	}
}

// timeoutReader returns (0, nil) a number of times before yielding data, the
// way a port with a read timeout does.
type timeoutReader struct {
	timeouts int
	data     string
	err      error
}

func (r *timeoutReader) Read(p []byte) (int, error) {
	if r.timeouts > 0 {
		r.timeouts--
		return 0, nil
	}
	if r.err != nil {
		return 0, r.err
	}
	return copy(p, r.data), nil
}

func TestReadBlockingSkipsTimeouts(t *testing.T) {
	r := &timeoutReader{timeouts: 3, data: "Gantry Homed\r\n"}
	buf := make([]byte, 64)
	n, err := readBlocking(r, buf, make(chan struct{}))
	if err != nil {
		t.Fatal(err)
	}
	if got := string(buf[:n]); got != "Gantry Homed\r\n" {
		t.Fatalf("expected %q, got %q", "Gantry Homed\r\n", got)
	}
}

func TestReadBlockingClosed(t *testing.T) {
	closed := make(chan struct{})
	close(closed)
	r := &timeoutReader{timeouts: 1 << 30}
	if _, err := readBlocking(r, make([]byte, 8), closed); !errors.Is(err, io.EOF) {
		t.Fatalf("expected %v, got %v", io.EOF, err)
	}
}

func TestReadBlockingError(t *testing.T) {
	boom := errors.New("unplugged")
	r := &timeoutReader{err: boom}
	if _, err := readBlocking(r, make([]byte, 8), make(chan struct{})); !errors.Is(err, boom) {
		t.Fatalf("expected %v, got %v", boom, err)
	}
}
