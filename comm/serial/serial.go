package serial

import (
	"io"
	"sync"
	"time"

	"go.bug.st/serial"
)

// ReadTimeout bounds a single driver read. Port.Read hides the timeouts from
// callers and keeps waiting.
const ReadTimeout = 500 * time.Millisecond

// Port is an 8N1 serial port usable as an io.ReadWriteCloser.
type Port struct {
	port   serial.Port
	mu     sync.Mutex
	closed chan struct{}
}

func ListPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, err
	}
	return ports, nil
}

func OpenPort(port string, baud int) (*Port, error) {
	p, err := serial.Open(port, &serial.Mode{
		BaudRate: baud,
		Parity:   serial.NoParity,
		DataBits: 8,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, err
	}

	err = p.SetReadTimeout(ReadTimeout)
	if err != nil {
		_ = p.Close()
		return nil, err
	}
	return &Port{port: p, closed: make(chan struct{})}, nil
}

func (p *Port) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	select {
	case <-p.closed:
		return nil
	default:
		close(p.closed)
	}
	return p.port.Close()
}

// Read blocks until at least one byte arrives, the port is closed or the
// driver fails.
func (p *Port) Read(data []byte) (int, error) {
	return readBlocking(p.port, data, p.closed)
}

func (p *Port) Write(data []byte) (int, error) {
	return p.port.Write(data)
}

func readBlocking(r io.Reader, data []byte, closed <-chan struct{}) (int, error) {
	for {
		n, err := r.Read(data)
		if n > 0 || err != nil {
			return n, err
		}
		select {
		case <-closed:
			return 0, io.EOF
		default:
		}
	}
}
