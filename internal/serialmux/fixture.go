package serialmux

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/banshee-data/yardwatch/internal/timeutil"
)

// LoadFixture reads a JSON-lines capture. Blank lines and lines starting
// with '#' are skipped.
func LoadFixture(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open fixture: %w", err)
	}
	defer f.Close()

	var lines []string
	scan := bufio.NewScanner(f)
	scan.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for scan.Scan() {
		line := strings.TrimSpace(scan.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	if err := scan.Err(); err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("fixture %s has no messages", path)
	}
	return lines, nil
}

// FixturePort is a SerialPorter that plays back captured gateway lines, one
// per clock tick, then reports EOF. Commands written to it are kept.
type FixturePort struct {
	r    *io.PipeReader
	w    *io.PipeWriter
	done chan struct{}
	once sync.Once

	mu      sync.Mutex
	written bytes.Buffer
}

// NewFixturePort starts playback of lines on a ticker from clock.
func NewFixturePort(lines []string, clock timeutil.Clock, interval time.Duration) *FixturePort {
	r, w := io.Pipe()
	p := &FixturePort{r: r, w: w, done: make(chan struct{})}
	ticker := clock.NewTicker(interval)
	go p.play(lines, ticker)
	return p
}

func (p *FixturePort) play(lines []string, ticker timeutil.Ticker) {
	defer ticker.Stop()
	defer p.w.Close()
	for _, line := range lines {
		select {
		case <-ticker.C():
		case <-p.done:
			return
		}
		if _, err := io.WriteString(p.w, line+"\n"); err != nil {
			return
		}
	}
}

func (p *FixturePort) Read(b []byte) (int, error) { return p.r.Read(b) }

func (p *FixturePort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.written.Write(b)
}

// Written returns every command sent to the port so far.
func (p *FixturePort) Written() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.written.String()
}

func (p *FixturePort) Close() error {
	p.once.Do(func() { close(p.done) })
	return p.r.Close()
}
