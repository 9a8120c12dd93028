package source

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
	"go.bug.st/serial"
)

// Handler receives each decoded telegram.
type Handler func(raw []byte)

// Run reads lines from r until EOF or ctx is cancelled. Empty lines and lines
// starting with '#' are skipped; lines that are not hex are logged and
// skipped.
func Run(ctx context.Context, r io.Reader, handle Handler, log logrus.FieldLogger) error {
	lines := make(chan string)
	errc := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		errc <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-errc:
					return err
				default:
					return nil
				}
			}
			line = strings.TrimSpace(line)
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			raw, err := DecodeHex(line)
			if err != nil {
				log.WithError(err).WithField("line", line).Warn("skipping line")
				continue
			}
			handle(raw)
		}
	}
}

// OpenSerial opens a serial device delivering hex lines.
func OpenSerial(device string, baud int) (io.ReadCloser, error) {
	if device == "" {
		return nil, errors.New("serial device path is empty")
	}
	port, err := serial.Open(device, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, fmt.Errorf("open serial %s: %w", device, err)
	}
	return port, nil
}
