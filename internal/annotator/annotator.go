// Package annotator runs the single-pass annotation loop: read trace lines
// until end of stream, classify each one, and hand matching events to a sink.
package annotator

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/devgoel186/tracemon/internal/filter"
	"github.com/devgoel186/tracemon/internal/model"
)

// StdinSource is the source name that selects standard input.
const StdinSource = "-"

// ErrSourceUnavailable is returned when the trace source cannot be opened.
var ErrSourceUnavailable = errors.New("trace source unavailable")

// Classifier turns a trace line into zero or more events.
type Classifier interface {
	Classify(line model.RawLine) []model.Event
}

// Sink receives events in trace order.
type Sink func(ev model.Event) error

// Annotator wires a classifier and an optional filter to a sink.
type Annotator struct {
	classifier Classifier
	filter     *filter.Filter
	logger     *slog.Logger

	// OnLine, when set, is called once per line read.
	OnLine func(line model.RawLine)
}

// New creates an Annotator. A nil filter accepts every event.
func New(c Classifier, f *filter.Filter, logger *slog.Logger) *Annotator {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Annotator{classifier: c, filter: f, logger: logger}
}

// RunFile opens path (or stdin for "-"), annotates it and closes it.
func (a *Annotator) RunFile(ctx context.Context, path string, sink Sink) error {
	if path == StdinSource {
		return a.Run(ctx, os.Stdin, StdinSource, sink)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrSourceUnavailable, path, err)
	}
	defer f.Close()

	return a.Run(ctx, f, path, sink)
}

// Run reads r until end of stream. Lines of any length are accepted; a
// final line without a newline is still processed. Lines that match nothing
// are skipped. The first sink error stops the loop and is returned.
func (a *Annotator) Run(ctx context.Context, r io.Reader, source string, sink Sink) error {
	reader := bufio.NewReader(r)

	n := 0
	for {
		text, readErr := reader.ReadString('\n')
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			return fmt.Errorf("read %s at line %d: %w", source, n+1, readErr)
		}
		if text == "" && readErr != nil {
			break
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		n++
		line := model.RawLine{Text: trimEOL(text), Source: source, Number: n}
		if err := a.annotate(line, sink); err != nil {
			return err
		}
		if readErr != nil {
			break
		}
	}

	a.logger.Debug("trace exhausted", "source", source, "lines", n)
	return nil
}

func (a *Annotator) annotate(line model.RawLine, sink Sink) error {
	if a.OnLine != nil {
		a.OnLine(line)
	}
	for _, ev := range a.classifier.Classify(line) {
		ok, err := a.filter.Match(ev)
		if err != nil {
			a.logger.Warn("filter evaluation failed", "line", line.Number, "err", err)
		}
		if !ok {
			continue
		}
		if err := sink(ev); err != nil {
			return err
		}
	}
	return nil
}

// trimEOL strips one trailing "\n" or "\r\n".
func trimEOL(s string) string {
	s = strings.TrimSuffix(s, "\n")
	return strings.TrimSuffix(s, "\r")
}
