package pipeline

import (
	"context"
	"fmt"
	"os"
	"strings"

	"commitgate/internal/checker"
	"commitgate/internal/config"
	"commitgate/internal/diffutil"
	"commitgate/internal/errors"
	"commitgate/internal/execx"
	"commitgate/internal/logging"
)

// Stage identifies which checker a worker pass runs. Formatting is gated
// before analysis ever starts, so the two never share a pool.
type Stage int

const (
	// StageFormat runs the reformatter and produces patch partials.
	StageFormat Stage = iota
	// StageAnalyze runs the static analyzer and produces report partials.
	StageAnalyze
)

func (s Stage) String() string {
	if s == StageFormat {
		return "format"
	}
	return "analyze"
}

// Worker checks one partition of the change set. All of its writes go to a
// partial file it alone names and owns, so workers need no locking. The
// partial file is created lazily: absence, not emptiness, signals a clean
// partition.
type Worker struct {
	Slot      int
	Paths     []string
	Snapshot  *Snapshot
	Stage     Stage
	Formatter *checker.Formatter
	Analyzer  *checker.Analyzer

	// PartialPath is this worker's exclusive output file.
	PartialPath string

	// FailurePolicy decides what a non-zero checker exit means: capture
	// keeps the inherited behavior of recording output as a finding, fatal
	// aborts the run.
	FailurePolicy string

	Logger *logging.Logger
}

// Run iterates the partition in order. It always runs to completion; the
// pipeline favors complete, reproducible output over early exit.
func (w *Worker) Run(ctx context.Context) error {
	for _, path := range w.Paths {
		var err error
		switch w.Stage {
		case StageFormat:
			err = w.formatOne(ctx, path)
		case StageAnalyze:
			err = w.analyzeOne(ctx, path)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (w *Worker) formatOne(ctx context.Context, path string) error {
	if !w.Formatter.Matches(path) {
		return nil
	}

	abs := w.Snapshot.Abs(path)
	formatted, stderr, err := w.Formatter.Format(ctx, abs, path)
	if err != nil {
		if w.FailurePolicy == config.FailureFatal {
			return errors.New(errors.CheckerFailed,
				fmt.Sprintf("reformatter failed on %s", path),
				fmt.Errorf("%w (%s)", err, strings.TrimSpace(stderr)))
		}
		// Inherited behavior: keep going and diff against whatever the
		// checker produced.
		w.Logger.Warn("reformatter exited non-zero, capturing output", map[string]interface{}{
			"slot":  w.Slot,
			"path":  path,
			"exit":  execx.ExitCode(err),
			"error": err.Error(),
		})
	}

	original, err := w.Snapshot.Read(path)
	if err != nil {
		return errors.New(errors.SnapshotFailed,
			fmt.Sprintf("cannot read snapshot of %s", path), err)
	}

	// First escaping pass: the generated diff's own header labels.
	label := diffutil.QuotePath(path)
	text, err := diffutil.Unified(label, label, original, formatted)
	if err != nil {
		return errors.New(errors.InternalError,
			fmt.Sprintf("diff failed for %s", path), err)
	}
	if text == "" {
		return nil
	}
	return w.appendPartial(text)
}

func (w *Worker) analyzeOne(ctx context.Context, path string) error {
	if !w.Analyzer.Matches(path) {
		return nil
	}

	text, err := w.Analyzer.Analyze(ctx, w.Snapshot.Abs(path))
	if err != nil {
		if w.FailurePolicy == config.FailureFatal {
			return errors.New(errors.CheckerFailed,
				fmt.Sprintf("analyzer failed on %s", path), err)
		}
		w.Logger.Warn("analyzer exited non-zero, capturing output", map[string]interface{}{
			"slot":  w.Slot,
			"path":  path,
			"exit":  execx.ExitCode(err),
			"error": err.Error(),
		})
	}
	if strings.TrimSpace(text) == "" {
		return nil
	}

	entry := fmt.Sprintf("== %s ==\n%s", path, text)
	if !strings.HasSuffix(entry, "\n") {
		entry += "\n"
	}
	return w.appendPartial(entry)
}

func (w *Worker) appendPartial(text string) error {
	f, err := os.OpenFile(w.PartialPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return errors.New(errors.InternalError,
			fmt.Sprintf("cannot open partial output %s", w.PartialPath), err)
	}
	defer f.Close()

	if _, err := f.WriteString(text); err != nil {
		return errors.New(errors.InternalError,
			fmt.Sprintf("cannot append to partial output %s", w.PartialPath), err)
	}
	return nil
}

// runPool launches one goroutine per worker and blocks until every worker
// has terminated. There is no cancellation between workers; the first error
// in slot order is reported after the barrier so output stays reproducible.
func runPool(ctx context.Context, workers []*Worker) error {
	errs := make([]error, len(workers))

	done := make(chan int, len(workers))
	for i, w := range workers {
		go func(i int, w *Worker) {
			errs[i] = w.Run(ctx)
			done <- i
		}(i, w)
	}
	for range workers {
		<-done
	}

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
