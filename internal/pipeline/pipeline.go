// Package pipeline implements the commit-time verification pipeline:
// change-set resolution, index snapshotting, work partitioning, the checker
// fan-out/join, output reassembly, and the gate decision.
package pipeline

import (
	"context"
	"io"
	"os"
	"time"

	"commitgate/internal/checker"
	"commitgate/internal/config"
	"commitgate/internal/execx"
	"commitgate/internal/gitx"
	"commitgate/internal/logging"
)

// Result summarizes one pipeline invocation.
type Result struct {
	RunID      string
	State      State
	Files      int
	Duration   time.Duration
	HeadCommit string
	BaseRef    string

	// MergeSkipped is set when the run was approved without checking
	// because a merge commit was being concluded.
	MergeSkipped bool

	// RetainedPatch / RetainedReport are the on-disk locations of artifacts
	// whose ownership transferred to the user, empty otherwise.
	RetainedPatch  string
	RetainedReport string

	// PatchData / ReportData carry the assembled artifacts for the run
	// ledger; nil when the corresponding artifact was empty.
	PatchData  []byte
	ReportData []byte
}

// Approved reports whether the commit may proceed.
func (r *Result) Approved() bool {
	return r.State == StateClean || r.State == StateRemediated
}

// Pipeline wires the components of one verification run. Configuration is
// immutable once the pipeline is constructed.
type Pipeline struct {
	cfg      *config.Config
	git      *gitx.Client
	runner   execx.Runner
	manifest *checker.Manifest
	out      io.Writer
	logger   *logging.Logger
}

// New creates a pipeline. runner is used for checker invocations; git
// carries its own runner.
func New(cfg *config.Config, git *gitx.Client, runner execx.Runner, manifest *checker.Manifest, out io.Writer, logger *logging.Logger) *Pipeline {
	return &Pipeline{
		cfg:      cfg,
		git:      git,
		runner:   runner,
		manifest: manifest,
		out:      out,
		logger:   logger,
	}
}

// Run executes the full pipeline: resolve, snapshot, partition, fan out the
// format stage, gate it, then fan out the analysis stage and gate that.
// Formatting is gated first so a style failure short-circuits the slower
// analysis pass. All run artifacts are cleaned up on every exit path except
// the ones whose ownership transfers to the user on BLOCKED.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	result := &Result{
		State:      StatePending,
		HeadCommit: p.git.HeadCommit(ctx),
		BaseRef:    p.git.BaseRef(ctx),
	}

	if p.cfg.SkipMerges && p.git.MergeInProgress(ctx) {
		p.logger.Info("merge in progress, skipping checks", nil)
		result.State = StateClean
		result.MergeSkipped = true
		result.Duration = time.Since(start)
		return result, nil
	}

	formatOn := p.manifest.Formatter.IsEnabled()
	analyzeOn := p.manifest.Analyzer.IsEnabled()

	var fmtTool, tidyTool checker.Tool
	if formatOn {
		fmtTool = p.manifest.Formatter.ToolOf()
		if err := fmtTool.Verify(p.runner); err != nil {
			return nil, err
		}
	}
	if analyzeOn {
		tidyTool = p.manifest.Analyzer.ToolOf()
		if err := tidyTool.Verify(p.runner); err != nil {
			return nil, err
		}
	}

	paths, err := ResolveChangeSet(ctx, p.git, Filter{
		Extensions:  unionExtensions(formatOn, fmtTool, analyzeOn, tidyTool),
		ExcludeDirs: p.cfg.ExcludeDirs,
	})
	if err != nil {
		return nil, err
	}
	result.Files = len(paths)

	if len(paths) == 0 {
		p.logger.Debug("no candidate files staged", nil)
		result.State = StateClean
		result.Duration = time.Since(start)
		return result, nil
	}

	rc, err := NewRunContext(p.logger)
	if err != nil {
		return nil, err
	}
	defer rc.Cleanup()
	result.RunID = rc.ID

	snapshot, err := MaterializeSnapshot(ctx, p.git, paths, rc.SnapshotRoot())
	if err != nil {
		return nil, err
	}

	partitions, err := PartitionPaths(paths, p.cfg.Jobs)
	if err != nil {
		return nil, err
	}

	p.logger.Info("checking staged files", map[string]interface{}{
		"run":   rc.ID,
		"files": len(paths),
		"jobs":  p.cfg.Jobs,
	})

	gate := &Gatekeeper{
		Git:             p.git,
		AutoApply:       p.cfg.AutoApply,
		MaxDisplayLines: p.cfg.MaxDisplayLines,
		Out:             p.out,
		Logger:          p.logger,
	}

	if formatOn {
		state, err := p.runFormatStage(ctx, rc, snapshot, partitions, fmtTool, gate, result)
		if err != nil {
			return nil, err
		}
		if state == StateBlocked {
			result.State = StateBlocked
			result.RetainedPatch = rc.PatchPath()
			result.Duration = time.Since(start)
			return result, nil
		}
		if state == StateRemediated {
			result.State = StateRemediated
			if analyzeOn {
				// The auto-apply changed the index; re-materialize so the
				// analyzer's line numbers match what is being committed.
				snapshot, err = MaterializeSnapshot(ctx, p.git, paths, rc.SnapshotRoot())
				if err != nil {
					return nil, err
				}
			}
		}
	}

	if analyzeOn {
		state, err := p.runAnalyzeStage(ctx, rc, snapshot, partitions, tidyTool, gate, result)
		if err != nil {
			return nil, err
		}
		if state == StateBlocked {
			result.State = StateBlocked
			result.RetainedReport = rc.ReportPath()
			result.Duration = time.Since(start)
			return result, nil
		}
	}

	if result.State == StatePending {
		result.State = StateClean
	}
	result.Duration = time.Since(start)
	return result, nil
}

func (p *Pipeline) runFormatStage(ctx context.Context, rc *RunContext, snapshot *Snapshot, partitions [][]string, tool checker.Tool, gate *Gatekeeper, result *Result) (State, error) {
	formatter := checker.NewFormatter(tool, p.runner)

	workers := make([]*Worker, len(partitions))
	partials := make([]string, len(partitions))
	for i, block := range partitions {
		partials[i] = rc.PartialPatchPath(i)
		workers[i] = &Worker{
			Slot:          i,
			Paths:         block,
			Snapshot:      snapshot,
			Stage:         StageFormat,
			Formatter:     formatter,
			PartialPath:   partials[i],
			FailurePolicy: p.cfg.FailurePolicy,
			Logger:        p.logger,
		}
	}
	if err := runPool(ctx, workers); err != nil {
		return StatePending, err
	}

	present, err := AssemblePatch(partials, rc.PatchPath(), p.logger)
	if err != nil {
		return StatePending, err
	}
	if present {
		result.PatchData, _ = os.ReadFile(rc.PatchPath())
	}
	return gate.DecidePatch(ctx, rc, present), nil
}

func (p *Pipeline) runAnalyzeStage(ctx context.Context, rc *RunContext, snapshot *Snapshot, partitions [][]string, tool checker.Tool, gate *Gatekeeper, result *Result) (State, error) {
	analyzer := checker.NewAnalyzer(tool, p.runner)

	workers := make([]*Worker, len(partitions))
	partials := make([]string, len(partitions))
	for i, block := range partitions {
		partials[i] = rc.PartialReportPath(i)
		workers[i] = &Worker{
			Slot:          i,
			Paths:         block,
			Snapshot:      snapshot,
			Stage:         StageAnalyze,
			Analyzer:      analyzer,
			PartialPath:   partials[i],
			FailurePolicy: p.cfg.FailurePolicy,
			Logger:        p.logger,
		}
	}
	if err := runPool(ctx, workers); err != nil {
		return StatePending, err
	}

	present, err := AssembleReport(partials, rc.ReportPath(), p.logger)
	if err != nil {
		return StatePending, err
	}
	if present {
		result.ReportData, _ = os.ReadFile(rc.ReportPath())
	}
	return gate.DecideReport(rc, present), nil
}

// unionExtensions merges the enabled tools' extension filters for the
// change-set level pre-filter. A tool with an open filter opens the union.
func unionExtensions(formatOn bool, fmtTool checker.Tool, analyzeOn bool, tidyTool checker.Tool) []string {
	if formatOn && len(fmtTool.Extensions) == 0 {
		return nil
	}
	if analyzeOn && len(tidyTool.Extensions) == 0 {
		return nil
	}

	seen := make(map[string]bool)
	var union []string
	add := func(exts []string) {
		for _, e := range exts {
			if !seen[e] {
				seen[e] = true
				union = append(union, e)
			}
		}
	}
	if formatOn {
		add(fmtTool.Extensions)
	}
	if analyzeOn {
		add(tidyTool.Extensions)
	}
	return union
}
