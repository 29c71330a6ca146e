package pipeline

import (
	"bytes"
	"os"

	"commitgate/internal/diffutil"
	"commitgate/internal/logging"
)

// concatPartials joins partial files in ascending slot order. Output
// grouping therefore follows partition order, not original change-set
// order; cross-partition interleaving is not reconstructed. A missing
// partial is an empty contribution, and an unreadable one is degraded to
// empty with a warning, since the remaining partials still carry value.
func concatPartials(paths []string, logger *logging.Logger) []byte {
	var buf bytes.Buffer
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			if !os.IsNotExist(err) && logger != nil {
				logger.Warn("partial output unreadable, treating as empty", map[string]interface{}{
					"partial": p,
					"error":   err.Error(),
				})
			}
			continue
		}
		buf.Write(data)
	}
	return buf.Bytes()
}

// AssemblePatch joins all patch partials into the final patch artifact,
// rewriting each diff header pair into canonical quoted a/<path> b/<path>
// form so the result applies directly with git apply -p1. It returns
// whether the patch is non-empty. Nothing is written for an empty patch.
func AssemblePatch(partials []string, outPath string, logger *logging.Logger) (bool, error) {
	raw := concatPartials(partials, logger)
	if len(raw) == 0 {
		return false, nil
	}

	// Second escaping pass: canonical headers.
	patch, err := diffutil.RewriteHeaders(raw)
	if err != nil {
		return false, err
	}

	if stats, err := diffutil.Summarize(patch); err != nil {
		logger.Warn("assembled patch failed structural validation", map[string]interface{}{
			"error": err.Error(),
		})
	} else {
		logger.Debug("assembled patch", map[string]interface{}{
			"files": len(stats),
		})
	}

	if err := os.WriteFile(outPath, patch, 0o600); err != nil {
		return false, err
	}
	return true, nil
}

// AssembleReport joins all report partials into the final report artifact
// and returns whether it is non-empty.
func AssembleReport(partials []string, outPath string, logger *logging.Logger) (bool, error) {
	report := concatPartials(partials, logger)
	if len(report) == 0 {
		return false, nil
	}
	if err := os.WriteFile(outPath, report, 0o600); err != nil {
		return false, err
	}
	return true, nil
}
