package job

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"flowjobs/internal/document"
)

// EmitJob takes ParseJob's error array as input, enriches each entry
// with a ±2-line source snippet, and persists the result to OutputPath
// keyed by filepath (with "Linker Error" as the special key for the
// synthesized linker-diagnostic entry).
//
// Each run merges into whatever is already on disk at OutputPath and
// rewrites the file whole, so OutputPath always holds one valid JSON
// document rather than a sequence of appended blobs.
type EmitJob struct {
	Base
	OutputPath string
}

// NewEmitJob constructs the job registered under "parseOutputJob",
// writing to the default ./data/error_report.json location.
func NewEmitJob(id JobID) Job {
	return &EmitJob{Base: NewBase(id, "parseOutputJob", AllChannels), OutputPath: filepath.Join("data", "error_report.json")}
}

func (e *EmitJob) Execute(ctx context.Context) error {
	raw, ok := e.Input().Get("errors").([]interface{})
	if !ok {
		raw = nil
	}

	existing := loadExisting(e.OutputPath)

	for _, item := range raw {
		entry, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		filepathKey, _ := entry["filepath"].(string)
		if filepathKey == "" {
			continue
		}

		record := map[string]interface{}{
			"lineNumber":       entry["lineNumber"],
			"columnNumber":     entry["columnNumber"],
			"errorDescription": entry["description"],
		}
		if filepathKey != "Linker Error" {
			if ln, ok := toInt(entry["lineNumber"]); ok {
				record["codeSnippet"] = codeSnippet(filepathKey, ln)
			}
		}

		bucket, _ := existing[filepathKey].([]interface{})
		existing[filepathKey] = append(bucket, record)
	}

	if err := writeJSON(e.OutputPath, existing); err != nil {
		out := document.New().Set(err.Error(), "error")
		e.SetOutput(out)
		return errors.Wrap(err, "job: failed to persist error report")
	}

	e.SetOutput(document.FromMap(existing))
	return nil
}

func loadExisting(path string) map[string]interface{} {
	data, err := os.ReadFile(path)
	if err != nil {
		return map[string]interface{}{}
	}
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return map[string]interface{}{}
	}
	return m
}

func writeJSON(path string, m map[string]interface{}) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// codeSnippet reads the ±2 lines around lineNo from filepath. A missing
// or unreadable source file yields an empty snippet rather than an
// error, since the report is still useful without it.
func codeSnippet(path string, lineNo int) []string {
	f, err := os.Open(path)
	if err != nil {
		return []string{}
	}
	defer f.Close()

	lo, hi := lineNo-2, lineNo+2
	var snippet []string
	scanner := bufio.NewScanner(f)
	n := 0
	for scanner.Scan() {
		n++
		if n < lo {
			continue
		}
		if n > hi {
			break
		}
		snippet = append(snippet, scanner.Text())
	}
	if snippet == nil {
		snippet = []string{}
	}
	return snippet
}

func toInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}
