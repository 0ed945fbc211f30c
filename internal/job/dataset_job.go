package job

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"

	"flowjobs/internal/document"
)

// mapFunctions and filterFunctions are the named UDFs a DatasetJob's
// input document can select by name, each operating line-by-line over
// file paths.
var mapFunctions = map[string]func(string) string{
	"to_lower": strings.ToLower,
	"to_json": func(s string) string {
		parts := strings.SplitN(s, ",", 2)
		if len(parts) < 2 {
			return "{}"
		}
		return fmt.Sprintf(`{"key": "%s", "value": "%s"}`, strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]))
	},
}

var filterFunctions = map[string]func(string) bool{
	"long_words": func(s string) bool { return len(s) > 4 },
}

// DatasetJob runs one named file-based dataset operation (map, filter,
// reduce_by_key, or join) over line-delimited input files and writes a
// line-delimited result file, for FlowScript graphs that need simple
// batch data transforms alongside shell/compile/parse jobs.
//
// Its input document carries: "op" (map|filter|reduce_by_key|join),
// "fn" (UDF name, for map/filter), "inputs" ([]string file paths, or
// "left"/"right" for join), and "output" (destination path). Its output
// document carries "outputPath" and a "lineCount".
type DatasetJob struct {
	Base
}

func NewDatasetJob(id JobID) Job {
	return &DatasetJob{Base: NewBase(id, "datasetJob", AllChannels)}
}

func (d *DatasetJob) Execute(ctx context.Context) error {
	op, _ := d.Input().GetString("op")
	output, _ := d.Input().GetString("output")
	if op == "" || output == "" {
		d.SetOutput(document.New().Set("missing required input fields \"op\"/\"output\"", "error"))
		return errors.New("job: dataset job missing required input fields")
	}

	var err error
	switch op {
	case "map":
		err = d.runMap(output)
	case "filter":
		err = d.runFilter(output)
	case "reduce_by_key":
		err = d.runReduceByKey(output)
	case "join":
		err = d.runJoin(output)
	default:
		err = errors.Errorf("job: unknown dataset op %q", op)
	}

	if err != nil {
		d.SetOutput(document.New().Set(err.Error(), "error"))
		return err
	}

	lines, _ := countLines(output)
	d.SetOutput(document.New().Set(output, "outputPath").Set(lines, "lineCount"))
	return nil
}

func (d *DatasetJob) inputPaths() []string {
	raw, _ := d.Input().Get("inputs").([]interface{})
	paths := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			paths = append(paths, s)
		}
	}
	return paths
}

func (d *DatasetJob) runMap(output string) error {
	fnName, _ := d.Input().GetString("fn")
	fn, ok := mapFunctions[fnName]
	if !ok {
		return errors.Errorf("job: map function %q not found", fnName)
	}
	return transformLines(d.inputPaths(), output, func(line string) (string, bool) {
		return fn(line), true
	})
}

func (d *DatasetJob) runFilter(output string) error {
	fnName, _ := d.Input().GetString("fn")
	fn, ok := filterFunctions[fnName]
	if !ok {
		return errors.Errorf("job: filter function %q not found", fnName)
	}
	return transformLines(d.inputPaths(), output, func(line string) (string, bool) {
		return line, fn(line)
	})
}

func (d *DatasetJob) runReduceByKey(output string) error {
	counts := make(map[string]int)
	for _, in := range d.inputPaths() {
		f, err := os.Open(in)
		if err != nil {
			continue
		}
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			counts[scanner.Text()]++
		}
		f.Close()
	}

	out, err := os.Create(output)
	if err != nil {
		return errors.Wrap(err, "job: creating reduce_by_key output")
	}
	defer out.Close()
	w := bufio.NewWriter(out)
	for k, v := range counts {
		fmt.Fprintf(w, "%s, %d\n", k, v)
	}
	return w.Flush()
}

func (d *DatasetJob) runJoin(output string) error {
	left, _ := d.Input().GetString("left")
	right, _ := d.Input().GetString("right")
	if left == "" || right == "" {
		return errors.New("job: join requires \"left\" and \"right\" input paths")
	}

	leftMap := make(map[string]string)
	lf, err := os.Open(left)
	if err != nil {
		return errors.Wrap(err, "job: opening join left file")
	}
	lScanner := bufio.NewScanner(lf)
	for lScanner.Scan() {
		parts := strings.SplitN(lScanner.Text(), ",", 2)
		if len(parts) == 2 {
			leftMap[parts[0]] = parts[1]
		}
	}
	lf.Close()

	rf, err := os.Open(right)
	if err != nil {
		return errors.Wrap(err, "job: opening join right file")
	}
	defer rf.Close()

	out, err := os.Create(output)
	if err != nil {
		return errors.Wrap(err, "job: creating join output")
	}
	defer out.Close()
	w := bufio.NewWriter(out)

	rScanner := bufio.NewScanner(rf)
	for rScanner.Scan() {
		parts := strings.SplitN(rScanner.Text(), ",", 2)
		if len(parts) != 2 {
			continue
		}
		if valLeft, ok := leftMap[parts[0]]; ok {
			fmt.Fprintf(w, "%s, %s, %s\n", parts[0], valLeft, parts[1])
		}
	}
	return w.Flush()
}

func transformLines(inputs []string, output string, fn func(string) (string, bool)) error {
	out, err := os.Create(output)
	if err != nil {
		return errors.Wrap(err, "job: creating dataset job output")
	}
	defer out.Close()
	w := bufio.NewWriter(out)

	for _, in := range inputs {
		f, err := os.Open(in)
		if err != nil {
			continue
		}
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			if transformed, keep := fn(scanner.Text()); keep {
				w.WriteString(transformed + "\n")
			}
		}
		f.Close()
	}
	return w.Flush()
}

func countLines(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	n := 0
	for scanner.Scan() {
		n++
	}
	return n, nil
}
