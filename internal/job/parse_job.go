package job

import (
	"bufio"
	"context"
	"regexp"
	"strconv"
	"strings"

	"flowjobs/internal/document"
)

// ErrorInfo is one diagnostic entry ParseJob extracts from a command's
// captured output: either a compiler error/warning on a specific line,
// or the single synthesized entry covering an accumulated linker error.
type ErrorInfo struct {
	Filepath    string `json:"filepath"`
	LineNumber  int    `json:"lineNumber"`
	ColumnNo    int    `json:"columnNumber"`
	Description string `json:"description"`
}

// ParseJob classifies a compiler invocation's captured "output" text
// into structured per-file diagnostics by applying two regexes line by
// line: one for compiler error/warning locations, one for the start of
// a linker error.
type ParseJob struct {
	Base
}

// NewParseJob constructs the job registered under "compileParseJob".
func NewParseJob(id JobID) Job {
	return &ParseJob{Base: NewBase(id, "compileParseJob", AllChannels)}
}

var (
	compilerErrorRe = regexp.MustCompile(`^(.+?):(\d+):(\d+):\s*(?:error|warning):\s*(.*)$`)
	linkerErrorRe   = regexp.MustCompile(`(?i)undefined reference to|ld returned \d+ exit status`)
)

// Execute reads input.output line by line, classifying each line as a
// compiler diagnostic or part of an accumulating linker error, and sets
// output's "errors" field to an array of ErrorInfo-shaped objects (the
// "description" field is
// later renamed to "errorDescription" downstream, by EmitJob, not
// here).
func (p *ParseJob) Execute(ctx context.Context) error {
	output, _ := p.Input().GetString("output")

	var entries []ErrorInfo
	var linkerSnippet strings.Builder
	inLinkerError := false

	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := scanner.Text()

		if m := compilerErrorRe.FindStringSubmatch(line); m != nil {
			lineNo, _ := strconv.Atoi(m[2])
			colNo, _ := strconv.Atoi(m[3])
			entries = append(entries, ErrorInfo{
				Filepath:    m[1],
				LineNumber:  lineNo,
				ColumnNo:    colNo,
				Description: m[4],
			})
			continue
		}

		if linkerErrorRe.MatchString(line) {
			inLinkerError = true
		}
		if inLinkerError {
			if linkerSnippet.Len() > 0 {
				linkerSnippet.WriteString("\n")
			}
			linkerSnippet.WriteString(line)
		}
	}

	if linkerSnippet.Len() > 0 {
		entries = append(entries, ErrorInfo{
			Filepath:    "Linker Error",
			LineNumber:  0,
			ColumnNo:    0,
			Description: linkerSnippet.String(),
		})
	}

	arr := make([]interface{}, 0, len(entries))
	for _, e := range entries {
		arr = append(arr, map[string]interface{}{
			"filepath":    e.Filepath,
			"lineNumber":  e.LineNumber,
			"columnNumber": e.ColumnNo,
			"description": e.Description,
		})
	}

	out := document.New()
	out.Set(arr, "errors")
	p.SetOutput(out)
	return nil
}
