package job

import (
	"bytes"
	"context"
	"os/exec"

	shellquote "github.com/kballard/go-shellquote"
	"github.com/pkg/errors"

	"flowjobs/internal/document"
)

// ShellJob runs a single shell command read from its input document's
// "command" field and captures combined stdout+stderr as "output".
//
// Strict controls how the result is classified: a strict ShellJob
// (the "compileJob" factory) reports "compiled with no errors" when the
// command produced no output and "failed to compile" otherwise, the way
// a compiler invocation is judged; a non-strict one (the "customJob"
// factory) always reports "completed", for commands whose output isn't
// itself a pass/fail signal.
type ShellJob struct {
	Base
	Strict bool
}

// NewCompileJob constructs the strict ShellJob variant the graph
// runner's built-in factory table registers under "compileJob".
func NewCompileJob(id JobID) Job {
	return &ShellJob{Base: NewBase(id, "compileJob", AllChannels), Strict: true}
}

// NewCustomJob constructs the non-strict ShellJob variant registered
// under "customJob".
func NewCustomJob(id JobID) Job {
	return &ShellJob{Base: NewBase(id, "customJob", AllChannels), Strict: false}
}

// Execute runs the job's command and always produces an output
// document, even on failure, so dependent jobs can inspect what went
// wrong instead of finding an empty payload.
func (s *ShellJob) Execute(ctx context.Context) error {
	command, ok := s.Input().GetString("command")
	if !ok || command == "" {
		s.SetOutput(document.New().
			Set("failed to compile", "status").
			Set("missing required input field \"command\"", "error"))
		return errors.New("job: shell job missing required input field \"command\"")
	}

	args, err := shellquote.Split(command)
	if err != nil {
		s.SetOutput(document.New().
			Set("failed to compile", "status").
			Set(err.Error(), "error"))
		return errors.Wrap(err, "job: failed to split shell command")
	}
	if len(args) == 0 {
		s.SetOutput(document.New().Set("failed to compile", "status").Set("empty command", "error"))
		return errors.New("job: empty shell command")
	}

	var combined bytes.Buffer
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Stdout = &combined
	cmd.Stderr = &combined

	runErr := cmd.Run()
	output := combined.String()

	status := "completed"
	if s.Strict {
		if output == "" {
			status = "compiled with no errors"
		} else {
			status = "failed to compile"
		}
	}

	out := document.New().Set(status, "status").Set(output, "output")
	if exitErr, ok := runErr.(*exec.ExitError); ok {
		out.Set(exitErr.ExitCode(), "returnCode")
	} else if runErr == nil {
		out.Set(0, "returnCode")
	} else {
		out.Set(-1, "returnCode")
		out.Set(runErr.Error(), "error")
	}
	s.SetOutput(out)

	if runErr != nil {
		if _, isExitErr := runErr.(*exec.ExitError); !isExitErr {
			return errors.Wrap(runErr, "job: failed to spawn shell command")
		}
	}
	return nil
}
