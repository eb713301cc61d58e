// Package preflight runs environment checks for helmdeck: the editor,
// the state directory, and backend reachability.
package preflight

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Status is the outcome of a check.
type Status int

const (
	Pass Status = iota
	Warn
	Fail
)

func (s Status) String() string {
	switch s {
	case Pass:
		return "pass"
	case Warn:
		return "warn"
	default:
		return "fail"
	}
}

// Result is the outcome of one check.
type Result struct {
	Name   string
	Status Status
	Detail string
	Hint   string // e.g. "set VISUAL or EDITOR"
}

// Check produces a Result. Checks that talk to the network honor ctx.
type Check func(ctx context.Context) Result

// Summary counts results by status.
type Summary struct {
	Passed, Warned, Failed int
}

// Run executes checks in order and returns their results with a summary.
func Run(ctx context.Context, checks ...Check) ([]Result, Summary) {
	var (
		results []Result
		sum     Summary
	)
	for _, check := range checks {
		r := check(ctx)
		switch r.Status {
		case Pass:
			sum.Passed++
		case Warn:
			sum.Warned++
		default:
			sum.Failed++
		}
		results = append(results, r)
	}
	return results, sum
}

// lookPath is replaced in tests.
var lookPath = exec.LookPath

// Editor checks that the first word of editor resolves to an executable.
// A missing editor only warns: values edit --file and values set still work.
func Editor(editor string) Check {
	return func(context.Context) Result {
		r := Result{Name: "editor"}
		parts := strings.Fields(editor)
		if len(parts) == 0 {
			r.Status = Warn
			r.Detail = "no editor configured"
			r.Hint = "set VISUAL or EDITOR"
			return r
		}
		path, err := lookPath(parts[0])
		if err != nil {
			r.Status = Warn
			r.Detail = fmt.Sprintf("%s not found in PATH", parts[0])
			r.Hint = "set VISUAL or EDITOR to an installed editor"
			return r
		}
		r.Status = Pass
		r.Detail = path
		return r
	}
}

// StateDir checks that dir exists (creating it if needed) and is writable.
func StateDir(dir string) Check {
	return func(context.Context) Result {
		r := Result{Name: "state directory", Detail: dir}
		if err := os.MkdirAll(dir, 0700); err != nil {
			r.Status = Fail
			r.Detail = fmt.Sprintf("%s: %v", dir, err)
			r.Hint = "set state_dir or HELMDECK_STATE_DIR to a writable directory"
			return r
		}
		f, err := os.CreateTemp(dir, ".preflight-*")
		if err != nil {
			r.Status = Fail
			r.Detail = fmt.Sprintf("%s is not writable: %v", dir, err)
			r.Hint = "set state_dir or HELMDECK_STATE_DIR to a writable directory"
			return r
		}
		f.Close()
		os.Remove(f.Name())
		r.Status = Pass
		return r
	}
}

// Backend checks that probe succeeds against the API at url.
func Backend(url string, probe func(ctx context.Context) error) Check {
	return func(ctx context.Context) Result {
		r := Result{Name: "backend", Detail: url}
		if err := probe(ctx); err != nil {
			r.Status = Fail
			r.Detail = fmt.Sprintf("%s: %v", url, err)
			r.Hint = "check api_url, HELMDECK_API_URL, or --api-url"
			return r
		}
		r.Status = Pass
		return r
	}
}
