// SPDX-License-Identifier: MIT

package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/clipforge/mediastudio/internal/probe"
	"github.com/clipforge/mediastudio/internal/toolrun"
)

// fakeFFmpeg records invocations and materializes the output file (the
// last argument of every builder in this package) so downstream stages
// can read it.
type fakeFFmpeg struct {
	mu    sync.Mutex
	calls [][]string

	// failWhenContains fails any invocation whose args include this
	// substring with failErr.
	failWhenContains string
	failErr          error

	// manifests captures concat manifest contents at invocation time,
	// before the session is torn down.
	manifests []string
}

func (f *fakeFFmpeg) Run(_ context.Context, args []string, _ time.Duration) (toolrun.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, append([]string(nil), args...))

	joined := strings.Join(args, " ")
	if f.failWhenContains != "" && strings.Contains(joined, f.failWhenContains) {
		err := f.failErr
		if err == nil {
			err = &toolrun.ExitError{Tool: "ffmpeg", ExitCode: 1, StderrTail: []string{"fake failure"}}
		}
		return toolrun.Result{ExitCode: 1}, err
	}

	for i, a := range args {
		if a == "-i" && i+1 < len(args) && strings.HasSuffix(args[i+1], "concat.txt") {
			data, _ := os.ReadFile(args[i+1])
			f.manifests = append(f.manifests, string(data))
		}
	}

	output := args[len(args)-1]
	if err := os.WriteFile(output, []byte("encoded:"+filepath.Base(output)), 0o600); err != nil {
		return toolrun.Result{}, err
	}
	return toolrun.Result{}, nil
}

func (f *fakeFFmpeg) callsContaining(substr string) [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out [][]string
	for _, call := range f.calls {
		if strings.Contains(strings.Join(call, " "), substr) {
			out = append(out, call)
		}
	}
	return out
}

// fakeProber resolves results by the basename of the probed file.
type fakeProber struct {
	results map[string]probe.Result
	err     error
}

func (f *fakeProber) Probe(_ context.Context, path string) (probe.Result, error) {
	if f.err != nil {
		return probe.Result{}, f.err
	}
	pr, ok := f.results[filepath.Base(path)]
	if !ok {
		return probe.Result{}, &probe.Error{Path: path, Err: fmt.Errorf("no fake result")}
	}
	return pr, nil
}

// fakeFetcher serves canned bytes per URL.
type fakeFetcher struct {
	data map[string][]byte
	errs map[string]error
}

func (f *fakeFetcher) Fetch(_ context.Context, url, dst string) (int64, error) {
	if err, ok := f.errs[url]; ok {
		return 0, err
	}
	body, ok := f.data[url]
	if !ok {
		body = []byte("fake-media")
	}
	if err := os.WriteFile(dst, body, 0o600); err != nil {
		return 0, err
	}
	return int64(len(body)), nil
}

// srcName mirrors the session file naming used by downloadSources.
func srcName(i int) string {
	return fmt.Sprintf("src-%03d", i)
}

// assertNoLeftoverSessions fails if any session directory survived under
// root.
func leftoverSessions(root string) []string {
	entries, _ := os.ReadDir(root)
	var dirs []string
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "mediastudio-") {
			dirs = append(dirs, e.Name())
		}
	}
	return dirs
}
