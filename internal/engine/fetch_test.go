package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"
	"time"

	"repofleet/internal/manifest"
	"repofleet/internal/outcome"
)

// fakeTransport records invocations and fails on demand, keyed by clone URL.
// CloneShell creates the target directory like the real tool does.
type fakeTransport struct {
	mu sync.Mutex

	checkErr    error
	cloneErrs   map[string][]error // consumed one per attempt
	sparseErr   error
	checkoutErr error

	cloneCalls  map[string]int
	sparseCalls map[string][]string
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		cloneErrs:   make(map[string][]error),
		cloneCalls:  make(map[string]int),
		sparseCalls: make(map[string][]string),
	}
}

func (f *fakeTransport) failClone(url string, errs ...error) {
	f.cloneErrs[url] = errs
}

func (f *fakeTransport) Check() error { return f.checkErr }

func (f *fakeTransport) CloneShell(_ context.Context, url, dir string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.cloneCalls[url]++
	if errs := f.cloneErrs[url]; len(errs) > 0 {
		err := errs[0]
		f.cloneErrs[url] = errs[1:]
		if err != nil {
			return err
		}
	}
	return os.MkdirAll(dir, 0755)
}

func (f *fakeTransport) SetSparsePatterns(_ context.Context, dir string, patterns []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.sparseErr != nil {
		return f.sparseErr
	}
	f.sparseCalls[dir] = patterns
	return nil
}

func (f *fakeTransport) Materialize(context.Context, string) error {
	return f.checkoutErr
}

func item(url, name string, paths ...string) FetchItem {
	return FetchItem{
		Descriptor: manifest.Descriptor{URL: url, Name: name},
		Paths:      paths,
	}
}

func newTestFetcher(t *testing.T, transport *fakeTransport, root string, concurrency int) *Fetcher {
	t.Helper()

	f, err := NewFetcher(transport, root, concurrency)
	if err != nil {
		t.Fatalf("NewFetcher failed: %v", err)
	}
	f.Backoff = time.Millisecond
	return f
}

func TestFetchAll_AllSucceed(t *testing.T) {
	transport := newFakeTransport()
	root := t.TempDir()
	f := newTestFetcher(t, transport, root, 1)

	items := []FetchItem{
		item("https://example.com/acme/widget.git", "widget"),
		item("https://example.com/acme/gadget.git", "gadget"),
	}

	outcomes, summary, err := f.FetchAll(context.Background(), items, nil)
	if err != nil {
		t.Fatalf("FetchAll returned error: %v", err)
	}
	if summary.Succeeded != 2 || summary.Failed != 0 || summary.Skipped != 0 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if len(outcomes) != 2 {
		t.Fatalf("expected 2 outcomes, got %d", len(outcomes))
	}
	for i, oc := range outcomes {
		if oc.Index != i || oc.Status != outcome.StatusOK || oc.Op != outcome.OpFetch {
			t.Fatalf("unexpected outcome %d: %+v", i, oc)
		}
	}
	if transport.cloneCalls["https://example.com/acme/widget.git"] != 1 {
		t.Fatalf("expected one clone per item, got %v", transport.cloneCalls)
	}
}

func TestFetchAll_SkipsExistingTargetDirectory(t *testing.T) {
	transport := newFakeTransport()
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "widget"), 0755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	f := newTestFetcher(t, transport, root, 1)

	outcomes, summary, err := f.FetchAll(context.Background(), []FetchItem{
		item("https://example.com/acme/widget.git", "widget"),
	}, nil)
	if err != nil {
		t.Fatalf("FetchAll returned error: %v", err)
	}
	if summary.Skipped != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if outcomes[0].Status != outcome.StatusSkipped || outcomes[0].Reason != outcome.ReasonAlreadyExists {
		t.Fatalf("unexpected outcome: %+v", outcomes[0])
	}
	if len(transport.cloneCalls) != 0 {
		t.Fatalf("expected no clone for an existing target, got %v", transport.cloneCalls)
	}
}

func TestFetchAll_FailureIsolation(t *testing.T) {
	transport := newFakeTransport()
	transport.failClone("https://example.com/acme/broken.git", errors.New("remote unreachable"))
	f := newTestFetcher(t, transport, t.TempDir(), 1)

	outcomes, summary, err := f.FetchAll(context.Background(), []FetchItem{
		item("https://example.com/acme/broken.git", "broken"),
		item("https://example.com/acme/widget.git", "widget"),
	}, nil)
	if err != nil {
		t.Fatalf("FetchAll returned error: %v", err)
	}
	if summary.Failed != 1 || summary.Succeeded != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if outcomes[0].Status != outcome.StatusFailed || outcomes[0].Reason != outcome.ReasonCloneError {
		t.Fatalf("unexpected outcome: %+v", outcomes[0])
	}
	if outcomes[1].Status != outcome.StatusOK {
		t.Fatalf("expected later item to proceed, got %+v", outcomes[1])
	}
	if summary.ExitCode() != 1 {
		t.Fatalf("expected exit code 1, got %d", summary.ExitCode())
	}
}

func TestFetchAll_InvalidDescriptorFailsWithoutTransport(t *testing.T) {
	transport := newFakeTransport()
	f := newTestFetcher(t, transport, t.TempDir(), 1)

	outcomes, _, err := f.FetchAll(context.Background(), []FetchItem{
		item("", "nameless"),
	}, nil)
	if err != nil {
		t.Fatalf("FetchAll returned error: %v", err)
	}
	if outcomes[0].Status != outcome.StatusFailed || outcomes[0].Reason != outcome.ReasonInvalidDescriptor {
		t.Fatalf("unexpected outcome: %+v", outcomes[0])
	}
	if len(transport.cloneCalls) != 0 {
		t.Fatalf("expected no transport calls, got %v", transport.cloneCalls)
	}
}

func TestFetchAll_DuplicateNamesResolveInInputOrder(t *testing.T) {
	transport := newFakeTransport()
	f := newTestFetcher(t, transport, t.TempDir(), 4)

	outcomes, summary, err := f.FetchAll(context.Background(), []FetchItem{
		item("https://example.com/acme/widget.git", "widget"),
		item("https://example.com/other/widget.git", "widget"),
	}, nil)
	if err != nil {
		t.Fatalf("FetchAll returned error: %v", err)
	}
	if summary.Succeeded != 1 || summary.Skipped != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if outcomes[0].Status != outcome.StatusOK {
		t.Fatalf("expected first occurrence to own the name, got %+v", outcomes[0])
	}
	if outcomes[1].Status != outcome.StatusSkipped || outcomes[1].Reason != outcome.ReasonAlreadyExists {
		t.Fatalf("unexpected duplicate outcome: %+v", outcomes[1])
	}
	if transport.cloneCalls["https://example.com/other/widget.git"] != 0 {
		t.Fatalf("expected duplicate never to clone, got %v", transport.cloneCalls)
	}
}

func TestFetchAll_ExpandsSparsePatterns(t *testing.T) {
	transport := newFakeTransport()
	root := t.TempDir()
	f := newTestFetcher(t, transport, root, 1)

	_, _, err := f.FetchAll(context.Background(), []FetchItem{
		item("https://example.com/acme/widget.git", "widget", "docs", "README*"),
	}, nil)
	if err != nil {
		t.Fatalf("FetchAll returned error: %v", err)
	}

	got := transport.sparseCalls[filepath.Join(root, "widget")]
	want := []string{"docs", "docs/*", "README*"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("sparse patterns mismatch: got %v want %v", got, want)
	}
}

func TestFetchAll_SparseFailureReason(t *testing.T) {
	transport := newFakeTransport()
	transport.sparseErr = errors.New("bad pattern")
	f := newTestFetcher(t, transport, t.TempDir(), 1)

	outcomes, _, err := f.FetchAll(context.Background(), []FetchItem{
		item("https://example.com/acme/widget.git", "widget", "docs"),
	}, nil)
	if err != nil {
		t.Fatalf("FetchAll returned error: %v", err)
	}
	if outcomes[0].Status != outcome.StatusFailed || outcomes[0].Reason != outcome.ReasonSparseError {
		t.Fatalf("unexpected outcome: %+v", outcomes[0])
	}
}

func TestFetchAll_CheckoutFailureLeavesDirectoryOnDisk(t *testing.T) {
	transport := newFakeTransport()
	transport.checkoutErr = errors.New("checkout blew up")
	root := t.TempDir()
	f := newTestFetcher(t, transport, root, 1)

	outcomes, _, err := f.FetchAll(context.Background(), []FetchItem{
		item("https://example.com/acme/widget.git", "widget"),
	}, nil)
	if err != nil {
		t.Fatalf("FetchAll returned error: %v", err)
	}
	if outcomes[0].Status != outcome.StatusFailed || outcomes[0].Reason != outcome.ReasonCheckoutError {
		t.Fatalf("unexpected outcome: %+v", outcomes[0])
	}
	if _, statErr := os.Stat(filepath.Join(root, "widget")); statErr != nil {
		t.Fatalf("expected failed directory to stay on disk: %v", statErr)
	}
}

func TestFetchAll_RetriesClone(t *testing.T) {
	transport := newFakeTransport()
	transport.failClone("https://example.com/acme/flaky.git", errors.New("transient"), nil)
	f := newTestFetcher(t, transport, t.TempDir(), 1)
	f.Retries = 1

	outcomes, summary, err := f.FetchAll(context.Background(), []FetchItem{
		item("https://example.com/acme/flaky.git", "flaky"),
	}, nil)
	if err != nil {
		t.Fatalf("FetchAll returned error: %v", err)
	}
	if summary.Succeeded != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if outcomes[0].Status != outcome.StatusOK {
		t.Fatalf("unexpected outcome: %+v", outcomes[0])
	}
	if got := transport.cloneCalls["https://example.com/acme/flaky.git"]; got != 2 {
		t.Fatalf("expected 2 clone attempts, got %d", got)
	}
}

func TestFetchAll_NoRetriesByDefault(t *testing.T) {
	transport := newFakeTransport()
	transport.failClone("https://example.com/acme/flaky.git", errors.New("transient"))
	f := newTestFetcher(t, transport, t.TempDir(), 1)

	outcomes, _, err := f.FetchAll(context.Background(), []FetchItem{
		item("https://example.com/acme/flaky.git", "flaky"),
	}, nil)
	if err != nil {
		t.Fatalf("FetchAll returned error: %v", err)
	}
	if outcomes[0].Status != outcome.StatusFailed {
		t.Fatalf("unexpected outcome: %+v", outcomes[0])
	}
	if got := transport.cloneCalls["https://example.com/acme/flaky.git"]; got != 1 {
		t.Fatalf("expected a single clone attempt, got %d", got)
	}
}

func TestFetchAll_TransportCheckFailureIsFatal(t *testing.T) {
	transport := newFakeTransport()
	transport.checkErr = errors.New("git not found")
	f := newTestFetcher(t, transport, t.TempDir(), 1)

	_, _, err := f.FetchAll(context.Background(), []FetchItem{
		item("https://example.com/acme/widget.git", "widget"),
	}, nil)
	if err == nil {
		t.Fatalf("expected fatal error, got nil")
	}
	if len(transport.cloneCalls) != 0 {
		t.Fatalf("expected no item processed after failed check, got %v", transport.cloneCalls)
	}
}

func TestFetchAll_EmitObservesEveryOutcome(t *testing.T) {
	transport := newFakeTransport()
	f := newTestFetcher(t, transport, t.TempDir(), 2)

	var mu sync.Mutex
	seen := 0
	emit := func(outcome.Outcome) {
		mu.Lock()
		seen++
		mu.Unlock()
	}

	_, summary, err := f.FetchAll(context.Background(), []FetchItem{
		item("https://example.com/acme/a.git", "a"),
		item("https://example.com/acme/b.git", "b"),
		item("https://example.com/acme/c.git", "c"),
	}, emit)
	if err != nil {
		t.Fatalf("FetchAll returned error: %v", err)
	}
	if summary.Total != 3 || seen != 3 {
		t.Fatalf("expected emit per outcome: summary=%+v seen=%d", summary, seen)
	}
}
