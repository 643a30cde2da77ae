package metrics

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/voixagent/voixagent/errors"
	"github.com/voixagent/voixagent/logger"
	"github.com/voixagent/voixagent/util"
)

// DefaultFile is the snapshot document path used when none is configured.
const DefaultFile = "shared_metrics.json"

// Publisher writes a snapshot document to an external medium. A reader of
// the medium must never observe a partially written document.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, doc []byte) error
}

// Encode renders a snapshot as the canonical JSON document.
func Encode(s *Snapshot) ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}

// FilePublisher replaces a local file atomically: the document is written to
// a temporary file in the same directory and renamed over the target.
type FilePublisher struct {
	path string
}

// NewFilePublisher creates a publisher for path.
func NewFilePublisher(path string) *FilePublisher {
	if path == "" {
		path = DefaultFile
	}
	return &FilePublisher{path: path}
}

func (p *FilePublisher) Name() string { return "file:" + p.path }

// Path returns the target file.
func (p *FilePublisher) Path() string { return p.path }

// Publish writes doc to the target file.
func (p *FilePublisher) Publish(_ context.Context, doc []byte) error {
	if dir := filepath.Dir(p.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return util.WriteFileAtomic(p.path, doc, 0o644)
}

// ReadFile loads a snapshot document written by a FilePublisher.
func ReadFile(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// publishLoop coalesces record notifications into at most one publication
// per interval.
type publishLoop struct {
	agg      *Aggregator
	interval time.Duration
	signal   chan struct{}
	quit     chan struct{}
	done     chan struct{}

	mu         sync.Mutex
	publishers []Publisher
	running    bool
	lastErr    error
	writing    sync.Mutex
}

func newPublishLoop(agg *Aggregator, interval time.Duration) *publishLoop {
	return &publishLoop{
		agg:      agg,
		interval: interval,
		signal:   make(chan struct{}, 1),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (l *publishLoop) add(p Publisher) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.publishers = append(l.publishers, p)
}

func (l *publishLoop) notify() {
	select {
	case l.signal <- struct{}{}:
	default:
	}
}

func (l *publishLoop) start() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running {
		return
	}
	l.running = true
	go l.run()
}

func (l *publishLoop) run() {
	defer close(l.done)
	for {
		select {
		case <-l.quit:
			return
		case <-l.signal:
			_ = l.publish(context.Background())
			select {
			case <-l.quit:
				return
			case <-time.After(l.interval):
			}
		}
	}
}

func (l *publishLoop) stop(ctx context.Context) {
	l.mu.Lock()
	running := l.running
	l.running = false
	l.mu.Unlock()
	if !running {
		return
	}
	close(l.quit)
	select {
	case <-l.done:
	case <-ctx.Done():
	}
}

// publish writes the latest snapshot to every publisher. Failures are logged
// and returned, never raised into the recording path.
func (l *publishLoop) publish(ctx context.Context) error {
	l.writing.Lock()
	defer l.writing.Unlock()

	l.mu.Lock()
	publishers := append([]Publisher(nil), l.publishers...)
	l.mu.Unlock()
	if len(publishers) == 0 {
		return nil
	}

	doc, err := Encode(l.agg.Snapshot())
	if err != nil {
		return l.record(errors.MetricsPublish("encode", err))
	}
	var errs []error
	for _, p := range publishers {
		if err := p.Publish(ctx, doc); err != nil {
			appErr := errors.MetricsPublish(p.Name(), err)
			l.agg.log.Warn("metrics publish failed", logger.MergeWithError(logger.Fields("target", p.Name()), err))
			errs = append(errs, appErr)
		}
	}
	return l.record(stderrors.Join(errs...))
}

func (l *publishLoop) record(err error) error {
	l.mu.Lock()
	l.lastErr = err
	l.mu.Unlock()
	return err
}

func (l *publishLoop) lastError() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastErr
}
