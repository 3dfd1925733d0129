package recovery

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/avfe/dlg4vtmb/pkg/cache"
	"github.com/avfe/dlg4vtmb/pkg/dialogue"
	"github.com/avfe/dlg4vtmb/pkg/dlgfile"
	"github.com/avfe/dlg4vtmb/pkg/layout"
)

// DefaultInterval is the autosave cadence when Options.Interval is
// zero.
const DefaultInterval = time.Minute

// Source is the document under edit an autosaver watches.
// *session.Session satisfies it.
type Source interface {
	ID() uuid.UUID
	Path() string
	Dirty() bool
	Snapshot() ([]dialogue.Row, map[int]layout.Point)
}

// Options configures an Autosaver. The zero value watches every minute
// with no lock, no cache mirror, and the default logger.
type Options struct {
	// Interval between dirty checks.
	Interval time.Duration

	// Lock guards the source while the autosaver reads it. Callers
	// that share the source across goroutines pass the lock they
	// mutate under; nil means the source is not shared.
	Lock sync.Locker

	// Cache mirrors snapshots under the document's recovery key, so
	// work from a crashed machine can be picked up elsewhere. Nil
	// disables the mirror.
	Cache cache.Cache
	Keyer cache.Keyer

	Logger *log.Logger
}

// Autosaver periodically snapshots a dirty source to its sidecar.
type Autosaver struct {
	src  Source
	opts Options

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// NewAutosaver prepares an autosaver for one source. Call Start to
// begin the watch.
func NewAutosaver(src Source, opts Options) *Autosaver {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Lock == nil {
		opts.Lock = noLock{}
	}
	if opts.Keyer == nil {
		opts.Keyer = cache.NewDefaultKeyer()
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &Autosaver{
		src:  src,
		opts: opts,
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
}

// Start launches the watch goroutine.
func (a *Autosaver) Start() {
	go a.run()
}

// Stop takes a final snapshot, exactly as closing the editor does, and
// waits for the watch goroutine to exit. Call it only after Start; it
// is safe to call more than once.
func (a *Autosaver) Stop() {
	a.stopOnce.Do(func() { close(a.stop) })
	<-a.done
}

func (a *Autosaver) run() {
	defer close(a.done)
	ticker := time.NewTicker(a.opts.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			a.tick()
		case <-a.stop:
			a.tick()
			return
		}
	}
}

// tick snapshots the source if it is dirty. The lock is held only for
// the in-memory copy; serialization and I/O run outside it.
func (a *Autosaver) tick() {
	a.opts.Lock.Lock()
	if !a.src.Dirty() {
		a.opts.Lock.Unlock()
		return
	}
	rows, positions := a.src.Snapshot()
	docPath := a.src.Path()
	docID := a.src.ID()
	a.opts.Lock.Unlock()

	if err := a.write(docPath, docID, rows, positions); err != nil {
		a.opts.Logger.Debug("autosave failed", "path", docPath, "err", err)
	}
}

func (a *Autosaver) write(docPath string, docID uuid.UUID, rows []dialogue.Row, positions map[int]layout.Point) error {
	snap := sidecar{
		SavedAt:   time.Now().UTC(),
		Source:    docPath,
		Nodes:     dlgfile.NodesFromRows(rows),
		Positions: positions,
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}
	side, err := SidecarPath(docPath)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(side), 0755); err != nil {
		return err
	}
	if err := dlgfile.WriteFileAtomic(side, data); err != nil {
		return err
	}

	if a.opts.Cache != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		key := a.opts.Keyer.RecoveryKey(docID.String())
		if err := a.opts.Cache.Set(ctx, key, data, cache.TTLRecovery); err != nil {
			a.opts.Logger.Debug("recovery cache mirror failed", "key", key, "err", err)
		}
	}
	return nil
}

type noLock struct{}

func (noLock) Lock()   {}
func (noLock) Unlock() {}
