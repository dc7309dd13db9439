package lifecycle

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/hbomb79/Hermes/internal/event"
	"github.com/hbomb79/Hermes/internal/metrics"
	"github.com/hbomb79/Hermes/pkg/logger"
	"github.com/rjeczalik/notify"
	"github.com/robfig/cron/v3"
)

var log = logger.Get("Lifecycle")

const (
	timerMechanism = "timer"
	sweepMechanism = "sweep"

	watchBufferSize = 32
)

type (
	expiryTimer struct {
		timer *time.Timer
	}

	// Manager is responsible for ensuring that no file produced in the
	// download directory outlives the retention window by more than one
	// sweep interval. Two independent mechanisms are used:
	// - Every registered file has a delayed deletion scheduled for it
	// - The download directory is periodically swept for expired files
	// Either can fail (e.g. timers are lost on restart) and the other
	// will still clean up. Deletion is idempotent, so both racing on
	// the same file is safe.
	//
	// None of the Manager methods return errors: all housekeeping
	// failures are logged and swallowed.
	Manager struct {
		*sync.Mutex
		config   Config
		eventBus event.EventDispatcher
		timers   map[string]*expiryTimer
		remove   removeFunc
	}
)

// New creates a new Manager using the provided config for the
// lifetime of the manager. The config is validated, but the download
// directory is not created until Reset is called.
func New(config Config, eventBus event.EventDispatcher) (*Manager, error) {
	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("lifecycle config invalid: %w", err)
	}

	return &Manager{
		Mutex:    &sync.Mutex{},
		config:   config,
		eventBus: eventBus,
		timers:   make(map[string]*expiryTimer),
		remove:   removeFile,
	}, nil
}

// Run is the main entry point of the manager. It sweeps the download
// directory once immediately and then on the configured interval, and
// (if enabled) watches the directory so that new files are tracked
// from the moment they're created.
// To stop the manager, the calling code should cancel the context
// provided. All pending expiry timers are cancelled on return; any files
// they were tracking are dealt with by the startup reset of the next run.
func (manager *Manager) Run(ctx context.Context) error {
	defer manager.clearAllExpiryTimers()

	scheduler := cron.New(cron.WithLogger(cronLogger{}), cron.WithChain(cron.Recover(cronLogger{})))
	scheduler.Schedule(cron.Every(manager.config.SweepInterval()), cron.FuncJob(func() { manager.Sweep() }))

	watchChannel := manager.startWatching()
	if watchChannel != nil {
		defer notify.Stop(watchChannel)
	}

	manager.Sweep()
	scheduler.Start()
	defer func() { <-scheduler.Stop().Done() }()

	log.Emit(logger.NEW, "Lifecycle manager started (retention=%s, sweep interval=%s)\n", manager.config.Retention(), manager.config.SweepInterval())
	for {
		select {
		case ev := <-watchChannel:
			manager.handleCreated(ev.Path())
		case <-ctx.Done():
			log.Emit(logger.STOP, "Lifecycle manager closed\n")
			return nil
		}
	}
}

// Register schedules the file at the path provided for deletion once the
// configured retention window has elapsed.
func (manager *Manager) Register(path string) {
	manager.RegisterForExpiry(path, manager.config.Retention())
}

// RegisterForExpiry schedules a single deferred deletion of the file at the
// path provided after the window elapses. Any deletion already pending for
// this path is cancelled and replaced.
func (manager *Manager) RegisterForExpiry(path string, window time.Duration) {
	if window < 0 {
		window = 0
	}

	key := trackingKey(path)
	manager.Lock()
	manager.clearExpiryTimer(key)

	entry := &expiryTimer{}
	entry.timer = time.AfterFunc(window, func() { manager.expire(key, entry) })
	manager.timers[key] = entry
	metrics.SetTrackedFiles(len(manager.timers))
	manager.Unlock()

	log.Emit(logger.DEBUG, "Scheduled deletion of %s in %s\n", key, window)
	manager.dispatch(event.FILE_REGISTERED, key)
}

// Sweep deletes all files in the download directory which match the sweep
// pattern and are older than the retention window. The pending timer for each
// removed file is cancelled as soon as that file is gone. Returns the number of
// files removed.
func (manager *Manager) Sweep() int {
	metrics.IncSweep()
	removed := sweepDirectory(manager.config.DownloadPath, manager.config.SweepPattern, manager.config.Retention(), time.Now(), manager.remove, func(path string) {
		key := trackingKey(path)
		manager.Lock()
		manager.clearExpiryTimer(key)
		metrics.SetTrackedFiles(len(manager.timers))
		manager.Unlock()

		manager.fileRemoved(key, sweepMechanism)
	})

	if len(removed) > 0 {
		log.Emit(logger.SUCCESS, "Sweep removed %d expired file(s)\n", len(removed))
	}

	return len(removed)
}

// Reset deletes everything inside of the download directory and ensures the
// directory exists. Pending expiry timers are dropped as the files they track
// no longer exist.
func (manager *Manager) Reset() {
	manager.clearAllExpiryTimers()
	ResetDirectory(manager.config.DownloadPath)
}

// Tracked returns the number of files which have a pending delayed deletion.
func (manager *Manager) Tracked() int {
	manager.Lock()
	defer manager.Unlock()

	return len(manager.timers)
}

// expire is the callback for an expiry timer. If the entry is no longer the
// current one for the key (because it was replaced or cleared) this is a NO-OP.
func (manager *Manager) expire(key string, entry *expiryTimer) {
	manager.Lock()
	if current, ok := manager.timers[key]; !ok || current != entry {
		manager.Unlock()
		return
	}

	delete(manager.timers, key)
	metrics.SetTrackedFiles(len(manager.timers))
	manager.Unlock()

	if ok, err := manager.remove(key); err != nil {
		reportHousekeeping("delete", key, err)
	} else if ok {
		manager.fileRemoved(key, timerMechanism)
	}
}

func (manager *Manager) fileRemoved(path string, mechanism string) {
	log.Emit(logger.REMOVE, "Deleted expired file %s (%s)\n", path, mechanism)
	metrics.IncFileRemoved(mechanism)
	manager.dispatch(event.FILE_EXPIRED, path)
}

// startWatching begins watching the download directory for new files. If the
// watch cannot be established a nil channel is returned (which blocks forever
// when received from) and the sweep alone keeps the directory tidy.
func (manager *Manager) startWatching() chan notify.EventInfo {
	if !manager.config.WatchDirectory {
		return nil
	}

	dir, err := filepath.Abs(manager.config.DownloadPath)
	if err != nil {
		dir = manager.config.DownloadPath
	}

	watchChannel := make(chan notify.EventInfo, watchBufferSize)
	if err := notify.Watch(dir, watchChannel, notify.Create); err != nil {
		log.Emit(logger.WARNING, "Unable to watch download directory %s, relying on sweep alone: %v\n", dir, err)
		return nil
	}

	return watchChannel
}

// handleCreated registers newly created files matching the sweep pattern
// for expiry, unless they're already being tracked.
func (manager *Manager) handleCreated(path string) {
	if ok, _ := filepath.Match(manager.config.SweepPattern, filepath.Base(path)); !ok {
		return
	}

	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return
	}

	key := trackingKey(path)
	manager.Lock()
	_, tracked := manager.timers[key]
	manager.Unlock()

	if !tracked {
		manager.RegisterForExpiry(key, manager.config.Retention())
	}
}

func (manager *Manager) dispatch(ev event.Event, path string) {
	if manager.eventBus != nil {
		manager.eventBus.Dispatch(ev, path)
	}
}

// clearExpiryTimer cancels and deletes the expiry timer associated with the
// key specified.
//
// Note: the caller must hold the mutex
func (manager *Manager) clearExpiryTimer(key string) {
	if entry, ok := manager.timers[key]; ok {
		entry.timer.Stop()
		delete(manager.timers, key)
	}
}

// clearAllExpiryTimers cancels and deletes all pending expiry timers.
func (manager *Manager) clearAllExpiryTimers() {
	manager.Lock()
	defer manager.Unlock()

	for key := range manager.timers {
		manager.clearExpiryTimer(key)
	}
	metrics.SetTrackedFiles(0)
}

// cronLogger routes the scheduler's logging (including recovered
// panics from sweep jobs) through the lifecycle logger.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	log.Emit(logger.VERBOSE, "Scheduler %s %v\n", msg, keysAndValues)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	log.Emit(logger.ERROR, "Scheduler %s: %v %v\n", msg, err, keysAndValues)
}

// trackingKey normalises a path so that the same file registered via a relative
// path and via the (absolute) watcher path shares a single timer.
func trackingKey(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}

	return filepath.Clean(path)
}
