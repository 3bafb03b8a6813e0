package live

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/ncruces/go-strftime"
	"go.uber.org/zap"

	"github.com/baiguoname/qust-sub001/internal/logger"
	"github.com/baiguoname/qust-sub001/pkg/errors"
)

const dateLayout = "%Y-%m-%d"

var runPattern = regexp.MustCompile(`^run_(\d+)$`)

// Session lays out the output folders of a live run as
//
//	{dir}/{YYYY-MM-DD}/run_N/
//
// N is one more than the highest run already present for the start date and
// stays the same when the run crosses into a new date.
type Session struct {
	mu      sync.Mutex
	dir     string
	run     int
	date    string
	runPath string
	logger  *logger.Logger
}

// NewSession creates the run folder for a run starting at now.
func NewSession(dir string, now time.Time, log *logger.Logger) (*Session, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}

	s := &Session{dir: dir, date: strftime.Format(dateLayout, now), logger: log}

	runs, err := s.Runs(s.date)
	if err != nil {
		return nil, err
	}

	s.run = 1
	if len(runs) > 0 {
		s.run = runs[len(runs)-1] + 1
	}

	if err := s.mkdir(); err != nil {
		return nil, err
	}

	s.logger.Info("Session initialized",
		zap.Int("run", s.run),
		zap.String("date", s.date),
		zap.String("path", s.runPath),
	)

	return s, nil
}

func (s *Session) mkdir() error {
	s.runPath = filepath.Join(s.dir, s.date, "run_"+strconv.Itoa(s.run))

	if err := os.MkdirAll(s.runPath, 0755); err != nil {
		return errors.Wrap(errors.ErrCodePersistFailed, "failed to create run folder", err)
	}

	return nil
}

// Roll moves to the folder of t's date if it differs from the current one
// and reports whether it did.
func (s *Session) Roll(t time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	date := strftime.Format(dateLayout, t)
	if date == s.date {
		return false, nil
	}

	old := s.date
	s.date = date

	if err := s.mkdir(); err != nil {
		return false, err
	}

	s.logger.Info("Date boundary crossed",
		zap.String("old_date", old),
		zap.String("new_date", date),
		zap.String("path", s.runPath),
	)

	return true, nil
}

func (s *Session) Run() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.run
}

// Path returns name inside the current run folder.
func (s *Session) Path(name string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return filepath.Join(s.runPath, name)
}

// Runs lists the run numbers present under date, ascending.
func (s *Session) Runs(date string) ([]int, error) {
	entries, err := os.ReadDir(filepath.Join(s.dir, date))
	if os.IsNotExist(err) {
		return nil, nil
	}

	if err != nil {
		return nil, errors.Wrap(errors.ErrCodePersistFailed, "failed to read date directory", err)
	}

	var runs []int

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		if m := runPattern.FindStringSubmatch(entry.Name()); m != nil {
			n, err := strconv.Atoi(m[1])
			if err == nil {
				runs = append(runs, n)
			}
		}
	}

	sort.Ints(runs)

	return runs, nil
}
