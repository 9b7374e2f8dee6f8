package alert

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// FileLedger grava um arquivo por dia em <Dir>/<date>/emails, um nome por linha.
// Record e Claim rodam sob o mutex e um flock em <Dir>/<date>/emails.lock,
// então Claim é atômico também entre processos no mesmo host.
type FileLedger struct {
	Dir string
	mu  sync.Mutex
}

func NewFileLedger(dir string) *FileLedger { return &FileLedger{Dir: dir} }

func (l *FileLedger) path(date string) string {
	return filepath.Join(l.Dir, date, "emails")
}

func (l *FileLedger) FilterNew(_ context.Context, names []string, date string) ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	known, err := l.read(date)
	if err != nil {
		return nil, err
	}
	return subtract(names, known), nil
}

func (l *FileLedger) Record(_ context.Context, names []string, date string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	unlock, err := l.lock(date)
	if err != nil {
		return err
	}
	defer unlock()

	known, err := l.read(date)
	if err != nil {
		return err
	}
	return l.appendNames(date, subtract(names, known))
}

func (l *FileLedger) Claim(_ context.Context, names []string, date string) ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	unlock, err := l.lock(date)
	if err != nil {
		return nil, err
	}
	defer unlock()

	known, err := l.read(date)
	if err != nil {
		return nil, err
	}
	fresh := subtract(names, known)
	if err := l.appendNames(date, fresh); err != nil {
		return nil, err
	}
	return fresh, nil
}

func (l *FileLedger) lock(date string) (func(), error) {
	unlock, err := lockFile(l.path(date) + ".lock")
	if err != nil {
		return nil, fmt.Errorf("%w: lock %s: %v", ErrLedgerUnavailable, date, err)
	}
	return unlock, nil
}

func (l *FileLedger) read(date string) (map[string]struct{}, error) {
	known := make(map[string]struct{})
	f, err := os.Open(l.path(date))
	if errors.Is(err, fs.ErrNotExist) {
		return known, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrLedgerUnavailable, date, err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if name := strings.TrimSpace(sc.Text()); name != "" {
			known[name] = struct{}{}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrLedgerUnavailable, date, err)
	}
	return known, nil
}

func (l *FileLedger) appendNames(date string, names []string) error {
	if len(names) == 0 {
		return nil
	}
	p := l.path(date)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("%w: mkdir: %v", ErrLedgerUnavailable, err)
	}
	f, err := os.OpenFile(p, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("%w: open for append: %v", ErrLedgerUnavailable, err)
	}
	defer f.Close()

	var b strings.Builder
	for _, n := range names {
		b.WriteString(ledgerKey(n))
		b.WriteByte('\n')
	}
	if _, err := f.WriteString(b.String()); err != nil {
		return fmt.Errorf("%w: append: %v", ErrLedgerUnavailable, err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("%w: sync: %v", ErrLedgerUnavailable, err)
	}
	return nil
}

func subtract(names []string, known map[string]struct{}) []string {
	out := []string{}
	for _, n := range dedupe(names) {
		if _, ok := known[ledgerKey(n)]; !ok {
			out = append(out, n)
		}
	}
	return out
}
