package router

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
)

// Store owns the live route table and the file-to-route records. The
// table itself is read lock-free through an atomic pointer; the records
// and the swap path are guarded by mu, which makes the table-plus-record
// update one critical section. Single writer (the reload coordinator),
// many readers (request dispatch).
type Store struct {
	table   atomic.Pointer[Table]
	mu      sync.Mutex
	records map[string]*Route // source file -> installed route
}

// NewStore creates a store holding an empty table.
func NewStore() *Store {
	s := &Store{records: make(map[string]*Route)}
	s.table.Store(NewTable(nil))
	return s
}

// Current returns the live table. The returned value is immutable.
func (s *Store) Current() *Table {
	return s.table.Load()
}

// Replace publishes a new table and records the route that motivated
// the swap. A nil route (file deletion) only removes the record.
func (s *Store) Replace(t *Table, sourceFile string, route *Route) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if route != nil {
		s.records[sourceFile] = route
	} else {
		delete(s.records, sourceFile)
	}
	s.table.Store(t)
}

// FileToRoute returns the route currently installed for a source file.
func (s *Store) FileToRoute(sourceFile string) (*Route, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[sourceFile]
	return r, ok
}

// RecordedFiles returns the watched source files with installed routes.
func (s *Store) RecordedFiles() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.records))
	for f := range s.records {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// Discover walks routesRoot, loads every route file with the given
// extension and installs the resulting table. Called once at startup;
// later changes flow through the reload coordinator one file at a time.
func (s *Store) Discover(routesRoot, ext string) error {
	routesRoot = absPath(routesRoot)
	var routes []*Route

	err := filepath.WalkDir(routesRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ext {
			return nil
		}
		route, err := LoadRouteFile(path, routesRoot)
		if err != nil {
			return fmt.Errorf("discover: %w", err)
		}
		routes = append(routes, route)
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range routes {
		s.records[r.SourceFile] = r
	}
	s.table.Store(NewTable(routes))
	return nil
}
