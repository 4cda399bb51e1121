package store

import (
	"fmt"
	"strings"
)

// Open returns the backend named by driver. "file" keeps one JSON
// document per key under dsn, "memory" keeps nothing across runs and any
// other driver is handed to OpenDatabase. The returned func releases the
// backend.
func Open(driver, dsn string, level LogLevel) (Store, func() error, error) {
	noop := func() error { return nil }
	switch strings.ToLower(driver) {
	case "", "file":
		if dsn == "" {
			dsn = ".escolar"
		}
		fs, err := NewFileStore(dsn)
		if err != nil {
			return nil, nil, err
		}
		return fs, noop, nil
	case "memory":
		return NewMemStore(), noop, nil
	}

	db, err := OpenDatabase(driver, dsn, 0, level)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s store: %w", driver, err)
	}
	gs, err := NewGormStore(db)
	if err != nil {
		CloseDatabase(db)
		return nil, nil, err
	}
	return gs, func() error { return CloseDatabase(db) }, nil
}
