package store

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Options selects and configures the engine opened by Open.
type Options struct {
	Path   string
	Engine Engine

	// Create allows Open to initialise a new store when none exists at Path.
	Create bool

	Logger *logrus.Logger
}

// Detect reports which engine owns the store at dir, or ErrStoreNotFound.
func Detect(dir string) (Engine, error) {
	for _, e := range Engines {
		if engineExists(e, dir) {
			return e, nil
		}
	}
	return "", ErrStoreNotFound
}

// Exists reports whether a store of the given engine lives at dir. EngineAuto
// matches any engine.
func Exists(dir string, engine Engine) bool {
	if engine == EngineAuto || engine == "" {
		_, err := Detect(dir)
		return err == nil
	}
	return engineExists(engine, dir)
}

func engineExists(e Engine, dir string) bool {
	switch e {
	case EnginePebble:
		return pebbleExists(dir)
	case EngineBadger:
		return badgerExists(dir)
	case EngineBolt:
		return boltExists(dir)
	}
	return false
}

// Open opens the store described by opts. With EngineAuto the engine is
// detected from the directory contents; a new store gets DefaultEngine.
func Open(opts Options) (Store, error) {
	if opts.Logger == nil {
		opts.Logger = logrus.New()
	}

	engine := opts.Engine
	if engine == "" || engine == EngineAuto {
		detected, err := Detect(opts.Path)
		switch {
		case err == nil:
			engine = detected
		case opts.Create:
			engine = DefaultEngine
		default:
			return nil, err
		}
	}

	opts.Logger.WithFields(logrus.Fields{
		"path":   opts.Path,
		"engine": engine,
		"create": opts.Create,
	}).Debug("Opening store")

	switch engine {
	case EnginePebble:
		return NewPebbleStore(PebbleOptions{Path: opts.Path, Create: opts.Create, Logger: opts.Logger})
	case EngineBadger:
		return NewBadgerStore(BadgerOptions{Path: opts.Path, Create: opts.Create, SyncWrites: true, Logger: opts.Logger})
	case EngineBolt:
		return NewBoltStore(BoltOptions{Path: opts.Path, Create: opts.Create, Logger: opts.Logger})
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEngine, engine)
	}
}
