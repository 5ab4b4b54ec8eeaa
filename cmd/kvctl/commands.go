package main

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/maxiofs/kvctl/internal/codec"
	"github.com/maxiofs/kvctl/internal/config"
	"github.com/maxiofs/kvctl/internal/kv"
	"github.com/maxiofs/kvctl/internal/metrics"
	"github.com/maxiofs/kvctl/internal/pattern"
	"github.com/maxiofs/kvctl/internal/render"
	"github.com/maxiofs/kvctl/internal/scan"
	"github.com/maxiofs/kvctl/internal/store"
)

func (a *app) getCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Print the value stored under key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, kv.Invocation{Command: kv.CommandGet, Key: args[0]}, render.FormatTable)
		},
	}
}

func (a *app) putCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "put <key> <value>",
		Aliases: []string{kv.CommandSet},
		Short:   "Store value under key, creating the store if needed",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, kv.Invocation{Command: kv.CommandPut, Key: args[0], Value: args[1]}, render.FormatTable)
		},
	}
}

func (a *app) delCommand() *cobra.Command {
	var byPattern bool

	cmd := &cobra.Command{
		Use:   "del <key>",
		Short: "Delete a key, or every key matching a pattern",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if byPattern {
				if _, err := pattern.Compile(args[0]); err != nil {
					return err
				}
			}
			return a.run(cmd, kv.Invocation{Command: kv.CommandDel, Key: args[0], Pattern: byPattern}, render.FormatTable)
		},
	}
	cmd.Flags().BoolVarP(&byPattern, "pattern", "p", false, "Treat <key> as a regular expression and delete every matching key")
	return cmd
}

func (a *app) listCommand() *cobra.Command {
	var (
		opts       scan.Options
		rawPattern string
		limit      int
		asJSON     bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List keys and values in key order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("limit") {
				opts.Limit = &limit
			}
			if rawPattern != "" {
				m, err := pattern.Compile(rawPattern)
				if err != nil {
					return err
				}
				opts.Pattern = m
			}
			q, err := scan.NewQuery(opts)
			if err != nil {
				return err
			}

			format := render.FormatTable
			if asJSON {
				format = render.FormatJSON
			}
			return a.run(cmd, kv.Invocation{Command: kv.CommandList, Query: q}, format)
		},
	}

	cmd.Flags().BoolVarP(&opts.All, "all", "a", false, "List every entry, ignoring the limit")
	cmd.Flags().StringVarP(&rawPattern, "pattern", "p", "", "Only list keys matching this regular expression")
	cmd.Flags().IntVar(&limit, "limit", scan.DefaultLimit, "Maximum number of entries to list")
	cmd.Flags().IntVar(&opts.Offset, "offset", 0, "Number of scanned entries to skip")
	cmd.Flags().BoolVar(&opts.Reverse, "reverse", false, "Reverse the listed page")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print key/value pairs as JSON")
	cmd.Flags().BoolVarP(&opts.OnlyKeys, "only-keys", "k", false, "Print keys only")
	cmd.Flags().BoolVarP(&opts.OnlyValues, "only-values", "v", false, "Print values only")
	cmd.MarkFlagsMutuallyExclusive("all", "limit")
	cmd.MarkFlagsMutuallyExclusive("only-keys", "only-values")

	return cmd
}

func (a *app) copyCommand() *cobra.Command {
	var (
		to       string
		toEngine string
	)

	cmd := &cobra.Command{
		Use:   "copy",
		Short: "Copy every key into a new store, optionally of another engine",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := store.ParseEngine(toEngine)
			if err != nil {
				return err
			}

			sess, err := a.openSession(cmd, false)
			if err != nil {
				return err
			}
			defer sess.close()

			start := time.Now()
			copied, err := store.CopyTo(cmd.Context(), sess.store, store.CopyOptions{
				Path:   to,
				Engine: engine,
				Logger: sess.logger,
			})
			status := metrics.StatusSuccess
			if err != nil {
				status = metrics.StatusFailure
			}
			sess.metrics.RecordOperation("copy", status, time.Since(start))
			sess.metrics.RecordKeys("copy", int(copied))
			sess.flushMetrics()
			if err != nil {
				return err
			}

			fmt.Fprintf(a.out, "copied %d keys to %s\n", copied, to)
			return nil
		},
	}

	cmd.Flags().StringVar(&to, "to", "", "Destination store directory")
	cmd.Flags().StringVar(&toEngine, "to-engine", "auto", "Destination engine (auto keeps the source engine)")
	_ = cmd.MarkFlagRequired("to")

	return cmd
}

// run executes one store command and prints its outcome.
func (a *app) run(cmd *cobra.Command, inv kv.Invocation, format render.Format) error {
	sess, err := a.openSession(cmd, kv.IsWriteCommand(inv.Command))
	if err != nil || sess == nil {
		return err
	}
	defer sess.close()

	c, err := codec.Lookup(sess.cfg.Encoding)
	if err != nil {
		return err
	}

	m, err := kv.NewManager(kv.Options{
		Store:   sess.store,
		Codec:   c,
		Logger:  sess.logger,
		Metrics: sess.metrics,
	})
	if err != nil {
		return err
	}

	out, err := kv.Dispatch(cmd.Context(), m, inv)
	sess.flushMetrics()
	if err != nil {
		return err
	}

	switch out.Command {
	case kv.CommandGet:
		_, err = fmt.Fprintln(a.out, out.Value)
	case kv.CommandList:
		err = render.Result(a.out, out.Result, format)
	}
	return err
}

// session is a loaded configuration together with the store it names.
type session struct {
	cfg     *config.Config
	store   store.Store
	logger  *logrus.Logger
	metrics metrics.Recorder
}

// openSession loads configuration and opens the store. When the store is
// missing, write commands may create it after confirmation; a declined
// confirmation returns a nil session and no error.
func (a *app) openSession(cmd *cobra.Command, write bool) (*session, error) {
	cfg, err := config.Load(cmd)
	if err != nil {
		return nil, err
	}

	setupLogging(cfg.LogLevel)
	logger := logrus.StandardLogger()

	engine, err := store.ParseEngine(cfg.Engine)
	if err != nil {
		return nil, err
	}

	create := false
	if !store.Exists(cfg.DB, engine) {
		if detected, err := store.Detect(cfg.DB); err == nil {
			return nil, fmt.Errorf("store at %s uses engine %s, not %s", cfg.DB, detected, engine)
		}
		if !write {
			return nil, fmt.Errorf("%w: %s", store.ErrStoreNotFound, cfg.DB)
		}

		ok, err := a.confirmCreate(cfg)
		if err != nil {
			return nil, err
		}
		if !ok {
			logger.WithField("db", cfg.DB).Warn("Store does not exist and was not created; use --yes to create it")
			return nil, nil
		}
		create = true
	}

	s, err := store.Open(store.Options{
		Path:   cfg.DB,
		Engine: engine,
		Create: create,
		Logger: logger,
	})
	if err != nil {
		return nil, err
	}

	return &session{
		cfg:     cfg,
		store:   s,
		logger:  logger,
		metrics: metrics.NewRecorder(cfg.MetricsFile != ""),
	}, nil
}

func (a *app) confirmCreate(cfg *config.Config) (bool, error) {
	if cfg.AssumeYes {
		return true, nil
	}
	if !a.interactive() {
		return false, nil
	}
	return confirm(a.in, a.out, "Store does not exist, create?", true)
}

func (s *session) flushMetrics() {
	path := s.cfg.MetricsFile
	if path == "" {
		return
	}
	if err := s.metrics.WriteTextfile(path); err != nil {
		s.logger.WithError(err).WithField("path", path).Warn("Failed to write metrics textfile")
	}
}

func (s *session) close() {
	if err := s.store.Close(); err != nil {
		s.logger.WithError(err).Error("Failed to close store")
	}
}
