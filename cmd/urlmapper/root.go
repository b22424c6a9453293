package main

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"urlmapper/internal/config"
	"urlmapper/internal/logger"
	"urlmapper/internal/notify"
	"urlmapper/pkg/api"
	"urlmapper/pkg/model"

	"github.com/spf13/cobra"
)

type app struct {
	cfgFile string
	dsn     string
	level   string
	events  bool

	svc    api.Service
	closer io.Closer
	log    logger.Logger
}

func newRoot() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "urlmapper",
		Short:         "Manage URL rewrite rules",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&a.cfgFile, "config", "c", "", "yaml config file")
	root.PersistentFlags().StringVar(&a.dsn, "db", "", "sqlite database, overrides sqlite.dsn")
	root.PersistentFlags().StringVar(&a.level, "log-level", "", "log level, overrides log.level")
	root.PersistentFlags().BoolVar(&a.events, "events", false, "print change events as JSON lines")

	root.AddCommand(a.setCmd(), a.rmCmd(), a.getCmd(), a.lsCmd(), a.countCmd())
	return root
}

func (a *app) open(cmd *cobra.Command) error {
	cfg, err := config.Load(a.cfgFile)
	if err != nil {
		return err
	}
	if a.dsn != "" {
		cfg.Sqlite.Dsn = a.dsn
	}
	if a.level != "" {
		cfg.Log.Level = a.level
	}

	a.log, a.closer = logger.New(logger.Options{
		Level:      cfg.Log.Level,
		Writer:     cfg.Log.Writer,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
		Console:    cmd.ErrOrStderr(),
	})

	var n model.Notifier
	if a.events {
		n = notify.Writer(cmd.OutOrStdout(), a.log)
	}
	a.svc, err = api.NewService(cmd.Context(), cfg, a.log, n)
	return err
}

// runE 在命令执行前打开服务，结束后无论成败都关闭
func (a *app) runE(fn func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		if err := a.open(cmd); err != nil {
			return errors.Join(err, a.close())
		}
		defer func() { err = errors.Join(err, a.close()) }()
		return fn(cmd, args)
	}
}

func (a *app) close() error {
	var err error
	if a.svc != nil {
		err = a.svc.Close()
		a.svc = nil
	}
	if a.closer != nil {
		_ = a.closer.Close()
		a.closer = nil
	}
	return err
}

func (a *app) setCmd() *cobra.Command {
	var local, inactive bool
	cmd := &cobra.Command{
		Use:   "set <url> <newUrl>",
		Short: "Add or replace a rule",
		Args:  cobra.ExactArgs(2),
		RunE: a.runE(func(_ *cobra.Command, args []string) error {
			return a.svc.Set(args[0], args[1], local, !inactive)
		}),
	}
	cmd.Flags().BoolVar(&local, "local", false, "newUrl is a local file")
	cmd.Flags().BoolVar(&inactive, "inactive", false, "store the rule disabled")
	return cmd
}

func (a *app) rmCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "rm <url>",
		Aliases: []string{"remove"},
		Short:   "Remove a rule",
		Args:    cobra.ExactArgs(1),
		RunE: a.runE(func(_ *cobra.Command, args []string) error {
			a.svc.Remove(args[0])
			return nil
		}),
	}
}

func (a *app) getCmd() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "get <url>",
		Short: "Resolve a request URL to its best matching rule",
		Args:  cobra.ExactArgs(1),
		RunE: a.runE(func(cmd *cobra.Command, args []string) error {
			if all {
				printMappings(cmd.OutOrStdout(), a.svc.Candidates(args[0]))
				return nil
			}
			m, ok := a.svc.Get(args[0])
			if !ok {
				return fmt.Errorf("no rule matches %s", args[0])
			}
			printMappings(cmd.OutOrStdout(), []model.Mapping{m})
			return nil
		}),
	}
	cmd.Flags().BoolVar(&all, "all", false, "list every matching rule in rank order")
	return cmd
}

func (a *app) lsCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List rules in insertion order",
		Args:    cobra.NoArgs,
		RunE: a.runE(func(cmd *cobra.Command, _ []string) error {
			printMappings(cmd.OutOrStdout(), a.svc.Mappings())
			return nil
		}),
	}
}

func (a *app) countCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "count",
		Short: "Print the number of rules",
		Args:  cobra.NoArgs,
		RunE: a.runE(func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), a.svc.Count())
			return err
		}),
	}
}

func printMappings(w io.Writer, ms []model.Mapping) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "URL\tNEW URL\tLOCAL\tACTIVE")
	for _, m := range ms {
		fmt.Fprintf(tw, "%s\t%s\t%t\t%t\n", m.URL, m.NewURL, m.IsLocal, m.IsActive)
	}
	_ = tw.Flush()
}
