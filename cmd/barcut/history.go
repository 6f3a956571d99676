package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"text/tabwriter"
	"time"

	"github.com/golang/glog"

	"github.com/piwi3910/BarCut/internal/project"
	"github.com/piwi3910/BarCut/internal/server"
	"github.com/piwi3910/BarCut/internal/store"
)

func runRuns(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	configPath := fs.String("config", project.DefaultConfigPath(), "application config file (TOML)")
	dbPath := fs.String("db", "", "run history database (overrides config)")
	limit := fs.Int("limit", 20, "number of runs to list (0 = all)")
	show := fs.String("show", "", "print the full result of this run as JSON")
	del := fs.String("delete", "", "delete this run")
	if err := fs.Parse(args); err != nil {
		return err
	}

	st, err := openStore(*configPath, *dbPath)
	if err != nil {
		return err
	}
	if st == nil {
		return usageErrorf("no run history configured: pass -db or set db_path in %s", *configPath)
	}
	defer st.Close()

	switch {
	case *show != "":
		result, err := st.GetRun(*show)
		if err != nil {
			return err
		}
		return writeJSON(os.Stdout, result)
	case *del != "":
		if err := st.DeleteRun(*del); err != nil {
			return err
		}
		fmt.Printf("deleted run %s\n", *del)
		return nil
	}

	runs, err := st.ListRuns(*limit)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCREATED\tJOB\tSTOCK\tPOLICY\tINITIAL\tBARS\tPATTERNS\tWASTE\tSTATUS")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%d\t%d\t%d\t%d\t%s\n",
			r.ID, r.CreatedAt.Local().Format(time.DateTime), r.JobName, r.StockLength, r.DemandPolicy,
			r.InitialBars, r.BestBars, r.BestPatterns, r.BestWaste, r.Status)
	}
	return w.Flush()
}

func runServe(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	configPath := fs.String("config", project.DefaultConfigPath(), "application config file (TOML)")
	addr := fs.String("addr", "", "listen address (overrides config)")
	dbPath := fs.String("db", "", "run history database (overrides config)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := project.LoadAppConfig(*configPath)
	if err != nil {
		return err
	}
	project.ApplyEnvOverrides(&cfg)
	if *addr != "" {
		cfg.ListenAddr = *addr
	}

	st, err := openStore(*configPath, *dbPath)
	if err != nil {
		return err
	}
	if st == nil {
		glog.Warning("run history disabled: no database configured")
	} else {
		defer st.Close()
	}

	srv := &http.Server{Addr: cfg.ListenAddr, Handler: server.NewServer(cfg, st).Handler()}
	errCh := make(chan error, 1)
	go func() {
		glog.Infof("serving on %s", cfg.ListenAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	glog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// openStore opens the history database named by dbPath, or by the config
// file when dbPath is empty. It returns nil when neither names one.
func openStore(configPath, dbPath string) (*store.Store, error) {
	if dbPath == "" {
		cfg, err := project.LoadAppConfig(configPath)
		if err != nil {
			return nil, err
		}
		project.ApplyEnvOverrides(&cfg)
		dbPath = cfg.DBPath
	}
	if dbPath == "" {
		return nil, nil
	}
	return store.New(dbPath)
}
