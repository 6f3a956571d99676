package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/pelletier/go-toml/v2"

	"github.com/piwi3910/BarCut/internal/model"
	"github.com/piwi3910/BarCut/internal/project"
)

func runPreset(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageErrorf("preset: expected list, save or delete")
	}
	path := project.DefaultPresetPath()
	presets, err := project.LoadPresets(path)
	if err != nil {
		return err
	}

	switch args[0] {
	case "list":
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tSTOCK\tPOLICY\tPIECES\tDESCRIPTION")
		for _, p := range presets.Presets {
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%d\t%s\n",
				p.ID, p.Name, p.Settings.StockLength, p.Settings.DemandPolicy, len(p.Pieces), p.Description)
		}
		return w.Flush()

	case "save":
		jf := newJobFlags("preset save")
		description := jf.fs.String("description", "", "preset description")
		if err := jf.fs.Parse(args[1:]); err != nil {
			return err
		}
		if jf.name == "" {
			return usageErrorf("preset save: -name is required")
		}
		job, err := jf.load(false)
		if err != nil {
			return err
		}
		if old := presets.FindByName(jf.name); old != nil {
			presets.Remove(old.ID)
		}
		presets.Add(model.NewSettingsPreset(jf.name, *description, job.Pieces, job.Settings))
		if err := project.SavePresets(path, presets); err != nil {
			return err
		}
		fmt.Printf("saved preset %q\n", jf.name)
		return nil

	case "delete":
		if len(args) != 2 {
			return usageErrorf("preset delete: expected a preset name")
		}
		p := presets.FindByName(args[1])
		if p == nil {
			return usageErrorf("no preset named %q", args[1])
		}
		presets.Remove(p.ID)
		return project.SavePresets(path, presets)

	default:
		return usageErrorf("preset: unknown action %q", args[0])
	}
}

func runBackup(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("backup", flag.ContinueOnError)
	configPath := fs.String("config", project.DefaultConfigPath(), "application config file (TOML)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return usageErrorf("backup: expected export|import <file>")
	}
	action, file := fs.Arg(0), fs.Arg(1)
	presetPath := project.DefaultPresetPath()

	switch action {
	case "export":
		cfg, err := project.LoadAppConfig(*configPath)
		if err != nil {
			return err
		}
		presets, err := project.LoadPresets(presetPath)
		if err != nil {
			return err
		}
		if err := project.ExportAllData(file, cfg, presets); err != nil {
			return err
		}
		fmt.Printf("exported config and %d presets to %s\n", len(presets.Presets), file)
		return nil

	case "import":
		backup, err := project.ImportAllData(file)
		if err != nil {
			return err
		}
		if err := project.SaveAppConfig(*configPath, backup.Config); err != nil {
			return err
		}
		if err := project.SavePresets(presetPath, backup.Presets); err != nil {
			return err
		}
		fmt.Printf("imported config and %d presets from %s (backup %s)\n",
			len(backup.Presets.Presets), file, backup.CreatedAt)
		return nil

	default:
		return usageErrorf("backup: unknown action %q", action)
	}
}

func runConfig(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	configPath := fs.String("config", project.DefaultConfigPath(), "application config file (TOML)")
	initFile := fs.Bool("init", false, "write the default config if the file does not exist")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *initFile {
		if _, err := os.Stat(*configPath); err == nil {
			return usageErrorf("%s already exists", *configPath)
		}
		if err := project.SaveAppConfig(*configPath, model.DefaultAppConfig()); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", *configPath)
		return nil
	}

	cfg, err := project.LoadAppConfig(*configPath)
	if err != nil {
		return err
	}
	project.ApplyEnvOverrides(&cfg)
	fmt.Printf("# %s\n", *configPath)
	return toml.NewEncoder(os.Stdout).Encode(cfg)
}
