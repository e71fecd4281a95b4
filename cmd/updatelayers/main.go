// main.go
//
// Keeps GeoServer layers and the local layer registry in sync
// Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC
//
// This file is part of layersync.
// layersync is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the Free Software
// Foundation, either version 3 of the License, or (at your option) any later version.
// layersync is distributed in the hope that it will be useful, but WITHOUT ANY WARRANTY;
// without even the implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU Affero General Public License for more details.
// You should have received a copy of the GNU Affero General Public License along with layersync.
// If not, see <https://www.gnu.org/licenses/>.
// Additional terms under GNU AGPL version 3 section 7:
// a) The reasonable legal notice of original copyright and author attribution must be preserved
//    by including the string: "Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC"
//    in this material, copies, or source code of derived works.

// Command updatelayers reconciles the local layer registry with the layers
// GeoServer publishes. It is the command line twin of POST /api/layers/sync.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/localnerve/layersync/internal/app"
	"github.com/localnerve/layersync/internal/config"
	"github.com/localnerve/layersync/internal/logging"
	"github.com/localnerve/layersync/internal/services"
	"github.com/spf13/cobra"
)

type flags struct {
	envFile          string
	ignoreErrors     bool
	owner            string
	workspace        string
	store            string
	filter           string
	skipUnadvertised bool
	skipRegistered   bool
	removeDeleted    bool
	verbosity        int
}

func newRootCmd() *cobra.Command {
	f := &flags{}
	cmd := &cobra.Command{
		Use:   "updatelayers",
		Short: "Update the layer registry with the layers in GeoServer",
		Long: `updatelayers crawls the GeoServer catalog and creates or updates a
local layer record for every enabled, advertised resource. With
--remove-deleted it also removes local records whose resource is gone.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, f)
		},
	}

	fl := cmd.Flags()
	fl.StringVarP(&f.envFile, "env-file", "f", "", "path to a .env file to load first")
	fl.BoolVarP(&f.ignoreErrors, "ignore-errors", "i", false, "keep going when a layer fails")
	fl.StringVarP(&f.owner, "owner", "u", "", "user that owns the created layers")
	fl.StringVarP(&f.workspace, "workspace", "w", "", "only layers in this workspace")
	fl.StringVarP(&f.store, "store", "s", "", "only layers in this store")
	fl.StringVarP(&f.filter, "filter", "", "", "only layers whose name contains this text")
	fl.BoolVarP(&f.skipUnadvertised, "skip-unadvertised", "", false, "skip layers that are not advertised")
	fl.BoolVarP(&f.skipRegistered, "skip-registered", "", false, "skip layers that already have a local record")
	fl.BoolVarP(&f.removeDeleted, "remove-deleted", "", false, "remove local records of layers deleted from GeoServer")
	fl.IntVarP(&f.verbosity, "verbosity", "v", 1, "0 quiet, 1 progress, 2 progress and errors, 3 debug logging")
	return cmd
}

func run(cmd *cobra.Command, f *flags) error {
	if f.envFile != "" {
		if err := godotenv.Load(f.envFile); err != nil {
			return fmt.Errorf("failed to load %s: %w", f.envFile, err)
		}
	} else {
		_ = godotenv.Load()
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	level := cfg.LogLevel
	if f.verbosity >= 3 {
		level = "debug"
	}
	log := logging.Setup(level, cfg.LogFormat)

	a, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	opts := services.SyncOptions{
		IgnoreErrors:     f.ignoreErrors,
		Owner:            f.owner,
		Workspace:        f.workspace,
		Store:            f.store,
		Filter:           f.filter,
		SkipUnadvertised: f.skipUnadvertised,
		SkipRegistered:   f.skipRegistered,
		RemoveDeleted:    f.removeDeleted,
	}
	if f.verbosity > 0 {
		opts.Progress = func(item services.ItemStatus, index, total int) {
			fmt.Fprintf(out, "[%s] Layer %s (%d/%d)\n", item.Status, item.Name, index, total)
			if f.verbosity > 1 && item.Traceback != "" {
				fmt.Fprintln(out, item.Traceback)
			}
		}
	}

	report, err := a.Service.Reconcile(ctx, opts)
	if err != nil {
		log.WithError(err).Error("Layer update aborted")
		return err
	}

	if f.verbosity > 1 {
		for _, item := range report.Layers {
			if item.Status == services.StatusFailed {
				fmt.Fprintf(out, "\n%s\n%s\n", item.Name, item.Traceback)
			}
		}
	}
	if f.verbosity > 0 {
		fmt.Fprintf(out, "\n\nFinished processing %d layers in %.2f seconds.\n\n",
			len(report.Layers), report.DurationSeconds)
		fmt.Fprintf(out, "%d Created layers\n", report.Created)
		fmt.Fprintf(out, "%d Updated layers\n", report.Updated)
		fmt.Fprintf(out, "%d Failed layers\n", report.Failed)
		if f.removeDeleted {
			fmt.Fprintf(out, "%d Deleted layers\n", report.Deleted)
		}
		if n := len(report.Layers); n > 0 {
			fmt.Fprintf(out, "%.2f seconds per layer\n", report.DurationSeconds/float64(n))
		}
	}
	return nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
