// Copyright 2024 The beaconsync Authors
// This file is part of beaconsync.
//
// beaconsync is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// beaconsync is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with beaconsync. If not, see <http://www.gnu.org/licenses/>.


// Command beaconsync is the CLI entrypoint wiring configuration, logging
// and the persistent store around the beacon sync engine in
// eth/downloader, following go-ethereum's own cmd/geth convention of a
// urfave/cli/v2 App plus a naoina/toml config file merged with flags.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/ethbeacon/beaconsync/eth/downloader"
	"github.com/ethbeacon/beaconsync/ethdb/pebble"
	"github.com/ethbeacon/beaconsync/log"
)

var (
	dataDirFlag = &cli.StringFlag{
		Name:  "datadir",
		Usage: "Directory for the persistent key-value store",
		Value: "./beaconsync-data",
	}
	configFlag = &cli.StringFlag{
		Name:  "config",
		Usage: "TOML configuration file overriding the tunable defaults",
	}
	verbosityFlag = &cli.IntFlag{
		Name:  "verbosity",
		Usage: "Log verbosity (0=crit ... 5=trace)",
		Value: 3,
	}
	nFetchHeadersBatchFlag = &cli.IntFlag{
		Name:  "sync.headers.batch",
		Usage: "Per-peer header reservation drawn from the unprocessed range set",
	}
	nFetchBodiesBatchFlag = &cli.IntFlag{
		Name:  "sync.bodies.batch",
		Usage: "Per-peer body reservation drawn from the unprocessed range set",
	}
)

func main() {
	app := &cli.App{
		Name:  "beaconsync",
		Usage: "standalone beacon-chain-directed header/body sync engine",
		Flags: []cli.Flag{dataDirFlag, configFlag, verbosityFlag, nFetchHeadersBatchFlag, nFetchBodiesBatchFlag},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx *cli.Context) error {
	setupLogging(ctx.Int(verbosityFlag.Name))

	cfg := downloader.DefaultConfig
	if path := ctx.String(configFlag.Name); path != "" {
		loaded, err := loadConfig(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		cfg = loaded
	}
	if v := ctx.Int(nFetchHeadersBatchFlag.Name); v != 0 {
		cfg.NFetchHeadersBatch = v
	}
	if v := ctx.Int(nFetchBodiesBatchFlag.Name); v != 0 {
		cfg.NFetchBodiesBatch = v
	}

	db, err := pebble.Open(ctx.String(dataDirFlag.Name))
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	fc := newStubForkChoice(db)
	wire := newStubWire()

	syncer := downloader.NewSyncer(fc, wire, cfg)
	syncer.Start(ctx.Context)
	defer syncer.Stop()

	log.Info("beaconsync started", "datadir", ctx.String(dataDirFlag.Name))
	<-ctx.Context.Done()
	return nil
}

func setupLogging(verbosity int) {
	lvl := log.LevelInfo
	switch {
	case verbosity <= 0:
		lvl = log.LevelCrit
	case verbosity == 1:
		lvl = log.LevelError
	case verbosity == 2:
		lvl = log.LevelWarn
	case verbosity == 3:
		lvl = log.LevelInfo
	case verbosity == 4:
		lvl = log.LevelDebug
	default:
		lvl = log.LevelTrace
	}
	log.SetDefault(log.NewLogger(log.NewTerminalHandlerWithLevel(os.Stderr, lvl, true)))
}
