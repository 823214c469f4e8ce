// Copyright 2024 Northern.tech AS
//
//    Licensed under the Apache License, Version 2.0 (the "License");
//    you may not use this file except in compliance with the License.
//    You may obtain a copy of the License at
//
//        http://www.apache.org/licenses/LICENSE-2.0
//
//    Unless required by applicable law or agreed to in writing, software
//    distributed under the License is distributed on an "AS IS" BASIS,
//    WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//    See the License for the specific language governing permissions and
//    limitations under the License.

// Command caterpillar is the daemon entrypoint: it loads configuration,
// connects the external services (block-device enumerator, installer,
// reboot authority), wires the session state machine to its D-Bus façade,
// and runs until signalled.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/urfave/cli/v2"

	"github.com/dvzrv/caterpillar/autorun"
	"github.com/dvzrv/caterpillar/blockdevice"
	"github.com/dvzrv/caterpillar/conf"
	"github.com/dvzrv/caterpillar/facade"
	"github.com/dvzrv/caterpillar/installer"
	"github.com/dvzrv/caterpillar/internal/log"
	"github.com/dvzrv/caterpillar/reboot"
	"github.com/dvzrv/caterpillar/session"
)

var logger = log.WithModule("main")

func main() {
	app := &cli.App{
		Name:  "caterpillar",
		Usage: "detect, validate and install firmware bundles from removable media",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Value: conf.DefaultConfFile,
				Usage: "path to the caterpillar configuration file",
			},
			&cli.BoolFlag{
				Name:  "standalone",
				Usage: "use the local sysfs/exec adapters instead of the UDisks2/RAUC system-bus services",
			},
			&cli.StringFlag{
				Name:  "installer-binary",
				Value: "rauc",
				Usage: "installer binary invoked in --standalone mode",
			},
			&cli.DurationFlag{
				Name:  "installer-timeout",
				Value: 10 * time.Minute,
				Usage: "grace period before an in-flight install is killed in --standalone mode",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Value: "info",
				Usage: "panic, fatal, error, warn, info, debug or trace",
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	if err := log.SetLevel(c.String("log-level")); err != nil {
		return cli.Exit(fmt.Sprintf("invalid log-level: %s", err), 2)
	}

	configPath := c.String("config")
	if _, err := os.Stat(configPath); os.IsNotExist(err) && configPath == conf.DefaultConfFile {
		configPath = ""
	}
	cfg, err := conf.Load(configPath)
	if err != nil {
		return cli.Exit(fmt.Sprintf("invalid configuration: %s", err), 2)
	}

	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return cli.Exit(fmt.Sprintf("connecting to system bus: %s", err), 3)
	}
	defer conn.Close()

	bd, inst := buildClients(c, conn, cfg)

	rb, err := reboot.NewClient()
	if err != nil {
		return cli.Exit(fmt.Sprintf("building reboot client: %s", err), 3)
	}

	svc, err := facade.NewService(conn)
	if err != nil {
		return cli.Exit(fmt.Sprintf("registering facade: %s", err), 3)
	}

	machine := session.NewMachine(bd, inst, rb, svc, cfg.OverrideDir, cfg.BundleExtension)
	svc.Attach(machine)
	machine.Run()

	if cfg.Autorun {
		go autorun.Drive(machine)
	}

	logger.Info("caterpillar running")
	waitForSignal()
	logger.Info("caterpillar shutting down")
	return nil
}

func buildClients(c *cli.Context, conn *dbus.Conn, cfg *conf.Config) (blockdevice.Client, installer.Client) {
	if c.Bool("standalone") {
		logger.Info("standalone mode: using sysfs block-device and exec installer adapters")
		return blockdevice.NewSysfsClient(cfg.DeviceRegex),
			installer.NewExecClient(c.String("installer-binary"), c.Duration("installer-timeout"))
	}
	return blockdevice.NewDBusClient(conn, cfg.DeviceRegex),
		installer.NewDBusClient(conn)
}

func waitForSignal() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
}
