package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/rigado/uribeacon"
	"github.com/rigado/uribeacon/linux/bluez"
	"github.com/rigado/uribeacon/linux/hci"
	"github.com/urfave/cli"
)

var advertiseFlags = []cli.Flag{
	cli.StringFlag{
		Name:   "backend, b",
		Value:  "hci",
		Usage:  "advertising backend, hci or bluez",
		EnvVar: "URIBEACON_BACKEND",
	},
	cli.IntFlag{
		Name:   "device, d",
		Usage:  "hci device index",
		EnvVar: "URIBEACON_DEVICE",
	},
	cli.StringFlag{
		Name:   "uart",
		Usage:  "use an H4 controller on this serial port instead of an hci device",
		EnvVar: "URIBEACON_UART",
	},
	cli.UintFlag{
		Name:  "baud",
		Value: 1000000,
		Usage: "uart baud rate",
	},
	cli.StringFlag{
		Name:   "h4-socket",
		Usage:  "use an H4 controller bridged to this TCP address",
		EnvVar: "URIBEACON_H4_SOCKET",
	},
	cli.DurationFlag{
		Name:  "h4-timeout",
		Value: 2 * time.Second,
		Usage: "dial and i/o timeout of the h4 socket",
	},
	cli.DurationFlag{
		Name:  "duration, t",
		Usage: "advertising duration, 0 for until interrupted",
	},
	cli.BoolFlag{
		Name:   "yes, y",
		Usage:  "enable bluetooth without asking",
		EnvVar: "URIBEACON_YES",
	},
}

func main() {
	app := cli.NewApp()
	app.Name = "uribeacon"
	app.Usage = "advertise http://www.eff.org as a URI Beacon"
	app.Version = "0.1.0"

	app.Flags = append([]cli.Flag{
		cli.StringFlag{
			Name:   "log-level",
			Value:  "info",
			Usage:  "panic, fatal, error, warn, info, debug or trace",
			EnvVar: "URIBEACON_LOG_LEVEL",
		},
		cli.BoolFlag{
			Name:  "debug",
			Usage: "log everything, including hci traffic",
		},
	}, advertiseFlags...)

	app.Before = func(c *cli.Context) error {
		if c.Bool("debug") {
			uribeacon.SetLogLevelMax()
			return nil
		}
		return uribeacon.SetLogLevel(c.String("log-level"))
	}

	app.Action = advertise
	app.Commands = []cli.Command{
		{
			Name:   "advertise",
			Usage:  "advertise the beacon (default)",
			Flags:  advertiseFlags,
			Action: advertise,
		},
		{
			Name:   "payload",
			Usage:  "print the beacon payload and its advertising data as JSON",
			Action: printPayload,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// config is the advertise flags, from the subcommand when given there and
// from the application otherwise.
type config struct {
	backend   string
	device    int
	uart      string
	baud      uint
	h4socket  string
	h4timeout time.Duration
	duration  time.Duration
	yes       bool
}

// configFrom reads the advertise flags. Flags are registered on both the app
// and the subcommand, and a flag set on the subcommand wins.
func configFrom(c *cli.Context) config {
	local := func(name string) bool { return c.IsSet(name) || !c.GlobalIsSet(name) }

	cfg := config{
		backend:   c.GlobalString("backend"),
		device:    c.GlobalInt("device"),
		uart:      c.GlobalString("uart"),
		baud:      c.GlobalUint("baud"),
		h4socket:  c.GlobalString("h4-socket"),
		h4timeout: c.GlobalDuration("h4-timeout"),
		duration:  c.GlobalDuration("duration"),
		yes:       c.GlobalBool("yes"),
	}
	if local("backend") {
		cfg.backend = c.String("backend")
	}
	if local("device") {
		cfg.device = c.Int("device")
	}
	if local("uart") {
		cfg.uart = c.String("uart")
	}
	if local("baud") {
		cfg.baud = c.Uint("baud")
	}
	if local("h4-socket") {
		cfg.h4socket = c.String("h4-socket")
	}
	if local("h4-timeout") {
		cfg.h4timeout = c.Duration("h4-timeout")
	}
	if local("duration") {
		cfg.duration = c.Duration("duration")
	}
	if local("yes") {
		cfg.yes = c.Bool("yes")
	}
	return cfg
}

func advertise(c *cli.Context) error {
	cfg := configFrom(c)

	var prompter uribeacon.Prompter = uribeacon.NewTerminalPrompter(os.Stdin, os.Stderr)
	if cfg.yes {
		prompter = uribeacon.AutoPrompter(true)
	}

	resolve, err := resolver(cfg, prompter)
	if err != nil {
		return cli.NewExitError(err.Error(), 2)
	}

	var ctx context.Context
	var cancel context.CancelFunc
	if cfg.duration > 0 {
		fmt.Printf("Advertising for %s...\n", cfg.duration)
		ctx, cancel = context.WithTimeout(context.Background(), cfg.duration)
	} else {
		ctx, cancel = context.WithCancel(context.Background())
	}
	defer cancel()
	ctx = uribeacon.WithSigHandler(ctx, cancel)

	ctrl := uribeacon.NewController(resolve)
	return chkErr(ctrl.Run(ctx))
}

// resolver maps the flags onto a backend constructor.
func resolver(cfg config, prompter uribeacon.Prompter) (uribeacon.AdapterResolver, error) {
	opts := []uribeacon.Option{uribeacon.OptPrompter(prompter)}
	switch {
	case cfg.uart != "" && cfg.h4socket != "":
		return nil, fmt.Errorf("--uart and --h4-socket are exclusive")
	case cfg.uart != "":
		opts = append(opts, uribeacon.OptTransportH4Uart(cfg.uart, cfg.baud))
	case cfg.h4socket != "":
		opts = append(opts, uribeacon.OptTransportH4Socket(cfg.h4socket, cfg.h4timeout))
	default:
		opts = append(opts, uribeacon.OptDeviceID(cfg.device))
	}

	switch cfg.backend {
	case "hci":
		return func() (uribeacon.Adapter, error) {
			a, err := hci.NewAdapter(opts...)
			if err != nil {
				return nil, err
			}
			return a, nil
		}, nil
	case "bluez":
		return func() (uribeacon.Adapter, error) {
			a, err := bluez.NewAdapter(opts...)
			if err != nil {
				return nil, err
			}
			return a, nil
		}, nil
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.backend)
	}
}

func chkErr(err error) error {
	switch errors.Cause(err) {
	case nil:
		return nil
	case context.DeadlineExceeded, context.Canceled:
		fmt.Println("done")
		return nil
	case uribeacon.ErrUnsupportedHardware:
		return cli.NewExitError("Bluetooth error: this device does not support Bluetooth", 1)
	case uribeacon.ErrBluetoothDisabledDeclined:
		return cli.NewExitError("", 1)
	default:
		return cli.NewExitError(err.Error(), 1)
	}
}
