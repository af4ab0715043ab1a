package main

import (
	"context"
	"flag"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/rigado/uribeacon"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli"
)

func TestChkErr(t *testing.T) {
	assert.NoError(t, chkErr(nil))
	assert.NoError(t, chkErr(errors.Wrap(context.Canceled, "run")))
	assert.NoError(t, chkErr(context.DeadlineExceeded))

	err := chkErr(errors.Wrap(uribeacon.ErrUnsupportedHardware, "resolve adapter"))
	require.Implements(t, (*cli.ExitCoder)(nil), err)
	assert.Equal(t, 1, err.(cli.ExitCoder).ExitCode())
	assert.Equal(t, "Bluetooth error: this device does not support Bluetooth", err.Error())

	err = chkErr(uribeacon.ErrBluetoothDisabledDeclined)
	assert.Equal(t, 1, err.(cli.ExitCoder).ExitCode())
	assert.Empty(t, err.Error())
}

func flagSet(t *testing.T, args ...string) *flag.FlagSet {
	t.Helper()
	set := flag.NewFlagSet("test", flag.ContinueOnError)
	for _, f := range advertiseFlags {
		f.Apply(set)
	}
	require.NoError(t, set.Parse(args))
	return set
}

// commandContext is the context of the advertise subcommand run with args
// after the application's own globals.
func commandContext(t *testing.T, globals []string, args ...string) *cli.Context {
	t.Helper()
	app := cli.NewApp()
	parent := cli.NewContext(app, flagSet(t, globals...), nil)
	return cli.NewContext(app, flagSet(t, args...), parent)
}

func TestConfigFallsBackToGlobals(t *testing.T) {
	cfg := configFrom(commandContext(t, []string{"--yes", "--backend", "bluez", "--device", "2"}))
	assert.True(t, cfg.yes)
	assert.Equal(t, "bluez", cfg.backend)
	assert.Equal(t, 2, cfg.device)
	assert.Equal(t, uint(1000000), cfg.baud)

	// the subcommand's own flags win
	cfg = configFrom(commandContext(t, []string{"--backend", "bluez"}, "--backend", "hci", "--h4-socket", "localhost:9000"))
	assert.Equal(t, "hci", cfg.backend)
	assert.Equal(t, "localhost:9000", cfg.h4socket)
	assert.Equal(t, 2*time.Second, cfg.h4timeout)

	// run without a subcommand
	app := cli.NewApp()
	cfg = configFrom(cli.NewContext(app, flagSet(t, "--yes", "--duration", "5s"), nil))
	assert.True(t, cfg.yes)
	assert.Equal(t, 5*time.Second, cfg.duration)
	assert.Equal(t, "hci", cfg.backend)
}

func TestResolverBackends(t *testing.T) {
	for _, b := range []string{"hci", "bluez"} {
		r, err := resolver(config{backend: b}, uribeacon.AutoPrompter(false))
		require.NoError(t, err, b)
		assert.NotNil(t, r, b)
	}

	_, err := resolver(config{backend: "corebluetooth"}, uribeacon.AutoPrompter(false))
	assert.Error(t, err)

	_, err = resolver(config{backend: "hci", uart: "/dev/ttyUSB0", h4socket: "localhost:9000"}, uribeacon.AutoPrompter(false))
	assert.Error(t, err)
}
