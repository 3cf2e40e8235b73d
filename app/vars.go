// Package app wires the imeseg CLI commands (train, predict) on top of
// github.com/gonuts/commander and github.com/gonuts/flag, using
// package-scoped flag variables.
package app

import (
	"runtime"

	"github.com/gonuts/commander"
	"github.com/gonuts/flag"
)

const numCPUsFlag = "cpus"

var cpus int

// AppCommands lists the top-level commands exposed by cmd/imeseg.
var AppCommands = []*commander.Command{
	TrainCmd(),
	PredictCmd(),
}

// AllCommands builds the root Commander, wrapping every command's Run
// with InitCommand so every command honors the -cpus flag.
func AllCommands() *commander.Commander {
	cmd := &commander.Commander{
		Name:     "imeseg",
		Commands: AppCommands,
		Flag:     *flag.NewFlagSet("imeseg", flag.ExitOnError),
	}
	for _, c := range cmd.Commands {
		run := c.Run
		c.Run = func(cmd *commander.Command, args []string) error {
			InitCommand()
			return run(cmd, args)
		}
		c.Flag.IntVar(&cpus, numCPUsFlag, 0, "Max CPUs to use (runtime.GOMAXPROCS); 0 = all")
	}
	return cmd
}

// InitCommand caps GOMAXPROCS at the requested CPU count.
func InitCommand() {
	maxCPUs := runtime.NumCPU()
	if cpus <= 0 || cpus > maxCPUs {
		cpus = maxCPUs
	}
	runtime.GOMAXPROCS(cpus)
}
