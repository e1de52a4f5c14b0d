// Package executor implements the command interpreter of the transaction
// layer: it resolves inputs and type arguments, enforces the calling
// convention and borrow discipline, marshals calls into the external VM, and
// assembles the resulting object changeset.
package executor

import (
	"context"
	"time"

	"github.com/iotaledger/hive.go/log"
	"github.com/iotaledger/hive.go/runtime/options"

	"github.com/objectledger/exec-core/pkg/execution"
)

// Result is everything a finished or failed execution reports. Timings and
// LoadedObjects are populated even when execution fails partway; Changes and
// Events only on success.
type Result struct {
	Changes *execution.ObjectChanges
	Events  []execution.Event

	Timings       []execution.Timing
	LoadedObjects []*execution.ObjectRecord
}

// Executor interprets transactions against its collaborators. It is
// stateless across transactions; all per-transaction state lives in the
// execution context.
type Executor struct {
	vm       execution.VM
	verifier execution.Verifier
	objects  execution.ObjectStore
	packages execution.PackageStore
	gas      execution.GasCharger
	config   *execution.ProtocolConfig

	log.Logger
}

func WithProtocolConfig(config *execution.ProtocolConfig) options.Option[Executor] {
	return func(e *Executor) {
		e.config = config
	}
}

func WithGasCharger(gas execution.GasCharger) options.Option[Executor] {
	return func(e *Executor) {
		e.gas = gas
	}
}

func WithLogger(logger log.Logger) options.Option[Executor] {
	return func(e *Executor) {
		e.Logger = logger
	}
}

// New wires an executor to its collaborators. The default configuration is
// the current production one and the default gas charger charges nothing.
func New(vm execution.VM, verifier execution.Verifier, objects execution.ObjectStore, packages execution.PackageStore, opts ...options.Option[Executor]) *Executor {
	return options.Apply(&Executor{
		vm:       vm,
		verifier: verifier,
		objects:  objects,
		packages: packages,
		gas:      &freeGasCharger{},
		config:   execution.NewProtocolConfig(),
		Logger:   log.NewLogger().NewChildLogger("executor"),
	}, opts)
}

// Execute runs every command of the transaction in order. The first failing
// command aborts the transaction; the returned error carries the command
// index and the Result still reports per-command timings and the objects
// loaded so far.
func (e *Executor) Execute(ctx context.Context, tx *execution.Transaction, mode execution.Mode) (*Result, error) {
	ec, err := newExecContext(ctx, e, tx, mode)
	if err != nil {
		return &Result{}, err
	}

	result := &Result{}
	for i, cmd := range tx.Commands {
		start := time.Now()
		err := ec.executeCommand(cmd)
		if err == nil {
			err = ec.arena.EndCommand()
		}
		elapsed := time.Since(start)

		if err != nil {
			result.Timings = append(result.Timings, execution.Timing{Kind: execution.TimingAbort, Duration: elapsed})
			result.LoadedObjects = ec.loadedObjects
			e.LogDebug("command failed", "index", i, "command", execution.Name(cmd), "err", err)

			return result, execution.WithCommandIndex(err, i)
		}

		result.Timings = append(result.Timings, execution.Timing{Kind: execution.TimingSuccess, Duration: elapsed})
	}

	changes, err := ec.finish()
	if err != nil {
		result.LoadedObjects = ec.loadedObjects

		return result, err
	}

	result.Changes = changes
	result.Events = ec.events
	result.LoadedObjects = ec.loadedObjects

	return result, nil
}

// freeGasCharger is the default charger: everything is free.
type freeGasCharger struct{}

func (*freeGasCharger) ChargePublish(int) error { return nil }
func (*freeGasCharger) ChargeUpgrade(int) error { return nil }
