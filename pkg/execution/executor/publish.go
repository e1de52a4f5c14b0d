package executor

import (
	"bytes"

	"github.com/iotaledger/hive.go/ierrors"

	"github.com/objectledger/exec-core/pkg/execution"
	"github.com/objectledger/exec-core/pkg/execution/execvalue"
	"github.com/objectledger/exec-core/pkg/module"
	"github.com/objectledger/exec-core/pkg/vmtype"
)

// executePublish deploys a new package: deserialize, assign the package
// identity, link dependencies, verify, run module initializers in order, and
// mint the upgrade capability as the command result. The staged package is
// dropped again if verification or an initializer fails.
func (ec *execContext) executePublish(cmd *execution.Publish) error {
	if err := ec.executor.gas.ChargePublish(totalBytes(cmd.Modules)); err != nil {
		return err
	}

	modules, err := module.DeserializeBundle(cmd.Modules)
	if err != nil {
		return ierrors.Wrap(execution.ErrInvalidValueBytes, err.Error())
	}
	if len(modules) == 0 {
		return ierrors.Wrap(execution.ErrInvalidValueBytes, "a package needs at least one module")
	}

	var storageID vmtype.ObjectID
	if ec.mode.PackagesArePredefined {
		// The identity was fixed at build time and is already baked into the
		// module bytes.
		storageID = vmtype.ObjectID(modules[0].SelfAddress)
		if storageID.Address().IsZero() {
			return ierrors.Wrap(execution.ErrInvalidValueBytes, "predefined package identity is unset")
		}
	} else {
		storageID = ec.FreshID()
		module.SubstituteSelfAddress(modules, storageID.Address())
	}

	dependencies, err := ec.loadDependencies(cmd.Dependencies)
	if err != nil {
		return err
	}

	pkg := execution.NewPackage(storageID, modules, cmd.Modules, dependencies, cmd.Dependencies)

	// Stage optimistically so initializers can resolve types of their own
	// package; unstage on any failure below.
	ec.staged.Set(pkg.RuntimeID.Address(), pkg)
	if err := ec.installPackage(pkg, true); err != nil {
		ec.staged.Delete(pkg.RuntimeID.Address())

		return err
	}
	ec.newPackages = append(ec.newPackages, pkg)

	// Predefined packages are owned by the system, no capability is minted.
	if ec.mode.PackagesArePredefined {
		ec.arena.PushResults(nil)

		ec.executor.LogDebug("package published", "id", pkg.StorageID.String(), "modules", len(modules))

		return nil
	}

	upgradeCap := &execution.UpgradeCap{
		ID:      ec.FreshID(),
		Package: pkg.StorageID,
		Version: 1,
		Policy:  execution.UpgradePolicyCompatible,
	}
	capValue, err := execvalue.NewObjectValue(vmtype.UpgradeCapTag(), true, false, upgradeCap.Bytes())
	if err != nil {
		return execution.InvariantViolationf("unable to build upgrade capability: %v", err)
	}
	ec.arena.PushResults([]execvalue.Value{capValue})

	ec.executor.LogDebug("package published", "id", pkg.StorageID.String(), "modules", len(modules))

	return nil
}

// installPackage verifies every module and, for fresh publishes, runs the
// module initializers in declaration order.
func (ec *execContext) installPackage(pkg *execution.Package, runInits bool) error {
	for _, mod := range pkg.Modules {
		if err := ec.executor.verifier.VerifyModule(mod); err != nil {
			return ierrors.Wrapf(err, "module %s failed verification", mod.Name)
		}
	}
	if !runInits {
		return nil
	}

	for _, mod := range pkg.Modules {
		if !mod.HasInit() {
			continue
		}
		if err := ec.runInit(pkg, mod); err != nil {
			return ierrors.Wrapf(err, "initializer of module %s", mod.Name)
		}
	}

	return nil
}

func (ec *execContext) runInit(pkg *execution.Package, mod *module.Module) error {
	info, err := ec.resolveFunction(pkg, mod.Name, vmtype.InitFunctionName, nil, true)
	if err != nil {
		return err
	}

	results, err := ec.vmCall(info, nil, initArguments(info))
	if err != nil {
		return err
	}

	if info.txCtx == execution.TxContextMutable {
		for _, output := range results.MutableReferenceOutputs {
			if err := ec.foldBackTxContext(output.Bytes); err != nil {
				return err
			}
		}
	}
	if len(results.ReturnValues) > 0 {
		return execution.InvariantViolationf("initializer returned %d values", len(results.ReturnValues))
	}

	eventModule := mod.ID()
	ec.emitEvents(eventModule, info.fnIndex, info.fn.Instructions, results.Events)

	return nil
}

// executeUpgrade installs the next version of a deployed package. The
// consumed ticket binds the package identity, the exact content digest and
// the compatibility policy to enforce.
func (ec *execContext) executeUpgrade(cmd *execution.Upgrade) error {
	if err := ec.executor.gas.ChargeUpgrade(totalBytes(cmd.Modules)); err != nil {
		return err
	}

	ticketValue, err := ec.arena.ByValue(cmd.Ticket)
	if err != nil {
		return execution.WithArgumentIndex(err, 0)
	}
	checked, err := ec.checkValueType(ticketValue, vmtype.UpgradeTicketTag(), cmd.Ticket)
	if err != nil {
		return execution.WithArgumentIndex(err, 0)
	}
	ticketBytes, err := checked.SerializedBytes(0)
	if err != nil {
		return execution.WithArgumentIndex(err, 0)
	}
	ticket, err := execution.UpgradeTicketFromBytes(ticketBytes)
	if err != nil {
		return execution.WithArgumentIndex(err, 0)
	}

	if ticket.Package != cmd.Package {
		return ierrors.Wrapf(execution.ErrPackageIDDoesNotMatch, "ticket authorizes %s, command upgrades %s", ticket.Package.String(), cmd.Package.String())
	}
	digest := execution.PackageDigest(cmd.Modules, cmd.Dependencies)
	if !bytes.Equal(digest[:], ticket.Digest) {
		return execution.ErrDigestDoesNotMatch
	}

	modules, err := module.DeserializeBundle(cmd.Modules)
	if err != nil {
		return ierrors.Wrap(execution.ErrInvalidValueBytes, err.Error())
	}
	if len(modules) == 0 {
		return ierrors.Wrap(execution.ErrInvalidValueBytes, "a package needs at least one module")
	}

	predecessor, err := ec.PackageAt(cmd.Package.Address())
	if err != nil {
		return err
	}

	// Code keeps linking against the stable runtime id; only the storage
	// identity is fresh.
	module.SubstituteSelfAddress(modules, predecessor.RuntimeID.Address())
	storageID := ec.FreshID()

	dependencies, err := ec.loadDependencies(cmd.Dependencies)
	if err != nil {
		return err
	}

	pkg := execution.UpgradedPackage(storageID, predecessor, modules, cmd.Modules, dependencies, cmd.Dependencies)

	if err := ec.installPackage(pkg, false); err != nil {
		return err
	}
	if err := ec.checkUpgradePolicy(predecessor, pkg, ticket.Policy); err != nil {
		return err
	}

	ec.staged.Set(pkg.RuntimeID.Address(), pkg)
	ec.newPackages = append(ec.newPackages, pkg)

	receipt := &execution.UpgradeReceipt{Cap: ticket.Cap, Package: pkg.StorageID}
	ec.arena.PushResults([]execvalue.Value{
		execvalue.NewRawValue(vmtype.UpgradeReceiptTag(), vmtype.AbilitiesNone, receipt.Bytes(), false),
	})

	ec.executor.LogDebug("package upgraded", "runtime", pkg.RuntimeID.String(), "storage", pkg.StorageID.String(), "version", pkg.Version)

	return nil
}

// checkUpgradePolicy applies the ticket's compatibility contract module by
// module.
func (ec *execContext) checkUpgradePolicy(old *execution.Package, next *execution.Package, policy execution.UpgradePolicy) error {
	if policy == execution.UpgradePolicyDepOnly &&
		ec.executor.config.DisallowNewModulesInDepOnly &&
		len(next.Modules) != len(old.Modules) {
		return ierrors.Wrap(execution.ErrIncompatibleUpgrade, "a dep-only upgrade cannot change the module set")
	}

	for _, oldModule := range old.Modules {
		nextModule, ok := next.Module(oldModule.Name)
		if !ok {
			return ierrors.Wrapf(execution.ErrIncompatibleUpgrade, "module %s was removed", oldModule.Name)
		}

		var err error
		switch policy {
		case execution.UpgradePolicyCompatible:
			err = module.CheckCompatible(oldModule, nextModule)
		case execution.UpgradePolicyAdditive:
			err = module.CheckInclusion(oldModule, nextModule, false)
		case execution.UpgradePolicyDepOnly:
			err = module.CheckInclusion(oldModule, nextModule, true)
		default:
			return ierrors.Wrapf(execution.ErrUnknownUpgradePolicy, "policy %d", policy)
		}
		if err != nil {
			return ierrors.Wrapf(execution.ErrIncompatibleUpgrade, "module %s: %s", oldModule.Name, err.Error())
		}
	}

	return nil
}

func totalBytes(modules [][]byte) int {
	total := 0
	for _, b := range modules {
		total += len(b)
	}

	return total
}
