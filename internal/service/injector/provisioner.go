package injector

import (
	"context"
	"fmt"

	"github.com/oshokin/code-airgap/internal/domain/artifact"
	"github.com/oshokin/code-airgap/internal/logger"
	"github.com/oshokin/code-airgap/internal/remote"
)

// Provisioner runs plans on the target.
type Provisioner struct {
	executor remote.Executor
}

// NewProvisioner creates a Provisioner using executor.
func NewProvisioner(executor remote.Executor) *Provisioner {
	return &Provisioner{executor: executor}
}

// Provision runs plan. The returned installation is InstallValidated on
// success and InstallFailed when a step failed.
func (p *Provisioner) Provision(ctx context.Context, plan *Plan) (*artifact.Installation, error) {
	logger.InfoKV(ctx, "Provisioning", "steps", plan.StepNames(), "server_dir", plan.Layout.ServerDir(plan.Version))

	output, err := p.executor.Run(ctx, plan.Script())
	if err != nil {
		status, ok := remote.ExitStatus(err)
		if !ok {
			return plan.Installation(artifact.InstallFailed), fmt.Errorf("run provisioning script: %w", err)
		}

		return plan.Installation(artifact.InstallFailed), plan.classify(status, output)
	}

	logger.DebugKV(ctx, "Provisioning output", "output", output)

	return plan.Installation(artifact.InstallValidated), nil
}
