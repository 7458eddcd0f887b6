package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/slashkit-labs/slashkit/internal/command"
	"github.com/slashkit-labs/slashkit/internal/config"
	"github.com/slashkit-labs/slashkit/internal/extension"
	"github.com/slashkit-labs/slashkit/internal/trust"
)

// app wires the configuration, lifecycle manager, and command service
// for one CLI invocation. Everything is constructed explicitly; there is
// no process-wide manager.
type app struct {
	cfg     *config.Config
	manager *extension.Manager
	service *command.Service
}

// newApp builds the application over the user's config directory.
// Extensions that fail to load are reported on errOut and skipped.
func newApp(errOut io.Writer, interactive bool) (*app, error) {
	cfg, err := config.LoadDefault()
	if err != nil {
		return nil, err
	}
	return buildApp(cfg, errOut, interactive), nil
}

func buildApp(cfg *config.Config, errOut io.Writer, interactive bool) *app {
	store := extension.NewStore(cfg.ExtensionsRoot())

	var svc *command.Service
	builtin := command.NewBuiltinLoader(func() *command.Snapshot { return svc.Snapshot() })

	opts := []extension.ManagerOption{
		extension.WithTrustOracle(trust.NewFolderOracle(cfg.TrustedFolders())),
		extension.WithRefresh(func() { svc.Refresh() }),
	}
	if interactive {
		opts = append(opts, extension.WithConsent(newTerminalConsent(os.Stdin, errOut)))
	}
	manager := extension.NewManager(store, opts...)

	svc = command.NewService(
		builtin,
		command.NewFileLoader(cfg.CommandsDir()),
		command.NewExtensionLoader(manager.Extensions),
	)

	for _, issue := range manager.Load() {
		fmt.Fprintf(errOut, "warning: skipping %s: %v\n", issue.Dir, issue.Err)
	}

	return &app{cfg: cfg, manager: manager, service: svc}
}
