package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/openchem/compute-registry/internal/config"
	"github.com/openchem/compute-registry/internal/prefs"
	"github.com/openchem/compute-registry/internal/registry"
)

// prefsPath resolves the preferences file location: the --prefs flag if set,
// otherwise the platform config directory.
func prefsPath() (string, error) {
	if path := viper.GetString("prefs"); path != "" {
		return path, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine config directory: %w", err)
	}
	return filepath.Join(base, "compute-registry", "preferences.yaml"), nil
}

// withRegistry builds the store and registry for one command run,
// bootstraps, hands the registry to fn, and shuts down afterwards. Bootstrap
// load problems are warnings, never command failures.
func withRegistry(ctx context.Context, fn func(*registry.Registry) error) error {
	path, err := prefsPath()
	if err != nil {
		return err
	}

	store, err := prefs.NewFileStore(path)
	if err != nil {
		return err
	}

	reg := registry.New(store)
	defer reg.Shutdown()

	if err := reg.Bootstrap(ctx); err != nil {
		slog.Warn("Problem during registry bootstrap", "error", err)
	}

	return fn(reg)
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the configured servers in display order",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withRegistry(cmd.Context(), func(reg *registry.Registry) error {
			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.Header([]string{"#", "Name", "Protocol", "Host", "Port"})
			for i, name := range reg.AvailableServers() {
				s, err := reg.Find(name)
				if err != nil {
					return err
				}
				cfg := s.Configuration()
				row := []string{strconv.Itoa(i + 1), cfg.Name, cfg.Protocol, cfg.Host, strconv.Itoa(cfg.Port)}
				if err := table.Append(row); err != nil {
					return err
				}
			}
			return table.Render()
		})
	},
}

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a server to the registry",
	Long: `Add a server described by flags. A display name already in use is
suffixed with _1, _2, ... rather than rejected.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg := config.ServerConfig{
			Name:             viper.GetString("add.name"),
			Host:             viper.GetString("add.host"),
			Protocol:         viper.GetString("add.protocol"),
			Port:             viper.GetInt("add.port"),
			Username:         viper.GetString("add.username"),
			WorkingDirectory: viper.GetString("add.workdir"),
			QueueSystem:      viper.GetString("add.queue"),
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		return withRegistry(cmd.Context(), func(reg *registry.Registry) error {
			s := reg.AddServer(cfg)
			slog.Info("Added server", "server", s.Name())
			return nil
		})
	},
}

func init() {
	addCmd.Flags().String("name", "", "Display name for the server (required)")
	addCmd.Flags().String("host", "", "Host to connect to")
	addCmd.Flags().String("protocol", config.ProtocolSSH, "Connection protocol (local, ssh, http, https)")
	addCmd.Flags().Int("port", 22, "Port to connect to")
	addCmd.Flags().String("username", "", "Account on the server")
	addCmd.Flags().String("workdir", "", "Working directory on the server")
	addCmd.Flags().String("queue", "", "Queue system used by the server")

	for _, flag := range []string{"name", "host", "protocol", "port", "username", "workdir", "queue"} {
		if err := viper.BindPFlag("add."+flag, addCmd.Flags().Lookup(flag)); err != nil {
			slog.Error("Error binding add flag", "flag", flag, "error", err)
		}
	}
	if err := addCmd.MarkFlagRequired("name"); err != nil {
		slog.Error("Error marking name flag required", "error", err)
	}
}

var removeCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove a server from the registry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRegistry(cmd.Context(), func(reg *registry.Registry) error {
			reg.Remove(args[0])
			return nil
		})
	},
}

var moveUpCmd = &cobra.Command{
	Use:   "move-up <name>",
	Short: "Move a server one position up in the display order",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRegistry(cmd.Context(), func(reg *registry.Registry) error {
			reg.MoveUp(args[0])
			return nil
		})
	},
}

var moveDownCmd = &cobra.Command{
	Use:   "move-down <name>",
	Short: "Move a server one position down in the display order",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRegistry(cmd.Context(), func(reg *registry.Registry) error {
			reg.MoveDown(args[0])
			return nil
		})
	},
}

var connectCmd = &cobra.Command{
	Use:   "connect <name>...",
	Short: "Open a connection to each named server",
	Long: `Open a connection to each named server. Names that are not in the
registry are skipped.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRegistry(cmd.Context(), func(reg *registry.Registry) error {
			reg.ConnectServers(cmd.Context(), args)
			return nil
		})
	},
}

var importCmd = &cobra.Command{
	Use:   "import <file.cfg>",
	Short: "Import a legacy server configuration file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRegistry(cmd.Context(), func(reg *registry.Registry) error {
			cfg, err := reg.LoadFromFile(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			s := reg.AddServer(cfg)
			slog.Info("Imported server", "server", s.Name(), "file", args[0])
			return nil
		})
	},
}
