package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	common "github.com/pressplay/gametracker/internal/cli/common"
	migratecmd "github.com/pressplay/gametracker/internal/cli/migratecmd"
	synccmd "github.com/pressplay/gametracker/internal/cli/synccmd"
	watchcmd "github.com/pressplay/gametracker/internal/cli/watchcmd"
)

func main() {
	root := &cobra.Command{Use: "gametracker", Short: "Game catalog synchronization CLI"}

	// Subcommands
	root.AddCommand(synccmd.New())
	root.AddCommand(watchcmd.New())
	root.AddCommand(migratecmd.New())

	// config show: print the effective configuration
	cfgShow := &cobra.Command{Use: "config", Short: "Inspect configuration"}
	var cfgFile string
	show := &cobra.Command{
		Use:   "show",
		Short: "Print the effective config as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := common.Load(cfgFile)
			if err != nil {
				return err
			}
			out, err := yaml.Marshal(v.AllSettings())
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
	show.Flags().StringVar(&cfgFile, "config", "", "config file path")
	cfgShow.AddCommand(show)
	root.AddCommand(cfgShow)

	// completion
	comp := &cobra.Command{Use: "completion [bash|zsh|fish|powershell]", Short: "Generate shell completion"}
	comp.Run = func(cmd *cobra.Command, args []string) {
		if len(args) == 0 {
			log.Fatalf("specify a shell: bash|zsh|fish|powershell")
		}
		switch args[0] {
		case "bash":
			root.GenBashCompletion(os.Stdout)
		case "zsh":
			root.GenZshCompletion(os.Stdout)
		case "fish":
			root.GenFishCompletion(os.Stdout, true)
		case "powershell":
			root.GenPowerShellCompletionWithDesc(os.Stdout)
		default:
			log.Fatalf("unknown shell: %s", args[0])
		}
	}
	root.AddCommand(comp)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := root.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
