package commands

import (
	"context"
	"fmt"

	"github.com/clusterfs/plockd/pkg/checkpoint"
	"github.com/clusterfs/plockd/pkg/config"
	"github.com/spf13/cobra"
)

var dumpCmd = &cobra.Command{
	Use:   "dump [group]",
	Short: "print a group's checkpointed lock state without starting the daemon",
	Args:  cobra.ExactArgs(1),
	RunE:  runDump,
}

func runDump(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	store, err := checkpoint.Open(cfg.Checkpoint.Dir)
	if err != nil {
		return err
	}
	defer store.Close()

	group, err := store.Retrieve(context.Background(), args[0])
	if err != nil {
		return err
	}

	fmt.Fprint(cmd.OutOrStdout(), group.Dump())
	return nil
}
