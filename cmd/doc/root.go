package doc

import (
	"github.com/ValentinKolb/sDB/cmd/util"
	"github.com/ValentinKolb/sDB/lib/store"
	"github.com/spf13/cobra"
)

var (
	docStore store.IStore

	// DocumentCommands represents the document command group
	DocumentCommands = &cobra.Command{
		Use:                "doc",
		Short:              "Perform document store operations",
		PersistentPreRunE:  openStore,
		PersistentPostRunE: closeStore,
	}
)

func init() {
	// Add subcommands
	DocumentCommands.AddCommand(existsCmd)
	DocumentCommands.AddCommand(getCmd)
	DocumentCommands.AddCommand(setCmd)
	DocumentCommands.AddCommand(delCmd)
	DocumentCommands.AddCommand(allCmd)
	DocumentCommands.AddCommand(findCmd)
	DocumentCommands.AddCommand(collectionsCmd)
	DocumentCommands.AddCommand(exportCmd)
	DocumentCommands.AddCommand(perfTestCmd)
}

// openStore opens the store for every subcommand except perf, which uses its own
func openStore(cmd *cobra.Command, args []string) error {
	if err := util.PrepareCommand(cmd, args); err != nil {
		return err
	}

	if cmd == perfTestCmd {
		return nil
	}

	var err error
	docStore, err = util.OpenStore()
	return err
}

// closeStore releases the store (and its file lock)
func closeStore(_ *cobra.Command, _ []string) error {
	return CloseStore()
}

// CloseStore closes the store opened by a document command, if any.
// PersistentPostRunE is skipped when a command fails, so the caller of
// the root command must call it as well.
func CloseStore() error {
	if docStore == nil {
		return nil
	}
	err := docStore.Close()
	docStore = nil
	return err
}
