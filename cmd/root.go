package cmd

import (
	"fmt"
	"os"

	"github.com/ValentinKolb/sDB/cmd/doc"
	"github.com/ValentinKolb/sDB/cmd/info"
	"github.com/ValentinKolb/sDB/cmd/util"
	"github.com/spf13/cobra"
)

const (
	Version = "1.0.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "sdb",
		Short: "embedded encrypted document store",
		Long: fmt.Sprintf(`sDB (v%s)

An embedded, encrypted, schema-less document store written in Go.
The whole store is kept in memory and persisted as one encrypted file.
The configuration can be set via command line flags or environment variables.
The format of the environment variables is SDB_<flag> (e.g. SDB_SECRET=...)`, Version),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of sDB",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("sDB v%s\n", Version)
		},
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitConfig)

	// Add Commands
	RootCmd.AddCommand(doc.DocumentCommands)
	RootCmd.AddCommand(info.InfoCmd)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	util.SetupStoreFlags(RootCmd)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, util.Failure("%v", err))
		os.Exit(1)
	}
}

// run executes the root command and closes any store left open by a failed command
func run() error {
	err := RootCmd.Execute()
	if closeErr := doc.CloseStore(); err == nil {
		err = closeErr
	}
	return err
}
