package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"blenddoc/internal/config"
	"blenddoc/internal/errors"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init [folder]",
	Short: "Initialize blenddoc configuration",
	Long:  "Creates a .blenddoc/ directory with default configuration in the project folder",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runInit,
}

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false,
		"Force reinitialization (overwrites existing configuration)")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	root, err := projectRoot(args)
	if err != nil {
		return errors.New(errors.InternalError, "failed to resolve project folder", err)
	}

	configPath := filepath.Join(root, config.DataDirName, "config.json")
	if _, statErr := os.Stat(configPath); statErr == nil && !initForce {
		// Idempotent: already initialized is success
		fmt.Println("blenddoc already initialized.")
		fmt.Printf("Configuration at: %s\n", configPath)
		fmt.Println("\nRun 'blenddoc init --force' to overwrite with defaults.")
		return nil
	}

	cfg := config.DefaultConfig()
	if err := cfg.Save(root); err != nil {
		return err
	}

	fmt.Println("blenddoc initialized.")
	fmt.Printf("Configuration at: %s\n", configPath)
	return nil
}
