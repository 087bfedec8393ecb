package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ticketless-chicago/blockmap/internal/dataset"
)

var datasetsCmd = &cobra.Command{
	Use:   "datasets",
	Short: "List the registered datasets",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("%-12s %-32s %-10s %-28s %s\n",
			"NAME", "TITLE", "SODA ID", "OUTPUT", "KIND")
		for _, ds := range dataset.All() {
			kind := "grid"
			if ds.Kind == dataset.Camera {
				kind = "camera"
			}
			fmt.Printf("%-12s %-32s %-10s %-28s %s\n",
				ds.Name, ds.Title, ds.Soda.DatasetID, ds.OutputFile, kind)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(datasetsCmd)
}
