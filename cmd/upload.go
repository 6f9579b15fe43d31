package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var uploadCmd = &cobra.Command{
	Use:   "upload <file>...",
	Short: "Upload documents to the service",
	Long: `Upload one or more documents for indexing. The service stores
them in its document folder; run "ragis reindex" to rebuild the vector
database afterwards.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, _, _, err := requireLogin()
		if err != nil {
			return err
		}

		fmt.Println("Caricamento documento...")
		message, err := client.Upload(args)
		if err != nil {
			return fmt.Errorf("upload failed: %w", err)
		}
		if message == "" {
			message = "Documento caricato."
		}
		fmt.Println(message)
		return nil
	},
}

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rebuild the service's vector database",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, _, _, err := requireLogin()
		if err != nil {
			return err
		}

		fmt.Println("Indicizzazione in corso...")
		message, err := client.Reindex()
		if err != nil {
			return fmt.Errorf("reindex failed: %w", err)
		}
		if message == "" {
			message = "Indicizzazione completata."
		}
		fmt.Println(message)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(reindexCmd)
}
