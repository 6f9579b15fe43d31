package cmd

import (
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Administer service parameters and models",
	Long:  `Inspect and change server-side retrieval parameters and LLM models. Requires an admin account.`,
}

var paramsCmd = &cobra.Command{
	Use:   "params",
	Short: "Show the current service parameters",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, _, _, err := requireLogin()
		if err != nil {
			return err
		}

		params, err := client.GetParameters()
		if err != nil {
			return fmt.Errorf("failed to fetch parameters: %w", err)
		}

		w := tabwriter.NewWriter(lipgloss.DefaultRenderer().Output(), 0, 0, 3, ' ', 0)
		_, _ = fmt.Fprintf(w, "llm_model\t%s\n", params.LLMModel)
		_, _ = fmt.Fprintf(w, "embed_model\t%s\n", params.EmbedModel)
		_, _ = fmt.Fprintf(w, "chunk_size\t%d\n", params.ChunkSize)
		_, _ = fmt.Fprintf(w, "chunk_overlap\t%d\n", params.ChunkOverlap)
		_, _ = fmt.Fprintf(w, "top_k\t%d\n", params.TopK)
		_, _ = fmt.Fprintf(w, "distance_threshold\t%g\n", params.DistanceThreshold)
		return w.Flush()
	},
}

var paramsSetCmd = &cobra.Command{
	Use:   "set <key>=<value>...",
	Short: "Change service parameters",
	Long: `Change one or more parameters. Only the given keys are sent;
everything else keeps its stored value.

  ragis admin params set llm_model=mistral top_k=8`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, _, _, err := requireLogin()
		if err != nil {
			return err
		}

		fields := make(map[string]interface{}, len(args))
		for _, arg := range args {
			key, value, ok := strings.Cut(arg, "=")
			if !ok || key == "" || value == "" {
				return fmt.Errorf("invalid assignment %q (expected key=value)", arg)
			}
			fields[key] = coerceParam(value)
		}

		message, err := client.SaveParameters(fields)
		if err != nil {
			return fmt.Errorf("failed to save parameters: %w", err)
		}
		if message == "" {
			message = "Parametri salvati."
		}
		fmt.Println(message)
		return nil
	},
}

// coerceParam keeps numeric parameters numeric on the wire.
func coerceParam(value string) interface{} {
	if n, err := strconv.Atoi(value); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(value, 64); err == nil {
		return f
	}
	return value
}

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List the models known to the service",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, _, _, err := requireLogin()
		if err != nil {
			return err
		}

		models, err := client.GetModels()
		if err != nil {
			return fmt.Errorf("failed to fetch models: %w", err)
		}
		if len(models) == 0 {
			fmt.Println("No models available")
			return nil
		}

		for _, m := range models {
			marker := " "
			if m.Installed {
				marker = "*"
			}
			fmt.Printf("%s %s\n", marker, m.Name)
		}
		return nil
	},
}

var modelsPullCmd = &cobra.Command{
	Use:   "pull <name>",
	Short: "Download a model onto the service",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, _, _, err := requireLogin()
		if err != nil {
			return err
		}

		fmt.Printf("Downloading %s...\n", args[0])
		if err := client.DownloadModel(args[0]); err != nil {
			return fmt.Errorf("download failed: %w", err)
		}
		fmt.Println("Done")
		return nil
	},
}

var debugCmd = &cobra.Command{
	Use:   "debug",
	Short: "Inspect the vector database",
	Long:  `Show how many document chunks are indexed, with a sample of their metadata.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, _, _, err := requireLogin()
		if err != nil {
			return err
		}

		info, err := client.DebugDB()
		if err != nil {
			return fmt.Errorf("failed to inspect the vector database: %w", err)
		}

		fmt.Printf("Documenti indicizzati: %d\n", info.Documenti)
		if len(info.MetadatiSample) == 0 {
			return nil
		}

		w := tabwriter.NewWriter(lipgloss.DefaultRenderer().Output(), 0, 0, 3, ' ', 0)
		for i, meta := range info.MetadatiSample {
			for key, value := range meta {
				_, _ = fmt.Fprintf(w, "%d\t%s\t%v\n", i+1, key, value)
			}
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(adminCmd)
	adminCmd.AddCommand(paramsCmd)
	paramsCmd.AddCommand(paramsSetCmd)
	adminCmd.AddCommand(modelsCmd)
	modelsCmd.AddCommand(modelsPullCmd)
	adminCmd.AddCommand(debugCmd)
}
