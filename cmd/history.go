package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/ragis-group/ragis-cli/internal"
	"github.com/ragis-group/ragis-cli/internal/export"
	"github.com/spf13/cobra"
)

var (
	// Styles for history tables
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62")).
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	idStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("240")).
		Italic(true)

	countStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	dateStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))
)

var (
	exportFormat string
	exportOutput string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Manage saved conversations",
	Long: `Browse, export, and delete conversations saved by the chat view.

The live store keeps the 20 most recent conversations for 48 hours;
anything older or beyond capacity moves into the local archive
(see "history archive").`,
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved conversations",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, _, cleanup, err := openHistory()
		if err != nil {
			return err
		}
		defer cleanup()

		entries := store.Load()
		sort.SliceStable(entries, func(i, j int) bool {
			return entries[i].CreatedAt > entries[j].CreatedAt
		})
		displayHistoryTable(entries)
		return nil
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a saved conversation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, _, cleanup, err := openHistory()
		if err != nil {
			return err
		}
		defer cleanup()

		entry, err := findEntry(store.Load(), args[0])
		if err != nil {
			return err
		}
		replayTranscript(entry.Messages)
		return nil
	},
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a saved conversation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, _, cleanup, err := openHistory()
		if err != nil {
			return err
		}
		defer cleanup()

		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid conversation id: %s", args[0])
		}

		// Deleting an unknown id is a no-op by design.
		entries := store.Remove(store.Load(), id)
		if err := store.Save(entries); err != nil {
			return fmt.Errorf("failed to persist history: %w", err)
		}
		fmt.Println("Deleted")
		return nil
	},
}

var historyExportCmd = &cobra.Command{
	Use:   "export <id>",
	Short: "Export a saved conversation",
	Long:  `Export a saved conversation as json, jsonl, markdown, or yaml.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, _, cleanup, err := openHistory()
		if err != nil {
			return err
		}
		defer cleanup()

		entry, err := findEntry(store.Load(), args[0])
		if err != nil {
			return err
		}

		exporter, err := export.NewExporter(exportFormat)
		if err != nil {
			return err
		}

		out := os.Stdout
		if exportOutput != "" {
			f, err := os.Create(exportOutput)
			if err != nil {
				return fmt.Errorf("failed to create output file: %w", err)
			}
			defer f.Close()
			out = f
		}

		if err := exporter.Export(entry, out); err != nil {
			return fmt.Errorf("export failed: %w", err)
		}
		if exportOutput != "" {
			fmt.Printf("Exported to %s\n", exportOutput)
		}
		return nil
	},
}

var historyArchiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Browse conversations dropped from the live store",
}

var historyArchiveListCmd = &cobra.Command{
	Use:   "list",
	Short: "List archived conversations",
	RunE: func(cmd *cobra.Command, args []string) error {
		archive, cleanup, err := openArchive()
		if err != nil {
			return err
		}
		defer cleanup()

		entries, err := archive.List()
		if err != nil {
			return err
		}
		displayHistoryTable(entries)
		return nil
	},
}

var historyArchiveShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show an archived conversation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		archive, cleanup, err := openArchive()
		if err != nil {
			return err
		}
		defer cleanup()

		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid conversation id: %s", args[0])
		}
		entry, err := archive.Get(id)
		if err != nil {
			return err
		}
		replayTranscript(entry.Messages)
		return nil
	},
}

// openHistory builds a store wired to the archive. The cleanup closes
// the archive database.
func openHistory() (*internal.Store, string, func(), error) {
	dir, err := resolveDataDir()
	if err != nil {
		return nil, "", nil, err
	}

	store := internal.NewStore(filepath.Join(dir, internal.HistoryFileName))
	cleanup := func() {}

	archive, err := internal.OpenArchive(filepath.Join(dir, internal.ArchiveFileName))
	if err != nil {
		internal.LogWarn("Archive unavailable: %v", err)
	} else {
		store.SetArchiver(archive)
		cleanup = func() { _ = archive.Close() }
	}
	return store, dir, cleanup, nil
}

func openArchive() (*internal.ArchiveStore, func(), error) {
	dir, err := resolveDataDir()
	if err != nil {
		return nil, nil, err
	}
	archive, err := internal.OpenArchive(filepath.Join(dir, internal.ArchiveFileName))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open archive: %w", err)
	}
	return archive, func() { _ = archive.Close() }, nil
}

func findEntry(entries []internal.HistoryEntry, arg string) (*internal.HistoryEntry, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid conversation id: %s", arg)
	}
	for i := range entries {
		if entries[i].ID == id {
			return &entries[i], nil
		}
	}
	return nil, fmt.Errorf("conversation %d not found", id)
}

func displayHistoryTable(entries []internal.HistoryEntry) {
	if len(entries) == 0 {
		fmt.Println(headerStyle.Render("No saved conversations"))
		return
	}

	header := headerStyle.Render(fmt.Sprintf("Found %d conversation(s)", len(entries)))
	fmt.Println(header)
	fmt.Println()

	w := tabwriter.NewWriter(lipgloss.DefaultRenderer().Output(), 0, 0, 3, ' ', 0)
	_, _ = fmt.Fprintln(w, titleStyle.Render("ID")+"\t"+titleStyle.Render("Saved")+"\t"+titleStyle.Render("Messages")+"\t"+titleStyle.Render("Preview")+"\t")
	_, _ = fmt.Fprintln(w, strings.Repeat("─", 100))

	for _, e := range entries {
		saved := formatSavedAt(e.GetCreatedAt())
		count := countStyle.Render(strconv.Itoa(len(e.Messages)))
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t\n",
			idStyle.Render(strconv.FormatInt(e.ID, 10)),
			dateStyle.Render(saved),
			count,
			e.Preview,
		)
	}
	_ = w.Flush()
}

func formatSavedAt(t time.Time) string {
	diff := time.Since(t)
	switch {
	case diff < 24*time.Hour:
		return t.Format("Today 15:04")
	case diff < 7*24*time.Hour:
		return t.Format("Mon 15:04")
	default:
		return t.Format("2006-01-02 15:04")
	}
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyDeleteCmd)
	historyCmd.AddCommand(historyExportCmd)
	historyCmd.AddCommand(historyArchiveCmd)
	historyArchiveCmd.AddCommand(historyArchiveListCmd)
	historyArchiveCmd.AddCommand(historyArchiveShowCmd)

	historyExportCmd.Flags().StringVarP(&exportFormat, "format", "f", "md", "Export format (json, jsonl, md, yaml)")
	historyExportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file (default stdout)")
}
