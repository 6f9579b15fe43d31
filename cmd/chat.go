package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/ragis-group/ragis-cli/internal"
	"github.com/spf13/cobra"
)

var (
	// Styles for the chat view
	userBubbleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Bold(true)

	assistantBubbleStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("135")).
				Bold(true)

	systemBubbleStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("243")).
				Italic(true)

	statusLineStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive conversation",
	Long: `Open an interactive chat with the RAGIS service.

Completed exchanges are saved locally and can be resumed later with
/load. Slash commands inside the session:

  /new           Start a fresh conversation (the current one is saved)
  /history       List saved conversations
  /load <n>      Resume a saved conversation
  /delete <n>    Delete a saved conversation
  /local         Toggle local-only retrieval
  /online        Toggle local + online retrieval
  /quit          Leave the chat`,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, _, dir, err := requireLogin()
		if err != nil {
			return err
		}

		store := internal.NewStore(filepath.Join(dir, internal.HistoryFileName))
		archive, err := internal.OpenArchive(filepath.Join(dir, internal.ArchiveFileName))
		if err != nil {
			internal.LogWarn("Archive unavailable: %v", err)
		} else {
			store.SetArchiver(archive)
			defer archive.Close()
		}

		session := internal.NewSession(store, client)
		defer session.Close()

		var opts internal.ChatOptions
		if cmd.Flags().Changed("top-k") {
			opts.TopK = &chatTopK
		}
		if cmd.Flags().Changed("distance-threshold") {
			opts.DistanceThreshold = &chatDistance
		}
		session.SetChatOptions(opts)

		return runChatLoop(session, os.Stdin)
	},
}

// searchMode mirrors the retrieval toggles. The flags are client-side
// state; the backend falls back to its stored parameters either way.
type searchMode struct {
	local  bool
	online bool
}

func runChatLoop(session *internal.SessionController, in *os.File) error {
	fmt.Println(systemBubbleStyle.Render(internal.WelcomeText))

	var mode searchMode
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		fmt.Print(promptStyle.Render("> "))
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			quit, err := handleSlashCommand(session, &mode, line)
			if err != nil {
				fmt.Println(statusLineStyle.Render(err.Error()))
			}
			if quit {
				break
			}
			continue
		}

		fmt.Println(statusLineStyle.Render("Invio richiesta..."))
		reply, err := session.Send(line)
		if err != nil {
			if errors.Is(err, internal.ErrRequestInFlight) {
				fmt.Println(statusLineStyle.Render("Richiesta in corso, attendi..."))
				continue
			}
			// The transcript already carries the fixed error reply.
			internal.LogDebug("Send failed: %v", err)
		}

		fmt.Println(assistantBubbleStyle.Render("RAG:"))
		fmt.Println(internal.RenderAssistantText(reply))
	}

	return scanner.Err()
}

func handleSlashCommand(session *internal.SessionController, mode *searchMode, line string) (quit bool, err error) {
	fields := strings.Fields(line)
	switch fields[0] {
	case "/quit", "/exit":
		return true, nil

	case "/new":
		session.Reset()
		fmt.Println(systemBubbleStyle.Render("Nuova conversazione avviata."))

	case "/history":
		printHistory(displayEntries(session))

	case "/load":
		entry, err := pickEntry(session, fields)
		if err != nil {
			return false, err
		}
		if err := session.LoadEntry(entry.ID); err != nil {
			return false, err
		}
		replayTranscript(session.Messages())

	case "/delete":
		entry, err := pickEntry(session, fields)
		if err != nil {
			return false, err
		}
		session.DeleteEntry(entry.ID)
		fmt.Println(systemBubbleStyle.Render("Conversazione eliminata."))

	case "/local":
		mode.local = !mode.local
		fmt.Println(statusLineStyle.Render(fmt.Sprintf("Ricerca solo locale: %v", mode.local)))

	case "/online":
		mode.online = !mode.online
		fmt.Println(statusLineStyle.Render(fmt.Sprintf("Ricerca locale + online: %v", mode.online)))

	default:
		return false, fmt.Errorf("comando sconosciuto: %s", fields[0])
	}
	return false, nil
}

// displayEntries returns the saved conversations in display order:
// most recently saved first.
func displayEntries(session *internal.SessionController) []internal.HistoryEntry {
	entries := session.Entries()
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].CreatedAt > entries[j].CreatedAt
	})
	return entries
}

func printHistory(entries []internal.HistoryEntry) {
	if len(entries) == 0 {
		fmt.Println(systemBubbleStyle.Render("Nessuna conversazione salvata."))
		return
	}
	for i, e := range entries {
		fmt.Printf("%s %s %s\n",
			promptStyle.Render(fmt.Sprintf("%2d.", i+1)),
			statusLineStyle.Render(e.GetCreatedAt().Format("2006-01-02 15:04")),
			e.Preview,
		)
	}
}

// pickEntry resolves a 1-based display index argument to an entry.
func pickEntry(session *internal.SessionController, fields []string) (*internal.HistoryEntry, error) {
	if len(fields) < 2 {
		return nil, fmt.Errorf("uso: %s <n>", fields[0])
	}
	n, err := strconv.Atoi(fields[1])
	if err != nil {
		return nil, fmt.Errorf("indice non valido: %s", fields[1])
	}
	entries := displayEntries(session)
	if n < 1 || n > len(entries) {
		return nil, fmt.Errorf("indice fuori intervallo: %d", n)
	}
	return &entries[n-1], nil
}

func replayTranscript(messages []internal.ChatMessage) {
	for _, msg := range messages {
		switch msg.Sender {
		case internal.SenderUser:
			fmt.Println(userBubbleStyle.Render("Tu:"))
			fmt.Println(msg.Text)
		case internal.SenderAssistant:
			fmt.Println(assistantBubbleStyle.Render("RAG:"))
			fmt.Println(internal.RenderAssistantText(msg.Text))
		default:
			fmt.Println(systemBubbleStyle.Render(msg.Text))
		}
	}
}

var (
	chatTopK     int
	chatDistance float64
)

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().IntVar(&chatTopK, "top-k", 0, "Override the number of retrieved chunks for this session")
	chatCmd.Flags().Float64Var(&chatDistance, "distance-threshold", 0, "Override the similarity threshold for this session")
}
