package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/giho-tech/helpdesk/internal/attachment"
	"github.com/giho-tech/helpdesk/internal/conversation"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to the support assistant in the terminal",
	Long: `Starts an interactive conversation against the configured knowledge base and AI providers.
Type a message and press enter. "/file <path>" attaches an image or video, "/state" shows the
conversation state and "/quit" exits. Tickets opened here are real.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		a, err := newApp(cmd.Context(), cfg, nil, slog.Default())
		if err != nil {
			return err
		}
		defer a.Close()

		return runChat(cmd, a.engine, cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

func runChat(cmd *cobra.Command, engine *conversation.Engine, in io.Reader, out io.Writer) error {
	sess := conversation.NewSession("terminal", time.Now())
	fmt.Fprintf(out, "🤖 %s\n", sess.Messages[0].Text)

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())

		var input conversation.Input
		switch {
		case line == "":
			continue
		case line == "/quit" || line == "/exit":
			return nil
		case line == "/state":
			fmt.Fprintf(out, "state: %s\n", sess.State)
			continue
		case strings.HasPrefix(line, "/file "):
			blob, err := readBlob(strings.TrimSpace(strings.TrimPrefix(line, "/file ")))
			if err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
				continue
			}
			input.Attachment = blob
		default:
			input.Text = line
		}

		next, reply, err := engine.HandleTurn(cmd.Context(), sess, input)
		if errors.Is(err, conversation.ErrEmptyInput) {
			continue
		}
		if err != nil {
			return err
		}
		sess = next
		fmt.Fprintf(out, "🤖 %s\n", reply.Text)
	}
}

func readBlob(path string) (*attachment.Blob, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading attachment: %w", err)
	}
	return &attachment.Blob{
		Data:         data,
		DeclaredType: mime.TypeByExtension(filepath.Ext(path)),
		FileName:     filepath.Base(path),
	}, nil
}

func init() {
	rootCmd.AddCommand(chatCmd)
}
