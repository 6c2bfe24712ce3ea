package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giho-tech/helpdesk/internal/attachment"
	"github.com/giho-tech/helpdesk/internal/conversation"
	"github.com/giho-tech/helpdesk/internal/db"
	"github.com/giho-tech/helpdesk/internal/gateway"
	"github.com/giho-tech/helpdesk/internal/knowledge"
)

func newTestEngine(t *testing.T) *conversation.Engine {
	t.Helper()
	database, err := db.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	kb := knowledge.NewStore(database)
	require.NoError(t, kb.Seed(context.Background(), knowledge.DefaultSolutions(), nil))

	return conversation.NewEngine(conversation.Deps{
		Knowledge: kb,
		AI:        gateway.New(gateway.Config{}),
		Validator: attachment.NewValidator(attachment.Limits{
			AllowedTypes:    []string{"image/*", "video/*"},
			MaxImageBytes:   5 << 20,
			MaxVideoBytes:   100 << 20,
			MaxVideoSeconds: 60,
		}, nil),
	}, conversation.Options{Hotline: "1900 0000"})
}

func TestRunChat(t *testing.T) {
	engine := newTestEngine(t)
	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())

	in := strings.NewReader("robot không sạc\n/state\n\n/quit\nnever read\n")
	var out bytes.Buffer
	require.NoError(t, runChat(cmd, engine, in, &out))

	got := out.String()
	assert.Contains(t, got, "Xin chào!")
	assert.Contains(t, got, "Robot không sạc được")
	assert.Contains(t, got, "state: normal")
	assert.NotContains(t, got, "never read")
}

func TestRunChatRejectsBadAttachment(t *testing.T) {
	engine := newTestEngine(t)
	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())

	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("plain text"), 0o644))

	in := strings.NewReader("/file " + path + "\n/file /does/not/exist.png\n")
	var out bytes.Buffer
	require.NoError(t, runChat(cmd, engine, in, &out))

	got := out.String()
	assert.Contains(t, got, "Chỉ chấp nhận file ảnh hoặc video!")
	assert.Contains(t, got, "error: reading attachment")
}
