package mail

import (
	"bytes"
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/dados/internal/config"
	"github.com/JonMunkholm/dados/internal/core"
)

func artifact() core.ExportArtifact {
	return core.ExportArtifact{
		Filename: "dados.xlsx",
		MIMEType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		Data:     []byte("PK\x03\x04 fake workbook"),
	}
}

// closedPort returns a local address nothing is listening on.
func closedPort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())
	return port
}

func TestBuild_Multipart(t *testing.T) {
	d := NewDispatcher(config.MailConfig{Server: "smtp.example.com", From: "reports@example.com"})

	msg, err := d.build(Message{
		To:         []string{"alice@example.com"},
		Subject:    "Monthly data",
		Body:       "See attached.",
		Attachment: artifact(),
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = msg.WriteTo(&buf)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "multipart/mixed")
	assert.Contains(t, out, "Subject: Monthly data")
	assert.Contains(t, out, "<reports@example.com>")
	assert.Contains(t, out, "<alice@example.com>")
	assert.Contains(t, out, "text/plain")
	assert.Contains(t, out, "See attached.")
	assert.Contains(t, out, `filename="dados.xlsx"`)
	assert.Contains(t, out, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
}

func TestBuild_InvalidInput(t *testing.T) {
	d := NewDispatcher(config.MailConfig{Server: "smtp.example.com", From: "reports@example.com"})

	tests := []struct {
		name string
		msg  Message
	}{
		{"no recipients", Message{Attachment: artifact()}},
		{"bad recipient", Message{To: []string{"not an address"}, Attachment: artifact()}},
		{"no attachment name", Message{To: []string{"a@example.com"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := d.build(tt.msg)
			var delivErr *core.DeliveryError
			require.ErrorAs(t, err, &delivErr)
		})
	}
}

func TestSend_NotConfigured(t *testing.T) {
	d := NewDispatcher(config.MailConfig{})

	err := d.Send(context.Background(), Message{To: []string{"a@example.com"}, Attachment: artifact()})
	var delivErr *core.DeliveryError
	require.ErrorAs(t, err, &delivErr)
	assert.True(t, errors.Is(err, ErrNotConfigured))
}

func TestSend_UnreachableRelay(t *testing.T) {
	workDir := t.TempDir()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(workDir))
	t.Cleanup(func() { _ = os.Chdir(prev) })

	d := NewDispatcher(config.MailConfig{
		Server:   "127.0.0.1",
		Port:     closedPort(t),
		User:     "bot@example.com",
		Password: "secret",
		Timeout:  2 * time.Second,
	})

	err = d.Send(context.Background(), Message{
		To:         []string{"alice@example.com"},
		Subject:    "Report",
		Body:       "body",
		Attachment: artifact(),
	})

	var delivErr *core.DeliveryError
	require.ErrorAs(t, err, &delivErr)
	assert.Equal(t, "send", delivErr.Op)

	entries, err := os.ReadDir(workDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "nothing should be written to disk")
	_, err = os.Stat(filepath.Join(workDir, "dados.xlsx"))
	assert.True(t, os.IsNotExist(err))
}

func TestSend_CanceledContext(t *testing.T) {
	d := NewDispatcher(config.MailConfig{
		Server:  "127.0.0.1",
		Port:    closedPort(t),
		From:    "reports@example.com",
		Timeout: time.Second,
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := d.Send(ctx, Message{To: []string{"a@example.com"}, Attachment: artifact()})
	var delivErr *core.DeliveryError
	require.ErrorAs(t, err, &delivErr)
}
