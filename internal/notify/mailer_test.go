package notify

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rohit/sheetconv/internal/config"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"
)

func TestSend_NotConfigured(t *testing.T) {
	m := NewMailer(config.SMTPConfig{}, zerolog.Nop())
	err := m.Send(context.Background(), Message{To: []string{"a@example.com"}})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestBuildMessage(t *testing.T) {
	dir := t.TempDir()
	attachment := filepath.Join(dir, "report.xlsx")
	require.NoError(t, os.WriteFile(attachment, []byte("x"), 0644))

	mm, err := buildMessage("sheets@example.com", Message{
		To:          []string{"a@example.com", "b@example.com"},
		Body:        "see attached",
		Attachments: []string{attachment},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"<a@example.com>", "<b@example.com>"}, mm.GetToString())
	assert.Equal(t, []string{"Converted spreadsheet: report.xlsx"}, mm.GetGenHeader(mail.HeaderSubject))
	assert.Len(t, mm.GetAttachments(), 1)
}

func TestBuildMessage_Errors(t *testing.T) {
	tests := []struct {
		name string
		from string
		msg  Message
	}{
		{"no recipients", "s@example.com", Message{}},
		{"no sender", "", Message{To: []string{"a@example.com"}}},
		{"bad recipient", "s@example.com", Message{To: []string{"not an address"}}},
		{"missing attachment", "s@example.com", Message{To: []string{"a@example.com"}, Attachments: []string{"/nonexistent/x.xlsx"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := buildMessage(tt.from, tt.msg)
			assert.Error(t, err)
		})
	}
}

func TestDefaultSubject(t *testing.T) {
	assert.Equal(t, "Converted spreadsheets", DefaultSubject(nil))
	assert.Equal(t, "Converted spreadsheet: a.xlsx", DefaultSubject([]string{"/out/a.xlsx"}))
	assert.Equal(t, "Converted spreadsheets (2): a.xlsx, b.xlsx", DefaultSubject([]string{"a.xlsx", "/x/b.xlsx"}))
}

func TestSplitRecipients(t *testing.T) {
	assert.Equal(t, []string{"a@x.io", "b@x.io", "c@x.io"}, SplitRecipients(" a@x.io, b@x.io;c@x.io ,"))
	assert.Empty(t, SplitRecipients(""))
}

func TestTLSPolicy(t *testing.T) {
	assert.Equal(t, mail.TLSMandatory, tlsPolicy("mandatory"))
	assert.Equal(t, mail.TLSOpportunistic, tlsPolicy("opportunistic"))
	assert.Equal(t, mail.NoTLS, tlsPolicy("none"))
	assert.Equal(t, mail.TLSMandatory, tlsPolicy(""))
}
