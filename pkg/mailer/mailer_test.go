package mailer

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"
)

func newTestMailer(t *testing.T) *SMTPMailer {
	t.Helper()
	m, err := NewSMTPMailer(Config{Host: "smtp.example.com", Port: 587, Username: "shop", Password: "pw", From: "orders@herbstore.test"})
	require.NoError(t, err)
	return m
}

func TestSMTPMailer_Send(t *testing.T) {
	m := newTestMailer(t)

	var sent *mail.Msg
	m.send = func(ctx context.Context, msg *mail.Msg) error {
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline)
		sent = msg
		return nil
	}

	require.NoError(t, m.Send("ada@example.com", "Commande confirmée", "<p>Thanks, Adaeze. Total ₦15,000</p>"))
	require.NotNil(t, sent)

	rcpts, err := sent.GetRecipients()
	require.NoError(t, err)
	assert.Equal(t, []string{"ada@example.com"}, rcpts)

	var buf bytes.Buffer
	_, err = sent.WriteTo(&buf)
	require.NoError(t, err)
	raw := buf.String()

	assert.Contains(t, raw, "From: <orders@herbstore.test>")
	assert.Contains(t, raw, "Subject: =?UTF-8?q?")
	assert.NotContains(t, raw, "Subject: Commande confirmée")
	assert.Contains(t, raw, "Date: ")
	assert.Contains(t, raw, "Message-ID: <")
	assert.Contains(t, raw, "MIME-Version: 1.0")
	assert.Contains(t, raw, "Content-Type: text/html")
	assert.Contains(t, raw, "Content-Transfer-Encoding: quoted-printable")
	assert.NotContains(t, raw, "₦")
}

func TestSMTPMailer_RejectsHeaderInjection(t *testing.T) {
	m := newTestMailer(t)
	m.send = func(context.Context, *mail.Msg) error {
		t.Fatal("send must not be called")
		return nil
	}
	assert.Error(t, m.Send("ada@example.com\r\nBcc: eve@example.com", "hi", "x"))
	assert.Error(t, m.Send("ada@example.com", "hi\r\nBcc: eve@example.com", "x"))
	assert.Error(t, m.Send("not an address", "hi", "x"))
}

func TestSMTPMailer_SendError(t *testing.T) {
	m := newTestMailer(t)
	m.send = func(context.Context, *mail.Msg) error {
		return errors.New("connection refused")
	}
	err := m.Send("ada@example.com", "hi", "x")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestNewSMTPMailer_RequiresHost(t *testing.T) {
	_, err := NewSMTPMailer(Config{Port: 25})
	assert.Error(t, err)
}
