package mailer

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	return Config{Host: "smtp.example.com", Port: "2525", Username: "user", Password: "pass", From: "billing@example.com"}
}

func TestNewSMTPMailerValidation(t *testing.T) {
	_, err := NewSMTPMailer(Config{Port: "25", Username: "u", Password: "p", From: "f@x"})
	assert.Error(t, err)
	_, err = NewSMTPMailer(Config{Host: "h", Port: "25", Username: "u", Password: "p"})
	assert.Error(t, err)
	_, err = NewSMTPMailer(Config{Host: "h", Port: "25", From: "f@x"})
	assert.Error(t, err)
	_, err = NewSMTPMailer(testConfig())
	assert.NoError(t, err)
}

func TestSendBuildsMessage(t *testing.T) {
	m, err := NewSMTPMailer(testConfig())
	require.NoError(t, err)

	var gotAddr, gotFrom string
	var gotTo []string
	var gotBody []byte
	m.send = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotBody = addr, from, to, msg
		return nil
	}

	require.NoError(t, m.Send(context.Background(), Message{To: "a@example.com", Subject: "Hi", Body: "<p>Hello</p>"}))
	assert.Equal(t, "smtp.example.com:2525", gotAddr)
	assert.Equal(t, "billing@example.com", gotFrom)
	assert.Equal(t, []string{"a@example.com"}, gotTo)
	body := string(gotBody)
	assert.True(t, strings.HasPrefix(body, "To: a@example.com\r\nFrom: billing@example.com\r\nSubject: Hi\r\n"))
	assert.Contains(t, body, "Content-Type: text/html; charset=UTF-8")
}

func TestSendErrors(t *testing.T) {
	m, err := NewSMTPMailer(testConfig())
	require.NoError(t, err)
	m.send = func(string, smtp.Auth, string, []string, []byte) error { return errors.New("535 auth failed") }

	assert.Error(t, m.Send(context.Background(), Message{Subject: "Hi"}))
	assert.Error(t, m.Send(context.Background(), Message{To: "a@example.com"}))
	err = m.Send(context.Background(), Message{To: "a@example.com", Subject: "Hi", Body: "plain"})
	assert.ErrorContains(t, err, "535 auth failed")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, m.Send(ctx, Message{To: "a@example.com", Subject: "Hi"}), context.Canceled)
}
