package mail

import (
	"strings"
	"testing"
)

func TestBuildMessage(t *testing.T) {
	msg := string(buildMessage("bot@example.com", "user@example.com", "Extracted Persian Text", "سلام"))

	for _, want := range []string{
		"From: bot@example.com\r\n",
		"To: user@example.com\r\n",
		"Subject: Extracted Persian Text\r\n",
		"Content-Type: text/plain; charset=UTF-8\r\n",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing header %q:\n%s", want, msg)
		}
	}

	headerEnd := strings.Index(msg, "\r\n\r\n")
	if headerEnd < 0 {
		t.Fatal("missing header/body separator")
	}
	if body := msg[headerEnd+4:]; body != "سلام" {
		t.Errorf("unexpected body: %q", body)
	}
}

func TestSendFailsFastOnUnreachableServer(t *testing.T) {
	sender := New(Config{Host: "127.0.0.1", Port: 1, Address: "bot@example.com", Password: "x"})

	if err := sender.Send("user@example.com", "subject", "body"); err == nil {
		t.Fatal("expected a delivery error for an unreachable server")
	}
}
