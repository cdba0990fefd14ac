package ui

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

// ErrNotificationsUnsupported is returned on platforms without a known notifier
var ErrNotificationsUnsupported = errors.New("desktop notifications not supported on " + runtime.GOOS)

// NotificationSender delivers one desktop notification
type NotificationSender interface {
	Send(ctx context.Context, title, message string) error
}

// SenderFunc adapts a function to NotificationSender
type SenderFunc func(ctx context.Context, title, message string) error

// Send calls f
func (f SenderFunc) Send(ctx context.Context, title, message string) error {
	return f(ctx, title, message)
}

type commandSender struct {
	build func(title, message string) (string, []string)
}

func (c commandSender) Send(ctx context.Context, title, message string) error {
	name, args := c.build(title, message)
	if _, err := exec.LookPath(name); err != nil {
		return fmt.Errorf("notifier %s not found: %w", name, err)
	}
	if out, err := exec.CommandContext(ctx, name, args...).CombinedOutput(); err != nil {
		return fmt.Errorf("%s failed: %w: %s", name, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// quoteAppleScript escapes s for use inside an AppleScript string literal
func quoteAppleScript(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}

func platformSender(goos string) NotificationSender {
	switch goos {
	case "linux", "freebsd", "openbsd":
		return commandSender{build: func(title, message string) (string, []string) {
			return "notify-send", []string{"--app-name=listingscraper", title, message}
		}}
	case "darwin":
		return commandSender{build: func(title, message string) (string, []string) {
			script := "display notification " + quoteAppleScript(message) + " with title " + quoteAppleScript(title)
			return "osascript", []string{"-e", script}
		}}
	default:
		return nil
	}
}

// Notifier sends a desktop notification when a run ends
type Notifier struct {
	sender NotificationSender
}

// NewNotifier creates a Notifier for the current platform
func NewNotifier() *Notifier {
	return &Notifier{sender: platformSender(runtime.GOOS)}
}

// NewNotifierWithSender creates a Notifier using sender
func NewNotifierWithSender(sender NotificationSender) *Notifier {
	return &Notifier{sender: sender}
}

// Supported reports whether notifications can be sent at all
func (n *Notifier) Supported() bool {
	return n != nil && n.sender != nil
}

// Notify sends title and message
func (n *Notifier) Notify(ctx context.Context, title, message string) error {
	if !n.Supported() {
		return ErrNotificationsUnsupported
	}
	return n.sender.Send(ctx, title, message)
}

// NotifyResult reports how a scrape of name ended
func (n *Notifier) NotifyResult(ctx context.Context, name, detail string, err error) error {
	if err != nil {
		return n.Notify(ctx, "listingscraper: "+name+" failed", err.Error())
	}
	return n.Notify(ctx, "listingscraper: "+name+" done", detail)
}
