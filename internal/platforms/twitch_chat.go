package platforms

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"net"
	"strings"
	"time"

	"github.com/streamwatch/streamwatch/internal/models"
)

const (
	twitchIRCAddr     = "irc.chat.twitch.tv:6667"
	defaultChatWindow = 60 * time.Second
)

// captureChat joins a channel's IRC room anonymously and collects chat
// messages for the given window. It blocks for up to the whole window; the
// scheduler accounts for that in its run-duration bound.
func captureChat(ctx context.Context, channel string, window time.Duration, logger *slog.Logger) ([]models.ChatMessage, error) {
	if window <= 0 {
		window = defaultChatWindow
	}
	deadline := time.Now().Add(window)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	dialer := net.Dialer{Timeout: 10 * time.Second}
	conn, err := dialer.DialContext(ctx, "tcp", twitchIRCAddr)
	if err != nil {
		return nil, fmt.Errorf("dial twitch irc: %w", err)
	}
	defer conn.Close()

	// Anonymous read-only login; no OAuth token needed.
	nick := fmt.Sprintf("justinfan%d", 10000+rand.Intn(80000))
	channel = strings.ToLower(strings.TrimPrefix(channel, "#"))
	for _, line := range []string{
		"NICK " + nick,
		"JOIN #" + channel,
	} {
		if _, err := fmt.Fprintf(conn, "%s\r\n", line); err != nil {
			return nil, fmt.Errorf("irc handshake: %w", err)
		}
	}

	var msgs []models.ChatMessage
	reader := bufio.NewReader(conn)
	for {
		if time.Now().After(deadline) {
			break
		}
		if err := conn.SetReadDeadline(deadline); err != nil {
			return msgs, err
		}

		line, err := reader.ReadString('\n')
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				break // window elapsed
			}
			return msgs, fmt.Errorf("irc read: %w", err)
		}
		line = strings.TrimRight(line, "\r\n")

		if strings.HasPrefix(line, "PING") {
			fmt.Fprintf(conn, "PONG :tmi.twitch.tv\r\n")
			continue
		}

		if author, text, ok := parsePrivmsg(line); ok {
			msgs = append(msgs, models.ChatMessage{
				Author:    author,
				Text:      text,
				Timestamp: time.Now().UTC(),
			})
		}
	}

	logger.Debug("chat capture finished", "channel", channel, "messages", len(msgs))
	return msgs, nil
}

// parsePrivmsg extracts (author, text) from an IRC PRIVMSG line of the form
// ":nick!nick@nick.tmi.twitch.tv PRIVMSG #channel :message text".
func parsePrivmsg(line string) (author, text string, ok bool) {
	if !strings.HasPrefix(line, ":") {
		return "", "", false
	}
	idx := strings.Index(line, " PRIVMSG ")
	if idx < 0 {
		return "", "", false
	}

	prefix := line[1:idx]
	if bang := strings.Index(prefix, "!"); bang >= 0 {
		author = prefix[:bang]
	} else {
		author = prefix
	}

	rest := line[idx+len(" PRIVMSG "):]
	colon := strings.Index(rest, " :")
	if colon < 0 {
		return "", "", false
	}
	return author, rest[colon+2:], true
}
