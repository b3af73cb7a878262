// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package starter

import (
	"fmt"
	"strconv"
	"strings"
)

// Command is a line of the control protocol.
type Command string

// Control commands. Matching is case-sensitive.
const (
	CommandStart Command = "start"
	CommandStop  Command = "stop"
	CommandReset Command = "reset"
	CommandExit  Command = "exit"
)

// Reply keywords.
const (
	ReplyStarted = "started"
	ReplyStopped = "stopped"
)

// ParseCommand trims line and reports whether it is a known command.
func ParseCommand(line string) (Command, bool) {
	switch cmd := Command(strings.TrimSpace(line)); cmd {
	case CommandStart, CommandStop, CommandReset, CommandExit:
		return cmd, true
	default:
		return cmd, false
	}
}

func startedReply(port int) string {
	return fmt.Sprintf("%s %d\n", ReplyStarted, port)
}

func stoppedReply() string {
	return ReplyStopped + "\n"
}

// parseStartedReply extracts the port of a "started <port>" reply.
func parseStartedReply(line string) (int, error) {
	fields := strings.Fields(line)
	if len(fields) != 2 || fields[0] != ReplyStarted {
		return 0, fmt.Errorf("%w: %q", ErrUnexpectedReply, line)
	}
	port, err := strconv.Atoi(fields[1])
	if err != nil || port <= 0 {
		return 0, fmt.Errorf("%w: invalid port in %q", ErrUnexpectedReply, line)
	}

	return port, nil
}
