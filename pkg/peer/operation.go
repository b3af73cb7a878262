// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package peer

import (
	"fmt"
	"strings"
)

// Operation selects how a worker answers application data.
type Operation string

// Operations.
const (
	// OperationBasic completes the handshake and answers nothing.
	OperationBasic Operation = "basic"
	// OperationAck answers every message with ACK.
	OperationAck Operation = "ack"
	// OperationFull echoes every message.
	OperationFull Operation = "full"
	// OperationOneEcho echoes the first message and then stops the worker.
	OperationOneEcho Operation = "one_echo"
	// OperationOneMessage makes a client send one message and stop once it
	// is answered. Servers treat it like OperationBasic.
	OperationOneMessage Operation = "one_message"
)

var ackMessage = []byte("ACK") //nolint:gochecknoglobals

// ParseOperation parses the name of an Operation, ignoring case.
func ParseOperation(s string) (Operation, error) {
	op := Operation(strings.ToLower(strings.TrimSpace(s)))
	if !op.valid() {
		return "", fmt.Errorf("%w: %q", errUnknownOperation, s)
	}

	return op, nil
}

func (o Operation) valid() bool {
	switch o {
	case OperationBasic, OperationAck, OperationFull, OperationOneEcho, OperationOneMessage:
		return true
	}

	return false
}

// respond returns the answer to msg, if any, and whether the worker is done
// once it has been sent.
func (o Operation) respond(msg []byte, isClient bool) ([]byte, bool) {
	switch o {
	case OperationAck:
		return ackMessage, false
	case OperationFull:
		return msg, false
	case OperationOneEcho:
		return msg, true
	case OperationOneMessage:
		return nil, isClient
	default:
		return nil, false
	}
}
