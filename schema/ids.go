package schema

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// now is replaced in tests.
var now = time.Now

const suffixLen = 7

// NewThreadID returns a locally generated thread id of the form thread-<ms>-<suffix>.
func NewThreadID() ThreadID {
	return ThreadID(fmt.Sprintf("thread-%d-%s", now().UnixMilli(), randomSuffix()))
}

// NewRunID returns a locally generated run id of the form <ms>-<suffix>.
func NewRunID() RunID {
	return RunID(timestampID())
}

// NewMessageID returns a locally generated message id of the form <ms>-<suffix>.
func NewMessageID() MessageID {
	return MessageID(timestampID())
}

// NewUserMessageID returns the id given to a message typed by the user.
func NewUserMessageID() MessageID {
	return MessageID(fmt.Sprintf("user-%d", now().UnixMilli()))
}

// PlaceholderPrefix marks assistant message ids assigned before the server names the message.
const PlaceholderPrefix = "temp-assistant"

// NewPlaceholderID returns a local id for an assistant message not yet started by the server.
func NewPlaceholderID() MessageID {
	return MessageID(PlaceholderPrefix + "-" + randomSuffix())
}

// IsPlaceholder reports whether id was produced by NewPlaceholderID.
func IsPlaceholder(id MessageID) bool {
	return strings.HasPrefix(string(id), PlaceholderPrefix)
}

func timestampID() string {
	return fmt.Sprintf("%d-%s", now().UnixMilli(), randomSuffix())
}

func randomSuffix() string {
	id := uuid.New()
	value := strconv.FormatUint(binary.BigEndian.Uint64(id[8:]), 36)
	if len(value) < suffixLen {
		value = strings.Repeat("0", suffixLen-len(value)) + value
	}
	return value[len(value)-suffixLen:]
}
