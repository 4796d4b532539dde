package httpapi

import (
	"time"

	"pkt.systems/agstream/schema"
)

// Config defines the reference chat server settings.
type Config struct {
	Addr      string
	BasePath  string
	Delay     time.Duration
	StorePath string
	UserID    schema.UserID
}
