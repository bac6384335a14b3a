package storage

import (
	"fmt"
	"strings"
	"time"
)

// Kind selects a store backend.
type Kind string

const (
	KindRedis  Kind = "redis"
	KindFile   Kind = "filesystem"
	KindMemory Kind = "memory"
)

// String returns the string representation of Kind.
func (k Kind) String() string {
	return string(k)
}

// IsValid checks if the kind is a known backend.
func (k Kind) IsValid() bool {
	return k == KindRedis || k == KindFile || k == KindMemory
}

// ParseKind parses a backend name as used on the command line.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if !k.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
	return k, nil
}

// OutputSuffix is appended to the file path of the output-side connection
// when a file-backed run needs separate input and output handles.
const OutputSuffix = ".results"

// Config describes how to reach a store.
type Config struct {
	Kind Kind

	// Redis
	Host               string
	Port               int // default 6380 (TLS)
	Password           string
	TLS                bool
	InsecureSkipVerify bool
	DB                 int
	PoolSize           int
	DialTimeout        time.Duration

	// File
	Path string
}

// Default redis settings.
const (
	DefaultRedisPort   = 6380
	DefaultDialTimeout = 5 * time.Second
)
