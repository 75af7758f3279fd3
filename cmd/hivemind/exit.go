package main

import (
	"errors"
	"strings"

	"github.com/MikeSquared-Agency/hivemind/internal/ingest"
)

// Process exit codes.
const (
	exitOK              = 0
	exitError           = 1
	exitDecode          = 2
	exitUnsupported     = 3
	exitSinkUnavailable = 4
	exitUsage           = 5
)

// usageError marks bad arguments or flags.
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }

func (e *usageError) Unwrap() error { return e.err }

func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var ue *usageError
	if errors.As(err, &ue) {
		return exitUsage
	}
	// cobra reports unknown subcommands as plain errors.
	if strings.HasPrefix(err.Error(), "unknown command") {
		return exitUsage
	}

	switch ingest.ErrorKind(err) {
	case ingest.KindDecode:
		return exitDecode
	case ingest.KindUnsupportedFormat:
		return exitUnsupported
	case ingest.KindSinkUnavailable:
		return exitSinkUnavailable
	default:
		return exitError
	}
}
