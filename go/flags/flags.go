package flags

import (
	"errors"
	"fmt"
	"os"

	"github.com/jessevdk/go-flags"
)

// Parse parses os.Args and env into opts.
func Parse(opts any) error {
	return ParseArgs(opts, os.Args[1:])
}

// ParseArgs parses the given args into opts.
func ParseArgs(opts any, args []string) error {
	if _, err := flags.ParseArgs(opts, args); err != nil {
		return fmt.Errorf("parsing flags: %w", err)
	}
	return nil
}

// IsHelp reports whether err was returned because --help was requested.
func IsHelp(err error) bool {
	var flagsErr *flags.Error
	return errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp
}
