package config

import "fmt"

// ErrOpenFile represents an error when opening a settings file.
type ErrOpenFile struct {
	Filename string
	Err      error
}

func (e *ErrOpenFile) Error() string {
	return fmt.Sprintf("error opening settings file %q: %v", e.Filename, e.Err)
}

func (e *ErrOpenFile) Unwrap() error {
	return e.Err
}

// ErrInvalidEnv represents an environment variable that cannot be parsed.
type ErrInvalidEnv struct {
	Name  string
	Value string
	Err   error
}

func (e *ErrInvalidEnv) Error() string {
	return fmt.Sprintf("invalid value %q for %s: %v", e.Value, e.Name, e.Err)
}

func (e *ErrInvalidEnv) Unwrap() error {
	return e.Err
}
