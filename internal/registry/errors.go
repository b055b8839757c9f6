package registry

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateAlias is matched by *DuplicateAliasError.
	ErrDuplicateAlias = errors.New("duplicate model alias")
	// ErrDuplicateName reports a canonical name already used by another alias.
	ErrDuplicateName = errors.New("duplicate canonical model name")
	// ErrAlreadyLoaded is returned by Register and LoadAll once the load pass has started.
	ErrAlreadyLoaded = errors.New("registry already loaded")
	// ErrNoModelsLoaded is returned by LoadAll when RequireAny is set and nothing loaded.
	ErrNoModelsLoaded = errors.New("no models loaded")
	// ErrTooBusy is matched by queue overflow and admission wait timeouts.
	ErrTooBusy = errors.New("too busy")
	// ErrHandleClosed is returned by Encode after the registry is closed.
	ErrHandleClosed = errors.New("model handle closed")
	// ErrBackendPanic wraps a recovered backend panic.
	ErrBackendPanic = errors.New("backend panic")
	// ErrEmptyName rejects registrations with a blank alias or canonical name.
	ErrEmptyName = errors.New("alias and canonical name are required")
)

// DuplicateAliasError names the alias registered twice.
type DuplicateAliasError struct{ Alias string }

func (e *DuplicateAliasError) Error() string { return fmt.Sprintf("duplicate model alias: %s", e.Alias) }

func (e *DuplicateAliasError) Is(target error) bool { return target == ErrDuplicateAlias }

// LoadError reports the first failed model under PolicyFailFast.
type LoadError struct {
	Alias string
	Err   error
}

func (e *LoadError) Error() string { return fmt.Sprintf("load model %s: %v", e.Alias, e.Err) }

func (e *LoadError) Unwrap() error { return e.Err }

// tooBusyError signals queue overflow or a wait timeout.
type tooBusyError struct{ alias string }

func (e tooBusyError) Error() string { return "too busy: " + e.alias }

func (e tooBusyError) Is(target error) bool { return target == ErrTooBusy }

// IsTooBusy reports whether err indicates backpressure.
func IsTooBusy(err error) bool { return errors.Is(err, ErrTooBusy) }
