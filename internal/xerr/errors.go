// Package xerr defines the update engine's error kind taxonomy as
// sentinel errors, wrapped with fmt.Errorf("...: %w", err) at each layer
// boundary.
package xerr

import "errors"

var (
	ErrConfigMissing     = errors.New("config-missing")
	ErrManifestMalformed = errors.New("manifest-malformed")
	ErrMirrorExhausted   = errors.New("mirror-exhausted")
	ErrTransportFailed   = errors.New("transport-failed")
	ErrHashMismatch      = errors.New("hash-mismatch")
	ErrDecompressFailed  = errors.New("decompress-failed")
	ErrScriptStepFailed  = errors.New("script-step-failed")
	ErrFilesystemFailed  = errors.New("filesystem-failed")
	ErrMutexTimeout      = errors.New("mutex-timeout")
	ErrLauncherMissing   = errors.New("launcher-missing")
	ErrCancelled         = errors.New("cancelled")
	ErrTooManyRetries    = errors.New("too many retries")
	ErrBusy              = errors.New("update already in progress")
)
