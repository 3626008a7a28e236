package exitcode

import (
	"context"
	"errors"
	"os"

	rferrors "github.com/felixgeelhaar/runeforge/internal/errors"
)

// Exit codes for consistent error handling across the CLI
const (
	// Success indicates successful execution
	Success = 0

	// InputError indicates a blueprint, rules or usage problem, or any uncoded failure
	InputError = 1

	// OutputError indicates the produced plan failed its schema or an internal invariant
	OutputError = 2

	// NoEligibleCandidate indicates one or more topics had nothing left after filtering
	NoEligibleCandidate = 3

	// Interrupted indicates the process was stopped by SIGINT/SIGTERM
	Interrupted = 130
)

// Exit terminates the program with the given exit code
func Exit(code int) {
	os.Exit(code)
}

// ExitWithError exits with an appropriate code based on error type
func ExitWithError(err error) {
	if err == nil {
		Exit(Success)
		return
	}

	Exit(DetermineExitCode(err))
}

// DetermineExitCode maps an error to an exit code by the category of the
// RuneforgeError in its chain.
func DetermineExitCode(err error) int {
	if err == nil {
		return Success
	}

	if errors.Is(err, context.Canceled) {
		return Interrupted
	}

	code, ok := rferrors.CodeOf(err)
	if !ok {
		return InputError
	}

	switch code.Category() {
	case "SELECT":
		if code == rferrors.ErrCodeNoEligibleCandidate {
			return NoEligibleCandidate
		}
		return InputError
	case "PLAN":
		return OutputError
	case "IO":
		if code == rferrors.ErrCodeFileWriteFailed {
			return OutputError
		}
		return InputError
	default:
		return InputError
	}
}

// GetExitCodeDescription returns a human-readable description of an exit code
func GetExitCodeDescription(code int) string {
	switch code {
	case Success:
		return "Success"
	case InputError:
		return "Input error (blueprint, rules or arguments)"
	case OutputError:
		return "Output error (plan failed schema or invariant checks)"
	case NoEligibleCandidate:
		return "No eligible candidate for one or more topics"
	case Interrupted:
		return "Interrupted"
	default:
		return "Unknown error"
	}
}
