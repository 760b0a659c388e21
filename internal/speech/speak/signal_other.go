//go:build !unix

package speak

import (
	"os"

	"agrivoice/internal/speech"
)

func stopProcess(*os.Process) error {
	return &speech.UnsupportedError{Capability: "pause", Reason: "process signals are unix-only"}
}

func continueProcess(*os.Process) error {
	return &speech.UnsupportedError{Capability: "resume", Reason: "process signals are unix-only"}
}
