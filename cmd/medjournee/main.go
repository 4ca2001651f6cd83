// Command medjournee manages voice enrollment, speaker identification,
// and medical conversation sessions.
//
// Usage:
//
//	medjournee [flags] <service> <command> [args]
//
// Services:
//
//	enroll     - Voice profile enrollment
//	identify   - Speaker identification on audio clips
//	diarize    - Speaker diarization of session recordings
//	transcribe - Speech-to-text for live audio chunks
//	translate  - Text translation
//	session    - Live session lifecycle and journal generation
//	config     - Configuration management
//
// Configuration:
//
//	The CLI stores configuration in ~/.medjournee/
//	Use 'medjournee config' commands to manage contexts.
package main

import (
	"fmt"
	"os"

	"github.com/terra-femme/MedJournee/cmd/medjournee/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
