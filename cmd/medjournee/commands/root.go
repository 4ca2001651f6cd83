package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/terra-femme/MedJournee/pkg/cli"
)

const appName = "medjournee"

var (
	// Global flags
	cfgFile     string
	contextName string
	outputFile  string
	inputFile   string
	outputJSON  bool
	verbose     bool

	// Global configuration
	globalConfig *cli.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "medjournee",
	Short: "MedJournee medical conversation CLI",
	Long: `MedJournee CLI - speaker identity and journaling for medical visits.

This tool manages the pieces of the MedJournee pipeline:
  - Voice profile enrollment (encrypted, per family)
  - Speaker identification on audio clips
  - Cloud speaker diarization of session recordings
  - Live session capture with transcription and translation
  - Visit journal generation

Configuration is stored in ~/.medjournee/ and supports multiple
contexts, similar to kubectl's context management.

Examples:
  # Set up a new context
  medjournee config add-context home --diarization-key KEY --openai-key KEY

  # Enroll a family member's voice
  medjournee enroll add "Grandma Rose" -f sample.wav --family fam-1

  # Run a recorded visit through diarization
  medjournee diarize -f visit.wav --json | jq '.[].speaker_role'
`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global persistent flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "", "", "config file (default is ~/.medjournee/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&contextName, "context", "c", "", "context name to use")
	rootCmd.PersistentFlags().StringVarP(&outputFile, "output", "o", "", "output file (default: stdout)")
	rootCmd.PersistentFlags().StringVarP(&inputFile, "file", "f", "", "input audio or request file")
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "output as JSON (for piping)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	// Add subcommands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(enrollCmd)
	rootCmd.AddCommand(identifyCmd)
	rootCmd.AddCommand(diarizeCmd)
	rootCmd.AddCommand(transcribeCmd)
	rootCmd.AddCommand(translateCmd)
	rootCmd.AddCommand(sessionCmd)
}

func initConfig() {
	var err error
	globalConfig, err = cli.LoadConfigWithPath(appName, cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing config: %v\n", err)
		os.Exit(1)
	}
}

// getConfig returns the global configuration
func getConfig() *cli.Config {
	return globalConfig
}

// getContext returns the context configuration to use
func getContext() (*cli.Context, error) {
	cfg := getConfig()
	if cfg == nil {
		return nil, fmt.Errorf("configuration not initialized")
	}

	ctx, err := cfg.ResolveContext(contextName)
	if err != nil {
		if contextName == "" {
			return nil, fmt.Errorf("no context specified. Use -c flag or set a default context with 'medjournee config use-context'")
		}
		return nil, err
	}

	return ctx, nil
}

// getInputFile returns the input file path
func getInputFile() string {
	return inputFile
}

// getOutputFile returns the output file path
func getOutputFile() string {
	return outputFile
}

// isJSONOutput returns whether output should be JSON
func isJSONOutput() bool {
	return outputJSON
}

// outputResult outputs the result using cli package
func outputResult(result any, outputPath string, asJSON bool) error {
	format := cli.FormatYAML
	if asJSON {
		format = cli.FormatJSON
	}
	return cli.Output(result, cli.OutputOptions{
		Format: format,
		File:   outputPath,
	})
}

// printVerbose prints verbose output if enabled
func printVerbose(format string, args ...any) {
	cli.PrintVerbose(verbose, format, args...)
}
