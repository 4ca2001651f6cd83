package commands

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/terra-femme/MedJournee/pkg/cli"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage CLI configuration",
	Long: `Manage CLI configuration and contexts.

Contexts allow you to manage multiple deployments (e.g. a personal
setup and a clinic pilot), similar to kubectl's context management.

Configuration is stored in ~/.medjournee/config.yaml`,
}

var configAddContextCmd = &cobra.Command{
	Use:   "add-context <name>",
	Short: "Add a new context",
	Long: `Add a new context with the specified name.

Example:
  medjournee config add-context home \
    --diarization-key AAI_KEY --openai-key OAI_KEY --gemini-key GEM_KEY \
    --language vi`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]

		diarizationKey, _ := cmd.Flags().GetString("diarization-key")
		openaiKey, _ := cmd.Flags().GetString("openai-key")
		geminiKey, _ := cmd.Flags().GetString("gemini-key")
		language, _ := cmd.Flags().GetString("language")
		dataDir, _ := cmd.Flags().GetString("data-dir")
		enrollKey, _ := cmd.Flags().GetString("enrollment-key")
		recordingsDir, _ := cmd.Flags().GetString("recordings-dir")
		s3Bucket, _ := cmd.Flags().GetString("s3-bucket")
		s3Prefix, _ := cmd.Flags().GetString("s3-prefix")

		ctx := &cli.Context{
			DataDir:         dataDir,
			EnrollmentKey:   enrollKey,
			DefaultLanguage: language,
		}
		if diarizationKey != "" {
			ctx.Diarization = &cli.ServiceKey{APIKey: diarizationKey}
		}
		if openaiKey != "" {
			ctx.OpenAI = &cli.ServiceKey{APIKey: openaiKey}
		}
		if geminiKey != "" {
			ctx.Gemini = &cli.ServiceKey{APIKey: geminiKey}
		}
		switch {
		case s3Bucket != "":
			ctx.Recordings = &cli.RecordingConfig{Backend: "s3", Bucket: s3Bucket, Prefix: s3Prefix}
		case recordingsDir != "":
			ctx.Recordings = &cli.RecordingConfig{Backend: "local", Dir: recordingsDir}
		}

		cfg := getConfig()
		if err := cfg.AddContext(name, ctx); err != nil {
			return err
		}

		cli.PrintSuccess("Context %q added successfully", name)
		return nil
	},
}

var configDeleteContextCmd = &cobra.Command{
	Use:   "delete-context <name>",
	Short: "Delete a context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]

		cfg := getConfig()
		if err := cfg.DeleteContext(name); err != nil {
			return err
		}

		cli.PrintSuccess("Context %q deleted", name)
		return nil
	},
}

var configUseContextCmd = &cobra.Command{
	Use:   "use-context <name>",
	Short: "Set the current context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]

		cfg := getConfig()
		if err := cfg.UseContext(name); err != nil {
			return err
		}

		cli.PrintSuccess("Switched to context %q", name)
		return nil
	},
}

var configGetContextCmd = &cobra.Command{
	Use:   "get-context",
	Short: "Display the current context",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfig()

		if cfg.CurrentContext == "" {
			fmt.Println("No current context set")
			return nil
		}

		fmt.Println(cfg.CurrentContext)
		return nil
	},
}

var configListContextsCmd = &cobra.Command{
	Use:     "list-contexts",
	Aliases: []string{"get-contexts"},
	Short:   "List all contexts",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfig()

		if len(cfg.Contexts) == 0 {
			fmt.Println("No contexts configured")
			return nil
		}

		names := cfg.ListContexts()
		sort.Strings(names)

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "CURRENT\tNAME\tDIARIZATION\tOPENAI\tGEMINI\tLANGUAGE")
		for _, name := range names {
			ctx := cfg.Contexts[name]
			current := ""
			if name == cfg.CurrentContext {
				current = "*"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				current, name,
				maskService(ctx.Diarization),
				maskService(ctx.OpenAI),
				maskService(ctx.Gemini),
				ctx.DefaultLanguage)
		}
		return w.Flush()
	},
}

var configViewCmd = &cobra.Command{
	Use:   "view",
	Short: "Display the config file path and contents",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfig()
		fmt.Printf("# %s\n", cfg.Path())
		return outputResult(cfg, getOutputFile(), isJSONOutput())
	},
}

func maskService(svc *cli.ServiceKey) string {
	if svc == nil || svc.APIKey == "" {
		return "-"
	}
	return cli.MaskAPIKey(svc.APIKey)
}

func init() {
	configAddContextCmd.Flags().String("diarization-key", "", "speaker diarization service API key")
	configAddContextCmd.Flags().String("openai-key", "", "OpenAI API key (transcription and journals)")
	configAddContextCmd.Flags().String("gemini-key", "", "Gemini API key (translation)")
	configAddContextCmd.Flags().String("language", "", "default translation target language")
	configAddContextCmd.Flags().String("data-dir", "", "local database directory")
	configAddContextCmd.Flags().String("enrollment-key", "", "hex-encoded 32-byte voice profile encryption key")
	configAddContextCmd.Flags().String("recordings-dir", "", "local directory for session recordings")
	configAddContextCmd.Flags().String("s3-bucket", "", "S3 bucket for session recordings")
	configAddContextCmd.Flags().String("s3-prefix", "", "S3 key prefix for session recordings")

	configCmd.AddCommand(configAddContextCmd)
	configCmd.AddCommand(configDeleteContextCmd)
	configCmd.AddCommand(configUseContextCmd)
	configCmd.AddCommand(configGetContextCmd)
	configCmd.AddCommand(configListContextsCmd)
	configCmd.AddCommand(configViewCmd)
}
