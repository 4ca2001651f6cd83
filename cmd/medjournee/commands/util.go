package commands

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"google.golang.org/genai"

	"github.com/terra-femme/MedJournee/pkg/audio/pcm"
	"github.com/terra-femme/MedJournee/pkg/cli"
	"github.com/terra-femme/MedJournee/pkg/diarize"
	"github.com/terra-femme/MedJournee/pkg/kv"
	"github.com/terra-femme/MedJournee/pkg/recording"
	"github.com/terra-femme/MedJournee/pkg/translate"
	"github.com/terra-femme/MedJournee/pkg/voiceprint"
)

// Environment variables consulted when the context has no key configured.
const (
	envDiarizationKey = "ASSEMBLYAI_API_KEY"
	envOpenAIKey      = "OPENAI_API_KEY"
	envGeminiKey      = "GEMINI_API_KEY"
	envEnrollmentKey  = "MEDJOURNEE_ENROLLMENT_KEY"
)

// loadRequest loads a request from a YAML or JSON file. "-" reads from
// stdin.
func loadRequest(path string, v any) error {
	if path == "-" {
		return cli.LoadRequestFromStdin(v)
	}
	return cli.LoadRequest(path, v)
}

// requireInputFile checks if input file is provided
func requireInputFile() error {
	if getInputFile() == "" {
		return fmt.Errorf("input file is required, use -f flag")
	}
	return nil
}

// loadClip reads a WAV file into a PCM clip
func loadClip(path string, origin pcm.Source) (pcm.Clip, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return pcm.Clip{}, fmt.Errorf("failed to read audio file: %w", err)
	}
	clip, err := pcm.DecodeWAV(data, origin)
	if err != nil {
		return pcm.Clip{}, fmt.Errorf("%s: %w", path, err)
	}
	return clip, nil
}

// openDB opens the local profile and session database for the context
func openDB(ctx *cli.Context) (kv.Store, error) {
	dir := ctx.DataDir
	if dir == "" {
		paths, err := cli.NewPaths()
		if err != nil {
			return nil, err
		}
		if err := paths.EnsureDataDir(); err != nil {
			return nil, err
		}
		dir = paths.DataDir()
	}
	return kv.OpenBadger(kv.BadgerOptions{Dir: dir})
}

// enrollmentKey resolves the hex-encoded profile encryption key
func enrollmentKey(ctx *cli.Context) ([]byte, error) {
	raw := ctx.EnrollmentKey
	if raw == "" {
		raw = os.Getenv(envEnrollmentKey)
	}
	if raw == "" {
		return nil, fmt.Errorf("no enrollment key configured. Run 'medjournee enroll keygen' and store the key in the context or %s", envEnrollmentKey)
	}
	key, err := hex.DecodeString(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("enrollment key is not valid hex: %w", err)
	}
	return key, nil
}

// newVoiceStore opens the encrypted voice profile store
func newVoiceStore(ctx *cli.Context, db kv.Store) (*voiceprint.Store, error) {
	key, err := enrollmentKey(ctx)
	if err != nil {
		return nil, err
	}
	return voiceprint.NewStore(db, key)
}

// newDiarizeClient creates a diarization API client from context configuration
func newDiarizeClient(ctx *cli.Context) (*diarize.Client, error) {
	key := ctx.Diarization.Key(envDiarizationKey)
	if key == "" {
		return nil, fmt.Errorf("no diarization API key configured. Set it in the context or %s", envDiarizationKey)
	}
	var opts []diarize.Option
	if url := ctx.Diarization.URL(); url != "" {
		opts = append(opts, diarize.WithBaseURL(url))
	}
	return diarize.NewClient(key, opts...), nil
}

// newOpenAIClient creates an OpenAI client for transcription and journals
func newOpenAIClient(ctx *cli.Context) (openai.Client, error) {
	key := ctx.OpenAI.Key(envOpenAIKey)
	if key == "" {
		return openai.Client{}, fmt.Errorf("no OpenAI API key configured. Set it in the context or %s", envOpenAIKey)
	}
	opts := []option.RequestOption{option.WithAPIKey(key)}
	if url := ctx.OpenAI.URL(); url != "" {
		opts = append(opts, option.WithBaseURL(url))
	}
	return openai.NewClient(opts...), nil
}

// newTranslator creates a Gemini-backed translator
func newTranslator(ctx context.Context, cliCtx *cli.Context) (*translate.Translator, error) {
	key := cliCtx.Gemini.Key(envGeminiKey)
	if key == "" {
		return nil, fmt.Errorf("no Gemini API key configured. Set it in the context or %s", envGeminiKey)
	}
	cfg := &genai.ClientConfig{APIKey: key, Backend: genai.BackendGeminiAPI}
	if url := cliCtx.Gemini.URL(); url != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: url}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return translate.New(client), nil
}

// newRecordingStore creates the recording blob store for the context
func newRecordingStore(ctx *cli.Context) (*recording.Store, error) {
	rc := ctx.Recordings
	if rc == nil || rc.Backend == "" || rc.Backend == "local" {
		dir := ""
		if rc != nil {
			dir = rc.Dir
		}
		if dir == "" {
			paths, err := cli.NewPaths()
			if err != nil {
				return nil, err
			}
			dir = paths.RecordingsDir()
		}
		blobs, err := recording.NewLocal(dir)
		if err != nil {
			return nil, err
		}
		return recording.NewStore(blobs), nil
	}

	if rc.Backend != "s3" {
		return nil, fmt.Errorf("unknown recordings backend %q", rc.Backend)
	}
	if rc.Bucket == "" {
		return nil, fmt.Errorf("recordings backend s3 requires a bucket")
	}
	region := os.Getenv("AWS_REGION")
	if region == "" {
		region = "us-east-1"
	}
	creds := aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
		return aws.Credentials{
			AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
			SessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
		}, nil
	})
	client := s3.New(s3.Options{Region: region, Credentials: creds})
	return recording.NewStore(recording.NewS3(client, rc.Bucket, rc.Prefix)), nil
}

// formatDuration formats milliseconds to human readable string
func formatDuration(ms int) string {
	return cli.FormatDuration(ms)
}
