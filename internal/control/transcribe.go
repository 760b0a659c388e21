package control

import (
	"errors"
	"fmt"
	"strings"

	"agrivoice/internal/assistant"
	"agrivoice/internal/speech/listen"

	"github.com/spf13/cobra"
)

// NewTranscribeCmd transcribes a WAV file with whisper and optionally asks
// the result.
func NewTranscribeCmd(cfgPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transcribe <wavfile>",
		Short: "Transcribe a WAV file (whisper build)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := load(*cfgPath)
			if err != nil {
				return err
			}
			samples, err := listen.ReadWAV(args[0])
			if err != nil {
				return err
			}
			logger.Debugf("transcribing %d samples from %s", len(samples), args[0])
			txt, err := listen.TranscribeSamples(cfg.SpeechInput.ModelPath, cfg.Language.Code, samples)
			if err != nil {
				return err
			}
			txt = strings.TrimSpace(txt)
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), txt)

			if wantAsk, _ := cmd.Flags().GetBool("ask"); !wantAsk {
				return nil
			}
			asst, err := assistant.FromConfig(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			if err := asst.SubmitText(cmd.Context(), txt); err != nil {
				return err
			}
			s := asst.Snapshot()
			if s.LastError != "" {
				return errors.New(s.LastError)
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), s.Messages[len(s.Messages)-1].Text)
			return nil
		},
	}
	cmd.Flags().Bool("ask", false, "ask the transcribed question")
	return cmd
}
