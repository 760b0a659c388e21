package control

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"agrivoice/internal/assistant"
	"agrivoice/internal/config"
	"agrivoice/internal/doctor"
	"agrivoice/internal/run"
	"agrivoice/internal/speech"
	"agrivoice/internal/speech/listen"
	"agrivoice/internal/speech/speak"
	"agrivoice/internal/weather"

	"github.com/spf13/cobra"
)

// NewChatCmd starts the interactive assistant.
func NewChatCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Talk to the farming assistant (text and voice)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := load(*cfgPath)
			if err != nil {
				return err
			}
			return run.Serve(cfg, logger)
		},
	}
}

// NewAskCmd asks a single question.
func NewAskCmd(cfgPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask one farming question",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := load(*cfgPath)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			asst, err := assistant.FromConfig(ctx, cfg, logger)
			if err != nil {
				return err
			}
			if err := asst.SubmitText(ctx, strings.Join(args, " ")); err != nil {
				return err
			}
			s := asst.Snapshot()
			if s.LastError != "" {
				return errors.New(s.LastError)
			}
			answer := s.Messages[len(s.Messages)-1]
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), answer.Text)

			if wantSpeak, _ := cmd.Flags().GetBool("speak"); wantSpeak {
				if err := asst.Vocalize(ctx, answer.ID); err != nil {
					return err
				}
				return asst.WaitSpeech(ctx)
			}
			return nil
		},
	}
	cmd.Flags().Bool("speak", false, "read the answer aloud")
	return cmd
}

// NewWeatherCmd prints current conditions and the forecast for a city.
func NewWeatherCmd(cfgPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "weather <city>",
		Short: "Current weather and 5-day forecast",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := load(*cfgPath)
			if err != nil {
				return err
			}
			report, err := weather.NewFromConfig(cfg, logger).Lookup(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(report)
			}
			return report.WriteText(cmd.OutOrStdout())
		},
	}
	cmd.Flags().Bool("json", false, "output JSON")
	return cmd
}

// NewSpeakCmd reads text aloud with the configured synthesizer.
func NewSpeakCmd(cfgPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "speak <text>",
		Short: "Read text aloud",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := load(*cfgPath)
			if err != nil {
				return err
			}
			synth, err := speak.FromConfig(cfg, logger)
			if err != nil {
				return err
			}
			lang := cfg.Language.Code
			if l, _ := cmd.Flags().GetString("lang"); l != "" {
				lang = l
			}
			a := speak.New(synth, lang, logger)
			if err := a.Speak(cmd.Context(), strings.Join(args, " ")); err != nil {
				return err
			}
			if err := a.Wait(cmd.Context()); err != nil {
				_ = a.Cancel()
				return err
			}
			return nil
		},
	}
	cmd.Flags().String("lang", "", "language code (defaults to config)")
	return cmd
}

// NewListenCmd captures one utterance and prints it, optionally asking it.
func NewListenCmd(cfgPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Capture one spoken question",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := load(*cfgPath)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			if wantAsk, _ := cmd.Flags().GetBool("ask"); wantAsk {
				asst, err := assistant.FromConfig(ctx, cfg, logger)
				if err != nil {
					return err
				}
				if err := asst.SubmitVoice(ctx); err != nil {
					return err
				}
				_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "listening...")
				if err := asst.WaitListening(ctx); err != nil {
					asst.StopListening()
					return err
				}
				s := asst.Snapshot()
				if s.LastTranscript == "" {
					return errors.New("nothing heard")
				}
				_, _ = fmt.Fprintf(out, "you: %s\n", s.LastTranscript)
				if s.LastError != "" {
					return errors.New(s.LastError)
				}
				_, _ = fmt.Fprintln(out, s.Messages[len(s.Messages)-1].Text)
				return nil
			}

			rec, err := listen.FromConfig(cfg, logger)
			if err != nil {
				return err
			}
			a := listen.New(rec, cfg.Language.Code, logger)
			if err := a.Start(ctx); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "listening...")
			if err := a.Wait(ctx); err != nil {
				a.Stop()
				return err
			}
			text := a.LastTranscript()
			if text == "" {
				return errors.New("nothing heard")
			}
			_, _ = fmt.Fprintln(out, text)
			return nil
		},
	}
	cmd.Flags().Bool("ask", false, "ask the recognized question")
	return cmd
}

// NewLangCmd lists or sets the application language.
func NewLangCmd(cfgPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "lang",
		Aliases: []string{"language"},
		Short:   "List or set the language",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List supported languages",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			for _, l := range speech.Languages() {
				mark := " "
				if l.Code == cfg.Language.Code {
					mark = "*"
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s %s  %-10s %s\n", mark, l.Code, l.Name, l.Locale)
			}
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "set <code>",
		Short: "Set the language in config",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			code := strings.ToLower(strings.TrimSpace(args[0]))
			if !speech.IsKnownLanguage(code) {
				return fmt.Errorf("unknown language %q; run `agrivoice lang list`", code)
			}
			cfg.Language.Code = code
			if err := config.Save(cfg, cfg.Paths.ConfigPath); err != nil {
				return err
			}
			cmd.Printf("language set to %s (%s) in %s\n", code, speech.LocaleFor(code), cfg.Paths.ConfigPath)
			return nil
		},
	})
	return cmd
}

// NewDiseaseCmd is the plant disease recognition entry point.
func NewDiseaseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "disease [image]",
		Short: "Plant disease recognition (coming soon)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				if _, err := os.Stat(args[0]); err != nil {
					return err
				}
			}
			cmd.Println("Plant disease recognition is coming soon.")
			return nil
		},
	}
}

// NewTailLogCmd tails the main log file (simple last N lines).
func NewTailLogCmd(cfgPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tail-log",
		Short: "Show last log lines",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			n, _ := cmd.Flags().GetInt("lines")
			return tailFile(cmd, cfg.Paths.LogPath, n)
		},
	}
	cmd.Flags().IntP("lines", "n", 50, "number of lines")
	return cmd
}

func tailFile(cmd *cobra.Command, path string, n int) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	lines := strings.Split(string(data), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), l)
		}
	}
	return nil
}

// NewDoctorCmd runs environment checks.
func NewDoctorCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check keys, speech backends and model",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := load(*cfgPath)
			if err != nil {
				return err
			}
			results := doctor.Run(cfg, logger)
			failed := false
			for _, r := range results {
				status := "ok"
				if !r.Pass {
					status = "fail"
					failed = true
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%-14s %-4s %s\n", r.Name, status, r.Detail)
			}
			if failed {
				return fmt.Errorf("doctor found issues")
			}
			return nil
		},
	}
}
