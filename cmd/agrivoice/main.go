package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"agrivoice/internal/control"

	"github.com/spf13/cobra"
)

const version = "0.1.0"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	root := &cobra.Command{
		Use:   "agrivoice",
		Short: "AgriVoice, a voice farming assistant for Indian farmers",
		Long: `AgriVoice answers farming questions in seven Indian languages. Ask by typing or by voice,
hear answers read aloud, and check the local weather before heading to the field.

Key commands:
  chat                      Interactive assistant (text + voice)
  ask "question" [--speak]  One question, optionally read aloud
  weather <city> [--json]   Current conditions + 5-day forecast
  lang list|set             Application language
  mic list|set              Select microphone (alias: microphone, mics)
  doctor|setup              Check keys/backends, download a whisper model

Notable env:
  GEMINI_API_KEY, OPENWEATHER_API_KEY, AGRIVOICE_LANG,
  AGRIVOICE_LOG_LEVEL/FORMAT`,
		Example: `  agrivoice chat
  agrivoice ask "When should I sow wheat in Punjab?" --speak
  agrivoice weather Nashik
  agrivoice lang set hi
  agrivoice setup`,
		DisableFlagsInUseLine: true,
		SilenceUsage:          true,
		SilenceErrors:         true,
	}

	root.Version = version
	root.SetVersionTemplate("AgriVoice v{{.Version}}\n")

	cfgPath := root.PersistentFlags().StringP("config", "c", "", "Path to config file (TOML). Defaults to ~/.config/agrivoice/config.toml")
	root.CompletionOptions.DisableDefaultCmd = true

	root.AddCommand(control.NewChatCmd(cfgPath))
	root.AddCommand(control.NewAskCmd(cfgPath))
	root.AddCommand(control.NewWeatherCmd(cfgPath))
	root.AddCommand(control.NewSpeakCmd(cfgPath))
	root.AddCommand(control.NewListenCmd(cfgPath))
	root.AddCommand(control.NewTranscribeCmd(cfgPath))
	root.AddCommand(control.NewLangCmd(cfgPath))
	root.AddCommand(control.NewMicCmd(cfgPath))
	root.AddCommand(control.NewModelsCmd(cfgPath))
	root.AddCommand(control.NewSetupCmd(cfgPath))
	root.AddCommand(control.NewDoctorCmd(cfgPath))
	root.AddCommand(control.NewDiseaseCmd())
	root.AddCommand(control.NewTailLogCmd(cfgPath))

	applyColorHelp(root)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return root.ExecuteContext(ctx)
}

func applyColorHelp(root *cobra.Command) {
	const (
		boldGreen = "\033[1;32m"
		green     = "\033[32m"
		bold      = "\033[1m"
		dim       = "\033[2m"
		reset     = "\033[0m"
	)
	root.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		if cmd != root {
			// Subcommands keep cobra's default layout.
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), cmd.UsageString())
			return
		}
		out := cmd.OutOrStdout()
		write := func(format string, args ...any) { _, _ = fmt.Fprintf(out, format, args...) }
		writeln := func(line string) { _, _ = fmt.Fprintln(out, line) }

		write("%sAgriVoice%s farming assistant %s(v%s)%s\n", boldGreen, reset, dim, version, reset)
		write("%sAsk by text or voice, hear the answer, check the weather.%s\n\n", dim, reset)

		write("%sUsage%s\n", bold, reset)
		write("  agrivoice [command] [flags]\n\n")

		write("%sKey commands%s\n", bold, reset)
		writeln("  chat                        interactive assistant (/help inside)")
		writeln("  ask \"question\" [--speak]    one question, optionally read aloud")
		writeln("  weather <city> [--json]     current conditions + 5-day forecast")
		writeln("  speak \"text\"                read text aloud")
		writeln("  listen [--ask]              capture one spoken question")
		writeln("  lang list|set               application language")
		writeln("  mic list|set                select input device (alias: microphone, mics)")
		writeln("  doctor                      check keys, speech backends, model")
		writeln("  setup [model]               download whisper model, enable voice input")
		writeln("  models list|download|set    manage whisper.cpp models")
		writeln("  tail-log                    show last log lines")
		writeln("")

		write("%sNotable flags & env%s\n", bold, reset)
		writeln("  -c, --config <path>     config file (default ~/.config/agrivoice/config.toml)")
		writeln("  Env: GEMINI_API_KEY, OPENWEATHER_API_KEY, AGRIVOICE_LANG=hi,")
		writeln("       AGRIVOICE_LOG_LEVEL=debug, AGRIVOICE_LOG_FORMAT=json")
		writeln("")

		write("%sExamples%s\n", bold, reset)
		writeln("  agrivoice chat")
		writeln("  agrivoice ask \"How much urea for one acre of paddy?\" --speak")
		writeln("  agrivoice weather Nashik")
		writeln("  agrivoice lang set te")
		writeln("  agrivoice setup ggml-small-q5_1.bin")
		writeln("")

		write("%sCommands%s\n", bold, reset)
		for _, c := range cmd.Commands() {
			if c.Hidden {
				continue
			}
			write("  %s%-15s%s %s\n", green, c.Name(), reset, c.Short)
		}
	})
}
