package doctor

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"agrivoice/internal/command"
	"agrivoice/internal/config"
	"agrivoice/internal/speech"
	"agrivoice/internal/speech/listen"
	"agrivoice/internal/speech/speak"

	"github.com/sirupsen/logrus"
)

// Result represents a diagnostic check.
type Result struct {
	Name   string
	Pass   bool
	Detail string
}

// Run executes doctor checks.
func Run(cfg *config.Config, logger *logrus.Logger) []Result {
	results := []Result{
		checkFile("config path", cfg.Paths.ConfigPath),
		checkSecret("gemini key", cfg.Assistant.APIKey, "GEMINI_API_KEY"),
		checkSecret("weather key", cfg.Weather.APIKey, "OPENWEATHER_API_KEY"),
		checkLanguage(cfg.Language.Code),
		checkRecognizer(cfg, logger),
		checkSynthesizer(cfg, logger),
	}
	if strings.EqualFold(cfg.SpeechInput.Backend, "whisper") {
		results = append(results,
			checkFile("model file", cfg.SpeechInput.ModelPath),
			checkPortAudioPkgConfig(),
			checkPortAudio(),
		)
	}
	return results
}

func checkFile(label, path string) Result {
	if path == "" {
		return Result{Name: label, Pass: false, Detail: "not set"}
	}
	if _, err := os.Stat(os.ExpandEnv(path)); err != nil {
		return Result{Name: label, Pass: false, Detail: err.Error()}
	}
	return Result{Name: label, Pass: true, Detail: path}
}

func checkSecret(label, value, env string) Result {
	if strings.TrimSpace(value) == "" {
		return Result{Name: label, Pass: false, Detail: fmt.Sprintf("not set (config or %s)", env)}
	}
	return Result{Name: label, Pass: true, Detail: mask(value)}
}

func mask(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return strings.Repeat("*", len(s)-4) + s[len(s)-4:]
}

func checkLanguage(code string) Result {
	if !speech.IsKnownLanguage(code) {
		return Result{Name: "language", Pass: false, Detail: fmt.Sprintf("%q has no speech locale; falls back to %s", code, speech.DefaultLocale)}
	}
	return Result{Name: "language", Pass: true, Detail: fmt.Sprintf("%s (%s)", code, speech.LocaleFor(code))}
}

func checkRecognizer(cfg *config.Config, logger *logrus.Logger) Result {
	label := "speech input"
	rec, err := listen.FromConfig(cfg, logger)
	if err != nil {
		return Result{Name: label, Pass: false, Detail: err.Error()}
	}
	backend := cfg.SpeechInput.Backend
	if rec.Supported() {
		return Result{Name: label, Pass: true, Detail: backend}
	}
	if backend == "command" {
		return checkExecutable(label, cfg.SpeechInput.Command, "set speech_input.command to a recognizer that prints text")
	}
	return Result{Name: label, Pass: false, Detail: backend + " backend unavailable"}
}

func checkSynthesizer(cfg *config.Config, logger *logrus.Logger) Result {
	label := "speech output"
	synth, err := speak.FromConfig(cfg, logger)
	if err != nil {
		return Result{Name: label, Pass: false, Detail: err.Error()}
	}
	if synth.Supported() {
		return Result{Name: label, Pass: true, Detail: cfg.SpeechOutput.Command}
	}
	if cfg.SpeechOutput.Backend == "command" {
		return checkExecutable(label, cfg.SpeechOutput.Command, "install espeak-ng or set speech_output.command")
	}
	return Result{Name: label, Pass: false, Detail: cfg.SpeechOutput.Backend + " backend unavailable"}
}

func checkExecutable(label, cmd, hint string) Result {
	if cmd == "" {
		return Result{Name: label, Pass: false, Detail: "not set; " + hint}
	}
	resolved, err := command.Resolve(cmd)
	if err != nil {
		return Result{Name: label, Pass: false, Detail: fmt.Sprintf("%v; %s", err, hint)}
	}
	return Result{Name: label, Pass: true, Detail: resolved}
}

func checkPortAudioPkgConfig() Result {
	pkg, err := exec.LookPath("pkg-config")
	if err != nil {
		return Result{Name: "pkg-config", Pass: false, Detail: "pkg-config not found"}
	}
	cmd := exec.Command(pkg, "--exists", "portaudio-2.0")
	if err := cmd.Run(); err != nil {
		return Result{Name: "portaudio", Pass: false, Detail: "portaudio-2.0 not found (apt install portaudio19-dev / brew install portaudio)"}
	}
	versionCmd := exec.Command(pkg, "--modversion", "portaudio-2.0")
	if out, err := versionCmd.Output(); err == nil {
		return Result{Name: "portaudio", Pass: true, Detail: strings.TrimSpace(string(out))}
	}
	return Result{Name: "portaudio", Pass: true, Detail: "found via pkg-config"}
}
