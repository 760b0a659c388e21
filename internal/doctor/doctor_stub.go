//go:build !whisper

package doctor

func checkPortAudio() Result {
	return Result{Name: "audio init", Pass: false, Detail: "build with '-tags whisper' for microphone capture"}
}
