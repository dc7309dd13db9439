package ffmpeg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"

	"github.com/floostack/transcoder"
	"github.com/floostack/transcoder/ffmpeg"
	"github.com/hbomb79/Hermes/pkg/logger"
)

var log = logger.Get("FFmpeg")

var messageMatcher = regexp.MustCompile(`(?s)message: ({.*})`)

type Config struct {
	FfmpegBinPath  string `yaml:"ffmpeg_binary" env:"FFMPEG_BINARY_PATH" env-default:"/usr/bin/ffmpeg"`
	FfprobeBinPath string `yaml:"ffprobe_binary" env:"FFPROBE_BINARY_PATH" env-default:"/usr/bin/ffprobe"`
}

type FfmpegProgress struct {
	CurrentTime    string
	CurrentBitrate string
	Progress       float64
	Speed          string
}

type TranscodeCommand struct {
	inputPath       string
	outputPath      string
	transcodeConfig *Config
	runningCommand  *exec.Cmd
}

func NewCmd(input string, output string, config *Config) *TranscodeCommand {
	return &TranscodeCommand{input, output, config, nil}
}

// Run starts FFmpeg for this command and blocks until the progress
// channel closes. Cancelling the context kills the FFmpeg process.
func (cmd *TranscodeCommand) Run(ctx context.Context, ffmpegConfig transcoder.Options, updateHandler func(*FfmpegProgress)) error {
	transcoder := ffmpeg.
		New(&ffmpeg.Config{
			ProgressEnabled: true,
			FfmpegBinPath:   cmd.transcodeConfig.FfmpegBinPath,
			FfprobeBinPath:  cmd.transcodeConfig.FfprobeBinPath,
		}).
		Input(cmd.inputPath).
		Output(cmd.outputPath).
		WithContext(&ctx)

	if err := os.MkdirAll(filepath.Dir(cmd.outputPath), os.ModeDir|0o755); err != nil {
		return fmt.Errorf("failed to create output directory for %s: %w", cmd.outputPath, err)
	}

	progressChannel, err := transcoder.Start(ffmpegConfig)
	if err != nil {
		return parseFfmpegError(err)
	}

	cmd.runningCommand = transcoder.GetRunningCmdInstance()

	for {
		prog, ok := <-progressChannel
		if !ok {
			log.Emit(logger.DEBUG, "FFmpeg command %s has closed progress channel\n", cmd)
			return ctx.Err()
		}

		if updateHandler != nil {
			updateHandler(&FfmpegProgress{
				CurrentTime:    prog.GetCurrentTime(),
				CurrentBitrate: prog.GetCurrentBitrate(),
				Progress:       prog.GetProgress(),
				Speed:          prog.GetSpeed(),
			})
		}
	}
}

func (cmd *TranscodeCommand) String() string {
	var pid int = -1
	if cmd.runningCommand != nil && cmd.runningCommand.Process != nil {
		pid = cmd.runningCommand.Process.Pid
	}

	return fmt.Sprintf("{ffmpeg pid=%d | in_path=%s | out_path = %s}", pid, cmd.inputPath, cmd.outputPath)
}

func parseFfmpegError(err error) error {
	// Try and pick out some relevant information from the HUGE
	// output log from ffmpeg. The error we get contains lots of information
	// about how the binary was compiled... this is useless info, we just
	// want the 'message' JSON that is encoded inside.
	groups := messageMatcher.FindStringSubmatch(err.Error())
	if len(groups) < 2 {
		return err
	}

	// ffmpeg error is returned as a JSON encoded string. Unmarshal so we can extract the
	// error string..
	var out map[string]interface{}
	if jsonErr := json.Unmarshal([]byte(groups[1]), &out); jsonErr != nil {
		// We failed to extract the info.. just use the entire string as our error
		return errors.New(groups[1])
	}

	if exception, ok := out["error"].(map[string]interface{}); ok {
		if message, ok := exception["string"].(string); ok {
			return errors.New(message)
		}
	}

	return errors.New(groups[1])
}
