package extract

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"metinanaliz/internal/logger"
)

// Runner lets tests stub external commands.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	start := time.Now()

	cmd := exec.CommandContext(ctx, name, args...)
	var out, errb bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errb

	err := cmd.Run()
	entry := logger.For("extract").WithFields(logrus.Fields{
		"cmd":         name,
		"args":        strings.Join(args, " "),
		"duration_ms": time.Since(start).Milliseconds(),
	})
	if err != nil {
		entry.WithError(err).WithField("stderr", truncate(errb.String(), 8<<10)).Error("exec failed")
	} else {
		entry.WithField("stdout_bytes", out.Len()).Debug("exec ok")
	}
	return out.Bytes(), errb.Bytes(), err
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}

// ocrImage runs `tesseract <file> stdout -l <lang>`.
func (e *Extractor) ocrImage(ctx context.Context, path string) (string, error) {
	out, _, err := e.runner.Run(ctx, e.cfg.Tesseract, path, "stdout", "-l", e.cfg.OCRLanguage)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}
