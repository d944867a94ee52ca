package backup

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// DumpTool produces and applies database dump artifacts.
type DumpTool interface {
	Dump(ctx context.Context, outPath string) error
	Restore(ctx context.Context, dumpPath string) error
}

// pgTool shells out to pg_dump/pg_restore in custom format.
type pgTool struct {
	dumpBin     string
	restoreBin  string
	databaseURL string
}

func NewPgTool(dumpBin, restoreBin, databaseURL string) DumpTool {
	if dumpBin == "" {
		dumpBin = "pg_dump"
	}
	if restoreBin == "" {
		restoreBin = "pg_restore"
	}
	return &pgTool{dumpBin: dumpBin, restoreBin: restoreBin, databaseURL: databaseURL}
}

func (t *pgTool) Dump(ctx context.Context, outPath string) error {
	cmd := exec.CommandContext(ctx, t.dumpBin,
		"--format=custom",
		"--no-owner",
		"--file", outPath,
		"--dbname", t.databaseURL,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("pg_dump: %w: %s", err, firstLine(out))
	}
	return nil
}

func (t *pgTool) Restore(ctx context.Context, dumpPath string) error {
	cmd := exec.CommandContext(ctx, t.restoreBin,
		"--clean",
		"--if-exists",
		"--no-owner",
		"--dbname", t.databaseURL,
		dumpPath,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("pg_restore: %w: %s", err, firstLine(out))
	}
	return nil
}

func firstLine(out []byte) string {
	s := strings.TrimSpace(string(out))
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return s
}
