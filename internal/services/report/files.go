package report

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"signal-controller-go/internal/models"
)

// DirectoryArchive writes the text and CSV reports of every finished session
// into a directory.
type DirectoryArchive struct {
	dir string
	now func() time.Time
}

func NewDirectoryArchive(dir string) *DirectoryArchive {
	return &DirectoryArchive{dir: dir, now: time.Now}
}

// SaveSession writes session-<id>.txt and session-<id>.csv
func (a *DirectoryArchive) SaveSession(ctx context.Context, snap models.Snapshot, reason string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(a.dir, 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}

	s := Summarize(snap)
	base := filepath.Join(a.dir, "session-"+snap.SessionID)

	var txt bytes.Buffer
	if err := WriteText(&txt, s, a.now()); err != nil {
		return err
	}
	if err := os.WriteFile(base+".txt", txt.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write text report: %w", err)
	}

	var csvBuf bytes.Buffer
	if err := WriteCSV(&csvBuf, s); err != nil {
		return err
	}
	if err := os.WriteFile(base+".csv", csvBuf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write csv report: %w", err)
	}

	log.Info().Str("session_id", snap.SessionID).Str("reason", reason).Str("path", base).Msg("Session reports written")
	return nil
}
