// Package importer provides a basic import pipeline that moves completed
// download files into their library location.
package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/vmunix/grabarr/internal/download"
	"github.com/vmunix/grabarr/internal/library"
	"github.com/vmunix/grabarr/internal/media"
	"github.com/vmunix/grabarr/internal/naming"
)

// Mover imports completed downloads for one media kind by moving their media
// files into the expected library directory. It implements download.Importer.
type Mover struct {
	kind    media.Kind
	library *library.Store
	naming  *naming.Service
	log     *slog.Logger
}

// NewMover creates an import pipeline for a media kind.
func NewMover(kind media.Kind, lib *library.Store, svc *naming.Service, log *slog.Logger) *Mover {
	if log == nil {
		log = slog.Default()
	}
	return &Mover{
		kind:    kind,
		library: lib,
		naming:  svc,
		log:     log.With("component", "importer", "kind", kind),
	}
}

// Import moves every recognized media file under the download's output path
// into the item's library directory.
func (m *Mover) Import(ctx context.Context, d *download.Download) (*download.ImportResult, error) {
	item, err := m.library.Get(d.Ref)
	if err != nil {
		return nil, fmt.Errorf("load media item: %w", err)
	}

	destDir := m.naming.ExpectedDir(item)
	if destDir == "" {
		return nil, fmt.Errorf("no library root configured for %s", d.Ref.Kind)
	}

	files, err := findMediaFiles(d.OutputPath, naming.Extensions(d.Ref.Kind))
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no media files found in %s", d.OutputPath)
	}

	if err := os.MkdirAll(destDir, 0755); err != nil {
		return nil, fmt.Errorf("create library directory: %w", err)
	}

	var errs []error
	imported := 0
	for _, src := range files {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		dst := filepath.Join(destDir, filepath.Base(src))
		if err := moveFile(src, dst); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", filepath.Base(src), err))
			continue
		}
		imported++
		m.log.Info("file imported", "download_id", d.ID, "dest", dst)
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return &download.ImportResult{FilesImported: imported}, nil
}

// findMediaFiles walks root collecting files with a recognized extension.
// A root that is itself a file is returned directly when it matches.
// Sample files are skipped.
func findMediaFiles(root string, exts []string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat output path: %w", err)
	}
	if !info.IsDir() {
		if hasExt(root, exts) {
			return []string{root}, nil
		}
		return nil, nil
	}

	var files []string
	err = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip errors, continue walking
		}
		if info.IsDir() || !hasExt(path, exts) {
			return nil
		}
		if strings.Contains(strings.ToLower(info.Name()), "sample") {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk output path: %w", err)
	}
	return files, nil
}

func hasExt(path string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range exts {
		if e == ext {
			return true
		}
	}
	return false
}

// moveFile renames src to dst, falling back to copy+remove across devices.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	srcFile, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer func() { _ = srcFile.Close() }()

	dstFile, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create destination: %w", err)
	}
	defer func() { _ = dstFile.Close() }()

	if _, err := io.Copy(dstFile, srcFile); err != nil {
		_ = os.Remove(dst)
		return fmt.Errorf("copy content: %w", err)
	}
	if err := dstFile.Sync(); err != nil {
		return fmt.Errorf("sync: %w", err)
	}
	return os.Remove(src)
}
