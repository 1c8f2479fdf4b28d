package importer

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/vmunix/grabarr/internal/config"
	"github.com/vmunix/grabarr/internal/download"
	"github.com/vmunix/grabarr/internal/library"
	"github.com/vmunix/grabarr/internal/media"
	"github.com/vmunix/grabarr/internal/migrations"
	"github.com/vmunix/grabarr/internal/naming"
)

type fixture struct {
	mover   *Mover
	library *library.Store
	root    string
	item    *library.Item
}

func setup(t *testing.T) *fixture {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	_, err = db.Exec(migrations.InitialSQL)
	require.NoError(t, err)

	root := t.TempDir()
	svc := naming.NewService(config.LibrariesConfig{
		Movies: config.LibraryConfig{Root: root},
	})
	lib := library.NewStore(db)

	item := &library.Item{Ref: media.Ref{Kind: media.KindMovie}, Title: "Heat", Year: 1995}
	require.NoError(t, lib.Add(item))

	return &fixture{
		mover:   NewMover(media.KindMovie, lib, svc, nil),
		library: lib,
		root:    root,
		item:    item,
	}
}

func writeFile(t *testing.T, path string, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestImportMovesMediaFiles(t *testing.T) {
	f := setup(t)
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "Heat.1995.1080p.mkv"), "video")
	writeFile(t, filepath.Join(src, "Heat.1995.1080p.nfo"), "metadata")
	writeFile(t, filepath.Join(src, "Sample", "heat-sample.mkv"), "sample")

	result, err := f.mover.Import(context.Background(), &download.Download{
		ID: 1, Ref: f.item.Ref, OutputPath: src,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.FilesImported)

	dest := filepath.Join(f.root, "Heat (1995)", "Heat.1995.1080p.mkv")
	content, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "video", string(content))

	_, err = os.Stat(filepath.Join(src, "Heat.1995.1080p.mkv"))
	assert.True(t, os.IsNotExist(err), "source file is moved, not copied")

	_, err = os.Stat(filepath.Join(f.root, "Heat (1995)", "heat-sample.mkv"))
	assert.True(t, os.IsNotExist(err), "sample files are skipped")
}

func TestImportSingleFileOutputPath(t *testing.T) {
	f := setup(t)
	src := filepath.Join(t.TempDir(), "Heat.1995.mkv")
	writeFile(t, src, "video")

	result, err := f.mover.Import(context.Background(), &download.Download{
		ID: 1, Ref: f.item.Ref, OutputPath: src,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.FilesImported)
}

func TestImportNoMediaFiles(t *testing.T) {
	f := setup(t)
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "readme.txt"), "nothing here")

	_, err := f.mover.Import(context.Background(), &download.Download{
		ID: 1, Ref: f.item.Ref, OutputPath: src,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no media files found")
}

func TestImportMissingOutputPath(t *testing.T) {
	f := setup(t)

	_, err := f.mover.Import(context.Background(), &download.Download{
		ID: 1, Ref: f.item.Ref, OutputPath: filepath.Join(t.TempDir(), "gone"),
	})
	assert.Error(t, err)
}

func TestImportUnknownItem(t *testing.T) {
	f := setup(t)

	_, err := f.mover.Import(context.Background(), &download.Download{
		ID: 1, Ref: media.Ref{Kind: media.KindMovie, ID: 999}, OutputPath: t.TempDir(),
	})
	assert.ErrorIs(t, err, library.ErrNotFound)
}
