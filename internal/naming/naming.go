// Package naming derives expected library locations for media items and
// probes for files that already satisfy them.
package naming

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/hbollon/go-edlib"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/vmunix/grabarr/internal/config"
	"github.com/vmunix/grabarr/internal/library"
	"github.com/vmunix/grabarr/internal/media"
)

// matchThreshold is the minimum Jaro-Winkler similarity between a cleaned
// title and a cleaned filename for the file to count as already in the library.
const matchThreshold = 0.85

// Service derives expected paths under the configured library roots.
type Service struct {
	movieRoot  string
	seriesRoot string
	musicRoot  string
	bookRoot   string
}

// NewService creates a naming service from the library configuration.
func NewService(cfg config.LibrariesConfig) *Service {
	return &Service{
		movieRoot:  cfg.Movies.Root,
		seriesRoot: cfg.Series.Root,
		musicRoot:  cfg.Music.Root,
		bookRoot:   cfg.Books.Root,
	}
}

// Root returns the library root for a media kind. Empty when the kind has no
// configured library.
func (s *Service) Root(kind media.Kind) string {
	switch kind {
	case media.KindMovie:
		return s.movieRoot
	case media.KindEpisode:
		return s.seriesRoot
	case media.KindAlbum:
		return s.musicRoot
	case media.KindBook:
		return s.bookRoot
	}
	return ""
}

// Extensions returns the recognized media file extensions for a kind.
func Extensions(kind media.Kind) []string {
	switch kind {
	case media.KindMovie, media.KindEpisode:
		return []string{".mkv", ".mp4", ".avi", ".m4v"}
	case media.KindAlbum:
		return []string{".flac", ".mp3", ".m4a", ".ogg", ".opus"}
	case media.KindBook:
		return []string{".epub", ".mobi", ".azw3", ".pdf"}
	}
	return nil
}

// ExpectedDir returns the directory where files for the item are expected to
// live: <root>/<Title (Year)>, or <root>/<Title> when the year is unknown.
func (s *Service) ExpectedDir(item *library.Item) string {
	root := s.Root(item.Ref.Kind)
	if root == "" {
		return ""
	}
	name := SanitizePathComponent(item.Title)
	if item.Year > 0 {
		name = fmt.Sprintf("%s (%d)", name, item.Year)
	}
	return filepath.Join(root, name)
}

// FindExisting probes the item's expected directory for a media file whose
// name matches the item's title. Returns the matching path when found.
func (s *Service) FindExisting(item *library.Item) (string, bool) {
	dir := s.ExpectedDir(item)
	if dir == "" {
		return "", false
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", false
	}

	exts := Extensions(item.Ref.Kind)
	want := CleanTitle(item.Title)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		ext := strings.ToLower(filepath.Ext(name))
		if !containsExt(exts, ext) {
			continue
		}
		got := CleanTitle(strings.TrimSuffix(name, filepath.Ext(name)))
		score := float64(edlib.JaroWinklerSimilarity(want, got))
		if score >= matchThreshold {
			return filepath.Join(dir, name), true
		}
	}
	return "", false
}

func containsExt(exts []string, ext string) bool {
	for _, e := range exts {
		if e == ext {
			return true
		}
	}
	return false
}

// CleanTitle normalizes a title for matching purposes: lowercases, strips
// accents and punctuation, and collapses whitespace.
func CleanTitle(title string) string {
	s := strings.ToLower(title)
	s = removeAccents(s)

	s = strings.ReplaceAll(s, "&", " and ")
	s = strings.ReplaceAll(s, "-", " ")
	s = strings.ReplaceAll(s, "'", "")
	s = strings.ReplaceAll(s, ".", " ")
	s = strings.ReplaceAll(s, "_", " ")

	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}

	fields := strings.Fields(b.String())
	return strings.Join(fields, " ")
}

// SanitizePathComponent strips characters that are unsafe in file names while
// keeping the title readable.
func SanitizePathComponent(s string) string {
	s = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}

func removeAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)
	return result
}
