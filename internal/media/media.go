// Package media identifies the library items downloads are acquired for.
package media

import "fmt"

// Kind enumerates the media types the system manages.
type Kind string

const (
	KindMovie   Kind = "movie"
	KindEpisode Kind = "episode"
	KindAlbum   Kind = "album"
	KindBook    Kind = "book"
)

// Kinds lists every known kind. Switches over Kind must cover exactly this set.
var Kinds = []Kind{KindMovie, KindEpisode, KindAlbum, KindBook}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindMovie, KindEpisode, KindAlbum, KindBook:
		return true
	}
	return false
}

// Ref identifies a single media item: one movie, TV episode, music album, or book.
type Ref struct {
	Kind Kind
	ID   int64
}

// IsZero reports whether the ref does not point at any item.
func (r Ref) IsZero() bool {
	return r.ID == 0
}

func (r Ref) String() string {
	return fmt.Sprintf("%s/%d", r.Kind, r.ID)
}
