package player

import (
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/olivier-w/pulsecloud/internal/media"
)

// Source identifies the audio track: a local path or an http(s) URL.
type Source struct {
	location string
}

// NewSource creates a Source for location.
func NewSource(location string) Source {
	return Source{location: strings.TrimSpace(location)}
}

func (s Source) String() string { return s.location }

// IsRemote reports whether the track is fetched over HTTP.
func (s Source) IsRemote() bool { return media.IsURL(s.location) }

// Ext returns the lower-cased file extension of the track.
func (s Source) Ext() string {
	p := s.location
	if s.IsRemote() {
		if u, err := url.Parse(s.location); err == nil {
			p = u.Path
		}
		return strings.ToLower(path.Ext(p))
	}
	return strings.ToLower(filepath.Ext(p))
}

// Metadata returns display information: ID3 tags for local files, otherwise
// the base name without extension.
func (s Source) Metadata() Metadata {
	if !s.IsRemote() {
		return ReadMetadata(s.location)
	}
	name := s.location
	if u, err := url.Parse(s.location); err == nil && u.Path != "" {
		name = u.Path
	}
	base := path.Base(name)
	return Metadata{Title: strings.TrimSuffix(base, path.Ext(base))}
}
