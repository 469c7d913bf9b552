// Package source extracts geotagged coordinates from downloaded post metadata.
package source

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/UnknownOlympus/geoplaces/internal/models"
)

const (
	profileFile    = "profile.json"
	commentsSuffix = "_comments.json"
	postSuffix     = ".json"
)

// pictureTypes are the post kinds that carry a photo location.
var pictureTypes = map[string]struct{}{
	"GraphImage":   {},
	"GraphSidecar": {},
}

// ErrNoGeotags is returned when no picture carries a location.
var ErrNoGeotags = errors.New("no pictures with location info")

// Stats counts what was read.
type Stats struct {
	Posts     int `json:"posts"`
	Pictures  int `json:"pictures"`
	Geotagged int `json:"geotagged"`
}

type post struct {
	Node struct {
		Typename string `json:"__typename"`
		Location *struct {
			Lat *float64 `json:"lat"`
			Lng *float64 `json:"lng"`
		} `json:"location"`
	} `json:"node"`
}

type collector struct {
	radius uint32
	coords []models.Coordinate
	stats  Stats
}

func newCollector(radius uint32) *collector {
	if radius == 0 {
		radius = models.DefaultRadius
	}
	return &collector{radius: radius}
}

func (c *collector) add(raw []byte) error {
	var p post
	if err := json.Unmarshal(raw, &p); err != nil {
		return err
	}
	c.stats.Posts++

	loc := p.Node.Location
	if loc == nil {
		return nil
	}
	if _, ok := pictureTypes[p.Node.Typename]; !ok {
		return nil
	}
	c.stats.Pictures++

	if loc.Lat == nil || loc.Lng == nil {
		return nil
	}
	c.stats.Geotagged++
	c.coords = append(c.coords, models.Coordinate{Latitude: *loc.Lat, Longitude: *loc.Lng, Radius: c.radius})

	return nil
}

func (c *collector) result() ([]models.Coordinate, Stats, error) {
	if c.stats.Geotagged == 0 {
		return nil, c.stats, ErrNoGeotags
	}
	return models.NewCoordinateSet(c.coords...), c.stats, nil
}

// ReadPosts reads posts from r, given as a single object, an array or one object per
// line, and returns the deduplicated coordinate set of geotagged pictures. A zero
// radius means models.DefaultRadius.
func ReadPosts(r io.Reader, radius uint32) ([]models.Coordinate, Stats, error) {
	col := newCollector(radius)

	br := bufio.NewReader(r)
	first, err := peekNonSpace(br)
	if errors.Is(err, io.EOF) {
		return col.result()
	}
	if err != nil {
		return nil, Stats{}, fmt.Errorf("failed to read posts: %w", err)
	}

	dec := json.NewDecoder(br)
	if first == '[' {
		var posts []json.RawMessage
		if err = dec.Decode(&posts); err != nil {
			return nil, Stats{}, fmt.Errorf("failed to decode posts: %w", err)
		}
		for _, raw := range posts {
			if err = col.add(raw); err != nil {
				return nil, Stats{}, fmt.Errorf("failed to decode post: %w", err)
			}
		}
		return col.result()
	}

	for {
		var raw json.RawMessage
		err = dec.Decode(&raw)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, Stats{}, fmt.Errorf("failed to decode posts: %w", err)
		}
		if err = col.add(raw); err != nil {
			return nil, Stats{}, fmt.Errorf("failed to decode post: %w", err)
		}
	}

	return col.result()
}

// ReadDir reads one post per JSON file in dir. The profile file, comment files and
// files that do not parse are skipped.
func ReadDir(dir string, radius uint32, log *slog.Logger) ([]models.Coordinate, Stats, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, Stats{}, fmt.Errorf("failed to list posts: %w", err)
	}

	col := newCollector(radius)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || name == profileFile || strings.HasSuffix(name, commentsSuffix) ||
			!strings.HasSuffix(name, postSuffix) {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			log.Debug("Skipping unreadable post", "file", name, "error", err)
			continue
		}
		if err = col.add(bytes.TrimSpace(data)); err != nil {
			log.Debug("Skipping malformed post", "file", name, "error", err)
		}
	}

	return col.result()
}

// Read dispatches to ReadDir or to ReadPosts depending on what path points at.
func Read(path string, radius uint32, log *slog.Logger) ([]models.Coordinate, Stats, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, Stats{}, fmt.Errorf("failed to open posts: %w", err)
	}
	if info.IsDir() {
		return ReadDir(path, radius, log)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, Stats{}, fmt.Errorf("failed to open posts: %w", err)
	}
	defer f.Close()

	return ReadPosts(f, radius)
}

func peekNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		}
		if err = br.UnreadByte(); err != nil {
			return 0, err
		}
		return b, nil
	}
}
