package catalog

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var videoExtensions = map[string]struct{}{
	".mp4": {}, ".avi": {}, ".mkv": {}, ".mov": {}, ".wmv": {}, ".flv": {}, ".webm": {}, ".m4v": {},
}

var seasonEpisodePatterns = []*regexp.Regexp{
	regexp.MustCompile(`[Ss](\d{1,2})[Ee](\d{1,3})`),
	regexp.MustCompile(`(?i)season\s*(\d{1,2})\s*episode\s*(\d{1,3})`),
	regexp.MustCompile(`(\d{1,2})x(\d{1,3})`),
}

// IsVideoFile reports whether path has a supported video extension.
func IsVideoFile(path string) bool {
	_, ok := videoExtensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

// ParseSeasonEpisode extracts season and episode numbers from a file name.
// Both are zero when no pattern matches.
func ParseSeasonEpisode(name string) (season, episode int) {
	for _, pattern := range seasonEpisodePatterns {
		match := pattern.FindStringSubmatch(name)
		if match == nil {
			continue
		}
		s, _ := strconv.Atoi(match[1])
		e, _ := strconv.Atoi(match[2])
		if s > 0 && e > 0 {
			return s, e
		}
	}
	return 0, 0
}

// DeriveTitle builds a display title from a file name, dropping the
// extension and any season/episode marker.
func DeriveTitle(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	for _, pattern := range seasonEpisodePatterns {
		if loc := pattern.FindStringIndex(base); loc != nil {
			before := strings.TrimSpace(base[:loc[0]])
			after := strings.TrimSpace(base[loc[1]:])
			if cleanWords(after) != "" {
				base = after
			} else {
				base = before
			}
			break
		}
	}
	title := cleanWords(base)
	if title == "" {
		return "Untitled Episode"
	}
	return cases.Title(language.Und).String(title)
}

func cleanWords(value string) string {
	var cleaned strings.Builder
	prevSpace := false
	for _, r := range value {
		switch {
		case unicode.IsLetter(r) || unicode.IsNumber(r) || r == '\'':
			cleaned.WriteRune(r)
			prevSpace = false
		case unicode.IsSpace(r) || r == '-' || r == '_' || r == '.':
			if !prevSpace {
				cleaned.WriteRune(' ')
				prevSpace = true
			}
		}
	}
	return strings.TrimSpace(cleaned.String())
}

// ScanVideoFiles lists supported video files under root in lexical order.
// When recursive is false only the top-level directory is read. A file root
// is returned as-is when it is a video file.
func ScanVideoFiles(root string, recursive bool) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", root, err)
	}
	if !info.IsDir() {
		if !IsVideoFile(root) {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedFile, root)
		}
		return []string{root}, nil
	}

	var files []string
	if !recursive {
		entries, err := os.ReadDir(root)
		if err != nil {
			return nil, fmt.Errorf("read dir %s: %w", root, err)
		}
		for _, entry := range entries {
			if entry.Type().IsRegular() && IsVideoFile(entry.Name()) {
				files = append(files, filepath.Join(root, entry.Name()))
			}
		}
		return files, nil
	}

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.Type().IsRegular() && IsVideoFile(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	sort.Strings(files)
	return files, nil
}
