package catalog

import (
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	model "ansible-webui/datamodel/service-model"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// SubdirName is the optional directory scanned next to the working directory.
const SubdirName = "playbooks"

// maxPlaybookBytes caps how much of a file is read when extracting play names.
const maxPlaybookBytes = 1 << 20

var extensions = []string{".yml", ".yaml"}

// Scanner discovers playbook files under a working directory.
type Scanner struct {
	dir    string
	logger zerolog.Logger
}

// NewScanner creates a scanner rooted at dir. An empty dir means the process
// working directory.
func NewScanner(dir string) *Scanner {
	if dir == "" {
		dir = "."
	}
	return &Scanner{
		dir:    dir,
		logger: log.With().Str("component", "catalog").Logger(),
	}
}

// Dir returns the directory the scanner is rooted at.
func (s *Scanner) Dir() string {
	return s.dir
}

// Scan returns the current catalog sorted by path. It never fails; unreadable
// directories contribute nothing.
func (s *Scanner) Scan() []model.PlaybookEntry {
	paths := s.collect("")
	if info, err := os.Stat(filepath.Join(s.dir, SubdirName)); err == nil && info.IsDir() {
		paths = append(paths, s.collect(SubdirName)...)
	}

	kept := paths[:0]
	for _, p := range paths {
		if isExcluded(filepath.Base(p)) {
			continue
		}
		kept = append(kept, p)
	}
	sort.Strings(kept)

	entries := make([]model.PlaybookEntry, 0, len(kept))
	for _, p := range kept {
		entries = append(entries, model.PlaybookEntry{
			Path:        p,
			Name:        filepath.Base(p),
			Description: Describe(p),
			Plays:       s.playNames(p),
		})
	}

	s.logger.Debug().Int("playbooks", len(entries)).Str("dir", s.dir).Msg("Catalog scanned")
	return entries
}

// Contains reports whether path names an entry of the current catalog.
func (s *Scanner) Contains(path string) bool {
	want := filepath.ToSlash(filepath.Clean(path))
	for _, e := range s.Scan() {
		if e.Path == want {
			return true
		}
	}
	return false
}

// collect lists *.yml and *.yaml files directly inside sub (relative to the
// scanner root). Returned paths use forward slashes and keep the sub prefix.
func (s *Scanner) collect(sub string) []string {
	entries, err := os.ReadDir(filepath.Join(s.dir, sub))
	if err != nil {
		s.logger.Warn().Err(err).Str("dir", filepath.Join(s.dir, sub)).Msg("Failed to read playbook directory")
		return nil
	}

	var out []string
	for _, e := range entries {
		name := e.Name()
		// hidden files are not matched by a shell-style "*"; directories
		// named like playbooks cannot be run
		if e.IsDir() || strings.HasPrefix(name, ".") || !hasPlaybookExt(name) {
			continue
		}
		if sub != "" {
			name = sub + "/" + name
		}
		out = append(out, name)
	}
	return out
}

func hasPlaybookExt(name string) bool {
	for _, ext := range extensions {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

type play struct {
	Name string `yaml:"name"`
}

// playNames reads the play names of a playbook. Anything that is not a YAML
// list of plays yields nil.
func (s *Scanner) playNames(rel string) []string {
	f, err := os.Open(filepath.Join(s.dir, filepath.FromSlash(rel)))
	if err != nil {
		return nil
	}
	defer f.Close()

	var plays []play
	if err := yaml.NewDecoder(io.LimitReader(f, maxPlaybookBytes)).Decode(&plays); err != nil {
		s.logger.Debug().Err(err).Str("playbook", rel).Msg("Playbook is not a list of plays")
		return nil
	}

	var names []string
	for _, p := range plays {
		if p.Name != "" {
			names = append(names, p.Name)
		}
	}
	return names
}
