// Package study persists named collections of cohorts and the runs scored over them.
package study

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/KaramelBytes/tgjs-cli/internal/dataset"
	"github.com/KaramelBytes/tgjs-cli/internal/utils"
	"github.com/google/uuid"
)

// FileName is the metadata file marking a study directory.
const FileName = "study.json"

// ErrNoStudy is returned by FindRoot when no enclosing directory holds a study.
var ErrNoStudy = errors.New("no study.json in this directory or any parent")

// FindRoot returns the nearest directory at or above start holding FileName.
// A file path starts the search from its parent; an empty start uses the working directory.
func FindRoot(start string) (string, error) {
	if start == "" {
		start = "."
	}
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", start, err)
	}
	info, err := os.Stat(dir)
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		dir = filepath.Dir(dir)
	}
	for {
		if fi, err := os.Stat(filepath.Join(dir, FileName)); err == nil && fi.Mode().IsRegular() {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("%s: %w", start, ErrNoStudy)
		}
		dir = parent
	}
}

// Study is a directory holding study.json and a runs/ tree.
type Study struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Cohorts     map[string]*Cohort `json:"cohorts"`
	Runs        []RunRef           `json:"runs,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`

	rootDir string
}

// Cohort is one clinical + expression table pair.
type Cohort struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Description    string    `json:"description,omitempty"`
	ClinicalPath   string    `json:"clinical_path"`
	ClinicalSheet  string    `json:"clinical_sheet,omitempty"`
	ExpressionPath string    `json:"expression_path"`
	Samples        int       `json:"samples"`
	Genes          int       `json:"genes"`
	ExprColumns    int       `json:"expression_columns"`
	AddedAt        time.Time `json:"added_at"`
}

// ReadOptions returns the reader options for the clinical table.
func (c *Cohort) ReadOptions() dataset.ReadOptions {
	return dataset.ReadOptions{SheetName: c.ClinicalSheet}
}

// RunRef is the study-level index entry of a run.
type RunRef struct {
	ID        string    `json:"id"`
	StartedAt time.Time `json:"started_at"`
	Cohorts   int       `json:"cohorts"`
	Failed    int       `json:"failed"`
}

// New constructs an in-memory study. Call Save to persist.
func New(name, description, rootDir string) *Study {
	now := time.Now()
	return &Study{
		Name:        name,
		Description: description,
		Cohorts:     make(map[string]*Cohort),
		CreatedAt:   now,
		UpdatedAt:   now,
		rootDir:     rootDir,
	}
}

// Load reads study.json from dir.
func Load(dir string) (*Study, error) {
	path := filepath.Join(dir, FileName)
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("study not found at %s: %w", path, err)
		}
		return nil, fmt.Errorf("read study: %w", err)
	}
	var s Study
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("parse study: %w", err)
	}
	if s.Cohorts == nil {
		s.Cohorts = make(map[string]*Cohort)
	}
	s.rootDir = dir
	return &s, nil
}

// RootDir returns the on-disk study directory.
func (s *Study) RootDir() string { return s.rootDir }

// Save writes study.json atomically.
func (s *Study) Save() error {
	if s.rootDir == "" {
		return errors.New("study root directory not set")
	}
	s.UpdatedAt = time.Now()
	return utils.WriteJSON(filepath.Join(s.rootDir, FileName), s)
}

// AddCohort reads both tables to validate them and registers the cohort under name.
// Paths are stored as absolute paths. An existing cohort of the same name is replaced.
func (s *Study) AddCohort(name, clinicalPath, expressionPath, description string, cm dataset.ColumnMap, opt dataset.ReadOptions) (*Cohort, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("cohort name is required")
	}
	clin, err := dataset.ReadTable(clinicalPath, opt)
	if err != nil {
		return nil, fmt.Errorf("read clinical table: %w", err)
	}
	ct, err := dataset.ClinicalFromTable(clin, cm)
	if err != nil {
		return nil, err
	}
	expr, err := dataset.ReadTable(expressionPath, dataset.ReadOptions{})
	if err != nil {
		return nil, fmt.Errorf("read expression table: %w", err)
	}
	m, err := dataset.ExpressionFromTable(expr)
	if err != nil {
		return nil, err
	}
	genes, cols := m.Dims()
	absClin, err := filepath.Abs(clinicalPath)
	if err != nil {
		return nil, err
	}
	absExpr, err := filepath.Abs(expressionPath)
	if err != nil {
		return nil, err
	}
	c := &Cohort{
		ID:             uuid.NewString(),
		Name:           name,
		Description:    description,
		ClinicalPath:   absClin,
		ClinicalSheet:  opt.SheetName,
		ExpressionPath: absExpr,
		Samples:        ct.Len(),
		Genes:          genes,
		ExprColumns:    cols,
		AddedAt:        time.Now(),
	}
	if s.Cohorts == nil {
		s.Cohorts = make(map[string]*Cohort)
	}
	s.Cohorts[name] = c
	s.UpdatedAt = time.Now()
	return c, nil
}

// CohortNames returns registered cohort names sorted.
func (s *Study) CohortNames() []string {
	names := make([]string, 0, len(s.Cohorts))
	for k := range s.Cohorts {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Cohort looks up a cohort by name.
func (s *Study) Cohort(name string) (*Cohort, error) {
	c, ok := s.Cohorts[name]
	if !ok {
		return nil, fmt.Errorf("cohort %q not found in study %s (have: %s)", name, s.Name, strings.Join(s.CohortNames(), ", "))
	}
	return c, nil
}

// RemoveCohort unregisters a cohort. Its tables and earlier run outputs are left on disk.
func (s *Study) RemoveCohort(name string) error {
	if _, err := s.Cohort(name); err != nil {
		return err
	}
	delete(s.Cohorts, name)
	s.UpdatedAt = time.Now()
	return nil
}

// List returns the names of the studies under root.
func List(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(root, e.Name(), FileName)); err == nil {
			out = append(out, e.Name())
		}
	}
	return out, nil
}
