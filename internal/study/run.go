package study

import (
	"errors"
	"path/filepath"
	"time"

	"github.com/KaramelBytes/tgjs-cli/internal/config"
	"github.com/KaramelBytes/tgjs-cli/internal/utils"
	"github.com/google/uuid"
)

const manifestFileName = "manifest.json"

// Run statuses recorded per cohort.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// CohortRun is the outcome of scoring one cohort in a run.
type CohortRun struct {
	Cohort      string   `json:"cohort"`
	Status      string   `json:"status"`
	Error       string   `json:"error,omitempty"`
	Strategy    string   `json:"alignment_strategy,omitempty"`
	Scored      int      `json:"scored_samples"`
	Significant int      `json:"significant"`
	Outputs     []string `json:"outputs,omitempty"`
}

// Manifest records the settings and per-cohort outcome of one run.
type Manifest struct {
	ID         string          `json:"id"`
	Study      string          `json:"study"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
	Settings   config.Settings `json:"settings"`
	Cohorts    []CohortRun     `json:"cohorts"`

	dir string
}

// NewRun starts a run under runs/<id>/.
func (s *Study) NewRun(settings config.Settings) *Manifest {
	id := uuid.NewString()
	return &Manifest{
		ID:        id,
		Study:     s.Name,
		StartedAt: time.Now(),
		Settings:  settings,
		dir:       filepath.Join(s.rootDir, "runs", id),
	}
}

// Dir is the run output directory.
func (m *Manifest) Dir() string { return m.dir }

// CohortDir is where one cohort's outputs go.
func (m *Manifest) CohortDir(cohort string) string { return filepath.Join(m.dir, cohort) }

// Record appends a cohort outcome. A non-nil err marks it failed.
func (m *Manifest) Record(cr CohortRun, err error) {
	cr.Status = StatusOK
	if err != nil {
		cr.Status = StatusFailed
		cr.Error = err.Error()
	}
	m.Cohorts = append(m.Cohorts, cr)
}

// Failed counts failed cohorts.
func (m *Manifest) Failed() int {
	n := 0
	for _, c := range m.Cohorts {
		if c.Status == StatusFailed {
			n++
		}
	}
	return n
}

// Finish writes manifest.json and indexes the run in the study, then saves the study.
func (s *Study) Finish(m *Manifest) error {
	if m.dir == "" {
		return errors.New("run directory not set")
	}
	m.FinishedAt = time.Now()
	if err := utils.WriteJSON(filepath.Join(m.dir, manifestFileName), m); err != nil {
		return err
	}
	s.Runs = append(s.Runs, RunRef{ID: m.ID, StartedAt: m.StartedAt, Cohorts: len(m.Cohorts), Failed: m.Failed()})
	return s.Save()
}
