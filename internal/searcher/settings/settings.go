// Package settings owns the active multi-term rewrite strategy. Updates
// build a fresh immutable strategy and swap it in atomically; queries that
// already picked up the previous one finish with it.
package settings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/multiterm-search/internal/searcher/rewrite"
	"github.com/Adithya-Monish-Kumar-K/multiterm-search/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/multiterm-search/pkg/errors"
)

type Mode string

const (
	ModeAuto           Mode = "auto"
	ModeFilter         Mode = "filter"
	ModeScoringBoolean Mode = "scoring_boolean"
)

type Settings struct {
	Mode            Mode      `json:"mode"`
	TermCountCutoff int       `json:"term_count_cutoff"`
	DocCountPercent float64   `json:"doc_count_percent"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// FromConfig returns auto mode settings with the configured thresholds.
func FromConfig(cfg config.RewriteConfig) Settings {
	return Settings{
		Mode:            ModeAuto,
		TermCountCutoff: cfg.TermCountCutoff,
		DocCountPercent: cfg.DocCountPercent,
	}
}

func (s Settings) warnings() []string {
	return config.RewriteConfig{
		TermCountCutoff: s.TermCountCutoff,
		DocCountPercent: s.DocCountPercent,
	}.Warnings()
}

// Store persists the settings across restarts.
type Store interface {
	// Load returns ErrSettingsNotFound when nothing was saved yet.
	Load(ctx context.Context) (Settings, error)
	Save(ctx context.Context, s Settings) error
}

type active struct {
	settings Settings
	method   rewrite.Keyed
}

// Manager is the single owner of the active strategy.
type Manager struct {
	updateMu sync.Mutex
	current  atomic.Pointer[active]
	store    Store
	logger   *slog.Logger
}

// NewManager starts with initial. store may be nil, in which case updates
// only live in memory.
func NewManager(initial Settings, store Store) (*Manager, error) {
	m := &Manager{
		store:  store,
		logger: slog.Default().With("component", "rewrite-settings"),
	}
	a, err := build(initial)
	if err != nil {
		return nil, err
	}
	m.current.Store(a)
	return m, nil
}

// Restore replaces the active settings with the persisted ones, if any.
func (m *Manager) Restore(ctx context.Context) error {
	if m.store == nil {
		return nil
	}
	saved, err := m.store.Load(ctx)
	if err != nil {
		if errors.Is(err, apperrors.ErrSettingsNotFound) {
			m.logger.Info("no persisted rewrite settings, keeping configured defaults")
			return nil
		}
		return fmt.Errorf("restoring rewrite settings: %w", err)
	}
	a, err := build(saved)
	if err != nil {
		return fmt.Errorf("restoring rewrite settings: %w", err)
	}
	m.current.Store(a)
	m.logger.Info("rewrite settings restored",
		"mode", saved.Mode,
		"term_count_cutoff", saved.TermCountCutoff,
		"doc_count_percent", saved.DocCountPercent,
	)
	return nil
}

// Method returns the strategy to use for the next query.
func (m *Manager) Method() rewrite.Method { return m.current.Load().method }

// StrategyKey identifies the active strategy for cache keys.
func (m *Manager) StrategyKey() string { return m.current.Load().method.Key() }

func (m *Manager) Current() Settings { return m.current.Load().settings }

// Update validates the mode, persists s and makes it active. Thresholds are
// never rejected, only logged when outside their documented range.
func (m *Manager) Update(ctx context.Context, s Settings) (Settings, error) {
	m.updateMu.Lock()
	defer m.updateMu.Unlock()

	if s.Mode == "" {
		s.Mode = ModeAuto
	}
	s.UpdatedAt = time.Now().UTC()
	a, err := build(s)
	if err != nil {
		return Settings{}, err
	}
	for _, w := range s.warnings() {
		m.logger.Warn("rewrite setting out of documented range", "detail", w)
	}
	if m.store != nil {
		if err := m.store.Save(ctx, s); err != nil {
			return Settings{}, fmt.Errorf("persisting rewrite settings: %w", err)
		}
	}
	previous := m.current.Swap(a)
	m.logger.Info("rewrite settings updated",
		"mode", s.Mode,
		"term_count_cutoff", s.TermCountCutoff,
		"doc_count_percent", s.DocCountPercent,
		"previous", previous.method.Key(),
		"strategy", a.method.Key(),
	)
	return s, nil
}

func build(s Settings) (*active, error) {
	var method rewrite.Keyed
	switch s.Mode {
	case ModeAuto, "":
		method = rewrite.NewConstantScoreAuto(
			rewrite.WithTermCountCutoff(s.TermCountCutoff),
			rewrite.WithDocCountPercent(s.DocCountPercent),
		)
	case ModeFilter:
		method = rewrite.ConstantScoreFilter{}
	case ModeScoringBoolean:
		method = rewrite.ScoringBoolean{}
	default:
		return nil, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "unknown rewrite mode %q", s.Mode)
	}
	return &active{settings: s, method: method}, nil
}
