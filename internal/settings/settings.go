// Package settings persists per-channel calibration and the
// log-on-boot flag in SQLite. Channel configuration is cached in
// memory because the acquisition loop reads it every cycle.
package settings

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

const (
	// NumChannels matches the ADC channel count.
	NumChannels = 8

	// MaxUnitLen bounds the unit label; longer labels are clipped.
	MaxUnitLen = 10
)

// ChannelConfig is the calibration of one channel: raw volts are
// multiplied by Factor and displayed with Unit.
type ChannelConfig struct {
	Factor float64 `json:"factor"`
	Unit   string  `json:"unit"`
}

// DefaultChannelConfig is applied to channels that have never been
// configured.
var DefaultChannelConfig = ChannelConfig{Factor: 1.0, Unit: "V"}

const schema = `
CREATE TABLE IF NOT EXISTS settings (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS channel_configs (
	idx    INTEGER PRIMARY KEY,
	factor REAL NOT NULL,
	unit   TEXT NOT NULL
);
`

// Store is the persistent settings store. All methods are safe for
// concurrent use.
type Store struct {
	db *sql.DB

	mu     sync.Mutex
	cached [NumChannels]ChannelConfig
}

// Open opens or creates the settings database at the given path, seeds
// missing defaults, and loads the channel cache.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create settings directory: %w", err)
	}

	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open settings database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping settings database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	s := &Store{db: db}
	if err := s.seedDefaults(); err != nil {
		db.Close()
		return nil, err
	}
	if err := s.loadCache(); err != nil {
		db.Close()
		return nil, err
	}

	log.Info().Str("path", path).Msg("Settings database opened")
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) seedDefaults() error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin seed: %w", err)
	}
	defer tx.Rollback()

	for i := 0; i < NumChannels; i++ {
		_, err := tx.Exec(
			`INSERT OR IGNORE INTO channel_configs (idx, factor, unit) VALUES (?, ?, ?)`,
			i, DefaultChannelConfig.Factor, DefaultChannelConfig.Unit,
		)
		if err != nil {
			return fmt.Errorf("seed channel %d: %w", i, err)
		}
	}
	if _, err := tx.Exec(
		`INSERT OR IGNORE INTO settings (key, value) VALUES ('log_on_boot', '0')`,
	); err != nil {
		return fmt.Errorf("seed log_on_boot: %w", err)
	}
	return tx.Commit()
}

func (s *Store) loadCache() error {
	rows, err := s.db.Query(`SELECT idx, factor, unit FROM channel_configs ORDER BY idx`)
	if err != nil {
		return fmt.Errorf("load channel configs: %w", err)
	}
	defer rows.Close()

	var cached [NumChannels]ChannelConfig
	for i := range cached {
		cached[i] = DefaultChannelConfig
	}
	for rows.Next() {
		var idx int
		var cfg ChannelConfig
		if err := rows.Scan(&idx, &cfg.Factor, &cfg.Unit); err != nil {
			return fmt.Errorf("scan channel config: %w", err)
		}
		if idx >= 0 && idx < NumChannels {
			cached[idx] = cfg
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("load channel configs: %w", err)
	}

	s.mu.Lock()
	s.cached = cached
	s.mu.Unlock()
	return nil
}

// ChannelConfigs returns the cached per-channel calibration.
func (s *Store) ChannelConfigs() [NumChannels]ChannelConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cached
}

// Factors returns only the scale factors, for the acquisition loop.
func (s *Store) Factors() [NumChannels]float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var f [NumChannels]float64
	for i, cfg := range s.cached {
		f[i] = cfg.Factor
	}
	return f
}

// SaveChannelConfigs persists all channel configurations in one
// transaction and refreshes the cache. Unit labels longer than
// MaxUnitLen are clipped.
func (s *Store) SaveChannelConfigs(cfgs [NumChannels]ChannelConfig) error {
	for i := range cfgs {
		if len(cfgs[i].Unit) > MaxUnitLen {
			log.Warn().Int("channel", i).Str("unit", cfgs[i].Unit).Msg("Unit label too long, clipping")
			cfgs[i].Unit = cfgs[i].Unit[:MaxUnitLen]
		}
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback()

	for i, cfg := range cfgs {
		if _, err := tx.Exec(
			`INSERT INTO channel_configs (idx, factor, unit) VALUES (?, ?, ?)
			 ON CONFLICT(idx) DO UPDATE SET factor = excluded.factor, unit = excluded.unit`,
			i, cfg.Factor, cfg.Unit,
		); err != nil {
			return fmt.Errorf("save channel %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}

	s.mu.Lock()
	s.cached = cfgs
	s.mu.Unlock()
	log.Info().Msg("Channel configurations saved")
	return nil
}

// LogOnBoot reports whether logging should start automatically at
// boot. Errors read as false so a damaged row cannot block startup.
func (s *Store) LogOnBoot() bool {
	var value string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = 'log_on_boot'`).Scan(&value)
	if err != nil {
		if err != sql.ErrNoRows {
			log.Warn().Err(err).Msg("Failed to read log_on_boot")
		}
		return false
	}
	return value == "1"
}

// SetLogOnBoot persists the boot-time logging flag.
func (s *Store) SetLogOnBoot(on bool) error {
	value := "0"
	if on {
		value = "1"
	}
	_, err := s.db.Exec(
		`INSERT INTO settings (key, value) VALUES ('log_on_boot', ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		value,
	)
	if err != nil {
		return fmt.Errorf("save log_on_boot: %w", err)
	}
	return nil
}
