package config

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	defaultInputDir       = "~/Videos/unsorted"
	defaultOutputDir      = "~/Videos/sorted"
	defaultDatabasePath   = "~/.local/share/mediasort/catalog.db"
	defaultLogDir         = "~/.local/share/mediasort/logs"
	defaultLogFormat      = "console"
	defaultLogLevel       = "info"
	defaultPlayerCommand  = "mpv"
	defaultReleaseDelayMS = 1500
	defaultFFprobeBinary  = "ffprobe"
	defaultProbeTimeout   = 30
	defaultVocabCacheSize = 16
)

// Vocabulary backfill policies.
const (
	// BackfillRecord applies a new vocabulary value to the in-flight record only.
	BackfillRecord = "record"
	// BackfillLegacy additionally writes the new value into every historical
	// record whose column is still empty.
	BackfillLegacy = "legacy"
)

var defaultExtensions = []string{".mp4", ".mkv", ".avi", ".mov", ".wmv", ".flv", ".webm", ".m4v"}

// DefaultTables creates the two catalog tables with their identity columns.
// Everything else arrives through DefaultColumns so fresh and legacy databases
// converge through the same migration path.
var DefaultTables = []string{
	`CREATE TABLE IF NOT EXISTS media (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    fileId INTEGER,
    sourceFilePath TEXT NOT NULL UNIQUE,
    sourceFileName TEXT
)`,
	`CREATE TABLE IF NOT EXISTS options (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    category TEXT UNIQUE,
    tag TEXT UNIQUE,
    type TEXT UNIQUE
)`,
}

// DefaultColumns lists the column statements applied in order by the schema manager.
var DefaultColumns = []string{
	"ALTER TABLE media ADD COLUMN count INTEGER NOT NULL DEFAULT 0",
	"ALTER TABLE media ADD COLUMN destFileName TEXT",
	"ALTER TABLE media ADD COLUMN destFilePath TEXT",
	"ALTER TABLE media ADD COLUMN rating INTEGER NOT NULL DEFAULT 0",
	"ALTER TABLE media ADD COLUMN category TEXT",
	"ALTER TABLE media ADD COLUMN type TEXT",
	"ALTER TABLE media ADD COLUMN tag TEXT",
	"ALTER TABLE media ADD COLUMN fileRes TEXT",
	"ALTER TABLE media ADD COLUMN deleted INTEGER NOT NULL DEFAULT 0",
	"ALTER TABLE media ADD COLUMN skipped INTEGER NOT NULL DEFAULT 0",
	"ALTER TABLE media ADD COLUMN processed INTEGER NOT NULL DEFAULT 0",
	"ALTER TABLE media ADD COLUMN fileSize INTEGER NOT NULL DEFAULT 0",
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			InputDir:     defaultInputDir,
			OutputDir:    defaultOutputDir,
			DatabasePath: defaultDatabasePath,
			LogDir:       defaultLogDir,
		},
		Media: Media{
			Extensions: append([]string(nil), defaultExtensions...),
			Shuffle:    true,
		},
		Schema: Schema{
			Tables:  append([]string(nil), DefaultTables...),
			Columns: append([]string(nil), DefaultColumns...),
		},
		Vocabulary: Vocabulary{
			Backfill:  BackfillRecord,
			CacheSize: defaultVocabCacheSize,
		},
		Player: Player{
			Command:        defaultPlayerCommand,
			Args:           []string{"--really-quiet", "--loop-file=inf"},
			ReleaseDelayMS: defaultReleaseDelayMS,
		},
		Probe: Probe{
			FFprobeBinary:  defaultFFprobeBinary,
			TimeoutSeconds: defaultProbeTimeout,
		},
		Trash: Trash{
			Dir: defaultTrashDir(),
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

func defaultTrashDir() string {
	if base, ok := os.LookupEnv("XDG_DATA_HOME"); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, "Trash")
	}
	return "~/.local/share/Trash"
}
