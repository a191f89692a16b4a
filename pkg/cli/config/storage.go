package config

import (
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/unread-lab/catchup/pkg/domain/interfaces"
	"github.com/unread-lab/catchup/pkg/repository/fs"
	"github.com/unread-lab/catchup/pkg/repository/memory"
	"github.com/unread-lab/catchup/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// Storage holds CLI flags for repository backend configuration
type Storage struct {
	backend string
	dir     string
}

// Flags returns CLI flags for storage configuration
func (x *Storage) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "storage-backend",
			Usage:       "Storage backend type (fs or memory)",
			Value:       "fs",
			Sources:     cli.EnvVars("CATCHUP_STORAGE_BACKEND"),
			Destination: &x.backend,
		},
		&cli.StringFlag{
			Name:        "storage-dir",
			Usage:       "Directory for transcripts, summaries and poll state",
			Value:       "./data",
			Sources:     cli.EnvVars("CATCHUP_STORAGE_DIR"),
			Destination: &x.dir,
		},
	}
}

func (x Storage) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("backend", x.backend),
		slog.String("dir", x.dir),
	)
}

// Configure initializes the repository for the configured backend. The
// caller is responsible for calling Close().
func (x *Storage) Configure() (interfaces.Repository, error) {
	switch x.backend {
	case "fs", "":
		repo, err := fs.New(x.dir)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to initialize filesystem repository")
		}
		logging.Default().Info("Using filesystem repository", "dir", x.dir)
		return repo, nil

	case "memory":
		logging.Default().Info("Using in-memory repository (development mode)")
		return memory.New(), nil

	default:
		return nil, goerr.New("invalid storage backend", goerr.V("backend", x.backend))
	}
}
