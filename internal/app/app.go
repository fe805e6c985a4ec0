package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"wsrestore/internal/config"
	"wsrestore/internal/database"
	"wsrestore/internal/encryption"
	"wsrestore/internal/filestore"
	"wsrestore/internal/restore"
	"wsrestore/internal/snapshot"
)

// Stage identifies the part of a run that failed, so the CLI can pick an
// exit code.
type Stage int

const (
	StageSnapshot Stage = iota + 1
	StageDatabase
)

// StageError attributes err to a stage. Its message is err's.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string { return e.Err.Error() }
func (e *StageError) Unwrap() error { return e.Err }

func stageErr(stage Stage, err error) error {
	return &StageError{Stage: stage, Err: err}
}

// StageOf returns the stage err is attributed to, or 0.
func StageOf(err error) Stage {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return 0
}

// PassphraseFunc supplies the key passphrase. It is only called when a
// sealed export has to be opened or keys are generated.
type PassphraseFunc func() (string, error)

// Options configures a WSRestoreApp.
type Options struct {
	// Operation and Parameters name the CLI command for the log.
	Operation  string
	Parameters string

	// Verbose lowers the log level to debug.
	Verbose bool

	Passphrase PassphraseFunc

	// Stderr receives log output next to the log file. Defaults to os.Stderr.
	Stderr io.Writer
}

// WSRestoreApp is the application layer between the CLI and restore.Service.
// It constructs dependencies from config and exposes the operations the CLI
// offers. The destination database is only opened by Import.
type WSRestoreApp struct {
	cfg        *config.Config
	encryptor  snapshot.Encryptor
	passphrase PassphraseFunc
	logger     *slog.Logger
	run        *Run
	logFile    *os.File
	clock      restore.Clock
	ids        restore.IDGenerator
}

// NewWSRestoreApp creates a WSRestoreApp from the given config.
// The caller must call Close when done.
func NewWSRestoreApp(cfg *config.Config, opts Options) (*WSRestoreApp, error) {
	enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
	if err != nil {
		return nil, fmt.Errorf("creating encryptor: %w", err)
	}

	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}
	stderr := opts.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}

	clock := restore.RealClock{}
	run := NewRun(opts.Operation, opts.Parameters, clock.Now())
	logger, logFile, err := newLogger(cfg.LogDir, run.ID, level, stderr)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger.Debug("run started", "operation", run.Operation, "parameters", run.Parameters)

	return &WSRestoreApp{
		cfg:        cfg,
		encryptor:  enc,
		passphrase: opts.Passphrase,
		logger:     logger,
		run:        run,
		logFile:    logFile,
		clock:      clock,
		ids:        restore.UUIDGenerator{},
	}, nil
}

// unlocker returns the snapshot.Unlocker that asks for the passphrase and
// opens the private key.
func (a *WSRestoreApp) unlocker() snapshot.Unlocker {
	return func() (snapshot.DecryptionContext, error) {
		if !a.encryptor.IsConfigured() {
			return nil, fmt.Errorf("no key pair configured: run 'wsrestore keys init'")
		}
		if a.passphrase == nil {
			return nil, fmt.Errorf("a passphrase is required to open a sealed export")
		}
		p, err := a.passphrase()
		if err != nil {
			return nil, fmt.Errorf("reading passphrase: %w", err)
		}
		return a.encryptor.Unlock(p)
	}
}

// openSnapshot reads the export in dir.
func (a *WSRestoreApp) openSnapshot(dir string) (*restore.Snapshot, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, stageErr(StageSnapshot, fmt.Errorf("import directory: %w", err))
	}
	if !info.IsDir() {
		return nil, stageErr(StageSnapshot, fmt.Errorf("import directory: %s is not a directory", dir))
	}

	snap, err := snapshot.Open(dir, a.cfg.Import.SnapshotFile, a.unlocker())
	if err != nil {
		return nil, stageErr(StageSnapshot, err)
	}
	a.logger.Info("snapshot loaded", "dir", dir, "exported_at", snap.ExportedAt, "version", snap.Version)
	return snap, nil
}

// Import restores the export in dir. With opts.DryRun the load goes into
// an in-memory rehearsal database and the configured destination is never
// opened.
func (a *WSRestoreApp) Import(ctx context.Context, dir string, opts restore.Options) (*restore.Summary, error) {
	snap, err := a.openSnapshot(dir)
	if err != nil {
		return nil, a.run.Fail(err)
	}

	var store *database.SQLStore
	if opts.DryRun {
		a.logger.Info("dry run: loading into a rehearsal database")
		store, err = database.NewRehearsalStore()
	} else {
		store, err = database.NewStoreFromConfig(ctx, a.cfg.Database)
	}
	if err != nil {
		return nil, a.run.Fail(stageErr(StageDatabase, fmt.Errorf("opening database: %w", err)))
	}
	defer store.Close()
	a.logger.Debug("database opened", "dialect", store.Dialect())

	files, err := filestore.NewFileStoreFromConfig(ctx, a.cfg.Files)
	if err != nil {
		// File stats are informational; a misconfigured store is reported
		// in the summary instead of stopping the import.
		a.logger.Warn("file storage unavailable", "error", err)
		files = unavailableFiles{err: err}
	}

	svc := restore.NewService(store, files, a.clock, a.ids, &slogAdapter{l: a.logger})
	summary, err := svc.Restore(ctx, snap, opts)
	if err != nil {
		return nil, a.run.Fail(stageErr(StageDatabase, err))
	}
	if !summary.OK() {
		a.logger.Warn("import finished with problems", "problems", len(summary.Load.Problems))
	}
	return summary, nil
}

// Check inspects the export in dir without touching any database.
func (a *WSRestoreApp) Check(dir string) (*snapshot.Report, error) {
	snap, err := a.openSnapshot(dir)
	if err != nil {
		return nil, a.run.Fail(err)
	}
	return snapshot.Inspect(snap), nil
}

// Seal encrypts the export at path for the configured public key and
// returns the sealed file's path.
func (a *WSRestoreApp) Seal(path string) (string, error) {
	if !a.encryptor.IsConfigured() {
		return "", a.run.Fail(fmt.Errorf("no key pair configured: run 'wsrestore keys init'"))
	}
	out, err := encryption.SealFile(a.encryptor, path)
	if err != nil {
		return "", a.run.Fail(stageErr(StageSnapshot, err))
	}
	a.logger.Info("export sealed", "src", path, "dst", out)
	return out, nil
}

// KeysInit generates the key pair, protecting the private key with the
// passphrase.
func (a *WSRestoreApp) KeysInit() error {
	if a.encryptor.IsConfigured() {
		return a.run.Fail(fmt.Errorf("key pair already exists at %s", a.cfg.Encryption.PrivateKeyPath))
	}
	if a.passphrase == nil {
		return a.run.Fail(fmt.Errorf("a passphrase is required"))
	}
	p, err := a.passphrase()
	if err != nil {
		return a.run.Fail(fmt.Errorf("reading passphrase: %w", err))
	}
	if p == "" {
		return a.run.Fail(fmt.Errorf("passphrase must not be empty"))
	}
	if err := a.encryptor.Setup(p); err != nil {
		return a.run.Fail(fmt.Errorf("generating keys: %w", err))
	}
	a.logger.Info("key pair created", "public_key", a.cfg.Encryption.PublicKeyPath)
	return nil
}

// Close logs the end of the run and closes the log file.
func (a *WSRestoreApp) Close() error {
	a.logger.Debug("run finished", "operation", a.run.Operation,
		"status", a.run.Status, "elapsed", a.run.Elapsed(a.clock.Now()))

	if a.logFile != nil {
		if err := a.logFile.Close(); err != nil {
			return fmt.Errorf("closing log file: %w", err)
		}
	}
	return nil
}

// unavailableFiles reports a file store that could not be constructed.
type unavailableFiles struct {
	err error
}

func (u unavailableFiles) Stats(context.Context) (restore.FileStats, error) {
	return restore.FileStats{}, u.err
}
