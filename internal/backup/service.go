package backup

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	_ "modernc.org/sqlite"

	"github.com/rs/zerolog"
)

const archivePrefix = "wxengine-backup-"
const archiveTimeLayout = "2006-01-02-150405"
const minArchivesToKeep = 3

// Snapshotter runs VACUUM INTO against the live database. *store.DB
// satisfies this through its embedded *sql.DB.
type Snapshotter interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// ObjectStore is the subset of Client the Service depends on, so tests
// can substitute a fake without standing up a real S3-compatible endpoint.
type ObjectStore interface {
	Upload(ctx context.Context, key string, body io.Reader, size int64) error
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)
	Delete(ctx context.Context, key string) error
}

// Metadata describes one archive's contents, written alongside the
// database snapshot so a restore can verify integrity before use.
type Metadata struct {
	Timestamp time.Time `json:"timestamp"`
	DBName    string    `json:"db_name"`
	SizeBytes int64     `json:"size_bytes"`
	Checksum  string    `json:"checksum"`
}

// Service snapshots the database, archives it, and uploads the archive.
type Service struct {
	db         Snapshotter
	dbName     string
	client     ObjectStore
	stagingDir string
	log        zerolog.Logger
}

// NewService builds a Service. stagingDir holds the snapshot and archive
// while they're being built; it is cleaned up after each run.
func NewService(db Snapshotter, dbName, stagingDir string, client ObjectStore, log zerolog.Logger) *Service {
	return &Service{
		db:         db,
		dbName:     dbName,
		client:     client,
		stagingDir: stagingDir,
		log:        log.With().Str("component", "backup_service").Logger(),
	}
}

// Run takes a snapshot, archives it with its metadata, and uploads the
// archive. The staging directory is removed on exit regardless of
// success.
func (s *Service) Run(ctx context.Context) error {
	start := time.Now()
	if err := os.MkdirAll(s.stagingDir, 0o755); err != nil {
		return fmt.Errorf("backup: create staging dir: %w", err)
	}
	defer os.RemoveAll(s.stagingDir)

	snapshotPath := filepath.Join(s.stagingDir, s.dbName+".db")
	if err := s.snapshot(ctx, snapshotPath); err != nil {
		return err
	}
	if err := s.verify(snapshotPath); err != nil {
		return err
	}

	checksum, err := checksumFile(snapshotPath)
	if err != nil {
		return fmt.Errorf("backup: checksum snapshot: %w", err)
	}
	info, err := os.Stat(snapshotPath)
	if err != nil {
		return fmt.Errorf("backup: stat snapshot: %w", err)
	}
	meta := Metadata{Timestamp: time.Now().UTC(), DBName: s.dbName, SizeBytes: info.Size(), Checksum: checksum}
	metaPath := filepath.Join(s.stagingDir, "backup-metadata.json")
	if err := writeMetadata(metaPath, meta); err != nil {
		return fmt.Errorf("backup: write metadata: %w", err)
	}

	archiveName := fmt.Sprintf("%s%s.tar.gz", archivePrefix, time.Now().UTC().Format(archiveTimeLayout))
	archivePath := filepath.Join(s.stagingDir, archiveName)
	if err := createArchive(archivePath, map[string]string{
		s.dbName + ".db":       snapshotPath,
		"backup-metadata.json": metaPath,
	}); err != nil {
		return fmt.Errorf("backup: create archive: %w", err)
	}

	archiveInfo, err := os.Stat(archivePath)
	if err != nil {
		return fmt.Errorf("backup: stat archive: %w", err)
	}
	archiveFile, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("backup: open archive: %w", err)
	}
	defer archiveFile.Close()

	if err := s.client.Upload(ctx, archiveName, archiveFile, archiveInfo.Size()); err != nil {
		return err
	}

	s.log.Info().
		Str("archive", archiveName).
		Int64("size_bytes", archiveInfo.Size()).
		Dur("duration", time.Since(start)).
		Msg("backup uploaded")
	return nil
}

// Rotate deletes archives older than retentionDays, always keeping the
// newest minArchivesToKeep regardless of age. retentionDays of 0 keeps
// everything beyond the minimum.
func (s *Service) Rotate(ctx context.Context, retentionDays int) error {
	objects, err := s.client.List(ctx, archivePrefix)
	if err != nil {
		return err
	}
	if len(objects) <= minArchivesToKeep {
		return nil
	}

	sort.Slice(objects, func(i, j int) bool { return objects[i].Key > objects[j].Key })

	var cutoff time.Time
	if retentionDays > 0 {
		cutoff = time.Now().AddDate(0, 0, -retentionDays)
	}

	deleted := 0
	for i, obj := range objects {
		if i < minArchivesToKeep {
			continue
		}
		if retentionDays == 0 {
			continue
		}
		ts, ok := parseArchiveTimestamp(obj.Key)
		if !ok || ts.After(cutoff) {
			continue
		}
		if err := s.client.Delete(ctx, obj.Key); err != nil {
			s.log.Warn().Err(err).Str("key", obj.Key).Msg("failed to delete old backup")
			continue
		}
		deleted++
	}
	s.log.Info().Int("deleted", deleted).Int("remaining", len(objects)-deleted).Msg("backup rotation complete")
	return nil
}

func (s *Service) snapshot(ctx context.Context, dest string) error {
	_, err := s.db.ExecContext(ctx, fmt.Sprintf("VACUUM INTO '%s'", dest))
	if err != nil {
		return fmt.Errorf("backup: vacuum into: %w", err)
	}
	return nil
}

func (s *Service) verify(path string) error {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("backup: open snapshot for verify: %w", err)
	}
	defer conn.Close()

	var result string
	if err := conn.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("backup: integrity check query: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("backup: integrity check failed: %s", result)
	}
	return nil
}

func parseArchiveTimestamp(key string) (time.Time, bool) {
	name := filepath.Base(key)
	if len(name) < len(archivePrefix)+len(archiveTimeLayout)+7 {
		return time.Time{}, false
	}
	rest := name[len(archivePrefix):]
	const suffix = ".tar.gz"
	if len(rest) <= len(suffix) || rest[len(rest)-len(suffix):] != suffix {
		return time.Time{}, false
	}
	ts, err := time.Parse(archiveTimeLayout, rest[:len(rest)-len(suffix)])
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}

func checksumFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return fmt.Sprintf("sha256:%x", h.Sum(nil)), nil
}

func writeMetadata(path string, meta Metadata) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}

func createArchive(archivePath string, files map[string]string) error {
	archiveFile, err := os.Create(archivePath)
	if err != nil {
		return err
	}
	defer archiveFile.Close()

	gzWriter := gzip.NewWriter(archiveFile)
	defer gzWriter.Close()

	tarWriter := tar.NewWriter(gzWriter)
	defer tarWriter.Close()

	for nameInArchive, sourcePath := range files {
		if err := addFileToArchive(tarWriter, sourcePath, nameInArchive); err != nil {
			return fmt.Errorf("add %s: %w", nameInArchive, err)
		}
	}
	return nil
}

func addFileToArchive(tarWriter *tar.Writer, filePath, nameInArchive string) error {
	f, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}

	header := &tar.Header{Name: nameInArchive, Size: info.Size(), Mode: int64(info.Mode()), ModTime: info.ModTime()}
	if err := tarWriter.WriteHeader(header); err != nil {
		return err
	}
	_, err = io.Copy(tarWriter, f)
	return err
}
