package admin

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/feliperosa/trainvault/internal/training"
)

// backupFile is the on-disk JSON layout: a metadata header plus the raw
// records, compatible with backups produced by earlier tooling.
type backupFile struct {
	Metadata backupMetadata    `json:"metadata"`
	Records  []training.Record `json:"training_data"`
}

type backupMetadata struct {
	Timestamp    time.Time `json:"timestamp"`
	Tenant       string    `json:"tenant,omitempty"`
	RecordsCount int       `json:"records_count"`
	Kind         string    `json:"backup_type"`
}

// BackupInfo describes one backup file on disk.
type BackupInfo struct {
	Filename  string    `json:"filename"`
	Path      string    `json:"path"`
	SizeBytes int64     `json:"size_bytes"`
	Modified  time.Time `json:"modified"`
}

func (s *Service) writeJSONBackup(records []training.Record, tenantID string) (string, error) {
	if err := os.MkdirAll(s.backupDir, 0o755); err != nil {
		return "", fmt.Errorf("create backup dir: %w", err)
	}

	stamp := time.Now().UTC().Format("20060102_150405")
	name := fmt.Sprintf("backup_training_global_%s.json", stamp)
	if strings.TrimSpace(tenantID) != "" {
		name = fmt.Sprintf("backup_training_tenant_%s_%s.json", tenantID, stamp)
	}
	path := filepath.Join(s.backupDir, name)

	payload := backupFile{
		Metadata: backupMetadata{
			Timestamp:    time.Now().UTC(),
			Tenant:       tenantID,
			RecordsCount: len(records),
			Kind:         "training_data",
		},
		Records: records,
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal backup: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write backup file: %w", err)
	}
	return path, nil
}

func readJSONBackup(path string) ([]training.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read backup file: %w", err)
	}

	var payload backupFile
	if err := json.Unmarshal(data, &payload); err == nil && len(payload.Records) > 0 {
		return payload.Records, nil
	}

	// Older backups are a bare array of records.
	var bare []training.Record
	if err := json.Unmarshal(data, &bare); err != nil {
		return nil, fmt.Errorf("unrecognized backup format in %s: %w", path, err)
	}
	return bare, nil
}

// ListBackups scans the backup directory for training data snapshots, newest
// first.
func (s *Service) ListBackups() ([]BackupInfo, error) {
	entries, err := os.ReadDir(s.backupDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read backup dir: %w", err)
	}

	var out []BackupInfo
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), "backup_training") || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, BackupInfo{
			Filename:  e.Name(),
			Path:      filepath.Join(s.backupDir, e.Name()),
			SizeBytes: info.Size(),
			Modified:  info.ModTime().UTC(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Modified.After(out[j].Modified) })
	return out, nil
}
