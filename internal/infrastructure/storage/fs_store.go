package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jhoicas/facturador-sunat/internal/domain/entity"
)

// FSStore guarda los ZIP en disco bajo baseDir/{empresa}/.
type FSStore struct {
	baseDir string
}

// NewFSStore crea el store; baseDir se crea si no existe.
func NewFSStore(baseDir string) (*FSStore, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("storage: directorio base vacío")
	}
	if err := os.MkdirAll(baseDir, 0o750); err != nil {
		return nil, fmt.Errorf("storage: crear %s: %w", baseDir, err)
	}
	return &FSStore{baseDir: baseDir}, nil
}

// Save escribe en un temporal y renombra: un lector nunca ve un ZIP a medias.
func (s *FSStore) Save(_ context.Context, companyID string, archive *entity.ArchiveEntry) (string, error) {
	key, err := objectKey("", companyID, archive.FileName)
	if err != nil {
		return "", err
	}
	dst := filepath.Join(s.baseDir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
		return "", fmt.Errorf("storage: crear directorio: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".tmp-*")
	if err != nil {
		return "", fmt.Errorf("storage: temporal: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(archive.Content); err != nil {
		tmp.Close()
		return "", fmt.Errorf("storage: escribir %s: %w", archive.FileName, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("storage: cerrar temporal: %w", err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return "", fmt.Errorf("storage: mover a %s: %w", dst, err)
	}
	return dst, nil
}

// Load lee un ZIP guardado por Save.
func (s *FSStore) Load(_ context.Context, location string) ([]byte, error) {
	rel, err := filepath.Rel(s.baseDir, location)
	if err != nil || rel == ".." || filepath.IsAbs(rel) || len(rel) >= 2 && rel[:2] == ".." {
		return nil, fmt.Errorf("storage: %s fuera del directorio base", location)
	}
	data, err := os.ReadFile(location)
	if err != nil {
		return nil, fmt.Errorf("storage: leer %s: %w", location, err)
	}
	return data, nil
}
