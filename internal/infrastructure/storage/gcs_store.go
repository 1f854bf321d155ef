package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	gcs "cloud.google.com/go/storage"
	"github.com/rs/zerolog"
	"google.golang.org/api/googleapi"

	"github.com/jhoicas/facturador-sunat/internal/domain/entity"
)

// GCSStore guarda los ZIP en un bucket de Cloud Storage.
type GCSStore struct {
	client *gcs.Client
	bucket string
	prefix string
	log    zerolog.Logger
}

// NewGCSStore usa las credenciales por defecto de la aplicación (ADC).
func NewGCSStore(ctx context.Context, bucket, prefix string, log zerolog.Logger) (*GCSStore, error) {
	if bucket == "" {
		return nil, fmt.Errorf("storage: bucket GCS vacío")
	}
	client, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("storage: cliente GCS: %w", err)
	}
	return &GCSStore{client: client, bucket: bucket, prefix: prefix, log: log}, nil
}

// Save crea el objeto solo si no existe; el ZIP es determinista, así que un objeto
// existente con el mismo nombre ya tiene el mismo contenido.
func (s *GCSStore) Save(ctx context.Context, companyID string, archive *entity.ArchiveEntry) (string, error) {
	key, err := objectKey(s.prefix, companyID, archive.FileName)
	if err != nil {
		return "", err
	}
	location := "gs://" + s.bucket + "/" + key

	w := s.client.Bucket(s.bucket).Object(key).If(gcs.Conditions{DoesNotExist: true}).NewWriter(ctx)
	w.ContentType = "application/zip"
	if _, err := io.Copy(w, bytes.NewReader(archive.Content)); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("storage: subir %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed {
			s.log.Debug().Str("object", key).Msg("[SUNAT] ZIP ya existe en GCS")
			return location, nil
		}
		return "", fmt.Errorf("storage: finalizar %s: %w", key, err)
	}
	return location, nil
}

// Load descarga gs://bucket/objeto.
func (s *GCSStore) Load(ctx context.Context, location string) ([]byte, error) {
	key, ok := strings.CutPrefix(location, "gs://"+s.bucket+"/")
	if !ok {
		return nil, fmt.Errorf("storage: %s no pertenece al bucket %s", location, s.bucket)
	}
	r, err := s.client.Bucket(s.bucket).Object(key).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("storage: abrir %s: %w", key, err)
	}
	defer r.Close()
	return io.ReadAll(r)
}

// Close libera el cliente.
func (s *GCSStore) Close() error {
	return s.client.Close()
}
