// Package storage guarda los ZIP firmados enviados a SUNAT. La ruta devuelta se
// persiste en TransmissionRecord.ZipFilePath.
package storage

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/jhoicas/facturador-sunat/internal/domain/entity"
)

// ArchiveStore destino de los ZIP. Save es idempotente para el mismo archivo.
type ArchiveStore interface {
	Save(ctx context.Context, companyID string, archive *entity.ArchiveEntry) (string, error)
	Load(ctx context.Context, location string) ([]byte, error)
}

// objectKey {prefix}/{companyID}/{archivo}.zip sin segmentos vacíos ni "..".
func objectKey(prefix, companyID, fileName string) (string, error) {
	if companyID == "" || fileName == "" {
		return "", fmt.Errorf("storage: empresa y nombre de archivo son obligatorios")
	}
	for _, part := range []string{companyID, fileName} {
		if strings.Contains(part, "/") || strings.Contains(part, `\`) || strings.Contains(part, "..") {
			return "", fmt.Errorf("storage: segmento inválido %q", part)
		}
	}
	return path.Join(strings.Trim(prefix, "/"), companyID, fileName), nil
}
