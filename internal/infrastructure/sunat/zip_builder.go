package sunat

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jhoicas/facturador-sunat/internal/domain/entity"
)

// zipModTime fecha fija de la entrada: el mismo XML produce siempre el mismo ZIP.
var zipModTime = time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC)

// maxEntrySize límite al descomprimir entradas (CDR o ZIP propio).
const maxEntrySize = 10 << 20

// Pack empaqueta el XML firmado en un ZIP de una sola entrada.
// Nombre: {ruc}-{tipo}-{serie}-{correlativo}.zip con la entrada {stem}.xml.
func Pack(signed entity.SignedDocument) (*entity.ArchiveEntry, error) {
	if signed.FileStem == "" {
		return nil, fmt.Errorf("zip: nombre de archivo vacío")
	}
	if len(signed.XML) == 0 {
		return nil, fmt.Errorf("zip: XML firmado vacío")
	}
	entryName := signed.FileStem + ".xml"

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	hdr := &zip.FileHeader{
		Name:     entryName,
		Method:   zip.Deflate,
		Modified: zipModTime,
	}
	fw, err := zw.CreateHeader(hdr)
	if err != nil {
		return nil, fmt.Errorf("zip: crear entrada %s: %w", entryName, err)
	}
	if _, err := fw.Write(signed.XML); err != nil {
		return nil, fmt.Errorf("zip: escribir XML: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("zip: cerrar archivo: %w", err)
	}
	return &entity.ArchiveEntry{
		FileName:  signed.FileStem + ".zip",
		EntryName: entryName,
		Content:   buf.Bytes(),
	}, nil
}

// Unpack devuelve el nombre y contenido de la primera entrada .xml del ZIP.
func Unpack(content []byte) (name string, data []byte, err error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", nil, fmt.Errorf("zip: abrir: %w", err)
	}
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || !strings.HasSuffix(strings.ToLower(f.Name), ".xml") {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", nil, fmt.Errorf("zip: abrir entrada %s: %w", f.Name, err)
		}
		data, err = io.ReadAll(io.LimitReader(rc, maxEntrySize))
		rc.Close()
		if err != nil {
			return "", nil, fmt.Errorf("zip: leer entrada %s: %w", f.Name, err)
		}
		return f.Name, data, nil
	}
	return "", nil, fmt.Errorf("zip: sin entrada .xml")
}
