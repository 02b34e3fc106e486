package ingestion

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

type sourceKind int

const (
	kindPayload sourceKind = iota
	kindArchive
	kindFile
	kindDirectory
)

// Límites de expansión de archivos comprimidos.
const (
	maxArchiveDepth = 4
	maxMemberBytes  = 64 << 20
)

var zipMagic = []byte("PK\x03\x04")

// Source origen de documentos para un lote: contenido en memoria, ZIP en memoria,
// archivo o directorio en disco.
type Source struct {
	kind sourceKind
	name string
	data []byte
}

// PayloadSource un documento XML ya leído.
func PayloadSource(name string, data []byte) Source {
	return Source{kind: kindPayload, name: name, data: data}
}

// ArchiveSource un ZIP en memoria; sus miembros .xml (y ZIPs anidados) son payloads.
func ArchiveSource(name string, data []byte) Source {
	return Source{kind: kindArchive, name: name, data: data}
}

// FileSource un archivo en disco; se trata como ZIP por extensión o por firma PK.
func FileSource(p string) Source { return Source{kind: kindFile, name: p} }

// DirectorySource recorre p recursivamente tomando .xml y .zip.
func DirectorySource(p string) Source { return Source{kind: kindDirectory, name: p} }

// PathSource elige FileSource o DirectorySource según lo que exista en p.
// Si p no existe se devuelve FileSource y el error aparece como falla del lote.
func PathSource(p string) Source {
	if info, err := os.Stat(p); err == nil && info.IsDir() {
		return DirectorySource(p)
	}
	return FileSource(p)
}

// Name identificador para reportes.
func (s Source) Name() string { return s.name }

// item unidad de trabajo: un payload o una falla de expansión.
type item struct {
	source string
	data   []byte
	err    error
}

// expander convierte fuentes en payloads respetando el límite de miembros por archivo.
type expander struct {
	maxEntries int
}

func (e expander) expand(src Source) []item {
	switch src.kind {
	case kindPayload:
		return []item{{source: src.name, data: src.data}}
	case kindArchive:
		return e.archive(src.name, src.data, 0)
	case kindFile:
		return e.file(src.name)
	case kindDirectory:
		return e.directory(src.name)
	}
	return []item{{source: src.name, err: fmt.Errorf("tipo de fuente desconocido")}}
}

func (e expander) file(p string) []item {
	data, err := os.ReadFile(p)
	if err != nil {
		return []item{{source: p, err: fmt.Errorf("leer archivo: %w", err)}}
	}
	if isArchive(p, data) {
		return e.archive(p, data, 0)
	}
	return []item{{source: p, data: data}}
}

func (e expander) directory(root string) []item {
	var out []item
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			out = append(out, item{source: p, err: fmt.Errorf("recorrer directorio: %w", err)})
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(p)) {
		case ".xml":
			data, err := os.ReadFile(p)
			if err != nil {
				out = append(out, item{source: p, err: fmt.Errorf("leer archivo: %w", err)})
				return nil
			}
			out = append(out, item{source: p, data: data})
		case ".zip":
			out = append(out, e.file(p)...)
		}
		return nil
	})
	if err != nil {
		out = append(out, item{source: root, err: fmt.Errorf("recorrer directorio: %w", err)})
	}
	return out
}

// archive expande un ZIP; los miembros se nombran "archivo.zip!ruta/miembro.xml".
func (e expander) archive(name string, data []byte, depth int) []item {
	if depth >= maxArchiveDepth {
		return []item{{source: name, err: fmt.Errorf("ZIP anidado supera %d niveles", maxArchiveDepth)}}
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return []item{{source: name, err: fmt.Errorf("abrir ZIP: %w", err)}}
	}
	if e.maxEntries > 0 && len(zr.File) > e.maxEntries {
		return []item{{source: name, err: fmt.Errorf("ZIP con %d miembros supera el límite de %d", len(zr.File), e.maxEntries)}}
	}
	var out []item
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		member := name + "!" + f.Name
		ext := strings.ToLower(path.Ext(f.Name))
		if ext != ".xml" && ext != ".zip" {
			continue
		}
		content, err := readMember(f)
		if err != nil {
			out = append(out, item{source: member, err: err})
			continue
		}
		if ext == ".zip" {
			out = append(out, e.archive(member, content, depth+1)...)
			continue
		}
		out = append(out, item{source: member, data: content})
	}
	return out
}

func readMember(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("abrir miembro: %w", err)
	}
	defer rc.Close()
	data, err := io.ReadAll(io.LimitReader(rc, maxMemberBytes+1))
	if err != nil {
		return nil, fmt.Errorf("leer miembro: %w", err)
	}
	if len(data) > maxMemberBytes {
		return nil, fmt.Errorf("miembro supera %d bytes", maxMemberBytes)
	}
	return data, nil
}

func isArchive(p string, data []byte) bool {
	return strings.EqualFold(filepath.Ext(p), ".zip") || bytes.HasPrefix(data, zipMagic)
}
