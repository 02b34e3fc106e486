package ingestion

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ── helpers ───────────────────────────────────────────────────────────────────

func buildZip(t *testing.T, members map[string][]byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	names := make([]string, 0, len(members))
	for n := range members {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		w, err := zw.Create(n)
		require.NoError(t, err)
		_, err = w.Write(members[n])
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func sources(items []item) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.source)
	}
	return out
}

// ── Expansión ─────────────────────────────────────────────────────────────────

func TestExpand_ZipAnidado(t *testing.T) {
	inner := buildZip(t, map[string][]byte{"c.xml": []byte("<c/>")})
	outer := buildZip(t, map[string][]byte{
		"a.xml":     []byte("<a/>"),
		"leia.txt":  []byte("ignorado"),
		"sub/b.XML": []byte("<b/>"),
		"inner.zip": inner,
	})

	items := expander{}.expand(ArchiveSource("lote.zip", outer))
	assert.Equal(t, []string{"lote.zip!a.xml", "lote.zip!inner.zip!c.xml", "lote.zip!sub/b.XML"}, sources(items))
	for _, it := range items {
		assert.NoError(t, it.err)
	}
}

func TestExpand_LimiteDeMiembros(t *testing.T) {
	data := buildZip(t, map[string][]byte{"a.xml": []byte("<a/>"), "b.xml": []byte("<b/>")})
	items := expander{maxEntries: 1}.expand(ArchiveSource("lote.zip", data))
	require.Len(t, items, 1)
	assert.Error(t, items[0].err)
}

func TestExpand_ProfundidadMaxima(t *testing.T) {
	data := buildZip(t, map[string][]byte{"x.xml": []byte("<x/>")})
	for i := 0; i < maxArchiveDepth; i++ {
		data = buildZip(t, map[string][]byte{"n.zip": data})
	}
	items := expander{}.expand(ArchiveSource("lote.zip", data))
	require.Len(t, items, 1)
	assert.Error(t, items[0].err)
}

func TestExpand_ZipCorrupto(t *testing.T) {
	items := expander{}.expand(ArchiveSource("lote.zip", []byte("PK\x03\x04basura")))
	require.Len(t, items, 1)
	assert.Error(t, items[0].err)
}

func TestExpand_Directorio(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "2024", "01"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "2024", "01", "n1.xml"), []byte("<n1/>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "notas.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "lote.zip"),
		buildZip(t, map[string][]byte{"n2.xml": []byte("<n2/>")}), 0o644))

	items := expander{}.expand(PathSource(root))
	require.Len(t, items, 2)
	assert.Equal(t, filepath.Join(root, "2024", "01", "n1.xml"), items[0].source)
	assert.Equal(t, filepath.Join(root, "lote.zip")+"!n2.xml", items[1].source)
}

func TestExpand_ZipPorFirma(t *testing.T) {
	p := filepath.Join(t.TempDir(), "lote.bin")
	require.NoError(t, os.WriteFile(p, buildZip(t, map[string][]byte{"n.xml": []byte("<n/>")}), 0o644))

	items := expander{}.expand(FileSource(p))
	require.Len(t, items, 1)
	assert.Equal(t, p+"!n.xml", items[0].source)
}

func TestExpand_ArchivoInexistente(t *testing.T) {
	items := expander{}.expand(PathSource(filepath.Join(t.TempDir(), "nao-existe.xml")))
	require.Len(t, items, 1)
	assert.Error(t, items[0].err)
}
