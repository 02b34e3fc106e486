package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testdata = "../../internal/infrastructure/nfe/testdata"

// cli ejecuta comandos contra una base SQLite propia del test.
type cli struct {
	t  *testing.T
	db string
}

func newCLI(t *testing.T) *cli {
	t.Setenv("STORAGE_DRIVER", "sqlite")
	t.Setenv("APP_ENV", "test")
	t.Setenv("LOG_LEVEL", "error")
	return &cli{t: t, db: filepath.Join(t.TempDir(), "ledger.db")}
}

func (c *cli) run(args ...string) (int, string, string) {
	c.t.Helper()
	var stdout, stderr bytes.Buffer
	full := append([]string{args[0], "--sqlite-path", c.db}, args[1:]...)
	code := run(context.Background(), full, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

// ── Uso ───────────────────────────────────────────────────────────────────────

func TestRun_SinComando(t *testing.T) {
	var stderr bytes.Buffer
	code := run(context.Background(), nil, &bytes.Buffer{}, &stderr)
	assert.Equal(t, exitUsage, code)
	assert.Contains(t, stderr.String(), "register-counterparty")
}

func TestRun_ComandoDesconocido(t *testing.T) {
	code := run(context.Background(), []string{"borrar-todo"}, &bytes.Buffer{}, &bytes.Buffer{})
	assert.Equal(t, exitUsage, code)
}

// ── Flujo completo ────────────────────────────────────────────────────────────

func TestRun_ImportStockYReportes(t *testing.T) {
	c := newCLI(t)

	code, _, _ := c.run("import", filepath.Join(testdata, "entrada.xml"))
	assert.Equal(t, exitForbidden, code, "visualizador no puede importar")

	code, out, errOut := c.run("import", "--role", "operador",
		filepath.Join(testdata, "entrada.xml"), filepath.Join(testdata, "saida.xml"))
	require.Equal(t, exitOK, code, errOut)
	assert.Contains(t, out, "importados: 2")

	code, out, _ = c.run("import", "--role", "operador", filepath.Join(testdata, "entrada_compacta.xml"))
	require.Equal(t, exitOK, code)
	assert.Contains(t, out, "duplicados: 1")

	code, out, _ = c.run("import", "--role", "operador", filepath.Join(testdata, "sem_itens.xml"))
	assert.Equal(t, exitPartial, code)
	assert.Contains(t, out, "rechazados: 1")

	code, out, _ = c.run("stock")
	require.Equal(t, exitOK, code)
	assert.Contains(t, out, "COD123")
	assert.Contains(t, out, "30")

	code, out, _ = c.run("stock", "--verify")
	require.Equal(t, exitOK, code)
	assert.Contains(t, out, "consistente")

	code, out, _ = c.run("history", "--direction", "out", "--from", "2024-02-01", "--to", "2024-02-29")
	require.Equal(t, exitOK, code)
	assert.Contains(t, out, "2024-02-03")
	assert.NotContains(t, out, "2024-01-15")

	export := filepath.Join(t.TempDir(), "resumo.csv")
	code, _, errOut = c.run("financial", "--from", "2024-01-01", "--to", "2024-12-31", "--export", export)
	require.Equal(t, exitOK, code, errOut)
	data, err := os.ReadFile(export)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "547.50,300.00,247.50", lines[1])
}

func TestRun_DocumentosYLineas(t *testing.T) {
	c := newCLI(t)

	for _, f := range []string{"entrada.xml", "saida.xml"} {
		code, _, errOut := c.run("import", "--role", "operador", filepath.Join(testdata, f))
		require.Equal(t, exitOK, code, errOut)
	}

	code, out, errOut := c.run("documents")
	require.Equal(t, exitOK, code, errOut)
	assert.Contains(t, out, "Histórico de notas")
	assert.Contains(t, out, "35240111222333000181550010000000011000000010")
	assert.Contains(t, out, "Fornecedor Alfa Ltda")
	assert.Contains(t, out, "Cliente Final")
	assert.Less(t, strings.Index(out, "2024-01-15"), strings.Index(out, "2024-02-03"), "ordenado por fecha de emisión")

	code, out, _ = c.run("documents", "--direction", "out")
	require.Equal(t, exitOK, code)
	assert.Contains(t, out, "Cliente Final")
	assert.NotContains(t, out, "Fornecedor Alfa Ltda")

	code, out, _ = c.run("documents", "--product", "COD456")
	require.Equal(t, exitOK, code)
	assert.Contains(t, out, "2024-01-15")
	assert.NotContains(t, out, "2024-02-03")

	code, out, errOut = c.run("document-items", "--seq", "1")
	require.Equal(t, exitOK, code, errOut)
	assert.Contains(t, out, "COD123")
	assert.Contains(t, out, "COD456")

	code, _, _ = c.run("document-items")
	assert.Equal(t, exitUsage, code, "sin --seq ni --fingerprint")

	code, _, _ = c.run("document-items", "--seq", "1", "--fingerprint", "abc")
	assert.Equal(t, exitUsage, code, "solo uno de los dos")

	code, _, _ = c.run("document-items", "--seq", "99")
	assert.Equal(t, exitError, code)
}

func TestRun_FinancialSinFechas(t *testing.T) {
	c := newCLI(t)
	code, _, errOut := c.run("financial")
	assert.Equal(t, exitUsage, code)
	assert.Contains(t, errOut, "--from")
}

// ── Operaciones manuales ──────────────────────────────────────────────────────

func TestRun_AjusteYRebuild(t *testing.T) {
	c := newCLI(t)

	code, out, errOut := c.run("register-product", "--role", "operador",
		"--code", "COD900", "--description", "Arruela", "--quantity", "12", "--unit-value", "0.5")
	require.Equal(t, exitOK, code, errOut)
	assert.Contains(t, out, "COD900")

	code, _, errOut = c.run("adjust", "--role", "operador", "--product", "COD900", "--quantity", "-2")
	require.Equal(t, exitOK, code, errOut)

	code, out, _ = c.run("rebuild", "--role", "operador")
	assert.Equal(t, exitForbidden, code, "rebuild es solo para admin")

	code, out, errOut = c.run("rebuild", "--role", "admin")
	require.Equal(t, exitOK, code, errOut)
	assert.Contains(t, out, "productos corregidos: 0")

	code, out, _ = c.run("stock")
	require.Equal(t, exitOK, code)
	assert.Contains(t, out, "10")
}

func TestRun_ContraparteYAccessLog(t *testing.T) {
	c := newCLI(t)

	code, _, _ := c.run("register-counterparty", "--role", "operador", "--tax-id", "11.222.333/0001-82", "--name", "X")
	assert.Equal(t, exitError, code, "dígito verificador inválido")

	code, out, errOut := c.run("register-counterparty", "--role", "operador", "--tax-id", "11.222.333/0001-81", "--name", "Fornecedor Alfa")
	require.Equal(t, exitOK, code, errOut)
	assert.Contains(t, out, "11222333000181")

	for _, args := range [][]string{
		{"login-attempt", "--user", "ana", "--success"},
		{"login-attempt", "--user", "ana"},
		{"login-attempt", "--user", "bruno", "--success"},
	} {
		code, _, errOut := c.run(args...)
		require.Equal(t, exitOK, code, errOut)
	}

	code, _, _ = c.run("access-log", "--role", "operador")
	assert.Equal(t, exitForbidden, code)

	code, out, errOut = c.run("access-log", "--role", "admin", "--user", "ana", "--success", "false")
	require.Equal(t, exitOK, code, errOut)
	assert.Contains(t, out, "Não")
	assert.NotContains(t, out, "bruno")
}
