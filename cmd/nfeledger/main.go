// Command nfeledger importa NF-e a un ledger de inventario y emite reportes de stock,
// financieros y de movimientos.
//
//	nfeledger import --role operador notas/ lote.zip
//	nfeledger stock --verify
//	nfeledger financial --from 2024-01-01 --to 2024-01-31 --export resumo.xlsx
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/ekk0s/nfe-ledger/internal/domain"
	"github.com/ekk0s/nfe-ledger/internal/domain/entity"
)

// Códigos de salida.
const (
	exitOK        = 0
	exitError     = 1
	exitUsage     = 2
	exitForbidden = 3
	exitPartial   = 4
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

// run despacha el subcomando y traduce el error a código de salida.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		usage(stderr)
		return exitUsage
	}
	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(stderr, "comando desconocido %q\n\n", args[0])
		usage(stderr)
		return exitUsage
	}

	flags := pflag.NewFlagSet(args[0], pflag.ContinueOnError)
	flags.SetOutput(stderr)
	registerCommonFlags(flags)
	opts := cmd.flags(flags)
	if err := flags.Parse(args[1:]); err != nil {
		return exitUsage
	}

	env, err := newEnvironment(ctx, flags, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitError
	}
	defer env.Close()
	r, _ := flags.GetString("role")
	env.role = entity.Role(strings.ToLower(strings.TrimSpace(r)))

	err = cmd.run(ctx, env, opts, flags.Args(), stdout)
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, errPartial):
		return exitPartial
	case errors.Is(err, domain.ErrForbidden):
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitForbidden
	case errors.Is(err, errUsage):
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitUsage
	default:
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitError
	}
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "uso: nfeledger <comando> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "comandos:")
	for _, name := range commandOrder {
		fmt.Fprintf(w, "  %-22s %s\n", name, commands[name].summary)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "flags comunes: --role, --storage-driver, --sqlite-path, --database-url, --log-level")
}
