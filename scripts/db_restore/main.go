// Command db_restore replaces the sqlite database file with a backup made
// by db_backup. The current file is overwritten; stop the server first.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/opshq/backoffice/internal/config"
)

func main() {
	from := flag.String("from", "", "backup file to restore (required)")
	flag.Parse()

	if *from == "" {
		fmt.Fprintln(os.Stderr, "usage: db_restore -from <backup file>")
		os.Exit(2)
	}

	cfg, err := config.LoadConfig("")
	if err != nil {
		fail("load config: %v", err)
	}

	if err := copyFile(*from, cfg.DatabasePath); err != nil {
		fail("restore: %v", err)
	}
	fmt.Printf("restored %s from %s\n", cfg.DatabasePath, *from)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}

	_, err = io.Copy(out, in)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	return err
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
