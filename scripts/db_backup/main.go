// Command db_backup copies the sqlite database file to a timestamped backup.
// The server should be stopped first; sqlite files are not safe to copy
// mid-write.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/opshq/backoffice/internal/config"
)

func main() {
	out := flag.String("out", "", "backup destination (default <db>.<timestamp>.bak)")
	flag.Parse()

	cfg, err := config.LoadConfig("")
	if err != nil {
		fail("load config: %v", err)
	}

	dst := *out
	if dst == "" {
		dst = fmt.Sprintf("%s.%s.bak", cfg.DatabasePath, time.Now().Format("20060102-150405"))
	}

	if err := copyFile(cfg.DatabasePath, dst); err != nil {
		fail("backup: %v", err)
	}
	fmt.Printf("backed up %s to %s\n", cfg.DatabasePath, dst)
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
