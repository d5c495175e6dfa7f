//go:build mage

package main

import (
	"fmt"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Convert converts every supported file in input/ into markdown/, recording
// the run in the ledger so that unchanged files are skipped next time.
func Convert() error {
	mg.Deps(Build, Init)
	fmt.Println("[convert] input/ -> markdown/")
	return sh.RunV(filepath.Join(binDir, binName),
		"convert", "input", "--out-dir", "markdown", "--incremental", "--ledger", ledgerFile)
}

// Ledger groups targets that operate on the conversion ledger.
type Ledger mg.Namespace

// Import records the Markdown files in markdown/ in the ledger.
func (Ledger) Import() error {
	mg.Deps(Build)
	return sh.RunV(filepath.Join(binDir, binName), "ledger", "import", "markdown", "--db", ledgerFile)
}

// Export writes the ledger to ledger-export.yaml.
func (Ledger) Export() error {
	mg.Deps(Build)
	return sh.RunV(filepath.Join(binDir, binName), "ledger", "export", "--db", ledgerFile)
}
