// Command meminfer is a thin CLI harness around pkg/mem: load a netlist
// snapshot, lift its memories, optionally apply one transformation, and
// emit a report (and, with --out, the transformed snapshot).
package main

import (
	"os"

	log "github.com/sirupsen/logrus"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}
