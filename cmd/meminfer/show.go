package main

import (
	"fmt"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/rtlmem/meminfer/pkg/mem"
	"github.com/rtlmem/meminfer/pkg/memio"
)

var showCmd = &cobra.Command{
	Use:   "show snapshot.json",
	Short: "Lift and report every memory in a snapshot",
	Run: func(cmd *cobra.Command, args []string) {
		path := requireArg(cmd, args)

		f, err := os.Open(path)
		if err != nil {
			fmt.Println(err)
			os.Exit(2)
		}
		defer f.Close()

		module, err := memio.Load(f)
		if err != nil {
			fmt.Println(err)
			os.Exit(2)
		}

		log.WithField("module", module.Name()).Debug("loaded snapshot")

		mems, err := mem.GetAllMemories(module)
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		log.WithFields(log.Fields{"module": module.Name(), "memories": len(mems)}).Info("lifted memories")

		width := terminalWidth()

		for _, m := range mems {
			printMemReport(m, width)
		}
	},
}

func init() {
	rootCmd.AddCommand(showCmd)
}

// terminalWidth returns the current terminal's column count, falling
// back to a fixed width when stdout isn't a tty (piped output, CI logs).
func terminalWidth() int {
	const fallback = 80

	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return fallback
	}

	w, _, err := term.GetSize(fd)
	if err != nil || w <= 0 {
		return fallback
	}

	return w
}

func printMemReport(m *mem.Mem, width int) {
	encoding := "unpacked"
	if m.Packed {
		encoding = "packed"
	}

	fmt.Printf("memory %q: %s, width=%d size=%d offset=%d rd=%d wr=%d init=%d\n",
		m.MemID, encoding, m.Width, m.Size, m.StartOffset, len(m.RdPorts), len(m.WrPorts), len(m.Inits))

	if len(m.WrPorts) == 0 {
		return
	}

	printMatrix(width, "transparency (rows=read ports, cols=write ports)", len(m.RdPorts), len(m.WrPorts), func(i, j int) bool {
		return m.RdPorts[i].TransparencyMask.Test(uint(j))
	})

	printMatrix(width, "priority (rows=write ports, cols=write ports)", len(m.WrPorts), len(m.WrPorts), func(i, j int) bool {
		return m.WrPorts[i].PriorityMask.Test(uint(j))
	})
}

// printMatrix renders an adjacency-style bitmap, wrapping columns to fit
// the terminal width rather than printing a single unreadable long line.
func printMatrix(width int, title string, rows, cols int, bit func(i, j int) bool) {
	if rows == 0 || cols == 0 {
		return
	}

	fmt.Println("  " + title)

	colsPerChunk := width - 4
	if colsPerChunk < 1 {
		colsPerChunk = 1
	}

	for start := 0; start < cols; start += colsPerChunk {
		end := start + colsPerChunk
		if end > cols {
			end = cols
		}

		for i := 0; i < rows; i++ {
			var sb strings.Builder
			for j := start; j < end; j++ {
				if bit(i, j) {
					sb.WriteByte('1')
				} else {
					sb.WriteByte('.')
				}
			}

			fmt.Printf("    %s\n", sb.String())
		}
	}
}
