package main

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rtlmem/meminfer/pkg/mem"
	"github.com/rtlmem/meminfer/pkg/memio"
	"github.com/rtlmem/meminfer/pkg/netlist"
)

var applyCmd = &cobra.Command{
	Use:   "apply snapshot.json",
	Short: "Apply a transformation to one memory and re-emit",
	Long: `Load a snapshot, lift the memory named by --mem, apply the
transformation named by --op (extract_rdff, narrow, widen_wr_port,
emulate_priority, emulate_transparency, prepare_wr_merge), re-emit it and
print a report. With --out, the transformed snapshot is written there.`,
	Run: func(cmd *cobra.Command, args []string) {
		path := requireArg(cmd, args)
		op := getStringFlag(cmd, "op")
		memName := getStringFlag(cmd, "mem")

		if op == "" || memName == "" {
			fmt.Println("both --op and --mem are required")
			os.Exit(1)
		}

		f, err := os.Open(path)
		if err != nil {
			fmt.Println(err)
			os.Exit(2)
		}

		module, err := memio.Load(f)
		f.Close()
		if err != nil {
			fmt.Println(err)
			os.Exit(2)
		}

		mems, err := mem.GetAllMemories(module)
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		var target *mem.Mem
		for _, m := range mems {
			if m.MemID == memName {
				target = m
				break
			}
		}

		if target == nil {
			fmt.Printf("no memory named %q in %s\n", memName, path)
			os.Exit(1)
		}

		if getFlag(cmd, "packed") {
			target.Packed = true
		}

		applyOp(target, op, cmd)

		target.Check()
		target.Emit()

		log.WithFields(log.Fields{"memory": memName, "op": op}).Info("applied transformation")

		printMemReport(target, terminalWidth())

		out := getStringFlag(cmd, "out")
		if out == "" {
			return
		}

		w, err := os.Create(out)
		if err != nil {
			fmt.Println(err)
			os.Exit(2)
		}
		defer w.Close()

		if err := memio.Save(w, module); err != nil {
			fmt.Println(err)
			os.Exit(2)
		}
	},
}

func applyOp(m *mem.Mem, op string, cmd *cobra.Command) {
	port := getIntFlag(cmd, "port")
	port2 := getIntFlag(cmd, "port2")
	wide := getIntFlag(cmd, "wide")

	switch op {
	case "extract_rdff":
		m.ExtractRdff(port, netlist.NewFfInitVals())
	case "narrow":
		m.Narrow()
	case "widen_wr_port":
		m.WidenWrPort(port, wide)
	case "emulate_priority":
		m.EmulatePriority(port, port2)
	case "emulate_transparency":
		m.EmulateTransparency(port, port2)
	case "prepare_wr_merge":
		m.PrepareWrMerge(port, port2)
	default:
		fmt.Printf("unknown op %q\n", op)
		os.Exit(1)
	}
}

func init() {
	applyCmd.Flags().String("op", "", "transformation to apply")
	applyCmd.Flags().String("mem", "", "name (MEMID) of the memory to transform")
	applyCmd.Flags().Int("port", 0, "primary port index the operation acts on")
	applyCmd.Flags().Int("port2", 0, "secondary port index, for two-port operations")
	applyCmd.Flags().Int("wide", 0, "target wide_log2, for widen_wr_port")
	applyCmd.Flags().String("out", "", "write the transformed snapshot here")

	rootCmd.AddCommand(applyCmd)
}
