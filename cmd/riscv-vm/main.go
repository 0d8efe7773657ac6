// Command riscv-vm is a thin demonstration embedder: it loads an image
// and drains the guest's UART output to stdout. It does not forward
// stdin to the UART: nothing reads from stdin, and pollStdin always
// reports false, so the input branch of the step loop never runs.
// Hosting concerns beyond this (a terminal UI, multiple guests, a
// network console) are left to whatever embeds the package.
package main

import (
	"bufio"
	"fmt"
	"log"
	"os"

	riscv "github.com/elribonazo/riscv-vm"
)

// verbose enables a trace line per machine step.
var verbose = false

func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: riscv-vm <image> [disk]")
	}

	image, err := os.ReadFile(os.Args[1])
	if err != nil {
		log.Fatal(err)
	}

	cfg := riscv.Config{}
	if len(os.Args) > 2 {
		disk, err := os.ReadFile(os.Args[2])
		if err != nil {
			log.Fatal(err)
		}
		cfg.Disk = disk
	}

	m, err := riscv.New(image, cfg)
	if err != nil {
		log.Fatal(err)
	}
	if verbose {
		m.Trace = os.Stderr
	}

	in := bufio.NewReader(os.Stdin)
	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()

	for m.Step() {
		for {
			b, ok := m.NextOutputByte()
			if !ok {
				break
			}
			out.WriteByte(b)
		}
		if in.Buffered() > 0 || pollStdin(in) {
			if b, err := in.ReadByte(); err == nil {
				m.InputByte(b)
			}
		}
	}
	out.Flush()
	fmt.Fprintf(os.Stderr, "halted at pc=%#x after %d instructions\n", m.PC(), m.CycleCount())
}

// pollStdin is a placeholder hook for a non-blocking stdin check; it
// always reports false, and the bufio reader's buffer is never filled.
func pollStdin(r *bufio.Reader) bool { return false }
