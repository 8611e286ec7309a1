// Command bptreecli drives a B+-tree from a script of insert/delete lines
// and prints a colorized snapshot of the tree after each step.
package main

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/vchandela/bptree"
	"github.com/vchandela/bptree/store"
	"github.com/vchandela/bptree/visualize"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		degree     int
		backend    string
		scriptPath string
		compare    bool
	)

	cmd := &cobra.Command{
		Use:   "bptreecli",
		Short: "Drive a B+-tree from a script of insert/delete lines",
		RunE: func(cmd *cobra.Command, args []string) error {
			lines, err := readScript(scriptPath)
			if err != nil {
				return err
			}
			if compare {
				return runCompare(cmd.OutOrStdout(), degree, lines)
			}
			return runSingle(cmd.OutOrStdout(), degree, backend, lines)
		},
	}

	cmd.Flags().IntVar(&degree, "degree", 5, "maximum fan-out of an internal node")
	cmd.Flags().StringVar(&backend, "backend", "memory", `tree backend: "memory" or "store"`)
	cmd.Flags().StringVar(&scriptPath, "script", "", "path to a script of insert/delete lines (required)")
	cmd.Flags().BoolVar(&compare, "compare", false, "run the script against both backends and fail if their leaf chains diverge")
	cmd.MarkFlagRequired("script")

	return cmd
}

type op struct {
	insert bool
	key    int
	value  string
}

func readScript(path string) ([]op, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("bptreecli: %w", err)
	}
	defer f.Close()

	var ops []op
	sc := bufio.NewScanner(f)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		switch fields[0] {
		case "insert":
			if len(fields) != 3 {
				log.Printf("bptreecli: line %d: malformed insert, want \"insert <key> <value>\": %q", lineNo, line)
				continue
			}
			k, err := strconv.Atoi(fields[1])
			if err != nil {
				log.Printf("bptreecli: line %d: non-integer key %q", lineNo, fields[1])
				continue
			}
			ops = append(ops, op{insert: true, key: k, value: fields[2]})
		case "delete":
			if len(fields) != 2 {
				log.Printf("bptreecli: line %d: malformed delete, want \"delete <key>\": %q", lineNo, line)
				continue
			}
			k, err := strconv.Atoi(fields[1])
			if err != nil {
				log.Printf("bptreecli: line %d: non-integer key %q", lineNo, fields[1])
				continue
			}
			ops = append(ops, op{insert: false, key: k})
		default:
			log.Printf("bptreecli: line %d: unrecognized command %q", lineNo, fields[0])
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("bptreecli: %w", err)
	}
	return ops, nil
}

func newTree(degree int, backend string) (*bptree.Tree[int, string], error) {
	switch backend {
	case "memory":
		return bptree.NewInMemory[int, string](degree), nil
	case "store":
		return bptree.NewPersistent[int, string, uuid.UUID](degree, store.NewMemory(), "bptreecli"), nil
	default:
		return nil, fmt.Errorf("bptreecli: unknown backend %q (want \"memory\" or \"store\")", backend)
	}
}

func apply(t *bptree.Tree[int, string], o op) error {
	if o.insert {
		return t.Insert(o.key, o.value)
	}
	return t.Delete(o.key)
}

func runSingle(w io.Writer, degree int, backend string, ops []op) error {
	t, err := newTree(degree, backend)
	if err != nil {
		return err
	}
	for _, o := range ops {
		if err := apply(t, o); err != nil {
			log.Printf("bptreecli: %v", err)
			continue
		}
		if err := visualize.Draw[*bptree.Node[int, string]](w, t); err != nil {
			return err
		}
	}
	return nil
}

func runCompare(w io.Writer, degree int, ops []op) error {
	mem, err := newTree(degree, "memory")
	if err != nil {
		return err
	}
	persisted, err := newTree(degree, "store")
	if err != nil {
		return err
	}
	for _, o := range ops {
		memErr := apply(mem, o)
		storeErr := apply(persisted, o)
		if (memErr == nil) != (storeErr == nil) {
			return fmt.Errorf("bptreecli: backends diverged on %+v: memory=%v store=%v", o, memErr, storeErr)
		}
		chainMem, err := leafChain(mem)
		if err != nil {
			return err
		}
		chainStore, err := leafChain(persisted)
		if err != nil {
			return err
		}
		if fmt.Sprint(chainMem) != fmt.Sprint(chainStore) {
			return fmt.Errorf("bptreecli: leaf chains diverged after %+v: memory=%v store=%v", o, chainMem, chainStore)
		}
		fmt.Fprintf(w, "--- after %+v ---\n", o)
		if err := visualize.Draw[*bptree.Node[int, string]](w, mem); err != nil {
			return err
		}
	}
	return nil
}

// leafChain walks the leftmost path to the first leaf, then follows
// successor links, collecting every key in the tree in ascending order:
// the sequence both backends must agree on after every script line.
func leafChain(t *bptree.Tree[int, string]) ([]int, error) {
	n, err := t.Root()
	if err != nil {
		return nil, err
	}
	if n == nil {
		return nil, nil
	}
	for !n.IsLeaf() {
		n, err = t.Child(n, 0)
		if err != nil {
			return nil, err
		}
		if n == nil {
			return nil, nil
		}
	}

	var keys []int
	for n != nil {
		for i := 0; i < n.KeyCount(); i++ {
			keys = append(keys, n.Key(i))
		}
		n, err = t.Successor(n)
		if err != nil {
			return nil, err
		}
	}
	return keys, nil
}
