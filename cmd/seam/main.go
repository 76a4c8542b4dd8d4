// Seam CLI - inspect and exercise version-gated modules in an image store
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/seam-lang/seam/host"
	"github.com/seam-lang/seam/pkg/forms"
	"github.com/seam-lang/seam/relink"
)

func main() {
	storePath := flag.String("store", "seam.db", "Image store path")
	release := flag.String("release", "18.2", "Host release string")
	verbose := flag.Bool("v", false, "Verbose output")
	list := flag.Bool("list", false, "List modules in the store")
	update := flag.String("update", "", "Run the rewrite pipeline for a module")
	call := flag.String("call", "", "Call an exported function: module:function [args...]")
	disasm := flag.String("disasm", "", "Disassemble a function: module:name/arity")
	demo := flag.Bool("demo", false, "Write the sample gated 'clock' module into the store")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: seam [options]\n\n")
		fmt.Fprintf(os.Stderr, "Loads modules from an image store and runs the version-gated rewrite pipeline.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  seam -demo                        # Seed the store with the sample module\n")
		fmt.Fprintf(os.Stderr, "  seam -list                        # List stored modules\n")
		fmt.Fprintf(os.Stderr, "  seam -release 20.1 -update clock  # Rewrite clock for host version 20\n")
		fmt.Fprintf(os.Stderr, "  seam -call clock:now              # Call clock:now/0\n")
		fmt.Fprintf(os.Stderr, "  seam -disasm clock:now/0          # Disassemble clock:now/0\n")
	}
	flag.Parse()

	if *verbose {
		commonlog.Configure(1, nil)
	} else {
		commonlog.Configure(0, nil)
	}

	store, err := host.OpenStore(*storePath)
	if err != nil {
		fatalf("Error opening store: %v", err)
	}
	defer store.Close()

	if *demo {
		if err := writeDemoModule(store); err != nil {
			fatalf("Error writing demo module: %v", err)
		}
		fmt.Println("Wrote demo module 'clock' to", *storePath)
		return
	}

	if *list {
		modules, err := store.Modules()
		if err != nil {
			fatalf("Error listing modules: %v", err)
		}
		for _, name := range modules {
			fmt.Println(name)
		}
		return
	}

	// Everything else needs a runtime with the stored modules resident.
	rt := host.NewRuntime(*release)
	if err := store.InstallAll(rt); err != nil {
		fatalf("Error installing modules: %v", err)
	}
	updater := relink.NewUpdater(rt)
	rt.SetUpdater(updater)

	switch {
	case *update != "":
		if err := updater.Update(*update); err != nil {
			fatalf("Error updating %s: %v", *update, err)
		}
		data, ok := rt.ImageFor(*update)
		if !ok {
			fatalf("Module %s vanished after update", *update)
		}
		if err := store.Save(*update, data); err != nil {
			fatalf("Error saving rewritten image: %v", err)
		}
		fmt.Printf("Updated %s for host release %s\n", *update, *release)

	case *call != "":
		module, function, ok := strings.Cut(*call, ":")
		if !ok {
			fatalf("Invalid -call target %q, want module:function", *call)
		}
		result, err := rt.Call(module, function, flag.Args()...)
		if err != nil {
			fatalf("Error calling %s: %v", *call, err)
		}
		fmt.Println(result)

	case *disasm != "":
		module, ref, err := parseFuncSpec(*disasm)
		if err != nil {
			fatalf("Invalid -disasm target: %v", err)
		}
		chunk, ok := rt.Chunk(module, ref)
		if !ok {
			fatalf("No function %s:%s", module, ref)
		}
		fmt.Print(chunk.DisassembleWithName(fmt.Sprintf("%s:%s", module, ref)))

	default:
		flag.Usage()
		os.Exit(2)
	}
}

// parseFuncSpec parses "module:name/arity".
func parseFuncSpec(spec string) (string, forms.FuncRef, error) {
	module, rest, ok := strings.Cut(spec, ":")
	if !ok {
		return "", forms.FuncRef{}, fmt.Errorf("%q: want module:name/arity", spec)
	}
	name, arityStr, ok := strings.Cut(rest, "/")
	if !ok {
		return "", forms.FuncRef{}, fmt.Errorf("%q: want module:name/arity", spec)
	}
	arity, err := strconv.Atoi(arityStr)
	if err != nil || arity < 0 {
		return "", forms.FuncRef{}, fmt.Errorf("%q: bad arity", spec)
	}
	return module, forms.FuncRef{Name: name, Arity: arity}, nil
}

// writeDemoModule builds the canonical gated example: clock:now/0 with a
// fallback implementation for old hosts and a native one for version 18+.
func writeDemoModule(store *host.Store) error {
	mod := forms.NewModule("clock")
	mod.AddExport(forms.FuncRef{Name: "now", Arity: 0})
	mod.AddGate(forms.VersionRule{
		Threshold: 18,
		Mappings: []forms.FuncMapping{
			{Canonical: "now", Arity: 0, Legacy: "now_fallback", Current: "now_native"},
		},
	})
	// Trigger stub: rewrite the module once, then redispatch.
	mod.AddFunction(&forms.Function{
		Name: "now",
		Body: []forms.Expr{
			forms.HostCall("update", forms.Lit("clock")),
			forms.Call("now"),
		},
	})
	mod.AddFunction(&forms.Function{
		Name: "now_fallback",
		Body: []forms.Expr{forms.Lit("fallback-time")},
	})
	mod.AddFunction(&forms.Function{
		Name: "now_native",
		Body: []forms.Expr{forms.Lit("native-time")},
	})

	data, err := relink.CompileForms(mod)
	if err != nil {
		return err
	}
	return store.Save("clock", data)
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
