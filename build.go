//go:build ignore

// build.go - dpt build helper
// Usage: go run build.go [-target=TARGET] [-v]
// Targets: all, web, st, concat, convert, erp, test, clean, package

package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"
)

const version = "0.4.0"

var (
	distDir = "dist"

	// Commands under ./cmd, keyed by target name.
	executables = map[string]string{
		"web":     "dpt-web",
		"st":      "dpt-st",
		"concat":  "dpt-concat",
		"convert": "dpt-convert",
		"erp":     "dpt-erp",
	}

	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorBlue   = "\033[34m"
	colorYellow = "\033[33m"
)

func main() {
	target := flag.String("target", "all", "Build target")
	verbose := flag.Bool("v", false, "Verbose output")
	flag.Parse()

	start := time.Now()
	var err error
	switch *target {
	case "all":
		err = buildAll(*verbose)
	case "test":
		err = runTests(*verbose)
	case "clean":
		err = os.RemoveAll(distDir)
	case "package":
		err = buildPackage(*verbose)
	default:
		if _, ok := executables[*target]; !ok {
			showHelp()
			os.Exit(1)
		}
		err = buildExecutable(*target, *verbose)
	}
	if err != nil {
		printError(err.Error())
		os.Exit(1)
	}
	printSuccess(fmt.Sprintf("Build completed in %s", time.Since(start).Round(time.Millisecond)))
}

func printInfo(msg string)    { fmt.Printf("%s[INFO]%s %s\n", colorBlue, colorReset, msg) }
func printSuccess(msg string) { fmt.Printf("%s[SUCCESS]%s %s\n", colorGreen, colorReset, msg) }
func printError(msg string)   { fmt.Printf("%s[ERROR]%s %s\n", colorRed, colorReset, msg) }
func printWarning(msg string) { fmt.Printf("%s[WARNING]%s %s\n", colorYellow, colorReset, msg) }

func buildAll(verbose bool) error {
	names := make([]string, 0, len(executables))
	for name := range executables {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := buildExecutable(name, verbose); err != nil {
			return err
		}
	}
	return nil
}

func buildExecutable(name string, verbose bool) error {
	exe := executables[name]
	if runtime.GOOS == "windows" {
		exe += ".exe"
	}
	printInfo(fmt.Sprintf("Building %s...", name))

	if err := os.MkdirAll(distDir, 0755); err != nil {
		return err
	}
	out := filepath.Join(distDir, exe)
	args := []string{"build", "-trimpath", "-ldflags", "-s -w", "-o", out, "./cmd/" + name}
	if verbose {
		fmt.Printf("go %s\n", strings.Join(args, " "))
	}
	if err := run(verbose, "go", args...); err != nil {
		return fmt.Errorf("failed to build %s: %w", name, err)
	}

	if info, err := os.Stat(out); err == nil {
		printSuccess(fmt.Sprintf("Built %s (%.1f MB)", exe, float64(info.Size())/1024/1024))
	}
	return nil
}

func runTests(verbose bool) error {
	args := []string{"test", "./..."}
	if verbose {
		args = append(args, "-v")
	}
	printInfo("Running tests...")
	return run(true, "go", args...)
}

// buildPackage builds every command and lays out a release directory with
// the sample configuration and empty data directories.
func buildPackage(verbose bool) error {
	if err := buildAll(verbose); err != nil {
		return err
	}
	if err := copyFile(filepath.Join("configs", "config.yaml"), filepath.Join(distDir, "config.yaml")); err != nil {
		printWarning(fmt.Sprintf("config.yaml not copied: %v", err))
	}
	for _, dir := range []string{"data/downloads", "data/converted", "data/reports/st", "logs"} {
		if err := os.MkdirAll(filepath.Join(distDir, dir), 0755); err != nil {
			return err
		}
	}
	printInfo(fmt.Sprintf("Package %s ready in %s", version, distDir))
	return nil
}

func run(verbose bool, name string, args ...string) error {
	cmd := exec.Command(name, args...)
	cmd.Stderr = os.Stderr
	if verbose {
		cmd.Stdout = os.Stdout
	}
	return cmd.Run()
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
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func showHelp() {
	fmt.Println("Usage: go run build.go -target=TARGET [-v]")
	fmt.Println("Targets: all, web, st, concat, convert, erp, test, clean, package")
}
