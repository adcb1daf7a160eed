package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/navicore/gamecode-agent/internal/config"
	"github.com/navicore/gamecode-agent/internal/fsops"
	"github.com/navicore/gamecode-agent/internal/runner"
	"github.com/navicore/gamecode-agent/internal/tui"
	"github.com/navicore/gamecode-agent/memory"
	"github.com/navicore/gamecode-agent/tools"
)

const version = "0.2.0"

var (
	configFile string
	workDir    string
	modelID    string
	plain      bool
)

var rootCmd = &cobra.Command{
	Use:   "gamecode",
	Short: "A tool-using LLM agent for your working directory",
	Long: `Gamecode is a chat agent that can read, write, list, and run
allow-listed commands inside a sandboxed working directory, chaining tool
calls until the task is done.`,
	RunE: runAgent,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("gamecode", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default gamecode.yaml when present)")
	rootCmd.PersistentFlags().StringVarP(&workDir, "workdir", "w", "", "sandbox working directory (default cwd)")
	rootCmd.PersistentFlags().StringVarP(&modelID, "model", "m", "", "model identifier override")
	rootCmd.Flags().BoolVar(&plain, "plain", false, "line-based REPL instead of the TUI")

	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func runAgent(cmd *cobra.Command, args []string) error {
	if os.Getenv("ANTHROPIC_API_KEY") == "" {
		return fmt.Errorf("missing ANTHROPIC_API_KEY; export it before running")
	}

	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}
	if workDir != "" {
		cfg.WorkDir = workDir
	}
	if modelID != "" {
		cfg.Model = modelID
	}
	if cfg.WorkDir == "" {
		cfg.WorkDir, err = os.Getwd()
		if err != nil {
			return err
		}
	}

	ws, err := fsops.NewWorkspace(cfg.WorkDir)
	if err != nil {
		return fmt.Errorf("workspace %s: %w", cfg.WorkDir, err)
	}

	mgr := runner.New(cfg, tools.Builtin(ws))
	if err := mgr.Init(cmd.Context()); err != nil {
		return err
	}

	if cfg.PersistPath != "" {
		recs, err := memory.Load(cfg.PersistPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to load persisted conversation: %v\n", err)
		} else {
			mgr.RestoreTranscript(recs)
		}
	}

	if plain {
		return runREPL(mgr, cfg.PersistPath)
	}
	err = tui.Run(mgr)
	persist(mgr, cfg.PersistPath)
	return err
}

// runREPL is the dumb-terminal loop: read a line, run the exchange, print
// tool results and the reply, persist after each turn.
func runREPL(mgr *runner.Manager, persistPath string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigch := make(chan os.Signal, 1)
	signal.Notify(sigch, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigch)
	go func() {
		<-sigch
		fmt.Println("\nExiting...")
		cancel()
	}()

	scanner := bufio.NewScanner(os.Stdin)
	fmt.Println("Chat with the agent (Ctrl-C to quit)")

	inputCh := make(chan string)
	go func() {
		for scanner.Scan() {
			inputCh <- scanner.Text()
		}
		close(inputCh)
	}()

outer:
	for {
		fmt.Print("\u001b[94mYou\u001b[0m: ")
		var (
			user string
			ok   bool
		)
		select {
		case <-ctx.Done():
			break outer
		case user, ok = <-inputCh:
			if !ok {
				break outer
			}
		}
		if strings.TrimSpace(user) == "" {
			continue
		}

		resp, err := mgr.ProcessInput(ctx, user)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}
		for _, tr := range resp.ToolResults {
			fmt.Printf("\u001b[90m[%s]\u001b[0m %s\n", tr.ToolName, tr.Text)
		}
		if resp.Content != "" {
			fmt.Printf("\u001b[93mAgent\u001b[0m: %s\n", resp.Content)
		}

		persist(mgr, persistPath)
	}
	if err := scanner.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: stdin read error: %v\n", err)
	}
	return nil
}

func persist(mgr *runner.Manager, path string) {
	if path == "" {
		return
	}
	if err := memory.Save(path, mgr.Transcript()); err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to save conversation: %v\n", err)
	}
}
