package hyperspace

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gookit/color"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

// cliOptions are the global flags. Set flags win over config and environment.
type cliOptions struct {
	configPath string
	home       string
	resources  string
	logLevel   string
	debug      bool
}

// session is everything a command needs once config has been resolved.
type session struct {
	cfg       *Config
	paths     Paths
	resources Resources
	locator   Locator
}

func (o *cliOptions) load(cmd *cobra.Command) (*session, error) {
	cfg, err := loadConfig(o.configPath)
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	if flags.Changed("home") {
		cfg.Home = o.home
	}
	if flags.Changed("resources") {
		cfg.ResourcesDir = o.resources
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = o.logLevel
	}
	if flags.Changed("debug") {
		cfg.Debug = o.debug
	}
	Debug = cfg.Debug

	return &session{
		cfg:       cfg,
		paths:     Paths{Home: cfg.Home},
		resources: Resources{Dir: cfg.ResourcesDir},
		locator:   Locator{Home: cfg.Home},
	}, nil
}

func newRootCmd() *cobra.Command {
	opts := &cliOptions{}

	root := &cobra.Command{
		Use:           "hyperspace",
		Short:         "Install the Hyperspace mod loader into FTL: Faster Than Light",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&opts.configPath, "config", "c", DefaultConfigPath(), "installer config file location")
	pf.StringVar(&opts.home, "home", "", "home directory to install into and scan for FTL")
	pf.StringVar(&opts.resources, "resources", "", "directory holding ftlman, the dylibs, the launcher and mods")
	pf.StringVarP(&opts.logLevel, "log-level", "l", "info", "install.log level")
	pf.BoolVar(&opts.debug, "debug", false, "print debug output")

	root.AddCommand(
		newDetectCmd(opts),
		newRunCmd(opts, OpInstall),
		newRunCmd(opts, OpUninstall),
		newLogCmd(opts),
		newVersionCmd(),
	)
	return root
}

func newDetectCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "detect",
		Short: "List the FTL installations found on this Mac",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.load(cmd)
			if err != nil {
				return err
			}
			targets := s.locator.Detect()
			if len(targets) == 0 {
				cPrintln(colWarn, "No supported FTL installation found.")
				fmt.Printf("Supported versions: %s\n", supportedVersionList())
				return nil
			}
			for _, t := range targets {
				status := ""
				if IsInstalled(t) {
					status = color.Green.Sprint(" [Hyperspace installed]")
				}
				fmt.Printf("%s%s\n", color.Bold.Sprint(t.DisplayName()), status)
				fmt.Printf("  %s\n", t.Path())
			}
			return nil
		},
	}
}

func newRunCmd(opts *cliOptions, op Operation) *cobra.Command {
	var (
		path      string
		assumeYes bool
	)
	cmd := &cobra.Command{
		Use:   op.String(),
		Short: "Install Hyperspace into FTL.app",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.load(cmd)
			if err != nil {
				return err
			}
			t, err := s.chooseTarget(path)
			if err != nil {
				return err
			}
			if !s.confirmRun(op, t, assumeYes) {
				cPrintln(colWarn, "Aborted.")
				return nil
			}
			return s.run(cmd.Context(), op, t)
		},
	}
	if op == OpUninstall {
		cmd.Short = "Remove Hyperspace and restore the original FTL.app"
	}
	cmd.Flags().StringVarP(&path, "path", "p", "", "path to FTL.app instead of auto-detection")
	cmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

func newLogCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "log",
		Short: "Show the transcript of the last installation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.load(cmd)
			if err != nil {
				return err
			}
			lines, err := readLogLines(s.paths.LogFile())
			if os.IsNotExist(err) {
				cPrintln(colWarn, "No installation log yet.")
				return nil
			}
			if err != nil {
				return err
			}
			return RunPager("install.log", lines)
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the installer version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("hyperspace %s (built %s)\n", appVersion, buildDate)
			fmt.Printf("Supported FTL versions: %s\n", supportedVersionList())
		},
	}
}

// chooseTarget resolves --path, or detects installations and lets the user pick.
func (s *session) chooseTarget(path string) (Target, error) {
	if path != "" {
		return s.locator.FromPath(path)
	}
	targets := s.locator.Detect()
	if len(targets) == 0 {
		return Target{}, fmt.Errorf("no supported FTL installation found; pass --path to FTL.app")
	}
	if len(targets) > 1 && !stdinIsTerminal() {
		return Target{}, fmt.Errorf("found %d FTL installations; pass --path to choose one", len(targets))
	}
	t, ok := AskForTarget(targets)
	if !ok {
		return Target{}, fmt.Errorf("no FTL installation selected")
	}
	return t, nil
}

func (s *session) confirmRun(op Operation, t Target, assumeYes bool) bool {
	installed := IsInstalled(t)
	arrowf(colInfo, "%s at %s", t.DisplayName(), t.Path())
	if assumeYes {
		return true
	}
	if !stdinIsTerminal() {
		cPrintln(colWarn, "Not a terminal; pass --yes to proceed.")
		return false
	}
	switch {
	case op == OpInstall && installed:
		return askForConfirmation(colNote, "Hyperspace is already installed. Reinstall?")
	case op == OpInstall:
		return askForConfirmation(colNote, "Install Hyperspace?")
	default:
		return askForConfirmation(colNote, "Uninstall Hyperspace?")
	}
}

// run executes op against t and renders its events on the console.
func (s *session) run(ctx context.Context, op Operation, t Target) error {
	if op == OpUninstall && !IsInstalled(t) {
		return ErrNotInstalled
	}

	lock, err := acquireLock(s.paths.LockFile())
	if err != nil {
		return err
	}
	defer lock.Release()

	flog, err := OpenFileLog(s.paths.LogFile(), s.cfg.LogLevel)
	if err != nil {
		return err
	}
	defer flog.Close()

	runner := NewExecutor(context.Background())
	editor, err := NewManifestEditor(s.cfg.ManifestEditor, runner)
	if err != nil {
		return err
	}

	engine := &Engine{
		Paths:     s.paths,
		Resources: s.resources,
		Runner:    runner,
		Editor:    editor,
		FileLog:   flog,
	}

	// hooks are wired before Start
	bar := newRunBar(op)
	engine.Ask = gatekeeperPrompt(func() { bar.Clear() }, func() { bar.RenderBlank() })

	isCriticalAtomic.Store(1)
	defer isCriticalAtomic.Store(0)

	r, err := engine.Start(ctx, op, t)
	if err != nil {
		return err
	}
	outcome := renderEvents(r, bar)

	fmt.Println()
	if outcome.Succeeded() {
		if op == OpInstall {
			colSuccess.Println("Hyperspace installed. Launch FTL as usual to play with mods.")
		} else {
			colSuccess.Println("Hyperspace removed. FTL is back to its original state.")
		}
		return nil
	}
	debugf("=> full log at %s\n", flog.Path())
	return outcome.Err
}

func newRunBar(op Operation) *progressbar.ProgressBar {
	return progressbar.NewOptions(100,
		progressbar.OptionSetDescription(op.String()),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetWidth(30),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}

// renderEvents drives bar from r's events, printing transcript lines above
// it. It returns once the run is finished.
func renderEvents(r *Run, bar *progressbar.ProgressBar) Outcome {
	for ev := range r.Events() {
		switch ev.Kind {
		case EventLog:
			bar.Clear()
			printTranscriptLine(ev.Line)
			bar.RenderBlank()
		case EventProgress:
			bar.Set(int(ev.Progress*100 + 0.5))
		case EventDone:
			if ev.Outcome.Succeeded() {
				bar.Finish()
			} else {
				bar.Clear()
			}
		}
	}
	return r.Wait()
}

func printTranscriptLine(l LogLine) {
	msg := l.String()
	switch {
	case l.Message == "":
		fmt.Println()
	case strings.HasPrefix(l.Message, "ERROR:"):
		cPrintln(colError, msg)
	case strings.HasPrefix(l.Message, "==="):
		cPrintln(colInfo, msg)
	default:
		fmt.Println(msg)
	}
}

// exitCode maps a command error to the process exit status.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	return 1
}

func reportError(err error) {
	colArrow.Print("-> ")
	colError.Printf("Error: %v\n", err)
	if hint := Suggestion(err); hint != "" {
		colNote.Printf("   %s\n", hint)
	}
	if errors.Is(err, ErrUnsupportedVersion) {
		fmt.Printf("   Supported versions: %s\n", supportedVersionList())
	}
}

// Main is the CLI entrypoint.
func Main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)

	go func() {
		for {
			select {
			case sig := <-sigs:
				if isCriticalAtomic.Load() == 1 {
					// FTL.app is half patched; only a second interrupt gets through.
					colArrow.Print("\n-> ")
					colError.Printf("Installation in progress. Press Ctrl+C AGAIN to force exit NOW.\n")
					select {
					case <-sigs:
						colArrow.Print("\n-> ")
						colError.Printf("Forced immediate exit.\n")
						os.Exit(130)
					case <-time.After(5 * time.Second):
						continue
					case <-ctx.Done():
						return
					}
				}
				colArrow.Print("\n-> ")
				color.Danger.Printf("Received %v. Exiting\n", sig)
				cancel()
				select {
				case <-sigs:
					os.Exit(130)
				case <-time.After(2 * time.Second):
					os.Exit(130)
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	err := newRootCmd().ExecuteContext(ctx)
	if err != nil {
		reportError(err)
	}
	cancel()
	os.Exit(exitCode(err))
}
