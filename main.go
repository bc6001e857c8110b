package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/illarion/lockpass/cmd"
	"github.com/illarion/lockpass/internal/config"
	"github.com/illarion/lockpass/internal/platform"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	global := flag.NewFlagSet("lockpass", flag.ExitOnError)
	global.Usage = printUsage
	vaultPath := global.String("vault", "", "Vault file (default $LOCKPASS_VAULT or ~/.lockpass)")
	verbose := global.Bool("v", false, "Print diagnostics to stderr")
	global.Parse(os.Args[1:])

	args := global.Args()
	if len(args) < 1 {
		printUsage()
		os.Exit(1)
	}
	command, rest := args[0], args[1:]

	// Commands that never touch a vault
	switch command {
	case "help", "-h", "--help":
		if len(rest) == 0 {
			printUsage()
			return
		}
		printCommandHelp(rest[0])
		return
	case "completion":
		if len(rest) < 1 {
			fmt.Fprintln(os.Stderr, "Usage: lockpass completion <bash|zsh|fish>")
			os.Exit(1)
		}
		if err := cmd.Completion(os.Stdout, rest[0]); err != nil {
			cmd.HandleError(err)
		}
		return
	}

	logger := log.New(io.Discard, "", 0)
	if *verbose {
		logger = log.New(os.Stderr, "lockpass: ", log.LstdFlags)
	}

	if err := platform.DisableCoreDumps(); err != nil {
		logger.Printf("failed to disable core dumps: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		cmd.HandleError(err)
	}
	if *vaultPath != "" {
		cfg.VaultPath = *vaultPath
	}
	if cfg.File != "" {
		logger.Printf("loaded config from %s", cfg.File)
	}
	logger.Printf("vault path %s", cfg.VaultPath)

	app := cmd.NewApp(cfg, logger)

	switch command {
	case "init":
		err = runInit(ctx, app, cfg, rest)
	case "add":
		err = runAdd(ctx, app, rest)
	case "ls", "list":
		err = runList(ctx, app, command, rest)
	case "show":
		err = runShow(ctx, app, rest)
	case "find":
		err = runFind(ctx, app, rest)
	case "edit":
		err = runEdit(ctx, app, rest)
	case "rm":
		err = runRm(ctx, app, rest)
	case "passwd":
		err = runSimple(ctx, app, "passwd", rest, cmd.Passwd)
	case "compact":
		err = runSimple(ctx, app, "compact", rest, cmd.Compact)
	case "status":
		err = runSimple(ctx, app, "status", rest, cmd.Status)
	case "menu":
		err = runMenu(ctx, app, cfg, rest)
	case "keyring":
		err = runKeyring(ctx, app, rest)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		cmd.HandleError(err)
	}
}

func parse(fs *flag.FlagSet, args []string) {
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func runInit(ctx context.Context, app *cmd.App, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	parse(fs, args)

	if err := cfg.Validate(); err != nil {
		return err
	}
	return cmd.Init(ctx, app)
}

func runAdd(ctx context.Context, app *cmd.App, args []string) error {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	username := fs.String("u", "", "Username")
	note := fs.String("n", "", "Site or note")
	parse(fs, args)

	return cmd.Add(ctx, app, *username, *note)
}

func runList(ctx context.Context, app *cmd.App, name string, args []string) error {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	show := fs.Bool("show", false, "Print secrets instead of masking them")
	parse(fs, args)

	return cmd.List(ctx, app, *show)
}

func runShow(ctx context.Context, app *cmd.App, args []string) error {
	fs := flag.NewFlagSet("show", flag.ExitOnError)
	parse(fs, args)

	if fs.NArg() != 1 {
		return fmt.Errorf("%w: usage: lockpass show <id>", cmd.ErrMissingArgs)
	}
	id, err := cmd.ParseID(fs.Arg(0))
	if err != nil {
		return err
	}
	return cmd.Show(ctx, app, id)
}

func runFind(ctx context.Context, app *cmd.App, args []string) error {
	fs := flag.NewFlagSet("find", flag.ExitOnError)
	show := fs.Bool("show", false, "Print secrets instead of masking them")
	parse(fs, args)

	if fs.NArg() != 1 {
		return fmt.Errorf("%w: usage: lockpass find <text>", cmd.ErrMissingArgs)
	}
	return cmd.Find(ctx, app, fs.Arg(0), *show)
}

func runEdit(ctx context.Context, app *cmd.App, args []string) error {
	fs := flag.NewFlagSet("edit", flag.ExitOnError)
	username := fs.String("u", "", "New username")
	note := fs.String("n", "", "New site or note")
	secret := fs.Bool("s", false, "Prompt for a new secret")
	parse(fs, args)

	if fs.NArg() != 1 {
		return fmt.Errorf("%w: usage: lockpass edit <id> [-u user] [-n note] [-s]", cmd.ErrMissingArgs)
	}
	id, err := cmd.ParseID(fs.Arg(0))
	if err != nil {
		return err
	}

	fields := cmd.EditFields{Secret: *secret}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "u":
			fields.Username = username
		case "n":
			fields.Note = note
		}
	})
	return cmd.Edit(ctx, app, id, fields)
}

func runRm(ctx context.Context, app *cmd.App, args []string) error {
	fs := flag.NewFlagSet("rm", flag.ExitOnError)
	parse(fs, args)

	return cmd.Remove(ctx, app, fs.Args())
}

func runSimple(ctx context.Context, app *cmd.App, name string, args []string, run func(context.Context, *cmd.App) error) error {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	parse(fs, args)

	return run(ctx, app)
}

func runMenu(ctx context.Context, app *cmd.App, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("menu", flag.ExitOnError)
	parse(fs, args)

	if err := cfg.Validate(); err != nil {
		return err
	}
	return cmd.Menu(ctx, app)
}

func runKeyring(ctx context.Context, app *cmd.App, args []string) error {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: lockpass keyring <save|delete|status>")
		os.Exit(1)
	}
	return cmd.Keyring(ctx, app, args[0])
}

func printUsage() {
	fmt.Println("lockpass - local, encrypted password vault")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  lockpass [-vault PATH] [-v] <command> [arguments]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  init        Create a new password vault")
	fmt.Println("  add         Store a new credential")
	fmt.Println("  ls, list    List credentials (secrets masked)")
	fmt.Println("  show        Show one credential in full")
	fmt.Println("  find        Search usernames and notes")
	fmt.Println("  edit        Change a credential")
	fmt.Println("  rm          Remove credentials by id")
	fmt.Println("  passwd      Change the vault passphrase")
	fmt.Println("  compact     Compact vault to reclaim disk space")
	fmt.Println("  status      Show vault details without a passphrase")
	fmt.Println("  menu        Interactive menu")
	fmt.Println("  keyring     Manage passphrase in OS keyring")
	fmt.Println("  completion  Generate shell completions")
	fmt.Println("  help        Show help for a command")
	fmt.Println()
	fmt.Println("Global flags:")
	fmt.Println("  -vault PATH  Vault file (default $LOCKPASS_VAULT or ~/.lockpass)")
	fmt.Println("  -v           Print diagnostics to stderr")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  lockpass init                      # Create new vault")
	fmt.Println("  lockpass add -u alice -n github    # Store a credential")
	fmt.Println("  lockpass ls                        # List credentials")
	fmt.Println("  lockpass show 3                    # Print credential 3 with its secret")
	fmt.Println()
	fmt.Println("Use 'lockpass help <command>' for more information about a command.")
}

func printCommandHelp(command string) {
	switch command {
	case "init":
		fmt.Println("lockpass init")
		fmt.Println()
		fmt.Println("Creates a new vault file at the vault path.")
		fmt.Println("Prompts for a passphrase that will be used for encryption.")
		fmt.Println("The passphrase is not stored anywhere - you must remember it.")
		fmt.Println()
		fmt.Println("Key derivation and cipher are taken from the configuration:")
		fmt.Println("  LOCKPASS_KDF_TIME, LOCKPASS_KDF_MEMORY (KiB), LOCKPASS_CIPHER")
		fmt.Println()
		fmt.Println("Examples:")
		fmt.Println("  lockpass init                         # Create ~/.lockpass")
		fmt.Println("  lockpass -vault ./team.vault init     # Create a vault elsewhere")
	case "add":
		fmt.Println("lockpass add [-u username] [-n note]")
		fmt.Println()
		fmt.Println("Stores a new credential. Fields not given as flags are prompted for.")
		fmt.Println("The secret is always prompted and never echoed.")
		fmt.Println()
		fmt.Println("Examples:")
		fmt.Println("  lockpass add")
		fmt.Println("  lockpass add -u alice -n example.com")
	case "ls", "list":
		fmt.Println("lockpass ls [-show]")
		fmt.Println()
		fmt.Println("Lists all credentials in insertion order.")
		fmt.Println("Records that fail their integrity check are reported and skipped.")
		fmt.Println()
		fmt.Println("Flags:")
		fmt.Println("  -show    Print secrets instead of masking them")
	case "show":
		fmt.Println("lockpass show <id>")
		fmt.Println()
		fmt.Println("Prints one credential, secret included.")
	case "find":
		fmt.Println("lockpass find [-show] <text>")
		fmt.Println()
		fmt.Println("Lists credentials whose username or note contains text, ignoring case.")
	case "edit":
		fmt.Println("lockpass edit <id> [-u username] [-n note] [-s]")
		fmt.Println()
		fmt.Println("Changes a credential. Without flags, every field is prompted for")
		fmt.Println("and an empty answer keeps the current value.")
		fmt.Println()
		fmt.Println("Flags:")
		fmt.Println("  -u    New username")
		fmt.Println("  -n    New site or note")
		fmt.Println("  -s    Prompt for a new secret")
	case "rm":
		fmt.Println("lockpass rm <id> [id...]")
		fmt.Println()
		fmt.Println("Removes credentials and compacts the vault.")
		fmt.Println("Ids are never reused. Unknown ids are reported and the command fails.")
	case "passwd":
		fmt.Println("lockpass passwd")
		fmt.Println()
		fmt.Println("Changes the vault passphrase.")
		fmt.Println("Requires both the current and new passphrases.")
		fmt.Println("Re-encrypts all credentials under a new salt.")
	case "compact":
		fmt.Println("lockpass compact")
		fmt.Println()
		fmt.Println("Compacts the vault file to reclaim unused disk space.")
		fmt.Println("This is automatically done after 'rm' and 'passwd' commands,")
		fmt.Println("but can be run manually if needed.")
		fmt.Println()
		fmt.Println("Does not require a passphrase.")
	case "status":
		fmt.Println("lockpass status")
		fmt.Println()
		fmt.Println("Shows vault details:")
		fmt.Println("  - Path, size and record count")
		fmt.Println("  - Creation and modification times")
		fmt.Println("  - Key derivation and cipher settings")
		fmt.Println("  - Keyring and git warnings")
		fmt.Println()
		fmt.Println("Does not require a passphrase.")
	case "menu":
		fmt.Println("lockpass menu")
		fmt.Println()
		fmt.Println("Runs an interactive menu:")
		fmt.Println("  1. List passwords")
		fmt.Println("  2. Enter a new password")
		fmt.Println("  3. Exit")
		fmt.Println()
		fmt.Println("Creates the vault first if it does not exist.")
	case "keyring":
		fmt.Println("lockpass keyring <save|delete|status>")
		fmt.Println()
		fmt.Println("Caches the vault passphrase in the OS keyring so commands")
		fmt.Println("do not prompt for it. The entry is keyed by vault id.")
	case "completion":
		fmt.Println("lockpass completion <bash|zsh|fish>")
		fmt.Println()
		fmt.Println("Outputs shell completion script for the specified shell.")
		fmt.Println()
		fmt.Println("Setup:")
		fmt.Println("  # Bash - add to ~/.bashrc")
		fmt.Println("  eval \"$(lockpass completion bash)\"")
		fmt.Println()
		fmt.Println("  # Zsh - add to ~/.zshrc")
		fmt.Println("  eval \"$(lockpass completion zsh)\"")
		fmt.Println()
		fmt.Println("  # Fish - add to ~/.config/fish/config.fish")
		fmt.Println("  lockpass completion fish | source")
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
	}
}
