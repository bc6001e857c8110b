package cmd

import (
	"fmt"
	"io"
)

// Completion writes the shell completion script for shell
func Completion(out io.Writer, shell string) error {
	switch shell {
	case "bash":
		fmt.Fprint(out, bashCompletion)
	case "zsh":
		fmt.Fprint(out, zshCompletion)
	case "fish":
		fmt.Fprint(out, fishCompletion)
	default:
		return fmt.Errorf("unknown shell: %s (supported: bash, zsh, fish)", shell)
	}
	return nil
}

const bashCompletion = `_lockpass() {
    local cur prev words cword
    _init_completion || return

    local commands="init add ls list show find edit rm passwd compact status menu keyring help completion"

    if [[ "$prev" == "-vault" ]]; then
        _filedir
        return
    fi

    local i cmd=""
    for ((i = 1; i < cword; i++)); do
        case "${words[i]}" in
            -vault) ((i++)) ;;
            -*) ;;
            *) cmd="${words[i]}"; break ;;
        esac
    done

    if [[ -z "$cmd" ]]; then
        COMPREPLY=($(compgen -W "$commands -vault -v" -- "$cur"))
        return
    fi

    case "$cmd" in
        add)
            COMPREPLY=($(compgen -W "-u -n" -- "$cur"))
            ;;
        ls|list|find)
            COMPREPLY=($(compgen -W "-show" -- "$cur"))
            ;;
        edit)
            COMPREPLY=($(compgen -W "-u -n -s" -- "$cur"))
            ;;
        keyring)
            COMPREPLY=($(compgen -W "save delete status" -- "$cur"))
            ;;
        help)
            COMPREPLY=($(compgen -W "$commands" -- "$cur"))
            ;;
        completion)
            COMPREPLY=($(compgen -W "bash zsh fish" -- "$cur"))
            ;;
    esac
}

complete -F _lockpass lockpass
`

const zshCompletion = `#compdef lockpass

_lockpass() {
    local -a commands
    commands=(
        'init:Create a new password vault'
        'add:Store a new credential'
        'ls:List credentials'
        'list:List credentials'
        'show:Show one credential in full'
        'find:Search usernames and notes'
        'edit:Change a credential'
        'rm:Remove credentials by id'
        'passwd:Change the vault passphrase'
        'compact:Compact vault to reclaim disk space'
        'status:Show vault details without a passphrase'
        'menu:Interactive menu'
        'keyring:Manage passphrase in OS keyring'
        'help:Show help for a command'
        'completion:Generate shell completions'
    )

    _arguments -C \
        '-vault[Vault file]:vault file:_files' \
        '-v[Verbose diagnostics]' \
        '1: :->command' \
        '*:: :->args'

    case "$state" in
        command)
            _describe -t commands 'lockpass commands' commands
            ;;
        args)
            case "${words[1]}" in
                add)
                    _arguments '-u[Username]:username:' '-n[Site or note]:note:'
                    ;;
                ls|list|find)
                    _arguments '-show[Print secrets]'
                    ;;
                edit)
                    _arguments '-u[New username]:username:' '-n[New note]:note:' '-s[Prompt for a new secret]'
                    ;;
                keyring)
                    _values 'subcommand' save delete status
                    ;;
                help)
                    _describe -t commands 'lockpass commands' commands
                    ;;
                completion)
                    _values 'shell' bash zsh fish
                    ;;
            esac
            ;;
    esac
}

_lockpass "$@"
`

const fishCompletion = `# lockpass fish completions

set -l commands init add ls list show find edit rm passwd compact status menu keyring help completion

complete -c lockpass -f

# Global flags
complete -c lockpass -o vault -r -F -d 'Vault file'
complete -c lockpass -s v -d 'Verbose diagnostics'

# Commands
complete -c lockpass -n "not __fish_seen_subcommand_from $commands" -a init -d 'Create a new password vault'
complete -c lockpass -n "not __fish_seen_subcommand_from $commands" -a add -d 'Store a new credential'
complete -c lockpass -n "not __fish_seen_subcommand_from $commands" -a ls -d 'List credentials'
complete -c lockpass -n "not __fish_seen_subcommand_from $commands" -a list -d 'List credentials'
complete -c lockpass -n "not __fish_seen_subcommand_from $commands" -a show -d 'Show one credential'
complete -c lockpass -n "not __fish_seen_subcommand_from $commands" -a find -d 'Search usernames and notes'
complete -c lockpass -n "not __fish_seen_subcommand_from $commands" -a edit -d 'Change a credential'
complete -c lockpass -n "not __fish_seen_subcommand_from $commands" -a rm -d 'Remove credentials'
complete -c lockpass -n "not __fish_seen_subcommand_from $commands" -a passwd -d 'Change vault passphrase'
complete -c lockpass -n "not __fish_seen_subcommand_from $commands" -a compact -d 'Compact vault'
complete -c lockpass -n "not __fish_seen_subcommand_from $commands" -a status -d 'Show vault details'
complete -c lockpass -n "not __fish_seen_subcommand_from $commands" -a menu -d 'Interactive menu'
complete -c lockpass -n "not __fish_seen_subcommand_from $commands" -a keyring -d 'Manage passphrase in OS keyring'
complete -c lockpass -n "not __fish_seen_subcommand_from $commands" -a help -d 'Show help'
complete -c lockpass -n "not __fish_seen_subcommand_from $commands" -a completion -d 'Generate completions'

# Command flags
complete -c lockpass -n "__fish_seen_subcommand_from add edit" -o u -r -d 'Username'
complete -c lockpass -n "__fish_seen_subcommand_from add edit" -o n -r -d 'Site or note'
complete -c lockpass -n "__fish_seen_subcommand_from edit" -o s -d 'Prompt for a new secret'
complete -c lockpass -n "__fish_seen_subcommand_from ls list find" -o show -d 'Print secrets'

# keyring subcommands
complete -c lockpass -n "__fish_seen_subcommand_from keyring" -a "save delete status"

# help completions
complete -c lockpass -n "__fish_seen_subcommand_from help" -a "$commands"

# completion completions
complete -c lockpass -n "__fish_seen_subcommand_from completion" -a "bash zsh fish"
`
