package main

import (
	"bufio"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/examsurveil/backend/core/user"
)

var (
	// mockable
	isTerminalFunc = func() bool { return term.IsTerminal(int(os.Stdin.Fd())) }
	stdin          = io.Reader(os.Stdin)

	errHelp     = errors.New("help provided")
	errAborted  = errors.New("aborted")
	destructive = map[string]bool{"down": true, "down-to": true, "redo": true, "reset": true}
)

type commandLine struct {
	db      *sql.DB
	usrRepo user.Repository
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate COMMAND [ARGS] - run a goose command (up, up-by-one, up-to, down, down-to, redo, reset, status, version)")
	fmt.Println("  adduser -email EMAIL -role proctor|examinee [-name NAME] [-class CLASS] - create or update a user")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addUserCmd := flag.NewFlagSet("adduser", flag.ContinueOnError)
	addUserEmail := addUserCmd.String("email", "", "The user's email (sign-in identity).")
	addUserRole := addUserCmd.String("role", user.RoleProctor, "The user's role: proctor or examinee.")
	addUserName := addUserCmd.String("name", "", "The user's display name.")
	addUserClass := addUserCmd.String("class", "", "The examinee's class name.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		if destructive[args[2]] && !confirm(fmt.Sprintf("%q may drop data. Continue? [y/N] ", args[2])) {
			return errAborted
		}
		return cli.migrate(args[2:])
	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *addUserEmail == "" {
			addUserCmd.Usage()
			return errHelp
		}
		return cli.addUser(*addUserEmail, *addUserRole, *addUserName, *addUserClass)
	default:
		cli.printUsage()
		return errHelp
	}
}

// confirm asks for a yes/no answer when stdin is a terminal; scripts are never prompted.
func confirm(prompt string) bool {
	if !isTerminalFunc() {
		return true
	}
	fmt.Print(prompt)
	answer, _ := bufio.NewReader(stdin).ReadString('\n')
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}
