package main

import "github.com/examsurveil/backend/storage/database"

var migrateFunc = database.Run // mockable

func (cli *commandLine) migrate(args []string) error {
	return migrateFunc(cli.db, args[0], args[1:]...)
}
