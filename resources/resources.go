// Package resources bundles the files the binaries need at run time.
package resources

import "embed"

// Migrations holds the goose SQL migrations, under "migrations/".
//
//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationsDir is the directory of Migrations goose reads from.
const MigrationsDir = "migrations"

//go:embed common-passwords.txt
var CommonPasswords []byte
