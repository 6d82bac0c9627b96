package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"gorm.io/gorm"

	"github.com/lumabyte/misspauling/internal/config"
	"github.com/lumabyte/misspauling/internal/database"
	"github.com/lumabyte/misspauling/internal/domain/role"
	"github.com/lumabyte/misspauling/internal/domain/user"
	"github.com/lumabyte/misspauling/internal/migrations"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	db, err := connect()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	roleRepo := role.NewRepository(db)
	userRepo := user.NewRepository(db, roleRepo)

	var cmdErr error
	switch os.Args[1] {
	case "list-users":
		cmdErr = listUsers(userRepo, roleRepo)
	case "list-roles":
		cmdErr = listRoles(roleRepo)
	case "user-roles":
		cmdErr = userRoles(userRepo, roleRepo, os.Args[2:])
	case "assign":
		cmdErr = assignRole(userRepo, roleRepo, os.Args[2:])
	case "remove":
		cmdErr = removeRole(userRepo, roleRepo, os.Args[2:])
	case "find-user":
		cmdErr = findUser(userRepo, roleRepo, os.Args[2:])
	default:
		printUsage()
		cmdErr = fmt.Errorf("unknown subcommand: %s", os.Args[1])
	}

	if cmdErr != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", cmdErr)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Usage: pauling-admin <subcommand> [args]\n\n")
	fmt.Fprintf(os.Stderr, "Subcommands:\n")
	fmt.Fprintf(os.Stderr, "  list-users             List all users with their roles\n")
	fmt.Fprintf(os.Stderr, "  list-roles             List the role hierarchy\n")
	fmt.Fprintf(os.Stderr, "  user-roles <id>        Show one user's roles\n")
	fmt.Fprintf(os.Stderr, "  assign <id> <role>     Grant a role to a user\n")
	fmt.Fprintf(os.Stderr, "  remove <id> <role>     Revoke a role from a user\n")
	fmt.Fprintf(os.Stderr, "  find-user <term>       Search users by name, Discord id or Steam id\n")
}

func connect() (*gorm.DB, error) {
	envConfig := config.LoadEnv()
	cfg, err := config.Load(envConfig.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	db, err := database.Connect(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := migrations.RunMigrations(db); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return db, nil
}

func listUsers(users user.Repository, roles role.Repository) error {
	all, err := users.List()
	if err != nil {
		return err
	}
	for i := range all {
		printUser(&all[i], roles)
	}
	fmt.Printf("%d user(s)\n", len(all))
	return nil
}

func listRoles(roles role.Repository) error {
	all, err := roles.ListAll()
	if err != nil {
		return err
	}
	for _, r := range all {
		name, _ := role.Parse(r.Name)
		fmt.Printf("%-15s rank=%d  %s\n", r.Name, role.Rank(name), r.Description)
	}
	return nil
}

func userRoles(users user.Repository, roles role.Repository, args []string) error {
	fs := flag.NewFlagSet("user-roles", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("user id required")
	}

	id, err := strconv.ParseUint(fs.Arg(0), 10, 32)
	if err != nil {
		return fmt.Errorf("invalid user id: %s", fs.Arg(0))
	}

	u, err := users.FindByID(uint(id))
	if err != nil {
		return err
	}
	printUser(u, roles)
	return nil
}

// assignRole grants a role from the operator shell. The grant is recorded
// with no assigning user, marking it as a system grant.
func assignRole(users user.Repository, roles role.Repository, args []string) error {
	id, name, err := parseUserRoleArgs("assign", args)
	if err != nil {
		return err
	}

	u, err := users.FindByID(id)
	if err != nil {
		return err
	}

	if err := roles.Assign(u.ID, name, nil); err != nil {
		return err
	}
	fmt.Printf("Assigned %s to %s\n", name, u.String())
	return nil
}

func removeRole(users user.Repository, roles role.Repository, args []string) error {
	id, name, err := parseUserRoleArgs("remove", args)
	if err != nil {
		return err
	}

	u, err := users.FindByID(id)
	if err != nil {
		return err
	}

	removed, err := roles.Remove(u.ID, name)
	if err != nil {
		return err
	}
	if !removed {
		fmt.Printf("%s did not hold %s\n", u.String(), name)
		return nil
	}
	fmt.Printf("Removed %s from %s\n", name, u.String())
	return nil
}

func findUser(users user.Repository, roles role.Repository, args []string) error {
	fs := flag.NewFlagSet("find-user", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("search term required")
	}

	matches, err := users.Search(fs.Arg(0))
	if err != nil {
		return err
	}
	for i := range matches {
		printUser(&matches[i], roles)
	}
	fmt.Printf("%d match(es)\n", len(matches))
	return nil
}

func parseUserRoleArgs(cmd string, args []string) (uint, role.Name, error) {
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		return 0, "", err
	}
	if fs.NArg() < 2 {
		return 0, "", fmt.Errorf("usage: pauling-admin %s <id> <role>", cmd)
	}

	id, err := strconv.ParseUint(fs.Arg(0), 10, 32)
	if err != nil {
		return 0, "", fmt.Errorf("invalid user id: %s", fs.Arg(0))
	}

	name, ok := role.Parse(fs.Arg(1))
	if !ok {
		return 0, "", fmt.Errorf("unknown role: %s", fs.Arg(1))
	}
	return uint(id), name, nil
}

func printUser(u *user.User, roles role.Repository) {
	names, err := roles.NamesForUser(u.ID)
	if err != nil {
		names = nil
	}
	fmt.Printf("%-40s roles=%v last_login=%s\n", u.String(), names, u.LastLogin.Format("2006-01-02 15:04"))
}
