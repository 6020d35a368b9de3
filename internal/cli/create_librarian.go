package cli

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/mrlokans/librarydesk/internal/accounts"
	"github.com/mrlokans/librarydesk/internal/config"
	"github.com/mrlokans/librarydesk/internal/database/clients"
)

// CreateLibrarianCommand adds a staff account. Librarians cannot sign up through the web.
type CreateLibrarianCommand struct {
	Name         string
	Email        string
	Password     string
	DatabasePath string
}

func NewCreateLibrarianCommand() *CreateLibrarianCommand {
	return &CreateLibrarianCommand{}
}

func (cmd *CreateLibrarianCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("create-librarian", flag.ExitOnError)

	fs.StringVar(&cmd.Name, "name", "", "Librarian name (required)")
	fs.StringVar(&cmd.Email, "email", "", "Librarian email (required)")
	fs.StringVar(&cmd.Password, "password", "", "Password (default: LIBRARIAN_PASSWORD environment variable)")
	fs.StringVar(&cmd.DatabasePath, "db", "", "Path to the SQLite database (default: DATABASE_PATH or "+config.DefaultDatabasePath+")")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s create-librarian -name <name> -email <email> [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Create a librarian account.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if cmd.Password == "" {
		cmd.Password = os.Getenv("LIBRARIAN_PASSWORD")
	}
	switch {
	case cmd.Name == "":
		return fmt.Errorf("required flag -name not provided")
	case cmd.Email == "":
		return fmt.Errorf("required flag -email not provided")
	case cmd.Password == "":
		return fmt.Errorf("a password is required: use -password or LIBRARIAN_PASSWORD")
	}
	return nil
}

func (cmd *CreateLibrarianCommand) Run() error {
	db, err := openDatabase(cmd.DatabasePath)
	if err != nil {
		return err
	}
	defer db.Close()

	cost := config.NewConfig().Auth.BcryptCost
	service := accounts.NewService(clients.NewRepository(db.DB), cost)

	librarian, err := service.RegisterLibrarian(context.Background(), cmd.Name, cmd.Email, cmd.Password)
	if err != nil {
		return fmt.Errorf("failed to create librarian: %w", err)
	}

	fmt.Printf("Librarian %s <%s> created\n", librarian.Name, librarian.Email)
	return nil
}
